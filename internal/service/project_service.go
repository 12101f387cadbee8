package service

import (
	"context"
	"strings"
	"time"

	"github.com/Aadithya-J/code_nest/services/editor-service/internal/events"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/models"
	"github.com/google/uuid"
)

type ProjectService struct {
	ProjectRepo ProjectRepository
	Events      EventEmitter
	Timeout     time.Duration
}

func NewProjectService(projectRepo ProjectRepository, emitter EventEmitter, timeout time.Duration) *ProjectService {
	if emitter == nil {
		emitter = nopEmitter{}
	}
	return &ProjectService{ProjectRepo: projectRepo, Events: emitter, Timeout: timeout}
}

// CreateProject stores a new project named name and returns it.
func (s *ProjectService) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "name", Message: "project name is required"}
	}
	if strings.IndexByte(name, 0) >= 0 {
		return nil, &ValidationError{Field: "name", Message: "project name must not contain NUL bytes"}
	}

	project := &models.Project{
		ID:   uuid.New().String(),
		Name: name,
	}

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()
	if err := s.ProjectRepo.CreateProject(sctx, project); err != nil {
		return nil, classify("create project", err)
	}

	s.Events.Emit(ctx, events.Event{
		Type:      events.ProjectCreated,
		ProjectID: project.ID,
		Payload:   map[string]any{"name": project.Name},
	})
	return project, nil
}

// ListProjects returns every project, newest first.
func (s *ProjectService) ListProjects(ctx context.Context) ([]models.Project, error) {
	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	projects, err := s.ProjectRepo.ListProjects(sctx)
	if err != nil {
		return nil, classify("list projects", err)
	}
	return projects, nil
}
