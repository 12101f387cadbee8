package service

import (
	"context"
	"time"

	"github.com/Aadithya-J/code_nest/services/editor-service/internal/events"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/models"
	"github.com/google/uuid"
)

const defaultStoreTimeout = 10 * time.Second

type ProjectRepository interface {
	CreateProject(ctx context.Context, project *models.Project) error
	ListProjects(ctx context.Context) ([]models.Project, error)
}

type FileRepository interface {
	CreateFile(ctx context.Context, file *models.File) error
	ListFiles(ctx context.Context, projectID string) ([]models.File, error)
	UpdateContent(ctx context.Context, fileID, content string) (int64, error)
	UpdatePath(ctx context.Context, fileID, path string) (int64, error)
	DeleteFile(ctx context.Context, fileID string) (int64, error)
	ReplaceFiles(ctx context.Context, projectID string, entries []models.FileEntry) error
	ListFileRefs(ctx context.Context, projectID string) ([]models.FileRef, error)
	FileContent(ctx context.Context, fileID string) (string, error)
}

// EventEmitter receives an event after each committed mutation.
type EventEmitter interface {
	Emit(ctx context.Context, ev events.Event)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, events.Event) {}

// storeContext bounds a store call by timeout.
func storeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// validID reports whether id can name a row. Ids are uuids generated here, so
// anything else cannot match.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
