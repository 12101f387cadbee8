package repository

import (
	"context"

	"github.com/Aadithya-J/code_nest/services/editor-service/internal/models"
	"gorm.io/gorm"
)

type ProjectRepository struct {
	DB *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{DB: db}
}

func (r *ProjectRepository) CreateProject(ctx context.Context, project *models.Project) error {
	return r.DB.WithContext(ctx).Create(project).Error
}

// ListProjects returns every project, newest first.
func (r *ProjectRepository) ListProjects(ctx context.Context) ([]models.Project, error) {
	projects := []models.Project{}
	err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&projects).Error
	return projects, err
}
