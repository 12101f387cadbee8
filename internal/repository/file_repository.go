package repository

import (
	"context"
	"time"

	"github.com/Aadithya-J/code_nest/services/editor-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// insertStep separates created_at of rows inserted by one replace so that the
// created_at ordering reproduces the caller's order. Postgres keeps microseconds.
const insertStep = time.Microsecond

type FileRepository struct {
	DB *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{DB: db}
}

func (r *FileRepository) CreateFile(ctx context.Context, file *models.File) error {
	return r.DB.WithContext(ctx).Create(file).Error
}

// ListFiles returns the files of a project, oldest first.
func (r *FileRepository) ListFiles(ctx context.Context, projectID string) ([]models.File, error) {
	files := []models.File{}
	err := r.DB.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&files).Error
	return files, err
}

// UpdateContent overwrites the content of a file and returns the number of rows
// it touched.
func (r *FileRepository) UpdateContent(ctx context.Context, fileID, content string) (int64, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.File{}).
		Where("id = ?", fileID).
		Update("content", content)
	return res.RowsAffected, res.Error
}

func (r *FileRepository) UpdatePath(ctx context.Context, fileID, path string) (int64, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.File{}).
		Where("id = ?", fileID).
		Update("path", path)
	return res.RowsAffected, res.Error
}

func (r *FileRepository) DeleteFile(ctx context.Context, fileID string) (int64, error) {
	res := r.DB.WithContext(ctx).Where("id = ?", fileID).Delete(&models.File{})
	return res.RowsAffected, res.Error
}

// ReplaceFiles deletes every file of the project and inserts entries in one
// transaction. Nothing is changed when any statement fails. The project row is
// locked first, so replaces of one project run one after another and the last
// to commit wins. gorm.ErrRecordNotFound reports an unknown project.
func (r *FileRepository) ReplaceFiles(ctx context.Context, projectID string, entries []models.FileEntry) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", projectID).
			First(&project).Error
		if err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", projectID).Delete(&models.File{}).Error; err != nil {
			return err
		}

		base := tx.NowFunc()
		for i, e := range entries {
			file := &models.File{
				ID:        uuid.New().String(),
				ProjectID: projectID,
				Path:      e.Path,
				Content:   e.Content,
				CreatedAt: base.Add(time.Duration(i) * insertStep),
			}
			if err := tx.Create(file).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ListFileRefs returns id and path of every file of a project, oldest first.
// Content is left out so large projects can be listed cheaply.
func (r *FileRepository) ListFileRefs(ctx context.Context, projectID string) ([]models.FileRef, error) {
	refs := []models.FileRef{}
	err := r.DB.WithContext(ctx).
		Model(&models.File{}).
		Select("id", "path").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&refs).Error
	return refs, err
}

// FileContent returns the content of one file, or gorm.ErrRecordNotFound when
// the file is gone.
func (r *FileRepository) FileContent(ctx context.Context, fileID string) (string, error) {
	var file models.File
	err := r.DB.WithContext(ctx).
		Select("content").
		Where("id = ?", fileID).
		First(&file).Error
	return file.Content, err
}
