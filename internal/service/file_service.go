package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Aadithya-J/code_nest/services/editor-service/internal/archive"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/events"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/lock"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/metrics"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileService struct {
	FileRepo FileRepository
	Locker   lock.Locker
	Events   EventEmitter
	Timeout  time.Duration
}

func NewFileService(fileRepo FileRepository, locker lock.Locker, emitter EventEmitter, timeout time.Duration) *FileService {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	if emitter == nil {
		emitter = nopEmitter{}
	}
	return &FileService{FileRepo: fileRepo, Locker: locker, Events: emitter, Timeout: timeout}
}

// ListFiles returns the files of a project, oldest first. An unknown project
// has no files.
func (s *FileService) ListFiles(ctx context.Context, projectID string) ([]models.File, error) {
	if !validID(projectID) {
		return []models.File{}, nil
	}

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	files, err := s.FileRepo.ListFiles(sctx, projectID)
	if err != nil {
		return nil, classify("list files", err)
	}
	return files, nil
}

// CreateFile adds an empty file at path to the project.
func (s *FileService) CreateFile(ctx context.Context, projectID, path string) (*models.File, error) {
	clean, err := validatePath(path)
	if err != nil {
		return nil, err
	}
	if !validID(projectID) {
		return nil, &NotFoundError{Resource: "project", ID: projectID}
	}

	file := &models.File{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Path:      clean,
	}

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()
	if err := s.FileRepo.CreateFile(sctx, file); err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, &NotFoundError{Resource: "project", ID: projectID}
		}
		return nil, classify("create file", err)
	}

	s.Events.Emit(ctx, events.Event{
		Type:      events.FileCreated,
		ProjectID: projectID,
		FileID:    file.ID,
		Payload:   map[string]any{"path": file.Path},
	})
	return file, nil
}

// UpdateFileContent overwrites the content of a file. A nil content means the
// field was absent and is rejected; an empty string clears the file.
func (s *FileService) UpdateFileContent(ctx context.Context, fileID string, content *string) error {
	if content == nil {
		return &ValidationError{Field: "content", Message: "content is required"}
	}
	if err := validateContent(*content); err != nil {
		return err
	}
	if !validID(fileID) {
		return &NotFoundError{Resource: "file", ID: fileID}
	}

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	n, err := s.FileRepo.UpdateContent(sctx, fileID, *content)
	if err != nil {
		return classify("update file", err)
	}
	if n == 0 {
		return &NotFoundError{Resource: "file", ID: fileID}
	}

	s.Events.Emit(ctx, events.Event{
		Type:    events.FileUpdated,
		FileID:  fileID,
		Payload: map[string]any{"size": len(*content)},
	})
	return nil
}

// RenameFile moves a file to path within its project.
func (s *FileService) RenameFile(ctx context.Context, fileID, path string) error {
	clean, err := validatePath(path)
	if err != nil {
		return err
	}
	if !validID(fileID) {
		return &NotFoundError{Resource: "file", ID: fileID}
	}

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	n, err := s.FileRepo.UpdatePath(sctx, fileID, clean)
	if err != nil {
		return classify("rename file", err)
	}
	if n == 0 {
		return &NotFoundError{Resource: "file", ID: fileID}
	}

	s.Events.Emit(ctx, events.Event{
		Type:    events.FileRenamed,
		FileID:  fileID,
		Payload: map[string]any{"path": clean},
	})
	return nil
}

// DeleteFile removes a file. Deleting a file that does not exist succeeds.
func (s *FileService) DeleteFile(ctx context.Context, fileID string) error {
	if !validID(fileID) {
		return nil
	}

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	n, err := s.FileRepo.DeleteFile(sctx, fileID)
	if err != nil {
		return classify("delete file", err)
	}
	if n > 0 {
		s.Events.Emit(ctx, events.Event{Type: events.FileDeleted, FileID: fileID})
	}
	return nil
}

// ReplaceAllFiles swaps the whole file set of a project for files, keeping
// their order. Either every old file is gone and every new one stored, or the
// project is left untouched.
func (s *FileService) ReplaceAllFiles(ctx context.Context, projectID string, files []models.FileEntry) (err error) {
	if files == nil {
		return &ValidationError{Field: "files", Message: "files must be an array"}
	}
	entries := make([]models.FileEntry, len(files))
	for i, f := range files {
		clean, err := validatePath(f.Path)
		if err != nil {
			var v *ValidationError
			if errors.As(err, &v) {
				v.Field = fmt.Sprintf("files[%d].path", i)
			}
			return err
		}
		if err := validateContent(f.Content); err != nil {
			err.Field = fmt.Sprintf("files[%d].content", i)
			return err
		}
		entries[i] = models.FileEntry{Path: clean, Content: f.Content}
	}
	if !validID(projectID) {
		return &NotFoundError{Resource: "project", ID: projectID}
	}

	defer func() {
		metrics.FileReplaces.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	if err := s.replaceLocked(ctx, projectID, entries); err != nil {
		return err
	}

	s.Events.Emit(ctx, events.Event{
		Type:      events.FilesReplaced,
		ProjectID: projectID,
		Payload:   map[string]any{"count": len(entries)},
	})
	return nil
}

// replaceLocked runs the replace transaction while holding the project lock.
// The lock is released before it returns.
func (s *FileService) replaceLocked(ctx context.Context, projectID string, entries []models.FileEntry) error {
	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	token, err := s.Locker.Acquire(sctx, projectID)
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			return &ConflictError{Message: "files of this project are being replaced by another request"}
		}
		return classify("lock project", err)
	}
	defer func() {
		// released on a fresh context so an expired request still frees the lock
		rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer rcancel()
		_ = s.Locker.Release(rctx, projectID, token)
	}()

	if err := s.FileRepo.ReplaceFiles(sctx, projectID, entries); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, gorm.ErrForeignKeyViolated):
			return &NotFoundError{Resource: "project", ID: projectID}
		case errors.Is(err, context.DeadlineExceeded):
			return &TimeoutError{Op: "replace files"}
		default:
			return &TransactionAbortedError{ProjectID: projectID, Err: classify("replace files", err)}
		}
	}
	return nil
}

func validatePath(p string) (string, error) {
	if p == "" {
		return "", &ValidationError{Field: "path", Message: "path is required"}
	}
	clean, err := archive.NormalizePath(p)
	if err != nil {
		return "", &ValidationError{Field: "path", Message: err.Error()}
	}
	return clean, nil
}

// validateContent rejects NUL bytes, which text columns cannot store.
func validateContent(content string) *ValidationError {
	if strings.IndexByte(content, 0) >= 0 {
		return &ValidationError{Field: "content", Message: "content must not contain NUL bytes"}
	}
	return nil
}
