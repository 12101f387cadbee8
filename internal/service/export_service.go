package service

import (
	"context"
	"errors"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/Aadithya-J/code_nest/services/editor-service/internal/archive"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/metrics"
	"github.com/Aadithya-J/code_nest/services/editor-service/internal/models"
)

const defaultExportTimeout = 5 * time.Minute

type ExportService struct {
	FileRepo      FileRepository
	StoreTimeout  time.Duration
	ExportTimeout time.Duration
}

func NewExportService(fileRepo FileRepository, storeTimeout, exportTimeout time.Duration) *ExportService {
	if exportTimeout <= 0 {
		exportTimeout = defaultExportTimeout
	}
	return &ExportService{FileRepo: fileRepo, StoreTimeout: storeTimeout, ExportTimeout: exportTimeout}
}

// ExportProjectZip writes the files of a project into w as a zip archive and
// returns the number of entries. An unknown project produces an empty archive.
// The file list is read once, then each content is fetched by its own short
// query right before it is encoded. No store connection is held while w
// blocks, and memory holds one file at a time. If an error is returned after w
// received bytes, the output is a truncated archive.
func (s *ExportService) ExportProjectZip(ctx context.Context, projectID string, w io.Writer) (n int, err error) {
	defer func() {
		metrics.ArchiveExports.WithLabelValues(metrics.Outcome(err)).Inc()
		metrics.ArchiveEntries.Add(float64(n))
	}()

	ctx, cancel := context.WithTimeout(ctx, s.ExportTimeout)
	defer cancel()

	src := archive.SliceSource(nil)
	if validID(projectID) {
		src = s.projectSource(projectID)
	}

	n, err = archive.WriteZip(ctx, w, src)
	if err != nil {
		var unsafe *archive.UnsafePathError
		switch {
		case errors.As(err, &unsafe):
			return n, err
		case errors.Is(err, context.DeadlineExceeded):
			return n, &TimeoutError{Op: "export project"}
		case errors.Is(err, context.Canceled):
			return n, err
		default:
			return n, &StoreError{Op: "export project", Err: err}
		}
	}
	return n, nil
}

func (s *ExportService) projectSource(projectID string) archive.Source {
	return func(ctx context.Context, emit func(models.FileEntry) error) error {
		sctx, cancel := storeContext(ctx, s.StoreTimeout)
		refs, err := s.FileRepo.ListFileRefs(sctx, projectID)
		cancel()
		if err != nil {
			return err
		}

		for _, ref := range refs {
			sctx, cancel := storeContext(ctx, s.StoreTimeout)
			content, err := s.FileRepo.FileContent(sctx, ref.ID)
			cancel()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// deleted after the listing
				continue
			}
			if err != nil {
				return err
			}
			if err := emit(models.FileEntry{Path: ref.Path, Content: content}); err != nil {
				return err
			}
		}
		return nil
	}
}
