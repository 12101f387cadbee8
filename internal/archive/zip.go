package archive

import (
	"archive/zip"
	"context"
	"io"
	"time"

	"github.com/Aadithya-J/code_nest/services/editor-service/internal/models"
)

// Source pushes entries to emit in archive order and stops at the first error
// emit returns.
type Source func(ctx context.Context, emit func(models.FileEntry) error) error

// WriteZip encodes the entries produced by src as a zip archive into w. Each
// entry is compressed and written as soon as it arrives, so a slow w holds the
// producer back instead of growing a buffer. On error the archive is left
// without its central directory and must be treated as incomplete.
func WriteZip(ctx context.Context, w io.Writer, src Source) (int, error) {
	zw := zip.NewWriter(w)
	seen := make(map[string]struct{})
	modified := time.Now()
	count := 0

	err := src(ctx, func(entry models.FileEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		name, err := NormalizePath(entry.Path)
		if err != nil {
			return err
		}
		if _, dup := seen[name]; dup {
			return &UnsafePathError{Path: entry.Path, Reason: "duplicate archive entry"}
		}
		seen[name] = struct{}{}

		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return err
		}
		if _, err := io.WriteString(fw, entry.Content); err != nil {
			return err
		}
		count++
		return zw.Flush()
	})
	if err != nil {
		return count, err
	}
	return count, zw.Close()
}

// SliceSource adapts an in-memory slice to a Source.
func SliceSource(entries []models.FileEntry) Source {
	return func(_ context.Context, emit func(models.FileEntry) error) error {
		for _, e := range entries {
			if err := emit(e); err != nil {
				return err
			}
		}
		return nil
	}
}
