package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Aadithya-J/code_nest/services/editor-service/internal/models"
	"github.com/stretchr/testify/require"
)

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = string(body)
	}
	return out
}

func TestWriteZip(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteZip(context.Background(), &buf, SliceSource([]models.FileEntry{
		{Path: "x.py", Content: "1"},
		{Path: "./pkg/y.py", Content: "2"},
		{Path: "empty.txt", Content: ""},
	}))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, map[string]string{
		"x.py":      "1",
		"pkg/y.py":  "2",
		"empty.txt": "",
	}, readZip(t, buf.Bytes()))
}

func TestWriteZip_Empty(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteZip(context.Background(), &buf, SliceSource(nil))
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, readZip(t, buf.Bytes()))
}

func TestWriteZip_RejectsTraversal(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteZip(context.Background(), &buf, SliceSource([]models.FileEntry{
		{Path: "ok.txt", Content: "fine"},
		{Path: "../../etc/passwd", Content: "root"},
	}))
	var unsafe *UnsafePathError
	require.ErrorAs(t, err, &unsafe)
	require.Equal(t, 1, n)
}

func TestWriteZip_RejectsNamesCollidingAfterCleaning(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteZip(context.Background(), &buf, SliceSource([]models.FileEntry{
		{Path: "a/b.txt"},
		{Path: "a//b.txt"},
	}))
	var unsafe *UnsafePathError
	require.ErrorAs(t, err, &unsafe)
}

func TestWriteZip_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	emitted := 0
	src := func(ctx context.Context, emit func(models.FileEntry) error) error {
		for i := 0; i < 10; i++ {
			if i == 2 {
				cancel()
			}
			if err := emit(models.FileEntry{Path: string(rune('a'+i)) + ".txt", Content: "x"}); err != nil {
				return err
			}
			emitted++
		}
		return nil
	}

	_, err := WriteZip(ctx, io.Discard, src)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, emitted)
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestWriteZip_PropagatesWriterFailure(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := WriteZip(context.Background(), failingWriter{err: boom}, SliceSource([]models.FileEntry{
		{Path: "a.txt", Content: "hello"},
	}))
	require.ErrorIs(t, err, boom)
}

func TestWriteZip_WritesEachEntryBeforeReadingTheNext(t *testing.T) {
	var buf bytes.Buffer
	var sizes []int
	src := func(ctx context.Context, emit func(models.FileEntry) error) error {
		for _, p := range []string{"one.txt", "two.txt", "three.txt"} {
			if err := emit(models.FileEntry{Path: p, Content: "content of " + p}); err != nil {
				return err
			}
			sizes = append(sizes, buf.Len())
		}
		return nil
	}

	_, err := WriteZip(context.Background(), &buf, src)
	require.NoError(t, err)
	require.Len(t, sizes, 3)
	require.Greater(t, sizes[0], 0)
	require.Greater(t, sizes[1], sizes[0])
	require.Greater(t, sizes[2], sizes[1])
}
