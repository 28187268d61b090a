package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func ids(files []domain.SourceFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.ID
	}
	sort.Strings(out)
	return out
}

func TestNew(t *testing.T) {
	c := New("/tmp/docs", []string{"txt", ".MD", " "})

	assert.Equal(t, ConnectorType, c.Type())
	assert.Equal(t, "/tmp/docs", c.SourceID())
	assert.Len(t, c.extensions, 2)
	assert.True(t, c.accepts("a/b.txt"))
	assert.True(t, c.accepts("README.md"))
	assert.False(t, c.accepts("x.pdf"))
}

func TestConnector_Validate(t *testing.T) {
	t.Run("creates missing folder", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "documents")
		require.NoError(t, New(dir, nil).Validate(context.Background()))

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("file instead of directory", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "file.txt", "x")
		err := New(path, nil).Validate(context.Background())
		assert.ErrorIs(t, err, domain.ErrConnectorValidation)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Equal(t, context.Canceled, New(t.TempDir(), nil).Validate(ctx))
	})
}

func TestConnector_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "leave.txt", "Employees get 25 days.")
	writeFile(t, dir, "benefits/health.txt", "Health cover.")
	writeFile(t, dir, "notes.md", "# skipped by extension")
	writeFile(t, dir, ".hidden.txt", "hidden")
	writeFile(t, dir, ".git/config.txt", "hidden dir")

	t.Run("filters by extension and skips hidden", func(t *testing.T) {
		files, err := New(dir, []string{".txt"}).List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"benefits/health.txt", "leave.txt"}, ids(files))
	})

	t.Run("no filter keeps all visible files", func(t *testing.T) {
		files, err := New(dir, nil).List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"benefits/health.txt", "leave.txt", "notes.md"}, ids(files))
	})

	t.Run("file metadata", func(t *testing.T) {
		files, err := New(dir, []string{".txt"}).List(context.Background())
		require.NoError(t, err)

		var leave domain.SourceFile
		for _, f := range files {
			if f.ID == "leave.txt" {
				leave = f
			}
		}
		assert.Equal(t, "leave.txt", leave.Name)
		assert.Equal(t, "text/plain", leave.MIMEType)
		assert.Equal(t, int64(len("Employees get 25 days.")), leave.Size)
		assert.False(t, leave.ModifiedTime.IsZero())
		assert.True(t, filepath.IsAbs(leave.URI))
	})

	t.Run("missing folder", func(t *testing.T) {
		_, err := New(filepath.Join(dir, "nope"), nil).List(context.Background())
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(dir, nil).List(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("closed connector", func(t *testing.T) {
		c := New(dir, nil)
		require.NoError(t, c.Close())
		_, err := c.List(context.Background())
		assert.ErrorIs(t, err, domain.ErrConnectorClosed)
	})
}

func TestConnector_Fetch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "policies/leave.txt", "Employees get 25 days.")
	c := New(dir, []string{".txt"})

	files, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)

	raw, err := c.Fetch(context.Background(), files[0])
	require.NoError(t, err)
	assert.Equal(t, "policies/leave.txt", raw.FileID)
	assert.Equal(t, "text/plain", raw.MIMEType)
	assert.Equal(t, []byte("Employees get 25 days."), raw.Content)
	assert.Equal(t, "leave.txt", raw.Metadata["title"])
	assert.Equal(t, dir, raw.SourceID)

	_, err = c.Fetch(context.Background(), domain.SourceFile{ID: "gone.txt"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConnector_Watch(t *testing.T) {
	t.Run("emits one debounced event for a burst", func(t *testing.T) {
		dir := t.TempDir()
		c := New(dir, []string{".txt"})
		c.debounce = 50 * time.Millisecond
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := c.Watch(ctx)
		require.NoError(t, err)

		path := filepath.Join(dir, "new.txt")
		require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))
		require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))

		select {
		case ev := <-events:
			assert.Equal(t, "new.txt", ev.FileID)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for watch event")
		}
	})

	t.Run("closes channel on cancel", func(t *testing.T) {
		c := New(t.TempDir(), nil)
		defer c.Close()
		ctx, cancel := context.WithCancel(context.Background())

		events, err := c.Watch(ctx)
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-events:
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("channel not closed")
		}
	})

	t.Run("missing folder", func(t *testing.T) {
		_, err := New("/non/existent/docrag", nil).Watch(context.Background())
		assert.Error(t, err)
	})

	t.Run("closed connector", func(t *testing.T) {
		c := New(t.TempDir(), nil)
		require.NoError(t, c.Close())
		_, err := c.Watch(context.Background())
		assert.ErrorIs(t, err, domain.ErrConnectorClosed)
	})
}

func TestConnector_Close(t *testing.T) {
	c := New(t.TempDir(), nil)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestHandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "doc.txt", "x")
	hidden := writeFile(t, dir, ".doc.txt", "x")
	sub := filepath.Join(dir, "sub.txt")
	require.NoError(t, os.Mkdir(sub, 0o755))

	c := New(dir, []string{".txt"})

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want *domain.ChangeType
	}{
		{"create", file, fsnotify.Create, ptr(domain.ChangeCreated)},
		{"write", file, fsnotify.Write, ptr(domain.ChangeUpdated)},
		{"write and chmod", file, fsnotify.Write | fsnotify.Chmod, ptr(domain.ChangeUpdated)},
		{"remove", filepath.Join(dir, "old.txt"), fsnotify.Remove, ptr(domain.ChangeDeleted)},
		{"rename", filepath.Join(dir, "old.txt"), fsnotify.Rename, ptr(domain.ChangeDeleted)},
		{"chmod only", file, fsnotify.Chmod, nil},
		{"hidden", hidden, fsnotify.Write, nil},
		{"wrong extension", filepath.Join(dir, "a.pdf"), fsnotify.Write, nil},
		{"directory create", sub, fsnotify.Create, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := c.handleFsEvent(fsnotify.Event{Name: tt.path, Op: tt.op})
			if tt.want == nil {
				assert.Nil(t, ev)
				return
			}
			require.NotNil(t, ev)
			assert.Equal(t, *tt.want, ev.Type)
		})
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := map[string]string{
		"file":          "text/plain",
		"doc.md":        "text/markdown",
		"DOC.MD":        "text/markdown",
		"page.html":     "text/html",
		"sheet.csv":     "text/csv",
		"report.pdf":    "application/pdf",
		"policy.docx":   "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"x.zzzzunknown": "application/octet-stream",
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			got := detectMIMEType(name)
			assert.Equal(t, want, got)
			assert.NotContains(t, got, ";")
		})
	}
}

func TestIsHidden(t *testing.T) {
	assert.True(t, isHidden(".git"))
	assert.True(t, isHidden(".env"))
	assert.False(t, isHidden("."))
	assert.False(t, isHidden(".."))
	assert.False(t, isHidden("file.txt"))
}

func ptr(c domain.ChangeType) *domain.ChangeType { return &c }
