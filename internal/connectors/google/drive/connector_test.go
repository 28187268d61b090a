package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

const testFolder = "folder123"

// fakeDrive serves the subset of the Drive v3 API the connector calls.
type fakeDrive struct {
	mu      sync.Mutex
	pages   [][]map[string]any
	content map[string]string
	exports map[string]map[string]string
	status  int
	queries []string
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		fmt.Fprintf(w, `{"error":{"code":%d,"message":"fake failure"}}`, f.status)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case path == "files":
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		page := 0
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			page = int(tok[0] - '0')
		}
		body := map[string]any{"files": f.pages[page]}
		if page+1 < len(f.pages) {
			body["nextPageToken"] = string(rune('0' + page + 1))
		}
		writeJSON(w, body)

	case strings.HasSuffix(path, "/export"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "files/"), "/export")
		_, _ = w.Write([]byte(f.exports[id][r.URL.Query().Get("mimeType")]))

	case strings.HasPrefix(path, "files/"):
		id := strings.TrimPrefix(path, "files/")
		if id == testFolder {
			writeJSON(w, map[string]any{"id": id, "mimeType": MimeTypeFolder})
			return
		}
		body, ok := f.content[id]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"File not found"}}`))
			return
		}
		_, _ = w.Write([]byte(body))

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeDrive) addFile(page int, file map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[page] = append(f.pages[page], file)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestConnector(t *testing.T, fake *fakeDrive) *Connector {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return New(svc, Config{FolderID: testFolder, PollInterval: 20 * time.Millisecond})
}

func driveFile(id, name, mime, modified string) map[string]any {
	return map[string]any{"id": id, "name": name, "mimeType": mime, "modifiedTime": modified, "size": "12"}
}

func TestConnector_List(t *testing.T) {
	fake := &fakeDrive{pages: [][]map[string]any{
		{
			driveFile("doc1", "Leave Policy", MimeTypeGoogleDoc, "2024-03-01T10:00:00Z"),
			driveFile("sub", "Archive", MimeTypeFolder, "2024-03-01T10:00:00Z"),
		},
		{
			driveFile("txt1", "faq.txt", "text/plain", "2024-03-02T10:00:00.000Z"),
		},
	}}
	c := newTestConnector(t, fake)

	files, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "doc1", files[0].ID)
	assert.Equal(t, "Leave Policy", files[0].Name)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), files[0].ModifiedTime)
	assert.Equal(t, "https://drive.google.com/file/d/doc1/view", files[0].URI)
	assert.Equal(t, "txt1", files[1].ID)
	assert.Equal(t, int64(12), files[1].Size)

	require.Len(t, fake.queries, 2)
	assert.Equal(t, "'folder123' in parents and trashed = false", fake.queries[0])
}

func TestConnector_Fetch(t *testing.T) {
	fake := &fakeDrive{
		pages:   [][]map[string]any{{}},
		content: map[string]string{"txt1": "Plain text body", "pdf1": "%PDF-1.4"},
		exports: map[string]map[string]string{
			"doc1":   {ExportMimeText: "Exported doc"},
			"sheet1": {ExportMimeCSV: "a,b\n1,2"},
		},
	}
	c := newTestConnector(t, fake)
	ctx := context.Background()

	tests := []struct {
		name     string
		file     domain.SourceFile
		wantMIME string
		wantBody string
	}{
		{"google doc", domain.SourceFile{ID: "doc1", Name: "Doc", MIMEType: MimeTypeGoogleDoc}, ExportMimeText, "Exported doc"},
		{"google sheet", domain.SourceFile{ID: "sheet1", Name: "Sheet", MIMEType: MimeTypeGoogleSheet}, ExportMimeCSV, "a,b\n1,2"},
		{"text file", domain.SourceFile{ID: "txt1", Name: "faq.txt", MIMEType: "text/plain"}, "text/plain", "Plain text body"},
		{"pdf", domain.SourceFile{ID: "pdf1", Name: "a.pdf", MIMEType: "application/pdf"}, "application/pdf", "%PDF-1.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := c.Fetch(ctx, tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, raw.MIMEType)
			assert.Equal(t, tt.wantBody, string(raw.Content))
			assert.Equal(t, tt.file.ID, raw.FileID)
			assert.Equal(t, testFolder, raw.SourceID)
		})
	}

	t.Run("unsupported binary", func(t *testing.T) {
		_, err := c.Fetch(ctx, domain.SourceFile{ID: "img", Name: "a.png", MIMEType: "image/png"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := c.Fetch(ctx, domain.SourceFile{ID: "txt1", MIMEType: "text/plain", Size: MaxFileSize + 1})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing file maps to not found", func(t *testing.T) {
		_, err := c.Fetch(ctx, domain.SourceFile{ID: "gone", MIMEType: "text/plain"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestConnector_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrAuthInvalid},
		{http.StatusForbidden, domain.ErrAuthInvalid},
		{http.StatusNotFound, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestConnector(t, &fakeDrive{status: tt.status})
			_, err := c.List(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConnector_Validate(t *testing.T) {
	c := newTestConnector(t, &fakeDrive{pages: [][]map[string]any{{}}})
	assert.NoError(t, c.Validate(context.Background()))

	empty := New(nil, Config{})
	assert.ErrorIs(t, empty.Validate(context.Background()), domain.ErrConfigMissing)
}

func TestConnector_Watch(t *testing.T) {
	fake := &fakeDrive{pages: [][]map[string]any{{
		driveFile("a", "a.txt", "text/plain", "2024-01-01T00:00:00Z"),
	}}}
	c := newTestConnector(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := c.Watch(ctx)
	require.NoError(t, err)

	fake.addFile(0, driveFile("b", "b.txt", "text/plain", "2024-01-02T00:00:00Z"))

	select {
	case ev := <-events:
		assert.Equal(t, domain.ChangeUpdated, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for poll event")
	}
}

func TestConnector_Closed(t *testing.T) {
	c := New(nil, Config{FolderID: testFolder})
	require.NoError(t, c.Close())

	_, err := c.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnectorClosed)
	_, err = c.Watch(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnectorClosed)
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `it\'s`, escapeQuery("it's"))
	assert.Equal(t, `a\\b`, escapeQuery(`a\b`))
}
