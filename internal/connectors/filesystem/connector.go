// Package filesystem provides a Connector for a local documents folder.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// ConnectorType is the type identifier for this connector.
const ConnectorType = "filesystem"

// DefaultDebounce coalesces bursts of editor writes into one event.
const DefaultDebounce = 500 * time.Millisecond

// customMIMETypes covers extensions the mime package may not know.
var customMIMETypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".json":     "application/json",
	".xml":      "application/xml",
	".html":     "text/html",
	".htm":      "text/html",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Connector lists and reads files under a root folder.
type Connector struct {
	rootPath   string
	extensions map[string]struct{}
	debounce   time.Duration

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// New creates a connector for rootPath that keeps files with the given
// extensions. An empty extension list keeps every non-hidden file.
func New(rootPath string, extensions []string) *Connector {
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	return &Connector{rootPath: rootPath, extensions: exts, debounce: DefaultDebounce}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return ConnectorType
}

// SourceID returns the root folder.
func (c *Connector) SourceID() string {
	return c.rootPath
}

// Validate ensures the root folder exists, creating it when missing.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(c.rootPath)
	if errors.Is(err, fs.ErrNotExist) {
		if mkErr := os.MkdirAll(c.rootPath, 0o755); mkErr != nil {
			return fmt.Errorf("%w: create %s: %v", domain.ErrConnectorValidation, c.rootPath, mkErr)
		}
		logger.Info("created documents folder %s", c.rootPath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectorValidation, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrConnectorValidation, c.rootPath)
	}
	return nil
}

// List walks the root folder and returns every matching file.
func (c *Connector) List(ctx context.Context) ([]domain.SourceFile, error) {
	if c.isClosed() {
		return nil, domain.ErrConnectorClosed
	}

	var files []domain.SourceFile
	err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != c.rootPath && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !c.accepts(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		file, err := c.sourceFile(path, info)
		if err != nil {
			return err
		}
		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.rootPath, err)
	}
	return files, nil
}

// Fetch reads a listed file from disk.
func (c *Connector) Fetch(ctx context.Context, file domain.SourceFile) (*domain.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.isClosed() {
		return nil, domain.ErrConnectorClosed
	}

	path := filepath.Join(c.rootPath, filepath.FromSlash(file.ID))
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, file.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.ID, err)
	}

	mimeType := file.MIMEType
	if mimeType == "" {
		mimeType = detectMIMEType(path)
	}

	return &domain.RawDocument{
		SourceID: c.rootPath,
		FileID:   file.ID,
		URI:      path,
		MIMEType: mimeType,
		Content:  content,
		Metadata: map[string]any{
			"title":         file.Name,
			"path":          file.ID,
			"size":          len(content),
			"modified_time": file.ModifiedTime,
		},
	}, nil
}

// Watch emits debounced events for changes below the root folder.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.SourceEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, domain.ErrConnectorClosed
	}
	if _, err := os.Stat(c.rootPath); err != nil {
		return nil, fmt.Errorf("watch %s: %w", c.rootPath, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := c.addTree(watcher); err != nil {
		watcher.Close()
		return nil, err
	}
	c.watcher = watcher

	events := make(chan domain.SourceEvent, 16)
	go c.watchLoop(ctx, watcher, events)
	return events, nil
}

// Close stops any active watcher. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.watcher != nil {
		err := c.watcher.Close()
		c.watcher = nil
		return err
	}
	return nil
}

func (c *Connector) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- domain.SourceEvent) {
	defer close(out)

	var (
		pending *domain.SourceEvent
		timer   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !isHidden(info.Name()) {
					_ = watcher.Add(ev.Name)
				}
			}
			change := c.handleFsEvent(ev)
			if change == nil {
				continue
			}
			pending = change
			if timer == nil {
				timer = time.NewTimer(c.debounce)
			} else {
				timer.Reset(c.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if pending == nil {
				continue
			}
			select {
			case out <- *pending:
			case <-ctx.Done():
				return
			}
			pending = nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("filesystem watcher: %v", err)
		}
	}
}

// handleFsEvent maps an fsnotify event to a source event, or nil when
// the event is not relevant.
func (c *Connector) handleFsEvent(ev fsnotify.Event) *domain.SourceEvent {
	if isHidden(filepath.Base(ev.Name)) || !c.accepts(ev.Name) {
		return nil
	}

	id := c.relativeID(ev.Name)
	now := time.Now()

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return &domain.SourceEvent{Type: domain.ChangeDeleted, FileID: id, At: now}
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
			return nil
		}
		return &domain.SourceEvent{Type: domain.ChangeCreated, FileID: id, At: now}
	case ev.Has(fsnotify.Write):
		return &domain.SourceEvent{Type: domain.ChangeUpdated, FileID: id, At: now}
	default:
		return nil
	}
}

func (c *Connector) addTree(w *fsnotify.Watcher) error {
	return filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.rootPath && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (c *Connector) sourceFile(path string, info fs.FileInfo) (domain.SourceFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.SourceFile{}, err
	}
	return domain.SourceFile{
		ID:           c.relativeID(path),
		Name:         info.Name(),
		MIMEType:     detectMIMEType(path),
		ModifiedTime: info.ModTime().UTC(),
		Size:         info.Size(),
		URI:          abs,
	}, nil
}

func (c *Connector) relativeID(path string) string {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (c *Connector) accepts(path string) bool {
	if len(c.extensions) == 0 {
		return true
	}
	_, ok := c.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (c *Connector) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// detectMIMEType maps a file extension to a MIME type without parameters.
func detectMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "text/plain"
	}
	if t, ok := customMIMETypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return strings.TrimSpace(t)
	}
	return "application/octet-stream"
}

// isHidden reports whether a base name is a dotfile.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
