// Package drive provides a Connector for a Google Drive folder shared
// with a service account.
package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/docrag/internal/connectors/google"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// ConnectorType is the type identifier for this connector.
const ConnectorType = "google-drive"

const listFields googleapi.Field = "nextPageToken, files(id, name, mimeType, modifiedTime, size, webViewLink)"

// Connector lists and fetches the files in one Drive folder.
type Connector struct {
	cfg     Config
	svc     *drive.Service
	limiter *google.RateLimiter

	mu     sync.Mutex
	closed bool
}

// New creates a connector around an existing Drive service.
func New(svc *drive.Service, cfg Config) *Connector {
	cfg.applyDefaults()
	return &Connector{
		cfg:     cfg,
		svc:     svc,
		limiter: google.NewRateLimiter(0, 0),
	}
}

// NewFromServiceAccount loads the service-account key and builds the
// Drive client.
func NewFromServiceAccount(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	creds, err := google.LoadServiceAccount(ctx, cfg.ServiceAccountFile, google.DriveScope)
	if err != nil {
		return nil, err
	}
	svc, err := google.NewDriveService(ctx, creds, opts...)
	if err != nil {
		return nil, err
	}
	return New(svc, cfg), nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return ConnectorType
}

// SourceID returns the Drive folder ID.
func (c *Connector) SourceID() string {
	return c.cfg.FolderID
}

// Validate checks the folder is visible to the service account.
func (c *Connector) Validate(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	f, err := c.svc.Files.Get(c.cfg.FolderID).
		Fields("id, mimeType").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: folder %s: %w", domain.ErrConnectorValidation, c.cfg.FolderID, c.wrap(err))
	}
	if f.MimeType != MimeTypeFolder {
		return fmt.Errorf("%w: %s is not a folder", domain.ErrConnectorValidation, c.cfg.FolderID)
	}
	return nil
}

// List returns every non-trashed file directly inside the folder,
// following nextPageToken until the listing is complete.
func (c *Connector) List(ctx context.Context) ([]domain.SourceFile, error) {
	if c.isClosed() {
		return nil, domain.ErrConnectorClosed
	}

	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(c.cfg.FolderID))
	var (
		files []domain.SourceFile
		token string
	)
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := c.svc.Files.List().
			Q(query).
			Fields(listFields).
			PageSize(c.cfg.PageSize).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", c.cfg.FolderID, c.wrap(err))
		}
		for _, f := range resp.Files {
			if f.MimeType == MimeTypeFolder {
				continue
			}
			files = append(files, toSourceFile(f))
		}
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}

	logger.Debug("drive: listed %d files in %s", len(files), c.cfg.FolderID)
	return files, nil
}

// Fetch exports Workspace files to text and downloads everything else
// that has a normaliser.
func (c *Connector) Fetch(ctx context.Context, file domain.SourceFile) (*domain.RawDocument, error) {
	if c.isClosed() {
		return nil, domain.ErrConnectorClosed
	}
	if file.Size > c.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrInvalidInput, file.Name, file.Size, c.cfg.MaxFileSize)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var (
		resp     *http.Response
		err      error
		mimeType = file.MIMEType
	)
	if export, ok := ExportFormat(file.MIMEType); ok {
		mimeType = export
		resp, err = c.svc.Files.Export(file.ID, export).Context(ctx).Download()
	} else if IsDownloadable(file.MIMEType) {
		resp, err = c.svc.Files.Get(file.ID).SupportsAllDrives(true).Context(ctx).Download()
	} else {
		return nil, fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedType, file.Name, file.MIMEType)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", file.Name, c.wrap(err))
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Name, err)
	}
	if int64(len(content)) > c.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, file.Name, c.cfg.MaxFileSize)
	}

	return &domain.RawDocument{
		SourceID: c.cfg.FolderID,
		FileID:   file.ID,
		URI:      file.URI,
		MIMEType: mimeType,
		Content:  content,
		Metadata: map[string]any{
			"title":         file.Name,
			"source_mime":   file.MIMEType,
			"web_link":      file.URI,
			"modified_time": file.ModifiedTime,
		},
	}, nil
}

// Watch re-lists the folder every PollInterval and emits an event when
// the set of files or their modification times change.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.SourceEvent, error) {
	if c.isClosed() {
		return nil, domain.ErrConnectorClosed
	}

	var last string
	if files, err := c.List(ctx); err == nil {
		last = fingerprint(files)
	} else {
		logger.Warn("drive watch: initial listing: %v", err)
	}

	events := make(chan domain.SourceEvent, 1)
	go func() {
		defer close(events)

		ticker := time.NewTicker(c.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if c.isClosed() {
				return
			}
			files, err := c.List(ctx)
			if err != nil {
				logger.Warn("drive watch: %v", err)
				continue
			}
			fp := fingerprint(files)
			if fp == last {
				continue
			}
			last = fp
			select {
			case events <- domain.SourceEvent{Type: domain.ChangeUpdated, At: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// Close marks the connector closed. The Drive client holds no resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Connector) wrap(err error) error {
	if google.IsRateLimited(err) {
		c.limiter.Backoff(google.RetryAfter(err))
	}
	return google.WrapError(err)
}

func (c *Connector) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func fingerprint(files []domain.SourceFile) string {
	parts := make([]string, len(files))
	for i, f := range files {
		parts[i] = f.ID + "@" + f.ModifiedTime.Format(time.RFC3339Nano)
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// escapeQuery escapes a value for a single-quoted Drive query literal.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
