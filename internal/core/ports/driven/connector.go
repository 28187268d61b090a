package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Connector lists and fetches files from a document source.
// Each connector is bound to one source (a folder on disk or in Drive).
type Connector interface {
	// Type returns the connector type identifier (e.g. "filesystem", "google-drive").
	Type() string

	// SourceID identifies the configured source, such as the folder path or ID.
	SourceID() string

	// Validate checks the source is reachable and correctly configured.
	Validate(ctx context.Context) error

	// List returns every file currently in the source.
	// The update pass treats the result as the complete set: files absent
	// from it have their vectors removed.
	List(ctx context.Context) ([]domain.SourceFile, error)

	// Fetch downloads the content of a listed file.
	Fetch(ctx context.Context, file domain.SourceFile) (*domain.RawDocument, error)

	// Watch emits events when the source changes. The channel closes when
	// ctx is cancelled or the connector is closed.
	Watch(ctx context.Context) (<-chan domain.SourceEvent, error)

	// Close releases resources.
	Close() error
}
