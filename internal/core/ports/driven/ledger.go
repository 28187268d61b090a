package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// LedgerStore persists which files have been processed and the vector IDs
// written for each, keyed by file ID.
type LedgerStore interface {
	// List returns every entry keyed by file ID.
	List(ctx context.Context) (map[string]domain.ProcessedFile, error)

	// Get returns the entry for a file, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.ProcessedFile, error)

	// Put creates or replaces the entry for file.ID.
	Put(ctx context.Context, file domain.ProcessedFile) error

	// Delete removes an entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, id string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}
