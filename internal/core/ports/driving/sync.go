package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Updater keeps the vector store in step with the document source.
type Updater interface {
	// Update runs one pass: removes vectors for deleted files, then embeds
	// and upserts new and modified files. Returns domain.ErrUpdateInProgress
	// if another pass is running.
	Update(ctx context.Context) (*domain.UpdateReport, error)

	// Status returns the running pass, or the last completed one.
	// Returns nil before the first pass.
	Status() *domain.UpdateReport

	// ProcessedFiles returns the ledger entries sorted by name.
	ProcessedFiles(ctx context.Context) ([]domain.ProcessedFile, error)

	// Reset removes every vector the ledger knows about and clears the ledger.
	Reset(ctx context.Context) error
}
