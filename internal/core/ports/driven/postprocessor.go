package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// PostProcessor is one stage between normalisation and embedding.
type PostProcessor interface {
	// Name is the stage name used in the chunking.processors setting.
	Name() string

	// Process receives the chunks produced by earlier stages, nil for the
	// first stage, and returns the chunks to pass on.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns a normalised document into the chunks that
// are embedded and upserted.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
