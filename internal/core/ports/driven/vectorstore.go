package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// VectorStore stores chunk embeddings and answers nearest-neighbour queries.
//
// Implementations include:
//   - chroma: embedded and persisted to disk
//   - pinecone: hosted serverless index
//   - memory: process-local, for tests and throwaway runs
type VectorStore interface {
	// Upsert inserts or replaces records by ID.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Query returns up to topK records ordered by similarity, highest first.
	Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error)

	// DeleteByIDs removes records by ID. Unknown IDs are ignored.
	DeleteByIDs(ctx context.Context, ids []string) error

	// DeleteByFile removes every record whose file_id metadata equals fileID.
	DeleteByFile(ctx context.Context, fileID string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
