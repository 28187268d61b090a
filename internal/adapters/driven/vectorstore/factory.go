// Package vectorstore builds the configured vector store.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docrag/internal/adapters/driven/vectorstore/chroma"
	"github.com/custodia-labs/docrag/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docrag/internal/adapters/driven/vectorstore/pinecone"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// New opens the backend selected in s. dims is the embedding size, used
// only when a Pinecone index has to be created.
func New(ctx context.Context, s domain.VectorStoreSettings, dims int) (driven.VectorStore, error) {
	switch s.Backend {
	case domain.VectorBackendChroma:
		return chroma.New(s.Path, s.Collection)
	case domain.VectorBackendPinecone:
		return pinecone.New(ctx, pinecone.Config{
			APIKey:      s.APIKey,
			Environment: s.Environment,
			IndexName:   s.IndexName,
			Namespace:   s.Namespace,
			Dimensions:  dims,
		})
	case domain.VectorBackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("%w: vector store %q, use chroma, pinecone or memory",
			domain.ErrUnsupportedType, s.Backend)
	}
}
