// Package memory provides a process-local vector store.
// Records are lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is an in-memory implementation of driven.VectorStore.
// Query ranks every record by cosine similarity.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.VectorRecord
	dims    int
}

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string]domain.VectorRecord)}
}

// Upsert inserts or replaces records by ID.
// All vectors must share the dimension of the first one stored.
func (s *Store) Upsert(_ context.Context, records []domain.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record without id", domain.ErrInvalidInput)
		}
		if len(r.Values) == 0 {
			return fmt.Errorf("%w: record %s has no values", domain.ErrInvalidInput, r.ID)
		}
		if s.dims == 0 {
			s.dims = len(r.Values)
		}
		if len(r.Values) != s.dims {
			return fmt.Errorf("%w: record %s has %d values, store holds %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Values), s.dims)
		}
	}
	for _, r := range records {
		s.records[r.ID] = copyRecord(r)
	}
	return nil
}

// Query returns up to topK records ordered by similarity, highest first.
func (s *Store) Query(_ context.Context, vector []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dims != 0 && len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d values, store holds %d",
			domain.ErrDimensionMismatch, len(vector), s.dims)
	}

	matches := make([]domain.Match, 0, len(s.records))
	for _, r := range s.records {
		m := domain.MatchFromMetadata(r.ID, cosine(vector, r.Values), r.Metadata)
		if r.Content != "" {
			m.Text = r.Content
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})

	if topK > len(matches) {
		topK = len(matches)
	}
	return matches[:topK], nil
}

// DeleteByIDs removes records by ID. Unknown IDs are ignored.
func (s *Store) DeleteByIDs(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

// DeleteByFile removes every record belonging to fileID.
func (s *Store) DeleteByFile(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if v, ok := r.Metadata[domain.MetaFileID].(string); ok && v == fileID {
			delete(s.records, id)
		}
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op for in-memory storage.
func (s *Store) Close() error {
	return nil
}

func copyRecord(r domain.VectorRecord) domain.VectorRecord {
	values := make([]float32, len(r.Values))
	copy(values, r.Values)
	meta := make(map[string]any, len(r.Metadata))
	for k, v := range r.Metadata {
		meta[k] = v
	}
	r.Values = values
	r.Metadata = meta
	return r
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
