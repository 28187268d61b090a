// Package chroma provides an embedded vector store persisted to a local
// directory, backed by chromem-go.
package chroma

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// errNoEmbedder is returned if the collection is ever asked to embed text.
// Every record arrives with its vector already computed.
var errNoEmbedder = errors.New("chroma: collection has no embedding function")

// Store is a chromem-go collection implementing driven.VectorStore.
// Every vector in the collection has the same length; dims caches it once
// known and is cleared when the collection empties.
type Store struct {
	mu     sync.Mutex
	db     *chromem.DB
	col    *chromem.Collection
	path   string
	dims   int
	closed bool
}

// New opens or creates the collection under path. An empty path keeps
// the collection in memory.
func New(path, collection string) (*Store, error) {
	if collection == "" {
		collection = domain.DefaultCollection
	}

	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", domain.ErrVectorStoreUnavailable, path, err)
		}
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("%w: opening %s: %v", domain.ErrVectorStoreUnavailable, path, err)
		}
	}

	col, err := db.GetOrCreateCollection(collection, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("%w: collection %s: %v", domain.ErrVectorStoreUnavailable, collection, err)
	}

	logger.Debug("chroma: opened collection %q at %q (%d records)", collection, path, col.Count())
	return &Store{db: db, col: col, path: path}, nil
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedder
}

// Upsert inserts or replaces records by ID.
func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.check(); err != nil {
		return err
	}

	want := len(records[0].Values)
	if want == 0 {
		return fmt.Errorf("%w: record %s has no values", domain.ErrInvalidInput, records[0].ID)
	}
	if err := s.checkDims(ctx, records[0].Values); err != nil {
		return err
	}

	docs := make([]chromem.Document, 0, len(records))
	for _, r := range records {
		if len(r.Values) != want {
			return fmt.Errorf("%w: record %s has %d values, batch has %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Values), want)
		}
		content := r.Content
		if content == "" {
			content, _ = r.Metadata[domain.MetaText].(string)
		}
		docs = append(docs, chromem.Document{
			ID:        r.ID,
			Metadata:  stringMetadata(r.Metadata),
			Embedding: r.Values,
			Content:   content,
		})
	}

	if err := s.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: upsert: %v", domain.ErrVectorStoreUnavailable, err)
	}

	s.mu.Lock()
	s.dims = want
	s.mu.Unlock()
	return nil
}

// Query returns up to topK records ordered by similarity, highest first.
// topK is clamped to the collection size.
func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if n := s.col.Count(); topK > n {
		topK = n
	}
	if topK <= 0 {
		return nil, nil
	}
	if err := s.checkDims(ctx, vector); err != nil {
		return nil, err
	}

	results, err := s.col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrVectorStoreUnavailable, err)
	}

	matches := make([]domain.Match, 0, len(results))
	for _, r := range results {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		m := domain.MatchFromMetadata(r.ID, r.Similarity, meta)
		if r.Content != "" {
			m.Text = r.Content
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// DeleteByIDs removes records by ID. Unknown IDs are ignored.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.check(); err != nil {
		return err
	}
	if err := s.col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("%w: delete: %v", domain.ErrVectorStoreUnavailable, err)
	}
	return nil
}

// DeleteByFile removes every record whose file_id metadata equals fileID.
func (s *Store) DeleteByFile(ctx context.Context, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("%w: empty file id", domain.ErrInvalidInput)
	}
	if err := s.check(); err != nil {
		return err
	}
	where := map[string]string{domain.MetaFileID: fileID}
	if err := s.col.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("%w: delete file %s: %v", domain.ErrVectorStoreUnavailable, fileID, err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(_ context.Context) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.col.Count(), nil
}

// Close marks the store closed. Persisted data is written on every change.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Path returns the persistence directory, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: store closed", domain.ErrVectorStoreUnavailable)
	}
	return nil
}

// checkDims reports ErrDimensionMismatch when vector cannot be compared
// with the stored ones. A collection opened from disk has its length
// learned from a one-result query, since chromem-go keeps no schema.
func (s *Store) checkDims(ctx context.Context, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.col.Count() == 0 {
		s.dims = 0
		return nil
	}
	if s.dims == 0 {
		results, err := s.col.QueryEmbedding(ctx, vector, 1, nil, nil)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			return fmt.Errorf("%w: vector of %d values does not fit the stored collection: %v",
				domain.ErrDimensionMismatch, len(vector), err)
		}
		if len(results) > 0 {
			s.dims = len(results[0].Embedding)
		}
	}
	if s.dims != 0 && len(vector) != s.dims {
		return fmt.Errorf("%w: vector has %d values, store holds %d",
			domain.ErrDimensionMismatch, len(vector), s.dims)
	}
	return nil
}

// stringMetadata flattens metadata values to strings, as chromem-go
// stores map[string]string.
func stringMetadata(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		switch val := v.(type) {
		case string:
			out[k] = val
		case int:
			out[k] = strconv.Itoa(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
