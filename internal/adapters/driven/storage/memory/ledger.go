package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure LedgerStore implements the interface.
var _ driven.LedgerStore = (*LedgerStore)(nil)

// LedgerStore is an in-memory implementation of driven.LedgerStore.
type LedgerStore struct {
	mu      sync.RWMutex
	entries map[string]domain.ProcessedFile
}

// NewLedgerStore creates a new in-memory ledger.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		entries: make(map[string]domain.ProcessedFile),
	}
}

// List returns a copy of every entry keyed by file ID.
func (s *LedgerStore) List(_ context.Context) (map[string]domain.ProcessedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.ProcessedFile, len(s.entries))
	for id, e := range s.entries {
		out[id] = clone(e)
	}
	return out, nil
}

// Get retrieves the entry for a file.
func (s *LedgerStore) Get(_ context.Context, id string) (*domain.ProcessedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := clone(e)
	return &c, nil
}

// Put stores or replaces the entry for file.ID.
func (s *LedgerStore) Put(_ context.Context, file domain.ProcessedFile) error {
	if file.ID == "" {
		return fmt.Errorf("%w: ledger entry without id", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[file.ID] = clone(file)
	return nil
}

// Delete removes an entry.
func (s *LedgerStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Clear removes every entry.
func (s *LedgerStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]domain.ProcessedFile)
	return nil
}

// Close is a no-op for in-memory storage.
func (s *LedgerStore) Close() error {
	return nil
}

func clone(e domain.ProcessedFile) domain.ProcessedFile {
	e.VectorIDs = append([]string{}, e.VectorIDs...)
	return e
}
