// Package jsonfile provides a processed-file ledger kept in a single JSON
// file, compatible with the processed_files.json format:
//
//	{"<file id>": {"modified": ..., "vectors": [...], "name": "..."}}
//
// "modified" is written as an RFC 3339 string. Float epoch seconds are
// accepted on read.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure LedgerStore implements the interface.
var _ driven.LedgerStore = (*LedgerStore)(nil)

// LedgerStore keeps the ledger in memory and rewrites the file on every
// change via a temp file and rename.
type LedgerStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]domain.ProcessedFile
}

type entry struct {
	Modified    json.RawMessage `json:"modified"`
	Vectors     []string        `json:"vectors"`
	Name        string          `json:"name"`
	ProcessedAt string          `json:"processed_at,omitempty"`
}

// NewLedgerStore loads path, which need not exist yet.
func NewLedgerStore(path string) (*LedgerStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: ledger path", domain.ErrConfigMissing)
	}
	s := &LedgerStore{path: path, entries: make(map[string]domain.ProcessedFile)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the ledger file path.
func (s *LedgerStore) Path() string {
	return s.path
}

func (s *LedgerStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var raw map[string]entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parsing ledger %s: %v", domain.ErrInvalidInput, s.path, err)
	}

	for id, e := range raw {
		modified, err := parseModified(e.Modified)
		if err != nil {
			return fmt.Errorf("%w: ledger entry %s: %v", domain.ErrInvalidInput, id, err)
		}
		pf := domain.ProcessedFile{
			ID:        id,
			Name:      e.Name,
			Modified:  modified,
			VectorIDs: e.Vectors,
		}
		if pf.VectorIDs == nil {
			pf.VectorIDs = []string{}
		}
		if e.ProcessedAt != "" {
			pf.ProcessedAt, _ = time.Parse(time.RFC3339Nano, e.ProcessedAt)
		}
		s.entries[id] = pf
	}
	return nil
}

// parseModified accepts an RFC 3339 string or float epoch seconds.
func parseModified(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return time.Parse(time.RFC3339Nano, str)
	}

	var secs float64
	if err := json.Unmarshal(raw, &secs); err != nil {
		return time.Time{}, fmt.Errorf("modified is neither a timestamp nor epoch seconds")
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
}

// save writes the ledger atomically. Caller must hold the lock.
func (s *LedgerStore) save() error {
	raw := make(map[string]entry, len(s.entries))
	for id, pf := range s.entries {
		modified, _ := json.Marshal(pf.Modified.UTC().Format(time.RFC3339Nano))
		e := entry{Modified: modified, Vectors: pf.VectorIDs, Name: pf.Name}
		if e.Vectors == nil {
			e.Vectors = []string{}
		}
		if !pf.ProcessedAt.IsZero() {
			e.ProcessedAt = pf.ProcessedAt.UTC().Format(time.RFC3339Nano)
		}
		raw[id] = e
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".processed-*.json")
	if err != nil {
		return fmt.Errorf("creating temp ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}

// List returns a copy of every entry keyed by file ID.
func (s *LedgerStore) List(_ context.Context) (map[string]domain.ProcessedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.ProcessedFile, len(s.entries))
	for id, pf := range s.entries {
		pf.VectorIDs = append([]string{}, pf.VectorIDs...)
		out[id] = pf
	}
	return out, nil
}

// Get returns the entry for a file, or domain.ErrNotFound.
func (s *LedgerStore) Get(_ context.Context, id string) (*domain.ProcessedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pf, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	pf.VectorIDs = append([]string{}, pf.VectorIDs...)
	return &pf, nil
}

// Put creates or replaces the entry for file.ID and persists the ledger.
func (s *LedgerStore) Put(_ context.Context, file domain.ProcessedFile) error {
	if file.ID == "" {
		return fmt.Errorf("%w: ledger entry without id", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[file.ID]
	file.VectorIDs = append([]string{}, file.VectorIDs...)
	s.entries[file.ID] = file
	if err := s.save(); err != nil {
		if had {
			s.entries[file.ID] = prev
		} else {
			delete(s.entries, file.ID)
		}
		return err
	}
	return nil
}

// Delete removes an entry and persists the ledger.
func (s *LedgerStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.entries[id]
	if !ok {
		return nil
	}
	delete(s.entries, id)
	if err := s.save(); err != nil {
		s.entries[id] = prev
		return err
	}
	return nil
}

// Clear removes every entry and the ledger file.
func (s *LedgerStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]domain.ProcessedFile)
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing ledger: %w", err)
	}
	return nil
}

// Close is a no-op; every change is already on disk.
func (s *LedgerStore) Close() error {
	return nil
}
