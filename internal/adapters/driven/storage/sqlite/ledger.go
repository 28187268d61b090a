package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// ledgerStore implements driven.LedgerStore over the processed_files
// and processed_vectors tables.
type ledgerStore struct {
	store *Store
}

var _ driven.LedgerStore = (*ledgerStore)(nil)

// List returns every entry keyed by file ID.
func (l *ledgerStore) List(ctx context.Context) (map[string]domain.ProcessedFile, error) {
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT f.id, f.name, f.modified, f.processed_at, v.vector_id
		FROM processed_files f
		LEFT JOIN processed_vectors v ON v.file_id = f.id
		ORDER BY f.id, v.position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]domain.ProcessedFile)
	for rows.Next() {
		var id, name, modified string
		var processedAt, vectorID sql.NullString
		if err := rows.Scan(&id, &name, &modified, &processedAt, &vectorID); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}

		entry, ok := entries[id]
		if !ok {
			entry = domain.ProcessedFile{
				ID:          id,
				Name:        name,
				Modified:    parseTime(modified),
				ProcessedAt: parseNullableTime(processedAt),
				VectorIDs:   []string{},
			}
		}
		if vectorID.Valid {
			entry.VectorIDs = append(entry.VectorIDs, vectorID.String)
		}
		entries[id] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger: %w", err)
	}
	return entries, nil
}

// Get returns the entry for a file, or domain.ErrNotFound.
func (l *ledgerStore) Get(ctx context.Context, id string) (*domain.ProcessedFile, error) {
	row := l.store.db.QueryRowContext(ctx, `
		SELECT name, modified, processed_at FROM processed_files WHERE id = ?
	`, id)

	entry := domain.ProcessedFile{ID: id, VectorIDs: []string{}}
	var modified string
	var processedAt sql.NullString
	if err := row.Scan(&entry.Name, &modified, &processedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning ledger entry: %w", err)
	}
	entry.Modified = parseTime(modified)
	entry.ProcessedAt = parseNullableTime(processedAt)

	rows, err := l.store.db.QueryContext(ctx, `
		SELECT vector_id FROM processed_vectors WHERE file_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying vector ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var vid string
		if err := rows.Scan(&vid); err != nil {
			return nil, fmt.Errorf("scanning vector id: %w", err)
		}
		entry.VectorIDs = append(entry.VectorIDs, vid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector ids: %w", err)
	}
	return &entry, nil
}

// Put creates or replaces the entry for file.ID in one transaction.
func (l *ledgerStore) Put(ctx context.Context, file domain.ProcessedFile) error {
	if file.ID == "" {
		return fmt.Errorf("%w: ledger entry without id", domain.ErrInvalidInput)
	}

	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO processed_files (id, name, modified, processed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			modified = excluded.modified,
			processed_at = excluded.processed_at
	`, file.ID, file.Name, file.Modified.UTC().Format(time.RFC3339Nano), formatNullableTime(file.ProcessedAt))
	if err != nil {
		return fmt.Errorf("saving ledger entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM processed_vectors WHERE file_id = ?", file.ID); err != nil {
		return fmt.Errorf("clearing vector ids: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO processed_vectors (file_id, position, vector_id) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing vector insert: %w", err)
	}
	defer stmt.Close()

	for i, vid := range file.VectorIDs {
		if _, err := stmt.ExecContext(ctx, file.ID, i, vid); err != nil {
			return fmt.Errorf("saving vector id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ledger entry: %w", err)
	}
	return nil
}

// Delete removes an entry and its vector IDs.
func (l *ledgerStore) Delete(ctx context.Context, id string) error {
	if _, err := l.store.db.ExecContext(ctx, "DELETE FROM processed_files WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting ledger entry: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (l *ledgerStore) Clear(ctx context.Context) error {
	if _, err := l.store.db.ExecContext(ctx, "DELETE FROM processed_files"); err != nil {
		return fmt.Errorf("clearing ledger: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (l *ledgerStore) Close() error {
	return l.store.Close()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
