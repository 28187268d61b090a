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

// schedulerStore implements driven.SchedulerStore on the update_schedule
// and update_runs tables.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

func (s *schedulerStore) Schedule(ctx context.Context) (*domain.UpdateSchedule, error) {
	var (
		schedule                                    domain.UpdateSchedule
		seconds                                     int64
		lastRun, nextRun, lastSuccess, lastErrorMsg sql.NullString
	)
	err := s.store.db.QueryRowContext(ctx, `
		SELECT interval_seconds, last_run, next_run, last_success, last_error
		FROM update_schedule WHERE id = 1
	`).Scan(&seconds, &lastRun, &nextRun, &lastSuccess, &lastErrorMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading schedule: %w", err)
	}

	schedule.Interval = time.Duration(seconds) * time.Second
	schedule.LastRun = parseNullableTime(lastRun)
	schedule.NextRun = parseNullableTime(nextRun)
	schedule.LastSuccess = parseNullableTime(lastSuccess)
	schedule.LastError = lastErrorMsg.String
	return &schedule, nil
}

func (s *schedulerStore) SaveSchedule(ctx context.Context, schedule *domain.UpdateSchedule) error {
	if schedule == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO update_schedule (id, interval_seconds, last_run, next_run, last_success, last_error)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			interval_seconds = excluded.interval_seconds,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_success = excluded.last_success,
			last_error = excluded.last_error
	`, int64(schedule.Interval/time.Second),
		formatNullableTime(schedule.LastRun), formatNullableTime(schedule.NextRun),
		formatNullableTime(schedule.LastSuccess), nullString(schedule.LastError))
	if err != nil {
		return fmt.Errorf("saving schedule: %w", err)
	}
	return nil
}

func (s *schedulerStore) AppendRun(ctx context.Context, run *domain.UpdateRun, keep int) error {
	if run == nil {
		return domain.ErrInvalidInput
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO update_runs (run_id, trigger_source, started_at, ended_at, error, added, modified, deleted, chunks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, nullString(run.RunID), run.Trigger,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.EndedAt.UTC().Format(time.RFC3339Nano),
		nullString(run.Error), run.Added, run.Modified, run.Deleted, run.Chunks)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	if keep > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM update_runs
			WHERE seq NOT IN (SELECT seq FROM update_runs ORDER BY seq DESC LIMIT ?)
		`, keep)
		if err != nil {
			return fmt.Errorf("trimming run history: %w", err)
		}
	}

	return tx.Commit()
}

func (s *schedulerStore) Runs(ctx context.Context, limit int) ([]domain.UpdateRun, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT run_id, trigger_source, started_at, ended_at, error, added, modified, deleted, chunks
		FROM update_runs
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.UpdateRun
	for rows.Next() {
		var (
			run              domain.UpdateRun
			runID, errMsg    sql.NullString
			started, stopped string
		)
		if err := rows.Scan(&runID, &run.Trigger, &started, &stopped, &errMsg,
			&run.Added, &run.Modified, &run.Deleted, &run.Chunks); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.RunID = runID.String
		run.Error = errMsg.String
		run.StartedAt = parseTime(started)
		run.EndedAt = parseTime(stopped)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// formatNullableTime stores the zero time as NULL.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	return parseTime(s.String)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
