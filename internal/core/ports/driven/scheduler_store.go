package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// SchedulerStore keeps the update schedule and a bounded run history so
// `watch` can resume after a restart.
type SchedulerStore interface {
	// Schedule returns the saved schedule, or nil if none was saved.
	Schedule(ctx context.Context) (*domain.UpdateSchedule, error)

	// SaveSchedule replaces the saved schedule.
	SaveSchedule(ctx context.Context, schedule *domain.UpdateSchedule) error

	// AppendRun records a finished run, then drops all but the newest
	// keep runs. keep <= 0 keeps everything.
	AppendRun(ctx context.Context, run *domain.UpdateRun, keep int) error

	// Runs returns up to limit runs, newest first. limit <= 0 returns all.
	Runs(ctx context.Context, limit int) ([]domain.UpdateRun, error)
}
