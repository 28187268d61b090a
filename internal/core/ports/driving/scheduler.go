package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Scheduler runs update passes periodically and on demand.
type Scheduler interface {
	// Start runs an update, then keeps updating until ctx is cancelled or
	// Stop is called.
	Start(ctx context.Context) error

	// Stop ends a running Start.
	Stop() error

	// Trigger queues an update. It returns false if one is already queued.
	Trigger(reason string) bool

	// LastRun returns the most recent run of this process, or nil.
	LastRun() *domain.UpdateRun

	// History returns up to limit stored runs, newest first.
	History(ctx context.Context, limit int) ([]domain.UpdateRun, error)
}
