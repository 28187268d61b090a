package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure SchedulerStore implements the interface.
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// SchedulerStore keeps the schedule and run history for one process.
type SchedulerStore struct {
	mu       sync.RWMutex
	schedule *domain.UpdateSchedule
	runs     []domain.UpdateRun // oldest first
}

// NewSchedulerStore creates an empty store.
func NewSchedulerStore() *SchedulerStore {
	return &SchedulerStore{}
}

// Schedule returns a copy of the saved schedule, or nil.
func (s *SchedulerStore) Schedule(_ context.Context) (*domain.UpdateSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.schedule == nil {
		return nil, nil
	}
	c := *s.schedule
	return &c, nil
}

// SaveSchedule replaces the schedule.
func (s *SchedulerStore) SaveSchedule(_ context.Context, schedule *domain.UpdateSchedule) error {
	if schedule == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *schedule
	s.schedule = &c
	return nil
}

// AppendRun records run and trims the history to keep entries.
func (s *SchedulerStore) AppendRun(_ context.Context, run *domain.UpdateRun, keep int) error {
	if run == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	if keep > 0 && len(s.runs) > keep {
		s.runs = append([]domain.UpdateRun(nil), s.runs[len(s.runs)-keep:]...)
	}
	return nil
}

// Runs returns up to limit runs, newest first.
func (s *SchedulerStore) Runs(_ context.Context, limit int) ([]domain.UpdateRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.runs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.UpdateRun, 0, n)
	for i := len(s.runs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.runs[i])
	}
	return out, nil
}
