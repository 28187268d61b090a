package domain

import "time"

// DefaultUpdateInterval is how often the source is re-checked.
const DefaultUpdateInterval = time.Hour

// Run triggers recorded on UpdateRun.Trigger.
const (
	TriggerStartup  = "startup"
	TriggerInterval = "interval"
	TriggerPull     = "pull"
	TriggerWatch    = "watch"
)

// UpdateSchedule is the persisted state of the periodic update.
type UpdateSchedule struct {
	Interval    time.Duration
	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time

	// LastError is empty after a clean run.
	LastError string
}

// Record advances the schedule past a finished run.
func (s *UpdateSchedule) Record(run UpdateRun) {
	s.LastRun = run.StartedAt
	s.NextRun = run.EndedAt.Add(s.Interval)
	if run.Succeeded() {
		s.LastSuccess = run.EndedAt
		s.LastError = ""
		return
	}
	s.LastError = run.Error
}

// UpdateRun is one scheduler-driven update pass.
type UpdateRun struct {
	// RunID links the run to its UpdateReport.
	RunID string

	// Trigger is one of the Trigger* constants.
	Trigger string

	StartedAt time.Time
	EndedAt   time.Time

	// Error is set when the pass failed or any file failed.
	Error string

	Added    int
	Modified int
	Deleted  int
	Chunks   int
}

// NewUpdateRun summarises report as a run started by trigger.
func NewUpdateRun(trigger string, report *UpdateReport, started, ended time.Time) UpdateRun {
	run := UpdateRun{Trigger: trigger, StartedAt: started, EndedAt: ended}
	if report != nil {
		run.RunID = report.RunID
		run.Added = report.Added
		run.Modified = report.Modified
		run.Deleted = report.Deleted
		run.Chunks = report.ChunksUpserted
	}
	return run
}

// Succeeded reports whether the run finished without errors.
func (r UpdateRun) Succeeded() bool {
	return r.Error == ""
}

// Changed is the number of files added, modified or deleted.
func (r UpdateRun) Changed() int {
	return r.Added + r.Modified + r.Deleted
}

// Duration returns how long the run took.
func (r UpdateRun) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}
