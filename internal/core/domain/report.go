package domain

import "time"

// UpdateReport summarises one update pass.
type UpdateReport struct {
	// RunID uniquely identifies the pass.
	RunID string `json:"run_id"`

	// StartedAt is when the pass began.
	StartedAt time.Time `json:"started_at"`

	// Duration is how long the pass took.
	Duration time.Duration `json:"duration"`

	// Listed is the number of files the source returned.
	Listed int `json:"listed"`

	// Added counts files processed for the first time.
	Added int `json:"added"`

	// Modified counts files reprocessed because they changed.
	Modified int `json:"modified"`

	// Deleted counts files whose vectors were removed.
	Deleted int `json:"deleted"`

	// Skipped counts unchanged files.
	Skipped int `json:"skipped"`

	// ChunksUpserted counts vectors written.
	ChunksUpserted int `json:"chunks_upserted"`

	// Errors holds per-file failures. The pass continues past them.
	Errors []string `json:"errors,omitempty"`

	// Running is true while the pass is in progress.
	Running bool `json:"running"`
}

// Changed reports whether the pass touched the vector store.
func (r *UpdateReport) Changed() bool {
	return r.Added+r.Modified+r.Deleted > 0
}

// Failed reports whether any file failed.
func (r *UpdateReport) Failed() bool {
	return len(r.Errors) > 0
}
