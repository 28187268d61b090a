package domain

import "time"

// ProcessedFile records a file that has been embedded and upserted.
// The ledger is what lets an update pass detect new, modified and
// deleted files without asking the vector store.
type ProcessedFile struct {
	// ID is the SourceFile ID.
	ID string `json:"-"`

	// Name is the file's display name at the time it was processed.
	Name string `json:"name"`

	// Modified is the source modification time that was processed.
	Modified time.Time `json:"modified"`

	// VectorIDs are the IDs upserted for this file.
	VectorIDs []string `json:"vectors"`

	// ProcessedAt is when the file was last processed.
	ProcessedAt time.Time `json:"processed_at,omitempty"`
}

// NeedsUpdate reports whether file is new relative to this entry.
// A nil entry always needs an update.
func (p *ProcessedFile) NeedsUpdate(file SourceFile) bool {
	if p == nil {
		return true
	}
	return file.ModifiedTime.After(p.Modified)
}
