package domain

import "time"

// SourceFile is a file as listed by a connector, before its content is fetched.
type SourceFile struct {
	// ID is stable across runs: the Drive file ID, or the slash-separated
	// path relative to the documents folder.
	ID string

	// Name is the display name of the file.
	Name string

	// MIMEType is the content type reported by the source.
	MIMEType string

	// ModifiedTime is when the source last changed the file.
	ModifiedTime time.Time

	// Size is the file size in bytes, when known.
	Size int64

	// URI is the original location (file path, Drive URL, etc).
	URI string
}

// RawDocument represents opaque bytes fetched by a connector.
// It is the connector's output before normalisation.
type RawDocument struct {
	// SourceID identifies the connector instance that produced this document.
	SourceID string

	// FileID links to the SourceFile this content belongs to.
	FileID string

	// URI is the original location (file path, URL, etc).
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains connector-specific key-value pairs.
	Metadata map[string]any
}

// ChangeType represents the type of change observed at a source.
type ChangeType int

const (
	// ChangeCreated indicates a new file.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified file.
	ChangeUpdated

	// ChangeDeleted indicates a removed file.
	ChangeDeleted
)

// String returns a lowercase label for the change type.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// SourceEvent is emitted by a connector's watcher when the source changes.
// Events are hints: the updater always re-lists the source.
type SourceEvent struct {
	// Type is the kind of change.
	Type ChangeType

	// FileID identifies the affected file, when the source knows it.
	FileID string

	// At is when the change was observed.
	At time.Time
}
