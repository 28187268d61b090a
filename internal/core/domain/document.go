package domain

import "time"

// Document is the text extracted from one source file. ID equals the
// source file ID, so chunk and vector IDs derive from it.
type Document struct {
	ID     string
	FileID string
	URI    string
	Title  string

	// Content is the whole normalised text, before chunking.
	Content string

	// Metadata carries connector metadata plus mime_type and format.
	Metadata map[string]any

	ExtractedAt time.Time
}

// Format returns the normaliser that produced the document, such as
// "pdf" or "markdown", or "" when unknown.
func (d *Document) Format() string {
	f, _ := d.Metadata["format"].(string)
	return f
}

// Chunk is a window of document text that is embedded as one vector.
type Chunk struct {
	// ID is VectorID(DocumentID, Position).
	ID         string
	DocumentID string
	Content    string

	// Position is zero-based and contiguous after every post-processing stage.
	Position int

	Metadata map[string]any
}
