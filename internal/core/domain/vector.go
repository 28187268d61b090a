package domain

import (
	"fmt"
	"strconv"
)

// Metadata keys stored alongside every vector.
const (
	MetaFileID     = "file_id"
	MetaFileName   = "file_name"
	MetaChunkIndex = "chunk_index"
	MetaText       = "text"
)

// MetadataTextLimit caps the chunk text kept in vector metadata, in runes.
const MetadataTextLimit = 200

// VectorRecord is a single embedding upserted into a vector store.
type VectorRecord struct {
	// ID is "{file_id}_{chunk_index}".
	ID string

	// Values is the embedding.
	Values []float32

	// Content is the full chunk text. Stores that keep a document body
	// use it; others rely on the truncated Metadata text.
	Content string

	// Metadata holds file_id, file_name, chunk_index and text.
	Metadata map[string]any
}

// VectorID builds the vector ID for a chunk of a file.
func VectorID(fileID string, chunkIndex int) string {
	return fmt.Sprintf("%s_%d", fileID, chunkIndex)
}

// NewVectorRecord builds the record for one embedded chunk of a file.
func NewVectorRecord(file SourceFile, chunkIndex int, text string, values []float32) VectorRecord {
	return VectorRecord{
		ID:      VectorID(file.ID, chunkIndex),
		Values:  values,
		Content: text,
		Metadata: map[string]any{
			MetaFileID:     file.ID,
			MetaFileName:   file.Name,
			MetaChunkIndex: chunkIndex,
			MetaText:       Truncate(text, MetadataTextLimit),
		},
	}
}

// Truncate returns at most limit runes of s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// Match is a single vector store query result.
type Match struct {
	// ID is the vector ID.
	ID string

	// Score is the similarity to the query; higher is closer.
	Score float32

	// Text is the stored chunk text.
	Text string

	// FileID identifies the source file.
	FileID string

	// FileName is the source file's display name.
	FileName string

	// ChunkIndex is the chunk's position within the file.
	ChunkIndex int

	// Metadata is the raw metadata returned by the store.
	Metadata map[string]any
}

// MatchFromMetadata fills a Match from stored metadata, tolerating the
// numeric types different stores decode into.
func MatchFromMetadata(id string, score float32, meta map[string]any) Match {
	m := Match{ID: id, Score: score, Metadata: meta}
	if v, ok := meta[MetaText].(string); ok {
		m.Text = v
	}
	if v, ok := meta[MetaFileID].(string); ok {
		m.FileID = v
	}
	if v, ok := meta[MetaFileName].(string); ok {
		m.FileName = v
	}
	switch v := meta[MetaChunkIndex].(type) {
	case int:
		m.ChunkIndex = v
	case int64:
		m.ChunkIndex = int(v)
	case float64:
		m.ChunkIndex = int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			m.ChunkIndex = n
		}
	}
	return m
}
