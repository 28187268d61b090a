// Package textdoc holds helpers shared by the normalisers.
package textdoc

import (
	"path"
	"strings"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// New builds a document from raw with extracted title and content.
// The document ID is the file ID, so chunk and vector IDs derive from it.
func New(raw *domain.RawDocument, title, content, format string) *domain.Document {
	meta := make(map[string]any, len(raw.Metadata)+2)
	for k, v := range raw.Metadata {
		meta[k] = v
	}
	meta["mime_type"] = raw.MIMEType
	if format != "" {
		meta["format"] = format
	}

	id := raw.FileID
	if id == "" {
		id = raw.URI
	}

	return &domain.Document{
		ID:          id,
		FileID:      raw.FileID,
		URI:         raw.URI,
		Title:       title,
		Content:     content,
		Metadata:    meta,
		ExtractedAt: time.Now(),
	}
}

// Title returns the title a connector supplied in metadata, or one
// derived from the URI's file name.
func Title(raw *domain.RawDocument) string {
	if t, ok := raw.Metadata["title"].(string); ok && t != "" {
		return t
	}
	return TitleFromURI(raw.URI)
}

// TitleFromURI turns "leave_policy-2024.txt" into "leave policy 2024".
func TitleFromURI(uri string) string {
	name := path.Base(strings.ReplaceAll(uri, "\\", "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
