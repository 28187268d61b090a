package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Normaliser extracts plain text from one family of file formats.
type Normaliser interface {
	// SupportedMIMETypes lists the base MIME types handled, without parameters.
	SupportedMIMETypes() []string

	// Priority breaks ties when two normalisers claim a MIME type; higher wins.
	// Generic text fallbacks use single digits.
	Priority() int

	// Normalise returns a document with Content and Title set. The
	// document ID is the source file ID.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}

// NormaliserRegistry dispatches a raw document to the normaliser for its
// MIME type. It returns domain.ErrUnsupportedType when none matches.
type NormaliserRegistry interface {
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
	SupportedMIMETypes() []string
}
