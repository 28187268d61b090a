// Package whitespace provides a processor that tidies chunk text before embedding.
package whitespace

import (
	"context"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Processor collapses runs of whitespace inside each chunk to a single
// space and trims the ends. Chunks left empty are dropped and the
// remaining chunks are renumbered.
type Processor struct{}

// New creates a whitespace processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "whitespace"
}

// Process normalises the content of each chunk.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	out := chunks[:0]
	for _, c := range chunks {
		c.Content = strings.Join(strings.Fields(c.Content), " ")
		if c.Content == "" {
			continue
		}
		c.Position = len(out)
		c.ID = domain.VectorID(doc.ID, c.Position)
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
