package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/postprocessors/chunker"
	"github.com/custodia-labs/docrag/internal/postprocessors/whitespace"
)

// Built-in stage names.
const (
	Chunker    = "chunker"
	Whitespace = "whitespace"
)

// DefaultRegistry returns a registry holding the built-in stages.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Chunker, func(s domain.ChunkingSettings) (driven.PostProcessor, error) {
		return chunker.New(chunker.WithChunkSize(s.Size), chunker.WithOverlap(s.Overlap)), nil
	})
	r.Register(Whitespace, func(domain.ChunkingSettings) (driven.PostProcessor, error) {
		return whitespace.New(), nil
	})
	return r
}

// BuildPipeline assembles the stages named in settings.Processors, or just
// the chunker when none are named.
func BuildPipeline(r *Registry, settings domain.ChunkingSettings) (*Pipeline, error) {
	names := settings.Processors
	if len(names) == 0 {
		names = []string{Chunker}
	}
	if names[0] != Chunker {
		return nil, fmt.Errorf("%w: chunking.processors must start with %s", domain.ErrInvalidInput, Chunker)
	}

	stages := make([]driven.PostProcessor, 0, len(names))
	for _, name := range names {
		stage, err := r.Build(name, settings)
		if err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
		stages = append(stages, stage)
	}
	return NewPipeline(stages...), nil
}
