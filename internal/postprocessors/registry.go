package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Factory creates a stage from the chunking settings.
type Factory func(domain.ChunkingSettings) (driven.PostProcessor, error)

// Registry maps stage names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory, replacing any with the same name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Build creates the named stage.
func (r *Registry) Build(name string, settings domain.ChunkingSettings) (driven.PostProcessor, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: processor %q (available: %v)", domain.ErrUnsupportedType, name, r.Names())
	}
	return f(settings)
}

// Names returns the registered stage names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
