// Package registry resolves likelihood engines by resource name.
package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/aretw0/epochlik/pkg/ports"
)

// Registry manages the available engine factories. Resource selection is
// explicit: a likelihood asks for a name, never for "the next" backend.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ports.EngineFactory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]ports.EngineFactory),
	}
}

// Register adds a factory.
// If a factory with the same name exists, it is overwritten.
func (r *Registry) Register(name string, factory ports.EngineFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Names lists the registered resources.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Factory returns an EngineFactory that resolves cfg.Resource at load time.
// Unknown resources fail with domain.ErrEngineUnavailable so that callers can
// fall back to another engine.
func (r *Registry) Factory() ports.EngineFactory {
	return r.Open
}

// Open loads the engine named by cfg.Resource.
func (r *Registry) Open(cfg domain.EngineConfig) (ports.LikelihoodEngine, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Resource]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: resource %q is not registered", domain.ErrEngineUnavailable, cfg.Resource)
	}
	return factory(cfg)
}
