package provider

import (
	"fmt"
	"sync"

	"github.com/yapay-ai/spendwatch/pkg/model"
)

// Registry manages adapter instances by provider type. New providers are
// added by registering an adapter, not by extending a central switch.
type Registry struct {
	mu       sync.RWMutex
	adapters map[model.ProviderType]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[model.ProviderType]Adapter),
	}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.adapters[name] = a
	return nil
}

// Get returns the adapter for a provider type.
func (r *Registry) Get(name model.ProviderType) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not found", name)
	}
	return a, nil
}

// List returns all registered provider types.
func (r *Registry) List() []model.ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]model.ProviderType, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
