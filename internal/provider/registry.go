package provider

import (
	"fmt"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

// Registry resolves a domain.ProviderName to its Adapter, generalizing the
// teacher's llm.NewLLMProvider/GetProviderFromString factory
// (internal/llm/factory.go) from a single-provider-type switch to a map of
// registered adapters.
type Registry struct {
	adapters map[domain.ProviderName]Adapter
}

// NewRegistry builds a registry with both mocked vendors registered.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[domain.ProviderName]Adapter)}
	r.Register(NewVendorA())
	r.Register(NewVendorB())
	return r
}

// Register adds or replaces the adapter for its own Name().
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Resolve returns the adapter for name, or an error if unregistered.
func (r *Registry) Resolve(name domain.ProviderName) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("provider: no adapter registered for %q", name)
	}
	return a, nil
}
