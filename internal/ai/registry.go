package ai

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a provider bound to one model. Each generator gets its own
// instance so per-persona token caps stay independent.
type Factory func(model string) (Provider, error)

// Registry maps provider names (openrouter, ollama) to factories. Names are
// case-insensitive; lookup failures report what is registered.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalize(name)] = f
}

// New builds a provider for the named backend.
func (r *Registry) New(name, model string) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[normalize(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider %q (registered: %s)", name, strings.Join(r.Names(), ", "))
	}
	return f(model)
}

// Names lists the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
