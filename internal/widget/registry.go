package widget

import (
	"fmt"
	"sort"
	"sync"

	"github.com/runoshun/label-crew/internal/domain"
)

// Registry maps widget names to constructors.
type Registry struct {
	constructors map[string]domain.WidgetConstructor
	mu           sync.RWMutex
}

var _ domain.WidgetRegistry = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]domain.WidgetConstructor)}
}

// Register adds or replaces the constructor for name.
func (r *Registry) Register(name string, construct domain.WidgetConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = construct
}

// Resolve returns the constructor registered under name.
func (r *Registry) Resolve(name string) (domain.WidgetConstructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	construct, ok := r.constructors[name]
	if !ok || construct == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrWidgetUnavailable, name)
	}
	return construct, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
