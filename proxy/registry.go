package proxy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nvt2106/magicstore/schema"
)

// Registry caches descriptors by schema name. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	descs map[string]*Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{descs: make(map[string]*Descriptor)}
}

// Shared is a process-wide registry for callers that register the same
// schemas with several entity contexts.
var Shared = NewRegistry()

// Describe returns the cached descriptor of e, building it on first use.
// A schema name that was registered with a different shape is an error.
func (r *Registry) Describe(e *schema.Entity, all []*schema.Entity) (*Descriptor, error) {
	if e == nil {
		return nil, fmt.Errorf("proxy: describe nil schema")
	}
	r.mu.RLock()
	d, ok := r.descs[e.Name]
	r.mu.RUnlock()
	if ok && d.Schema == e {
		return d, nil
	}
	built, err := Describe(e, all)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.descs[e.Name]; ok {
		if !sameShape(d, built) {
			return nil, fmt.Errorf("proxy: schema %q is already registered with a different shape", e.Name)
		}
		return d, nil
	}
	r.descs[e.Name] = built
	return built, nil
}

// DescribeAll describes every schema of a set.
func (r *Registry) DescribeAll(all []*schema.Entity) ([]*Descriptor, error) {
	descs := make([]*Descriptor, 0, len(all))
	for _, e := range all {
		d, err := r.Describe(e, all)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[name]
	return d, ok
}

// Names returns the registered schema names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.descs))
	for name := range r.descs {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descs)
}
