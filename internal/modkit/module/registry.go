package module

import "sync"

// Registry records the modules one process mounted, in mount order. A
// module added twice under the same name replaces the earlier entry.
type Registry struct {
	mu   sync.RWMutex
	mods []Module
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry { return &Registry{} }

// Add records m
func (r *Registry) Add(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, have := range r.mods {
		if have.Name() == m.Name() {
			r.mods[i] = m
			return
		}
	}
	r.mods = append(r.mods, m)
}

// Get returns the module registered under name
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.mods {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}

// Names lists registered module names in mount order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.mods))
	for i, m := range r.mods {
		out[i] = m.Name()
	}
	return out
}

// Lookup finds T on the ports of the module registered under name
func Lookup[T any](r *Registry, name string) (T, bool) {
	m, ok := r.Get(name)
	if !ok {
		var zero T
		return zero, false
	}
	return PortsOf[T](m)
}
