package tool

import "sync"

// Registry is a name → Registration map. Re-registering a name replaces
// the earlier registration; Definitions() preserves first-insertion
// order for names that were never replaced, and keeps a replaced name at
// its original position (only the Registration payload changes).
type Registry struct {
	mu    sync.RWMutex
	order []string
	byName map[string]Registration
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Registration)}
}

func (r *Registry) Register(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[reg.Definition.Name]; !exists {
		r.order = append(r.order, reg.Definition.Name)
	}
	r.byName[reg.Definition.Name] = reg
}

func (r *Registry) Get(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byName[name]
	return reg, ok
}

// Definitions returns the model-visible tool list in stable
// (first-registration) insertion order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.byName[name].Definition)
	}
	return defs
}

// Names returns registered tool names, each at most once, in insertion
// order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
