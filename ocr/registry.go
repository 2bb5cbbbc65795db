package ocr

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the engines a pipeline may use. Registration is
// write-once per name; looking an engine up never mutates state, so a
// populated Registry is safe to share between concurrent jobs.
//
// There is deliberately no package-level default registry. Each
// pipeline owns the registry it was built with, which keeps tests
// hermetic and lets two jobs run with different engine sets.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register adds an engine under its own Name. Registering a second
// engine under an existing name is an error; replacing an engine
// mid-run would make retry behavior undiagnosable.
func (r *Registry) Register(e Engine) error {
	if e == nil {
		return fmt.Errorf("ocr: register nil engine")
	}
	name := e.Name()
	if name == "" {
		return fmt.Errorf("ocr: engine has empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.engines[name]; dup {
		return fmt.Errorf("ocr: engine %q already registered", name)
	}
	r.engines[name] = e
	return nil
}

// Get returns the engine registered under name, or ErrEngineUnavailable
// when no such engine exists.
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("ocr: engine %q: %w", name, ErrEngineUnavailable)
	}
	return e, nil
}

// Names returns the registered engine names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for n := range r.engines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FirstAvailable returns the first registered engine of the given
// category that reports itself available, scanning names in sorted
// order for determinism. It returns ErrEngineUnavailable when the
// category has no usable engine.
func (r *Registry) FirstAvailable(cat Category) (Engine, error) {
	for _, name := range r.Names() {
		if CategoryOf(name) != cat {
			continue
		}
		e, err := r.Get(name)
		if err != nil {
			continue
		}
		if e.Available() {
			return e, nil
		}
	}
	return nil, fmt.Errorf("ocr: no available %s engine: %w", cat, ErrEngineUnavailable)
}
