// Package comparator matches a submission's actual output against the
// expected value of a test case.
package comparator

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Built-in comparator names.
const (
	Exact               = "exact"
	UnorderedCollection = "unordered-collection"
	Tolerance           = "tolerance"
)

// Options carries per-test comparison knobs.
type Options struct {
	// Tolerance is the maximum absolute difference accepted by numeric
	// comparators. Zero means the built-in default.
	Tolerance float64
}

// Func reports whether actual matches expected. Implementations must be
// pure functions of their arguments.
type Func func(actual, expected json.RawMessage, opts Options) (bool, error)

// Registry maps comparator names to functions. New comparators can be
// registered without touching the judge orchestrator.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns a registry preloaded with the built-in comparators.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.funcs[Exact] = compareExact
	r.funcs[UnorderedCollection] = compareUnordered
	r.funcs[Tolerance] = compareTolerance
	return r
}

// Register adds a comparator under a new name.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("comparator name is required")
	}
	if fn == nil {
		return fmt.Errorf("comparator func is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[name]; ok {
		return fmt.Errorf("comparator %q already registered", name)
	}
	r.funcs[name] = fn
	return nil
}

// Get resolves a comparator by name. The empty name resolves to exact.
func (r *Registry) Get(name string) (Func, error) {
	if name == "" {
		name = Exact
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("unknown comparator %q", name)
	}
	return fn, nil
}
