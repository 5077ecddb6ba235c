// Package scalar implements the scalar builtin function libraries
// (distance, quantization, temporal, math, string functions): the IR
// Builder's FunctionCall translation resolves names against a
// Registry, generalized from a builtin-dispatch idiom seen in
// function_registry.go and grounded on the vector-store example's
// distance/quantization config shapes
// (other_examples/..._liliang-cn-sqvect__pkg-core-embedding.go.go).
package scalar

import (
	"fmt"
	"sync"

	"github.com/lumendb/datalogx/datalog/ir"
)

// Registry is a name -> builtin function table. The zero Registry is
// usable; use NewRegistry for one pre-populated with the standard
// library of builtins.
type Registry struct {
	mu    sync.RWMutex
	byName map[string]ir.BuiltinFunction
}

func NewRegistryEmpty() *Registry {
	return &Registry{byName: make(map[string]ir.BuiltinFunction)}
}

// NewRegistry returns a Registry pre-populated with every builtin this
// package defines: distance, quantization, temporal, string and math
// functions.
func NewRegistry() *Registry {
	r := NewRegistryEmpty()
	for _, fn := range StandardLibrary() {
		r.Register(fn)
	}
	return r
}

func (r *Registry) Register(fn ir.BuiltinFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byName == nil {
		r.byName = make(map[string]ir.BuiltinFunction)
	}
	r.byName[fn.Name()] = fn
}

func (r *Registry) Lookup(name string) (ir.BuiltinFunction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.byName[name]
	return fn, ok
}

// MustLookup is Lookup but returns a descriptive error.
func (r *Registry) MustLookup(name string) (ir.BuiltinFunction, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("scalar: unknown builtin function %q", name)
	}
	return fn, nil
}

// StandardLibrary enumerates every builtin this package ships.
func StandardLibrary() []ir.BuiltinFunction {
	var fns []ir.BuiltinFunction
	fns = append(fns, distanceFunctions()...)
	fns = append(fns, quantizeFunctions()...)
	fns = append(fns, temporalFunctions()...)
	fns = append(fns, stringFunctions()...)
	fns = append(fns, mathFunctions()...)
	return fns
}
