// Package catalog maps relation names to their ordered column schema:
// the single source of truth the rest of the pipeline consults when it
// needs to know a relation's shape, following the registration/lookup
// idiom of a storage layer generalized away from a fixed EAVT quad
// shape to arbitrary relation arities.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lumendb/datalogx/datalog"
)

// Catalog is a mapping from relation name to TupleSchema. It is mutated
// only during program setup and read-only during execution; the mutex
// here guards the setup/registration path, not hot-path reads.
type Catalog struct {
	mu    sync.RWMutex
	byRel map[string]datalog.TupleSchema
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{byRel: make(map[string]datalog.TupleSchema)}
}

// Register adds or replaces a relation's schema.
func (c *Catalog) Register(name string, schema datalog.TupleSchema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byRel[name] = schema
}

// Unregister removes a relation from the catalog.
func (c *Catalog) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byRel, name)
}

// Lookup returns the schema for a relation, or ok=false if unregistered.
func (c *Catalog) Lookup(name string) (datalog.TupleSchema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byRel[name]
	return s, ok
}

// MustLookup is Lookup but returns a descriptive error instead of ok=false.
func (c *Catalog) MustLookup(name string) (datalog.TupleSchema, error) {
	s, ok := c.Lookup(name)
	if !ok {
		return datalog.TupleSchema{}, fmt.Errorf("catalog: relation %q is not registered", name)
	}
	return s, nil
}

// Relations returns the registered relation names in sorted order, for
// deterministic iteration (snapshotting, tracing).
func (c *Catalog) Relations() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.byRel))
	for name := range c.byRel {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// InferSchema derives a TupleSchema from a sample tuple, synthesizing
// field names col0, col1, ... Used when a relation's shape is not known
// ahead of fact insertion (e.g. ad hoc session facts).
func InferSchema(sample datalog.Tuple) datalog.TupleSchema {
	fields := make([]datalog.Field, len(sample))
	for i, v := range sample {
		fields[i] = datalog.Field{Name: colName(i), Type: datalog.DataTypeOf(v)}
	}
	return datalog.NewSchema(fields...)
}

func colName(i int) string {
	return fmt.Sprintf("col%d", i)
}

// JoinKeys infers the parallel key-index lists for an equi-join between
// two schemas by locating shared field names. The i-th entry of the
// returned left/right slices names the same logical variable.
func JoinKeys(left, right datalog.TupleSchema) (leftKeys, rightKeys []int, names []string) {
	leftPos := make(map[string]int, len(left.Fields))
	for i, f := range left.Fields {
		leftPos[f.Name] = i
	}
	for j, f := range right.Fields {
		if i, ok := leftPos[f.Name]; ok {
			leftKeys = append(leftKeys, i)
			rightKeys = append(rightKeys, j)
			names = append(names, f.Name)
		}
	}
	return
}

// SharedNames returns the field names shared between two schemas as a
// set, used for key inference during IR building.
func SharedNames(left, right datalog.TupleSchema) map[string]bool {
	leftSet := make(map[string]bool, len(left.Fields))
	for _, f := range left.Fields {
		leftSet[f.Name] = true
	}
	shared := make(map[string]bool)
	for _, f := range right.Fields {
		if leftSet[f.Name] {
			shared[f.Name] = true
		}
	}
	return shared
}
