// Package engine orchestrates the catalog, IR builder, recursion
// analyzer, optimizer passes and dataflow generator (datalog/catalog,
// datalog/irbuilder, datalog/recursion, datalog/optimizer,
// datalog/dataflow) into the single entry point a caller programs
// against: a long-lived handle owning a catalog, a transaction-free
// input-buffer map standing in for a persistent fact store, and
// convenience methods wrapping parse+compile+execute.
package engine

import (
	"sync"
	"time"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/annotations"
	"github.com/lumendb/datalogx/datalog/ast"
	"github.com/lumendb/datalogx/datalog/catalog"
	"github.com/lumendb/datalogx/datalog/dataflow"
	"github.com/lumendb/datalogx/datalog/errors"
	"github.com/lumendb/datalogx/datalog/langparser"
	"github.com/lumendb/datalogx/datalog/scalar"
	"github.com/lumendb/datalogx/datalog/semiring"
)

// Options configures a new Engine. The zero value is usable: it yields
// a single-worker engine with the default query timeout.
type Options struct {
	NumWorkers        int
	QueryTimeout      time.Duration
	SessionTimeout    time.Duration
	AnnotationHandler annotations.Handler
}

// Engine is the top-level handle a caller registers relations, inserts
// facts, and runs programs against. One Engine corresponds to one
// knowledge-graph session.
type Engine struct {
	mu         sync.RWMutex
	catalog    *catalog.Catalog
	functions  *scalar.Registry
	inputs     map[string]*dataflow.Collection
	indexes    dataflow.MapIndexSet
	numWorkers int
	timeout    time.Duration
	cancel     *dataflow.CancelHandle
	annotate   *annotations.Collector
	ruleSource string
}

// New returns a ready-to-use Engine.
func New(opts Options) *Engine {
	timeout := opts.QueryTimeout
	if timeout == 0 {
		timeout = dataflow.DefaultQueryBudget
	}
	workers := opts.NumWorkers
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		catalog:    catalog.New(),
		functions:  scalar.NewRegistry(),
		inputs:     make(map[string]*dataflow.Collection),
		indexes:    make(dataflow.MapIndexSet),
		numWorkers: workers,
		timeout:    timeout,
		cancel:     dataflow.NewCancelHandle(),
		annotate:   annotations.NewCollector(opts.AnnotationHandler),
	}
}

// RegisterRelation declares relation's shape, making it a valid Insert/
// Delete/Relation target. The IR Builder looks up every positive body
// atom's relation in the catalog, so EDB (fact) relations and any IDB
// (rule-head) relation that a rule body scans (e.g. a recursive one)
// must be registered; a head relation no body scans takes its output
// shape from its rule body and needs no registration.
func (e *Engine) RegisterRelation(name string, schema datalog.TupleSchema) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.catalog.Register(name, schema)
	if _, ok := e.inputs[name]; !ok {
		e.inputs[name] = dataflow.NewCollection(semiring.Counting)
	}
}

// RegisterIndex makes idx available to HnswScan nodes under name.
func (e *Engine) RegisterIndex(name string, idx dataflow.VectorIndex) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indexes[name] = idx
}

// Insert adds tuples to relation's input buffer. relation must already
// be registered and every tuple must match its schema.
func (e *Engine) Insert(relation string, tuples []datalog.Tuple) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	schema, ok := e.catalog.Lookup(relation)
	if !ok {
		return errors.Schemaf("insert", "relation %q is not registered", relation)
	}
	col, ok := e.inputs[relation]
	if !ok {
		col = dataflow.NewCollection(semiring.Counting)
		e.inputs[relation] = col
	}
	for _, t := range tuples {
		if err := schema.Validate(t); err != nil {
			return errors.Schemaf("insert", "relation %q: %v", relation, err)
		}
		col.Add(t, semiring.CountingOne)
	}
	return nil
}

// Delete removes tuples from relation's input buffer (one derivation
// per occurrence, matching Insert's one-derivation-per-call contract).
func (e *Engine) Delete(relation string, tuples []datalog.Tuple) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	col, ok := e.inputs[relation]
	if !ok {
		return errors.Schemaf("delete", "relation %q is not registered", relation)
	}
	for _, t := range tuples {
		col.Add(t, semiring.CountingDiff(-1))
	}
	return nil
}

// SetNumWorkers records the engine's worker-count knob. The dataflow
// generator in this tree is a single in-process interpreter (no real
// worker mesh, per datalog/dataflow's package doc); the value is only
// recorded -- Execute does not read it, and it does not change result
// contents.
func (e *Engine) SetNumWorkers(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n > 0 {
		e.numWorkers = n
	}
}

// SetTimeout sets the per-execute() query budget. A zero duration
// means no timeout.
func (e *Engine) SetTimeout(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeout = d
}

// CancelHandleExternal returns the engine's shared cancel handle; the
// caller may call Cancel() on it from any goroutine to abort the
// execute() currently in flight.
func (e *Engine) CancelHandleExternal() *dataflow.CancelHandle {
	return e.cancel
}

// Parse translates source text into a Program via the EDN-based rule
// grammar (datalog/langparser).
func (e *Engine) Parse(source string) (ast.Program, error) {
	return langparser.ParseProgram(source)
}

// Relation returns the current contents of relation's input buffer
// (an EDB-only convenience read, bypassing program compilation
// entirely -- the ground-atom query form).
func (e *Engine) Relation(name string) ([]datalog.Tuple, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	col, ok := e.inputs[name]
	if !ok {
		return nil, errors.Schemaf("relation", "relation %q is not registered", name)
	}
	sink := dataflow.NewSink()
	sink.Fill(col)
	return sink.Drain(), nil
}

// Stats reports lightweight bookkeeping: current relation and tuple
// counts.
func (e *Engine) Stats() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	stats := make(map[string]interface{}, 2)
	stats["relations"] = len(e.inputs)
	total := 0
	for _, col := range e.inputs {
		total += col.Len()
	}
	stats["tuples"] = total
	return stats
}

func (e *Engine) snapshotBudget() dataflow.Budget {
	return dataflow.NewBudget(e.timeout, e.cancel)
}
