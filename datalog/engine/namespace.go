package engine

import (
	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/catalog"
	"github.com/lumendb/datalogx/datalog/dataflow"
	"github.com/lumendb/datalogx/datalog/semiring"
)

// Namespace is the load/save unit a caller hands to datalog/storage: a
// knowledge graph's relation schemas, the rule source text defining its
// IDB relations, and the current contents of every EDB relation's
// input buffer. It mirrors datalog/storage.Namespace field for field so
// a caller can convert between the two with a plain struct literal
// without either package importing the other.
type Namespace struct {
	Name    string
	Rules   string
	Schemas map[string]datalog.TupleSchema
	Facts   map[string][]datalog.Tuple
}

// RuleSource returns the source text last passed to ExecuteSource or
// SetRuleSource.
func (e *Engine) RuleSource() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ruleSource
}

// SetRuleSource records source as the engine's current rule text
// without parsing or executing it, for a caller restoring a namespace
// that has already been compiled once and only needs the text kept
// around for the next Snapshot.
func (e *Engine) SetRuleSource(source string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ruleSource = source
}

// Snapshot captures the engine's current catalog, rule source and fact
// tables as a Namespace, for a caller to persist via datalog/storage.
func (e *Engine) Snapshot(name string) Namespace {
	e.mu.RLock()
	defer e.mu.RUnlock()

	schemas := make(map[string]datalog.TupleSchema, len(e.inputs))
	facts := make(map[string][]datalog.Tuple, len(e.inputs))
	for rel, col := range e.inputs {
		if schema, ok := e.catalog.Lookup(rel); ok {
			schemas[rel] = schema
		}
		sink := dataflow.NewSink()
		sink.Fill(col)
		facts[rel] = sink.Drain()
	}
	return Namespace{Name: name, Rules: e.ruleSource, Schemas: schemas, Facts: facts}
}

// SwitchNamespace implements the knowledge-graph switch contract:
// cancel outstanding queries, swap the catalog and input buffers for
// ns's contents, and reset session state (indexes, cancel handle,
// rule source). An in-flight Execute, if any, observes the cancelled
// handle at its next budget check and returns a cancellation error;
// this call does not wait for it to return.
func (e *Engine) SwitchNamespace(ns Namespace) {
	e.mu.RLock()
	drain := e.cancel
	e.mu.RUnlock()
	drain.Cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	newCatalog := catalog.New()
	inputs := make(map[string]*dataflow.Collection, len(ns.Schemas))
	for rel, schema := range ns.Schemas {
		newCatalog.Register(rel, schema)
		col := dataflow.NewCollection(semiring.Counting)
		for _, t := range ns.Facts[rel] {
			col.Add(t, semiring.CountingOne)
		}
		inputs[rel] = col
	}

	e.catalog = newCatalog
	e.inputs = inputs
	e.indexes = make(dataflow.MapIndexSet)
	e.ruleSource = ns.Rules
	e.cancel = dataflow.NewCancelHandle()
}
