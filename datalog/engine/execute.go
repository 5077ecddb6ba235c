package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/annotations"
	"github.com/lumendb/datalogx/datalog/dataflow"
)

// Execute drives prog's strata through the dataflow generator in
// ascending stratum order, each stratum's finished relations feeding
// the next as part of `base`, and returns one result slice per root
// relation. Each stratum is bracketed by a phase/begin-phase/complete
// annotation pair, and the whole call by query/invoked-query/completed,
// so a caller that set an AnnotationHandler sees the same execution
// trace shape annotations.OutputFormatter already knows how to render.
func (e *Engine) Execute(prog *Program) (map[string][]datalog.Tuple, error) {
	e.mu.RLock()
	base := make(map[string]*dataflow.Collection, len(e.inputs))
	for name, col := range e.inputs {
		base[name] = col
	}
	indexes := make(dataflow.MapIndexSet, len(e.indexes))
	for name, idx := range e.indexes {
		indexes[name] = idx
	}
	budget := e.snapshotBudget()
	collector := e.annotate
	e.mu.RUnlock()

	queryStart := time.Now()
	collector.Add(annotations.Event{Name: annotations.QueryInvoked, Start: queryStart, Data: map[string]interface{}{
		"query": strings.Join(prog.roots, " "),
	}})

	for i, component := range prog.strat.Components() {
		// Components may include pure-EDB relations the graph registered
		// as dependency targets but that no rule in this program defines;
		// those already live in base untouched and must not be
		// overwritten with an empty stratum result.
		members := make([]string, 0, len(component.Members))
		for _, m := range component.Members {
			if len(prog.rulesByRel[m]) > 0 {
				members = append(members, m)
			}
		}
		if len(members) == 0 {
			continue
		}

		phaseStart := time.Now()
		phase := fmt.Sprintf("stratum %d", i)
		collector.AddTiming(annotations.PhaseBegin, phaseStart, map[string]interface{}{"phase": phase})
		full, err := dataflow.RunStratum(dataflow.RuleSet(prog.rulesByRel), members, component.IsRecursive, base, indexes, budget)
		if err != nil {
			collector.Add(annotations.Event{Name: annotations.ErrorQueryInternal, Start: phaseStart, End: time.Now()})
			return nil, err
		}
		tuples := 0
		for name, col := range full {
			base[name] = col
			tuples += col.Len()
		}
		collector.AddTiming(annotations.PhaseComplete, phaseStart, map[string]interface{}{
			"phase":       phase,
			"tuple.count": tuples,
			"stratum":    i,
			"recursive":  component.IsRecursive,
			"relations":  members,
		})
	}

	results := make(map[string][]datalog.Tuple, len(prog.roots))
	total := 0
	for _, root := range prog.roots {
		col, ok := base[root]
		if !ok {
			results[root] = nil
			continue
		}
		sink := dataflow.NewSink()
		sink.Fill(col)
		rows := sink.Drain()
		results[root] = rows
		total += len(rows)
	}
	collector.AddTiming(annotations.QueryComplete, queryStart, map[string]interface{}{
		"success":         true,
		"relations.count": len(prog.roots),
		"tuples.count":    total,
		"roots":  prog.roots,
		"tuples": total,
	})
	return results, nil
}

// ExecuteSource is a convenience wrapping Parse + Compile + Execute,
// mirroring a one-call parse+plan+execute entry point. It also records
// source as the engine's current rule text, so a later Snapshot picks
// up the rules that produced this session's IDB relations.
func (e *Engine) ExecuteSource(source string) (map[string][]datalog.Tuple, error) {
	prog, err := e.Parse(source)
	if err != nil {
		return nil, err
	}
	compiled, err := e.Compile(prog)
	if err != nil {
		return nil, err
	}
	e.SetRuleSource(source)
	return e.Execute(compiled)
}
