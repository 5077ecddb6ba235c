package engine

import (
	"fmt"

	"github.com/lumendb/datalogx/datalog/ast"
	"github.com/lumendb/datalogx/datalog/errors"
	"github.com/lumendb/datalogx/datalog/ir"
	"github.com/lumendb/datalogx/datalog/irbuilder"
	"github.com/lumendb/datalogx/datalog/optimizer"
	"github.com/lumendb/datalogx/datalog/recursion"
)

// Program is the compiled, optimized form Execute drives: per-head-
// relation lists of rule IR trees (one tree per defining rule, unioned
// at evaluation time by dataflow.RunStratum), grouped into strata in
// dependency order.
type Program struct {
	strat      *recursion.Stratification
	rulesByRel map[string][]ir.Node
	roots      []string // head relations never scanned by another rule in this program
}

// Compile runs the engine's build_ir/optimize pipeline over prog:
// dependency graph construction, stratification, per-rule IR
// Builder invocation, semijoin reduction (guarded by the relation
// names the recursion analyzer marks recursive), join reordering,
// subplan-sharing, basic rewrites, and semiring specialization -- each
// rule optimized independently, in that order, to fixpoint.
func (e *Engine) Compile(prog ast.Program) (*Program, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	g := recursion.NewGraph()
	for _, rule := range prog.Rules {
		g.AddRelation(rule.Head.Relation)
		for _, bp := range rule.Body {
			switch p := bp.(type) {
			case ast.Positive:
				g.AddRelation(p.Atom.Relation)
				g.AddEdge(rule.Head.Relation, p.Atom.Relation, false)
			case ast.Negated:
				g.AddRelation(p.Atom.Relation)
				g.AddEdge(rule.Head.Relation, p.Atom.Relation, true)
			}
		}
	}
	strat, err := recursion.Stratify(g)
	if err != nil {
		return nil, err
	}

	recursiveRelations := make(map[string]bool)
	for _, c := range strat.Components() {
		if c.IsRecursive {
			for _, m := range c.Members {
				recursiveRelations[m] = true
			}
		}
	}

	builder := irbuilder.NewBuilder(e.catalog, e.functions)
	rulesByRel := make(map[string][]ir.Node)
	scannedByOthers := make(map[string]bool)
	for _, rule := range prog.Rules {
		node, err := builder.BuildRule(rule)
		if err != nil {
			return nil, fmt.Errorf("rule with head %s: %w", rule.Head.Relation, err)
		}
		node = optimizeRule(node, recursiveRelations)
		rulesByRel[rule.Head.Relation] = append(rulesByRel[rule.Head.Relation], node)

		for _, bp := range rule.Body {
			switch p := bp.(type) {
			case ast.Positive:
				scannedByOthers[p.Atom.Relation] = true
			case ast.Negated:
				scannedByOthers[p.Atom.Relation] = true
			}
		}
	}

	var roots []string
	for rel := range rulesByRel {
		if !scannedByOthers[rel] {
			roots = append(roots, rel)
		}
	}
	if len(roots) == 0 {
		return nil, errors.Compilef("compile", "program defines no relation that another rule does not itself consume -- nothing to execute")
	}

	return &Program{strat: strat, rulesByRel: rulesByRel, roots: roots}, nil
}

// optimizeRule applies apply_sip_rewriting (semijoin reduction, guarded
// by recursive relation membership) followed by optimize()'s join
// planning, subplan sharing, basic rewrites and semiring specialization,
// iterated to a fixpoint on the tree's canonical string rendering.
func optimizeRule(node ir.Node, recursive map[string]bool) ir.Node {
	node = optimizer.ApplySemijoinReduction(node, recursive)
	for {
		before := node.String()
		node = optimizer.ApplyJoinReordering(node)
		node, _ = optimizer.ExtractSharedViews(node)
		node = optimizer.Rewrite(node)
		node = optimizer.AnnotateSemirings(node)
		if node.String() == before {
			return node
		}
	}
}

// Roots returns the relation names Execute will report results for:
// every rule-defined relation that no rule in the same program scans,
// the "rule whose head is a fresh anonymous IDB" query form.
func (p *Program) Roots() []string {
	out := make([]string, len(p.roots))
	copy(out, p.roots)
	return out
}
