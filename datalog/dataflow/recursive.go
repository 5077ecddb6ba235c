package dataflow

import (
	"sort"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ir"
	"github.com/lumendb/datalogx/datalog/semiring"
)

// RuleSet maps a relation name to every compiled rule body that
// contributes rows to it (a relation defined by N rules is the union of
// all N IR trees' results).
type RuleSet map[string][]ir.Node

// RunStratum evaluates one stratum of a stratification to a fixed
// point. base holds every relation already finalized by an earlier
// stratum plus every EDB relation; it is read-only here. The returned
// map holds the final contents of every relation in members.
//
// Non-recursive strata (a single rule set with no dependency cycle) are
// evaluated once. Recursive strata use genuine semi-naive evaluation:
// each round substitutes exactly one in-stratum relation's *delta* from
// the previous round for its *full* contents in turn, so work done in
// round N is never recomputed in round N+1, terminating once a round
// produces no new rows for any member.
func RunStratum(rules RuleSet, members []string, recursive bool, base map[string]*Collection, indexes IndexSet, budget Budget) (map[string]*Collection, error) {
	memberSet := make(map[string]bool, len(members))
	for _, m := range members {
		memberSet[m] = true
	}

	if !recursive {
		full := make(map[string]*Collection, len(members))
		env := &Env{Relations: mergeInputs(base, nil, "", nil), Indexes: indexes, Budget: budget}
		for _, rel := range members {
			sr := relationSemiring(rules, rel)
			cols := make([]*Collection, 0, len(rules[rel]))
			for _, ruleIR := range rules[rel] {
				col, err := NewGenerator(env).Eval(ruleIR)
				if err != nil {
					return nil, err
				}
				cols = append(cols, col)
			}
			full[rel] = mergeCollections(sr, cols...)
		}
		return full, nil
	}

	full := make(map[string]*Collection, len(members))
	delta := make(map[string]*Collection, len(members))
	for _, rel := range members {
		full[rel] = NewCollection(relationSemiring(rules, rel))
	}

	// Round 0: naive seed, every in-stratum relation still empty. All
	// relations are evaluated against the same (all-empty) snapshot of
	// full before any of them commit, so a mutually recursive group
	// sees a consistent starting point.
	env := &Env{Relations: mergeInputs(base, full, "", nil), Indexes: indexes, Budget: budget}
	for _, rel := range members {
		sr := relationSemiring(rules, rel)
		cols := make([]*Collection, 0, len(rules[rel]))
		for _, ruleIR := range rules[rel] {
			col, err := NewGenerator(env).Eval(ruleIR)
			if err != nil {
				return nil, err
			}
			cols = append(cols, col)
		}
		delta[rel] = mergeCollections(sr, cols...)
	}
	for _, rel := range members {
		full[rel] = delta[rel]
	}

	for {
		if err := budget.Check(); err != nil {
			return nil, err
		}
		newDelta := make(map[string]*Collection, len(members))
		for _, rel := range members {
			newDelta[rel] = NewCollection(relationSemiring(rules, rel))
		}

		anyWork := false
		for _, rel := range members {
			sr := relationSemiring(rules, rel)
			for _, ruleIR := range rules[rel] {
				refs := referencedNames(ruleIR, memberSet)
				for _, s := range refs {
					if delta[s] == nil || delta[s].Len() == 0 {
						continue
					}
					anyWork = true
					env := &Env{Relations: mergeInputs(base, full, s, delta[s]), Indexes: indexes, Budget: budget}
					col, err := NewGenerator(env).Eval(ruleIR)
					if err != nil {
						return nil, err
					}
					fresh := newRowsOnly(col, full[rel])
					newDelta[rel] = mergeCollections(sr, newDelta[rel], fresh)
				}
			}
		}
		if !anyWork {
			break
		}

		done := true
		for _, rel := range members {
			if newDelta[rel].Len() > 0 {
				done = false
			}
			sr := relationSemiring(rules, rel)
			full[rel] = mergeCollections(sr, full[rel], newDelta[rel])
			delta[rel] = newDelta[rel]
		}
		if done {
			break
		}
	}

	return full, nil
}

// mergeInputs builds the relation lookup table one Generator call sees:
// base (lower strata + EDB) overlaid with every member's current full
// collection, with exactly one member (override, when non-empty)
// replaced by overrideCol -- the semi-naive delta-substitution step.
func mergeInputs(base, full map[string]*Collection, override string, overrideCol *Collection) map[string]*Collection {
	merged := make(map[string]*Collection, len(base)+len(full))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range full {
		merged[k] = v
	}
	if override != "" {
		merged[override] = overrideCol
	}
	return merged
}

// relationSemiring picks the semiring annotated on a relation's first
// rule root, falling back to Counting (bag semantics) if no rule tree
// carries an annotation yet.
func relationSemiring(rules RuleSet, rel string) semiring.Type {
	for _, r := range rules[rel] {
		if sr := r.Semiring(); sr != semiring.Unknown {
			return sr
		}
	}
	return semiring.Counting
}

// mergeCollections unions any number of collections (possibly under
// different semirings, reinterpreted into sr) into one new Collection.
func mergeCollections(sr semiring.Type, cols ...*Collection) *Collection {
	out := NewCollection(sr)
	for _, c := range cols {
		if c == nil {
			continue
		}
		c.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
			if c.Semiring() != sr {
				diff = reinterpret(diff, sr)
			}
			out.Add(row, diff)
		})
	}
	return out
}

// newRowsOnly keeps only the rows of candidate not already present in
// known, the termination-guaranteeing "subtract what full already has"
// step of semi-naive evaluation.
func newRowsOnly(candidate, known *Collection) *Collection {
	out := NewCollection(candidate.Semiring())
	candidate.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
		if !known.Contains(row) {
			out.Add(row, diff)
		}
	})
	return out
}

// referencedNames returns, in sorted order, every relation name among
// members that an IR tree scans -- the in-stratum dependencies a
// recursive rule's delta-substitution loop must iterate over.
func referencedNames(n ir.Node, members map[string]bool) []string {
	seen := make(map[string]bool)
	var walk func(ir.Node)
	walk = func(node ir.Node) {
		if scan, ok := node.(ir.Scan); ok && members[scan.Relation] {
			seen[scan.Relation] = true
		}
		for _, c := range node.Children() {
			walk(c)
		}
	}
	walk(n)
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
