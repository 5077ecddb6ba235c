package dataflow

import (
	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/errors"
	"github.com/lumendb/datalogx/datalog/ir"
	"github.com/lumendb/datalogx/datalog/semiring"
)

// Env supplies a Generator with the two things it cannot derive from an
// IR tree alone: the current contents of every base (EDB) and
// already-evaluated recursive relation, and the vector indexes HnswScan
// leaves query against.
type Env struct {
	Relations map[string]*Collection
	Indexes   IndexSet
	Budget    Budget
}

// Generator evaluates an optimized IR tree into a Collection, memoizing
// each distinct subtree (keyed by its String() rendering) so a tree
// produced by the subplan-sharing pass -- or simply containing the same
// subexpression twice -- is only evaluated once per Eval call. It
// drives one non-recursive stratum's worth of operators to a result,
// deferring recursive strata to RunStratum in recursive.go.
type Generator struct {
	env  *Env
	memo map[string]*Collection
}

// NewGenerator returns a Generator bound to env. A fresh Generator
// should be used per round of a recursive fixpoint, since relation
// contents captured in env.Relations change between rounds.
func NewGenerator(env *Env) *Generator {
	return &Generator{env: env, memo: make(map[string]*Collection)}
}

// Eval evaluates n, returning the memoized result if this exact subtree
// (by canonical string) was already computed during this Generator's
// lifetime.
func (g *Generator) Eval(n ir.Node) (*Collection, error) {
	if err := g.env.Budget.Check(); err != nil {
		return nil, err
	}
	key := n.String()
	if c, ok := g.memo[key]; ok {
		return c, nil
	}
	c, err := g.evalNode(n)
	if err != nil {
		return nil, err
	}
	g.memo[key] = c
	return c, nil
}

func (g *Generator) evalNode(n ir.Node) (*Collection, error) {
	switch v := n.(type) {
	case ir.Scan:
		return g.evalScan(v)
	case ir.Map:
		return g.evalMap(v)
	case ir.Filter:
		return g.evalFilter(v)
	case ir.Join:
		return g.evalJoin(v)
	case ir.Antijoin:
		return g.evalAntijoin(v)
	case ir.Distinct:
		return g.evalDistinct(v)
	case ir.Union:
		return g.evalUnion(v)
	case ir.Aggregate:
		return g.evalAggregate(v)
	case ir.Compute:
		return g.evalCompute(v)
	case ir.HnswScan:
		return g.evalHnswScan(v, nil)
	case ir.FlatMap:
		return g.evalFlatMap(v)
	case ir.JoinFlatMap:
		return g.evalJoinFlatMap(v)
	default:
		return nil, errors.Compilef("eval", "unhandled IR node %T", n)
	}
}

func (g *Generator) evalScan(v ir.Scan) (*Collection, error) {
	if col, ok := g.env.Relations[v.Relation]; ok {
		return col, nil
	}
	return NewCollection(nodeSemiring(v)), nil
}

func (g *Generator) evalMap(v ir.Map) (*Collection, error) {
	in, err := g.Eval(v.Input)
	if err != nil {
		return nil, err
	}
	out := NewCollection(nodeSemiring(v))
	in.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
		out.Add(project(row, v.Proj), diff)
	})
	return out, nil
}

func (g *Generator) evalFilter(v ir.Filter) (*Collection, error) {
	in, err := g.Eval(v.Input)
	if err != nil {
		return nil, err
	}
	out := NewCollection(nodeSemiring(v))
	in.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
		if v.Pred.Eval(row) {
			out.Add(row, diff)
		}
	})
	return out, nil
}

// evalJoin special-cases a right side that is a correlated HnswScan
// leaf (its Query expression may read columns of the accumulated outer
// row, per the irbuilder's translation of hnsw_nearest body
// predicates) by querying the vector index once per left row rather
// than evaluating the leaf as an ordinary, context-free collection.
func (g *Generator) evalJoin(v ir.Join) (*Collection, error) {
	left, err := g.Eval(v.Left)
	if err != nil {
		return nil, err
	}
	sr := nodeSemiring(v)
	out := NewCollection(sr)

	if hnsw, ok := v.Right.(ir.HnswScan); ok {
		var evalErr error
		left.ForEach(func(lrow datalog.Tuple, ldiff semiring.Diff) {
			if evalErr != nil {
				return
			}
			right, err := g.evalHnswScan(hnsw, lrow)
			if err != nil {
				evalErr = err
				return
			}
			right.ForEach(func(rrow datalog.Tuple, rdiff semiring.Diff) {
				if !keysMatch(lrow, v.LeftKeys, rrow, v.RightKeys) {
					return
				}
				out.Add(combine(lrow, rrow, v.RightKeys), multiplyDiff(sr, ldiff, rdiff))
			})
		})
		if evalErr != nil {
			return nil, evalErr
		}
		return out, nil
	}

	right, err := g.Eval(v.Right)
	if err != nil {
		return nil, err
	}
	buckets := make(map[string][]datalog.Tuple, right.Len())
	diffs := make(map[string][]semiring.Diff, right.Len())
	right.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
		k := keyOf(row, v.RightKeys)
		buckets[k] = append(buckets[k], row)
		diffs[k] = append(diffs[k], diff)
	})
	left.ForEach(func(lrow datalog.Tuple, ldiff semiring.Diff) {
		k := keyOf(lrow, v.LeftKeys)
		rows := buckets[k]
		ds := diffs[k]
		for i, rrow := range rows {
			out.Add(combine(lrow, rrow, v.RightKeys), multiplyDiff(sr, ldiff, ds[i]))
		}
	})
	return out, nil
}

func (g *Generator) evalAntijoin(v ir.Antijoin) (*Collection, error) {
	left, err := g.Eval(v.Left)
	if err != nil {
		return nil, err
	}
	right, err := g.Eval(v.Right)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, right.Len())
	right.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
		if !diff.IsZero() {
			present[keyOf(row, v.RightKeys)] = true
		}
	})
	out := NewCollection(nodeSemiring(v))
	left.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
		if !present[keyOf(row, v.LeftKeys)] {
			out.Add(row, diff)
		}
	})
	return out, nil
}

func (g *Generator) evalDistinct(v ir.Distinct) (*Collection, error) {
	in, err := g.Eval(v.Input)
	if err != nil {
		return nil, err
	}
	sr := nodeSemiring(v)
	out := NewCollection(sr)
	in.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
		if semiring.CanDistinctByInverse(sr) {
			out.Add(row, semiring.One(sr))
		} else {
			// Non-Abelian (Min/Max): the diff already is the reduced
			// extremum across every derivation of this exact row, so
			// Distinct is a pass-through, not a reset to a unit weight.
			out.Add(row, diff)
		}
	})
	return out, nil
}

func (g *Generator) evalUnion(v ir.Union) (*Collection, error) {
	sr := nodeSemiring(v)
	out := NewCollection(sr)
	for _, input := range v.Inputs {
		col, err := g.Eval(input)
		if err != nil {
			return nil, err
		}
		col.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
			if col.Semiring() != sr {
				diff = reinterpret(diff, sr)
			}
			out.Add(row, diff)
		})
	}
	return out, nil
}

func (g *Generator) evalCompute(v ir.Compute) (*Collection, error) {
	in, err := g.Eval(v.Input)
	if err != nil {
		return nil, err
	}
	out := NewCollection(nodeSemiring(v))
	in.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
		extended := make(datalog.Tuple, len(row), len(row)+len(v.Columns))
		copy(extended, row)
		for _, col := range v.Columns {
			val, err := col.Expr.Eval(row)
			if err != nil {
				// Tuple-local failure: drop this row, never abort the
				// whole evaluation.
				return
			}
			extended = append(extended, val)
		}
		out.Add(extended, diff)
	})
	return out, nil
}

// evalHnswScan queries the vector index IndexName resolves to.
// outerRow, when non-nil, is the left-hand join row a correlated query
// expression may read columns of; when nil (a top-level scan of an
// unjoined hnsw_nearest predicate), the expression must be a closed
// constant.
func (g *Generator) evalHnswScan(v ir.HnswScan, outerRow datalog.Tuple) (*Collection, error) {
	idx, ok := g.env.Indexes.Index(v.IndexName)
	if !ok {
		return nil, errors.Runtimef("hnsw-scan", "unknown vector index %q", v.IndexName)
	}
	row := outerRow
	if row == nil {
		row = datalog.Tuple{}
	}
	query, err := v.Query.Eval(row)
	if err != nil {
		if outerRow != nil {
			// Tuple-local: this outer row simply contributes no matches.
			return NewCollection(nodeSemiring(v)), nil
		}
		return nil, err
	}
	hits, err := idx.Nearest(query, v.K, v.EfSearch)
	if err != nil {
		return nil, errors.Runtimef("hnsw-scan", "%v", err)
	}
	out := NewCollection(nodeSemiring(v))
	for _, h := range hits {
		out.Add(datalog.Tuple{h.Key, datalog.Float64(h.Distance)}, semiring.One(nodeSemiring(v)))
	}
	return out, nil
}

func (g *Generator) evalFlatMap(v ir.FlatMap) (*Collection, error) {
	in, err := g.Eval(v.Input)
	if err != nil {
		return nil, err
	}
	out := NewCollection(nodeSemiring(v))
	in.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
		if v.Pred.Eval(row) {
			out.Add(project(row, v.Proj), diff)
		}
	})
	return out, nil
}

func (g *Generator) evalJoinFlatMap(v ir.JoinFlatMap) (*Collection, error) {
	left, err := g.Eval(v.Left)
	if err != nil {
		return nil, err
	}
	right, err := g.Eval(v.Right)
	if err != nil {
		return nil, err
	}
	sr := nodeSemiring(v)
	out := NewCollection(sr)
	buckets := make(map[string][]datalog.Tuple, right.Len())
	diffs := make(map[string][]semiring.Diff, right.Len())
	right.ForEach(func(row datalog.Tuple, diff semiring.Diff) {
		k := keyOf(row, v.RightKeys)
		buckets[k] = append(buckets[k], row)
		diffs[k] = append(diffs[k], diff)
	})
	left.ForEach(func(lrow datalog.Tuple, ldiff semiring.Diff) {
		k := keyOf(lrow, v.LeftKeys)
		rows := buckets[k]
		ds := diffs[k]
		for i, rrow := range rows {
			joined := combine(lrow, rrow, v.RightKeys)
			if !v.Pred.Eval(joined) {
				continue
			}
			out.Add(project(joined, v.Proj), multiplyDiff(sr, ldiff, ds[i]))
		}
	})
	return out, nil
}

// nodeSemiring reads the optimizer's semiring annotation, falling back
// to Counting if the tree was never run through AnnotateSemirings
// (tests that hand-build IR without the optimizer pass).
func nodeSemiring(n ir.Node) semiring.Type {
	if sr := n.Semiring(); sr != semiring.Unknown {
		return sr
	}
	return semiring.Counting
}

// project builds a new row selecting cols from row, in order.
func project(row datalog.Tuple, cols []int) datalog.Tuple {
	out := make(datalog.Tuple, len(cols))
	for i, c := range cols {
		out[i] = row[c]
	}
	return out
}

// keysMatch reports whether the selected columns of two rows are
// componentwise equal.
func keysMatch(left datalog.Tuple, leftKeys []int, right datalog.Tuple, rightKeys []int) bool {
	if len(leftKeys) != len(rightKeys) {
		return false
	}
	for i := range leftKeys {
		if !left[leftKeys[i]].Equal(right[rightKeys[i]]) {
			return false
		}
	}
	return true
}

// combine builds a join's output row: every left column followed by
// every right column not already consumed as a join key, mirroring
// joinOutputSchema in datalog/optimizer/joinplan.go.
func combine(left datalog.Tuple, right datalog.Tuple, rightKeys []int) datalog.Tuple {
	skip := make(map[int]bool, len(rightKeys))
	for _, k := range rightKeys {
		skip[k] = true
	}
	out := make(datalog.Tuple, 0, len(left)+len(right)-len(rightKeys))
	out = append(out, left...)
	for i, v := range right {
		if !skip[i] {
			out = append(out, v)
		}
	}
	return out
}
