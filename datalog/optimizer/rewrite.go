// Package optimizer implements a set of semantics-preserving IR
// rewrites: local simplification to a fixpoint, join reordering by
// minimum-spanning-tree cost (grounded on the lvlath package's
// Prim/Kruskal implementation), subplan sharing via canonical hashing,
// and bottom-up semiring specialization.
package optimizer

import (
	"github.com/lumendb/datalogx/datalog/ir"
)

// Rewrite applies the local simplification rules bottom-up repeatedly
// until none fire: identity-map elimination, map fusion, always-true/
// false filter removal, filter fusion, filter pushdown through Join, and
// empty-union dead-code elimination.
func Rewrite(n ir.Node) ir.Node {
	for {
		next, changed := rewriteOnce(n)
		n = next
		if !changed {
			return n
		}
	}
}

func rewriteOnce(n ir.Node) (ir.Node, bool) {
	changedAny := false
	children := n.Children()
	if len(children) > 0 {
		newChildren := make([]ir.Node, len(children))
		for i, c := range children {
			nc, ch := rewriteOnce(c)
			newChildren[i] = nc
			changedAny = changedAny || ch
		}
		n = n.WithChildren(newChildren)
	}
	if simplified, ok := simplifyNode(n); ok {
		return simplified, true
	}
	return n, changedAny
}

func simplifyNode(n ir.Node) (ir.Node, bool) {
	switch v := n.(type) {
	case ir.Map:
		if v.IsIdentity() {
			return v.Input, true
		}
		if inner, ok := v.Input.(ir.Map); ok {
			composed := make([]int, len(v.Proj))
			for i, p := range v.Proj {
				composed[i] = inner.Proj[p]
			}
			return ir.NewMap(inner.Input, composed, v.OutSchema), true
		}

	case ir.Filter:
		switch v.Pred.(type) {
		case ir.True:
			return v.Input, true
		case ir.False:
			return ir.NewUnion(v.Schema()), true
		}
		if inner, ok := v.Input.(ir.Filter); ok {
			return ir.NewFilter(inner.Input, ir.And{Left: inner.Pred, Right: v.Pred}), true
		}
		if join, ok := v.Input.(ir.Join); ok {
			if pushed, ok2 := pushFilterIntoJoin(v.Pred, join); ok2 {
				return pushed, true
			}
		}

	case ir.Union:
		var kept []ir.Node
		droppedEmpty := false
		for _, c := range v.Inputs {
			if u, ok := c.(ir.Union); ok && len(u.Inputs) == 0 {
				droppedEmpty = true
				continue
			}
			kept = append(kept, c)
		}
		if droppedEmpty {
			if len(kept) == 1 {
				return kept[0], true
			}
			return ir.NewUnion(v.Sch, kept...), true
		}
	}
	return n, false
}

// pushFilterIntoJoin moves a predicate under a Join's left or right
// child when every column the predicate reads belongs entirely to that
// side (filter-pushdown-through-join). It never pushes a predicate
// that mixes columns from both sides (that stays
// above the join, where it behaves as a join condition that would need
// the Join operator itself to express).
func pushFilterIntoJoin(pred ir.Predicate, join ir.Join) (ir.Node, bool) {
	cols := pred.Columns()
	if len(cols) == 0 {
		return nil, false
	}
	leftArity := join.Left.Schema().Arity()
	allLeft, allRight := true, true
	for _, c := range cols {
		if c >= leftArity {
			allLeft = false
		} else {
			allRight = false
		}
	}
	switch {
	case allLeft:
		newLeft := ir.NewFilter(join.Left, pred)
		return join.WithChildren([]ir.Node{newLeft, join.Right}), true
	case allRight:
		shifted := shiftPredicate(pred, -leftArity)
		newRight := ir.NewFilter(join.Right, shifted)
		return join.WithChildren([]ir.Node{join.Left, newRight}), true
	default:
		return nil, false
	}
}

// shiftPredicate rebuilds a predicate with every column index shifted
// by delta, used to translate a pushed-down predicate from the parent
// join's combined column space into a child's own column space.
func shiftPredicate(p ir.Predicate, delta int) ir.Predicate {
	switch v := p.(type) {
	case ir.ColumnEq:
		return ir.ColumnEq{Col: v.Col + delta, Value: v.Value}
	case ir.ColumnCompare:
		return ir.ColumnCompare{Col: v.Col + delta, Op: v.Op, Value: v.Value}
	case ir.ColumnColumnCompare:
		return ir.ColumnColumnCompare{Left: v.Left + delta, Right: v.Right + delta, Op: v.Op}
	case ir.And:
		return ir.And{Left: shiftPredicate(v.Left, delta), Right: shiftPredicate(v.Right, delta)}
	case ir.Or:
		return ir.Or{Left: shiftPredicate(v.Left, delta), Right: shiftPredicate(v.Right, delta)}
	default:
		return p
	}
}
