package optimizer

import (
	"github.com/lumendb/datalogx/datalog/ir"
	"github.com/lumendb/datalogx/datalog/semiring"
)

// AnnotateSemirings walks an IR tree bottom-up and stamps every node
// with the diff-type semiring it must execute under: EDB scans start
// Boolean (set semantics), Join/Antijoin/Union combine their inputs'
// semirings via semiring.Meet, and an Aggregate node's own function
// picks a tropical semiring (Min/Max) when present, else falls back to
// Counting (bag semantics needed for sum/avg/count).
func AnnotateSemirings(n ir.Node) ir.Node {
	children := n.Children()
	if len(children) > 0 {
		newChildren := make([]ir.Node, len(children))
		for i, c := range children {
			newChildren[i] = AnnotateSemirings(c)
		}
		n = n.WithChildren(newChildren)
	}
	return n.WithSemiring(computeSemiring(n))
}

func computeSemiring(n ir.Node) semiring.Type {
	switch v := n.(type) {
	case ir.Scan:
		return semiring.Boolean
	case ir.HnswScan:
		return semiring.Boolean
	case ir.Join:
		return semiring.Meet(v.Left.Semiring(), v.Right.Semiring())
	case ir.Antijoin:
		return v.Left.Semiring()
	case ir.Union:
		sr := semiring.Unknown
		for _, c := range v.Inputs {
			sr = semiring.Meet(sr, c.Semiring())
		}
		return sr
	case ir.Aggregate:
		return aggregateSemiring(v)
	default:
		if children := n.Children(); len(children) > 0 {
			return children[0].Semiring()
		}
		return semiring.Boolean
	}
}

// aggregateSemiring picks Min/Max when the aggregate node contains a
// matching reducer (these are non-Abelian and must not be deduplicated
// by inverse), else Counting -- every other aggregate (sum, avg, count,
// count_distinct, and the ranking aggregates) needs ordinary integer
// bookkeeping of how many derivations produced a row.
func aggregateSemiring(a ir.Aggregate) semiring.Type {
	for _, spec := range a.Aggs {
		switch spec.Func {
		case ir.Min:
			return semiring.Min
		case ir.Max:
			return semiring.Max
		}
	}
	return semiring.Counting
}
