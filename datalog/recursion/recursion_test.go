package recursion

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// path depends on edge and (recursively) on itself: path -> edge, path -> path.
func TestStratifyRecursiveComponent(t *testing.T) {
	g := NewGraph()
	g.AddEdge("path", "edge", false)
	g.AddEdge("path", "path", false)

	strat, err := Stratify(g)
	require.NoError(t, err)
	require.True(t, strat.IsRecursive("path"))
	require.False(t, strat.IsRecursive("edge"))
	require.Less(t, strat.Stratum("edge"), strat.Stratum("path"))
}

// reachable depends on path; unreachable negates reachable: a classic
// two-stratum program with no cycle through the negation.
func TestStratifyAcceptsNegationAcrossStrata(t *testing.T) {
	g := NewGraph()
	g.AddEdge("reachable", "edge", false)
	g.AddEdge("unreachable", "reachable", true)

	strat, err := Stratify(g)
	require.NoError(t, err)
	require.Less(t, strat.Stratum("reachable"), strat.Stratum("unreachable"))
}

// bad(X) :- bad(X), not bad(X) style cycles: a relation negating a
// member of its own recursive component must be rejected.
func TestStratifyRejectsNegationThroughRecursion(t *testing.T) {
	g := NewGraph()
	g.AddEdge("even", "odd", false)
	g.AddEdge("odd", "even", true)

	_, err := Stratify(g)
	require.ErrorIs(t, err, ErrNegationThroughRecursion)
}

func TestTarjanSingleRelationNoEdges(t *testing.T) {
	g := NewGraph()
	g.AddRelation("fact")

	strat, err := Stratify(g)
	require.NoError(t, err)
	require.False(t, strat.IsRecursive("fact"))
	require.Equal(t, 0, strat.Stratum("fact"))
}
