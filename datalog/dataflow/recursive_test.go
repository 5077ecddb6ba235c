package dataflow

import (
	"testing"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ir"
	"github.com/lumendb/datalogx/datalog/semiring"
	"github.com/stretchr/testify/require"
)

// TestRunStratumSemiNaiveTransitiveClosure computes the classic
// reachable(X,Y) :- edge(X,Y). reachable(X,Y) :- reachable(X,Z), edge(Z,Y).
// recursive program over a small chain graph, exercising RunStratum's
// semi-naive delta-substitution loop to a fixed point.
func TestRunStratumSemiNaiveTransitiveClosure(t *testing.T) {
	edges := edgeCollection([][2]int64{{1, 2}, {2, 3}, {3, 4}})
	base := map[string]*Collection{"edge": edges}

	reachableSchema := schemaAB() // (X, Y) positionally; also used as (X, Z)
	edgeSchemaZY := schemaAB()    // (Z, Y) positionally -- same underlying relation

	rule1 := ir.NewScan("edge", reachableSchema).WithSemiring(semiring.Boolean)

	scanReachable := ir.NewScan("reachable", reachableSchema).WithSemiring(semiring.Boolean)
	scanEdge := ir.NewScan("edge", edgeSchemaZY).WithSemiring(semiring.Boolean)
	joinSchema := datalog.NewSchema(
		datalog.Field{Name: "X", Type: datalog.TypeInt64},
		datalog.Field{Name: "Z", Type: datalog.TypeInt64},
		datalog.Field{Name: "Y", Type: datalog.TypeInt64},
	)
	join := ir.NewJoin(scanReachable, scanEdge, []int{1}, []int{0}, joinSchema).WithSemiring(semiring.Boolean)
	rule2 := ir.NewMap(join, []int{0, 2}, reachableSchema).WithSemiring(semiring.Boolean)

	rules := RuleSet{"reachable": {rule1, rule2}}

	full, err := RunStratum(rules, []string{"reachable"}, true, base, MapIndexSet{}, Budget{})
	require.NoError(t, err)

	reachable := full["reachable"]
	require.NotNil(t, reachable)

	want := [][2]int64{{1, 2}, {2, 3}, {3, 4}, {1, 3}, {2, 4}, {1, 4}}
	require.Equal(t, len(want), reachable.Len())
	for _, w := range want {
		require.True(t, reachable.Contains(datalog.Tuple{datalog.Int64(w[0]), datalog.Int64(w[1])}), "missing %v", w)
	}
}

func TestRunStratumNonRecursiveUnionsRules(t *testing.T) {
	a := NewCollection(semiring.Boolean)
	a.Add(datalog.Tuple{datalog.Int64(1)}, semiring.BooleanOne)
	b := NewCollection(semiring.Boolean)
	b.Add(datalog.Tuple{datalog.Int64(2)}, semiring.BooleanOne)

	base := map[string]*Collection{"a": a, "b": b}
	sch := datalog.NewSchema(datalog.Field{Name: "X", Type: datalog.TypeInt64})
	rule1 := ir.NewScan("a", sch).WithSemiring(semiring.Boolean)
	rule2 := ir.NewScan("b", sch).WithSemiring(semiring.Boolean)

	rules := RuleSet{"both": {rule1, rule2}}
	full, err := RunStratum(rules, []string{"both"}, false, base, MapIndexSet{}, Budget{})
	require.NoError(t, err)
	require.Equal(t, 2, full["both"].Len())
}
