package irbuilder

import (
	"testing"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ast"
	"github.com/lumendb/datalogx/datalog/catalog"
	"github.com/lumendb/datalogx/datalog/ir"
	"github.com/lumendb/datalogx/datalog/scalar"
	"github.com/stretchr/testify/require"
)

func edgeCatalog() *catalog.Catalog {
	c := catalog.New()
	c.Register("edge", datalog.NewSchema(
		datalog.Field{Name: "from", Type: datalog.TypeInt64},
		datalog.Field{Name: "to", Type: datalog.TypeInt64},
	))
	c.Register("path", datalog.NewSchema(
		datalog.Field{Name: "from", Type: datalog.TypeInt64},
		datalog.Field{Name: "to", Type: datalog.TypeInt64},
	))
	return c
}

func newBuilder(c *catalog.Catalog) *Builder {
	return NewBuilder(c, scalar.NewRegistry())
}

// path(X,Y) :- edge(X,Y).
func TestBuildRuleBaseCase(t *testing.T) {
	b := newBuilder(edgeCatalog())
	rule := ast.Rule{
		Head: ast.Atom{Relation: "path", Args: []ast.Term{ast.Var{Name: "X"}, ast.Var{Name: "Y"}}},
		Body: []ast.BodyPredicate{
			ast.Positive{Atom: ast.Atom{Relation: "edge", Args: []ast.Term{ast.Var{Name: "X"}, ast.Var{Name: "Y"}}}},
		},
	}
	node, err := b.BuildRule(rule)
	require.NoError(t, err)
	require.Equal(t, 2, node.Schema().Arity())
	require.Equal(t, []string{"X", "Y"}, node.Schema().Names())
}

// path(X,Z) :- path(X,Y), edge(Y,Z).
func TestBuildRuleTransitiveClosure(t *testing.T) {
	b := newBuilder(edgeCatalog())
	rule := ast.Rule{
		Head: ast.Atom{Relation: "path", Args: []ast.Term{ast.Var{Name: "X"}, ast.Var{Name: "Z"}}},
		Body: []ast.BodyPredicate{
			ast.Positive{Atom: ast.Atom{Relation: "path", Args: []ast.Term{ast.Var{Name: "X"}, ast.Var{Name: "Y"}}}},
			ast.Positive{Atom: ast.Atom{Relation: "edge", Args: []ast.Term{ast.Var{Name: "Y"}, ast.Var{Name: "Z"}}}},
		},
	}
	node, err := b.BuildRule(rule)
	require.NoError(t, err)
	require.Equal(t, []string{"X", "Z"}, node.Schema().Names())

	mapNode, ok := node.(ir.Map)
	require.True(t, ok)
	joinNode, ok := mapNode.Input.(ir.Join)
	require.True(t, ok)
	require.Equal(t, []int{1}, joinNode.LeftKeys)
}

// not_reached(X) :- node(X), not path(source_node, X).
func TestBuildRuleStratifiedNegation(t *testing.T) {
	c := catalog.New()
	c.Register("node", datalog.NewSchema(datalog.Field{Name: "id", Type: datalog.TypeInt64}))
	c.Register("path", datalog.NewSchema(
		datalog.Field{Name: "from", Type: datalog.TypeInt64},
		datalog.Field{Name: "to", Type: datalog.TypeInt64},
	))
	b := newBuilder(c)
	rule := ast.Rule{
		Head: ast.Atom{Relation: "not_reached", Args: []ast.Term{ast.Var{Name: "X"}}},
		Body: []ast.BodyPredicate{
			ast.Positive{Atom: ast.Atom{Relation: "node", Args: []ast.Term{ast.Var{Name: "X"}}}},
			ast.Negated{Atom: ast.Atom{Relation: "path", Args: []ast.Term{ast.Var{Name: "S"}, ast.Var{Name: "X"}}}},
		},
	}
	_, err := b.BuildRule(rule)
	require.Error(t, err, "negated atom variable S is not bound by any positive atom, so this rule is unsafe")
}

// reachable_count(X, count<Y>) :- path(X, Y).
func TestBuildRuleAggregation(t *testing.T) {
	b := newBuilder(edgeCatalog())
	rule := ast.Rule{
		Head: ast.Atom{Relation: "reachable_count", Args: []ast.Term{
			ast.Var{Name: "X"},
			ast.Aggregate{Fn: ast.AggCount, Var: "Y"},
		}},
		Body: []ast.BodyPredicate{
			ast.Positive{Atom: ast.Atom{Relation: "path", Args: []ast.Term{ast.Var{Name: "X"}, ast.Var{Name: "Y"}}}},
		},
	}
	node, err := b.BuildRule(rule)
	require.NoError(t, err)
	agg, ok := node.(ir.Aggregate)
	require.True(t, ok)
	require.Equal(t, []int{0}, agg.GroupBy)
	require.Len(t, agg.Aggs, 1)
	require.Equal(t, ir.Count, agg.Aggs[0].Func)
	require.Equal(t, []string{"X", "count_Y"}, node.Schema().Names())
}

// top_results(X, top_k<3, S:desc>) :- scored(X, S).
func TestBuildRuleTopKRanking(t *testing.T) {
	c := catalog.New()
	c.Register("scored", datalog.NewSchema(
		datalog.Field{Name: "id", Type: datalog.TypeInt64},
		datalog.Field{Name: "score", Type: datalog.TypeFloat64},
	))
	b := newBuilder(c)
	rule := ast.Rule{
		Head: ast.Atom{Relation: "top_results", Args: []ast.Term{
			ast.Aggregate{Fn: ast.AggTopK, Var: "X", K: 3, OrderVar: "S", Descending: true},
		}},
		Body: []ast.BodyPredicate{
			ast.Positive{Atom: ast.Atom{Relation: "scored", Args: []ast.Term{ast.Var{Name: "X"}, ast.Var{Name: "S"}}}},
		},
	}
	node, err := b.BuildRule(rule)
	require.NoError(t, err)
	agg, ok := node.(ir.Aggregate)
	require.True(t, ok)
	require.Equal(t, 3, agg.Aggs[0].K)
	require.True(t, agg.Aggs[0].Descending)
	require.Equal(t, 1, agg.Aggs[0].OrderCol)
}

// doubled(X, Y) :- counted(X), Y = X * 2.
func TestBuildRuleArithmeticHead(t *testing.T) {
	c := catalog.New()
	c.Register("counted", datalog.NewSchema(datalog.Field{Name: "x", Type: datalog.TypeInt64}))
	b := newBuilder(c)
	rule := ast.Rule{
		Head: ast.Atom{Relation: "doubled", Args: []ast.Term{ast.Var{Name: "X"}, ast.Var{Name: "Y"}}},
		Body: []ast.BodyPredicate{
			ast.Positive{Atom: ast.Atom{Relation: "counted", Args: []ast.Term{ast.Var{Name: "X"}}}},
			ast.Comparison{Left: ast.Var{Name: "Y"}, Op: ast.OpEq, Right: ast.Arithmetic{
				Op: ast.ArithMul, Left: ast.Var{Name: "X"}, Right: ast.IntConst{Value: 2},
			}},
		},
	}
	node, err := b.BuildRule(rule)
	require.NoError(t, err)
	require.Equal(t, []string{"X", "Y"}, node.Schema().Names())
	mapNode, ok := node.(ir.Map)
	require.True(t, ok)
	_, ok = mapNode.Input.(ir.Compute)
	require.True(t, ok)
}

// head uses a variable the body never binds: rejected by safety analysis.
func TestBuildRuleUnsafeHeadVariable(t *testing.T) {
	b := newBuilder(edgeCatalog())
	rule := ast.Rule{
		Head: ast.Atom{Relation: "path", Args: []ast.Term{ast.Var{Name: "X"}, ast.Var{Name: "Z"}}},
		Body: []ast.BodyPredicate{
			ast.Positive{Atom: ast.Atom{Relation: "edge", Args: []ast.Term{ast.Var{Name: "X"}, ast.Var{Name: "Y"}}}},
		},
	}
	_, err := b.BuildRule(rule)
	require.Error(t, err)
}
