package optimizer

import (
	"testing"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ast"
	"github.com/lumendb/datalogx/datalog/ir"
	"github.com/lumendb/datalogx/datalog/semiring"
	"github.com/stretchr/testify/require"
)

func schemaXY() datalog.TupleSchema {
	return datalog.NewSchema(
		datalog.Field{Name: "X", Type: datalog.TypeInt64},
		datalog.Field{Name: "Y", Type: datalog.TypeInt64},
	)
}

func TestRewriteEliminatesIdentityMap(t *testing.T) {
	scan := ir.NewScan("edge", schemaXY())
	m := ir.NewMap(scan, []int{0, 1}, schemaXY())
	result := Rewrite(m)
	_, isMap := result.(ir.Map)
	require.False(t, isMap, "identity map should be eliminated")
	require.Equal(t, scan, result)
}

func TestRewriteFusesNestedFilters(t *testing.T) {
	scan := ir.NewScan("edge", schemaXY())
	f1 := ir.NewFilter(scan, ir.ColumnCompare{Col: 0, Op: ast.OpGt, Value: datalog.Int64(0)})
	f2 := ir.NewFilter(f1, ir.ColumnCompare{Col: 1, Op: ast.OpGt, Value: datalog.Int64(0)})
	result := Rewrite(f2)
	filter, ok := result.(ir.Filter)
	require.True(t, ok)
	_, nestedFilter := filter.Input.(ir.Filter)
	require.False(t, nestedFilter, "adjacent filters should fuse into one")
}

func TestRewriteRemovesAlwaysTrueFilter(t *testing.T) {
	scan := ir.NewScan("edge", schemaXY())
	f := ir.NewFilter(scan, ir.True{})
	result := Rewrite(f)
	require.Equal(t, scan, result)
}

func TestRewritePushesFilterIntoJoinRightSide(t *testing.T) {
	left := ir.NewScan("edge", schemaXY())
	right := ir.NewScan("weight", datalog.NewSchema(
		datalog.Field{Name: "Y", Type: datalog.TypeInt64},
		datalog.Field{Name: "W", Type: datalog.TypeFloat64},
	))
	join := ir.NewJoin(left, right, []int{1}, []int{0}, datalog.NewSchema(
		datalog.Field{Name: "X", Type: datalog.TypeInt64},
		datalog.Field{Name: "Y", Type: datalog.TypeInt64},
		datalog.Field{Name: "W", Type: datalog.TypeFloat64},
	))
	// W > 0 only reads column 2, which belongs entirely to the right side.
	filter := ir.NewFilter(join, ir.ColumnCompare{Col: 2, Op: ast.OpGt, Value: datalog.Float64(0)})
	result := Rewrite(filter)
	joinResult, ok := result.(ir.Join)
	require.True(t, ok, "filter should push down leaving the bare join")
	_, rightIsFilter := joinResult.Right.(ir.Filter)
	require.True(t, rightIsFilter)
}

func TestReorderJoinsPrefersSharedKeys(t *testing.T) {
	a := ir.NewScan("a", datalog.NewSchema(datalog.Field{Name: "X", Type: datalog.TypeInt64}))
	b := ir.NewScan("b", datalog.NewSchema(
		datalog.Field{Name: "X", Type: datalog.TypeInt64},
		datalog.Field{Name: "Y", Type: datalog.TypeInt64},
	))
	c := ir.NewScan("c", datalog.NewSchema(datalog.Field{Name: "Z", Type: datalog.TypeInt64}))

	chain := ir.NewJoin(ir.NewJoin(a, b, nil, nil, datalog.TupleSchema{}), c, nil, nil, datalog.TupleSchema{})
	result := ReorderJoins(chain)
	join, ok := result.(ir.Join)
	require.True(t, ok)
	// a and b share "X" and should join first; c shares nothing with
	// either and should be folded in last, as the outermost (keyless)
	// join in the rebuilt left-deep chain.
	require.Empty(t, join.RightKeys)
	inner, ok := join.Left.(ir.Join)
	require.True(t, ok)
	require.NotEmpty(t, inner.RightKeys)
}

func TestAnnotateSemiringsPropagatesMin(t *testing.T) {
	scan := ir.NewScan("scored", datalog.NewSchema(
		datalog.Field{Name: "id", Type: datalog.TypeInt64},
		datalog.Field{Name: "dist", Type: datalog.TypeFloat64},
	))
	agg := ir.NewAggregate(scan, []int{0}, []ir.AggSpec{{Func: ir.Min, Col: 1, Alias: "dist"}}, datalog.TupleSchema{})
	result := AnnotateSemirings(agg)
	require.Equal(t, semiring.Min, result.Semiring())
}

func TestExtractSharedViewsDedupsIdenticalScans(t *testing.T) {
	left := ir.NewScan("edge", schemaXY())
	right := ir.NewScan("edge", schemaXY())
	join := ir.NewJoin(left, right, []int{0}, []int{0}, schemaXY())
	result, seen := ExtractSharedViews(join)
	j := result.(ir.Join)
	require.Equal(t, j.Left, j.Right, "identical scans should be deduplicated to the same node")
	require.Contains(t, seen, left.String())
}
