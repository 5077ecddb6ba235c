package optimizer

import (
	"testing"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ir"
	"github.com/stretchr/testify/require"
)

func TestReduceSemijoinsRewritesSimpleJoin(t *testing.T) {
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

	result := ReduceSemijoins(join, map[string]bool{})
	rewritten, ok := result.(ir.Join)
	require.True(t, ok)

	_, leftIsDistinct := rewritten.Left.(ir.Distinct)
	require.True(t, leftIsDistinct, "left side should be wrapped in Distinct(Map(...))")
	_, rightIsDistinct := rewritten.Right.(ir.Distinct)
	require.True(t, rightIsDistinct, "right side should be wrapped in Distinct(Map(...))")
	require.Equal(t, join.Schema(), rewritten.Schema())
}

func TestReduceSemijoinsSkipsRecursiveRelation(t *testing.T) {
	left := ir.NewScan("reachable", schemaXY())
	right := ir.NewScan("edge", schemaXY())
	join := ir.NewJoin(left, right, []int{1}, []int{0}, schemaXY())

	result := ReduceSemijoins(join, map[string]bool{"reachable": true})
	require.Equal(t, join, result, "a join touching a recursive relation must be left untouched")
}

func TestApplySemijoinReductionSkipsMultiJoinRules(t *testing.T) {
	a := ir.NewScan("a", schemaXY())
	b := ir.NewScan("b", schemaXY())
	c := ir.NewScan("c", schemaXY())
	j1 := ir.NewJoin(a, b, []int{1}, []int{0}, schemaXY())
	j2 := ir.NewJoin(j1, c, []int{1}, []int{0}, schemaXY())

	result := ApplySemijoinReduction(j2, map[string]bool{})
	require.Equal(t, j2, result, "a rule with more than one join must be left to join planning instead")
}

func TestReduceSemijoinsSkipsSelfJoin(t *testing.T) {
	left := ir.NewScan("edge", schemaXY())
	right := ir.NewScan("edge", schemaXY())
	join := ir.NewJoin(left, right, []int{1}, []int{0}, schemaXY())

	result := ReduceSemijoins(join, map[string]bool{})
	require.Equal(t, join, result, "a self-join must be left untouched")
}
