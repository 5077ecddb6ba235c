package dataflow

import (
	"testing"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ir"
	"github.com/lumendb/datalogx/datalog/semiring"
	"github.com/stretchr/testify/require"
)

func scoreCollection() *Collection {
	c := NewCollection(semiring.Boolean)
	rows := []datalog.Tuple{
		{datalog.String("x"), datalog.Int64(1), datalog.Float64(0.5)},
		{datalog.String("x"), datalog.Int64(2), datalog.Float64(0.9)},
		{datalog.String("x"), datalog.Int64(3), datalog.Float64(0.1)},
		{datalog.String("y"), datalog.Int64(4), datalog.Float64(0.7)},
	}
	for _, r := range rows {
		c.Add(r, semiring.BooleanOne)
	}
	return c
}

func scoreSchema() datalog.TupleSchema {
	return datalog.NewSchema(
		datalog.Field{Name: "Group", Type: datalog.TypeString},
		datalog.Field{Name: "ID", Type: datalog.TypeInt64},
		datalog.Field{Name: "Score", Type: datalog.TypeFloat64},
	)
}

func TestEvalAggregateSum(t *testing.T) {
	env := newEnv(map[string]*Collection{"scored": scoreCollection()})
	g := NewGenerator(env)

	scan := ir.NewScan("scored", scoreSchema()).WithSemiring(semiring.Boolean).(ir.Scan)
	agg := ir.NewAggregate(scan, []int{0}, []ir.AggSpec{{Func: ir.Sum, Col: 1, Alias: "ID"}}, datalog.TupleSchema{}).WithSemiring(semiring.Counting).(ir.Aggregate)

	out, err := g.Eval(agg)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	require.True(t, out.Contains(datalog.Tuple{datalog.String("x"), datalog.Float64(6)}))
	require.True(t, out.Contains(datalog.Tuple{datalog.String("y"), datalog.Float64(4)}))
}

func TestEvalAggregateMin(t *testing.T) {
	env := newEnv(map[string]*Collection{"scored": scoreCollection()})
	g := NewGenerator(env)

	scan := ir.NewScan("scored", scoreSchema()).WithSemiring(semiring.Boolean).(ir.Scan)
	agg := ir.NewAggregate(scan, []int{0}, []ir.AggSpec{{Func: ir.Min, Col: 2, Alias: "Score"}}, datalog.TupleSchema{}).WithSemiring(semiring.Min).(ir.Aggregate)

	out, err := g.Eval(agg)
	require.NoError(t, err)
	require.True(t, out.Contains(datalog.Tuple{datalog.String("x"), datalog.Float64(0.1)}))
}

func TestEvalAggregateTopK(t *testing.T) {
	env := newEnv(map[string]*Collection{"scored": scoreCollection()})
	g := NewGenerator(env)

	scan := ir.NewScan("scored", scoreSchema()).WithSemiring(semiring.Boolean).(ir.Scan)
	agg := ir.NewAggregate(scan, []int{0}, []ir.AggSpec{
		{Func: ir.TopK, Col: 1, Alias: "ID", K: 2, OrderCol: 2, Descending: true},
	}, datalog.TupleSchema{}).WithSemiring(semiring.Counting).(ir.Aggregate)

	out, err := g.Eval(agg)
	require.NoError(t, err)
	// Group "x" has 3 candidates, top 2 by Score desc are ID=2 (0.9) and
	// ID=1 (0.5); group "y" has only one candidate (ID=4).
	require.Equal(t, 3, out.Len())
	require.True(t, out.Contains(datalog.Tuple{datalog.String("x"), datalog.Int64(2)}))
	require.True(t, out.Contains(datalog.Tuple{datalog.String("x"), datalog.Int64(1)}))
	require.False(t, out.Contains(datalog.Tuple{datalog.String("x"), datalog.Int64(3)}))
}

func TestEvalAggregateWithinRadius(t *testing.T) {
	env := newEnv(map[string]*Collection{"scored": scoreCollection()})
	g := NewGenerator(env)

	scan := ir.NewScan("scored", scoreSchema()).WithSemiring(semiring.Boolean).(ir.Scan)
	agg := ir.NewAggregate(scan, []int{0}, []ir.AggSpec{
		{Func: ir.WithinRadius, Col: 1, Alias: "ID", DistCol: 2, MaxDist: 0.6},
	}, datalog.TupleSchema{}).WithSemiring(semiring.Counting).(ir.Aggregate)

	out, err := g.Eval(agg)
	require.NoError(t, err)
	require.True(t, out.Contains(datalog.Tuple{datalog.String("x"), datalog.Int64(1)}))
	require.True(t, out.Contains(datalog.Tuple{datalog.String("x"), datalog.Int64(3)}))
	require.False(t, out.Contains(datalog.Tuple{datalog.String("x"), datalog.Int64(2)}))
}
