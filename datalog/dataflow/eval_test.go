package dataflow

import (
	"testing"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ast"
	"github.com/lumendb/datalogx/datalog/ir"
	"github.com/lumendb/datalogx/datalog/semiring"
	"github.com/stretchr/testify/require"
)

func edgeCollection(pairs [][2]int64) *Collection {
	c := NewCollection(semiring.Boolean)
	for _, p := range pairs {
		c.Add(datalog.Tuple{datalog.Int64(p[0]), datalog.Int64(p[1])}, semiring.BooleanOne)
	}
	return c
}

func schemaAB() datalog.TupleSchema {
	return datalog.NewSchema(
		datalog.Field{Name: "A", Type: datalog.TypeInt64},
		datalog.Field{Name: "B", Type: datalog.TypeInt64},
	)
}

func newEnv(relations map[string]*Collection) *Env {
	return &Env{Relations: relations, Indexes: MapIndexSet{}, Budget: Budget{}}
}

func TestEvalScanReturnsRegisteredRelation(t *testing.T) {
	edges := edgeCollection([][2]int64{{1, 2}, {2, 3}})
	env := newEnv(map[string]*Collection{"edge": edges})
	g := NewGenerator(env)

	scan := ir.NewScan("edge", schemaAB()).WithSemiring(semiring.Boolean).(ir.Scan)
	out, err := g.Eval(scan)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
}

func TestEvalFilterKeepsMatchingRows(t *testing.T) {
	edges := edgeCollection([][2]int64{{1, 2}, {2, 3}, {3, 1}})
	env := newEnv(map[string]*Collection{"edge": edges})
	g := NewGenerator(env)

	scan := ir.NewScan("edge", schemaAB()).WithSemiring(semiring.Boolean).(ir.Scan)
	filter := ir.NewFilter(scan, ir.ColumnCompare{Col: 0, Op: ast.OpGt, Value: datalog.Int64(1)}).WithSemiring(semiring.Boolean).(ir.Filter)

	out, err := g.Eval(filter)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	require.True(t, out.Contains(datalog.Tuple{datalog.Int64(2), datalog.Int64(3)}))
}

func TestEvalJoinOnSharedColumn(t *testing.T) {
	edges := edgeCollection([][2]int64{{1, 2}, {2, 3}})
	env := newEnv(map[string]*Collection{"edge": edges})
	g := NewGenerator(env)

	left := ir.NewScan("edge", schemaAB()).WithSemiring(semiring.Boolean).(ir.Scan)
	right := ir.NewScan("edge", schemaAB()).WithSemiring(semiring.Boolean).(ir.Scan)
	outSchema := datalog.NewSchema(
		datalog.Field{Name: "A", Type: datalog.TypeInt64},
		datalog.Field{Name: "B", Type: datalog.TypeInt64},
		datalog.Field{Name: "C", Type: datalog.TypeInt64},
	)
	join := ir.NewJoin(left, right, []int{1}, []int{0}, outSchema).WithSemiring(semiring.Boolean).(ir.Join)

	out, err := g.Eval(join)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	require.True(t, out.Contains(datalog.Tuple{datalog.Int64(1), datalog.Int64(2), datalog.Int64(3)}))
}

func TestEvalAntijoinExcludesMatches(t *testing.T) {
	nodes := NewCollection(semiring.Boolean)
	nodes.Add(datalog.Tuple{datalog.Int64(1)}, semiring.BooleanOne)
	nodes.Add(datalog.Tuple{datalog.Int64(2)}, semiring.BooleanOne)
	banned := NewCollection(semiring.Boolean)
	banned.Add(datalog.Tuple{datalog.Int64(2)}, semiring.BooleanOne)

	env := newEnv(map[string]*Collection{"node": nodes, "banned": banned})
	g := NewGenerator(env)

	nodeSchema := datalog.NewSchema(datalog.Field{Name: "X", Type: datalog.TypeInt64})
	left := ir.NewScan("node", nodeSchema).WithSemiring(semiring.Boolean).(ir.Scan)
	right := ir.NewScan("banned", nodeSchema).WithSemiring(semiring.Boolean).(ir.Scan)
	anti := ir.NewAntijoin(left, right, []int{0}, []int{0}).WithSemiring(semiring.Boolean).(ir.Antijoin)

	out, err := g.Eval(anti)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	require.True(t, out.Contains(datalog.Tuple{datalog.Int64(1)}))
}

func TestEvalComputeDropsTupleOnRuntimeError(t *testing.T) {
	rows := NewCollection(semiring.Boolean)
	rows.Add(datalog.Tuple{datalog.Int64(10), datalog.Int64(2)}, semiring.BooleanOne)
	rows.Add(datalog.Tuple{datalog.Int64(10), datalog.Int64(0)}, semiring.BooleanOne)

	env := newEnv(map[string]*Collection{"pair": rows})
	g := NewGenerator(env)

	sch := datalog.NewSchema(
		datalog.Field{Name: "N", Type: datalog.TypeInt64},
		datalog.Field{Name: "D", Type: datalog.TypeInt64},
	)
	scan := ir.NewScan("pair", sch).WithSemiring(semiring.Boolean).(ir.Scan)
	compute := ir.NewCompute(scan, []ir.ComputedColumn{
		{Name: "Q", Expr: ir.Arith{Op: ast.ArithDiv, Left: ir.ColumnRef{Col: 0}, Right: ir.ColumnRef{Col: 1}}, Type: datalog.TypeFloat64},
	}).WithSemiring(semiring.Boolean).(ir.Compute)

	out, err := g.Eval(compute)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len(), "the division-by-zero tuple should be dropped, not abort evaluation")
}

func TestEvalUnionMergesDistinctSemirings(t *testing.T) {
	bools := NewCollection(semiring.Boolean)
	bools.Add(datalog.Tuple{datalog.Int64(1)}, semiring.BooleanOne)
	counts := NewCollection(semiring.Counting)
	counts.Add(datalog.Tuple{datalog.Int64(2)}, semiring.CountingDiff(3))

	env := newEnv(map[string]*Collection{"a": bools, "b": counts})
	g := NewGenerator(env)

	sch := datalog.NewSchema(datalog.Field{Name: "X", Type: datalog.TypeInt64})
	scanA := ir.NewScan("a", sch).WithSemiring(semiring.Boolean).(ir.Scan)
	scanB := ir.NewScan("b", sch).WithSemiring(semiring.Counting).(ir.Scan)
	union := ir.NewUnion(sch, scanA, scanB).WithSemiring(semiring.Counting).(ir.Union)

	out, err := g.Eval(union)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
}
