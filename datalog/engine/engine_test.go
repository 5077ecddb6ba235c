package engine

import (
	"testing"

	"github.com/lumendb/datalogx/datalog"
	"github.com/stretchr/testify/require"
)

func pairSchema() datalog.TupleSchema {
	return datalog.NewSchema(
		datalog.Field{Name: "X", Type: datalog.TypeInt64},
		datalog.Field{Name: "Y", Type: datalog.TypeInt64},
	)
}

func TestEngineExecuteSourceTransitiveClosure(t *testing.T) {
	e := New(Options{})
	e.RegisterRelation("edge", pairSchema())
	e.RegisterRelation("reachable", pairSchema())

	require.NoError(t, e.Insert("edge", []datalog.Tuple{
		{datalog.Int64(1), datalog.Int64(2)},
		{datalog.Int64(2), datalog.Int64(3)},
		{datalog.Int64(3), datalog.Int64(4)},
	}))

	results, err := e.ExecuteSource(`[
		[(reachable ?x ?y) (edge ?x ?y)]
		[(reachable ?x ?y) (reachable ?x ?z) (edge ?z ?y)]
	]`)
	require.NoError(t, err)

	rows := results["reachable"]
	require.Len(t, rows, 6)

	want := map[[2]int64]bool{
		{1, 2}: true, {2, 3}: true, {3, 4}: true,
		{1, 3}: true, {2, 4}: true, {1, 4}: true,
	}
	for _, r := range rows {
		x, _ := r[0].AsInt64()
		y, _ := r[1].AsInt64()
		require.True(t, want[[2]int64{x, y}], "unexpected row %v", r)
	}
}

func TestEngineExecuteSourceNegationAndFilter(t *testing.T) {
	e := New(Options{})
	e.RegisterRelation("person", datalog.NewSchema(datalog.Field{Name: "Name", Type: datalog.TypeString}))
	e.RegisterRelation("banned", datalog.NewSchema(datalog.Field{Name: "Name", Type: datalog.TypeString}))
	e.RegisterRelation("allowed", datalog.NewSchema(datalog.Field{Name: "Name", Type: datalog.TypeString}))

	require.NoError(t, e.Insert("person", []datalog.Tuple{
		{datalog.String("alice")}, {datalog.String("bob")},
	}))
	require.NoError(t, e.Insert("banned", []datalog.Tuple{{datalog.String("bob")}}))

	results, err := e.ExecuteSource(`[
		[(allowed ?n) (person ?n) (not (banned ?n))]
	]`)
	require.NoError(t, err)
	rows := results["allowed"]
	require.Len(t, rows, 1)
	name, _ := rows[0][0].AsString()
	require.Equal(t, "alice", name)
}

func TestEngineRelationReadsEDBDirectly(t *testing.T) {
	e := New(Options{})
	e.RegisterRelation("edge", pairSchema())
	require.NoError(t, e.Insert("edge", []datalog.Tuple{{datalog.Int64(1), datalog.Int64(2)}}))

	rows, err := e.Relation("edge")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestEngineInsertRejectsUnknownRelation(t *testing.T) {
	e := New(Options{})
	err := e.Insert("missing", []datalog.Tuple{{datalog.Int64(1)}})
	require.Error(t, err)
}
