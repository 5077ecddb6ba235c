package engine

import (
	"testing"

	"github.com/lumendb/datalogx/datalog"
	"github.com/stretchr/testify/require"
)

func TestEngineSnapshotAndSwitchNamespace(t *testing.T) {
	e := New(Options{})
	e.RegisterRelation("edge", pairSchema())
	require.NoError(t, e.Insert("edge", []datalog.Tuple{
		{datalog.Int64(1), datalog.Int64(2)},
	}))
	e.SetRuleSource(`[[(reachable ?x ?y) (edge ?x ?y)]]`)

	snap := e.Snapshot("kg1")
	require.Equal(t, "kg1", snap.Name)
	require.Equal(t, `[[(reachable ?x ?y) (edge ?x ?y)]]`, snap.Rules)
	require.Len(t, snap.Facts["edge"], 1)

	other := New(Options{})
	other.SwitchNamespace(Namespace{
		Name:    snap.Name,
		Rules:   snap.Rules,
		Schemas: snap.Schemas,
		Facts:   snap.Facts,
	})

	rows, err := other.Relation("edge")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, snap.Rules, other.RuleSource())
}

func TestSwitchNamespaceDropsPriorState(t *testing.T) {
	e := New(Options{})
	e.RegisterRelation("old", datalog.NewSchema(datalog.Field{Name: "V", Type: datalog.TypeInt64}))
	require.NoError(t, e.Insert("old", []datalog.Tuple{{datalog.Int64(9)}}))

	e.SwitchNamespace(Namespace{
		Name:    "fresh",
		Schemas: map[string]datalog.TupleSchema{},
		Facts:   map[string][]datalog.Tuple{},
	})

	_, err := e.Relation("old")
	require.Error(t, err, "old relation must not survive a namespace switch")
}
