package storage

import (
	"path/filepath"
	"testing"

	"github.com/lumendb/datalogx/datalog"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ns.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func TestSaveLoadNamespaceRoundTrip(t *testing.T) {
	store := openTestStore(t)

	schemas := map[string]datalog.TupleSchema{
		"edge": datalog.NewSchema(
			datalog.Field{Name: "X", Type: datalog.TypeInt64},
			datalog.Field{Name: "Y", Type: datalog.TypeInt64},
		),
		"point": datalog.NewSchema(
			datalog.Field{Name: "Label", Type: datalog.TypeString},
			datalog.Field{Name: "Embedding", Type: datalog.TypeVector},
		),
	}
	facts := map[string][]datalog.Tuple{
		"edge": {
			{datalog.Int64(1), datalog.Int64(2)},
			{datalog.Int64(2), datalog.Int64(3)},
		},
		"point": {
			{datalog.String("a"), datalog.Vector([]float32{1, 2, 3})},
			{datalog.String("b"), datalog.VectorInt8([]int8{-1, 0, 1})},
		},
	}
	ns := Namespace{
		Name:    "kg1",
		Rules:   `[[(reachable ?x ?y) (edge ?x ?y)]]`,
		Schemas: schemas,
		Facts:   facts,
	}

	require.NoError(t, store.SaveNamespace(ns))

	loaded, err := store.LoadNamespace("kg1")
	require.NoError(t, err)
	require.Equal(t, ns.Name, loaded.Name)
	require.Equal(t, ns.Rules, loaded.Rules)
	require.Equal(t, schemas, loaded.Schemas)

	require.Len(t, loaded.Facts["edge"], 2)
	for i, tup := range loaded.Facts["edge"] {
		require.True(t, tup.Equal(facts["edge"][i]))
	}
	require.Len(t, loaded.Facts["point"], 2)
	for i, tup := range loaded.Facts["point"] {
		require.True(t, tup.Equal(facts["point"][i]))
	}
}

func TestLoadNamespaceAbsentIsEmptyNotError(t *testing.T) {
	store := openTestStore(t)

	ns, err := store.LoadNamespace("never-saved")
	require.NoError(t, err)
	require.Equal(t, "never-saved", ns.Name)
	require.Empty(t, ns.Rules)
	require.Empty(t, ns.Schemas)
	require.Empty(t, ns.Facts)
}

func TestSaveNamespaceReplacesStaleFacts(t *testing.T) {
	store := openTestStore(t)

	schema := datalog.NewSchema(datalog.Field{Name: "V", Type: datalog.TypeInt64})
	require.NoError(t, store.SaveNamespace(Namespace{
		Name:    "kg2",
		Schemas: map[string]datalog.TupleSchema{"a": schema, "b": schema},
		Facts: map[string][]datalog.Tuple{
			"a": {{datalog.Int64(1)}},
			"b": {{datalog.Int64(2)}},
		},
	}))

	require.NoError(t, store.SaveNamespace(Namespace{
		Name:    "kg2",
		Schemas: map[string]datalog.TupleSchema{"a": schema},
		Facts: map[string][]datalog.Tuple{
			"a": {{datalog.Int64(9)}},
		},
	}))

	loaded, err := store.LoadNamespace("kg2")
	require.NoError(t, err)
	require.Len(t, loaded.Facts, 1)
	require.Contains(t, loaded.Facts, "a")
	require.NotContains(t, loaded.Facts, "b")
	require.True(t, loaded.Facts["a"][0].Equal(datalog.Tuple{datalog.Int64(9)}))
}

func TestListNamespaces(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveNamespace(Namespace{Name: "alpha"}))
	require.NoError(t, store.SaveNamespace(Namespace{Name: "beta"}))

	names, err := store.ListNamespaces()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"alpha", "beta"}, names)
}
