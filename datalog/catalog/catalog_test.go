package catalog

import (
	"testing"

	"github.com/lumendb/datalogx/datalog"
	"github.com/stretchr/testify/require"
)

func schema(names ...string) datalog.TupleSchema {
	fields := make([]datalog.Field, len(names))
	for i, n := range names {
		fields[i] = datalog.Field{Name: n, Type: datalog.TypeInt64}
	}
	return datalog.NewSchema(fields...)
}

func TestRegisterLookup(t *testing.T) {
	c := New()
	c.Register("edge", schema("x", "y"))
	s, ok := c.Lookup("edge")
	require.True(t, ok)
	require.Equal(t, 2, s.Arity())

	c.Unregister("edge")
	_, ok = c.Lookup("edge")
	require.False(t, ok)
}

func TestMustLookupError(t *testing.T) {
	c := New()
	_, err := c.MustLookup("missing")
	require.Error(t, err)
}

func TestInferSchema(t *testing.T) {
	s := InferSchema(datalog.Tuple{datalog.Int64(1), datalog.String("a")})
	require.Equal(t, "col0", s.Fields[0].Name)
	require.Equal(t, datalog.TypeInt64, s.Fields[0].Type)
	require.Equal(t, datalog.TypeString, s.Fields[1].Type)
}

func TestJoinKeys(t *testing.T) {
	left := schema("x", "y")
	right := schema("y", "z")
	lk, rk, names := JoinKeys(left, right)
	require.Equal(t, []int{1}, lk)
	require.Equal(t, []int{0}, rk)
	require.Equal(t, []string{"y"}, names)
}

func TestRelationsSorted(t *testing.T) {
	c := New()
	c.Register("b", schema("x"))
	c.Register("a", schema("x"))
	require.Equal(t, []string{"a", "b"}, c.Relations())
}
