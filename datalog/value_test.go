package datalog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueEqualCoercions(t *testing.T) {
	require.True(t, Int32(5).Equal(Int64(5)))
	require.True(t, Int64(5).Equal(Float64(5)))
	require.True(t, Timestamp(10).Equal(Int64(10)))
	require.False(t, String("5").Equal(Int64(5)))
}

func TestValueCompareNaNSortsBelowAll(t *testing.T) {
	nan := Float64(math.NaN())
	negInf := Float64(math.Inf(-1))
	require.Equal(t, -1, nan.Compare(negInf))
	require.Equal(t, 1, negInf.Compare(nan))
	require.Equal(t, 0, nan.Compare(Float64(math.NaN())))
}

func TestValueHashCanonicalizesNaN(t *testing.T) {
	a := Float64(math.NaN())
	b := Value{kind: KindFloat64, f: math.Float64frombits(0x7FF8000000000002)}
	require.True(t, math.IsNaN(b.f))
	require.Equal(t, a.Hash(), b.Hash())
}

func TestVectorValueEquality(t *testing.T) {
	v1 := Vector([]float32{1, 2, 3})
	v2 := Vector([]float32{1, 2, 3})
	v3 := Vector([]float32{1, 2, 4})
	require.True(t, v1.Equal(v2))
	require.False(t, v1.Equal(v3))
}

func TestTupleEqualAndHash(t *testing.T) {
	t1 := Tuple{Int64(1), String("a")}
	t2 := Tuple{Int64(1), String("a")}
	t3 := Tuple{Int64(2), String("a")}
	require.True(t, t1.Equal(t2))
	require.Equal(t, t1.Hash(), t2.Hash())
	require.False(t, t1.Equal(t3))
}

func TestSchemaValidateArityAndCoercion(t *testing.T) {
	s := NewSchema(Field{Name: "x", Type: TypeInt64}, Field{Name: "y", Type: TypeFloat64})
	require.NoError(t, s.Validate(Tuple{Int32(1), Int64(2)}))
	require.Error(t, s.Validate(Tuple{Int64(1)}))
	require.Error(t, s.Validate(Tuple{String("no"), Float64(1)}))
}

func TestSchemaFieldIndex(t *testing.T) {
	s := NewSchema(Field{Name: "a", Type: TypeInt64}, Field{Name: "b", Type: TypeString})
	require.Equal(t, 0, s.FieldIndex("a"))
	require.Equal(t, 1, s.FieldIndex("b"))
	require.Equal(t, -1, s.FieldIndex("c"))
}
