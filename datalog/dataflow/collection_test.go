package dataflow

import (
	"testing"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/semiring"
	"github.com/stretchr/testify/require"
)

func TestCollectionConsolidatesDistinctVectorsOfEqualLength(t *testing.T) {
	c := NewCollection(semiring.Counting)
	a := datalog.Tuple{datalog.Int64(1), datalog.Vector([]float32{1, 2, 3})}
	b := datalog.Tuple{datalog.Int64(1), datalog.Vector([]float32{9, 9, 9})}

	c.Add(a, semiring.CountingOne)
	c.Add(b, semiring.CountingOne)

	require.Equal(t, 2, c.Len(), "distinct vector content must not collapse into one entry")
	require.True(t, c.Contains(a))
	require.True(t, c.Contains(b))
}

func TestCollectionCompactsZeroDiff(t *testing.T) {
	c := NewCollection(semiring.Counting)
	row := datalog.Tuple{datalog.Int64(1)}
	c.Add(row, semiring.CountingOne)
	require.Equal(t, 1, c.Len())
	c.Add(row, semiring.CountingDiff(-1))
	require.Equal(t, 0, c.Len())
	require.False(t, c.Contains(row))
}

func TestKeyOfDistinguishesVectorContent(t *testing.T) {
	a := datalog.Tuple{datalog.Vector([]float32{1, 2})}
	b := datalog.Tuple{datalog.Vector([]float32{3, 4})}
	require.NotEqual(t, keyOf(a, []int{0}), keyOf(b, []int{0}))
}

func TestMultiplyDiffBoolean(t *testing.T) {
	require.Equal(t, semiring.BooleanOne, multiplyDiff(semiring.Boolean, semiring.BooleanOne, semiring.BooleanOne))
	require.Equal(t, semiring.BooleanZero, multiplyDiff(semiring.Boolean, semiring.BooleanZero, semiring.BooleanOne))
}

func TestReinterpretBooleanToCounting(t *testing.T) {
	out := reinterpret(semiring.BooleanOne, semiring.Counting)
	require.Equal(t, semiring.CountingDiff(1), out)
}
