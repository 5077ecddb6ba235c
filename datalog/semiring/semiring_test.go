package semiring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeetRules(t *testing.T) {
	require.Equal(t, Counting, Meet(Boolean, Counting))
	require.Equal(t, Counting, Meet(Counting, Boolean))
	require.Equal(t, Boolean, Meet(Boolean, Boolean))
	require.Equal(t, Counting, Meet(Unknown, Counting))
}

func TestIsAbelian(t *testing.T) {
	require.True(t, Counting.IsAbelian())
	require.True(t, Boolean.IsAbelian())
	require.False(t, Min.IsAbelian())
	require.False(t, Max.IsAbelian())
}

func TestBooleanSaturatingAdd(t *testing.T) {
	var d Diff = BooleanDiff(120)
	d = d.Add(BooleanDiff(120))
	require.Equal(t, BooleanDiff(127), d)
}

func TestMinDiffAddIsMin(t *testing.T) {
	var d Diff = MinDiff(5)
	d = d.Add(MinDiff(3))
	require.Equal(t, MinDiff(3), d)
	require.True(t, MinInfinity.IsZero())
}

func TestCanDistinctByInverse(t *testing.T) {
	require.True(t, CanDistinctByInverse(Counting))
	require.False(t, CanDistinctByInverse(Min))
}
