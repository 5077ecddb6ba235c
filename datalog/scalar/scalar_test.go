package scalar

import (
	"testing"

	"github.com/lumendb/datalogx/datalog"
	"github.com/stretchr/testify/require"
)

func TestL2Distance(t *testing.T) {
	fn, _ := NewRegistry().Lookup("l2_distance")
	v, err := fn.Apply([]datalog.Value{
		datalog.Vector([]float32{0, 0}),
		datalog.Vector([]float32{3, 4}),
	})
	require.NoError(t, err)
	f, _ := v.AsFloat64()
	require.InDelta(t, 5.0, f, 1e-9)
}

func TestL2DistanceDimensionMismatch(t *testing.T) {
	fn, _ := NewRegistry().Lookup("l2_distance")
	_, err := fn.Apply([]datalog.Value{
		datalog.Vector([]float32{0, 0}),
		datalog.Vector([]float32{3, 4, 5}),
	})
	require.Error(t, err)
}

func TestQuantizeRoundTrip(t *testing.T) {
	reg := NewRegistry()
	q, _ := reg.Lookup("quantize_sq8")
	dq, _ := reg.Lookup("dequantize_sq8")
	qv, err := q.Apply([]datalog.Value{datalog.Vector([]float32{1, -1, 0.5})})
	require.NoError(t, err)
	dqv, err := dq.Apply([]datalog.Value{qv})
	require.NoError(t, err)
	out, _ := dqv.AsVector()
	require.InDelta(t, 1.0, out[0], 0.01)
	require.InDelta(t, -1.0, out[1], 0.01)
}

func TestTimeDecayAtHalflife(t *testing.T) {
	fn, _ := NewRegistry().Lookup("time_decay")
	v, err := fn.Apply([]datalog.Value{
		datalog.Timestamp(0),
		datalog.Timestamp(1000),
		datalog.Float64(1000),
	})
	require.NoError(t, err)
	f, _ := v.AsFloat64()
	require.InDelta(t, 0.5, f, 1e-9)
}

func TestStringBuiltins(t *testing.T) {
	fn, _ := NewRegistry().Lookup("starts_with")
	v, err := fn.Apply([]datalog.Value{datalog.String("hello"), datalog.String("he")})
	require.NoError(t, err)
	b, _ := v.AsBool()
	require.True(t, b)
}
