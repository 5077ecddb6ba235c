package scalar

import (
	"fmt"
	"math"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ir"
)

// distanceFn is a fixed-arity (vector, vector) -> float64 builtin.
type distanceFn struct {
	name string
	fn   func(a, b []float32) (float64, error)
}

func (d distanceFn) Name() string  { return d.name }
func (d distanceFn) Arity() int    { return 2 }
func (d distanceFn) Apply(args []datalog.Value) (datalog.Value, error) {
	a, ok := args[0].AsVector()
	if !ok {
		return datalog.Null, fmt.Errorf("%s: first argument is not a vector", d.name)
	}
	b, ok := args[1].AsVector()
	if !ok {
		return datalog.Null, fmt.Errorf("%s: second argument is not a vector", d.name)
	}
	v, err := d.fn(a, b)
	if err != nil {
		return datalog.Null, err
	}
	return datalog.Float64(v), nil
}

func requireSameDim(a, b []float32) error {
	if len(a) != len(b) {
		return fmt.Errorf("vector dimension mismatch: %d vs %d", len(a), len(b))
	}
	return nil
}

// l2Distance computes Euclidean distance: sqrt(sum((a[i]-b[i])^2)).
func l2Distance(a, b []float32) (float64, error) {
	if err := requireSameDim(a, b); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// cosineDistance computes 1 - cosine similarity.
func cosineDistance(a, b []float32) (float64, error) {
	if err := requireSameDim(a, b); err != nil {
		return 0, err
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}

// dotProduct computes the raw dot product (treated as a "distance" in
// the sense that larger is closer; callers sort accordingly).
func dotProduct(a, b []float32) (float64, error) {
	if err := requireSameDim(a, b); err != nil {
		return 0, err
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}

// manhattanDistance computes sum(|a[i]-b[i]|).
func manhattanDistance(a, b []float32) (float64, error) {
	if err := requireSameDim(a, b); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	return sum, nil
}

func distanceFunctions() []ir.BuiltinFunction {
	return []ir.BuiltinFunction{
		distanceFn{name: "l2_distance", fn: l2Distance},
		distanceFn{name: "cosine_distance", fn: cosineDistance},
		distanceFn{name: "dot_product", fn: dotProduct},
		distanceFn{name: "manhattan_distance", fn: manhattanDistance},
	}
}
