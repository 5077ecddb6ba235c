package scalar

import (
	"fmt"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ir"
)

// quantizeSQ8 implements scalar quantization of a Vector to VectorInt8:
// each component is linearly mapped from [-1,1] (the typical normalized
// embedding range) to the int8 range, mirroring the
// QuantizationConfig{Type: "scalar", NBits: 8} shape from the corpus's
// vector-store example.
type quantizeSQ8 struct{}

func (quantizeSQ8) Name() string { return "quantize_sq8" }
func (quantizeSQ8) Arity() int   { return 1 }
func (quantizeSQ8) Apply(args []datalog.Value) (datalog.Value, error) {
	v, ok := args[0].AsVector()
	if !ok {
		return datalog.Null, fmt.Errorf("quantize_sq8: argument is not a vector")
	}
	out := make([]int8, len(v))
	for i, f := range v {
		clamped := f
		if clamped > 1 {
			clamped = 1
		}
		if clamped < -1 {
			clamped = -1
		}
		out[i] = int8(clamped * 127)
	}
	return datalog.VectorInt8(out), nil
}

// dequantizeSQ8 is the inverse mapping back to float32.
type dequantizeSQ8 struct{}

func (dequantizeSQ8) Name() string { return "dequantize_sq8" }
func (dequantizeSQ8) Arity() int   { return 1 }
func (dequantizeSQ8) Apply(args []datalog.Value) (datalog.Value, error) {
	v, ok := args[0].AsVectorInt8()
	if !ok {
		return datalog.Null, fmt.Errorf("dequantize_sq8: argument is not a quantized vector")
	}
	out := make([]float32, len(v))
	for i, b := range v {
		out[i] = float32(b) / 127.0
	}
	return datalog.Vector(out), nil
}

// quantizeBQ implements binary quantization: each component becomes +1
// or -1 depending on its sign, stored as int8, mirroring
// QuantizationConfig{Type: "binary"}.
type quantizeBQ struct{}

func (quantizeBQ) Name() string { return "quantize_bq" }
func (quantizeBQ) Arity() int   { return 1 }
func (quantizeBQ) Apply(args []datalog.Value) (datalog.Value, error) {
	v, ok := args[0].AsVector()
	if !ok {
		return datalog.Null, fmt.Errorf("quantize_bq: argument is not a vector")
	}
	out := make([]int8, len(v))
	for i, f := range v {
		if f >= 0 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return datalog.VectorInt8(out), nil
}

func quantizeFunctions() []ir.BuiltinFunction {
	return []ir.BuiltinFunction{quantizeSQ8{}, dequantizeSQ8{}, quantizeBQ{}}
}
