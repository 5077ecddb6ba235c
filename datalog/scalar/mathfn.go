package scalar

import (
	"fmt"
	"math"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ir"
)

type mathUnaryFn struct {
	name string
	fn   func(f float64) float64
}

func (f mathUnaryFn) Name() string { return f.name }
func (f mathUnaryFn) Arity() int   { return 1 }
func (f mathUnaryFn) Apply(args []datalog.Value) (datalog.Value, error) {
	v, ok := args[0].AsFloat64()
	if !ok {
		return datalog.Null, fmt.Errorf("%s: argument is not numeric", f.name)
	}
	return datalog.Float64(f.fn(v)), nil
}

func mathFunctions() []ir.BuiltinFunction {
	return []ir.BuiltinFunction{
		mathUnaryFn{name: "abs", fn: math.Abs},
		mathUnaryFn{name: "sqrt", fn: math.Sqrt},
		mathUnaryFn{name: "round", fn: math.Round},
		mathUnaryFn{name: "floor", fn: math.Floor},
		mathUnaryFn{name: "ceil", fn: math.Ceil},
	}
}
