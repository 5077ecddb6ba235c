package ir

import (
	"fmt"
	"math"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ast"
	"github.com/lumendb/datalogx/datalog/errors"
)

// Expression is the IR's arithmetic/function expression tree, evaluated
// by the Compute operator to append new columns to a row. Runtime
// arithmetic failures (division/modulo by zero, vector dimension
// mismatch) are tuple-local: Eval returns an error that the Compute
// operator turns into "drop this tuple", never a fatal abort.
type Expression interface {
	Eval(row datalog.Tuple) (datalog.Value, error)
	String() string
}

// ColumnRef reads one column of the input row.
type ColumnRef struct{ Col int }

func (e ColumnRef) Eval(row datalog.Tuple) (datalog.Value, error) {
	if e.Col >= len(row) {
		return datalog.Null, errors.Runtimef("column-ref", "column %d out of range (arity %d)", e.Col, len(row))
	}
	return row[e.Col], nil
}
func (e ColumnRef) String() string { return fmt.Sprintf("col[%d]", e.Col) }

// Const is a literal value expression.
type Const struct{ Value datalog.Value }

func (e Const) Eval(datalog.Tuple) (datalog.Value, error) { return e.Value, nil }
func (e Const) String() string                            { return e.Value.String() }

// Arith applies an arithmetic operator to two sub-expressions.
type Arith struct {
	Op          ast.ArithOp
	Left, Right Expression
}

func (e Arith) Eval(row datalog.Tuple) (datalog.Value, error) {
	lv, err := e.Left.Eval(row)
	if err != nil {
		return datalog.Null, err
	}
	rv, err := e.Right.Eval(row)
	if err != nil {
		return datalog.Null, err
	}
	lf, lok := lv.AsFloat64()
	rf, rok := rv.AsFloat64()
	if !lok || !rok {
		return datalog.Null, errors.Runtimef("arith", "non-numeric operand to %s", e.Op)
	}
	// Integer-preserving path: if both operands are Int32/Int64, compute
	// in int64 so "+1" heads stay integers rather than drifting to float.
	li, liok := lv.AsInt64()
	ri, riok := rv.AsInt64()
	if liok && riok && e.Op != ast.ArithDiv {
		switch e.Op {
		case ast.ArithAdd:
			return datalog.Int64(li + ri), nil
		case ast.ArithSub:
			return datalog.Int64(li - ri), nil
		case ast.ArithMul:
			return datalog.Int64(li * ri), nil
		case ast.ArithMod:
			if ri == 0 {
				return datalog.Null, errors.Runtimef("arith", "modulo by zero")
			}
			return datalog.Int64(li % ri), nil
		}
	}
	switch e.Op {
	case ast.ArithAdd:
		return datalog.Float64(lf + rf), nil
	case ast.ArithSub:
		return datalog.Float64(lf - rf), nil
	case ast.ArithMul:
		return datalog.Float64(lf * rf), nil
	case ast.ArithDiv:
		if rf == 0 {
			return datalog.Null, errors.Runtimef("arith", "division by zero")
		}
		return datalog.Float64(lf / rf), nil
	case ast.ArithMod:
		if rf == 0 {
			return datalog.Null, errors.Runtimef("arith", "modulo by zero")
		}
		return datalog.Float64(math.Mod(lf, rf)), nil
	}
	return datalog.Null, errors.Runtimef("arith", "unknown operator %v", e.Op)
}

func (e Arith) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// BuiltinFunction is a registered scalar builtin (see datalog/scalar),
// invoked through a Call expression.
type BuiltinFunction interface {
	Name() string
	Arity() int // -1 means variadic
	Apply(args []datalog.Value) (datalog.Value, error)
}

// Call invokes a BuiltinFunction with evaluated argument expressions.
type Call struct {
	Fn   BuiltinFunction
	Args []Expression
}

func (e Call) Eval(row datalog.Tuple) (datalog.Value, error) {
	if e.Fn.Arity() >= 0 && e.Fn.Arity() != len(e.Args) {
		return datalog.Null, errors.Compilef("call", "%s expects %d args, got %d", e.Fn.Name(), e.Fn.Arity(), len(e.Args))
	}
	args := make([]datalog.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := a.Eval(row)
		if err != nil {
			return datalog.Null, err
		}
		args[i] = v
	}
	return e.Fn.Apply(args)
}

func (e Call) String() string { return fmt.Sprintf("%s(...)", e.Fn.Name()) }
