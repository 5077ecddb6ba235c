package scalar

import (
	"fmt"
	"strings"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ir"
)

// stringPredicateFn is a (string, string) -> bool builtin, generalized
// from the query/function_registry.go string builtin set.
type stringPredicateFn struct {
	name string
	fn   func(s, sub string) bool
}

func (f stringPredicateFn) Name() string { return f.name }
func (f stringPredicateFn) Arity() int   { return 2 }
func (f stringPredicateFn) Apply(args []datalog.Value) (datalog.Value, error) {
	s, ok := args[0].AsString()
	if !ok {
		return datalog.Null, fmt.Errorf("%s: first argument is not a string", f.name)
	}
	sub, ok := args[1].AsString()
	if !ok {
		return datalog.Null, fmt.Errorf("%s: second argument is not a string", f.name)
	}
	return datalog.Bool(f.fn(s, sub)), nil
}

type stringUnaryFn struct {
	name string
	fn   func(s string) string
}

func (f stringUnaryFn) Name() string { return f.name }
func (f stringUnaryFn) Arity() int   { return 1 }
func (f stringUnaryFn) Apply(args []datalog.Value) (datalog.Value, error) {
	s, ok := args[0].AsString()
	if !ok {
		return datalog.Null, fmt.Errorf("%s: argument is not a string", f.name)
	}
	return datalog.String(f.fn(s)), nil
}

func stringFunctions() []ir.BuiltinFunction {
	return []ir.BuiltinFunction{
		stringPredicateFn{name: "starts_with", fn: strings.HasPrefix},
		stringPredicateFn{name: "ends_with", fn: strings.HasSuffix},
		stringPredicateFn{name: "contains", fn: strings.Contains},
		stringUnaryFn{name: "lower", fn: strings.ToLower},
		stringUnaryFn{name: "upper", fn: strings.ToUpper},
	}
}
