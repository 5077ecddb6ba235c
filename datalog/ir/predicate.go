package ir

import (
	"fmt"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ast"
)

// Predicate is the recursive ADT Filter nodes evaluate against a row:
// column-vs-constant and column-vs-column comparisons, combined with
// And/Or/True/False.
type Predicate interface {
	isPredicate()
	// Eval evaluates the predicate against one row.
	Eval(row datalog.Tuple) bool
	// Columns returns the set of column indices the predicate reads,
	// used by filter-pushdown to decide which side of a Join it may
	// move under.
	Columns() []int
	String() string
}

// True always evaluates to true.
type True struct{}

func (True) isPredicate()         {}
func (True) Eval(datalog.Tuple) bool { return true }
func (True) Columns() []int       { return nil }
func (True) String() string       { return "true" }

// False always evaluates to false.
type False struct{}

func (False) isPredicate()          {}
func (False) Eval(datalog.Tuple) bool { return false }
func (False) Columns() []int        { return nil }
func (False) String() string        { return "false" }

// And is a conjunction of predicates.
type And struct{ Left, Right Predicate }

func (And) isPredicate() {}
func (p And) Eval(row datalog.Tuple) bool {
	return p.Left.Eval(row) && p.Right.Eval(row)
}
func (p And) Columns() []int {
	return append(append([]int{}, p.Left.Columns()...), p.Right.Columns()...)
}
func (p And) String() string { return fmt.Sprintf("(%s AND %s)", p.Left, p.Right) }

// Or is a disjunction of predicates.
type Or struct{ Left, Right Predicate }

func (Or) isPredicate() {}
func (p Or) Eval(row datalog.Tuple) bool {
	return p.Left.Eval(row) || p.Right.Eval(row)
}
func (p Or) Columns() []int {
	return append(append([]int{}, p.Left.Columns()...), p.Right.Columns()...)
}
func (p Or) String() string { return fmt.Sprintf("(%s OR %s)", p.Left, p.Right) }

// ColumnEq compares a column against a constant value for equality
// (also doubles as the Filter step 1 helper for constant-bound scan
// arguments).
type ColumnEq struct {
	Col   int
	Value datalog.Value
}

func (ColumnEq) isPredicate() {}
func (p ColumnEq) Eval(row datalog.Tuple) bool {
	if p.Col >= len(row) {
		return false
	}
	return row[p.Col].Equal(p.Value)
}
func (p ColumnEq) Columns() []int { return []int{p.Col} }
func (p ColumnEq) String() string { return fmt.Sprintf("col[%d] = %s", p.Col, p.Value) }

// ColumnCompare compares a column against a constant using an ordering
// operator (supported on integer/float/string columns).
type ColumnCompare struct {
	Col   int
	Op    ast.CompareOp
	Value datalog.Value
}

func (ColumnCompare) isPredicate() {}
func (p ColumnCompare) Eval(row datalog.Tuple) bool {
	if p.Col >= len(row) {
		return false
	}
	return evalCompare(row[p.Col], p.Op, p.Value)
}
func (p ColumnCompare) Columns() []int { return []int{p.Col} }
func (p ColumnCompare) String() string {
	return fmt.Sprintf("col[%d] %s %s", p.Col, p.Op, p.Value)
}

// ColumnColumnCompare compares two columns of the same row.
type ColumnColumnCompare struct {
	Left, Right int
	Op          ast.CompareOp
}

func (ColumnColumnCompare) isPredicate() {}
func (p ColumnColumnCompare) Eval(row datalog.Tuple) bool {
	if p.Left >= len(row) || p.Right >= len(row) {
		return false
	}
	return evalCompare(row[p.Left], p.Op, row[p.Right])
}
func (p ColumnColumnCompare) Columns() []int { return []int{p.Left, p.Right} }
func (p ColumnColumnCompare) String() string {
	return fmt.Sprintf("col[%d] %s col[%d]", p.Left, p.Op, p.Right)
}

// evalCompare implements the six comparison operators. NaN comparisons
// return false for every ordering operator and for equality.
func evalCompare(l datalog.Value, op ast.CompareOp, r datalog.Value) bool {
	if isNaN(l) || isNaN(r) {
		return false
	}
	c := datalog.CompareValues(l, r)
	switch op {
	case ast.OpEq:
		return l.Equal(r)
	case ast.OpNeq:
		return !l.Equal(r)
	case ast.OpLt:
		return c < 0
	case ast.OpLte:
		return c <= 0
	case ast.OpGt:
		return c > 0
	case ast.OpGte:
		return c >= 0
	}
	return false
}

func isNaN(v datalog.Value) bool {
	f, ok := v.AsFloat64()
	return ok && f != f
}
