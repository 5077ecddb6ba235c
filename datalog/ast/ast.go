// Package ast defines the program representation the IR Builder
// consumes: Program, Rule, Atom, Term, BodyPredicate and Constraint,
// following a Pattern/Symbol/Clause family idiom, generalized from a
// fixed E-A-V-T pattern shape to arbitrary-arity rule atoms with
// arithmetic, aggregate and builtin-call terms.
package ast

import "fmt"

// Variable names a rule variable, e.g. "X", "Y".
type Variable string

// CompareOp enumerates the comparison operators the body/predicate
// language supports.
type CompareOp byte

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

func (o CompareOp) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	default:
		return "?"
	}
}

// ArithOp enumerates the arithmetic operators Arithmetic terms support.
type ArithOp byte

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithMod
)

func (o ArithOp) String() string {
	switch o {
	case ArithAdd:
		return "+"
	case ArithSub:
		return "-"
	case ArithMul:
		return "*"
	case ArithDiv:
		return "/"
	case ArithMod:
		return "%"
	default:
		return "?"
	}
}

// Term is a rule argument: a variable, a literal constant, a placeholder,
// an aggregate invocation, an arithmetic expression, a builtin function
// call, a vector literal, a field access, or a record pattern.
type Term interface {
	isTerm()
	String() string
}

// Var is a variable term.
type Var struct{ Name Variable }

func (Var) isTerm()         {}
func (v Var) String() string { return string(v.Name) }

// Placeholder is the "_" wildcard term: matches anything, binds nothing.
type Placeholder struct{}

func (Placeholder) isTerm()         {}
func (Placeholder) String() string { return "_" }

// IntConst is an integer literal term.
type IntConst struct{ Value int64 }

func (IntConst) isTerm()          {}
func (c IntConst) String() string { return fmt.Sprintf("%d", c.Value) }

// FloatConst is a float literal term.
type FloatConst struct{ Value float64 }

func (FloatConst) isTerm()          {}
func (c FloatConst) String() string { return fmt.Sprintf("%v", c.Value) }

// StringConst is a string literal term.
type StringConst struct{ Value string }

func (StringConst) isTerm()          {}
func (c StringConst) String() string { return fmt.Sprintf("%q", c.Value) }

// BoolConst is a boolean literal term.
type BoolConst struct{ Value bool }

func (BoolConst) isTerm()          {}
func (c BoolConst) String() string { return fmt.Sprintf("%v", c.Value) }

// VectorLiteral is an inline vector of f32 components.
type VectorLiteral struct{ Values []float32 }

func (VectorLiteral) isTerm() {}
func (v VectorLiteral) String() string {
	return fmt.Sprintf("vec[%d]", len(v.Values))
}

// AggregateFunc names the aggregate kind in an Aggregate term.
type AggregateFunc string

const (
	AggCount             AggregateFunc = "count"
	AggCountDistinct     AggregateFunc = "count_distinct"
	AggSum               AggregateFunc = "sum"
	AggMin               AggregateFunc = "min"
	AggMax               AggregateFunc = "max"
	AggAvg               AggregateFunc = "avg"
	AggTopK              AggregateFunc = "top_k"
	AggTopKThreshold     AggregateFunc = "top_k_threshold"
	AggWithinRadius      AggregateFunc = "within_radius"
)

// Aggregate is a ranking/reducing aggregate term appearing in a rule
// head, e.g. sum<S>, top_k<2, Name, S:desc>.
type Aggregate struct {
	Func Variable // AggregateFunc as written by the program, kept as a string for forward compatibility
	Fn   AggregateFunc
	Var  Variable // variable being aggregated
	// Ranking aggregate parameters (zero value when not applicable).
	K          int
	OrderVar   Variable
	Descending bool
	Threshold  float64
	DistCol    Variable
	MaxDist    float64
}

func (Aggregate) isTerm() {}
func (a Aggregate) String() string {
	return fmt.Sprintf("(%s %s)", a.Fn, a.Var)
}

// Arithmetic is an expression tree over variables and constants.
type Arithmetic struct {
	Op          ArithOp
	Left, Right Term
}

func (Arithmetic) isTerm() {}
func (a Arithmetic) String() string {
	return fmt.Sprintf("(%s %s %s)", a.Left, a.Op, a.Right)
}

// FunctionCall invokes a scalar builtin (distance, lsh_bucket, quantize,
// decay, day/month/year, starts_with, ...) with term arguments.
type FunctionCall struct {
	Name string
	Args []Term
}

func (FunctionCall) isTerm() {}
func (f FunctionCall) String() string {
	return fmt.Sprintf("(%s ...)", f.Name)
}

// FieldAccess projects a named field out of a record-valued term.
type FieldAccess struct {
	Base  Term
	Field string
}

func (FieldAccess) isTerm() {}
func (f FieldAccess) String() string {
	return fmt.Sprintf("%s.%s", f.Base, f.Field)
}

// RecordPattern destructures a record-valued term into named bindings.
type RecordPattern struct {
	Fields map[string]Term
}

func (RecordPattern) isTerm()          {}
func (RecordPattern) String() string   { return "{...}" }

// Atom is a relation name applied to an ordered list of argument terms.
type Atom struct {
	Relation string
	Args     []Term
}

func (a Atom) String() string {
	return fmt.Sprintf("%s(...)", a.Relation)
}

// Variables returns, in first-occurrence order, the variables referenced
// directly as atom arguments (not inside nested arithmetic/function
// terms).
func (a Atom) Variables() []Variable {
	var out []Variable
	seen := make(map[Variable]bool)
	for _, t := range a.Args {
		if v, ok := t.(Var); ok {
			if !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v.Name)
			}
		}
	}
	return out
}

// BodyPredicate is one element of a rule's body.
type BodyPredicate interface {
	isBodyPredicate()
}

// Positive is a positively-matched atom: path(X,Y) etc.
type Positive struct{ Atom Atom }

func (Positive) isBodyPredicate() {}

// Negated is a negated atom: not bad(X).
type Negated struct{ Atom Atom }

func (Negated) isBodyPredicate() {}

// Comparison is a binary comparison between two terms.
type Comparison struct {
	Left  Term
	Op    CompareOp
	Right Term
}

func (Comparison) isBodyPredicate() {}

// Constraint is an alias kept for readability at call sites that treat a
// body comparison as a named constraint.
type Constraint = Comparison

// HnswNearest is a vector-search body predicate:
// hnsw_nearest(index, query, k, id_var, dist_var[, ef_search]).
type HnswNearest struct {
	Index    string
	Query    Term
	K        int
	IDVar    Variable
	DistVar  Variable
	EfSearch *int
}

func (HnswNearest) isBodyPredicate() {}

// Rule is a head Atom defined by an ordered conjunction of body
// predicates.
type Rule struct {
	Head Atom
	Body []BodyPredicate
}

// Program is an ordered list of rules.
type Program struct {
	Rules []Rule
}
