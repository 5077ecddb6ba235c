package irbuilder

import (
	"github.com/lumendb/datalogx/datalog/ast"
	"github.com/lumendb/datalogx/datalog/errors"
)

// termVars collects the variables referenced anywhere inside a term,
// recursing through Arithmetic/FunctionCall/FieldAccess, so safety
// analysis can tell whether a computed expression is fully bound.
func termVars(t ast.Term) []ast.Variable {
	var out []ast.Variable
	var walk func(ast.Term)
	walk = func(t ast.Term) {
		switch v := t.(type) {
		case ast.Var:
			out = append(out, v.Name)
		case ast.Arithmetic:
			walk(v.Left)
			walk(v.Right)
		case ast.FunctionCall:
			for _, a := range v.Args {
				walk(a)
			}
		case ast.FieldAccess:
			walk(v.Base)
		case ast.Aggregate:
			out = append(out, v.Var)
		}
	}
	walk(t)
	return out
}

// boundVariables computes the safety-closure of variables bound by a
// rule's body: every variable in a Positive atom, transitively closed
// over variable=variable equality constraints and function-call
// assignment constraints.
func boundVariables(body []ast.BodyPredicate) map[ast.Variable]bool {
	bound := make(map[ast.Variable]bool)
	for _, bp := range body {
		if pos, ok := bp.(ast.Positive); ok {
			for _, v := range pos.Atom.Variables() {
				bound[v] = true
			}
		}
	}

	// Fixpoint over equalities and function-call assignments: each round
	// may newly bind variables that a previous round's test rejected.
	for changed := true; changed; {
		changed = false
		for _, bp := range body {
			cmp, ok := bp.(ast.Comparison)
			if !ok || cmp.Op != ast.OpEq {
				continue
			}
			lv, lok := cmp.Left.(ast.Var)
			rv, rok := cmp.Right.(ast.Var)
			if lok && rok {
				if bound[lv.Name] && !bound[rv.Name] {
					bound[rv.Name] = true
					changed = true
				} else if bound[rv.Name] && !bound[lv.Name] {
					bound[lv.Name] = true
					changed = true
				}
				continue
			}
			// Var = f(args) or f(args) = Var: if args are bound, Var
			// becomes bound.
			if assignVar, fn, ok := computedAssignment(cmp); ok {
				argsBound := true
				for _, v := range termVars(fn) {
					if !bound[v] {
						argsBound = false
						break
					}
				}
				if argsBound && !bound[assignVar] {
					bound[assignVar] = true
					changed = true
				}
			}
		}
	}
	return bound
}

// computedAssignment recognizes a constraint of the form `Var = f(...)`
// or `f(...) = Var`, returning the assigned variable and the function
// term.
func computedAssignment(cmp ast.Comparison) (ast.Variable, ast.Term, bool) {
	if cmp.Op != ast.OpEq {
		return "", nil, false
	}
	isFnLike := func(t ast.Term) bool {
		switch t.(type) {
		case ast.FunctionCall, ast.Arithmetic:
			return true
		}
		return false
	}
	if v, ok := cmp.Left.(ast.Var); ok && isFnLike(cmp.Right) {
		return v.Name, cmp.Right, true
	}
	if v, ok := cmp.Right.(ast.Var); ok && isFnLike(cmp.Left) {
		return v.Name, cmp.Left, true
	}
	return "", nil, false
}

// CheckSafety validates that every head variable is bound, every
// negated atom's variables are bound from positive atoms, and every
// variable used in arithmetic/comparison is bound.
func CheckSafety(rule ast.Rule) error {
	bound := boundVariables(rule.Body)

	for _, t := range rule.Head.Args {
		for _, v := range termVars(t) {
			if !bound[v] {
				return errors.Safetyf("check-safety", "unsafe rule: head variable %q is not bound by any positive body atom", v)
			}
		}
	}

	for _, bp := range rule.Body {
		switch p := bp.(type) {
		case ast.Negated:
			for _, v := range p.Atom.Variables() {
				if !bound[v] {
					return errors.Safetyf("check-safety", "unsafe rule: negated atom variable %q is not bound by a positive atom", v)
				}
			}
		case ast.Comparison:
			if _, _, ok := computedAssignment(p); ok {
				continue // the assigned variable is allowed to be newly bound here
			}
			for _, t := range []ast.Term{p.Left, p.Right} {
				if v, ok := t.(ast.Var); ok && !bound[v.Name] {
					return errors.Safetyf("check-safety", "unsafe rule: comparison references unbound variable %q", v.Name)
				}
			}
		case ast.HnswNearest:
			if v, ok := p.Query.(ast.Var); ok && !bound[v.Name] {
				return errors.Safetyf("check-safety", "unsafe rule: hnsw_nearest query variable %q is not bound", v.Name)
			}
		}
	}
	return nil
}
