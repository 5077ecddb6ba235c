// Package langparser turns program source text into a datalog/ast.Program,
// following the datalog/parser package's approach of parsing an
// EDN document and walking the node tree into a typed AST, generalized from
// its fixed :find/:in/:where query vector to a vector of Datalog
// rule forms.
//
// Source grammar (informally): a program is an EDN vector of rule vectors.
// A rule vector's first element is the head atom list `(relation ?a ?b)`;
// every following element is a body form:
//
//	(relation ?a ?b)                     positive atom
//	(not (relation ?a ?b))                negated atom
//	(> ?a ?b)  (= ?a 3)  (!= ?a ?b)        comparison
//	(hnsw-nearest "index" ?q 5 ?id ?dist) vector search, optional trailing :ef-search N
//
// Head arguments may themselves be arithmetic `(+ ?a ?b)`, a builtin call
// `(distance ?u ?v)`, or an aggregate `(sum ?s)` / `(top-k 5 ?id ?score desc)`.
package langparser

import (
	"fmt"
	"strings"

	"github.com/lumendb/datalogx/datalog/ast"
	"github.com/lumendb/datalogx/datalog/edn"
)

// ParseProgram parses source into a Program. Each top-level element of the
// source vector is one rule.
func ParseProgram(source string) (ast.Program, error) {
	root, err := edn.Parse(source)
	if err != nil {
		return ast.Program{}, fmt.Errorf("edn parse error: %w", err)
	}
	if root.Type != edn.NodeVector {
		return ast.Program{}, fmt.Errorf("program must be a vector of rules, got %v", root.Type)
	}

	prog := ast.Program{}
	for i, ruleNode := range root.Nodes {
		rule, err := parseRule(ruleNode)
		if err != nil {
			return ast.Program{}, fmt.Errorf("rule %d: %w", i, err)
		}
		prog.Rules = append(prog.Rules, rule)
	}
	return prog, nil
}

func parseRule(n edn.Node) (ast.Rule, error) {
	if n.Type != edn.NodeVector || len(n.Nodes) == 0 {
		return ast.Rule{}, fmt.Errorf("rule must be a non-empty vector, got %v", n.Type)
	}
	head, err := parseAtom(n.Nodes[0])
	if err != nil {
		return ast.Rule{}, fmt.Errorf("head: %w", err)
	}

	rule := ast.Rule{Head: head}
	for _, bn := range n.Nodes[1:] {
		bp, err := parseBodyPredicate(bn)
		if err != nil {
			return ast.Rule{}, err
		}
		rule.Body = append(rule.Body, bp)
	}
	return rule, nil
}

func parseBodyPredicate(n edn.Node) (ast.BodyPredicate, error) {
	if n.Type != edn.NodeList || len(n.Nodes) == 0 {
		return nil, fmt.Errorf("body predicate must be a list, got %v", n.Type)
	}
	head := n.Nodes[0]
	if head.Type == edn.NodeSymbol {
		switch head.Value {
		case "not":
			if len(n.Nodes) != 2 {
				return nil, fmt.Errorf("not takes exactly one atom")
			}
			atom, err := parseAtom(n.Nodes[1])
			if err != nil {
				return nil, fmt.Errorf("not: %w", err)
			}
			return ast.Negated{Atom: atom}, nil
		case "hnsw-nearest":
			return parseHnsw(n.Nodes[1:])
		case "=", "!=", "<", "<=", ">", ">=":
			if len(n.Nodes) != 3 {
				return nil, fmt.Errorf("comparison %s takes exactly two operands", head.Value)
			}
			left, err := parseTerm(n.Nodes[1])
			if err != nil {
				return nil, err
			}
			right, err := parseTerm(n.Nodes[2])
			if err != nil {
				return nil, err
			}
			return ast.Comparison{Left: left, Op: compareOp(head.Value), Right: right}, nil
		}
	}
	atom, err := parseAtom(n)
	if err != nil {
		return nil, err
	}
	return ast.Positive{Atom: atom}, nil
}

func compareOp(sym string) ast.CompareOp {
	switch sym {
	case "=":
		return ast.OpEq
	case "!=":
		return ast.OpNeq
	case "<":
		return ast.OpLt
	case "<=":
		return ast.OpLte
	case ">":
		return ast.OpGt
	case ">=":
		return ast.OpGte
	default:
		return ast.OpEq
	}
}

func parseHnsw(args []edn.Node) (ast.HnswNearest, error) {
	if len(args) < 5 {
		return ast.HnswNearest{}, fmt.Errorf("hnsw-nearest requires index, query, k, id-var, dist-var")
	}
	index, err := args[0].AsString()
	if err != nil {
		return ast.HnswNearest{}, fmt.Errorf("hnsw-nearest index: %w", err)
	}
	query, err := parseTerm(args[1])
	if err != nil {
		return ast.HnswNearest{}, fmt.Errorf("hnsw-nearest query: %w", err)
	}
	k, err := args[2].AsInt()
	if err != nil {
		return ast.HnswNearest{}, fmt.Errorf("hnsw-nearest k: %w", err)
	}
	idVar, err := parseVariable(args[3])
	if err != nil {
		return ast.HnswNearest{}, fmt.Errorf("hnsw-nearest id-var: %w", err)
	}
	distVar, err := parseVariable(args[4])
	if err != nil {
		return ast.HnswNearest{}, fmt.Errorf("hnsw-nearest dist-var: %w", err)
	}
	h := ast.HnswNearest{Index: index, Query: query, K: int(k), IDVar: idVar, DistVar: distVar}
	for i := 5; i+1 < len(args); i += 2 {
		kw, err := args[i].AsKeyword()
		if err != nil || kw != ":ef-search" {
			continue
		}
		ef, err := args[i+1].AsInt()
		if err != nil {
			return ast.HnswNearest{}, fmt.Errorf("hnsw-nearest ef-search: %w", err)
		}
		v := int(ef)
		h.EfSearch = &v
	}
	return h, nil
}

func parseAtom(n edn.Node) (ast.Atom, error) {
	if n.Type != edn.NodeList || len(n.Nodes) == 0 {
		return ast.Atom{}, fmt.Errorf("atom must be a list `(relation args...)`, got %v", n.Type)
	}
	name, err := n.Nodes[0].AsSymbol()
	if err != nil {
		return ast.Atom{}, fmt.Errorf("atom relation name: %w", err)
	}
	atom := ast.Atom{Relation: name}
	for _, a := range n.Nodes[1:] {
		t, err := parseTerm(a)
		if err != nil {
			return ast.Atom{}, fmt.Errorf("atom %s: %w", name, err)
		}
		atom.Args = append(atom.Args, t)
	}
	return atom, nil
}

func parseVariable(n edn.Node) (ast.Variable, error) {
	t, err := parseTerm(n)
	if err != nil {
		return "", err
	}
	v, ok := t.(ast.Var)
	if !ok {
		return "", fmt.Errorf("expected a variable, got %s", t.String())
	}
	return v.Name, nil
}

var arithOps = map[string]ast.ArithOp{
	"+": ast.ArithAdd, "-": ast.ArithSub, "*": ast.ArithMul, "/": ast.ArithDiv, "%": ast.ArithMod,
}

var aggFuncs = map[string]ast.AggregateFunc{
	"count": ast.AggCount, "count-distinct": ast.AggCountDistinct,
	"sum": ast.AggSum, "min": ast.AggMin, "max": ast.AggMax, "avg": ast.AggAvg,
	"top-k": ast.AggTopK, "top-k-threshold": ast.AggTopKThreshold, "within-radius": ast.AggWithinRadius,
}

func parseTerm(n edn.Node) (ast.Term, error) {
	switch n.Type {
	case edn.NodeSymbol:
		if n.Value == "_" {
			return ast.Placeholder{}, nil
		}
		if strings.HasPrefix(n.Value, "?") {
			return ast.Var{Name: ast.Variable(n.Value[1:])}, nil
		}
		return nil, fmt.Errorf("unexpected bare symbol %q outside a call position", n.Value)
	case edn.NodeInt:
		v, err := n.AsInt()
		if err != nil {
			return nil, err
		}
		return ast.IntConst{Value: v}, nil
	case edn.NodeFloat:
		v, err := n.AsFloat()
		if err != nil {
			return nil, err
		}
		return ast.FloatConst{Value: v}, nil
	case edn.NodeString:
		v, err := n.AsString()
		if err != nil {
			return nil, err
		}
		return ast.StringConst{Value: v}, nil
	case edn.NodeBool:
		v, err := n.AsBool()
		if err != nil {
			return nil, err
		}
		return ast.BoolConst{Value: v}, nil
	case edn.NodeVector:
		vals := make([]float32, 0, len(n.Nodes))
		for _, e := range n.Nodes {
			switch e.Type {
			case edn.NodeFloat:
				f, err := e.AsFloat()
				if err != nil {
					return nil, err
				}
				vals = append(vals, float32(f))
			case edn.NodeInt:
				i, err := e.AsInt()
				if err != nil {
					return nil, err
				}
				vals = append(vals, float32(i))
			default:
				return nil, fmt.Errorf("vector literal elements must be numeric, got %v", e.Type)
			}
		}
		return ast.VectorLiteral{Values: vals}, nil
	case edn.NodeList:
		return parseCallTerm(n)
	default:
		return nil, fmt.Errorf("unsupported term node type %v", n.Type)
	}
}

func parseCallTerm(n edn.Node) (ast.Term, error) {
	if len(n.Nodes) == 0 {
		return nil, fmt.Errorf("empty call term")
	}
	head, err := n.Nodes[0].AsSymbol()
	if err != nil {
		return nil, fmt.Errorf("call head must be a symbol: %w", err)
	}
	args := n.Nodes[1:]

	if op, ok := arithOps[head]; ok {
		if len(args) != 2 {
			return nil, fmt.Errorf("arithmetic operator %s takes exactly two operands", head)
		}
		left, err := parseTerm(args[0])
		if err != nil {
			return nil, err
		}
		right, err := parseTerm(args[1])
		if err != nil {
			return nil, err
		}
		return ast.Arithmetic{Op: op, Left: left, Right: right}, nil
	}

	if fn, ok := aggFuncs[head]; ok {
		return parseAggregate(fn, head, args)
	}

	// Any other symbol is a scalar builtin function call.
	call := ast.FunctionCall{Name: head}
	for _, a := range args {
		t, err := parseTerm(a)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, t)
	}
	return call, nil
}

// parseAggregate handles the two aggregate shapes: a plain reducer
// `(sum ?x)` and a ranking aggregate with trailing parameters, e.g.
// `(top-k 5 ?id ?score desc)` or `(within-radius ?id ?dist 0.3)`.
func parseAggregate(fn ast.AggregateFunc, head string, args []edn.Node) (ast.Term, error) {
	switch fn {
	case ast.AggCount, ast.AggCountDistinct, ast.AggSum, ast.AggMin, ast.AggMax, ast.AggAvg:
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes exactly one variable", head)
		}
		v, err := parseVariable(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s argument: %w", head, err)
		}
		return ast.Aggregate{Func: ast.Variable(head), Fn: fn, Var: v}, nil

	case ast.AggTopK, ast.AggTopKThreshold:
		// (top-k K ?out-var ?order-var [desc]) / (top-k-threshold threshold ?out-var ?order-var [desc])
		if len(args) < 3 {
			return nil, fmt.Errorf("%s requires K/threshold, output var, order var", head)
		}
		outVar, err := parseVariable(args[1])
		if err != nil {
			return nil, fmt.Errorf("%s output var: %w", head, err)
		}
		orderVar, err := parseVariable(args[2])
		if err != nil {
			return nil, fmt.Errorf("%s order var: %w", head, err)
		}
		agg := ast.Aggregate{Func: ast.Variable(head), Fn: fn, Var: outVar, OrderVar: orderVar}
		if len(args) >= 4 {
			sym, _ := args[3].AsSymbol()
			agg.Descending = sym == "desc"
		}
		if fn == ast.AggTopK {
			k, err := args[0].AsInt()
			if err != nil {
				return nil, fmt.Errorf("%s K: %w", head, err)
			}
			agg.K = int(k)
		} else {
			thr, err := numericValue(args[0])
			if err != nil {
				return nil, fmt.Errorf("%s threshold: %w", head, err)
			}
			agg.Threshold = thr
		}
		return agg, nil

	case ast.AggWithinRadius:
		// (within-radius ?out-var ?dist-var maxDist)
		if len(args) != 3 {
			return nil, fmt.Errorf("within-radius requires output var, dist var, max distance")
		}
		outVar, err := parseVariable(args[0])
		if err != nil {
			return nil, fmt.Errorf("within-radius output var: %w", err)
		}
		distVar, err := parseVariable(args[1])
		if err != nil {
			return nil, fmt.Errorf("within-radius dist var: %w", err)
		}
		maxDist, err := numericValue(args[2])
		if err != nil {
			return nil, fmt.Errorf("within-radius max distance: %w", err)
		}
		return ast.Aggregate{Func: ast.Variable(head), Fn: fn, Var: outVar, DistCol: distVar, MaxDist: maxDist}, nil
	}
	return nil, fmt.Errorf("unhandled aggregate %s", head)
}

func numericValue(n edn.Node) (float64, error) {
	switch n.Type {
	case edn.NodeFloat:
		return n.AsFloat()
	case edn.NodeInt:
		i, err := n.AsInt()
		return float64(i), err
	default:
		return 0, fmt.Errorf("expected a number, got %v", n.Type)
	}
}
