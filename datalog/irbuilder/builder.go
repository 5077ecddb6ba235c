// Package irbuilder translates a parsed Rule (datalog/ast) into an IR
// operator tree (datalog/ir), resolving relation shapes against a
// datalog/catalog.Catalog and builtin function calls against a
// datalog/scalar.Registry. This generalizes a join-planner idiom (which
// turned a fixed EAVT pattern list into a join plan) to arbitrary-arity
// rule atoms, negation, arithmetic and aggregate heads, and
// vector-search body predicates.
package irbuilder

import (
	"fmt"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/ast"
	"github.com/lumendb/datalogx/datalog/catalog"
	"github.com/lumendb/datalogx/datalog/errors"
	"github.com/lumendb/datalogx/datalog/ir"
	"github.com/lumendb/datalogx/datalog/scalar"
)

// Builder turns one Rule into one IR tree. A Builder is stateless across
// calls to BuildRule; a single instance may be reused for every rule in
// a program.
type Builder struct {
	Catalog   *catalog.Catalog
	Functions *scalar.Registry
}

// NewBuilder returns a Builder resolving relation shapes against cat and
// function calls against funcs.
func NewBuilder(cat *catalog.Catalog, funcs *scalar.Registry) *Builder {
	return &Builder{Catalog: cat, Functions: funcs}
}

// BuildRule compiles a single rule into an IR tree, following a fixed
// six-step algorithm: scans with constant-filter wrapping, a
// left-fold join over shared variables, vector-search joins, antijoins
// for negation, filters for comparisons, a single Compute node for
// function-call/arithmetic assignments, and finally a head
// projection (plain, arithmetic, or aggregate).
func (b *Builder) BuildRule(rule ast.Rule) (ir.Node, error) {
	if err := CheckSafety(rule); err != nil {
		return nil, err
	}

	var positives []ast.Atom
	var negated []ast.Negated
	var comparisons []ast.Comparison
	var hnswPreds []ast.HnswNearest
	for _, bp := range rule.Body {
		switch p := bp.(type) {
		case ast.Positive:
			positives = append(positives, p.Atom)
		case ast.Negated:
			negated = append(negated, p)
		case ast.Comparison:
			comparisons = append(comparisons, p)
		case ast.HnswNearest:
			hnswPreds = append(hnswPreds, p)
		}
	}
	if len(positives) == 0 {
		return nil, errors.Compilef("build-rule", "rule %s has no positive body atom to scan", rule.Head.Relation)
	}

	// Step 1+2: scans (with constant-filter wrapping) left-folded into a
	// single join tree over shared variable names.
	acc, err := b.buildAtomScan(positives[0])
	if err != nil {
		return nil, err
	}
	for _, atom := range positives[1:] {
		next, err := b.buildAtomScan(atom)
		if err != nil {
			return nil, err
		}
		leftKeys, rightKeys, _ := catalog.JoinKeys(acc.Schema(), next.Schema())
		outSchema := joinOutputSchema(acc.Schema(), next.Schema(), rightKeys)
		acc = ir.NewJoin(acc, next, leftKeys, rightKeys, outSchema)
	}

	// Vector-search body predicates join in as a leaf producing (id,
	// distance) columns, same shape as any other positive atom.
	for _, h := range hnswPreds {
		leaf, err := b.buildHnswLeaf(h, acc.Schema())
		if err != nil {
			return nil, err
		}
		leftKeys, rightKeys, _ := catalog.JoinKeys(acc.Schema(), leaf.Schema())
		outSchema := joinOutputSchema(acc.Schema(), leaf.Schema(), rightKeys)
		acc = ir.NewJoin(acc, leaf, leftKeys, rightKeys, outSchema)
	}

	// Step 4: antijoins for negated atoms, each requiring at least one
	// variable shared with the accumulated join (every negated atom must
	// share a bound variable with the positive body).
	for _, neg := range negated {
		negNode, err := b.buildAtomScan(neg.Atom)
		if err != nil {
			return nil, err
		}
		leftKeys, rightKeys, names := catalog.JoinKeys(acc.Schema(), negNode.Schema())
		if len(names) == 0 {
			return nil, errors.Safetyf("build-rule", "negated atom %q shares no variable with the rule's positive body", neg.Atom.Relation)
		}
		acc = ir.NewAntijoin(acc, negNode, leftKeys, rightKeys)
	}

	// Step 3+5: split comparisons into plain filters and computed-column
	// assignments (Var = f(...) or Var = arithmetic(...)).
	var computedAssigns []ast.Comparison
	var filterPred ir.Predicate
	for _, cmp := range comparisons {
		if _, _, ok := computedAssignment(cmp); ok {
			computedAssigns = append(computedAssigns, cmp)
			continue
		}
		p, err := b.buildComparisonPredicate(cmp, acc.Schema())
		if err != nil {
			return nil, err
		}
		filterPred = andPredicate(filterPred, p)
	}
	if filterPred != nil {
		acc = ir.NewFilter(acc, filterPred)
	}

	if len(computedAssigns) > 0 {
		var columns []ir.ComputedColumn
		for _, cmp := range computedAssigns {
			assignVar, term, _ := computedAssignment(cmp)
			expr, typ, err := b.buildExpression(term, acc.Schema())
			if err != nil {
				return nil, err
			}
			columns = append(columns, ir.ComputedColumn{Name: string(assignVar), Expr: expr, Type: typ})
		}
		acc = ir.NewCompute(acc, columns)
	}

	// Step 6: head projection.
	return b.buildHead(rule, acc)
}

func andPredicate(existing, next ir.Predicate) ir.Predicate {
	if existing == nil {
		return next
	}
	return ir.And{Left: existing, Right: next}
}

// buildAtomScan compiles one positive atom into a Scan, wrapped with a
// Filter for any constant argument or repeated-variable self-join, and
// relabeled (via an identity Map) so its output schema's field names are
// the rule's variable names rather than the relation's own column
// names -- this is what lets later joins find shared keys by name.
func (b *Builder) buildAtomScan(atom ast.Atom) (ir.Node, error) {
	schema, err := b.Catalog.MustLookup(atom.Relation)
	if err != nil {
		return nil, errors.Compilef("build-rule", "%v", err)
	}
	if len(atom.Args) != schema.Arity() {
		return nil, errors.Compilef("build-rule", "relation %q expects %d argument(s), got %d", atom.Relation, schema.Arity(), len(atom.Args))
	}

	var pred ir.Predicate
	aliasFields := make([]datalog.Field, len(atom.Args))
	firstOccurrence := make(map[ast.Variable]int)

	for i, arg := range atom.Args {
		colType := schema.Fields[i].Type
		switch t := arg.(type) {
		case ast.Var:
			if j, seen := firstOccurrence[t.Name]; seen {
				pred = andPredicate(pred, ir.ColumnColumnCompare{Left: j, Right: i, Op: ast.OpEq})
				aliasFields[i] = datalog.Field{Name: syntheticName("dup", i), Type: colType}
			} else {
				firstOccurrence[t.Name] = i
				aliasFields[i] = datalog.Field{Name: string(t.Name), Type: colType}
			}
		case ast.Placeholder:
			aliasFields[i] = datalog.Field{Name: syntheticName("_", i), Type: colType}
		case ast.IntConst:
			pred = andPredicate(pred, ir.ColumnEq{Col: i, Value: datalog.Int64(t.Value)})
			aliasFields[i] = datalog.Field{Name: syntheticName("const", i), Type: colType}
		case ast.FloatConst:
			pred = andPredicate(pred, ir.ColumnEq{Col: i, Value: datalog.Float64(t.Value)})
			aliasFields[i] = datalog.Field{Name: syntheticName("const", i), Type: colType}
		case ast.StringConst:
			pred = andPredicate(pred, ir.ColumnEq{Col: i, Value: datalog.String(t.Value)})
			aliasFields[i] = datalog.Field{Name: syntheticName("const", i), Type: colType}
		case ast.BoolConst:
			pred = andPredicate(pred, ir.ColumnEq{Col: i, Value: datalog.Bool(t.Value)})
			aliasFields[i] = datalog.Field{Name: syntheticName("const", i), Type: colType}
		case ast.VectorLiteral:
			pred = andPredicate(pred, ir.ColumnEq{Col: i, Value: datalog.Vector(t.Values)})
			aliasFields[i] = datalog.Field{Name: syntheticName("const", i), Type: colType}
		default:
			return nil, errors.Compilef("build-rule", "unsupported argument term %T in atom %q", arg, atom.Relation)
		}
	}

	var node ir.Node = ir.NewScan(atom.Relation, schema)
	if pred != nil {
		node = ir.NewFilter(node, pred)
	}

	proj := make([]int, len(aliasFields))
	for i := range proj {
		proj[i] = i
	}
	return ir.NewMap(node, proj, datalog.NewSchema(aliasFields...)), nil
}

func syntheticName(prefix string, col int) string {
	return fmt.Sprintf("__%s%d", prefix, col)
}

// joinOutputSchema concatenates left's fields with right's fields,
// dropping right's key columns since they duplicate the matching left
// columns after the join: the output schema is left ∪ (right minus key
// columns).
func joinOutputSchema(left, right datalog.TupleSchema, rightKeys []int) datalog.TupleSchema {
	skip := make(map[int]bool, len(rightKeys))
	for _, k := range rightKeys {
		skip[k] = true
	}
	fields := append([]datalog.Field{}, left.Fields...)
	for i, f := range right.Fields {
		if !skip[i] {
			fields = append(fields, f)
		}
	}
	return datalog.NewSchema(fields...)
}

// buildHnswLeaf compiles an hnsw_nearest body predicate into a leaf
// producing (id, distance) columns named after the predicate's bound
// variables, so it joins into the accumulated tree exactly like any
// other positive atom that happens to share no key (a cross join) or
// shares the id/distance variable names with an earlier atom.
func (b *Builder) buildHnswLeaf(h ast.HnswNearest, inputSchema datalog.TupleSchema) (ir.Node, error) {
	queryExpr, _, err := b.buildExpression(h.Query, inputSchema)
	if err != nil {
		return nil, err
	}
	efSearch := h.K
	if h.EfSearch != nil {
		efSearch = *h.EfSearch
	}
	leafSchema := datalog.NewSchema(
		datalog.Field{Name: string(h.IDVar), Type: datalog.TypeInt64},
		datalog.Field{Name: string(h.DistVar), Type: datalog.TypeFloat64},
	)
	return ir.NewHnswScan(h.Index, queryExpr, h.K, efSearch, leafSchema), nil
}

// buildComparisonPredicate translates a non-assignment Comparison into
// an ir.Predicate over the accumulated schema's columns, restricting
// ordering operators (<, <=, >, >=) to int/float columns.
func (b *Builder) buildComparisonPredicate(cmp ast.Comparison, schema datalog.TupleSchema) (ir.Predicate, error) {
	leftVar, leftIsVar := cmp.Left.(ast.Var)
	rightVar, rightIsVar := cmp.Right.(ast.Var)

	isOrdering := cmp.Op != ast.OpEq && cmp.Op != ast.OpNeq

	switch {
	case leftIsVar && rightIsVar:
		li := schema.FieldIndex(string(leftVar.Name))
		ri := schema.FieldIndex(string(rightVar.Name))
		if li < 0 || ri < 0 {
			return nil, errors.Compilef("build-rule", "comparison references unbound variable")
		}
		if isOrdering && !(isOrderable(schema.Fields[li].Type) && isOrderable(schema.Fields[ri].Type)) {
			return nil, errors.Compilef("build-rule", "ordering comparison %s requires int or float columns", cmp.Op)
		}
		return ir.ColumnColumnCompare{Left: li, Right: ri, Op: cmp.Op}, nil

	case leftIsVar:
		li := schema.FieldIndex(string(leftVar.Name))
		if li < 0 {
			return nil, errors.Compilef("build-rule", "comparison references unbound variable %q", leftVar.Name)
		}
		val, err := constTermToValue(cmp.Right)
		if err != nil {
			return nil, err
		}
		if isOrdering && !isOrderable(schema.Fields[li].Type) {
			return nil, errors.Compilef("build-rule", "ordering comparison %s requires int or float columns", cmp.Op)
		}
		return ir.ColumnCompare{Col: li, Op: cmp.Op, Value: val}, nil

	case rightIsVar:
		ri := schema.FieldIndex(string(rightVar.Name))
		if ri < 0 {
			return nil, errors.Compilef("build-rule", "comparison references unbound variable %q", rightVar.Name)
		}
		val, err := constTermToValue(cmp.Left)
		if err != nil {
			return nil, err
		}
		if isOrdering && !isOrderable(schema.Fields[ri].Type) {
			return nil, errors.Compilef("build-rule", "ordering comparison %s requires int or float columns", cmp.Op)
		}
		return ir.ColumnCompare{Col: ri, Op: flipOp(cmp.Op), Value: val}, nil

	default:
		return nil, errors.Compilef("build-rule", "comparison has no variable operand")
	}
}

func isOrderable(t datalog.DataType) bool {
	switch t {
	case datalog.TypeInt32, datalog.TypeInt64, datalog.TypeFloat64:
		return true
	}
	return false
}

func flipOp(op ast.CompareOp) ast.CompareOp {
	switch op {
	case ast.OpLt:
		return ast.OpGt
	case ast.OpLte:
		return ast.OpGte
	case ast.OpGt:
		return ast.OpLt
	case ast.OpGte:
		return ast.OpLte
	default:
		return op
	}
}

func constTermToValue(t ast.Term) (datalog.Value, error) {
	switch v := t.(type) {
	case ast.IntConst:
		return datalog.Int64(v.Value), nil
	case ast.FloatConst:
		return datalog.Float64(v.Value), nil
	case ast.StringConst:
		return datalog.String(v.Value), nil
	case ast.BoolConst:
		return datalog.Bool(v.Value), nil
	case ast.VectorLiteral:
		return datalog.Vector(v.Values), nil
	default:
		return datalog.Null, errors.Compilef("build-rule", "expected a constant term, got %T", t)
	}
}

// buildExpression compiles a Term into an ir.Expression the Compute
// operator can evaluate, returning the expression's static result type.
func (b *Builder) buildExpression(t ast.Term, schema datalog.TupleSchema) (ir.Expression, datalog.DataType, error) {
	switch v := t.(type) {
	case ast.Var:
		idx := schema.FieldIndex(string(v.Name))
		if idx < 0 {
			return nil, 0, errors.Compilef("build-rule", "expression references unbound variable %q", v.Name)
		}
		return ir.ColumnRef{Col: idx}, schema.Fields[idx].Type, nil

	case ast.IntConst:
		return ir.Const{Value: datalog.Int64(v.Value)}, datalog.TypeInt64, nil
	case ast.FloatConst:
		return ir.Const{Value: datalog.Float64(v.Value)}, datalog.TypeFloat64, nil
	case ast.StringConst:
		return ir.Const{Value: datalog.String(v.Value)}, datalog.TypeString, nil
	case ast.BoolConst:
		return ir.Const{Value: datalog.Bool(v.Value)}, datalog.TypeBool, nil
	case ast.VectorLiteral:
		return ir.Const{Value: datalog.Vector(v.Values)}, datalog.TypeVector, nil

	case ast.Arithmetic:
		left, lt, err := b.buildExpression(v.Left, schema)
		if err != nil {
			return nil, 0, err
		}
		right, rt, err := b.buildExpression(v.Right, schema)
		if err != nil {
			return nil, 0, err
		}
		resultType := datalog.TypeFloat64
		if v.Op != ast.ArithDiv && isIntType(lt) && isIntType(rt) {
			resultType = datalog.TypeInt64
		}
		return ir.Arith{Op: v.Op, Left: left, Right: right}, resultType, nil

	case ast.FunctionCall:
		fn, err := b.Functions.MustLookup(v.Name)
		if err != nil {
			return nil, 0, errors.Compilef("build-rule", "%v", err)
		}
		args := make([]ir.Expression, len(v.Args))
		for i, a := range v.Args {
			expr, _, err := b.buildExpression(a, schema)
			if err != nil {
				return nil, 0, err
			}
			args[i] = expr
		}
		return ir.Call{Fn: fn, Args: args}, functionResultType(v.Name), nil

	default:
		return nil, 0, errors.Compilef("build-rule", "unsupported expression term %T", t)
	}
}

func isIntType(t datalog.DataType) bool {
	return t == datalog.TypeInt32 || t == datalog.TypeInt64
}

// functionResultType names the static result type of each builtin the
// scalar registry provides (datalog/scalar); the registry itself has no
// type metadata, so the builder keeps this small table in sync with it.
func functionResultType(name string) datalog.DataType {
	switch name {
	case "starts_with", "ends_with", "contains":
		return datalog.TypeBool
	case "lower", "upper":
		return datalog.TypeString
	case "quantize_sq8", "quantize_bq":
		return datalog.TypeVectorInt8
	case "dequantize_sq8":
		return datalog.TypeVector
	case "year", "month", "day", "hour", "weekday":
		return datalog.TypeInt64
	default:
		return datalog.TypeFloat64
	}
}

// buildHead compiles the rule head into a final projection over acc: an
// Aggregate node when the head contains aggregate terms, otherwise a
// Compute (for any arithmetic/constant head terms) feeding a Map that
// projects columns into head-argument order.
func (b *Builder) buildHead(rule ast.Rule, acc ir.Node) (ir.Node, error) {
	hasAggregate := false
	for _, arg := range rule.Head.Args {
		if _, ok := arg.(ast.Aggregate); ok {
			hasAggregate = true
			break
		}
	}
	if hasAggregate {
		return b.buildAggregateHead(rule, acc)
	}
	return b.buildPlainHead(rule, acc)
}

func (b *Builder) buildPlainHead(rule ast.Rule, acc ir.Node) (ir.Node, error) {
	type headCol struct {
		existingCol int // >= 0 if this head arg reuses an existing column
		name        string
		typ         datalog.DataType
	}
	cols := make([]headCol, len(rule.Head.Args))
	var extra []ir.ComputedColumn

	for i, arg := range rule.Head.Args {
		if v, ok := arg.(ast.Var); ok {
			idx := acc.Schema().FieldIndex(string(v.Name))
			if idx < 0 {
				return nil, errors.Safetyf("build-rule", "head variable %q is not bound by the rule body", v.Name)
			}
			cols[i] = headCol{existingCol: idx, name: string(v.Name), typ: acc.Schema().Fields[idx].Type}
			continue
		}
		expr, typ, err := b.buildExpression(arg, acc.Schema())
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("head%d", i)
		extra = append(extra, ir.ComputedColumn{Name: name, Expr: expr, Type: typ})
		cols[i] = headCol{existingCol: -1, name: name, typ: typ}
	}

	if len(extra) > 0 {
		acc = ir.NewCompute(acc, extra)
	}

	proj := make([]int, len(cols))
	fields := make([]datalog.Field, len(cols))
	for i, c := range cols {
		idx := c.existingCol
		if idx < 0 {
			idx = acc.Schema().FieldIndex(c.name)
		}
		proj[i] = idx
		fields[i] = datalog.Field{Name: c.name, Type: c.typ}
	}
	return ir.NewMap(acc, proj, datalog.NewSchema(fields...)), nil
}

func (b *Builder) buildAggregateHead(rule ast.Rule, acc ir.Node) (ir.Node, error) {
	schema := acc.Schema()
	var groupBy []int
	groupFields := []datalog.Field{}
	var aggs []ir.AggSpec
	aggFields := []datalog.Field{}

	for _, arg := range rule.Head.Args {
		switch t := arg.(type) {
		case ast.Var:
			idx := schema.FieldIndex(string(t.Name))
			if idx < 0 {
				return nil, errors.Safetyf("build-rule", "head variable %q is not bound by the rule body", t.Name)
			}
			groupBy = append(groupBy, idx)
			groupFields = append(groupFields, schema.Fields[idx])

		case ast.Aggregate:
			fn, err := mapAggFunc(t.Fn)
			if err != nil {
				return nil, errors.Compilef("build-rule", "%v", err)
			}
			col := schema.FieldIndex(string(t.Var))
			if col < 0 {
				return nil, errors.Safetyf("build-rule", "aggregate variable %q is not bound by the rule body", t.Var)
			}
			spec := ir.AggSpec{Func: fn, Col: col, Alias: string(t.Var), K: t.K, Descending: t.Descending, Threshold: t.Threshold, MaxDist: t.MaxDist}
			if t.OrderVar != "" {
				orderCol := schema.FieldIndex(string(t.OrderVar))
				if orderCol < 0 {
					return nil, errors.Safetyf("build-rule", "aggregate ordering variable %q is not bound by the rule body", t.OrderVar)
				}
				spec.OrderCol = orderCol
			}
			if t.DistCol != "" {
				distCol := schema.FieldIndex(string(t.DistCol))
				if distCol < 0 {
					return nil, errors.Safetyf("build-rule", "aggregate distance variable %q is not bound by the rule body", t.DistCol)
				}
				spec.DistCol = distCol
			}
			aggs = append(aggs, spec)
			aggFields = append(aggFields, datalog.Field{Name: aggOutputName(fn, string(t.Var)), Type: aggOutputType(fn, schema.Fields[col].Type)})

		default:
			return nil, errors.Compilef("build-rule", "rule head may only mix variables and aggregates, found %T", arg)
		}
	}

	outSchema := datalog.NewSchema(append(append([]datalog.Field{}, groupFields...), aggFields...)...)
	return ir.NewAggregate(acc, groupBy, aggs, outSchema), nil
}

func mapAggFunc(f ast.AggregateFunc) (ir.AggregateFunc, error) {
	switch f {
	case ast.AggCount:
		return ir.Count, nil
	case ast.AggCountDistinct:
		return ir.CountDistinct, nil
	case ast.AggSum:
		return ir.Sum, nil
	case ast.AggMin:
		return ir.Min, nil
	case ast.AggMax:
		return ir.Max, nil
	case ast.AggAvg:
		return ir.Avg, nil
	case ast.AggTopK:
		return ir.TopK, nil
	case ast.AggTopKThreshold:
		return ir.TopKThreshold, nil
	case ast.AggWithinRadius:
		return ir.WithinRadius, nil
	default:
		return 0, fmt.Errorf("unknown aggregate function %q", f)
	}
}

func aggOutputName(fn ir.AggregateFunc, alias string) string {
	return fmt.Sprintf("%s_%s", fn, alias)
}

func aggOutputType(fn ir.AggregateFunc, inputType datalog.DataType) datalog.DataType {
	switch fn {
	case ir.Count, ir.CountDistinct:
		return datalog.TypeInt64
	case ir.Sum, ir.Avg:
		return datalog.TypeFloat64
	default:
		return inputType
	}
}
