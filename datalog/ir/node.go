// Package ir is the algebraic operator tree: Scan, Map,
// Filter, Join, Antijoin, Distinct, Union, Aggregate, Compute, HnswScan,
// and the optimizer-only fused FlatMap/JoinFlatMap forms. IR trees are
// immutable; every rewrite in datalog/optimizer produces a new tree.
// Every node knows its output schema, either stored or computed from its
// input, so every later pass (including the dataflow code generator) can
// validate column references without re-deriving shapes from scratch.
package ir

import (
	"fmt"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/semiring"
)

// Node is any IR operator. Every node is a value-like immutable struct;
// rewrites build new Node values rather than mutating existing ones.
type Node interface {
	// Schema returns the node's output TupleSchema.
	Schema() datalog.TupleSchema
	// Children returns the node's direct inputs, in order.
	Children() []Node
	// WithChildren returns a copy of the node with its children replaced,
	// in the same order Children() returned them. Used by generic
	// bottom-up rewrite drivers in the optimizer.
	WithChildren(children []Node) Node
	// Semiring is the diff type annotation produced by optimizer pass
	// C7 (semiring specialization); Unknown until that pass runs.
	Semiring() semiring.Type
	// WithSemiring returns a copy annotated with the given semiring.
	WithSemiring(t semiring.Type) Node
	String() string
}

// base centralizes the semiring annotation every node carries.
type base struct {
	sr semiring.Type
}

func (b base) Semiring() semiring.Type { return b.sr }

// Scan is a leaf node materializing a named collection.
type Scan struct {
	base
	Relation string
	Sch      datalog.TupleSchema
}

func NewScan(relation string, schema datalog.TupleSchema) Scan {
	return Scan{Relation: relation, Sch: schema}
}
func (n Scan) Schema() datalog.TupleSchema   { return n.Sch }
func (n Scan) Children() []Node              { return nil }
func (n Scan) WithChildren([]Node) Node      { return n }
func (n Scan) WithSemiring(t semiring.Type) Node {
	n.sr = t
	return n
}
func (n Scan) String() string { return fmt.Sprintf("Scan(%s)", n.Relation) }

// Map reshapes rows by an ordered projection of input column indices.
type Map struct {
	base
	Input     Node
	Proj      []int
	OutSchema datalog.TupleSchema
}

func NewMap(input Node, proj []int, outSchema datalog.TupleSchema) Map {
	return Map{Input: input, Proj: proj, OutSchema: outSchema}
}
func (n Map) Schema() datalog.TupleSchema { return n.OutSchema }
func (n Map) Children() []Node            { return []Node{n.Input} }
func (n Map) WithChildren(c []Node) Node {
	n.Input = c[0]
	return n
}
func (n Map) WithSemiring(t semiring.Type) Node {
	n.sr = t
	return n
}
func (n Map) String() string { return fmt.Sprintf("Map(%s, %v)", n.Input, n.Proj) }

// IsIdentity reports whether the projection is [0,1,...,n-1] over an
// input of the same arity (used by the identity-map-elimination pass).
func (n Map) IsIdentity() bool {
	if len(n.Proj) != n.Input.Schema().Arity() {
		return false
	}
	for i, p := range n.Proj {
		if p != i {
			return false
		}
	}
	return true
}

// Filter retains rows where Pred evaluates to true.
type Filter struct {
	base
	Input Node
	Pred  Predicate
}

func NewFilter(input Node, pred Predicate) Filter {
	return Filter{Input: input, Pred: pred}
}
func (n Filter) Schema() datalog.TupleSchema { return n.Input.Schema() }
func (n Filter) Children() []Node            { return []Node{n.Input} }
func (n Filter) WithChildren(c []Node) Node {
	n.Input = c[0]
	return n
}
func (n Filter) WithSemiring(t semiring.Type) Node {
	n.sr = t
	return n
}
func (n Filter) String() string { return fmt.Sprintf("Filter(%s, %s)", n.Input, n.Pred) }

// Join is an equi-join on parallel key-index lists. Output schema is
// left ∪ (right minus key columns).
type Join struct {
	base
	Left, Right         Node
	LeftKeys, RightKeys  []int
	OutSchema            datalog.TupleSchema
}

func NewJoin(left, right Node, leftKeys, rightKeys []int, outSchema datalog.TupleSchema) Join {
	return Join{Left: left, Right: right, LeftKeys: leftKeys, RightKeys: rightKeys, OutSchema: outSchema}
}
func (n Join) Schema() datalog.TupleSchema { return n.OutSchema }
func (n Join) Children() []Node            { return []Node{n.Left, n.Right} }
func (n Join) WithChildren(c []Node) Node {
	n.Left, n.Right = c[0], c[1]
	return n
}
func (n Join) WithSemiring(t semiring.Type) Node {
	n.sr = t
	return n
}
func (n Join) String() string {
	return fmt.Sprintf("Join(%s, %s, %v=%v)", n.Left, n.Right, n.LeftKeys, n.RightKeys)
}

// Antijoin keeps a left tuple iff no right tuple matches on keys.
type Antijoin struct {
	base
	Left, Right        Node
	LeftKeys, RightKeys []int
}

func NewAntijoin(left, right Node, leftKeys, rightKeys []int) Antijoin {
	return Antijoin{Left: left, Right: right, LeftKeys: leftKeys, RightKeys: rightKeys}
}
func (n Antijoin) Schema() datalog.TupleSchema { return n.Left.Schema() }
func (n Antijoin) Children() []Node            { return []Node{n.Left, n.Right} }
func (n Antijoin) WithChildren(c []Node) Node {
	n.Left, n.Right = c[0], c[1]
	return n
}
func (n Antijoin) WithSemiring(t semiring.Type) Node {
	n.sr = t
	return n
}
func (n Antijoin) String() string {
	return fmt.Sprintf("Antijoin(%s, %s, %v=%v)", n.Left, n.Right, n.LeftKeys, n.RightKeys)
}

// Distinct is set-semantic deduplication of its input.
type Distinct struct {
	base
	Input Node
}

func NewDistinct(input Node) Distinct { return Distinct{Input: input} }
func (n Distinct) Schema() datalog.TupleSchema { return n.Input.Schema() }
func (n Distinct) Children() []Node            { return []Node{n.Input} }
func (n Distinct) WithChildren(c []Node) Node {
	n.Input = c[0]
	return n
}
func (n Distinct) WithSemiring(t semiring.Type) Node {
	n.sr = t
	return n
}
func (n Distinct) String() string { return fmt.Sprintf("Distinct(%s)", n.Input) }

// Union is a set of inputs sharing the same schema.
type Union struct {
	base
	Inputs []Node
	Sch    datalog.TupleSchema
}

func NewUnion(sch datalog.TupleSchema, inputs ...Node) Union {
	return Union{Inputs: inputs, Sch: sch}
}
func (n Union) Schema() datalog.TupleSchema { return n.Sch }
func (n Union) Children() []Node            { return n.Inputs }
func (n Union) WithChildren(c []Node) Node {
	n.Inputs = c
	return n
}
func (n Union) WithSemiring(t semiring.Type) Node {
	n.sr = t
	return n
}
func (n Union) String() string { return fmt.Sprintf("Union(%d inputs)", len(n.Inputs)) }

// Aggregate groups by columns and applies one or more aggregations.
type Aggregate struct {
	base
	Input     Node
	GroupBy   []int
	Aggs      []AggSpec
	OutSchema datalog.TupleSchema
}

func NewAggregate(input Node, groupBy []int, aggs []AggSpec, outSchema datalog.TupleSchema) Aggregate {
	return Aggregate{Input: input, GroupBy: groupBy, Aggs: aggs, OutSchema: outSchema}
}
func (n Aggregate) Schema() datalog.TupleSchema { return n.OutSchema }
func (n Aggregate) Children() []Node            { return []Node{n.Input} }
func (n Aggregate) WithChildren(c []Node) Node {
	n.Input = c[0]
	return n
}
func (n Aggregate) WithSemiring(t semiring.Type) Node {
	n.sr = t
	return n
}
func (n Aggregate) String() string {
	return fmt.Sprintf("Aggregate(%s, group=%v)", n.Input, n.GroupBy)
}

// ComputedColumn is one (name, expression) pair a Compute node appends.
type ComputedColumn struct {
	Name string
	Expr Expression
	Type datalog.DataType
}

// Compute appends computed columns to each row.
type Compute struct {
	base
	Input   Node
	Columns []ComputedColumn
}

func NewCompute(input Node, columns []ComputedColumn) Compute {
	return Compute{Input: input, Columns: columns}
}
func (n Compute) Schema() datalog.TupleSchema {
	fields := append([]datalog.Field{}, n.Input.Schema().Fields...)
	for _, c := range n.Columns {
		fields = append(fields, datalog.Field{Name: c.Name, Type: c.Type})
	}
	return datalog.NewSchema(fields...)
}
func (n Compute) Children() []Node { return []Node{n.Input} }
func (n Compute) WithChildren(c []Node) Node {
	n.Input = c[0]
	return n
}
func (n Compute) WithSemiring(t semiring.Type) Node {
	n.sr = t
	return n
}
func (n Compute) String() string { return fmt.Sprintf("Compute(%s, +%d cols)", n.Input, len(n.Columns)) }

// HnswScan is a leaf querying a vector index for approximate nearest
// neighbors.
type HnswScan struct {
	base
	IndexName string
	Query     Expression
	K         int
	EfSearch  int
	Sch       datalog.TupleSchema
}

func NewHnswScan(indexName string, query Expression, k, efSearch int, schema datalog.TupleSchema) HnswScan {
	return HnswScan{IndexName: indexName, Query: query, K: k, EfSearch: efSearch, Sch: schema}
}
func (n HnswScan) Schema() datalog.TupleSchema { return n.Sch }
func (n HnswScan) Children() []Node            { return nil }
func (n HnswScan) WithChildren([]Node) Node    { return n }
func (n HnswScan) WithSemiring(t semiring.Type) Node {
	n.sr = t
	return n
}
func (n HnswScan) String() string { return fmt.Sprintf("HnswScan(%s, k=%d)", n.IndexName, n.K) }

// FlatMap is the optimizer-introduced fusion of Map+Filter into a single
// pass: it evaluates Pred against the input row and, if it passes,
// projects Proj.
type FlatMap struct {
	base
	Input     Node
	Pred      Predicate
	Proj      []int
	OutSchema datalog.TupleSchema
}

func (n FlatMap) Schema() datalog.TupleSchema { return n.OutSchema }
func (n FlatMap) Children() []Node            { return []Node{n.Input} }
func (n FlatMap) WithChildren(c []Node) Node {
	n.Input = c[0]
	return n
}
func (n FlatMap) WithSemiring(t semiring.Type) Node {
	n.sr = t
	return n
}
func (n FlatMap) String() string { return fmt.Sprintf("FlatMap(%s)", n.Input) }

// JoinFlatMap is the optimizer-introduced fusion of Join+Map+Filter.
type JoinFlatMap struct {
	base
	Left, Right        Node
	LeftKeys, RightKeys []int
	Pred               Predicate
	Proj               []int
	OutSchema          datalog.TupleSchema
}

func (n JoinFlatMap) Schema() datalog.TupleSchema { return n.OutSchema }
func (n JoinFlatMap) Children() []Node            { return []Node{n.Left, n.Right} }
func (n JoinFlatMap) WithChildren(c []Node) Node {
	n.Left, n.Right = c[0], c[1]
	return n
}
func (n JoinFlatMap) WithSemiring(t semiring.Type) Node {
	n.sr = t
	return n
}
func (n JoinFlatMap) String() string { return fmt.Sprintf("JoinFlatMap(%s, %s)", n.Left, n.Right) }
