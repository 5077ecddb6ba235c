package optimizer

import (
	"container/heap"

	"github.com/lumendb/datalogx/datalog"
	"github.com/lumendb/datalogx/datalog/catalog"
	"github.com/lumendb/datalogx/datalog/ir"
)

// ReorderJoins flattens a left-deep Join chain into its leaves and
// rebuilds it in an order chosen by a minimum-spanning-tree search over
// a cost graph where the edge weight between two leaves is lower the
// more join-key columns they share -- so leaves with a rich shared key
// join first, following the lvlath package's Prim implementation
// (graph/prim_kruskal.go: a min-heap of candidate edges grown one
// vertex at a time) adapted from graph edges to join-plan leaves.
func ReorderJoins(root ir.Node) ir.Node {
	leaves := flattenJoins(root)
	if len(leaves) <= 2 {
		return root
	}

	n := len(leaves)
	weight := make([][]int, n)
	for i := range weight {
		weight[i] = make([]int, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			shared := len(catalog.SharedNames(leaves[i].Schema(), leaves[j].Schema()))
			w := 1 << 20 / (shared + 1) // fewer shared keys => higher (worse) weight
			weight[i][j] = w
			weight[j][i] = w
		}
	}

	order := primOrder(weight, n)

	acc := leaves[order[0]]
	for _, idx := range order[1:] {
		next := leaves[idx]
		leftKeys, rightKeys, _ := catalog.JoinKeys(acc.Schema(), next.Schema())
		acc = ir.NewJoin(acc, next, leftKeys, rightKeys, joinOutputSchema(acc.Schema(), next.Schema(), rightKeys))
	}
	return acc
}

// ApplyJoinReordering drives ReorderJoins over an entire rule IR tree:
// a join chain can sit under Map/Filter/Aggregate wrappers the IR
// Builder or an earlier rewrite pass added, so every node's children are
// normalized first and ReorderJoins is applied to the node itself only
// when it roots a join chain -- flattenJoins over an already-normalized
// child never re-flattens a chain twice.
func ApplyJoinReordering(root ir.Node) ir.Node {
	children := root.Children()
	if len(children) > 0 {
		newChildren := make([]ir.Node, len(children))
		for i, c := range children {
			newChildren[i] = ApplyJoinReordering(c)
		}
		root = root.WithChildren(newChildren)
	}
	if _, ok := root.(ir.Join); ok {
		return ReorderJoins(root)
	}
	return root
}

// flattenJoins walks a left-deep Join chain (the shape the IR Builder
// produces) and returns its leaves in original left-to-right order.
func flattenJoins(n ir.Node) []ir.Node {
	if j, ok := n.(ir.Join); ok {
		return append(flattenJoins(j.Left), j.Right)
	}
	return []ir.Node{n}
}

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

// candidate is one entry in the lazy-deletion Prim priority queue: a
// not-yet-visited leaf index and the weight of the cheapest edge found
// so far connecting it to the growing tree.
type candidate struct {
	node   int
	weight int
}

type candidatePQ []candidate

func (pq candidatePQ) Len() int            { return len(pq) }
func (pq candidatePQ) Less(i, j int) bool  { return pq[i].weight < pq[j].weight }
func (pq candidatePQ) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *candidatePQ) Push(x interface{}) { *pq = append(*pq, x.(candidate)) }
func (pq *candidatePQ) Pop() interface{} {
	old := *pq
	n := len(old)
	c := old[n-1]
	*pq = old[:n-1]
	return c
}

// primOrder runs Prim's algorithm over a dense weight matrix starting
// from node 0, using lazy deletion (stale heap entries for an
// already-visited node are simply skipped) rather than a decrease-key
// operation, and returns the order nodes joined the spanning tree in.
func primOrder(weight [][]int, n int) []int {
	visited := make([]bool, n)
	visited[0] = true
	order := make([]int, 1, n)
	order[0] = 0

	pq := &candidatePQ{}
	heap.Init(pq)
	for j := 1; j < n; j++ {
		heap.Push(pq, candidate{node: j, weight: weight[0][j]})
	}

	for len(order) < n && pq.Len() > 0 {
		top := heap.Pop(pq).(candidate)
		if visited[top.node] {
			continue
		}
		visited[top.node] = true
		order = append(order, top.node)
		for j := 0; j < n; j++ {
			if !visited[j] {
				heap.Push(pq, candidate{node: j, weight: weight[top.node][j]})
			}
		}
	}
	return order
}
