package optimizer

import "github.com/lumendb/datalogx/datalog/ir"

// ReduceSemijoins rewrites every two-way Join(L, R, lk, rk) in root,
// guarded to rules with exactly one join (a heuristic against
// over-triggering on chain queries -- a multi-join rule is left to
// ReorderJoins/ExtractSharedViews instead), into:
//
//	L' = Distinct(Map(Join(L, R, lk, rk), [0..L.arity)))
//	R' = Distinct(Map(Join(R, L', rk, lk), [0..R.arity)))
//	result = Join(L', R', lk, rk)
//
// recursive names any relation belonging to a recursive stratification
// component; a Join referencing one through either side is left alone,
// since rewriting a recursive scan's semijoin filter would have to be
// recomputed every round rather than once, defeating the point.
func ReduceSemijoins(root ir.Node, recursive map[string]bool) ir.Node {
	join, ok := root.(ir.Join)
	if !ok {
		return root
	}
	if referencesRecursive(join.Left, recursive) || referencesRecursive(join.Right, recursive) {
		return root
	}
	if sharesBaseRelation(join.Left, join.Right) {
		return root
	}

	leftProj := identityProjection(len(join.Left.Schema().Fields))
	rightProj := identityProjection(len(join.Right.Schema().Fields))

	lPrime := ir.NewDistinct(ir.NewMap(join, leftProj, join.Left.Schema()))
	rJoin := ir.NewJoin(join.Right, lPrime, join.RightKeys, join.LeftKeys, joinOutputSchema(join.Right.Schema(), lPrime.Schema(), join.LeftKeys))
	rPrime := ir.NewDistinct(ir.NewMap(rJoin, rightProj, join.Right.Schema()))

	return ir.NewJoin(lPrime, rPrime, join.LeftKeys, join.RightKeys, join.Schema())
}

// ApplySemijoinReduction drives ReduceSemijoins over an entire rule IR
// tree (the join may sit under Map/Filter/Aggregate/Compute wrappers
// that must be preserved above it), counting every Join node in the
// tree first: the "exactly one join" guard applies to the whole rule,
// not to one isolated subtree.
func ApplySemijoinReduction(root ir.Node, recursive map[string]bool) ir.Node {
	if countJoins(root) != 1 {
		return root
	}
	return rewriteJoinsBottomUp(root, recursive)
}

func countJoins(n ir.Node) int {
	count := 0
	if _, ok := n.(ir.Join); ok {
		count++
	}
	for _, c := range n.Children() {
		count += countJoins(c)
	}
	return count
}

func rewriteJoinsBottomUp(n ir.Node, recursive map[string]bool) ir.Node {
	children := n.Children()
	if len(children) > 0 {
		newChildren := make([]ir.Node, len(children))
		for i, c := range children {
			newChildren[i] = rewriteJoinsBottomUp(c, recursive)
		}
		n = n.WithChildren(newChildren)
	}
	return ReduceSemijoins(n, recursive)
}

func identityProjection(n int) []int {
	proj := make([]int, n)
	for i := range proj {
		proj[i] = i
	}
	return proj
}

// referencesRecursive walks n's Scan leaves looking for a relation name
// in recursive.
func referencesRecursive(n ir.Node, recursive map[string]bool) bool {
	if scan, ok := n.(ir.Scan); ok {
		return recursive[scan.Relation]
	}
	for _, c := range n.Children() {
		if referencesRecursive(c, recursive) {
			return true
		}
	}
	return false
}

// sharesBaseRelation reports whether left and right scan any relation
// name in common -- a self-join, which semijoin reduction must not touch
// since L and R would couple to a filtered version of themselves.
func sharesBaseRelation(left, right ir.Node) bool {
	leftNames := collectScanNames(left, nil)
	rightNames := collectScanNames(right, nil)
	for n := range leftNames {
		if rightNames[n] {
			return true
		}
	}
	return false
}

func collectScanNames(n ir.Node, into map[string]bool) map[string]bool {
	if into == nil {
		into = make(map[string]bool)
	}
	if scan, ok := n.(ir.Scan); ok {
		into[scan.Relation] = true
		return into
	}
	for _, c := range n.Children() {
		collectScanNames(c, into)
	}
	return into
}
