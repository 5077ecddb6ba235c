package optimizer

import "github.com/lumendb/datalogx/datalog/ir"

// ExtractSharedViews walks an IR tree bottom-up, canonicalizing each
// subtree by its String() rendering, and replaces every subtree that is
// a structural duplicate of one already seen with the first occurrence
// -- the subplan-sharing pass. Because IR nodes are immutable value
// trees, pointer-sharing a duplicate subtree is safe:
// no later rewrite mutates a node in place, it always builds a new one.
// The returned map is keyed by canonical string and is mainly useful
// for the dataflow code generator to recognize which nodes to build as
// a single shared collection rather than recomputing per occurrence.
func ExtractSharedViews(root ir.Node) (ir.Node, map[string]ir.Node) {
	seen := make(map[string]ir.Node)
	return dedup(root, seen), seen
}

func dedup(n ir.Node, seen map[string]ir.Node) ir.Node {
	children := n.Children()
	if len(children) > 0 {
		newChildren := make([]ir.Node, len(children))
		for i, c := range children {
			newChildren[i] = dedup(c, seen)
		}
		n = n.WithChildren(newChildren)
	}
	key := n.String()
	if existing, ok := seen[key]; ok {
		return existing
	}
	seen[key] = n
	return n
}
