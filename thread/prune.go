package thread

// pruneFrame is one level of the iterative prune walk: the node being
// visited and the next of its children still to descend into.
type pruneFrame[T any] struct {
	node *Container[T]
	next *Container[T]
}

// prune removes placeholder containers that add no structure. An empty
// leaf is dropped. An empty container with children is replaced by those
// children, except directly under the virtual root where promotion is only
// allowed for a single child; promoting a placeholder's whole brood to the
// top level would flood the root set.
//
// Each node is judged after its subtree has been pruned, so a placeholder
// whose children all disappear is itself removed. The walk is an explicit
// frame stack, never recursion, so arbitrarily deep trees are fine.
func (th *Threader[T]) prune(root *Container[T]) {
	stack := []pruneFrame[T]{{node: root, next: root.Child}}
	for len(stack) > 0 {
		i := len(stack) - 1
		if c := stack[i].next; c != nil {
			stack[i].next = c.Next
			stack = append(stack, pruneFrame[T]{node: c, next: c.Child})
			continue
		}

		n := stack[i].node
		stack = stack[:i]
		if n == root || !n.Empty() {
			continue
		}

		switch {
		case !n.HasChildren():
			th.removeChild(n, false)
		case n.Parent != root || n.Child.Next == nil:
			// Splice the children into the placeholder's
			// position. They are already pruned, so the enclosing
			// frame does not need to revisit them.
			promoted := n.Child
			n.Child = nil
			th.spliceChild(n, promoted)
		}
	}
}
