package thread

type walkItem[T any] struct {
	c     *Container[T]
	depth int
}

// Walk visits root and every container in its subtree in depth-first
// preorder, siblings left to right. Return false from visit to stop early.
// The traversal is iterative; tree depth is not bounded by the goroutine
// stack.
func Walk[T any](root *Container[T], visit func(c *Container[T], depth int) bool) {
	if root == nil {
		return
	}
	if !visit(root, 0) {
		return
	}
	if root.Child == nil {
		return
	}
	stack := []walkItem[T]{{root.Child, 1}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(it.c, it.depth) {
			return
		}
		if it.c.Next != nil {
			stack = append(stack, walkItem[T]{it.c.Next, it.depth})
		}
		if it.c.Child != nil {
			stack = append(stack, walkItem[T]{it.c.Child, it.depth + 1})
		}
	}
}

// Messages collects every message in the subtree of root, in walk order.
func Messages[T any](root *Container[T]) []*MessageInfo[T] {
	var out []*MessageInfo[T]
	Walk(root, func(c *Container[T], _ int) bool {
		if c.Message != nil {
			out = append(out, c.Message)
		}
		return true
	})
	return out
}

// Count returns the number of containers in the subtree of root, the root
// itself included.
func Count[T any](root *Container[T]) int {
	n := 0
	Walk(root, func(*Container[T], int) bool {
		n++
		return true
	})
	return n
}
