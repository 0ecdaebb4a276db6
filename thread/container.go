// Package thread reconstructs conversation trees from flat message sets
// using the References-based threading algorithm (RFC 5256 REFERENCES,
// the "jwz" algorithm). Messages are slotted into Containers, Containers
// are linked according to their reference chains, empty placeholders are
// pruned, and sibling roots with matching subjects are merged under a
// common parent.
package thread

import (
	"go.uber.org/zap"
)

// MessageInfo carries the threading-relevant view of a message. Payload is
// opaque to the engine and is carried through to the output tree unchanged.
// References is the ordered chain of ancestor Message-IDs, oldest first;
// the last entry is the immediate parent. The engine appends to References
// when it detects a Message-ID clash.
type MessageInfo[T any] struct {
	ID         string
	References []string
	Subject    string
	Payload    T
}

// Container is a node of the thread tree. A Container with a nil Message
// is a placeholder: it stands for a Message-ID that was referenced but
// never seen, for the virtual root, or for a synthetic parent created by
// subject grouping.
//
// Children are encoded first-child/next-sibling: a parent's children are
// Child, Child.Next, Child.Next.Next and so on. Parent is a back-link
// only, never an ownership edge.
type Container[T any] struct {
	Message *MessageInfo[T]
	Parent  *Container[T]
	Child   *Container[T]
	Next    *Container[T]
}

// Empty reports whether the container holds no message payload.
func (c *Container[T]) Empty() bool {
	return c.Message == nil
}

// HasChildren reports whether the container has at least one child.
func (c *Container[T]) HasChildren() bool {
	return c.Child != nil
}

// addChild appends child, together with its current chain of following
// siblings, to the end of parent's children list. Every moved node is
// detached from its previous parent first. A sibling chain that loops back
// on itself is broken at the first repeated node and reported.
func (th *Threader[T]) addChild(parent, child *Container[T]) {
	// Collect the chain up front; moving nodes below rewrites Next links.
	seen := make(map[*Container[T]]struct{})
	var chain []*Container[T]
	for c := child; c != nil; c = c.Next {
		if _, dup := seen[c]; dup {
			th.logger.Warn("circular sibling chain detected, breaking at first repeat",
				zap.String("id", containerID(c)))
			break
		}
		seen[c] = struct{}{}
		chain = append(chain, c)
	}

	for _, c := range chain {
		if c.Parent != nil {
			th.removeChild(c, false)
		}
	}

	// Relink the collected nodes as a fresh chain under parent.
	for i, c := range chain {
		c.Parent = parent
		if i+1 < len(chain) {
			c.Next = chain[i+1]
		} else {
			c.Next = nil
		}
	}

	if parent.Child == nil {
		parent.Child = child
		return
	}
	tail := parent.Child
	for tail.Next != nil {
		tail = tail.Next
	}
	tail.Next = child
}

// removeChild unlinks child from its parent's children list. With
// withSiblings set, child and every sibling after it are unlinked as one
// chain (their Next links are preserved); otherwise only child is removed
// and its Next link is cleared.
func (th *Threader[T]) removeChild(child *Container[T], withSiblings bool) {
	parent := child.Parent
	if parent != nil {
		if parent.Child == child {
			if withSiblings {
				parent.Child = nil
			} else {
				parent.Child = child.Next
			}
		} else {
			for c := parent.Child; c != nil; c = c.Next {
				if c.Next == child {
					if withSiblings {
						c.Next = nil
					} else {
						c.Next = child.Next
					}
					break
				}
			}
		}
	}

	if withSiblings {
		for c := child; c != nil; c = c.Next {
			c.Parent = nil
		}
	} else {
		child.Parent = nil
		child.Next = nil
	}
}

// spliceChild replaces oldChild in its parent's children list with
// newChild and newChild's current chain of following siblings. The tail of
// the inserted chain inherits oldChild's Next link. oldChild is left fully
// detached.
func (th *Threader[T]) spliceChild(oldChild, newChild *Container[T]) {
	parent := oldChild.Parent
	if parent == nil {
		return
	}

	tail := newChild
	for {
		tail.Parent = parent
		if tail.Next == nil {
			break
		}
		tail = tail.Next
	}
	tail.Next = oldChild.Next

	if parent.Child == oldChild {
		parent.Child = newChild
	} else {
		for c := parent.Child; c != nil; c = c.Next {
			if c.Next == oldChild {
				c.Next = newChild
				break
			}
		}
	}

	oldChild.Parent = nil
	oldChild.Next = nil
}

// reachable reports whether a is b itself or a member of b's subtree. The
// indexer uses it to refuse reference links that would close a cycle.
func reachable[T any](a, b *Container[T]) bool {
	if a == b {
		return true
	}
	if b.Child == nil {
		return false
	}
	stack := []*Container[T]{b.Child}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c == a {
			return true
		}
		if c.Next != nil {
			stack = append(stack, c.Next)
		}
		if c.Child != nil {
			stack = append(stack, c.Child)
		}
	}
	return false
}

func containerID[T any](c *Container[T]) string {
	if c.Message != nil {
		return c.Message.ID
	}
	return "<placeholder>"
}
