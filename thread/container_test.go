package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func node(id string) *Container[int] {
	return &Container[int]{Message: &MessageInfo[int]{ID: id}}
}

func childIDs(parent *Container[int]) []string {
	var ids []string
	for c := parent.Child; c != nil; c = c.Next {
		ids = append(ids, containerID(c))
	}
	return ids
}

func TestAddChildAppends(t *testing.T) {
	th := newTestThreader()
	parent := node("p")

	a, b, c := node("a"), node("b"), node("c")
	th.addChild(parent, a)
	th.addChild(parent, b)
	th.addChild(parent, c)

	assert.Equal(t, []string{"a", "b", "c"}, childIDs(parent))
	for _, n := range []*Container[int]{a, b, c} {
		assert.Same(t, parent, n.Parent)
	}
}

func TestAddChildMovesSiblingChain(t *testing.T) {
	th := newTestThreader()
	oldParent, newParent := node("old"), node("new")

	a, b, c := node("a"), node("b"), node("c")
	th.addChild(oldParent, a)
	th.addChild(oldParent, b)
	th.addChild(oldParent, c)

	// Detach b and its tail as a chain, then move both.
	th.removeChild(b, true)
	th.addChild(newParent, b)

	assert.Equal(t, []string{"a"}, childIDs(oldParent))
	assert.Equal(t, []string{"b", "c"}, childIDs(newParent))
	assert.Same(t, newParent, b.Parent)
	assert.Same(t, newParent, c.Parent)
}

func TestAddChildReparentsFromPreviousParent(t *testing.T) {
	th := newTestThreader()
	p1, p2 := node("p1"), node("p2")

	a, b := node("a"), node("b")
	th.addChild(p1, a)
	th.addChild(p1, b)

	th.removeChild(a, false)
	th.addChild(p2, a)

	assert.Equal(t, []string{"b"}, childIDs(p1))
	assert.Equal(t, []string{"a"}, childIDs(p2))
	assert.Nil(t, a.Next)
}

func TestAddChildBreaksSiblingCycle(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	th := New[int](zap.New(core), nil)
	parent := node("p")

	a, b := node("a"), node("b")
	a.Next = b
	b.Next = a // corrupt chain looping back

	th.addChild(parent, a)

	assert.Equal(t, []string{"a", "b"}, childIDs(parent))
	assert.Nil(t, b.Next)
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "circular sibling chain")
}

func TestRemoveChild(t *testing.T) {
	tests := []struct {
		name         string
		remove       string
		withSiblings bool
		want         []string
	}{
		{name: "head", remove: "a", withSiblings: false, want: []string{"b", "c"}},
		{name: "middle", remove: "b", withSiblings: false, want: []string{"a", "c"}},
		{name: "tail", remove: "c", withSiblings: false, want: []string{"a", "b"}},
		{name: "head with siblings", remove: "a", withSiblings: true, want: nil},
		{name: "middle with siblings", remove: "b", withSiblings: true, want: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := newTestThreader()
			parent := node("p")
			byID := map[string]*Container[int]{}
			for _, id := range []string{"a", "b", "c"} {
				n := node(id)
				byID[id] = n
				th.addChild(parent, n)
			}

			th.removeChild(byID[tt.remove], tt.withSiblings)

			assert.Equal(t, tt.want, childIDs(parent))
			assert.Nil(t, byID[tt.remove].Parent)
			if !tt.withSiblings {
				assert.Nil(t, byID[tt.remove].Next)
			}
		})
	}
}

func TestRemoveChildWithSiblingsKeepsChainLinked(t *testing.T) {
	th := newTestThreader()
	parent := node("p")
	a, b, c := node("a"), node("b"), node("c")
	th.addChild(parent, a)
	th.addChild(parent, b)
	th.addChild(parent, c)

	th.removeChild(b, true)

	assert.Same(t, c, b.Next)
	assert.Nil(t, b.Parent)
	assert.Nil(t, c.Parent)
}

func TestSpliceChild(t *testing.T) {
	th := newTestThreader()
	parent := node("p")
	a, b, c := node("a"), node("b"), node("c")
	th.addChild(parent, a)
	th.addChild(parent, b)
	th.addChild(parent, c)

	// Replace b with a two-node chain.
	x, y := node("x"), node("y")
	x.Next = y
	th.spliceChild(b, x)

	assert.Equal(t, []string{"a", "x", "y", "c"}, childIDs(parent))
	assert.Same(t, parent, x.Parent)
	assert.Same(t, parent, y.Parent)
	assert.Nil(t, b.Parent)
	assert.Nil(t, b.Next)
}

func TestSpliceChildAtHead(t *testing.T) {
	th := newTestThreader()
	parent := node("p")
	a, b := node("a"), node("b")
	th.addChild(parent, a)
	th.addChild(parent, b)

	x := node("x")
	th.spliceChild(a, x)

	assert.Equal(t, []string{"x", "b"}, childIDs(parent))
	assert.Same(t, x, parent.Child)
}

func TestReachable(t *testing.T) {
	th := newTestThreader()
	root := node("root")
	a, b, c, d := node("a"), node("b"), node("c"), node("d")
	th.addChild(root, a)
	th.addChild(root, b)
	th.addChild(a, c)
	th.addChild(c, d)

	assert.True(t, reachable(root, root), "self")
	assert.True(t, reachable(d, root), "deep descendant")
	assert.True(t, reachable(d, a), "descendant via chain")
	assert.True(t, reachable(b, root), "sibling branch")
	assert.False(t, reachable(root, d), "ancestor is not reachable downward")
	assert.False(t, reachable(b, a), "cousin branch")
	assert.False(t, reachable(a, d), "leaf has no subtree")
}
