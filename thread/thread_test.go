package thread

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestThreader() *Threader[int] {
	return New[int](zap.NewNop(), nil)
}

func msg(id string, refs []string, subj string) *MessageInfo[int] {
	return &MessageInfo[int]{ID: id, References: refs, Subject: subj}
}

// forest renders the children of the virtual root as a compact sketch:
// message ids with parenthesized children, placeholders as "?".
// "a(b(c)) d" is a forest of two trees.
func forest(root *Container[int]) string {
	var b strings.Builder
	var render func(n *Container[int])
	render = func(n *Container[int]) {
		if n.Message != nil {
			b.WriteString(n.Message.ID)
		} else {
			b.WriteString("?")
		}
		if n.Child != nil {
			b.WriteString("(")
			for c := n.Child; c != nil; c = c.Next {
				if c != n.Child {
					b.WriteString(" ")
				}
				render(c)
			}
			b.WriteString(")")
		}
	}
	for c := root.Child; c != nil; c = c.Next {
		if c != root.Child {
			b.WriteString(" ")
		}
		render(c)
	}
	return b.String()
}

func TestThreadEmptyInput(t *testing.T) {
	th := newTestThreader()

	root := th.Thread(nil, true)

	require.NotNil(t, root)
	assert.Nil(t, root.Parent)
	assert.Nil(t, root.Child)
	assert.Nil(t, root.Message)
}

func TestThreadSimpleChain(t *testing.T) {
	th := newTestThreader()
	msgs := []*MessageInfo[int]{
		msg("a", nil, "Hi"),
		msg("b", []string{"a"}, "Re: Hi"),
		msg("c", []string{"a", "b"}, "Re: Hi"),
	}

	root := th.Thread(msgs, true)

	assert.Equal(t, "a(b(c))", forest(root))
}

func TestThreadMissingMiddle(t *testing.T) {
	msgs := func() []*MessageInfo[int] {
		return []*MessageInfo[int]{
			msg("a", nil, "X"),
			msg("c", []string{"a", "b"}, "Re: X"),
		}
	}

	t.Run("without compaction", func(t *testing.T) {
		root := newTestThreader().Thread(msgs(), false)
		assert.Equal(t, "a(?(c))", forest(root))
	})

	t.Run("with compaction", func(t *testing.T) {
		root := newTestThreader().Thread(msgs(), true)
		assert.Equal(t, "a(c)", forest(root))
	})
}

func TestThreadSubjectMergeNoReferences(t *testing.T) {
	th := newTestThreader()
	msgs := []*MessageInfo[int]{
		msg("a", nil, "Hello"),
		msg("b", nil, "Re: Hello"),
	}

	root := th.Thread(msgs, true)

	// The original keeps the root slot; the reply becomes its child.
	assert.Equal(t, "a(b)", forest(root))
}

func TestThreadSubjectMergeBothReplies(t *testing.T) {
	th := newTestThreader()
	msgs := []*MessageInfo[int]{
		msg("a", nil, "Re: Hello"),
		msg("b", nil, "Re: Hello"),
	}

	root := th.Thread(msgs, true)

	// Neither is the original, so both group under a synthetic parent.
	assert.Equal(t, "?(a b)", forest(root))
}

func TestThreadIDClash(t *testing.T) {
	th := newTestThreader()
	first := msg("x", nil, "First")
	second := msg("x", nil, "Second")

	root := th.Thread([]*MessageInfo[int]{first, second}, true)

	require.NotNil(t, root.Child)
	assert.Same(t, first, root.Child.Message)
	require.NotNil(t, root.Child.Child)
	assert.Same(t, second, root.Child.Child.Message)
	assert.Nil(t, root.Child.Next)

	// The clash rewrites the second message's references so it points at
	// the first occurrence.
	assert.Equal(t, []string{"x"}, second.References)
}

func TestThreadCycleSuppression(t *testing.T) {
	th := newTestThreader()
	msgs := []*MessageInfo[int]{
		msg("a", []string{"b"}, "A"),
		msg("b", []string{"a"}, "B"),
	}

	root := th.Thread(msgs, false)

	// First-seen linking wins: a was parented under placeholder b, so b's
	// own attempt to nest under a is dropped as a cycle.
	assert.Equal(t, "b(a)", forest(root))
	assert.Len(t, Messages(root), 2)
}

func TestThreadLastReferenceWins(t *testing.T) {
	th := newTestThreader()
	msgs := []*MessageInfo[int]{
		msg("a", nil, "T"),
		msg("b", nil, "S"),
		// c first shows up as a child of a, then a later sighting of
		// the full chain moves it under b.
		msg("c", []string{"a"}, "Re: T"),
		msg("d", []string{"b", "c"}, "Re: S"),
	}

	root := th.Thread(msgs, false)

	assert.Equal(t, "a b(c(d))", forest(root))
}

func TestThreadDuplicateReferencesAbsorbed(t *testing.T) {
	th := newTestThreader()
	msgs := []*MessageInfo[int]{
		msg("a", nil, "T"),
		msg("b", []string{"a", "a", "a"}, "Re: T"),
	}

	root := th.Thread(msgs, true)

	assert.Equal(t, "a(b)", forest(root))
}

func TestThreadRootOrderFollowsInsertion(t *testing.T) {
	th := newTestThreader()
	msgs := []*MessageInfo[int]{
		msg("z", nil, "Zed"),
		msg("m", nil, "Em"),
		msg("a", nil, "Ay"),
	}

	root := th.Thread(msgs, false)

	assert.Equal(t, "z m a", forest(root))
}

func TestThreadReferencedButUnseenID(t *testing.T) {
	th := newTestThreader()
	msgs := []*MessageInfo[int]{
		msg("b", []string{"ghost"}, "Re: Boo"),
		msg("c", []string{"ghost"}, "Re: Boo"),
	}

	t.Run("placeholder kept", func(t *testing.T) {
		root := th.Thread(msgs, false)
		assert.Equal(t, "?(b c)", forest(root))
	})

	t.Run("placeholder survives compaction at root with two children", func(t *testing.T) {
		root := th.Thread(msgs, true)
		assert.Equal(t, "?(b c)", forest(root))
	})
}
