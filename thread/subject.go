package thread

import (
	"strings"

	"go.uber.org/zap"
)

// findSubject returns the subject to group a root under. A root carrying a
// message answers directly; a placeholder answers with the first non-empty
// subject found among its descendants, immediate children before deeper
// levels. Empty string means the root cannot be grouped.
func (th *Threader[T]) findSubject(root *Container[T]) string {
	if root.Message != nil {
		return root.Message.Subject
	}
	stack := []*Container[T]{root}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for child := c.Child; child != nil; child = child.Next {
			if child.Message != nil && child.Message.Subject != "" {
				return child.Message.Subject
			}
		}
		// Descend left-to-right: push children in reverse.
		var children []*Container[T]
		for child := c.Child; child != nil; child = child.Next {
			children = append(children, child)
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return ""
}

// isReply reports whether the subject carries a reply marker, i.e. whether
// normalization strictly shortens it.
func (th *Threader[T]) isReply(subj string) bool {
	trimmed := strings.TrimSpace(subj)
	return len(th.normalize(trimmed)) < len(trimmed)
}

// groupBySubject merges root-level subtrees whose normalized subjects
// coincide, so that reference-less replies still land in the conversation
// they belong to. Phase one elects a representative root per normalized
// subject; phase two folds every other root with that subject into the
// representative.
func (th *Threader[T]) groupBySubject(root *Container[T]) {
	table := make(map[string]*Container[T])

	// Phase one: pick the representative per subject. A placeholder
	// beats a message, and an original beats a reply-prefixed version.
	for r := root.Child; r != nil; r = r.Next {
		extracted := th.findSubject(r)
		norm := th.normalize(strings.TrimSpace(extracted))
		if norm == "" {
			continue
		}
		cur, ok := table[norm]
		if !ok {
			table[norm] = r
			continue
		}
		curExtracted := th.findSubject(cur)
		if r.Empty() && !cur.Empty() {
			table[norm] = r
		} else if len(strings.TrimSpace(curExtracted)) > len(norm) &&
			strings.TrimSpace(extracted) == norm {
			table[norm] = r
		}
	}

	// Phase two: fold the remaining roots into their representatives.
	r := root.Child
	for r != nil {
		next := r.Next

		norm := th.normalize(strings.TrimSpace(th.findSubject(r)))
		if norm == "" {
			r = next
			continue
		}
		t, ok := table[norm]
		if !ok || t == r {
			r = next
			continue
		}
		// The merge may take t out of the sibling chain; don't walk
		// into it on the next step.
		if next == t {
			next = t.Next
		}

		th.mergeRoots(table, norm, r, t)
		r = next
	}
}

// mergeRoots reconciles two roots sharing a normalized subject. The table
// entry is kept pointing at whichever container remains in the root set.
func (th *Threader[T]) mergeRoots(table map[string]*Container[T], norm string, r, t *Container[T]) {
	switch {
	case r.Empty() && t.Empty():
		// Two placeholders: adopt t's children and drop t.
		for t.Child != nil {
			c := t.Child
			th.removeChild(c, false)
			th.addChild(r, c)
		}
		th.removeChild(t, false)
		table[norm] = r

	case r.Empty() != t.Empty():
		// The message root becomes a child of the placeholder root.
		if r.Empty() {
			th.removeChild(t, false)
			th.addChild(r, t)
			table[norm] = r
		} else {
			th.removeChild(r, false)
			th.addChild(t, r)
		}

	case th.isReply(th.findSubject(r)) && !th.isReply(th.findSubject(t)):
		// r is the reply to t's original.
		th.removeChild(r, false)
		th.addChild(t, r)

	case !th.isReply(th.findSubject(r)) && th.isReply(th.findSubject(t)):
		// t is the reply to r's original.
		th.removeChild(t, false)
		th.addChild(r, t)
		table[norm] = r

	default:
		// Both replies or both originals: group them under a fresh
		// placeholder in t's position.
		th.logger.Debug("grouping subject siblings under synthetic parent",
			zap.String("subject", norm))
		p := &Container[T]{}
		th.spliceChild(t, p)
		th.addChild(p, t)
		th.removeChild(r, false)
		th.addChild(p, r)
		table[norm] = p
	}
}
