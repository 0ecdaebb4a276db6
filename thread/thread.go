package thread

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oonrumail/threading/subject"
)

// Normalizer strips reply markers from a subject line. It must be a pure
// function; the engine calls it repeatedly for the same input.
type Normalizer func(string) string

// Threader builds conversation trees from flat message collections. A
// Threader is stateless between calls; every Thread invocation allocates
// fresh containers owned by the returned virtual root. The zero-value
// configuration (nil logger, nil normalizer) is usable via New.
type Threader[T any] struct {
	logger    *zap.Logger
	normalize Normalizer
}

// New creates a Threader. A nil logger disables diagnostics; a nil
// normalizer falls back to subject.StripReplyPrefix.
func New[T any](logger *zap.Logger, normalize Normalizer) *Threader[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	if normalize == nil {
		normalize = subject.StripReplyPrefix
	}
	return &Threader[T]{logger: logger, normalize: normalize}
}

// Thread builds the conversation forest for msgs and returns its virtual
// root. The virtual root never carries a message and never has a parent;
// its children are the conversation roots. With compact set, placeholder
// containers that add no structure are removed. Thread never fails: all
// input anomalies (id clashes, duplicate or cyclic references, empty
// subjects) are absorbed.
func (th *Threader[T]) Thread(msgs []*MessageInfo[T], compact bool) *Container[T] {
	root := &Container[T]{}
	if len(msgs) == 0 {
		return root
	}

	table, order := th.index(msgs)

	// Root collection: containers without a parent, in first-insertion
	// order, become the root sibling chain.
	var head, tail *Container[T]
	for _, id := range order {
		c := table[id]
		if c.Parent != nil {
			continue
		}
		if head == nil {
			head = c
		} else {
			tail.Next = c
		}
		tail = c
	}
	if head != nil {
		th.addChild(root, head)
	}

	if compact {
		th.prune(root)
	}
	th.groupBySubject(root)

	return root
}

// index maps every observed Message-ID to a container and links the
// containers according to the reference chains. The returned order slice
// preserves first insertion, which fixes the order of the discovered
// roots.
func (th *Threader[T]) index(msgs []*MessageInfo[T]) (map[string]*Container[T], []string) {
	table := make(map[string]*Container[T], len(msgs))
	order := make([]string, 0, len(msgs))

	get := func(id string) *Container[T] {
		if c, ok := table[id]; ok {
			return c
		}
		c := &Container[T]{}
		table[id] = c
		order = append(order, id)
		return c
	}

	for _, m := range msgs {
		// Slot the message into its container.
		id := m.ID
		c, ok := table[id]
		switch {
		case ok && c.Message == nil:
			c.Message = m
		case ok:
			// Message-ID clash: the later occurrence becomes a
			// reply to the earlier one under a synthetic id.
			th.logger.Warn("duplicate message id, rethreading as reply to first occurrence",
				zap.String("message_id", id))
			m.References = append(m.References, id)
			id = syntheticID(id)
			c = &Container[T]{Message: m}
			table[id] = c
			order = append(order, id)
		default:
			c = &Container[T]{Message: m}
			table[id] = c
			order = append(order, id)
		}

		// Walk the reference chain, linking consecutive entries as
		// parent and child. Links that would close a cycle are
		// dropped; a later link for the same child overrides an
		// earlier inferred parent.
		var prev *Container[T]
		for _, ref := range m.References {
			cr := get(ref)
			if prev != nil && !reachable(cr, prev) && !reachable(prev, cr) {
				if cr.Parent != nil {
					th.removeChild(cr, false)
				}
				th.addChild(prev, cr)
			}
			prev = cr
		}

		// The last reference is the definitive parent of the message
		// itself, unless that would make the message its own
		// ancestor.
		if prev != nil && prev != c && c.Parent != prev && !reachable(prev, c) {
			if c.Parent != nil {
				th.removeChild(c, false)
			}
			th.addChild(prev, c)
		}
	}

	return table, order
}

// syntheticID derives a fresh id for the second occurrence of a clashing
// Message-ID. The uuid suffix keeps it collision-free and distinguishable
// from any real id.
func syntheticID(id string) string {
	return fmt.Sprintf("%s#dup-%s", id, uuid.New().String())
}
