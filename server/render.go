package server

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oonrumail/threading/envelope"
	"github.com/oonrumail/threading/thread"
)

// ThreadNode is one node of a rendered thread tree. UID 0 marks a
// placeholder: a referenced-but-unseen message or a synthetic group
// parent.
type ThreadNode struct {
	UID      uint32        `json:"uid"`
	Children []*ThreadNode `json:"children,omitempty"`
}

// buildForest flattens the engine's container forest into ThreadNodes.
// The walk visits parents before children, so every node's parent is
// already materialized when the node arrives.
func buildForest(root *thread.Container[uint32]) []*ThreadNode {
	nodes := make(map[*thread.Container[uint32]]*ThreadNode)
	var forest []*ThreadNode

	thread.Walk(root, func(c *thread.Container[uint32], _ int) bool {
		if c == root {
			return true
		}
		n := &ThreadNode{}
		if c.Message != nil {
			n.UID = c.Message.Payload
		}
		nodes[c] = n
		if c.Parent == root {
			forest = append(forest, n)
		} else if p, ok := nodes[c.Parent]; ok {
			p.Children = append(p.Children, n)
		}
		return true
	})

	return forest
}

// formatThreadResponse formats thread nodes as nested-paren UID groups in
// the style of an IMAP THREAD response: (uid1 uid2 (uid3 uid4)) where uid2
// is a leaf child of uid1 and uid3 is a child of uid1 with its own child
// uid4. Bare UIDs inside a group are siblings, so this is not the RFC 5256
// encoding, in which a run of bare UIDs is a parent-to-child chain.
func formatThreadResponse(threads []*ThreadNode) string {
	var parts []string

	for _, t := range threads {
		parts = append(parts, formatThreadNode(t))
	}

	return strings.Join(parts, "")
}

// formatThreadNode formats a single thread node and its children. A
// placeholder node contributes no UID of its own; its children appear
// directly inside its paren group.
func formatThreadNode(node *ThreadNode) string {
	return "(" + strings.Join(threadNodeParts(node), " ") + ")"
}

func threadNodeParts(node *ThreadNode) []string {
	var parts []string
	if node.UID != 0 {
		parts = append(parts, fmt.Sprintf("%d", node.UID))
	}
	for _, child := range node.Children {
		if len(child.Children) == 0 && child.UID != 0 {
			parts = append(parts, fmt.Sprintf("%d", child.UID))
		} else {
			parts = append(parts, formatThreadNode(child))
		}
	}
	return parts
}

// orderedSubjectForest implements the ORDEREDSUBJECT algorithm (RFC 5256):
// messages grouped by base subject, each group a flat thread rooted at its
// oldest message, groups ordered alphabetically by subject.
func orderedSubjectForest(envs []*envelope.Envelope, normalize func(string) string) []*ThreadNode {
	groups := make(map[string][]*envelope.Envelope)
	for _, e := range envs {
		base := strings.ToLower(normalize(e.Subject))
		groups[base] = append(groups[base], e)
	}

	subjects := make([]string, 0, len(groups))
	for s := range groups {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	var forest []*ThreadNode
	for _, s := range subjects {
		group := groups[s]
		sort.SliceStable(group, func(i, j int) bool {
			if !group[i].Date.Equal(group[j].Date) {
				return group[i].Date.Before(group[j].Date)
			}
			return group[i].UID < group[j].UID
		})

		root := &ThreadNode{UID: group[0].UID}
		for _, e := range group[1:] {
			root.Children = append(root.Children, &ThreadNode{UID: e.UID})
		}
		forest = append(forest, root)
	}

	return forest
}
