package xpath

import (
	"github.com/midbel/axis/xml"
)

// NodeSet keeps the nodes an expression selected, in the order the
// evaluator discovered them. For forward axes that order is document
// order. Sets borrow the nodes of the document they came from.
type NodeSet []xml.Node

func NewNodeSet(nodes ...xml.Node) NodeSet {
	return NodeSet(nodes)
}

func (s NodeSet) Len() int {
	return len(s)
}

func (s NodeSet) Empty() bool {
	return len(s) == 0
}

// First returns the first node of the set, nil when empty.
func (s NodeSet) First() xml.Node {
	if len(s) == 0 {
		return nil
	}
	return s[0]
}

// Unique drops duplicate nodes, keeping the first occurrence of each.
// Two nodes are the same node when their identities are equal.
func (s NodeSet) Unique() NodeSet {
	var (
		set  NodeSet
		seen = make(map[string]struct{})
	)
	for _, n := range s {
		id := n.Identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		set = append(set, n)
	}
	return set
}

func (s NodeSet) Contains(node xml.Node) bool {
	id := node.Identity()
	for _, n := range s {
		if n.Identity() == id {
			return true
		}
	}
	return false
}

// Values lists the string value of each node in the set.
func (s NodeSet) Values() []string {
	var list []string
	for _, n := range s {
		list = append(list, n.Value())
	}
	return list
}
