package xml

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"maps"
	"sort"
	"strings"
)

type CmpMode int

const (
	CmpOrdered CmpMode = iota
	CmpUnordered
)

type CmpResult struct {
	Source Node
	Target Node
	Match  bool
}

var ErrCompare = errors.New("documents mismatched")

// CompareFiles checks that two documents carry the same content. In
// ordered mode the order of sibling elements matters, in unordered mode
// only their content does.
func CompareFiles(source, target string, mode CmpMode) (CmpResult, error) {
	doc1, err := hashFile(source, mode)
	if err != nil {
		var res CmpResult
		return res, err
	}
	doc2, err := hashFile(target, mode)
	if err != nil {
		var res CmpResult
		return res, err
	}
	return compareHash(doc1, doc2, mode)
}

func CompareDocuments(source, target *Document, mode CmpMode) (CmpResult, error) {
	var (
		doc1 = buildHashTree(source.Root(), mode)
		doc2 = buildHashTree(target.Root(), mode)
	)
	return compareHash(doc1, doc2, mode)
}

func compareHash(doc1, doc2 *hashNode, mode CmpMode) (CmpResult, error) {
	var err error
	res := doc1.Compare(doc2, mode)
	if !res.Match {
		err = ErrCompare
	}
	return res, err
}

func hashFile(file string, mode CmpMode) (*hashNode, error) {
	doc, err := ParseFile(file)
	if err != nil {
		return nil, err
	}
	return buildHashTree(doc.Root(), mode), nil
}

type hashNode struct {
	Node
	orderedHash   uint64
	unorderedHash uint64
	children      map[uint64]*hashNode
}

func (n *hashNode) Compare(other *hashNode, mode CmpMode) CmpResult {
	res := CmpResult{
		Source: n.Node,
		Target: other.Node,
	}
	if len(other.children) != len(n.children) {
		return res
	}
	values := maps.Clone(other.children)
	for k, v := range n.children {
		x, ok := values[k]
		if !ok {
			res.Source = v.Node
			res.Target = other.Node
			break
		}
		if res := v.Compare(x, mode); !res.Match {
			break
		}
		delete(values, k)
	}
	if mode == CmpUnordered {
		res.Match = n.unorderedHash == other.unorderedHash
	} else {
		res.Match = n.orderedHash == other.orderedHash
	}
	return res
}

func buildHashTree(root Node, mode CmpMode) *hashNode {
	node := hashNode{
		Node:     root,
		children: make(map[uint64]*hashNode),
	}
	if root.Leaf() {
		node.orderedHash = computeHashForNode(root)
		node.unorderedHash = node.orderedHash
		return &node
	}
	if elem, ok := root.(*Element); ok {
		var (
			orderedHash   []uint64
			unorderedHash []uint64
		)
		for _, el := range elem.nodes {
			h := buildHashTree(el, mode)

			unorderedHash = append(unorderedHash, h.unorderedHash)
			orderedHash = append(orderedHash, h.orderedHash)

			if mode == CmpOrdered {
				node.children[h.unorderedHash] = h
			} else {
				node.children[h.orderedHash] = h
			}
		}
		sort.Slice(unorderedHash, func(i, j int) bool {
			return unorderedHash[i] < unorderedHash[j]
		})

		node.unorderedHash = computeHash(unorderedHash)
		node.orderedHash = computeHash(orderedHash)
	}
	return &node
}

func computeHash(values []uint64) uint64 {
	var (
		sum = fnv.New64a()
		buf = make([]byte, 8)
	)
	for i := range values {
		binary.LittleEndian.PutUint64(buf, values[i])
		sum.Write(buf)
	}
	return sum.Sum64()
}

func computeHashForNode(root Node) uint64 {
	switch n := root.(type) {
	case *Element:
		var values []uint64

		values = append(values, getHashForText(n.QualifiedName()))
		for _, a := range n.attrs {
			values = append(values, computeHashForNode(a))
		}
		if n.Leaf() && len(n.nodes) > 0 {
			values = append(values, computeHashForNode(n.nodes[0]))
		}
		return computeHash(values)
	case *Instruction:
		values := []uint64{
			getHashForText(n.Target),
			getHashForText(n.Content),
		}
		return computeHash(values)
	case *Attribute:
		str := fmt.Sprintf("%s = %s", n.QualifiedName(), n.Datum)
		return getHashForText(str)
	case *Comment:
		str := fmt.Sprintf("<!-- %s -- >", n.Content)
		return getHashForText(str)
	case *Text:
		return getHashForText(n.Content)
	case *CharData:
		return getHashForText(n.Content)
	default:
	}
	return 0
}

func getHashForText(str string) uint64 {
	str = strings.TrimSpace(str)
	s := fnv.New64a()
	s.Write([]byte(str))
	return s.Sum64()
}
