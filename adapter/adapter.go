// Package adapter exposes documents parsed by github.com/beevik/etree
// to the query engine. Wrappers are created on demand and carry no
// state of their own; two wrappers of the same underlying token compare
// equal and share one identity.
package adapter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/midbel/axis/xml"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// FromDocument wraps a whole etree document. The result is the node to
// hand to the engine when evaluating absolute paths.
func FromDocument(doc *etree.Document) xml.Node {
	return Document{el: &doc.Element}
}

// FromElement wraps a single element, detached from the document view.
func FromElement(el *etree.Element) xml.Node {
	return Element{el: el}
}

type Document struct {
	el *etree.Element
}

func (_ Document) Type() xml.NodeType {
	return xml.TypeDocument
}

func (_ Document) LocalName() string {
	return ""
}

func (_ Document) QualifiedName() string {
	return ""
}

func (_ Document) Prefix() string {
	return ""
}

func (_ Document) Uri() string {
	return ""
}

func (_ Document) Leaf() bool {
	return false
}

func (_ Document) Position() int {
	return 0
}

func (_ Document) Parent() xml.Node {
	return nil
}

func (d Document) Nodes() []xml.Node {
	return wrapChildren(d.el)
}

func (_ Document) Attributes() []xml.Node {
	return nil
}

func (d Document) Value() string {
	var str strings.Builder
	collectText(d.el, &str)
	return str.String()
}

func (_ Document) Identity() string {
	return "document"
}

type Element struct {
	el *etree.Element
}

func (_ Element) Type() xml.NodeType {
	return xml.TypeElement
}

func (e Element) LocalName() string {
	return e.el.Tag
}

func (e Element) QualifiedName() string {
	return qualified(e.el.Space, e.el.Tag)
}

func (e Element) Prefix() string {
	return e.el.Space
}

func (e Element) Uri() string {
	return lookupUri(e.el, e.el.Space)
}

func (e Element) Leaf() bool {
	for _, c := range e.el.Child {
		if _, ok := c.(*etree.CharData); !ok {
			return false
		}
	}
	return true
}

func (e Element) Position() int {
	return e.el.Index()
}

func (e Element) Parent() xml.Node {
	return wrapParent(e.el.Parent())
}

func (e Element) Nodes() []xml.Node {
	return wrapChildren(e.el)
}

func (e Element) Attributes() []xml.Node {
	var list []xml.Node
	for i, a := range e.el.Attr {
		if declaration(a) {
			continue
		}
		list = append(list, Attr{el: e.el, index: i})
	}
	return list
}

func (e Element) Value() string {
	var str strings.Builder
	collectText(e.el, &str)
	return str.String()
}

func (e Element) Identity() string {
	return identify("element", e)
}

type Attr struct {
	el    *etree.Element
	index int
}

func (_ Attr) Type() xml.NodeType {
	return xml.TypeAttribute
}

func (a Attr) LocalName() string {
	return a.attr().Key
}

func (a Attr) QualifiedName() string {
	return qualified(a.attr().Space, a.attr().Key)
}

func (a Attr) Prefix() string {
	return a.attr().Space
}

func (a Attr) Uri() string {
	if a.attr().Space == "" {
		return ""
	}
	return lookupUri(a.el, a.attr().Space)
}

func (_ Attr) Leaf() bool {
	return true
}

func (a Attr) Position() int {
	return a.index
}

func (a Attr) Parent() xml.Node {
	return Element{el: a.el}
}

func (_ Attr) Nodes() []xml.Node {
	return nil
}

func (_ Attr) Attributes() []xml.Node {
	return nil
}

func (a Attr) Value() string {
	return a.attr().Value
}

func (a Attr) Identity() string {
	return identify("attribute", a)
}

func (a Attr) attr() etree.Attr {
	return a.el.Attr[a.index]
}

type Text struct {
	cd *etree.CharData
}

func (t Text) Type() xml.NodeType {
	if t.cd.IsCData() {
		return xml.TypeCData
	}
	return xml.TypeText
}

func (_ Text) LocalName() string {
	return ""
}

func (_ Text) QualifiedName() string {
	return ""
}

func (_ Text) Prefix() string {
	return ""
}

func (_ Text) Uri() string {
	return ""
}

func (_ Text) Leaf() bool {
	return true
}

func (t Text) Position() int {
	return t.cd.Index()
}

func (t Text) Parent() xml.Node {
	return wrapParent(t.cd.Parent())
}

func (_ Text) Nodes() []xml.Node {
	return nil
}

func (_ Text) Attributes() []xml.Node {
	return nil
}

func (t Text) Value() string {
	return t.cd.Data
}

func (t Text) Identity() string {
	if t.cd.IsCData() {
		return identify("cdata", t)
	}
	return identify("text", t)
}

type Comment struct {
	node *etree.Comment
}

func (_ Comment) Type() xml.NodeType {
	return xml.TypeComment
}

func (_ Comment) LocalName() string {
	return ""
}

func (_ Comment) QualifiedName() string {
	return ""
}

func (_ Comment) Prefix() string {
	return ""
}

func (_ Comment) Uri() string {
	return ""
}

func (_ Comment) Leaf() bool {
	return true
}

func (c Comment) Position() int {
	return c.node.Index()
}

func (c Comment) Parent() xml.Node {
	return wrapParent(c.node.Parent())
}

func (_ Comment) Nodes() []xml.Node {
	return nil
}

func (_ Comment) Attributes() []xml.Node {
	return nil
}

func (c Comment) Value() string {
	return c.node.Data
}

func (c Comment) Identity() string {
	return identify("comment", c)
}

type Instruction struct {
	pi *etree.ProcInst
}

func (_ Instruction) Type() xml.NodeType {
	return xml.TypeInstruction
}

func (i Instruction) LocalName() string {
	return i.pi.Target
}

func (i Instruction) QualifiedName() string {
	return i.pi.Target
}

func (_ Instruction) Prefix() string {
	return ""
}

func (_ Instruction) Uri() string {
	return ""
}

func (_ Instruction) Leaf() bool {
	return true
}

func (i Instruction) Position() int {
	return i.pi.Index()
}

func (i Instruction) Parent() xml.Node {
	return wrapParent(i.pi.Parent())
}

func (_ Instruction) Nodes() []xml.Node {
	return nil
}

func (_ Instruction) Attributes() []xml.Node {
	return nil
}

func (i Instruction) Value() string {
	return i.pi.Inst
}

func (i Instruction) Identity() string {
	return identify("pi", i)
}

func wrapChildren(el *etree.Element) []xml.Node {
	var list []xml.Node
	for _, c := range el.Child {
		if n := wrapToken(c); n != nil {
			list = append(list, n)
		}
	}
	return list
}

func wrapToken(tok etree.Token) xml.Node {
	switch c := tok.(type) {
	case *etree.Element:
		return Element{el: c}
	case *etree.CharData:
		return Text{cd: c}
	case *etree.Comment:
		return Comment{node: c}
	case *etree.ProcInst:
		if c.Target == "xml" {
			// the declaration belongs to the prolog, not to the tree
			return nil
		}
		return Instruction{pi: c}
	default:
		// directives have no counterpart on the query side
		return nil
	}
}

func wrapParent(p *etree.Element) xml.Node {
	if p == nil {
		return nil
	}
	if p.Parent() == nil && p.Tag == "" {
		return Document{el: p}
	}
	return Element{el: p}
}

func declaration(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

func lookupUri(el *etree.Element, prefix string) string {
	if prefix == "xml" {
		return xmlNamespace
	}
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if prefix == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value
			}
			if a.Space == "xmlns" && a.Key == prefix {
				return a.Value
			}
		}
	}
	return ""
}

func collectText(el *etree.Element, str *strings.Builder) {
	for _, c := range el.Child {
		switch c := c.(type) {
		case *etree.CharData:
			str.WriteString(c.Data)
		case *etree.Element:
			collectText(c, str)
		}
	}
}

func qualified(space, name string) string {
	if space == "" {
		return name
	}
	return fmt.Sprintf("%s:%s", space, name)
}

func identify(kind string, n xml.Node) string {
	var steps []string
	for c := n; c != nil; c = c.Parent() {
		steps = append(steps, strconv.Itoa(c.Position()))
	}
	slices.Reverse(steps)
	return fmt.Sprintf("%s[%s]", kind, strings.Join(steps, "/"))
}
