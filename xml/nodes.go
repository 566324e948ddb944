package xml

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
)

type NodeType int16

const (
	TypeDocument NodeType = 1 << iota
	TypeElement
	TypeAttribute
	TypeText
	TypeCData
	TypeComment
	TypeInstruction
	TypeNamespace
)

const (
	TypeNode       = TypeDocument | TypeElement | TypeAttribute | TypeText | TypeCData | TypeComment | TypeInstruction
	TypeCharacters = TypeText | TypeCData
)

func (n NodeType) String() string {
	switch n {
	case TypeDocument:
		return "document"
	case TypeElement:
		return "element"
	case TypeAttribute:
		return "attribute"
	case TypeText:
		return "text"
	case TypeCData:
		return "cdata"
	case TypeComment:
		return "comment"
	case TypeInstruction:
		return "pi"
	case TypeNamespace:
		return "namespace"
	case TypeNode:
		return "node"
	default:
		return "<>"
	}
}

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// Node is the contract every document backend provides to consumers such
// as the query engine. It is deliberately free of unexported methods so
// that trees produced by third party parsers can be bridged in from other
// packages. Nodes are owned by their document; consumers only borrow them.
type Node interface {
	Type() NodeType
	LocalName() string
	QualifiedName() string
	Prefix() string
	Uri() string
	Leaf() bool
	Position() int
	Parent() Node
	Nodes() []Node
	Attributes() []Node
	Value() string
	Identity() string
}

// Compare orders two nodes of the same document by document position.
func Compare(left, right Node) int {
	var (
		p1 = orderOf(left)
		p2 = orderOf(right)
	)
	return slices.Compare(p1, p2)
}

func Before(left, right Node) bool {
	return Compare(left, right) < 0
}

func After(left, right Node) bool {
	return Compare(left, right) > 0
}

func pathOf(n Node) []int {
	var steps []int
	for c := n; c != nil; c = c.Parent() {
		steps = append(steps, c.Position())
	}
	slices.Reverse(steps)
	return steps
}

// orderOf is pathOf with attributes ranked before any child node of
// their element, the place document order gives them.
func orderOf(n Node) []int {
	var steps []int
	for c := n; c != nil; c = c.Parent() {
		pos := c.Position()
		if c.Type() == TypeAttribute {
			pos -= math.MaxInt32
		}
		steps = append(steps, pos)
	}
	slices.Reverse(steps)
	return steps
}

func identity(kind string, n Node) string {
	var list []string
	for _, p := range pathOf(n) {
		list = append(list, strconv.Itoa(p))
	}
	return fmt.Sprintf("%s[%s]", kind, strings.Join(list, "/"))
}

type QName struct {
	Space string
	Name  string
}

func LocalName(name string) QName {
	return QName{
		Name: name,
	}
}

func QualifiedName(name, space string) QName {
	return QName{
		Name:  name,
		Space: space,
	}
}

func ParseName(str string) QName {
	space, name, ok := strings.Cut(str, ":")
	if !ok {
		return LocalName(str)
	}
	return QualifiedName(name, space)
}

func (q QName) LocalName() string {
	return q.Name
}

func (q QName) QualifiedName() string {
	if q.Space == "" {
		return q.Name
	}
	return fmt.Sprintf("%s:%s", q.Space, q.Name)
}

func (q QName) Prefix() string {
	return q.Space
}

type NS struct {
	Prefix string
	Uri    string
}

func (n NS) Default() bool {
	return n.Prefix == ""
}

type Document struct {
	Version  string
	Encoding string

	nodes []Node
}

func NewDocument() *Document {
	return &Document{
		Version:  SupportedVersion,
		Encoding: SupportedEncoding,
	}
}

func (d *Document) Append(node Node) error {
	if !adopt(node, d, len(d.nodes)) {
		return fmt.Errorf("%s: node can not be attached", node.Type())
	}
	d.nodes = append(d.nodes, node)
	return nil
}

// Root returns the document element, nil when the document is empty.
func (d *Document) Root() *Element {
	for i := range d.nodes {
		if el, ok := d.nodes[i].(*Element); ok {
			return el
		}
	}
	return nil
}

func (d *Document) Write(w io.Writer) error {
	return NewWriter(w).Write(d)
}

func (d *Document) WriteString() (string, error) {
	var (
		buf strings.Builder
		err = d.Write(&buf)
	)
	return buf.String(), err
}

func (_ *Document) Type() NodeType {
	return TypeDocument
}

func (_ *Document) LocalName() string {
	return ""
}

func (_ *Document) QualifiedName() string {
	return ""
}

func (_ *Document) Prefix() string {
	return ""
}

func (_ *Document) Uri() string {
	return ""
}

func (_ *Document) Leaf() bool {
	return false
}

func (_ *Document) Position() int {
	return 0
}

func (_ *Document) Parent() Node {
	return nil
}

func (d *Document) Nodes() []Node {
	return d.nodes
}

func (_ *Document) Attributes() []Node {
	return nil
}

func (d *Document) Value() string {
	var str strings.Builder
	for _, n := range d.nodes {
		textValue(&str, n)
	}
	return str.String()
}

func (_ *Document) Identity() string {
	return "document"
}

type Element struct {
	QName

	attrs []*Attribute
	nodes []Node

	parent   Node
	position int
}

func NewElement(name QName) *Element {
	return &Element{
		QName: name,
	}
}

func (e *Element) Append(node Node) error {
	if !adopt(node, e, len(e.nodes)) {
		return fmt.Errorf("%s: node can not be attached", node.Type())
	}
	e.nodes = append(e.nodes, node)
	return nil
}

// SetAttribute defines or replaces an attribute. Replacing keeps the
// original attribute position.
func (e *Element) SetAttribute(name QName, value string) {
	ix := slices.IndexFunc(e.attrs, func(a *Attribute) bool {
		return a.QName == name
	})
	if ix >= 0 {
		e.attrs[ix].Datum = value
		return
	}
	attr := &Attribute{
		QName:    name,
		Datum:    value,
		parent:   e,
		position: len(e.attrs),
	}
	e.attrs = append(e.attrs, attr)
}

// GetAttribute returns the value of the named attribute. The name is
// matched against the attribute local name.
func (e *Element) GetAttribute(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.declaration() {
			continue
		}
		if a.Name == name {
			return a.Datum, true
		}
	}
	return "", false
}

// Attributes lists the attribute nodes of the element. Namespace
// declarations are not attributes and are left out.
func (e *Element) Attributes() []Node {
	var list []Node
	for _, a := range e.attrs {
		if a.declaration() {
			continue
		}
		list = append(list, a)
	}
	return list
}

// Namespaces lists the namespaces declared on the element itself.
func (e *Element) Namespaces() []NS {
	var list []NS
	for _, a := range e.attrs {
		if !a.declaration() {
			continue
		}
		n := NS{
			Prefix: a.Name,
			Uri:    a.Datum,
		}
		if a.Space == "" {
			n.Prefix = ""
		}
		list = append(list, n)
	}
	return list
}

func (_ *Element) Type() NodeType {
	return TypeElement
}

func (e *Element) Uri() string {
	return lookupUri(e, e.Space)
}

func (e *Element) Leaf() bool {
	for _, n := range e.nodes {
		if n.Type()&TypeCharacters == 0 {
			return false
		}
	}
	return true
}

func (e *Element) Empty() bool {
	return len(e.nodes) == 0
}

func (e *Element) Position() int {
	return e.position
}

func (e *Element) Parent() Node {
	return e.parent
}

func (e *Element) Nodes() []Node {
	return e.nodes
}

// Value gives the string value of the element: the concatenation of all
// its descendant text, in document order.
func (e *Element) Value() string {
	var str strings.Builder
	textValue(&str, e)
	return str.String()
}

func (e *Element) Identity() string {
	return identity("element", e)
}

type Attribute struct {
	QName
	Datum string

	parent   Node
	position int
}

func (_ *Attribute) Type() NodeType {
	return TypeAttribute
}

func (a *Attribute) Uri() string {
	if a.Space == "" {
		return ""
	}
	return lookupUri(a.parent, a.Space)
}

func (_ *Attribute) Leaf() bool {
	return true
}

func (a *Attribute) Position() int {
	return a.position
}

func (a *Attribute) Parent() Node {
	return a.parent
}

func (_ *Attribute) Nodes() []Node {
	return nil
}

func (_ *Attribute) Attributes() []Node {
	return nil
}

func (a *Attribute) Value() string {
	return a.Datum
}

func (a *Attribute) Identity() string {
	return identity("attribute", a)
}

func (a *Attribute) declaration() bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Name == "xmlns")
}

type Text struct {
	Content string

	parent   Node
	position int
}

func NewText(text string) *Text {
	return &Text{
		Content: text,
	}
}

func (_ *Text) Type() NodeType {
	return TypeText
}

func (_ *Text) LocalName() string {
	return ""
}

func (_ *Text) QualifiedName() string {
	return ""
}

func (_ *Text) Prefix() string {
	return ""
}

func (_ *Text) Uri() string {
	return ""
}

func (_ *Text) Leaf() bool {
	return true
}

func (t *Text) Position() int {
	return t.position
}

func (t *Text) Parent() Node {
	return t.parent
}

func (_ *Text) Nodes() []Node {
	return nil
}

func (_ *Text) Attributes() []Node {
	return nil
}

func (t *Text) Value() string {
	return t.Content
}

func (t *Text) Identity() string {
	return identity("text", t)
}

type CharData struct {
	Content string

	parent   Node
	position int
}

func NewCharData(content string) *CharData {
	return &CharData{
		Content: content,
	}
}

func (_ *CharData) Type() NodeType {
	return TypeCData
}

func (_ *CharData) LocalName() string {
	return ""
}

func (_ *CharData) QualifiedName() string {
	return ""
}

func (_ *CharData) Prefix() string {
	return ""
}

func (_ *CharData) Uri() string {
	return ""
}

func (_ *CharData) Leaf() bool {
	return true
}

func (c *CharData) Position() int {
	return c.position
}

func (c *CharData) Parent() Node {
	return c.parent
}

func (_ *CharData) Nodes() []Node {
	return nil
}

func (_ *CharData) Attributes() []Node {
	return nil
}

func (c *CharData) Value() string {
	return c.Content
}

func (c *CharData) Identity() string {
	return identity("cdata", c)
}

type Comment struct {
	Content string

	parent   Node
	position int
}

func NewComment(comment string) *Comment {
	return &Comment{
		Content: comment,
	}
}

func (_ *Comment) Type() NodeType {
	return TypeComment
}

func (_ *Comment) LocalName() string {
	return ""
}

func (_ *Comment) QualifiedName() string {
	return ""
}

func (_ *Comment) Prefix() string {
	return ""
}

func (_ *Comment) Uri() string {
	return ""
}

func (_ *Comment) Leaf() bool {
	return true
}

func (c *Comment) Position() int {
	return c.position
}

func (c *Comment) Parent() Node {
	return c.parent
}

func (_ *Comment) Nodes() []Node {
	return nil
}

func (_ *Comment) Attributes() []Node {
	return nil
}

func (c *Comment) Value() string {
	return c.Content
}

func (c *Comment) Identity() string {
	return identity("comment", c)
}

type Instruction struct {
	Target  string
	Content string

	parent   Node
	position int
}

func NewInstruction(target, content string) *Instruction {
	return &Instruction{
		Target:  target,
		Content: content,
	}
}

func (_ *Instruction) Type() NodeType {
	return TypeInstruction
}

func (i *Instruction) LocalName() string {
	return i.Target
}

func (i *Instruction) QualifiedName() string {
	return i.Target
}

func (_ *Instruction) Prefix() string {
	return ""
}

func (_ *Instruction) Uri() string {
	return ""
}

func (_ *Instruction) Leaf() bool {
	return true
}

func (i *Instruction) Position() int {
	return i.position
}

func (i *Instruction) Parent() Node {
	return i.parent
}

func (_ *Instruction) Nodes() []Node {
	return nil
}

func (_ *Instruction) Attributes() []Node {
	return nil
}

func (i *Instruction) Value() string {
	return i.Content
}

func (i *Instruction) Identity() string {
	return identity("pi", i)
}

func adopt(child, parent Node, pos int) bool {
	switch c := child.(type) {
	case *Element:
		c.parent, c.position = parent, pos
	case *Text:
		c.parent, c.position = parent, pos
	case *CharData:
		c.parent, c.position = parent, pos
	case *Comment:
		c.parent, c.position = parent, pos
	case *Instruction:
		c.parent, c.position = parent, pos
	default:
		return false
	}
	return true
}

func textValue(w *strings.Builder, n Node) {
	if n.Type()&TypeCharacters != 0 {
		w.WriteString(n.Value())
		return
	}
	if n.Type()&(TypeElement|TypeDocument) == 0 {
		return
	}
	for _, c := range n.Nodes() {
		textValue(w, c)
	}
}

func lookupUri(n Node, prefix string) string {
	if prefix == "xml" {
		return xmlNamespace
	}
	for c := n; c != nil; c = c.Parent() {
		el, ok := c.(*Element)
		if !ok {
			continue
		}
		for _, a := range el.attrs {
			if !a.declaration() {
				continue
			}
			if prefix == "" && a.Space == "" {
				return a.Datum
			}
			if a.Space == "xmlns" && a.Name == prefix {
				return a.Datum
			}
		}
	}
	return ""
}
