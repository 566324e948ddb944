package xpath

type NodeType int8

const (
	TypeAbsolutePath NodeType = iota + 1
	TypeRelativePath
	TypePath
	TypeAxis
	TypeTest
	TypeWildcard
	TypeNodeType
	TypePredicate
	TypeString
	TypeNumber
	TypeVariable
	TypeFunction
	TypeUnion
	TypeOr
	TypeAnd
	TypeEqual
	TypeNotEqual
	TypeLesser
	TypeLesserEq
	TypeGreater
	TypeGreaterEq
	TypeAdd
	TypeSubtract
	TypeMultiply
	TypeDivide
	TypeModulo
	TypeNegate
)

func (t NodeType) String() string {
	switch t {
	case TypeAbsolutePath:
		return "absolute-path"
	case TypeRelativePath:
		return "relative-path"
	case TypePath:
		return "path"
	case TypeAxis:
		return "axis"
	case TypeTest:
		return "test"
	case TypeWildcard:
		return "wildcard"
	case TypeNodeType:
		return "node-type"
	case TypePredicate:
		return "predicate"
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeVariable:
		return "variable"
	case TypeFunction:
		return "function"
	case TypeUnion:
		return "union"
	case TypeOr:
		return "or"
	case TypeAnd:
		return "and"
	case TypeEqual:
		return "equal"
	case TypeNotEqual:
		return "not-equal"
	case TypeLesser:
		return "lesser-than"
	case TypeLesserEq:
		return "lesser-eq"
	case TypeGreater:
		return "greater-than"
	case TypeGreaterEq:
		return "greater-eq"
	case TypeAdd:
		return "add"
	case TypeSubtract:
		return "subtract"
	case TypeMultiply:
		return "multiply"
	case TypeDivide:
		return "divide"
	case TypeModulo:
		return "modulo"
	case TypeNegate:
		return "negate"
	default:
		return "unknown"
	}
}

// Node is one vertex of the query syntax tree. Leaves carry their literal
// payload in Value/Space/Number, interior nodes only children. A tree is
// never modified once Parse has returned it, which makes it safe to share
// through the parse cache and to key the compile cache with its canonical
// rendering.
type Node struct {
	Type     NodeType
	Value    string
	Space    string
	Number   float64
	Children []*Node
}

func (n *Node) String() string {
	return Debug(n)
}

func (n *Node) append(list ...*Node) {
	n.Children = append(n.Children, list...)
}

func (n *Node) last() *Node {
	z := len(n.Children)
	if z == 0 {
		return nil
	}
	return n.Children[z-1]
}

func (n *Node) isPath() bool {
	switch n.Type {
	case TypeAbsolutePath, TypeRelativePath:
		return true
	default:
		return false
	}
}

const (
	childAxis          = "child"
	parentAxis         = "parent"
	selfAxis           = "self"
	attrAxis           = "attribute"
	ancestorAxis       = "ancestor"
	ancestorSelfAxis   = "ancestor-or-self"
	descendantAxis     = "descendant"
	descendantSelfAxis = "descendant-or-self"
	prevAxis           = "preceding"
	prevSiblingAxis    = "preceding-sibling"
	nextAxis           = "following"
	nextSiblingAxis    = "following-sibling"
	namespaceAxis      = "namespace"
)

func isAxisName(str string) bool {
	switch str {
	case childAxis:
	case parentAxis:
	case selfAxis:
	case attrAxis:
	case ancestorAxis:
	case ancestorSelfAxis:
	case descendantAxis:
	case descendantSelfAxis:
	case prevAxis:
	case prevSiblingAxis:
	case nextAxis:
	case nextSiblingAxis:
	case namespaceAxis:
	default:
		return false
	}
	return true
}
