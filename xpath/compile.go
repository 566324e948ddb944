package xpath

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/midbel/axis/xml"
)

// Compiler lowers a parsed expression to a callable. Every node of the
// tree becomes a closure capturing the closures of its children, so an
// expression compiles once and evaluates any number of times without
// looking at the tree again. Namespaces gives the prefix bindings name
// tests are resolved against; a prefix absent from the map is compared
// literally against the prefix found in the document.
type Compiler struct {
	Namespaces map[string]string
}

func NewCompiler(namespaces map[string]string) *Compiler {
	return &Compiler{
		Namespaces: namespaces,
	}
}

// Compile lowers the tree rooted at expr. Unsupported axes, unknown
// functions and arity mismatches are reported here, never at
// evaluation time.
func (c *Compiler) Compile(expr *Node) (*Query, error) {
	eval, err := c.compile(expr)
	if err != nil {
		return nil, err
	}
	q := Query{
		eval: eval,
		ast:  expr,
	}
	return &q, nil
}

type evalFunc func(Context) (Value, error)

func (c *Compiler) compile(n *Node) (evalFunc, error) {
	switch n.Type {
	case TypeAbsolutePath:
		return c.compilePath(n.Children, true)
	case TypeRelativePath:
		return c.compilePath(n.Children, false)
	case TypeAxis:
		return c.compilePath([]*Node{n}, false)
	case TypePath:
		return c.compileFiltered(n)
	case TypeUnion:
		return c.compileUnion(n)
	case TypeOr, TypeAnd:
		return c.compileLogical(n)
	case TypeEqual, TypeNotEqual:
		return c.compileEquality(n)
	case TypeLesser, TypeLesserEq, TypeGreater, TypeGreaterEq:
		return c.compileRelational(n)
	case TypeAdd, TypeSubtract, TypeMultiply, TypeDivide, TypeModulo:
		return c.compileArithmetic(n)
	case TypeNegate:
		return c.compileNegate(n)
	case TypeString:
		return c.compileString(n)
	case TypeNumber:
		return c.compileNumber(n)
	case TypeVariable:
		return c.compileVariable(n)
	case TypeFunction:
		return c.compileCall(n)
	default:
		return nil, fmt.Errorf("%w: %s", ErrImplemented, n.Type)
	}
}

func (c *Compiler) compilePath(nodes []*Node, absolute bool) (evalFunc, error) {
	var (
		init  evalFunc
		steps []step
		err   error
	)
	if len(nodes) > 0 && nodes[0].Type != TypeAxis {
		if init, err = c.compile(nodes[0]); err != nil {
			return nil, err
		}
		nodes = nodes[1:]
	}
	for _, n := range nodes {
		if n.Type != TypeAxis {
			return nil, fmt.Errorf("%w: %s can not be used as path step", ErrImplemented, n.Type)
		}
		s, err := c.compileStep(n)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	fn := func(ctx Context) (Value, error) {
		base, err := startSet(ctx, init, absolute)
		if err != nil {
			return nil, err
		}
		for _, s := range steps {
			if base, err = s.eval(ctx, base); err != nil {
				return nil, err
			}
		}
		return base, nil
	}
	return fn, nil
}

func startSet(ctx Context, init evalFunc, absolute bool) (NodeSet, error) {
	if init != nil {
		value, err := init(ctx)
		if err != nil {
			return nil, err
		}
		set, ok := value.(NodeSet)
		if !ok {
			return nil, fmt.Errorf("%w: path wants a node set to start from", ErrType)
		}
		return set, nil
	}
	curr := ctx
	if absolute {
		curr = ctx.Root()
	}
	if curr.Node == nil {
		return nil, nil
	}
	return NewNodeSet(curr.Node), nil
}

func (c *Compiler) compileFiltered(n *Node) (evalFunc, error) {
	base, err := c.compile(n.Children[0])
	if err != nil {
		return nil, err
	}
	preds, err := c.compilePredicates(n.Children[1:])
	if err != nil {
		return nil, err
	}
	fn := func(ctx Context) (Value, error) {
		value, err := base(ctx)
		if err != nil {
			return nil, err
		}
		set, ok := value.(NodeSet)
		if !ok {
			return nil, fmt.Errorf("%w: only node sets can be filtered", ErrType)
		}
		return applyPredicates(ctx, preds, set)
	}
	return fn, nil
}

func (c *Compiler) compileUnion(n *Node) (evalFunc, error) {
	var members []evalFunc
	for _, m := range n.Children {
		fn, err := c.compile(m)
		if err != nil {
			return nil, err
		}
		members = append(members, fn)
	}
	fn := func(ctx Context) (Value, error) {
		var list NodeSet
		for _, member := range members {
			value, err := member(ctx)
			if err != nil {
				return nil, err
			}
			set, ok := value.(NodeSet)
			if !ok {
				return nil, fmt.Errorf("%w: union wants node sets", ErrType)
			}
			list = append(list, set...)
		}
		list = list.Unique()
		slices.SortStableFunc(list, xml.Compare)
		return list, nil
	}
	return fn, nil
}

func (c *Compiler) compileLogical(n *Node) (evalFunc, error) {
	left, right, err := c.compilePair(n)
	if err != nil {
		return nil, err
	}
	and := n.Type == TypeAnd
	fn := func(ctx Context) (Value, error) {
		ok, err := evalBool(left, ctx)
		if err != nil {
			return nil, err
		}
		if and && !ok {
			return false, nil
		}
		if !and && ok {
			return true, nil
		}
		ok, err = evalBool(right, ctx)
		if err != nil {
			return nil, err
		}
		return ok, nil
	}
	return fn, nil
}

func (c *Compiler) compileEquality(n *Node) (evalFunc, error) {
	left, right, err := c.compilePair(n)
	if err != nil {
		return nil, err
	}
	negate := n.Type == TypeNotEqual
	fn := func(ctx Context) (Value, error) {
		lv, rv, err := evalPair(left, right, ctx)
		if err != nil {
			return nil, err
		}
		if lv, rv, err = Compatible(lv, rv); err != nil {
			return nil, err
		}
		equal := lv == rv
		return equal != negate, nil
	}
	return fn, nil
}

func (c *Compiler) compileRelational(n *Node) (evalFunc, error) {
	left, right, err := c.compilePair(n)
	if err != nil {
		return nil, err
	}
	op := n.Type
	fn := func(ctx Context) (Value, error) {
		x, y, err := evalNumbers(left, right, ctx)
		if err != nil {
			return nil, err
		}
		switch op {
		case TypeLesser:
			return x < y, nil
		case TypeLesserEq:
			return x <= y, nil
		case TypeGreater:
			return x > y, nil
		case TypeGreaterEq:
			return x >= y, nil
		default:
			return nil, fmt.Errorf("%w: %s", ErrImplemented, op)
		}
	}
	return fn, nil
}

func (c *Compiler) compileArithmetic(n *Node) (evalFunc, error) {
	left, right, err := c.compilePair(n)
	if err != nil {
		return nil, err
	}
	op := n.Type
	fn := func(ctx Context) (Value, error) {
		x, y, err := evalNumbers(left, right, ctx)
		if err != nil {
			return nil, err
		}
		switch op {
		case TypeAdd:
			return x + y, nil
		case TypeSubtract:
			return x - y, nil
		case TypeMultiply:
			return x * y, nil
		case TypeDivide:
			return x / y, nil
		case TypeModulo:
			return math.Mod(x, y), nil
		default:
			return nil, fmt.Errorf("%w: %s", ErrImplemented, op)
		}
	}
	return fn, nil
}

func (c *Compiler) compileNegate(n *Node) (evalFunc, error) {
	expr, err := c.compile(n.Children[0])
	if err != nil {
		return nil, err
	}
	fn := func(ctx Context) (Value, error) {
		value, err := expr(ctx)
		if err != nil {
			return nil, err
		}
		f, err := ToNumber(value)
		if err != nil {
			return nil, err
		}
		return -f, nil
	}
	return fn, nil
}

func (c *Compiler) compileString(n *Node) (evalFunc, error) {
	value := n.Value
	fn := func(Context) (Value, error) {
		return value, nil
	}
	return fn, nil
}

func (c *Compiler) compileNumber(n *Node) (evalFunc, error) {
	value := n.Number
	fn := func(Context) (Value, error) {
		return value, nil
	}
	return fn, nil
}

func (c *Compiler) compileVariable(n *Node) (evalFunc, error) {
	ident := n.Value
	fn := func(ctx Context) (Value, error) {
		value, err := ctx.Resolve(ident)
		if err != nil {
			return nil, fmt.Errorf("%w: $%s", ErrUndefined, ident)
		}
		return value, nil
	}
	return fn, nil
}

func (c *Compiler) compileCall(n *Node) (evalFunc, error) {
	fn, ok := builtins[n.Value]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunction, n.Value)
	}
	if len(n.Children) < fn.MinArgs {
		return nil, fmt.Errorf("%w: %s wants at least %d argument(s)", ErrArgument, n.Value, fn.MinArgs)
	}
	if fn.MaxArgs >= 0 && len(n.Children) > fn.MaxArgs {
		return nil, fmt.Errorf("%w: %s takes at most %d argument(s)", ErrArgument, n.Value, fn.MaxArgs)
	}
	var args []evalFunc
	for _, a := range n.Children {
		e, err := c.compile(a)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	eval := func(ctx Context) (Value, error) {
		values := make([]Value, len(args))
		for i := range args {
			v, err := args[i](ctx)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return fn.Call(ctx, values)
	}
	return eval, nil
}

func (c *Compiler) compilePair(n *Node) (evalFunc, evalFunc, error) {
	left, err := c.compile(n.Children[0])
	if err != nil {
		return nil, nil, err
	}
	right, err := c.compile(n.Children[1])
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func (c *Compiler) compilePredicates(list []*Node) ([]evalFunc, error) {
	var preds []evalFunc
	for _, p := range list {
		if p.Type != TypePredicate {
			return nil, fmt.Errorf("%w: %s can not be used as predicate", ErrImplemented, p.Type)
		}
		fn, err := c.compile(p.Children[0])
		if err != nil {
			return nil, err
		}
		preds = append(preds, fn)
	}
	return preds, nil
}

// step is one axis walk of a location path: the axis to follow, the
// node test to keep nodes with, and the predicates narrowing the
// merged result.
type step struct {
	axis  axisKind
	match matchFunc
	preds []evalFunc
}

func (c *Compiler) compileStep(n *Node) (step, error) {
	var (
		s   step
		err error
	)
	if s.axis, err = axisKindOf(n.Value); err != nil {
		return s, err
	}
	if s.match, err = c.compileTest(n.Children[0], s.axis.principal()); err != nil {
		return s, err
	}
	s.preds, err = c.compilePredicates(n.Children[1:])
	return s, err
}

// eval walks the axis from every node of base, keeps the nodes passing
// the test, and narrows the merged set through the predicates. Forward
// axes give document order, reverse axes nearest node first.
func (s step) eval(ctx Context, base NodeSet) (NodeSet, error) {
	var list NodeSet
	for _, node := range base {
		for _, found := range walkAxis(s.axis, node) {
			if s.match(found) {
				list = append(list, found)
			}
		}
	}
	list = list.Unique()
	if !s.axis.reverse() {
		slices.SortStableFunc(list, xml.Compare)
	}
	return applyPredicates(ctx, s.preds, list)
}

func applyPredicates(ctx Context, preds []evalFunc, list NodeSet) (NodeSet, error) {
	for _, pred := range preds {
		var kept NodeSet
		for i, node := range list {
			ok, err := keepNode(pred, ctx.Sub(node, i+1, len(list)))
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, node)
			}
		}
		list = kept
	}
	return list, nil
}

// keepNode interprets the predicate value: a number selects the node
// at that position, anything else goes through the boolean conversion.
func keepNode(pred evalFunc, ctx Context) (bool, error) {
	value, err := pred(ctx)
	if err != nil {
		return false, err
	}
	if pos, ok := value.(float64); ok {
		return float64(ctx.Index) == pos, nil
	}
	return ToBoolean(value)
}

type matchFunc func(xml.Node) bool

func (c *Compiler) compileTest(test *Node, principal xml.NodeType) (matchFunc, error) {
	switch test.Type {
	case TypeWildcard, TypeTest:
		return c.testName(test, principal), nil
	case TypeNodeType:
		return testKind(test)
	default:
		return nil, fmt.Errorf("%w: %s can not be used as node test", ErrImplemented, test.Type)
	}
}

// testName matches a node against a name test. Local names compare
// case insensitively. A prefix bound in the compiler namespaces is
// resolved and compared by URI, an unbound prefix is compared against
// the document prefix as written, and no prefix at all matches the
// local name whatever the namespace.
func (c *Compiler) testName(test *Node, principal xml.NodeType) matchFunc {
	var (
		local      = test.Value
		prefix     = test.Space
		uri, bound = "", false
	)
	if prefix != "" {
		uri, bound = c.Namespaces[prefix]
	}
	return func(n xml.Node) bool {
		if n.Type()&principal == 0 {
			return false
		}
		if local != "" && !strings.EqualFold(n.LocalName(), local) {
			return false
		}
		if prefix == "" {
			return true
		}
		if bound {
			return n.Uri() == uri
		}
		return n.Prefix() == prefix
	}
}

func testKind(test *Node) (matchFunc, error) {
	switch test.Value {
	case kwNode:
		return func(xml.Node) bool { return true }, nil
	case kwText:
		return func(n xml.Node) bool { return n.Type()&xml.TypeCharacters != 0 }, nil
	case kwComment:
		return func(n xml.Node) bool { return n.Type() == xml.TypeComment }, nil
	case kwInstruction:
		var target string
		if len(test.Children) > 0 {
			target = test.Children[0].Value
		}
		fn := func(n xml.Node) bool {
			if n.Type() != xml.TypeInstruction {
				return false
			}
			return target == "" || n.LocalName() == target
		}
		return fn, nil
	default:
		return nil, fmt.Errorf("%w: %s()", ErrImplemented, test.Value)
	}
}

type axisKind int8

const (
	axisChild axisKind = iota + 1
	axisParent
	axisSelf
	axisAttribute
	axisAncestor
	axisAncestorSelf
	axisDescendant
	axisDescendantSelf
	axisNextSibling
	axisPrevSibling
)

func axisKindOf(name string) (axisKind, error) {
	switch name {
	case childAxis:
		return axisChild, nil
	case parentAxis:
		return axisParent, nil
	case selfAxis:
		return axisSelf, nil
	case attrAxis:
		return axisAttribute, nil
	case ancestorAxis:
		return axisAncestor, nil
	case ancestorSelfAxis:
		return axisAncestorSelf, nil
	case descendantAxis:
		return axisDescendant, nil
	case descendantSelfAxis:
		return axisDescendantSelf, nil
	case nextSiblingAxis:
		return axisNextSibling, nil
	case prevSiblingAxis:
		return axisPrevSibling, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrAxis, name)
	}
}

func (k axisKind) reverse() bool {
	switch k {
	case axisParent, axisAncestor, axisAncestorSelf, axisPrevSibling:
		return true
	default:
		return false
	}
}

func (k axisKind) principal() xml.NodeType {
	if k == axisAttribute {
		return xml.TypeAttribute
	}
	return xml.TypeElement
}

func walkAxis(kind axisKind, node xml.Node) []xml.Node {
	switch kind {
	case axisSelf:
		return []xml.Node{node}
	case axisChild:
		return node.Nodes()
	case axisParent:
		if p := node.Parent(); p != nil {
			return []xml.Node{p}
		}
		return nil
	case axisAttribute:
		return node.Attributes()
	case axisDescendant:
		return descendants(node, false)
	case axisDescendantSelf:
		return descendants(node, true)
	case axisAncestor:
		return ancestors(node, false)
	case axisAncestorSelf:
		return ancestors(node, true)
	case axisNextSibling:
		return siblings(node, true)
	case axisPrevSibling:
		return siblings(node, false)
	default:
		return nil
	}
}

func descendants(node xml.Node, self bool) []xml.Node {
	var list []xml.Node
	if self {
		list = append(list, node)
	}
	for _, c := range node.Nodes() {
		list = append(list, descendants(c, true)...)
	}
	return list
}

func ancestors(node xml.Node, self bool) []xml.Node {
	var list []xml.Node
	if self {
		list = append(list, node)
	}
	for p := node.Parent(); p != nil; p = p.Parent() {
		list = append(list, p)
	}
	return list
}

func siblings(node xml.Node, forward bool) []xml.Node {
	if node.Type()&(xml.TypeAttribute|xml.TypeDocument) != 0 {
		return nil
	}
	parent := node.Parent()
	if parent == nil {
		return nil
	}
	all := parent.Nodes()
	at := node.Position()
	if at < 0 || at >= len(all) || all[at] != node {
		at = slices.IndexFunc(all, func(n xml.Node) bool {
			return n == node
		})
		if at < 0 {
			return nil
		}
	}
	if forward {
		return all[at+1:]
	}
	var list []xml.Node
	for i := at - 1; i >= 0; i-- {
		list = append(list, all[i])
	}
	return list
}

func evalBool(fn evalFunc, ctx Context) (bool, error) {
	value, err := fn(ctx)
	if err != nil {
		return false, err
	}
	return ToBoolean(value)
}

func evalPair(left, right evalFunc, ctx Context) (Value, Value, error) {
	lv, err := left(ctx)
	if err != nil {
		return nil, nil, err
	}
	rv, err := right(ctx)
	if err != nil {
		return nil, nil, err
	}
	return lv, rv, nil
}

func evalNumbers(left, right evalFunc, ctx Context) (float64, float64, error) {
	lv, rv, err := evalPair(left, right, ctx)
	if err != nil {
		return 0, 0, err
	}
	x, err := ToNumber(lv)
	if err != nil {
		return 0, 0, err
	}
	y, err := ToNumber(rv)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
