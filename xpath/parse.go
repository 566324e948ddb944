package xpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse builds the syntax tree of the given expression. The tree follows
// the XPath 1.0 grammar and precedence; abbreviations are rewritten during
// parsing so that later stages only ever see explicit axis steps.
func Parse(expr string) (*Node, error) {
	return NewParser(expr).Parse()
}

type Parser struct {
	expr string
	scan *Scanner
	curr Token
	peek Token

	Tracer

	infix  map[rune]func(*Node) (*Node, error)
	prefix map[rune]func() (*Node, error)
}

func NewParser(expr string) *Parser {
	p := Parser{
		expr:   expr,
		scan:   Scan(strings.NewReader(expr)),
		Tracer: discardTracer{},
	}

	p.infix = map[rune]func(*Node) (*Node, error){
		currLevel: p.parseStep,
		anyLevel:  p.parseDescendantStep,
		begPred:   p.parseFilter,
		opUnion:   p.parseUnion,
		opAdd:     p.parseBinary,
		opSub:     p.parseBinary,
		opMul:     p.parseBinary,
		opDiv:     p.parseBinary,
		opMod:     p.parseBinary,
		opEq:      p.parseBinary,
		opNe:      p.parseBinary,
		opGt:      p.parseBinary,
		opGe:      p.parseBinary,
		opLt:      p.parseBinary,
		opLe:      p.parseBinary,
		opAnd:     p.parseBinary,
		opOr:      p.parseBinary,
	}
	p.prefix = map[rune]func() (*Node, error){
		currLevel:  p.parseRoot,
		anyLevel:   p.parseDescendantRoot,
		Name:       p.parseName,
		nodeType:   p.parseName,
		axisName:   p.parseName,
		opMul:      p.parseName,
		opAnd:      p.parseName,
		opOr:       p.parseName,
		opDiv:      p.parseName,
		opMod:      p.parseName,
		currNode:   p.parseName,
		parentNode: p.parseName,
		attrNode:   p.parseName,
		variable:   p.parseVariable,
		Literal:    p.parseLiteral,
		Digit:      p.parseNumber,
		opSub:      p.parseReverse,
		begGrp:     p.parseGroup,
	}

	p.next()
	p.next()
	return &p
}

func (p *Parser) Parse() (*Node, error) {
	expr, err := p.parseExpr(powLowest)
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, p.unexpected()
	}
	return expr, nil
}

func (p *Parser) parseExpr(pow int) (*Node, error) {
	p.Enter("expr")
	defer p.Leave("expr")
	fn, ok := p.prefix[p.curr.Type]
	if !ok {
		return nil, p.unexpected()
	}
	left, err := fn()
	if err != nil {
		return nil, err
	}
	for !p.done() && pow < p.power() {
		fn, ok := p.infix[p.curr.Type]
		if !ok {
			return nil, p.unexpected()
		}
		left, err = fn(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseRoot() (*Node, error) {
	p.Enter("root")
	defer p.Leave("root")
	p.next()
	expr := &Node{Type: TypeAbsolutePath}
	if !p.stepStart() {
		return expr, nil
	}
	step, err := p.parseStepExpr()
	if err != nil {
		return nil, err
	}
	expr.append(step)
	return expr, nil
}

func (p *Parser) parseDescendantRoot() (*Node, error) {
	p.Enter("descendant-root")
	defer p.Leave("descendant-root")
	p.next()
	if !p.stepStart() {
		return nil, p.syntaxError("step expected after '//'")
	}
	step, err := p.parseStepExpr()
	if err != nil {
		return nil, err
	}
	expr := &Node{Type: TypeAbsolutePath}
	expr.append(descendantStep(), step)
	return expr, nil
}

func (p *Parser) parseName() (*Node, error) {
	p.Enter("name")
	defer p.Leave("name")
	if p.is(Name) && p.peek.Type == begGrp {
		return p.parseCall()
	}
	step, err := p.parseStepExpr()
	if err != nil {
		return nil, err
	}
	expr := &Node{Type: TypeRelativePath}
	expr.append(step)
	return expr, nil
}

func (p *Parser) parseStep(left *Node) (*Node, error) {
	p.Enter("step")
	defer p.Leave("step")
	p.next()
	step, err := p.parseStepExpr()
	if err != nil {
		return nil, err
	}
	if left.isPath() {
		left.append(step)
		return left, nil
	}
	expr := &Node{Type: TypeRelativePath}
	expr.append(left, step)
	return expr, nil
}

func (p *Parser) parseDescendantStep(left *Node) (*Node, error) {
	p.Enter("descendant-step")
	defer p.Leave("descendant-step")
	p.next()
	step, err := p.parseStepExpr()
	if err != nil {
		return nil, err
	}
	if left.isPath() {
		left.append(descendantStep(), step)
		return left, nil
	}
	expr := &Node{Type: TypeRelativePath}
	expr.append(left, descendantStep(), step)
	return expr, nil
}

func (p *Parser) parseStepExpr() (*Node, error) {
	var step *Node
	switch p.curr.Type {
	case currNode:
		p.next()
		return axisStep(selfAxis, kindTest(kwNode)), nil
	case parentNode:
		p.next()
		return axisStep(parentAxis, kindTest(kwNode)), nil
	case axisName:
		if !isAxisName(p.curr.Literal) {
			return nil, p.syntaxError(fmt.Sprintf("unknown axis %q", p.curr.Literal))
		}
		kind := p.curr.Literal
		p.next()
		test, err := p.parseNodeTest()
		if err != nil {
			return nil, err
		}
		step = axisStep(kind, test)
	case attrNode:
		p.next()
		test, err := p.parseNodeTest()
		if err != nil {
			return nil, err
		}
		step = axisStep(attrAxis, test)
	case Name:
		if p.peek.Type == opAxis {
			// axis written with blanks around the '::'
			if !isAxisName(p.curr.Literal) {
				return nil, p.syntaxError(fmt.Sprintf("unknown axis %q", p.curr.Literal))
			}
			kind := p.curr.Literal
			p.next()
			p.next()
			test, err := p.parseNodeTest()
			if err != nil {
				return nil, err
			}
			step = axisStep(kind, test)
			break
		}
		test, err := p.parseNodeTest()
		if err != nil {
			return nil, err
		}
		step = axisStep(childAxis, test)
	default:
		test, err := p.parseNodeTest()
		if err != nil {
			return nil, err
		}
		step = axisStep(childAxis, test)
	}
	for p.is(begPred) {
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		step.append(pred)
	}
	return step, nil
}

func (p *Parser) parseNodeTest() (*Node, error) {
	switch p.curr.Type {
	case opMul:
		p.next()
		return &Node{Type: TypeWildcard}, nil
	case nodeType:
		if p.peek.Type == begGrp {
			return p.parseKindTest()
		}
		return p.parseQName()
	case Name, opAnd, opOr, opDiv, opMod:
		return p.parseQName()
	default:
		return nil, p.unexpected()
	}
}

func (p *Parser) parseQName() (*Node, error) {
	ident := p.curr.Literal
	p.next()
	if !p.is(Namespace) {
		return &Node{Type: TypeTest, Value: ident}, nil
	}
	p.next()
	switch p.curr.Type {
	case Name, nodeType, opAnd, opOr, opDiv, opMod:
		expr := &Node{
			Type:  TypeTest,
			Value: p.curr.Literal,
			Space: ident,
		}
		p.next()
		return expr, nil
	case opMul:
		p.next()
		return &Node{Type: TypeWildcard, Space: ident}, nil
	default:
		return nil, p.syntaxError("name expected after namespace prefix")
	}
}

func (p *Parser) parseKindTest() (*Node, error) {
	p.Enter("kind")
	defer p.Leave("kind")
	expr := &Node{
		Type:  TypeNodeType,
		Value: p.curr.Literal,
	}
	p.next()
	p.next()
	if expr.Value == kwInstruction && p.is(Literal) {
		expr.append(&Node{Type: TypeString, Value: p.curr.Literal})
		p.next()
	}
	if !p.is(endGrp) {
		return nil, p.syntaxError("missing ')' after node type")
	}
	p.next()
	return expr, nil
}

func (p *Parser) parsePredicate() (*Node, error) {
	p.Enter("predicate")
	defer p.Leave("predicate")
	p.next()
	check, err := p.parseExpr(powLowest)
	if err != nil {
		return nil, err
	}
	if !p.is(endPred) {
		return nil, p.syntaxError("missing ']' after predicate")
	}
	p.next()
	expr := &Node{Type: TypePredicate}
	expr.append(check)
	return expr, nil
}

func (p *Parser) parseFilter(left *Node) (*Node, error) {
	p.Enter("filter")
	defer p.Leave("filter")
	pred, err := p.parsePredicate()
	if err != nil {
		return nil, err
	}
	if left.Type != TypePath {
		expr := &Node{Type: TypePath}
		expr.append(left)
		left = expr
	}
	left.append(pred)
	return left, nil
}

func (p *Parser) parseUnion(left *Node) (*Node, error) {
	p.Enter("union")
	defer p.Leave("union")
	p.next()
	right, err := p.parseExpr(bindings[opUnion])
	if err != nil {
		return nil, err
	}
	if left.Type == TypeUnion {
		left.append(right)
		return left, nil
	}
	expr := &Node{Type: TypeUnion}
	expr.append(left, right)
	return expr, nil
}

func (p *Parser) parseBinary(left *Node) (*Node, error) {
	p.Enter("binary")
	defer p.Leave("binary")
	var (
		op  = p.curr.Type
		pow = bindings[op]
	)
	p.next()
	right, err := p.parseExpr(pow)
	if err != nil {
		return nil, err
	}
	expr := &Node{Type: typeOfOp(op)}
	expr.append(left, right)
	return expr, nil
}

func (p *Parser) parseReverse() (*Node, error) {
	p.Enter("reverse")
	defer p.Leave("reverse")
	p.next()
	next, err := p.parseExpr(powPrefix)
	if err != nil {
		return nil, err
	}
	expr := &Node{Type: TypeNegate}
	expr.append(next)
	return expr, nil
}

func (p *Parser) parseGroup() (*Node, error) {
	p.Enter("group")
	defer p.Leave("group")
	p.next()
	expr, err := p.parseExpr(powLowest)
	if err != nil {
		return nil, err
	}
	if !p.is(endGrp) {
		return nil, p.syntaxError("missing ')' after expression")
	}
	p.next()
	return expr, nil
}

func (p *Parser) parseCall() (*Node, error) {
	p.Enter("call")
	defer p.Leave("call")
	expr := &Node{
		Type:  TypeFunction,
		Value: p.curr.Literal,
	}
	p.next()
	p.next()
	for !p.done() && !p.is(endGrp) {
		arg, err := p.parseExpr(powLowest)
		if err != nil {
			return nil, err
		}
		expr.append(arg)
		switch {
		case p.is(opSeq):
			p.next()
			if p.is(endGrp) {
				return nil, p.syntaxError("missing argument after ','")
			}
		case p.is(endGrp):
		default:
			return nil, p.unexpected()
		}
	}
	if !p.is(endGrp) {
		return nil, p.syntaxError("missing ')' after arguments")
	}
	p.next()
	return expr, nil
}

func (p *Parser) parseVariable() (*Node, error) {
	p.Enter("variable")
	defer p.Leave("variable")
	defer p.next()
	expr := &Node{
		Type:  TypeVariable,
		Value: p.curr.Literal,
	}
	return expr, nil
}

func (p *Parser) parseLiteral() (*Node, error) {
	p.Enter("literal")
	defer p.Leave("literal")
	defer p.next()
	expr := &Node{
		Type:  TypeString,
		Value: p.curr.Literal,
	}
	return expr, nil
}

func (p *Parser) parseNumber() (*Node, error) {
	p.Enter("number")
	defer p.Leave("number")
	defer p.next()
	f, err := strconv.ParseFloat(p.curr.Literal, 64)
	if err != nil {
		return nil, p.syntaxError("malformed number")
	}
	expr := &Node{
		Type:   TypeNumber,
		Number: f,
	}
	return expr, nil
}

func (p *Parser) stepStart() bool {
	switch p.curr.Type {
	case Name, opMul, axisName, nodeType, currNode, parentNode, attrNode:
	case opAnd, opOr, opDiv, opMod:
	default:
		return false
	}
	return true
}

func (p *Parser) power() int {
	return bindings[p.curr.Type]
}

func (p *Parser) is(kind rune) bool {
	return p.curr.Type == kind
}

func (p *Parser) done() bool {
	return p.is(EOF)
}

func (p *Parser) next() {
	p.curr = p.peek
	p.peek = p.scan.Scan()
}

func (p *Parser) syntaxError(cause string) error {
	return syntaxError(p.expr, cause, p.curr.Position)
}

func (p *Parser) unexpected() error {
	switch p.curr.Type {
	case EOF:
		return p.syntaxError("unexpected end of expression")
	case Invalid:
		return p.syntaxError(p.curr.Literal)
	default:
		return p.syntaxError(fmt.Sprintf("unexpected token %s", p.curr))
	}
}

func axisStep(kind string, test *Node) *Node {
	expr := &Node{
		Type:  TypeAxis,
		Value: kind,
	}
	expr.append(test)
	return expr
}

func kindTest(kind string) *Node {
	return &Node{
		Type:  TypeNodeType,
		Value: kind,
	}
}

func descendantStep() *Node {
	return axisStep(descendantSelfAxis, kindTest(kwNode))
}

func typeOfOp(op rune) NodeType {
	switch op {
	case opAdd:
		return TypeAdd
	case opSub:
		return TypeSubtract
	case opMul:
		return TypeMultiply
	case opDiv:
		return TypeDivide
	case opMod:
		return TypeModulo
	case opEq:
		return TypeEqual
	case opNe:
		return TypeNotEqual
	case opGt:
		return TypeGreater
	case opGe:
		return TypeGreaterEq
	case opLt:
		return TypeLesser
	case opLe:
		return TypeLesserEq
	case opAnd:
		return TypeAnd
	case opOr:
		return TypeOr
	default:
		return 0
	}
}

const (
	powLowest = iota
	powOr
	powAnd
	powEqual
	powCompare
	powAdd
	powMul
	powPrefix
	powUnion
	powStep
	powPred
)

var bindings = map[rune]int{
	currLevel: powStep,
	anyLevel:  powStep,
	begPred:   powPred,
	opUnion:   powUnion,
	opOr:      powOr,
	opAnd:     powAnd,
	opEq:      powEqual,
	opNe:      powEqual,
	opLt:      powCompare,
	opLe:      powCompare,
	opGt:      powCompare,
	opGe:      powCompare,
	opAdd:     powAdd,
	opSub:     powAdd,
	opMul:     powMul,
	opDiv:     powMul,
	opMod:     powMul,
}
