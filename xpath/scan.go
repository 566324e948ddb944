package xpath

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Position struct {
	Line   int
	Column int
	Offset int
}

const (
	kwAnd         = "and"
	kwOr          = "or"
	kwDiv         = "div"
	kwMod         = "mod"
	kwText        = "text"
	kwComment     = "comment"
	kwNode        = "node"
	kwInstruction = "processing-instruction"
)

func isNodeType(str string) bool {
	switch str {
	case kwText:
	case kwComment:
	case kwNode:
	case kwInstruction:
	default:
		return false
	}
	return true
}

const (
	EOF rune = -(1 + iota)
	Name
	Namespace // name:
	Literal
	Digit
	Invalid
)

const (
	currNode = -(iota + 1000)
	parentNode
	attrNode
	variable
	axisName
	nodeType
	currLevel
	anyLevel
	begPred
	endPred
	begGrp
	endGrp
	opSeq
	opAxis
	opAdd
	opSub
	opMul
	opDiv
	opMod
	opEq
	opNe
	opGt
	opGe
	opLt
	opLe
	opUnion
	opAnd
	opOr
)

type Token struct {
	Literal string
	Type    rune
	Position
}

func (t Token) String() string {
	switch t.Type {
	case opAxis:
		return "<axis>"
	case currNode:
		return "<current-node>"
	case parentNode:
		return "<parent-node>"
	case attrNode:
		return "<attribute>"
	case currLevel:
		return "<current-level>"
	case anyLevel:
		return "<any-level>"
	case begPred:
		return "<begin-predicate>"
	case endPred:
		return "<end-predicate>"
	case begGrp:
		return "<begin-group>"
	case endGrp:
		return "<end-group>"
	case opSeq:
		return "<sequence>"
	case opAdd:
		return "<add>"
	case opSub:
		return "<subtract>"
	case opMul:
		return "<multiply>"
	case opDiv:
		return "<divide>"
	case opMod:
		return "<modulo>"
	case opEq:
		return "<equal>"
	case opNe:
		return "<not-equal>"
	case opGt:
		return "<greater-than>"
	case opGe:
		return "<greater-eq>"
	case opLt:
		return "<lesser-than>"
	case opLe:
		return "<lesser-eq>"
	case opUnion:
		return "<union>"
	case opAnd:
		return "<and>"
	case opOr:
		return "<or>"
	case EOF:
		return "<eof>"
	case Digit:
		return fmt.Sprintf("number(%s)", t.Literal)
	case Name:
		return fmt.Sprintf("name(%s)", t.Literal)
	case Namespace:
		return fmt.Sprintf("namespace(%s)", t.Literal)
	case Literal:
		return fmt.Sprintf("literal(%s)", t.Literal)
	case variable:
		return fmt.Sprintf("variable(%s)", t.Literal)
	case axisName:
		return fmt.Sprintf("axis(%s)", t.Literal)
	case nodeType:
		return fmt.Sprintf("type(%s)", t.Literal)
	case Invalid:
		return fmt.Sprintf("invalid(%s)", t.Literal)
	default:
		return "<unknown>"
	}
}

// Tokenize scans the whole expression in a single left to right pass. It
// returns the full token stream without the trailing EOF marker, or the
// first scanning error.
func Tokenize(expr string) ([]Token, error) {
	var (
		scan = Scan(strings.NewReader(expr))
		list []Token
	)
	for {
		tok := scan.Scan()
		if tok.Type == EOF {
			return list, nil
		}
		if tok.Type == Invalid {
			return nil, syntaxError(expr, tok.Literal, tok.Position)
		}
		list = append(list, tok)
	}
}

type Scanner struct {
	input *bufio.Reader
	char  rune
	eof   bool
	str   bytes.Buffer

	Position
	next int
}

func Scan(r io.Reader) *Scanner {
	scan := &Scanner{
		input: bufio.NewReader(r),
	}
	scan.Line = 1
	scan.Offset = -1
	scan.read()
	return scan
}

func (s *Scanner) Scan() Token {
	var tok Token
	s.skipBlank()
	if s.done() {
		tok.Position = s.Position
		tok.Type = EOF
		return tok
	}
	s.str.Reset()
	tok.Position = s.Position
	switch {
	case isOperator(s.char):
		s.scanOperator(&tok)
	case s.char == dot && unicode.IsDigit(s.peek()):
		s.scanNumber(&tok)
	case isDelimiter(s.char):
		s.scanDelimiter(&tok)
	case s.char == arobase:
		tok.Type = attrNode
		s.read()
	case s.char == apos || s.char == quote:
		s.scanLiteral(&tok)
	case s.char == dollar:
		s.scanVariable(&tok)
	case unicode.IsLetter(s.char) || s.char == underscore:
		s.scanIdent(&tok)
	case unicode.IsDigit(s.char):
		s.scanNumber(&tok)
	case s.char == utf8.RuneError:
		tok.Type = Invalid
		tok.Literal = "invalid utf-8 encoding"
	default:
		tok.Type = Invalid
		tok.Literal = fmt.Sprintf("unexpected character %q", s.char)
	}
	return tok
}

func (s *Scanner) scanOperator(tok *Token) {
	switch k := s.peek(); s.char {
	case plus:
		tok.Type = opAdd
	case dash:
		tok.Type = opSub
	case star:
		tok.Type = opMul
	case equal:
		tok.Type = opEq
	case bang:
		if k == equal {
			s.read()
			tok.Type = opNe
		} else {
			tok.Type = Invalid
			tok.Literal = "unexpected character '!'"
		}
	case langle:
		tok.Type = opLt
		if k == equal {
			s.read()
			tok.Type = opLe
		}
	case rangle:
		tok.Type = opGt
		if k == equal {
			s.read()
			tok.Type = opGe
		}
	case lparen:
		tok.Type = begGrp
	case rparen:
		tok.Type = endGrp
	default:
		tok.Type = Invalid
		tok.Literal = fmt.Sprintf("unexpected character %q", s.char)
	}
	if tok.Type != Invalid {
		s.read()
	}
}

func (s *Scanner) scanDelimiter(tok *Token) {
	switch k := s.peek(); s.char {
	case colon:
		tok.Type = Namespace
		if k == colon {
			s.read()
			tok.Type = opAxis
		}
	case dot:
		tok.Type = currNode
		if k == s.char {
			s.read()
			tok.Type = parentNode
		}
	case comma:
		tok.Type = opSeq
	case pipe:
		tok.Type = opUnion
	case lsquare:
		tok.Type = begPred
	case rsquare:
		tok.Type = endPred
	case slash:
		tok.Type = currLevel
		if k == slash {
			s.read()
			tok.Type = anyLevel
		}
	default:
		tok.Type = Invalid
		tok.Literal = fmt.Sprintf("unexpected character %q", s.char)
	}
	if tok.Type != Invalid {
		s.read()
	}
}

func (s *Scanner) scanLiteral(tok *Token) {
	quote := s.char
	s.read()
	for !s.done() && s.char != quote {
		if s.char == backslash {
			s.read()
			switch s.char {
			case 'n':
				s.str.WriteRune('\n')
			case 'r':
				s.str.WriteRune('\r')
			case 't':
				s.str.WriteRune('\t')
			case backslash, quote:
				s.write()
			default:
				tok.Type = Invalid
				tok.Literal = fmt.Sprintf("unknown escape %q in literal", s.char)
				return
			}
			s.read()
			continue
		}
		s.write()
		s.read()
	}
	tok.Type = Literal
	tok.Literal = s.str.String()
	if s.char != quote {
		tok.Type = Invalid
		tok.Literal = "unterminated literal"
		return
	}
	s.read()
}

func (s *Scanner) scanNumber(tok *Token) {
	for !s.done() && unicode.IsDigit(s.char) {
		s.write()
		s.read()
	}
	tok.Type = Digit
	tok.Literal = s.str.String()
	if s.char != dot || !unicode.IsDigit(s.peek()) {
		return
	}
	s.write()
	s.read()
	for !s.done() && unicode.IsDigit(s.char) {
		s.write()
		s.read()
	}
	tok.Literal = s.str.String()
}

func (s *Scanner) scanVariable(tok *Token) {
	s.read()
	for !s.done() && isName(s.char) {
		s.write()
		s.read()
	}
	tok.Type = variable
	tok.Literal = s.str.String()
	if tok.Literal == "" {
		tok.Type = Invalid
		tok.Literal = "missing variable name"
	}
}

func (s *Scanner) scanIdent(tok *Token) {
	for !s.done() && isName(s.char) {
		s.write()
		s.read()
	}
	tok.Literal = s.str.String()
	switch {
	case s.char == colon && s.peek() == colon:
		s.read()
		s.read()
		tok.Type = axisName
		return
	case isNodeType(tok.Literal):
		tok.Type = nodeType
		return
	}
	switch tok.Literal {
	case kwAnd:
		tok.Type = opAnd
	case kwOr:
		tok.Type = opOr
	case kwDiv:
		tok.Type = opDiv
	case kwMod:
		tok.Type = opMod
	default:
		tok.Type = Name
	}
}

func (s *Scanner) skipBlank() {
	for unicode.IsSpace(s.char) {
		s.read()
	}
}

func (s *Scanner) write() {
	s.str.WriteRune(s.char)
}

func (s *Scanner) read() {
	if s.char == '\n' {
		s.Column = 0
		s.Line++
	}
	s.Column++
	s.Offset = s.next
	c, z, err := s.input.ReadRune()
	if err != nil {
		s.char = utf8.RuneError
		s.eof = true
		return
	}
	s.char = c
	s.next += z
}

func (s *Scanner) peek() rune {
	defer s.input.UnreadRune()
	c, _, _ := s.input.ReadRune()
	return c
}

// done reports the end of the input. ReadRune also yields RuneError
// for a byte that is not valid utf-8; that rune is left in place for
// Scan to report as an Invalid token.
func (s *Scanner) done() bool {
	return s.eof
}

const (
	langle     = '<'
	rangle     = '>'
	lsquare    = '['
	rsquare    = ']'
	lparen     = '('
	rparen     = ')'
	colon      = ':'
	quote      = '"'
	apos       = '\''
	slash      = '/'
	bang       = '!'
	equal      = '='
	dash       = '-'
	underscore = '_'
	dot        = '.'
	arobase    = '@'
	comma      = ','
	plus       = '+'
	star       = '*'
	pipe       = '|'
	dollar     = '$'
	backslash  = '\\'
)

func isName(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) ||
		c == dash || c == underscore || c == dot
}

func isDelimiter(c rune) bool {
	return c == comma || c == dot || c == pipe || c == slash ||
		c == lsquare || c == rsquare || c == colon
}

func isOperator(c rune) bool {
	return c == plus || c == dash || c == star || c == equal ||
		c == bang || c == langle || c == rangle ||
		c == lparen || c == rparen
}
