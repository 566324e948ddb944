package xml

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MaxDepth = 512

const (
	SupportedVersion  = "1.0"
	SupportedEncoding = "UTF-8"
)

type ParseError struct {
	Position
	Element string
	Message string
}

func createParseError(elem, msg string, pos Position) error {
	return ParseError{
		Position: pos,
		Element:  elem,
		Message:  msg,
	}
}

func (p ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", p.Line, p.Column, p.Element, p.Message)
}

type Parser struct {
	scan *Scanner
	curr Token
	peek Token

	depth int

	TrimSpace  bool
	KeepEmpty  bool
	OmitProlog bool
	MaxDepth   int
}

func NewParser(r io.Reader) *Parser {
	p := Parser{
		scan:      Scan(r),
		TrimSpace: true,
		MaxDepth:  MaxDepth,
	}
	p.next()
	p.next()
	return &p
}

func ParseFile(file string) (*Document, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ParseReader(r)
}

func ParseString(doc string) (*Document, error) {
	return ParseReader(strings.NewReader(doc))
}

func ParseReader(r io.Reader) (*Document, error) {
	return NewParser(r).Parse()
}

func (p *Parser) Parse() (*Document, error) {
	doc := NewDocument()
	if err := p.parseProlog(doc); err != nil {
		return nil, err
	}
	for p.is(Literal) {
		p.next()
	}
	for !p.done() {
		if p.is(DoctypeTag) && doc.Root() == nil {
			p.next()
			continue
		}
		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		switch node.Type() {
		case TypeElement, TypeComment, TypeInstruction:
		case TypeText:
			continue
		default:
			return nil, p.createError("document", "invalid node type")
		}
		if err := doc.Append(node); err != nil {
			return nil, err
		}
		if node.Type() == TypeElement {
			break
		}
	}
	if doc.Root() == nil {
		return nil, p.createError("document", "missing root element")
	}
	if err := p.parseEpilog(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *Parser) parseProlog(doc *Document) error {
	if !p.is(ProcInstTag) {
		if !p.OmitProlog {
			return p.createError("document", "xml prolog missing")
		}
		return nil
	}
	p.next()
	if !p.is(Name) || p.curr.Literal != "xml" {
		return p.createError("document", "xml prolog expected")
	}
	p.next()
	attrs := make(map[string]string)
	for !p.done() && !p.is(ProcInstTag) {
		if !p.is(Attr) {
			return p.createError("document", "attribute expected in prolog")
		}
		name := p.curr.Literal
		p.next()
		if !p.is(Literal) {
			return p.createError("document", "attribute value is missing")
		}
		attrs[name] = p.curr.Literal
		p.next()
	}
	if !p.is(ProcInstTag) {
		return p.createError("document", "end of prolog expected")
	}
	p.next()
	if attrs["version"] != SupportedVersion {
		return p.createError("document", "xml version not supported")
	}
	if enc, ok := attrs["encoding"]; ok && strings.ToUpper(enc) != SupportedEncoding {
		return p.createError("document", "xml encoding not supported")
	}
	doc.Version = SupportedVersion
	doc.Encoding = SupportedEncoding
	return nil
}

// parseEpilog checks what trails the root element. Comments and
// processing instructions are kept, anything else makes the document
// ill formed.
func (p *Parser) parseEpilog(doc *Document) error {
	for !p.done() {
		switch {
		case p.is(Literal):
			if strings.TrimSpace(p.curr.Literal) != "" {
				return p.createError("document", "content after root element")
			}
			p.next()
		case p.is(CommentTag) || p.is(ProcInstTag):
			node, err := p.parseNode()
			if err != nil {
				return err
			}
			if err := doc.Append(node); err != nil {
				return err
			}
		default:
			return p.createError("document", "content after root element")
		}
	}
	return nil
}

func (p *Parser) parseNode() (Node, error) {
	p.enter()
	defer p.leave()
	if p.depth >= p.MaxDepth {
		return nil, p.createError("document", "maximum depth reached")
	}
	var (
		node Node
		err  error
	)
	switch p.curr.Type {
	case OpenTag:
		node, err = p.parseElement()
	case CommentTag:
		node, err = p.parseComment()
	case ProcInstTag:
		node, err = p.parsePI()
	case Cdata:
		node, err = p.parseCharData()
	case Literal:
		node, err = p.parseLiteral()
	default:
		return nil, p.createError("document", "unsupported element type")
	}
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseElement() (Node, error) {
	p.next()
	var name QName
	if p.is(Namespace) {
		name.Space = p.curr.Literal
		p.next()
	}
	if !p.is(Name) {
		return nil, p.createError("element", "name is missing")
	}
	name.Name = p.curr.Literal
	p.next()

	elem := NewElement(name)
	err := p.parseAttributes(elem, func() bool {
		return p.is(EndTag) || p.is(EmptyElemTag)
	})
	if err != nil {
		return nil, err
	}
	switch p.curr.Type {
	case EmptyElemTag:
		p.next()
		return elem, nil
	case EndTag:
		p.next()
		for !p.done() && !p.is(CloseTag) {
			child, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			if child == nil {
				continue
			}
			if err := elem.Append(child); err != nil {
				return nil, err
			}
		}
		if !p.is(CloseTag) {
			return nil, p.createError("element", "closing element is missing")
		}
		p.next()
		return elem, p.parseCloseElement(elem)
	default:
		return nil, p.createError("element", "end of element expected")
	}
}

func (p *Parser) parseCloseElement(elem *Element) error {
	if elem.Space != "" && !p.is(Namespace) {
		return p.createError("element", "closing element without namespace")
	}
	if p.is(Namespace) {
		if elem.Space != p.curr.Literal {
			return p.createError("element", "namespace mismatched with opening element")
		}
		p.next()
	}
	if !p.is(Name) {
		return p.createError("element", "name is missing")
	}
	if p.curr.Literal != elem.Name {
		return p.createError("element", "name mismatched with opening element")
	}
	p.next()
	if !p.is(EndTag) {
		return p.createError("element", "end of element expected")
	}
	p.next()
	return nil
}

func (p *Parser) parsePI() (Node, error) {
	p.next()
	if !p.is(Name) {
		return nil, p.createError("processing instruction", "name is missing")
	}
	target := p.curr.Literal
	p.next()
	var parts []string
	for !p.done() && !p.is(ProcInstTag) {
		switch p.curr.Type {
		case Attr:
			name := p.curr.Literal
			p.next()
			if !p.is(Literal) {
				return nil, p.createError("processing instruction", "attribute value is missing")
			}
			parts = append(parts, fmt.Sprintf("%s=%q", name, p.curr.Literal))
			p.next()
		case Namespace:
			space := p.curr.Literal
			p.next()
			if !p.is(Attr) {
				return nil, p.createError("processing instruction", "attribute name is missing")
			}
			name := fmt.Sprintf("%s:%s", space, p.curr.Literal)
			p.next()
			if !p.is(Literal) {
				return nil, p.createError("processing instruction", "attribute value is missing")
			}
			parts = append(parts, fmt.Sprintf("%s=%q", name, p.curr.Literal))
			p.next()
		case Name, Literal:
			parts = append(parts, p.curr.Literal)
			p.next()
		default:
			return nil, p.createError("processing instruction", "unexpected token")
		}
	}
	if !p.is(ProcInstTag) {
		return nil, p.createError("processing instruction", "end of element expected")
	}
	p.next()
	return NewInstruction(target, strings.Join(parts, " ")), nil
}

func (p *Parser) parseAttributes(elem *Element, done func() bool) error {
	for !p.done() && !done() {
		name, value, err := p.parseAttr()
		if err != nil {
			return err
		}
		ok := slices.ContainsFunc(elem.attrs, func(a *Attribute) bool {
			return a.QName == name
		})
		if ok {
			return p.createError("attribute", "attribute is already defined")
		}
		elem.SetAttribute(name, value)
	}
	return nil
}

func (p *Parser) parseAttr() (QName, string, error) {
	var name QName
	if p.is(Namespace) {
		name.Space = p.curr.Literal
		p.next()
	}
	if !p.is(Attr) {
		return name, "", p.createError("attribute", "name is expected")
	}
	name.Name = p.curr.Literal
	p.next()
	if !p.is(Literal) {
		return name, "", p.createError("attribute", "value is missing")
	}
	value := p.curr.Literal
	p.next()
	return name, value, nil
}

func (p *Parser) parseComment() (Node, error) {
	defer p.next()
	return NewComment(p.curr.Literal), nil
}

func (p *Parser) parseCharData() (Node, error) {
	defer p.next()
	return NewCharData(p.curr.Literal), nil
}

func (p *Parser) parseLiteral() (Node, error) {
	content := p.curr.Literal
	if p.TrimSpace {
		content = strings.TrimSpace(content)
	}
	p.next()
	if !p.KeepEmpty && content == "" {
		return nil, nil
	}
	return NewText(content), nil
}

func (p *Parser) createError(elem, msg string) error {
	return createParseError(elem, msg, p.curr.Position)
}

func (p *Parser) is(kind rune) bool {
	return p.curr.Type == kind
}

func (p *Parser) done() bool {
	return p.is(EOF)
}

func (p *Parser) enter() {
	p.depth++
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) next() {
	p.curr = p.peek
	p.peek = p.scan.Scan()
}

const (
	EOF rune = -(1 + iota)
	Name
	Namespace // name:
	Attr      // name=
	Literal
	Cdata
	CommentTag   // <!--
	DoctypeTag   // <!DOCTYPE
	OpenTag      // <
	EndTag       // >
	CloseTag     // </
	EmptyElemTag // />
	ProcInstTag  // <?, ?>
	Invalid
)

type Position struct {
	Line   int
	Column int
}

type Token struct {
	Literal string
	Type    rune
	Position
}

func (t Token) String() string {
	switch t.Type {
	case EOF:
		return "<eof>"
	case CommentTag:
		return fmt.Sprintf("comment(%s)", t.Literal)
	case DoctypeTag:
		return fmt.Sprintf("doctype(%s)", t.Literal)
	case Name:
		return fmt.Sprintf("name(%s)", t.Literal)
	case Namespace:
		return fmt.Sprintf("namespace(%s)", t.Literal)
	case Attr:
		return fmt.Sprintf("attr(%s)", t.Literal)
	case Cdata:
		return fmt.Sprintf("chardata(%s)", t.Literal)
	case Literal:
		return fmt.Sprintf("literal(%s)", t.Literal)
	case OpenTag:
		return "<open-elem-tag>"
	case EndTag:
		return "<end-elem-tag>"
	case CloseTag:
		return "<close-elem-tag>"
	case EmptyElemTag:
		return "<empty-elem-tag>"
	case ProcInstTag:
		return "<processing-instruction>"
	case Invalid:
		return "<invalid>"
	default:
		return "<unknown>"
	}
}

const (
	langle     = '<'
	rangle     = '>'
	lsquare    = '['
	rsquare    = ']'
	colon      = ':'
	quote      = '"'
	apos       = '\''
	slash      = '/'
	question   = '?'
	bang       = '!'
	equal      = '='
	ampersand  = '&'
	semicolon  = ';'
	dash       = '-'
	underscore = '_'
	dot        = '.'
)

type state int8

const (
	literalState state = 1 << iota
)

type Scanner struct {
	input io.RuneScanner
	char  rune
	str   bytes.Buffer

	// depth counts the elements whose content is being scanned so that
	// text following an inline construct stays character data
	depth   int
	closing bool

	Position

	state
}

func Scan(r io.Reader) *Scanner {
	var (
		rs    = bufio.NewReader(r)
		pk, _ = rs.Peek(3)
	)
	if bytes.Equal(pk, []byte{0xEF, 0xBB, 0xBF}) {
		rs.Discard(3)
	}

	scan := &Scanner{
		input: rs,
	}
	scan.Position.Line = 1
	scan.read()
	return scan
}

func (s *Scanner) Scan() Token {
	var tok Token
	tok.Position = s.Position
	if s.done() {
		tok.Type = EOF
		return tok
	}

	if s.state == literalState {
		s.scanLiteral(&tok)
		return tok
	}
	s.str.Reset()
	switch {
	case s.char == langle:
		s.scanOpeningTag(&tok)
	case s.char == rangle:
		s.scanEndTag(&tok)
	case s.char == slash || s.char == question:
		s.scanClosingTag(&tok)
	case s.char == quote || s.char == apos:
		s.scanValue(&tok)
	case unicode.IsLetter(s.char):
		s.scanName(&tok)
	default:
		s.scanLiteral(&tok)
	}
	return tok
}

func (s *Scanner) scanOpeningTag(tok *Token) {
	s.read()
	tok.Type = OpenTag
	switch s.char {
	case bang:
		s.read()
		if s.char == lsquare {
			s.scanCharData(tok)
			return
		}
		if s.char == dash {
			s.scanComment(tok)
			return
		}
		if unicode.IsLetter(s.char) {
			s.scanDoctype(tok)
			return
		}
		tok.Type = Invalid
	case question:
		tok.Type = ProcInstTag
	case slash:
		tok.Type = CloseTag
	default:
	}
	s.closing = tok.Type == CloseTag
	if tok.Type == ProcInstTag || tok.Type == CloseTag {
		s.read()
	}
}

func (s *Scanner) scanComment(tok *Token) {
	s.read()
	if s.char != dash {
		tok.Type = Invalid
		return
	}
	s.read()
	var done bool
	for !s.done() {
		if s.char == dash && s.peek() == s.char {
			s.read()
			s.read()
			if done = s.char == rangle; done {
				s.read()
				break
			}
			s.str.WriteRune(dash)
			s.str.WriteRune(dash)
			continue
		}
		s.write()
		s.read()
	}
	tok.Literal = s.str.String()
	tok.Type = CommentTag
	if !done {
		tok.Type = Invalid
		return
	}
	if s.depth > 0 {
		s.state = literalState
	}
}

// scanDoctype swallows a doctype declaration, internal subset included,
// keeping only the document type name.
func (s *Scanner) scanDoctype(tok *Token) {
	for !s.done() && unicode.IsLetter(s.char) {
		s.write()
		s.read()
	}
	if s.str.String() != "DOCTYPE" {
		tok.Type = Invalid
		return
	}
	s.str.Reset()
	s.skipBlank()
	for !s.done() && !unicode.IsSpace(s.char) && s.char != rangle && s.char != lsquare {
		s.write()
		s.read()
	}
	tok.Literal = s.str.String()
	tok.Type = DoctypeTag
	var depth int
	for !s.done() {
		switch s.char {
		case quote, apos:
			q := s.char
			s.read()
			for !s.done() && s.char != q {
				s.read()
			}
		case lsquare:
			depth++
		case rsquare:
			depth--
		case rangle:
			if depth == 0 {
				s.read()
				return
			}
		}
		s.read()
	}
	tok.Type = Invalid
}

func (s *Scanner) scanCharData(tok *Token) {
	s.read()
	for !s.done() && s.char != lsquare {
		s.write()
		s.read()
	}
	s.read()
	if s.str.String() != "CDATA" {
		tok.Type = Invalid
		return
	}
	s.str.Reset()
	var done bool
	for !s.done() {
		if s.char == rsquare && s.peek() == s.char {
			s.read()
			s.read()
			if done = s.char == rangle; done {
				s.read()
				break
			}
			s.str.WriteRune(rsquare)
			s.str.WriteRune(rsquare)
			continue
		}
		s.write()
		s.read()
	}
	tok.Literal = s.str.String()
	tok.Type = Cdata
	if !done {
		tok.Type = Invalid
		return
	}
	if s.depth > 0 {
		s.state = literalState
	}
}

func (s *Scanner) scanEndTag(tok *Token) {
	tok.Type = EndTag
	if s.closing {
		s.depth--
	} else {
		s.depth++
	}
	s.state = literalState
	s.read()
}

func (s *Scanner) scanClosingTag(tok *Token) {
	tok.Type = Invalid
	if s.char == question {
		tok.Type = ProcInstTag
	} else if s.char == slash {
		tok.Type = EmptyElemTag
	}
	s.read()
	if s.char != rangle {
		tok.Type = Invalid
		return
	}
	s.read()
	if s.depth > 0 {
		s.state = literalState
	}
}

func (s *Scanner) scanValue(tok *Token) {
	q := s.char
	s.read()
	for !s.done() && s.char != q {
		if s.char == ampersand {
			str := s.scanEntity()
			if str == "" {
				break
			}
			s.str.WriteString(str)
			continue
		}
		s.write()
		s.read()
	}
	tok.Type = Literal
	tok.Literal = s.str.String()
	if s.char != q {
		tok.Type = Invalid
	}
	s.read()
	s.skipBlank()
}

func (s *Scanner) scanEntity() string {
	s.read()
	var str bytes.Buffer
	str.WriteRune(ampersand)
	for !s.done() && s.char != semicolon {
		str.WriteRune(s.char)
		s.read()
	}
	if s.char != semicolon {
		return ""
	}
	str.WriteRune(semicolon)
	s.read()
	return html.UnescapeString(str.String())
}

func (s *Scanner) scanLiteral(tok *Token) {
	for !s.done() && s.char != langle {
		if s.char == ampersand {
			str := s.scanEntity()
			if str == "" {
				break
			}
			s.str.WriteString(str)
			continue
		}
		s.write()
		s.read()
	}
	tok.Type = Literal
	tok.Literal = s.str.String()
	if s.char == langle {
		s.state = 0
	}
}

func (s *Scanner) scanName(tok *Token) {
	accept := func() bool {
		return unicode.IsLetter(s.char) || unicode.IsDigit(s.char) ||
			s.char == dash || s.char == underscore || s.char == dot
	}
	for !s.done() && accept() {
		s.write()
		s.read()
	}
	tok.Type = Name
	tok.Literal = s.str.String()
	if s.char == colon {
		tok.Type = Namespace
		s.read()
		return
	}
	s.skipBlank()
	if s.char == equal {
		tok.Type = Attr
		s.read()
		s.skipBlank()
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
	char, _, err := s.input.ReadRune()
	if errors.Is(err, io.EOF) {
		char = utf8.RuneError
	}
	s.char = char
}

func (s *Scanner) peek() rune {
	defer s.input.UnreadRune()
	r, _, _ := s.input.ReadRune()
	return r
}

func (s *Scanner) done() bool {
	return s.char == utf8.RuneError
}

func (s *Scanner) skipBlank() {
	for !s.done() && unicode.IsSpace(s.char) {
		s.read()
	}
}
