package xpath

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/midbel/axis/xml"
)

const library = `<?xml version="1.0" encoding="UTF-8"?>
<library>
	<book id="bk-1">
		<title>The Go Programming Language</title>
		<price>32</price>
	</book>
	<book>
		<title>Mastering Regular Expressions</title>
		<price>45</price>
	</book>
	<book id="bk-2">
		<title>Programming Erlang</title>
		<price>28</price>
	</book>
</library>
`

const nested = `<?xml version="1.0" encoding="UTF-8"?>
<root><a><b/><b/></a></root>
`

const record = `<?xml version="1.0" encoding="UTF-8"?>
<item price="10" isbn="x"/>
`

const mixed = `<?xml version="1.0" encoding="UTF-8"?>
<doc>
	<!--note-->
	<?page break?>
	<p>one</p>
	<p>two<em>!</em></p>
</doc>
`

func parseDocument(t *testing.T, doc string) *xml.Document {
	t.Helper()
	d, err := xml.ParseString(doc)
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	return d
}

func TestFind(t *testing.T) {
	tests := []struct {
		Expr string
		Want []string
	}{
		{
			Expr: "/library/book/title",
			Want: []string{"The Go Programming Language", "Mastering Regular Expressions", "Programming Erlang"},
		},
		{
			Expr: "/LIBRARY/Book/TITLE",
			Want: []string{"The Go Programming Language", "Mastering Regular Expressions", "Programming Erlang"},
		},
		{
			Expr: "//book[@id]/@id",
			Want: []string{"bk-1", "bk-2"},
		},
		{
			Expr: "//book[@id][1]/@id",
			Want: []string{"bk-1"},
		},
		{
			Expr: "/library/book[2]/title",
			Want: []string{"Mastering Regular Expressions"},
		},
		{
			Expr: "/library/book[last()]/title",
			Want: []string{"Programming Erlang"},
		},
		{
			Expr: "/library/book[position()>1]/title",
			Want: []string{"Mastering Regular Expressions", "Programming Erlang"},
		},
		{
			Expr: "/library/book[price>30]/title",
			Want: []string{"The Go Programming Language", "Mastering Regular Expressions"},
		},
		{
			Expr: "//book[starts-with(title, 'Programming')]/title",
			Want: []string{"Programming Erlang"},
		},
		{
			Expr: "//book[title='Programming Erlang']/@id",
			Want: []string{"bk-2"},
		},
		{
			Expr: "//book[@id='bk-1']/following-sibling::book/title",
			Want: []string{"Mastering Regular Expressions", "Programming Erlang"},
		},
		{
			Expr: "//book[3]/preceding-sibling::book[1]/title",
			Want: []string{"Mastering Regular Expressions"},
		},
		{
			Expr: "//title/parent::book[@id]/@id",
			Want: []string{"bk-1", "bk-2"},
		},
		{
			Expr: "//price/ancestor::library/book[1]/title",
			Want: []string{"The Go Programming Language"},
		},
		{
			Expr: "/library/book[3]/title | /library/book[1]/title",
			Want: []string{"The Go Programming Language", "Programming Erlang"},
		},
		{
			Expr: "//book[not(@id)]/title",
			Want: []string{"Mastering Regular Expressions"},
		},
		{
			Expr: "/library/book[1]/self::book/@id",
			Want: []string{"bk-1"},
		},
		{
			Expr: "//magazine",
			Want: nil,
		},
	}
	doc := parseDocument(t, library)
	for _, c := range tests {
		set, err := Find(c.Expr, doc)
		if err != nil {
			t.Errorf("%s: fail to evaluate: %s", c.Expr, err)
			continue
		}
		if diff := cmp.Diff(c.Want, set.Values()); diff != "" {
			t.Errorf("%s: nodes mismatched (-want +got):\n%s", c.Expr, diff)
		}
	}
}

func TestAxes(t *testing.T) {
	doc := parseDocument(t, nested)
	tests := []struct {
		Expr  string
		Count int
	}{
		{Expr: "/root/a/child::b", Count: 2},
		{Expr: "/root/a/descendant::b", Count: 2},
		{Expr: "/root/a/self::a", Count: 1},
		{Expr: "/root/a/parent::root", Count: 1},
		{Expr: "//b/ancestor::*", Count: 2},
		{Expr: "//b/ancestor-or-self::*", Count: 4},
		{Expr: "/root/a/b[1]/following-sibling::b", Count: 1},
		{Expr: "/root/a/b[2]/preceding-sibling::b", Count: 1},
	}
	for _, c := range tests {
		set, err := Find(c.Expr, doc)
		if err != nil {
			t.Errorf("%s: fail to evaluate: %s", c.Expr, err)
			continue
		}
		if set.Len() != c.Count {
			t.Errorf("%s: number of nodes mismatched! want %d, got %d", c.Expr, c.Count, set.Len())
		}
	}
}

func TestDescendantOrSelf(t *testing.T) {
	doc := parseDocument(t, nested)
	set, err := Find("descendant-or-self::node()", doc.Root())
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	if set.Len() != 4 {
		t.Errorf("number of nodes mismatched! want 4, got %d", set.Len())
	}
	if first := set.First(); first == nil || first.LocalName() != "root" {
		t.Errorf("the walk should start at the context node itself, got %v", first)
	}
}

func TestAttributes(t *testing.T) {
	doc := parseDocument(t, record)
	set, err := Find("/item/@price", doc)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	if set.Len() != 1 {
		t.Fatalf("number of nodes mismatched! want 1, got %d", set.Len())
	}
	if got := set.First().Value(); got != "10" {
		t.Errorf("attribute value mismatched! want 10, got %s", got)
	}

	all, err := Find("/item/@*", doc)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	if diff := cmp.Diff([]string{"10", "x"}, all.Values()); diff != "" {
		t.Errorf("attributes mismatched (-want +got):\n%s", diff)
	}
}

func TestKindTests(t *testing.T) {
	doc := parseDocument(t, mixed)
	tests := []struct {
		Expr string
		Want float64
	}{
		{Expr: "count(//comment())", Want: 1},
		{Expr: "count(//processing-instruction())", Want: 1},
		{Expr: "count(//processing-instruction('page'))", Want: 1},
		{Expr: "count(//processing-instruction('other'))", Want: 0},
		{Expr: "count(//p/text())", Want: 2},
		{Expr: "count(/doc/node())", Want: 4},
	}
	for _, c := range tests {
		value, err := Evaluate(c.Expr, doc)
		if err != nil {
			t.Errorf("%s: fail to evaluate: %s", c.Expr, err)
			continue
		}
		if value != c.Want {
			t.Errorf("%s: value mismatched! want %v, got %v", c.Expr, c.Want, value)
		}
	}
	str, err := Evaluate("string(//p[2])", doc)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	if str != "two!" {
		t.Errorf("string value mismatched! want two!, got %v", str)
	}
}

func TestScalars(t *testing.T) {
	tests := []struct {
		Expr string
		Want Value
	}{
		{Expr: "count(//book)", Want: 3.0},
		{Expr: "count(//book[@id])", Want: 2.0},
		{Expr: "sum(//price)", Want: 105.0},
		{Expr: "2 + 3 * 4", Want: 14.0},
		{Expr: "(2 + 3) * 4", Want: 20.0},
		{Expr: "7 mod 3", Want: 1.0},
		{Expr: "1 div 0", Want: math.Inf(1)},
		{Expr: "-1 div 0", Want: math.Inf(-1)},
		{Expr: "-(2)", Want: -2.0},
		{Expr: "10 > 2", Want: true},
		{Expr: "10 <= 2", Want: false},
		{Expr: "'a' = 'a'", Want: true},
		{Expr: "'a' != 'a'", Want: false},
		{Expr: "1 = '1'", Want: true},
		{Expr: "true() and false()", Want: false},
		{Expr: "true() or false()", Want: true},
		{Expr: "not(false())", Want: true},
		{Expr: "boolean(//book)", Want: true},
		{Expr: "boolean(//magazine)", Want: false},
		{Expr: "number('12.5')", Want: 12.5},
		{Expr: "number(.5)", Want: 0.5},
		{Expr: "floor(2.6)", Want: 2.0},
		{Expr: "ceiling(2.1)", Want: 3.0},
		{Expr: "round(2.5)", Want: 3.0},
		{Expr: "round(-2.5)", Want: -2.0},
		{Expr: "string(//book[1]/@id)", Want: "bk-1"},
		{Expr: "string(//book[4]/title)", Want: ""},
		{Expr: "name(//book[@id][1])", Want: "book"},
		{Expr: "local-name(//price)", Want: "price"},
		{Expr: "concat('a', 'b', 'c')", Want: "abc"},
		{Expr: "contains('hello', 'ell')", Want: true},
		{Expr: "starts-with('hello', 'he')", Want: true},
		{Expr: "substring('hello', 2, 3)", Want: "ell"},
		{Expr: "substring('12345', 1.5, 2.6)", Want: "234"},
		{Expr: "substring('12345', 2)", Want: "2345"},
		{Expr: "substring-before('1999/04/01', '/')", Want: "1999"},
		{Expr: "substring-after('1999/04/01', '/')", Want: "04/01"},
		{Expr: "string-length('hello')", Want: 5.0},
		{Expr: "normalize-space('  a   b  ')", Want: "a b"},
		{Expr: "translate('bar', 'abc', 'ABC')", Want: "BAr"},
		{Expr: "translate('--aaa--', 'abc-', 'ABC')", Want: "AAA"},
		{Expr: "string(1 div 0)", Want: "Infinity"},
		{Expr: "string(0 div 0)", Want: "NaN"},
		{Expr: "//book[1]/title = 'The Go Programming Language'", Want: true},
	}
	doc := parseDocument(t, library)
	for _, c := range tests {
		value, err := Evaluate(c.Expr, doc)
		if err != nil {
			t.Errorf("%s: fail to evaluate: %s", c.Expr, err)
			continue
		}
		if value != c.Want {
			t.Errorf("%s: value mismatched! want %v, got %v", c.Expr, c.Want, value)
		}
	}
}

func TestNumberNaN(t *testing.T) {
	doc := parseDocument(t, library)
	value, err := Evaluate("number('junk')", doc)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	f, ok := value.(float64)
	if !ok || !math.IsNaN(f) {
		t.Errorf("value mismatched! want NaN, got %v", value)
	}
}

func TestVariables(t *testing.T) {
	doc := parseDocument(t, library)
	e := New(WithVariable("threshold", 30.0))
	set, err := e.Find("//book[price > $threshold]/title", doc)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	want := []string{"The Go Programming Language", "Mastering Regular Expressions"}
	if diff := cmp.Diff(want, set.Values()); diff != "" {
		t.Errorf("nodes mismatched (-want +got):\n%s", diff)
	}

	_, err = e.Evaluate("$missing", doc)
	if !errors.Is(err, ErrUndefined) {
		t.Errorf("undefined variable should be reported, got %v", err)
	}
}

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:dc="http://purl.org/dc/elements/1.1/">
	<entry>
		<dc:title>first</dc:title>
		<title>second</title>
	</entry>
</feed>
`

func TestNamespaces(t *testing.T) {
	doc := parseDocument(t, feed)

	bound := New(WithNamespace("meta", "http://purl.org/dc/elements/1.1/"))
	set, err := bound.Find("//meta:title", doc)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	if diff := cmp.Diff([]string{"first"}, set.Values()); diff != "" {
		t.Errorf("bound prefix mismatched (-want +got):\n%s", diff)
	}

	set, err = Find("//dc:title", doc)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	if diff := cmp.Diff([]string{"first"}, set.Values()); diff != "" {
		t.Errorf("raw prefix mismatched (-want +got):\n%s", diff)
	}

	set, err = Find("//title", doc)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	if diff := cmp.Diff([]string{"first", "second"}, set.Values()); diff != "" {
		t.Errorf("unprefixed test mismatched (-want +got):\n%s", diff)
	}

	value, err := Evaluate("namespace-uri(//dc:title)", doc)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	if value != "http://purl.org/dc/elements/1.1/" {
		t.Errorf("namespace uri mismatched! got %v", value)
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		Expr string
		Err  error
	}{
		{Expr: "1 | //book", Err: ErrType},
		{Expr: "count(1)", Err: ErrType},
		{Expr: "sum('a')", Err: ErrType},
	}
	doc := parseDocument(t, library)
	for _, c := range tests {
		_, err := Evaluate(c.Expr, doc)
		if !errors.Is(err, c.Err) {
			t.Errorf("%s: error mismatched! want %v, got %v", c.Expr, c.Err, err)
		}
	}
	_, err := Find("count(//book)", doc)
	if !errors.Is(err, ErrType) {
		t.Errorf("scalar result should not satisfy Find, got %v", err)
	}
}
