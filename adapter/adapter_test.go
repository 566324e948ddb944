package adapter_test

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/google/go-cmp/cmp"
	"github.com/midbel/axis/adapter"
	"github.com/midbel/axis/xml"
	"github.com/midbel/axis/xpath"
)

const library = `<?xml version="1.0" encoding="UTF-8"?><library><book id="bk-1"><title>The Go Programming Language</title></book><book id="bk-2"><title>Programming Erlang</title></book></library>`

func parseDocument(t *testing.T, doc string) *etree.Document {
	t.Helper()
	tree := etree.NewDocument()
	if err := tree.ReadFromString(doc); err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	return tree
}

func TestFind(t *testing.T) {
	root := adapter.FromDocument(parseDocument(t, library))
	data := []struct {
		Expr string
		Want []string
	}{
		{
			Expr: "//book/title",
			Want: []string{"The Go Programming Language", "Programming Erlang"},
		},
		{
			Expr: "//book[@id='bk-2']/title",
			Want: []string{"Programming Erlang"},
		},
		{
			Expr: "/library/book[2]/@id",
			Want: []string{"bk-2"},
		},
		{
			Expr: "//title/..",
			Want: []string{"The Go Programming Language", "Programming Erlang"},
		},
		{
			Expr: "//magazine",
			Want: nil,
		},
	}
	for _, d := range data {
		set, err := xpath.Find(d.Expr, root)
		if err != nil {
			t.Errorf("%s: unexpected error: %s", d.Expr, err)
			continue
		}
		if diff := cmp.Diff(d.Want, set.Values()); diff != "" {
			t.Errorf("%s: nodes mismatched (-want +got):\n%s", d.Expr, diff)
		}
	}
}

func TestScalars(t *testing.T) {
	root := adapter.FromDocument(parseDocument(t, library))
	data := []struct {
		Expr string
		Want xpath.Value
	}{
		{
			Expr: "count(//book)",
			Want: 2.0,
		},
		{
			Expr: "name(//book/..)",
			Want: "library",
		},
		{
			Expr: "string(//book[1]/@id)",
			Want: "bk-1",
		},
		{
			Expr: "count(//book[starts-with(@id, 'bk')])",
			Want: 2.0,
		},
	}
	for _, d := range data {
		got, err := xpath.Evaluate(d.Expr, root)
		if err != nil {
			t.Errorf("%s: unexpected error: %s", d.Expr, err)
			continue
		}
		if got != d.Want {
			t.Errorf("%s: result mismatched! want %v, got %v", d.Expr, d.Want, got)
		}
	}
}

func TestKindTests(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?><doc><!--note--><?page break?><p>one</p><p><![CDATA[two]]></p></doc>`

	root := adapter.FromDocument(parseDocument(t, doc))
	data := []struct {
		Expr string
		Want xpath.Value
	}{
		{
			Expr: "count(//comment())",
			Want: 1.0,
		},
		{
			Expr: "count(//processing-instruction('page'))",
			Want: 1.0,
		},
		{
			Expr: "count(//processing-instruction('other'))",
			Want: 0.0,
		},
		{
			Expr: "count(//p/text())",
			Want: 2.0,
		},
		{
			Expr: "string(//p[2])",
			Want: "two",
		},
	}
	for _, d := range data {
		got, err := xpath.Evaluate(d.Expr, root)
		if err != nil {
			t.Errorf("%s: unexpected error: %s", d.Expr, err)
			continue
		}
		if got != d.Want {
			t.Errorf("%s: result mismatched! want %v, got %v", d.Expr, d.Want, got)
		}
	}
}

func TestNamespaces(t *testing.T) {
	const feed = `<?xml version="1.0" encoding="UTF-8"?><entry xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>first</dc:title><title>second</title></entry>`

	root := adapter.FromDocument(parseDocument(t, feed))
	e := xpath.New(xpath.WithNamespace("x", "http://purl.org/dc/elements/1.1/"))
	set, err := e.Find("//x:title", root)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	want := []string{"first"}
	if diff := cmp.Diff(want, set.Values()); diff != "" {
		t.Errorf("nodes mismatched (-want +got):\n%s", diff)
	}

	got, err := xpath.Evaluate("namespace-uri(//dc:title)", root)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	if got != "http://purl.org/dc/elements/1.1/" {
		t.Errorf("uri mismatched! want %s, got %v", "http://purl.org/dc/elements/1.1/", got)
	}
}

func TestDocumentOrder(t *testing.T) {
	tree := parseDocument(t, library)
	var (
		doc   = adapter.FromDocument(tree)
		root  = doc.Nodes()[0]
		first = root.Nodes()[0]
		last  = root.Nodes()[1]
		attr  = first.Attributes()[0]
	)
	if !xml.Before(root, first) {
		t.Errorf("parent should come before its children")
	}
	if !xml.Before(attr, first.Nodes()[0]) {
		t.Errorf("attribute should come before the element children")
	}
	if !xml.Before(first, last) {
		t.Errorf("siblings out of order")
	}
	if first.Identity() == last.Identity() {
		t.Errorf("twin elements should have distinct identities")
	}
	if other := adapter.FromElement(tree.Root()); other != root {
		t.Errorf("wrappers of the same element should compare equal")
	}
}

func TestWhitespaceKept(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?><a> <b/> </a>`

	root := adapter.FromDocument(parseDocument(t, doc))
	got, err := xpath.Evaluate("count(/a/node())", root)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	if got != 3.0 {
		t.Errorf("blank text should be bridged as is! want %v nodes, got %v", 3.0, got)
	}
}

func TestLiveTree(t *testing.T) {
	tree := parseDocument(t, library)
	root := adapter.FromDocument(tree)

	count, err := xpath.Evaluate("count(//book)", root)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	if count != 2.0 {
		t.Fatalf("count mismatched! want %v, got %v", 2.0, count)
	}

	el := tree.Root().CreateElement("book")
	el.CreateAttr("id", "bk-3")

	count, err = xpath.Evaluate("count(//book)", root)
	if err != nil {
		t.Fatalf("fail to evaluate: %s", err)
	}
	if count != 3.0 {
		t.Errorf("new element should be visible! want %v, got %v", 3.0, count)
	}
}
