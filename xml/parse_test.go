package xml_test

import (
	"os"
	"strings"
	"testing"

	"github.com/midbel/axis/xml"
)

func TestParseValidDocument(t *testing.T) {
	r, err := os.Open("testdata/sample.xml")
	if err != nil {
		t.Fatalf("fail to open sample file: %s", err)
	}
	defer r.Close()

	doc, err := xml.NewParser(r).Parse()
	if err != nil {
		t.Fatalf("fail to parse sample file: %s", err)
	}
	root := doc.Root()
	if root == nil {
		t.Fatalf("document without root element")
	}
	if root.LocalName() != "catalog" {
		t.Errorf("root name mismatched! want %s, got %s", "catalog", root.LocalName())
	}
	if got, _ := root.GetAttribute("version"); got != "2" {
		t.Errorf("attribute mismatched! want %s, got %s", "2", got)
	}
	if got := len(root.Nodes()); got != 3 {
		t.Errorf("children mismatched! want %d, got %d", 3, got)
	}
	book, ok := root.Nodes()[0].(*xml.Element)
	if !ok {
		t.Fatalf("element expected, got %T", root.Nodes()[0])
	}
	title, ok := book.Nodes()[0].(*xml.Element)
	if !ok {
		t.Fatalf("element expected, got %T", book.Nodes()[0])
	}
	if title.QualifiedName() != "dc:title" {
		t.Errorf("qualified name mismatched! want %s, got %s", "dc:title", title.QualifiedName())
	}
	if got := title.Uri(); got != "http://purl.org/dc/elements/1.1/" {
		t.Errorf("namespace uri not resolved from root, got %s", got)
	}
	author, ok := book.Nodes()[1].(*xml.Element)
	if !ok {
		t.Fatalf("element expected, got %T", book.Nodes()[1])
	}
	if got := author.Value(); got != "Donovan & Kernighan" {
		t.Errorf("entity not decoded! want %s, got %s", "Donovan & Kernighan", got)
	}
	summary, ok := book.Nodes()[3].(*xml.Element)
	if !ok {
		t.Fatalf("element expected, got %T", book.Nodes()[3])
	}
	if got := summary.Value(); got != "praised & <quoted> everywhere" {
		t.Errorf("cdata mangled! want %q, got %q", "praised & <quoted> everywhere", got)
	}
}

const prolog = `<?xml version="1.0" encoding="UTF-8"?>`

func TestParseInvalidDocument(t *testing.T) {
	data := []struct {
		Xml        string
		Cause      string
		OmitProlog bool
	}{
		{
			Xml:   ``,
			Cause: "document without root element",
		},
		{
			Xml:        `<root></root>`,
			Cause:      "document without prolog",
			OmitProlog: true,
		},
		{
			Xml:        `<?xml version="1.1"?><root/>`,
			Cause:      "unsupported version",
			OmitProlog: true,
		},
		{
			Xml:        `<?xml version="1.0" encoding="latin-1"?><root/>`,
			Cause:      "unsupported encoding",
			OmitProlog: true,
		},
		{
			Xml:   `<root empty-attr></root>`,
			Cause: "attribute without value",
		},
		{
			Xml:   `<root id="id-1" id="id-2"></root>`,
			Cause: "duplicate attribute",
		},
		{
			Xml:   `<root><a></b></root>`,
			Cause: "closing element mismatched",
		},
		{
			Xml:   `<ns:root></root>`,
			Cause: "closing element without namespace",
		},
		{
			Xml:   `<root>`,
			Cause: "closing element missing",
		},
		{
			Xml:   `<root></root>trailing`,
			Cause: "text after root element",
		},
		{
			Xml:   `<root/><extra/>`,
			Cause: "second root element",
		},
	}
	for _, d := range data {
		if !d.OmitProlog {
			d.Xml = prolog + d.Xml
		}
		str := strings.NewReader(d.Xml)
		_, err := xml.NewParser(str).Parse()
		if err == nil {
			t.Errorf("%s: invalid document parsed properly!", d.Cause)
		}
	}
}

func TestParseOmitProlog(t *testing.T) {
	p := xml.NewParser(strings.NewReader(`<root><a/></root>`))
	p.OmitProlog = true
	doc, err := p.Parse()
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	if doc.Root().LocalName() != "root" {
		t.Errorf("root name mismatched! want %s, got %s", "root", doc.Root().LocalName())
	}
}

func TestParseDoctype(t *testing.T) {
	data := []string{
		`<!DOCTYPE catalog><catalog><book/></catalog>`,
		`<!DOCTYPE catalog SYSTEM "catalog.dtd"><catalog><book/></catalog>`,
		`<!DOCTYPE catalog [ <!ENTITY publisher "addison"> ]><catalog><book/></catalog>`,
		`<!-- generated --><!DOCTYPE catalog><catalog><book/></catalog>`,
	}
	for _, d := range data {
		doc, err := xml.NewParser(strings.NewReader(prolog + d)).Parse()
		if err != nil {
			t.Errorf("%s: fail to parse document: %s", d, err)
			continue
		}
		if doc.Root().LocalName() != "catalog" {
			t.Errorf("root name mismatched! want %s, got %s", "catalog", doc.Root().LocalName())
		}
	}
	str := strings.NewReader(prolog + `<!doctype catalog><catalog/>`)
	if _, err := xml.NewParser(str).Parse(); err == nil {
		t.Errorf("lowercase doctype parsed properly!")
	}
}

func TestParseMixedContent(t *testing.T) {
	data := []struct {
		Xml  string
		Want []string
	}{
		{
			Xml:  `<p>one<br/>two</p>`,
			Want: []string{"one", "", "two"},
		},
		{
			Xml:  `<p>one<!--note-->two</p>`,
			Want: []string{"one", "note", "two"},
		},
		{
			Xml:  `<p>one<?target do?>two</p>`,
			Want: []string{"one", "do", "two"},
		},
		{
			Xml:  `<p>one<![CDATA[<raw>]]>two</p>`,
			Want: []string{"one", "<raw>", "two"},
		},
	}
	for _, d := range data {
		doc, err := xml.ParseString(prolog + d.Xml)
		if err != nil {
			t.Errorf("%s: fail to parse document: %s", d.Xml, err)
			continue
		}
		nodes := doc.Root().Nodes()
		if len(nodes) != len(d.Want) {
			t.Errorf("%s: children mismatched! want %d, got %d", d.Xml, len(d.Want), len(nodes))
			continue
		}
		for i := range nodes {
			if got := nodes[i].Value(); got != d.Want[i] {
				t.Errorf("%s: child %d mismatched! want %q, got %q", d.Xml, i, d.Want[i], got)
			}
		}
	}
}

func TestParseAttributeSpacing(t *testing.T) {
	doc, err := xml.ParseString(prolog + `<root a = "1" b= "2" c ="3"/>`)
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	root := doc.Root()
	for _, d := range []struct {
		Attr string
		Want string
	}{
		{Attr: "a", Want: "1"},
		{Attr: "b", Want: "2"},
		{Attr: "c", Want: "3"},
	} {
		if got, ok := root.GetAttribute(d.Attr); !ok || got != d.Want {
			t.Errorf("%s: attribute mismatched! want %s, got %s", d.Attr, d.Want, got)
		}
	}
}

func TestParseEpilog(t *testing.T) {
	doc, err := xml.ParseString(prolog + `<root/>
<!--done--><?audit ok?>`)
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	if got := len(doc.Nodes()); got != 3 {
		t.Errorf("document nodes mismatched! want %d, got %d", 3, got)
	}
	if doc.Root() == nil || doc.Root().LocalName() != "root" {
		t.Errorf("root element not found before the epilog")
	}
}

func TestParseTrimSpace(t *testing.T) {
	const str = `<root> <a/> </root>`

	p := xml.NewParser(strings.NewReader(prolog + str))
	doc, err := p.Parse()
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	if got := len(doc.Root().Nodes()); got != 1 {
		t.Errorf("blank text should be dropped! want %d node, got %d", 1, got)
	}

	p = xml.NewParser(strings.NewReader(prolog + str))
	p.TrimSpace = false
	doc, err = p.Parse()
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	if got := len(doc.Root().Nodes()); got != 3 {
		t.Errorf("blank text should be kept! want %d nodes, got %d", 3, got)
	}
}

func TestParseMaxDepth(t *testing.T) {
	p := xml.NewParser(strings.NewReader(prolog + `<a><b><c/></b></a>`))
	p.MaxDepth = 2
	if _, err := p.Parse(); err == nil {
		t.Errorf("document deeper than the limit parsed properly!")
	}
}
