package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/midbel/axis/xpath"
)

const prolog = `<?xml version="1.0" encoding="UTF-8"?>`

func TestParseDocumentOptions(t *testing.T) {
	file := writeFile(t, "sample.xml", prolog+`<root> <a/> </root>`)

	doc, err := parseDocument(file, ParserOptions{})
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	if got := len(doc.Root().Nodes()); got != 1 {
		t.Errorf("nodes mismatched! want %d, got %d", 1, got)
	}

	doc, err = parseDocument(file, ParserOptions{KeepSpace: true})
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	if got := len(doc.Root().Nodes()); got != 3 {
		t.Errorf("nodes mismatched! want %d, got %d", 3, got)
	}
}

func TestWriteDocument(t *testing.T) {
	doc, err := parseDocument(writeFile(t, "in.xml", prolog+`<root><a>x</a></root>`), ParserOptions{})
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	out := filepath.Join(t.TempDir(), "out.xml")
	options := WriterOptions{
		Compact:  true,
		NoProlog: true,
	}
	if err := writeDocument(doc, out, options); err != nil {
		t.Fatalf("fail to write document: %s", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("fail to read document back: %s", err)
	}
	if want := `<root><a>x</a></root>`; string(got) != want {
		t.Errorf("document mismatched! want %s, got %s", want, got)
	}
}

func TestIterDocuments(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"one.xml": prolog + `<a/>`,
		"two.xml": prolog + `<b/>`,
		"bad.xml": `<a><b></a>`,
	}
	for n, c := range files {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(c), 0o644); err != nil {
			t.Fatalf("fail to write file: %s", err)
		}
	}
	var ok, bad int
	for doc, err := range iterDocuments([]string{dir}, ParserOptions{}) {
		if err != nil {
			if !errors.Is(err, ErrDocument) {
				t.Errorf("unexpected error: %s", err)
			}
			bad++
			continue
		}
		if doc.File == "" || doc.Root() == nil {
			t.Errorf("document not loaded properly: %+v", doc)
		}
		ok++
	}
	if ok != 2 || bad != 1 {
		t.Errorf("documents mismatched! want %d good and %d bad, got %d and %d", 2, 1, ok, bad)
	}
}

func TestManyInputs(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, "only.xml", prolog+`<a/>`)
	data := []struct {
		Files []string
		Want  bool
	}{
		{Files: []string{file}, Want: false},
		{Files: []string{file, file}, Want: true},
		{Files: []string{dir}, Want: true},
	}
	for _, d := range data {
		if got := manyInputs(d.Files); got != d.Want {
			t.Errorf("%v: mismatched! want %t, got %t", d.Files, d.Want, got)
		}
	}
}

func TestGetEngineOptions(t *testing.T) {
	config := writeFile(t, "config.xml", prolog+`<axis>
<namespace prefix="dc">http://purl.org/dc/elements/1.1/</namespace>
<variable name="limit">10</variable>
</axis>`)
	options, err := getEngineOptions(config)
	if err != nil {
		t.Fatalf("fail to load configuration: %s", err)
	}
	if len(options) != 2 {
		t.Fatalf("options mismatched! want %d, got %d", 2, len(options))
	}
	doc, err := parseDocument(writeFile(t, "doc.xml", prolog+`<r xmlns:meta="http://purl.org/dc/elements/1.1/"><meta:t>go</meta:t></r>`), ParserOptions{})
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	engine := xpath.New(options...)
	list, err := engine.Find("//dc:t", doc)
	if err != nil {
		t.Fatalf("fail to run query: %s", err)
	}
	if list.Len() != 1 {
		t.Errorf("nodes mismatched! want %d, got %d", 1, list.Len())
	}
	value, err := engine.Evaluate("$limit", doc)
	if err != nil {
		t.Fatalf("fail to resolve variable: %s", err)
	}
	if value != "10" {
		t.Errorf("variable mismatched! want %s, got %v", "10", value)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("fail to write file: %s", err)
	}
	return file
}
