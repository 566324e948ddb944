package main

import (
	"flag"

	"github.com/midbel/cli"
)

var formatCmd = cli.Command{
	Name:    "format",
	Alias:   []string{"fmt"},
	Summary: "rewrite an xml document through the formatter",
	Handler: &FormatCmd{},
}

type FormatCmd struct {
	OutFile string
	WriterOptions
	ParserOptions
}

func (f *FormatCmd) Run(args []string) error {
	set := flag.NewFlagSet("format", flag.ContinueOnError)

	set.BoolVar(&f.NoProlog, "no-prolog", false, "don't write the xml prolog into the output document")
	set.BoolVar(&f.NoComment, "no-comment", false, "don't write the comments present in the input document")
	set.BoolVar(&f.Compact, "compact", false, "write compact output")
	set.StringVar(&f.Indent, "indent", "", "indent nested elements with the given string")
	set.BoolVar(&f.KeepSpace, "keep-space", false, "keep whitespace only text nodes")
	set.BoolVar(&f.KeepEmpty, "keep-empty", false, "keep empty element")
	set.BoolVar(&f.OmitProlog, "omit-prolog", false, "omit xml prolog")
	set.StringVar(&f.OutFile, "f", "", "specify the path to the file where the document will be written")

	if err := set.Parse(args); err != nil {
		return err
	}

	doc, err := parseDocument(set.Arg(0), f.ParserOptions)
	if err != nil {
		return err
	}
	return writeDocument(doc, f.OutFile, f.WriterOptions)
}
