package main

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/midbel/axis/xml"
)

var ErrDocument = errors.New("bad xml document")

type ParserOptions struct {
	KeepSpace  bool
	KeepEmpty  bool
	OmitProlog bool
}

type WriterOptions struct {
	NoProlog  bool
	NoComment bool
	Compact   bool
	Indent    string
}

type Document struct {
	File string
	*xml.Document
}

func iterDocuments(files []string, options ParserOptions) iter.Seq2[*Document, error] {
	parse := func(file string) (*Document, error) {
		doc, err := parseDocument(file, options)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, ErrDocument)
		}
		d := Document{
			File:     file,
			Document: doc,
		}
		return &d, nil
	}

	fn := func(yield func(*Document, error) bool) {
		for _, f := range files {
			if s, err := os.Stat(f); err == nil && s.IsDir() {
				es, err := os.ReadDir(f)
				if err != nil {
					yield(nil, err)
					return
				}
				for _, e := range es {
					doc, err := parse(filepath.Join(f, e.Name()))
					if !yield(doc, err) {
						return
					}
				}
			} else {
				doc, err := parse(f)
				if !yield(doc, err) {
					return
				}
			}
		}
	}
	return fn
}

func parseDocument(file string, options ParserOptions) (*xml.Document, error) {
	r, err := openFile(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	p := xml.NewParser(r)
	p.TrimSpace = !options.KeepSpace
	p.KeepEmpty = options.KeepEmpty
	p.OmitProlog = options.OmitProlog
	return p.Parse()
}

func writeDocument(doc *xml.Document, file string, options WriterOptions) error {
	if doc == nil {
		return fmt.Errorf("no document to be written")
	}
	var w io.Writer = os.Stdout
	if file != "" {
		f, err := os.Create(file)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	ws := xml.NewWriter(w)
	if options.Indent != "" {
		ws.Indent = options.Indent
	}
	if options.NoProlog {
		ws.WriterOptions |= xml.OptionNoProlog
	}
	if options.NoComment {
		ws.WriterOptions |= xml.OptionNoComment
	}
	if options.Compact {
		ws.WriterOptions |= xml.OptionCompact
	}
	return ws.Write(doc)
}

func openFile(file string) (io.ReadCloser, error) {
	if file == "" || file == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	u, err := url.Parse(file)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequest(http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("accept", "text/xml")
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != 200 {
			res.Body.Close()
			return nil, fmt.Errorf("%s: fail to retrieve remote file", file)
		}
		return res.Body, nil
	default:
		return os.Open(file)
	}
}
