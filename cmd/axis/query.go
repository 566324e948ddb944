package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/midbel/axis/xml"
	"github.com/midbel/axis/xpath"
	"github.com/midbel/cli"
)

var queryCmd = cli.Command{
	Name:    "query",
	Alias:   []string{"q", "exec"},
	Summary: "run an xpath query against xml documents",
	Handler: &QueryCmd{},
}

type QueryCmd struct {
	Quiet bool
	First bool
	Count bool
	Text  bool
	Limit int
	Depth int
	ParserOptions
}

const queryInfo = "%s: query took %s - %d nodes matching %q"

func (q QueryCmd) Run(args []string) error {
	var (
		set     = flag.NewFlagSet("query", flag.ContinueOnError)
		options []xpath.EngineOption
	)
	set.IntVar(&q.Limit, "limit", 0, "limit number of results returned by query")
	set.BoolVar(&q.Quiet, "quiet", false, "suppress output - default is to print the result nodes")
	set.BoolVar(&q.First, "first", false, "keep only the first matching node")
	set.BoolVar(&q.Count, "count", false, "print only the number of matching nodes")
	set.BoolVar(&q.Text, "text", false, "print only value of node")
	set.IntVar(&q.Depth, "print-depth", 0, "collapse elements nested deeper - zero prints whole subtrees")
	set.BoolVar(&q.KeepSpace, "keep-space", false, "keep whitespace only text nodes")
	set.BoolVar(&q.KeepEmpty, "keep-empty", false, "keep empty element")
	set.BoolVar(&q.OmitProlog, "omit-prolog", false, "omit xml prolog")
	set.Func("namespace", "bind prefix to namespace uri (prefix=uri)", func(value string) error {
		prefix, uri, ok := strings.Cut(value, "=")
		if !ok {
			return fmt.Errorf("%s: namespace binding should be given as prefix=uri", value)
		}
		options = append(options, xpath.WithNamespace(prefix, uri))
		return nil
	})
	set.Func("variable", "define variable (name=value)", func(value string) error {
		name, str, ok := strings.Cut(value, "=")
		if !ok {
			return fmt.Errorf("%s: variable should be given as name=value", value)
		}
		options = append(options, xpath.WithVariable(name, str))
		return nil
	})
	set.Func("config", "context configuration", func(file string) error {
		all, err := getEngineOptions(file)
		if err == nil {
			options = append(options, all...)
		}
		return err
	})
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() == 0 {
		return fmt.Errorf("no expression given")
	}
	engine := xpath.New(options...)
	query, err := engine.Compile(set.Arg(0))
	if err != nil {
		return err
	}
	files := set.Args()[1:]
	if len(files) == 0 {
		files = append(files, "-")
	}
	var total int
	for _, r := range q.collect(query, files) {
		if r.Err != nil {
			fmt.Fprintln(os.Stderr, r.Err)
			continue
		}
		matches := r.Matches
		if q.First && matches.Len() > 1 {
			matches = matches[:1]
		}
		if q.Limit > 0 && matches.Len() > q.Limit {
			matches = matches[:q.Limit]
		}
		total += matches.Len()
		if q.Count {
			fmt.Fprintf(os.Stdout, "%s: %d", r.File, matches.Len())
			fmt.Fprintln(os.Stdout)
			continue
		}
		if !q.Quiet {
			if q.Text {
				printValues(matches)
			} else {
				printNodes(matches, q.Depth)
			}
		}
		fmt.Fprintf(os.Stdout, queryInfo, r.File, r.Elapsed, matches.Len(), set.Arg(0))
		fmt.Fprintln(os.Stdout)
	}
	if total == 0 {
		return errFail
	}
	return nil
}

type queryResult struct {
	File    string
	Matches xpath.NodeSet
	Elapsed time.Duration
	Err     error
}

func (q QueryCmd) collect(query *xpath.Query, files []string) []queryResult {
	var list []queryResult
	run := func() {
		for doc, err := range iterDocuments(files, q.ParserOptions) {
			if err != nil {
				list = append(list, queryResult{Err: err})
				continue
			}
			now := time.Now()
			matches, err := query.Find(doc.Document)
			list = append(list, queryResult{
				File:    doc.File,
				Matches: matches,
				Elapsed: time.Since(now),
				Err:     err,
			})
		}
	}
	if manyInputs(files) {
		spin := NewSpinner()
		spin.SetMessage("running query")
		spin.Run(run)
	} else {
		run()
	}
	return list
}

func manyInputs(files []string) bool {
	if len(files) > 1 {
		return true
	}
	for _, f := range files {
		if s, err := os.Stat(f); err == nil && s.IsDir() {
			return true
		}
	}
	return false
}

func getEngineOptions(file string) ([]xpath.EngineOption, error) {
	doc, err := xml.ParseFile(file)
	if err != nil {
		return nil, err
	}
	var options []xpath.EngineOption
	ns, err := xpath.Find("/axis/namespace", doc)
	if err != nil {
		return nil, err
	}
	for i := range ns {
		el, ok := ns[i].(*xml.Element)
		if !ok {
			continue
		}
		prefix, ok := el.GetAttribute("prefix")
		if !ok {
			continue
		}
		options = append(options, xpath.WithNamespace(prefix, el.Value()))
	}
	vars, err := xpath.Find("/axis/variable", doc)
	if err != nil {
		return nil, err
	}
	for i := range vars {
		el, ok := vars[i].(*xml.Element)
		if !ok {
			continue
		}
		name, ok := el.GetAttribute("name")
		if !ok {
			continue
		}
		options = append(options, xpath.WithVariable(name, el.Value()))
	}
	return options, nil
}

func printValues(results xpath.NodeSet) {
	for i := range results {
		fmt.Fprintln(os.Stdout, results[i].Value())
	}
}

func printNodes(results xpath.NodeSet, depth int) {
	for i := range results {
		fmt.Fprintln(os.Stdout, xml.WriteNodeDepth(results[i], depth))
	}
}
