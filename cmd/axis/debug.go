package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/midbel/axis/xpath"
	"github.com/midbel/cli"
)

var debugCmd = cli.Command{
	Name:    "debug",
	Alias:   []string{"ast"},
	Summary: "print the syntax tree of an xpath expression",
	Handler: &DebugCmd{},
}

type DebugCmd struct {
	Trace bool
}

func (d DebugCmd) Run(args []string) error {
	set := flag.NewFlagSet("debug", flag.ContinueOnError)
	set.BoolVar(&d.Trace, "trace", false, "trace parser rules to stderr")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() == 0 {
		return fmt.Errorf("no expression given")
	}
	p := xpath.NewParser(set.Arg(0))
	if d.Trace {
		p.Tracer = xpath.TraceStderr()
	}
	expr, err := p.Parse()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, xpath.Debug(expr))
	return nil
}
