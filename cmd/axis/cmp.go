package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/midbel/axis/xml"
	"github.com/midbel/cli"
)

var compareCmd = cli.Command{
	Name:    "compare",
	Alias:   []string{"cmp"},
	Summary: "compare two xml documents",
	Handler: &CompareCmd{},
}

type CompareCmd struct {
	Unordered bool
	Quiet     bool
}

func (c *CompareCmd) Run(args []string) error {
	set := flag.NewFlagSet("compare", flag.ContinueOnError)
	set.BoolVar(&c.Unordered, "unordered", false, "compare sibling elements regardless of their order")
	set.BoolVar(&c.Quiet, "quiet", false, "suppress output - only set the exit status")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() != 2 {
		return fmt.Errorf("two documents expected, got %d", set.NArg())
	}
	mode := xml.CmpOrdered
	if c.Unordered {
		mode = xml.CmpUnordered
	}
	res, err := xml.CompareFiles(set.Arg(0), set.Arg(1), mode)
	if err != nil && !errors.Is(err, xml.ErrCompare) {
		return err
	}
	if !res.Match {
		if !c.Quiet {
			fmt.Fprintf(os.Stderr, "%s and %s diverge", set.Arg(0), set.Arg(1))
			fmt.Fprintln(os.Stderr)
			if res.Source != nil {
				fmt.Fprintln(os.Stderr, xml.WriteNodeDepth(res.Source, 1))
			}
			if res.Target != nil {
				fmt.Fprintln(os.Stderr, xml.WriteNodeDepth(res.Target, 1))
			}
		}
		return errFail
	}
	if !c.Quiet {
		fmt.Fprintf(os.Stdout, "%s and %s match", set.Arg(0), set.Arg(1))
		fmt.Fprintln(os.Stdout)
	}
	return nil
}
