package xpath

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		Expr string
		Want string
	}{
		{
			Expr: "/",
			Want: "absolute-path()",
		},
		{
			Expr: "/a/b",
			Want: "absolute-path(axis(child, name(a)), axis(child, name(b)))",
		},
		{
			Expr: "//b",
			Want: "absolute-path(axis(descendant-or-self, kind(node)), axis(child, name(b)))",
		},
		{
			Expr: "a//b",
			Want: "relative-path(axis(child, name(a)), axis(descendant-or-self, kind(node)), axis(child, name(b)))",
		},
		{
			Expr: "a[@id][2]",
			Want: "relative-path(axis(child, name(a), predicate(relative-path(axis(attribute, name(id)))), predicate(number(2))))",
		},
		{
			Expr: ".",
			Want: "relative-path(axis(self, kind(node)))",
		},
		{
			Expr: "../b",
			Want: "relative-path(axis(parent, kind(node)), axis(child, name(b)))",
		},
		{
			Expr: "@href",
			Want: "relative-path(axis(attribute, name(href)))",
		},
		{
			Expr: "child::b",
			Want: "relative-path(axis(child, name(b)))",
		},
		{
			Expr: "child ::b",
			Want: "relative-path(axis(child, name(b)))",
		},
		{
			Expr: "ancestor-or-self::*",
			Want: "relative-path(axis(ancestor-or-self, wildcard()))",
		},
		{
			Expr: "ns:b",
			Want: "relative-path(axis(child, name(ns:b)))",
		},
		{
			Expr: "ns:*",
			Want: "relative-path(axis(child, wildcard(ns)))",
		},
		{
			Expr: "text()",
			Want: "relative-path(axis(child, kind(text)))",
		},
		{
			Expr: "processing-instruction('page')",
			Want: `relative-path(axis(child, kind(processing-instruction, literal("page"))))`,
		},
		{
			Expr: "1 + 2 * 3",
			Want: "add(number(1), multiply(number(2), number(3)))",
		},
		{
			Expr: "1 > 2 or 2 >= 2",
			Want: "or(greater-than(number(1), number(2)), greater-eq(number(2), number(2)))",
		},
		{
			Expr: "-a",
			Want: "negate(relative-path(axis(child, name(a))))",
		},
		{
			Expr: "a | b | c",
			Want: "union(relative-path(axis(child, name(a))), relative-path(axis(child, name(b))), relative-path(axis(child, name(c))))",
		},
		{
			Expr: "$v = 'x'",
			Want: `equal(variable(v), literal("x"))`,
		},
		{
			Expr: "count(//b)",
			Want: "call(count, absolute-path(axis(descendant-or-self, kind(node)), axis(child, name(b))))",
		},
		{
			Expr: "concat('a', 'b')",
			Want: `call(concat, literal("a"), literal("b"))`,
		},
		{
			Expr: "(//b)[1]",
			Want: "path(absolute-path(axis(descendant-or-self, kind(node)), axis(child, name(b))), predicate(number(1)))",
		},
		{
			Expr: "div div div",
			Want: "divide(relative-path(axis(child, name(div))), relative-path(axis(child, name(div))))",
		},
		{
			Expr: ".5 + 1.25",
			Want: "add(number(0.5), number(1.25))",
		},
	}
	for _, c := range tests {
		expr, err := Parse(c.Expr)
		if err != nil {
			t.Errorf("%s: fail to parse: %s", c.Expr, err)
			continue
		}
		if got := Debug(expr); got != c.Want {
			t.Errorf("%s: tree mismatched!", c.Expr)
			t.Logf("want: %s", c.Want)
			t.Logf("got:  %s", got)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"a[",
		"a[]",
		"a]",
		"foo(",
		"foo(,)",
		"//",
		"a b",
		"up::a",
		"ns:",
		"'unterminated",
		"a #",
		"$",
		"a\xffb",
	}
	for _, expr := range tests {
		_, err := Parse(expr)
		if err == nil {
			t.Errorf("%s: invalid expression parsed properly!", expr)
			continue
		}
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("%s: error should report a syntax problem, got %v", expr, err)
		}
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("a[")
	var syn SyntaxError
	if !errors.As(err, &syn) {
		t.Fatalf("error should carry the position, got %T", err)
	}
	if syn.Expr != "a[" {
		t.Errorf("expression mismatched! got %q", syn.Expr)
	}
	if syn.Column <= 0 {
		t.Errorf("column should be set, got %d", syn.Column)
	}
}
