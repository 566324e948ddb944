package xpath

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/midbel/axis/xml"
)

type BuiltinFunc func(Context, []Value) (Value, error)

type builtin struct {
	MinArgs int
	MaxArgs int // -1 means variadic
	Call    BuiltinFunc
}

var builtins = map[string]builtin{
	"position":         {0, 0, callPosition},
	"last":             {0, 0, callLast},
	"count":            {1, 1, callCount},
	"name":             {0, 1, callName},
	"local-name":       {0, 1, callLocalName},
	"namespace-uri":    {0, 1, callNamespaceUri},
	"string":           {0, 1, callString},
	"number":           {0, 1, callNumber},
	"boolean":          {1, 1, callBoolean},
	"not":              {1, 1, callNot},
	"true":             {0, 0, callTrue},
	"false":            {0, 0, callFalse},
	"concat":           {2, -1, callConcat},
	"contains":         {2, 2, callContains},
	"starts-with":      {2, 2, callStartsWith},
	"substring":        {2, 3, callSubstring},
	"substring-before": {2, 2, callSubstringBefore},
	"substring-after":  {2, 2, callSubstringAfter},
	"string-length":    {0, 1, callStringLength},
	"normalize-space":  {0, 1, callNormalizeSpace},
	"translate":        {3, 3, callTranslate},
	"sum":              {1, 1, callSum},
	"floor":            {1, 1, callFloor},
	"ceiling":          {1, 1, callCeiling},
	"round":            {1, 1, callRound},
}

func callPosition(ctx Context, _ []Value) (Value, error) {
	return float64(ctx.Index), nil
}

func callLast(ctx Context, _ []Value) (Value, error) {
	return float64(ctx.Size), nil
}

func callCount(_ Context, args []Value) (Value, error) {
	set, ok := args[0].(NodeSet)
	if !ok {
		return nil, fmt.Errorf("%w: count wants a node set", ErrType)
	}
	return float64(set.Len()), nil
}

// argOrSelf gives the node the name family of functions operates on:
// the first node of the argument set, or the context node without
// argument. Nil when the argument set is empty.
func argOrSelf(ctx Context, args []Value) (xml.Node, error) {
	if len(args) == 0 {
		return ctx.Node, nil
	}
	set, ok := args[0].(NodeSet)
	if !ok {
		return nil, fmt.Errorf("%w: node set expected", ErrType)
	}
	return set.First(), nil
}

func callName(ctx Context, args []Value) (Value, error) {
	node, err := argOrSelf(ctx, args)
	if err != nil || node == nil {
		return "", err
	}
	return node.QualifiedName(), nil
}

func callLocalName(ctx Context, args []Value) (Value, error) {
	node, err := argOrSelf(ctx, args)
	if err != nil || node == nil {
		return "", err
	}
	return node.LocalName(), nil
}

func callNamespaceUri(ctx Context, args []Value) (Value, error) {
	node, err := argOrSelf(ctx, args)
	if err != nil || node == nil {
		return "", err
	}
	return node.Uri(), nil
}

func contextString(ctx Context, args []Value) (string, error) {
	if len(args) == 0 {
		if ctx.Node == nil {
			return "", nil
		}
		return ctx.Node.Value(), nil
	}
	return ToString(args[0])
}

func callString(ctx Context, args []Value) (Value, error) {
	str, err := contextString(ctx, args)
	return str, err
}

func callNumber(ctx Context, args []Value) (Value, error) {
	if len(args) == 0 {
		var str string
		if ctx.Node != nil {
			str = ctx.Node.Value()
		}
		return parseNumber(str), nil
	}
	return ToNumber(args[0])
}

func callBoolean(_ Context, args []Value) (Value, error) {
	ok, err := ToBoolean(args[0])
	return ok, err
}

func callNot(_ Context, args []Value) (Value, error) {
	ok, err := ToBoolean(args[0])
	return !ok, err
}

func callTrue(_ Context, _ []Value) (Value, error) {
	return true, nil
}

func callFalse(_ Context, _ []Value) (Value, error) {
	return false, nil
}

func callConcat(_ Context, args []Value) (Value, error) {
	var str strings.Builder
	for i := range args {
		s, err := ToString(args[i])
		if err != nil {
			return nil, err
		}
		str.WriteString(s)
	}
	return str.String(), nil
}

func callContains(_ Context, args []Value) (Value, error) {
	str, sub, err := stringPair(args)
	if err != nil {
		return nil, err
	}
	return strings.Contains(str, sub), nil
}

func callStartsWith(_ Context, args []Value) (Value, error) {
	str, prefix, err := stringPair(args)
	if err != nil {
		return nil, err
	}
	return strings.HasPrefix(str, prefix), nil
}

func callSubstring(_ Context, args []Value) (Value, error) {
	str, err := ToString(args[0])
	if err != nil {
		return nil, err
	}
	start, err := ToNumber(args[1])
	if err != nil {
		return nil, err
	}
	length := math.Inf(1)
	if len(args) > 2 {
		if length, err = ToNumber(args[2]); err != nil {
			return nil, err
		}
	}
	var (
		begin = roundHalfUp(start)
		end   = begin + roundHalfUp(length)
		res   []rune
	)
	for i, c := range []rune(str) {
		pos := float64(i + 1)
		if pos >= begin && pos < end {
			res = append(res, c)
		}
	}
	return string(res), nil
}

func callSubstringBefore(_ Context, args []Value) (Value, error) {
	str, sep, err := stringPair(args)
	if err != nil {
		return nil, err
	}
	before, _, ok := strings.Cut(str, sep)
	if !ok {
		return "", nil
	}
	return before, nil
}

func callSubstringAfter(_ Context, args []Value) (Value, error) {
	str, sep, err := stringPair(args)
	if err != nil {
		return nil, err
	}
	_, after, ok := strings.Cut(str, sep)
	if !ok {
		return "", nil
	}
	return after, nil
}

func callStringLength(ctx Context, args []Value) (Value, error) {
	str, err := contextString(ctx, args)
	if err != nil {
		return nil, err
	}
	return float64(utf8.RuneCountInString(str)), nil
}

func callNormalizeSpace(ctx Context, args []Value) (Value, error) {
	str, err := contextString(ctx, args)
	if err != nil {
		return nil, err
	}
	return strings.Join(strings.Fields(str), " "), nil
}

func callTranslate(_ Context, args []Value) (Value, error) {
	str, err := ToString(args[0])
	if err != nil {
		return nil, err
	}
	from, err := ToString(args[1])
	if err != nil {
		return nil, err
	}
	to, err := ToString(args[2])
	if err != nil {
		return nil, err
	}
	var (
		replace = make(map[rune]rune)
		drop    = make(map[rune]struct{})
		dst     = []rune(to)
	)
	for i, r := range []rune(from) {
		_, dup := replace[r]
		if _, ok := drop[r]; ok || dup {
			continue
		}
		if i < len(dst) {
			replace[r] = dst[i]
		} else {
			drop[r] = struct{}{}
		}
	}
	var buf strings.Builder
	for _, r := range str {
		if _, ok := drop[r]; ok {
			continue
		}
		if x, ok := replace[r]; ok {
			r = x
		}
		buf.WriteRune(r)
	}
	return buf.String(), nil
}

func callSum(_ Context, args []Value) (Value, error) {
	set, ok := args[0].(NodeSet)
	if !ok {
		return nil, fmt.Errorf("%w: sum wants a node set", ErrType)
	}
	var sum float64
	for _, n := range set {
		sum += parseNumber(n.Value())
	}
	return sum, nil
}

func callFloor(_ Context, args []Value) (Value, error) {
	f, err := ToNumber(args[0])
	if err != nil {
		return nil, err
	}
	return math.Floor(f), nil
}

func callCeiling(_ Context, args []Value) (Value, error) {
	f, err := ToNumber(args[0])
	if err != nil {
		return nil, err
	}
	return math.Ceil(f), nil
}

func callRound(_ Context, args []Value) (Value, error) {
	f, err := ToNumber(args[0])
	if err != nil {
		return nil, err
	}
	return roundHalfUp(f), nil
}

func stringPair(args []Value) (string, string, error) {
	left, err := ToString(args[0])
	if err != nil {
		return "", "", err
	}
	right, err := ToString(args[1])
	if err != nil {
		return "", "", err
	}
	return left, right, nil
}

// roundHalfUp rounds to the nearest integer with halves going up, the
// rounding the query language defines. NaN and infinities pass through.
func roundHalfUp(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	return math.Floor(f + 0.5)
}
