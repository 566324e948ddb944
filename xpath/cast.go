package xpath

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is what evaluating an expression produces: a NodeSet, a
// string, a float64 or a bool.
type Value any

// ToString converts a value to its string form. A node set converts to
// the string value of its first node, the empty string when the set is
// empty.
func ToString(value Value) (string, error) {
	switch v := value.(type) {
	case NodeSet:
		if v.Empty() {
			return "", nil
		}
		return v.First().Value(), nil
	case string:
		return v, nil
	case float64:
		return formatNumber(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("%w: %T can not be converted to string", ErrType, value)
	}
}

// ToNumber converts a value to a float. Text that does not parse as a
// number becomes NaN, never an error.
func ToNumber(value Value) (float64, error) {
	switch v := value.(type) {
	case NodeSet:
		str, _ := ToString(v)
		return parseNumber(str), nil
	case string:
		return parseNumber(v), nil
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %T can not be converted to number", ErrType, value)
	}
}

// ToBoolean converts a value to its truth: a non-empty node set, a
// non-empty string, a number that is neither zero nor NaN.
func ToBoolean(value Value) (bool, error) {
	switch v := value.(type) {
	case NodeSet:
		return !v.Empty(), nil
	case string:
		return v != "", nil
	case float64:
		return v != 0 && !math.IsNaN(v), nil
	case bool:
		return v, nil
	default:
		return false, fmt.Errorf("%w: %T can not be converted to boolean", ErrType, value)
	}
}

// Compatible coerces two operands to a common type for comparison.
// Node sets reduce to the string value of their first node first; then
// number wins over string, and string over boolean.
func Compatible(left, right Value) (Value, Value, error) {
	left = reduce(left)
	right = reduce(right)
	switch {
	case is[float64](left) || is[float64](right):
		return coerce(left, right, ToNumber)
	case is[string](left) || is[string](right):
		return coerce(left, right, ToString)
	case is[bool](left) || is[bool](right):
		return coerce(left, right, ToBoolean)
	default:
		return nil, nil, fmt.Errorf("%w: %T and %T can not be compared", ErrType, left, right)
	}
}

func reduce(value Value) Value {
	if set, ok := value.(NodeSet); ok {
		str, _ := ToString(set)
		return str
	}
	return value
}

func is[T any](value Value) bool {
	_, ok := value.(T)
	return ok
}

func coerce[T any](left, right Value, to func(Value) (T, error)) (Value, Value, error) {
	l, err := to(left)
	if err != nil {
		return nil, nil, err
	}
	r, err := to(right)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

// parseNumber accepts the number grammar of the query language: digits
// with an optional fraction and an optional leading minus. No exponent,
// no hex, no infinity names.
func parseNumber(str string) float64 {
	str = strings.TrimSpace(str)
	rest := strings.TrimPrefix(str, "-")
	if rest == "" || rest == "." {
		return math.NaN()
	}
	if strings.Trim(rest, "0123456789.") != "" || strings.Count(rest, ".") > 1 {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
