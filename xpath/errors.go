package xpath

import (
	"errors"
	"fmt"
)

var (
	ErrSyntax      = errors.New("invalid syntax")
	ErrType        = errors.New("invalid type")
	ErrAxis        = errors.New("axis not supported")
	ErrFunction    = errors.New("unknown function")
	ErrArgument    = errors.New("invalid number of argument(s)")
	ErrUndefined   = errors.New("undefined variable")
	ErrImplemented = errors.New("unsupported expression")
)

// SyntaxError rejects an input expression. It is always recoverable by the
// caller and keeps the position of the offending token.
type SyntaxError struct {
	Expr  string
	Cause string
	Position
}

func syntaxError(expr, cause string, pos Position) error {
	return SyntaxError{
		Expr:     expr,
		Cause:    cause,
		Position: pos,
	}
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s at %d:%d", e.Expr, e.Cause, e.Line, e.Column)
}

func (e SyntaxError) Unwrap() error {
	return ErrSyntax
}
