package predicate

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedExpressionShape means an operand has the wrong kind
	// for its position, such as a comparison whose left side is not a
	// field.
	ErrUnsupportedExpressionShape = errors.New("unsupported expression shape")

	// ErrUnsupportedComparison means the operator has no semantics for
	// the value's type, such as ordering on booleans.
	ErrUnsupportedComparison = errors.New("unsupported comparison")

	// ErrUnsupportedMethod means a method call names something other
	// than contains, startswith or endswith.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrEmptyKeySet means a key lookup was requested with no keys.
	ErrEmptyKeySet = errors.New("empty key set")
)

// CompileError wraps a compile failure with the rendered subtree that
// caused it.
type CompileError struct {
	Expr    string
	Message string
	Err     error
}

func (e *CompileError) Error() string {
	if e.Expr == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Message)
	}
	return fmt.Sprintf("%v: %s (in %s)", e.Err, e.Message, e.Expr)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
