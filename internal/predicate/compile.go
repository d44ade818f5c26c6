package predicate

import (
	"fmt"

	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/queryir"
)

var compareOps = map[queryir.BinaryOp]CompareOp{
	queryir.OpEq: Eq,
	queryir.OpNe: Ne,
	queryir.OpGt: Gt,
	queryir.OpLt: Lt,
	queryir.OpGe: Ge,
	queryir.OpLe: Le,
}

var patternKinds = map[queryir.Method]PatternKind{
	queryir.MethodContains:   Contains,
	queryir.MethodStartsWith: StartsWith,
	queryir.MethodEndsWith:   EndsWith,
}

// Compile turns an expression tree into a Predicate.
//
// Literal coercion failures surface as *ir.LiteralError; shape, operator
// and method failures as *CompileError wrapping one of this package's
// sentinels. Field names are normalized with queryir.NormalizeField.
//
// Compile is a pure function: compiling the same tree twice yields
// predicates that agree on every row.
func Compile(n queryir.Node) (Predicate, error) {
	switch node := n.(type) {
	case queryir.Literal, queryir.FieldRef:
		// Only meaningful inside a comparison or method call.
		return True{}, nil
	case queryir.Unary:
		return compileUnary(node)
	case queryir.Binary:
		return compileBinary(node)
	case queryir.MethodCall:
		return compileMethod(node)
	case nil:
		return nil, shapeError(n, "missing expression")
	default:
		return nil, shapeError(n, fmt.Sprintf("unknown node type %T", n))
	}
}

func compileUnary(u queryir.Unary) (Predicate, error) {
	operand, err := Compile(u.Operand)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case queryir.OpNot:
		return Not(operand), nil
	case queryir.OpMinus:
		// A sign has no predicate effect of its own.
		return operand, nil
	}
	return nil, shapeError(u, fmt.Sprintf("unknown unary operator %q", u.Op))
}

func compileBinary(b queryir.Binary) (Predicate, error) {
	switch {
	case b.Op.IsLogical():
		left, err := Compile(b.Left)
		if err != nil {
			return nil, err
		}
		right, err := Compile(b.Right)
		if err != nil {
			return nil, err
		}
		if b.Op == queryir.OpAnd {
			return And(left, right), nil
		}
		return Or(left, right), nil

	case b.Op == queryir.OpIn:
		return compileIn(b)

	case b.Op.IsComparison():
		return compileComparison(b)
	}
	return nil, shapeError(b, fmt.Sprintf("unknown binary operator %q", b.Op))
}

func compileIn(b queryir.Binary) (Predicate, error) {
	field, ok := b.Left.(queryir.FieldRef)
	if !ok {
		return nil, shapeError(b, "in requires a field reference on the left")
	}
	values := make([]ir.Value, 0, len(b.Values))
	for _, candidate := range b.Values {
		lit, ok := candidate.(queryir.Literal)
		if !ok {
			return nil, shapeError(b, "in candidates must be literals")
		}
		v, err := ir.Coerce(lit.Text, false)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return Membership{Field: queryir.NormalizeField(field.Path), Values: values}, nil
}

func compileComparison(b queryir.Binary) (Predicate, error) {
	field, negate, ok := comparisonField(b.Left)
	if !ok {
		return nil, shapeError(b, "comparison requires a field reference on the left")
	}
	lit, ok := b.Right.(queryir.Literal)
	if !ok {
		return nil, shapeError(b, "comparison requires a literal on the right")
	}
	value, err := ir.Coerce(lit.Text, negate)
	if err != nil {
		return nil, err
	}

	op := compareOps[b.Op]
	if op.Ordering() && !value.Kind().Ordered() {
		return nil, &CompileError{
			Expr:    queryir.Format(b),
			Message: fmt.Sprintf("%s is not defined for %s values", b.Op, value.Kind()),
			Err:     ErrUnsupportedComparison,
		}
	}
	return Comparison{Field: queryir.NormalizeField(field.Path), Op: op, Value: value}, nil
}

// comparisonField unwraps the left operand of a comparison: a field, or
// a field under one minus sign, which negates the literal instead.
func comparisonField(n queryir.Node) (queryir.FieldRef, bool, bool) {
	switch left := n.(type) {
	case queryir.FieldRef:
		return left, false, true
	case queryir.Unary:
		if field, ok := left.Operand.(queryir.FieldRef); ok && left.Op == queryir.OpMinus {
			return field, true, true
		}
	}
	return queryir.FieldRef{}, false, false
}

func compileMethod(m queryir.MethodCall) (Predicate, error) {
	kind, ok := patternKinds[m.Name]
	if !ok {
		return nil, &CompileError{
			Expr:    queryir.Format(m),
			Message: fmt.Sprintf("method %q", m.Name),
			Err:     ErrUnsupportedMethod,
		}
	}
	if len(m.Args) != 2 {
		return nil, shapeError(m, fmt.Sprintf("%s takes 2 arguments, got %d", m.Name, len(m.Args)))
	}
	field, ok := m.Args[0].(queryir.FieldRef)
	if !ok {
		return nil, shapeError(m, "first argument must be a field reference")
	}
	lit, ok := m.Args[1].(queryir.Literal)
	if !ok {
		return nil, shapeError(m, "second argument must be a literal")
	}
	value, err := ir.Coerce(lit.Text, false)
	if err != nil {
		return nil, err
	}
	text, ok := value.(ir.String)
	if !ok {
		return nil, shapeError(m, fmt.Sprintf("second argument must be a string literal, got %s", value.Kind()))
	}
	return Pattern{Field: queryir.NormalizeField(field.Path), Kind: kind, Text: string(text)}, nil
}

func shapeError(n queryir.Node, message string) error {
	return &CompileError{Expr: queryir.Format(n), Message: message, Err: ErrUnsupportedExpressionShape}
}
