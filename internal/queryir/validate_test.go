package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateWellFormed(t *testing.T) {
	tests := []struct {
		name string
		node Node
	}{
		{"comparison", Eq(Field("Name"), Lit("'Pump'"))},
		{"negated field", Compare(OpLt, Minus(Field("Id")), Lit("3"))},
		{"not", Not(Eq(Field("Type"), Lit("'A'")))},
		{"in", In(Field("Id"), Lit("1"), Lit("2"))},
		{"empty in", In(Field("Id"))},
		{"method", Call(MethodStartsWith, Field("Name"), Lit("'P'"))},
		{"nested logic", Or(And(Eq(Field("Id"), Lit("1")), Eq(Field("Id"), Lit("2"))), Not(Field("Id")))},
		{"equality on bool", Eq(Field("Active"), Lit("true"))},
		{"bare literal", Lit("1")},
		{"bare field", Field("Id")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.node)
			assert.True(t, result.Valid, "%v", result.Problems)
			assert.Empty(t, result.Problems)
		})
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	node := And(
		Eq(Lit("1"), Field("Id")),
		Or(
			Call(Method("tolower"), Field("Name")),
			In(Field("Id"), Lit("one"), Field("Other")),
		),
	)

	result := Validate(node)

	assert.False(t, result.Valid)
	assert.Equal(t, []string{
		"$.left.left: comparison requires a field reference, got literal 1",
		"$.left.right: expected a literal, got field Id",
		`$.right.left: unsupported method "tolower"`,
		`$.right.right.values[0]: unsupported literal type: "one"`,
		"$.right.right.values[1]: expected a literal, got field Other",
	}, result.Problems)
}

func TestValidateProblems(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"nil", nil, "$: missing expression"},
		{"missing right", Binary{Op: OpAnd, Left: Lit("1")}, "$.right: missing expression"},
		{"unknown unary", Unary{Op: "neg", Operand: Field("Id")}, `$: unknown unary operator "neg"`},
		{"unknown binary", Binary{Op: "like", Left: Field("Id"), Right: Lit("1")}, `$: unknown binary operator "like"`},
		{"double wrapped field", Compare(OpEq, Minus(Minus(Field("Id"))), Lit("1")), "$.left: comparison requires a field reference, got unary minus"},
		{"not as field wrapper", Compare(OpEq, Not(Field("Id")), Lit("1")), "$.left: comparison requires a field reference, got unary not"},
		{"in over method", In(Call(MethodContains), Lit("1")), "$.left: in requires a field reference, got method contains"},
		{"method arity", Call(MethodContains, Field("Name")), "$: contains takes 2 arguments, got 1"},
		{"method field", Call(MethodContains, Lit("'a'"), Lit("'b'")), "$.args[0]: contains requires a field reference, got literal 'a'"},
		{"method literal", Call(MethodEndsWith, Field("Name"), Field("Other")), "$.args[1]: endswith requires a literal, got field Other"},
		{"method non string", Call(MethodEndsWith, Field("Name"), Lit("42")), "$.args[1]: endswith requires a string literal, got int"},
		{"bad literal", Eq(Field("Id"), Lit("abc")), `$.right: unsupported literal type: "abc"`},
		{"ordering on bool", Compare(OpGt, Field("Active"), Lit("true")), "$: gt is not defined for bool values"},
		{"negated ordering on bool", Compare(OpLe, Minus(Field("Active")), Lit("false")), "$: le is not defined for bool values"},
		{"negated overflow", Compare(OpEq, Minus(Field("Id")), Lit("-9223372036854775808")), `$.right: invalid literal value: "-9223372036854775808"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.node)
			assert.False(t, result.Valid)
			assert.Contains(t, result.Problems, tt.want)
		})
	}
}
