package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeSealed(t *testing.T) {
	var _ Node = Literal{}
	var _ Node = FieldRef{}
	var _ Node = Unary{}
	var _ Node = Binary{}
	var _ Node = MethodCall{}
}

func TestExhaustiveTypeSwitch(t *testing.T) {
	nodes := []Node{
		Lit("1"),
		Field("Id"),
		Not(Field("Id")),
		Eq(Field("Id"), Lit("1")),
		Call(MethodContains, Field("Name"), Lit("'p'")),
	}

	for _, n := range nodes {
		matched := false
		switch n.(type) {
		case Literal, FieldRef, Unary, Binary, MethodCall:
			matched = true
		}
		assert.True(t, matched, "%T not covered", n)
	}
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, Binary{Op: OpEq, Left: FieldRef{Path: "Name"}, Right: Literal{Text: "'Pump'"}},
		Eq(Field("Name"), Lit("'Pump'")))
	assert.Equal(t, Unary{Op: OpMinus, Operand: FieldRef{Path: "Id"}}, Minus(Field("Id")))
	assert.Equal(t, Binary{Op: OpIn, Left: FieldRef{Path: "Id"}, Values: []Node{Literal{Text: "1"}, Literal{Text: "2"}}},
		In(Field("Id"), Lit("1"), Lit("2")))
	assert.Equal(t, MethodCall{Name: MethodEndsWith, Args: []Node{FieldRef{Path: "Name"}, Literal{Text: "'x'"}}},
		Call(MethodEndsWith, Field("Name"), Lit("'x'")))
}

func TestOperatorClassification(t *testing.T) {
	for _, op := range []BinaryOp{OpEq, OpNe, OpGt, OpLt, OpGe, OpLe} {
		assert.True(t, op.IsComparison(), op)
		assert.False(t, op.IsLogical(), op)
	}
	for _, op := range []BinaryOp{OpAnd, OpOr} {
		assert.True(t, op.IsLogical(), op)
		assert.False(t, op.IsComparison(), op)
	}
	for _, op := range []BinaryOp{OpGt, OpLt, OpGe, OpLe} {
		assert.True(t, op.IsOrdering(), op)
	}
	for _, op := range []BinaryOp{OpEq, OpNe, OpIn, OpAnd, OpOr} {
		assert.False(t, op.IsOrdering(), op)
	}
	assert.False(t, OpIn.IsComparison())
	assert.False(t, OpIn.IsLogical())

	assert.True(t, MethodContains.Supported())
	assert.True(t, MethodStartsWith.Supported())
	assert.True(t, MethodEndsWith.Supported())
	assert.False(t, Method("tolower").Supported())
}

func TestNormalizeField(t *testing.T) {
	tests := map[string]string{
		"Name":          "name",
		"ProductNumber": "productNumber",
		"name":          "name",
		"ID":            "iD",
		"":              "",
		"Ärger":         "ärger",
		"_Id":           "_Id",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeField(in), in)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{Eq(Field("Name"), Lit("'Pump'")), "Name eq 'Pump'"},
		{Not(Eq(Field("Type"), Lit("'A'"))), "not (Type eq 'A')"},
		{Compare(OpGt, Minus(Field("Id")), Lit("5")), "-Id gt 5"},
		{And(Eq(Field("Id"), Lit("1")), Eq(Field("Name"), Lit("'x'"))), "(Id eq 1 and Name eq 'x')"},
		{In(Field("Id"), Lit("1"), Lit("2")), "Id in (1, 2)"},
		{Call(MethodContains, Field("Description"), Lit("'steel'")), "contains(Description,'steel')"},
		{nil, "<nil>"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.node))
	}
}
