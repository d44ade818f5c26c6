package queryir

import (
	"unicode"
	"unicode/utf8"
)

// Node is one node of a filter expression tree.
//
// This is a sealed interface - only types in this package implement it.
type Node interface {
	node() // Marker method - seals interface to this package
}

// UnaryOp is the operator of a Unary node.
type UnaryOp string

const (
	OpNot   UnaryOp = "not"
	OpMinus UnaryOp = "minus"
)

// BinaryOp is the operator of a Binary node.
type BinaryOp string

const (
	OpAnd BinaryOp = "and"
	OpOr  BinaryOp = "or"
	OpEq  BinaryOp = "eq"
	OpNe  BinaryOp = "ne"
	OpGt  BinaryOp = "gt"
	OpLt  BinaryOp = "lt"
	OpGe  BinaryOp = "ge"
	OpLe  BinaryOp = "le"
	OpIn  BinaryOp = "in"
)

// IsComparison reports whether op compares a field against one literal.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpLt, OpGe, OpLe:
		return true
	}
	return false
}

// IsOrdering reports whether op needs an ordered value kind.
func (op BinaryOp) IsOrdering() bool {
	switch op {
	case OpGt, OpLt, OpGe, OpLe:
		return true
	}
	return false
}

// IsLogical reports whether op combines two boolean subtrees.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// Method names a string method call.
type Method string

const (
	MethodContains   Method = "contains"
	MethodStartsWith Method = "startswith"
	MethodEndsWith   Method = "endswith"
)

// Supported reports whether m is one of the three string methods.
func (m Method) Supported() bool {
	switch m {
	case MethodContains, MethodStartsWith, MethodEndsWith:
		return true
	}
	return false
}

// Literal is raw literal text as it appeared in the query, quotes
// included for strings ("'Pump'").
type Literal struct {
	Text string
}

func (Literal) node() {}

// FieldRef references a field by its external name.
type FieldRef struct {
	Path string
}

func (FieldRef) node() {}

// Unary applies a logical not, or a sign flip, to its operand.
type Unary struct {
	Op      UnaryOp
	Operand Node
}

func (Unary) node() {}

// Binary is a logical combination, a comparison, or a membership test.
// For OpIn, Right is unused and the candidates are in Values.
type Binary struct {
	Op     BinaryOp
	Left   Node
	Right  Node
	Values []Node
}

func (Binary) node() {}

// MethodCall is a string method applied to a field.
type MethodCall struct {
	Name Method
	Args []Node
}

func (MethodCall) node() {}

// Lit builds a Literal.
func Lit(text string) Literal { return Literal{Text: text} }

// Field builds a FieldRef.
func Field(path string) FieldRef { return FieldRef{Path: path} }

// Not builds a logical negation.
func Not(operand Node) Unary { return Unary{Op: OpNot, Operand: operand} }

// Minus builds a sign flip, used to wrap the field side of a comparison.
func Minus(operand Node) Unary { return Unary{Op: OpMinus, Operand: operand} }

// Compare builds a comparison or logical Binary node.
func Compare(op BinaryOp, left, right Node) Binary {
	return Binary{Op: op, Left: left, Right: right}
}

// Eq builds left eq right.
func Eq(left, right Node) Binary { return Compare(OpEq, left, right) }

// And builds left and right.
func And(left, right Node) Binary { return Compare(OpAnd, left, right) }

// Or builds left or right.
func Or(left, right Node) Binary { return Compare(OpOr, left, right) }

// In builds field in (values...).
func In(field Node, values ...Node) Binary {
	return Binary{Op: OpIn, Left: field, Values: values}
}

// Call builds a method call.
func Call(name Method, args ...Node) MethodCall {
	return MethodCall{Name: name, Args: args}
}

// NormalizeField maps an external field name to its internal identifier
// by lower-casing the first rune: "ProductNumber" becomes "productNumber".
func NormalizeField(path string) string {
	r, size := utf8.DecodeRuneInString(path)
	if r == utf8.RuneError || unicode.IsLower(r) {
		return path
	}
	return string(unicode.ToLower(r)) + path[size:]
}
