package queryir

import (
	"fmt"

	"github.com/roach88/shopfloor/internal/ir"
)

// ValidationResult lists every shape problem found in a tree.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems are "path: message" strings in traversal order. Paths
	// start at "$" and name children by field ("$.left.operand",
	// "$.values[2]").
	Problems []string
}

// Validate walks the whole tree and reports every violation of the
// shape rules, including literals that cannot be coerced. Compilation
// stops at the first problem; Validate is for tooling that wants the
// full list.
//
// Validate is a pure function with no side effects.
func Validate(n Node) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateNode("$", n)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(path, format string, args ...any) {
	v.problems = append(v.problems, path+": "+fmt.Sprintf(format, args...))
}

func (v *validator) validateNode(path string, n Node) {
	switch node := n.(type) {
	case nil:
		v.addProblem(path, "missing expression")
	case Literal, FieldRef:
		// Degenerate on their own, but legal.
	case Unary:
		if node.Op != OpNot && node.Op != OpMinus {
			v.addProblem(path, "unknown unary operator %q", node.Op)
		}
		v.validateNode(path+".operand", node.Operand)
	case Binary:
		v.validateBinary(path, node)
	case MethodCall:
		v.validateMethod(path, node)
	default:
		v.addProblem(path, "unknown node type %T", n)
	}
}

func (v *validator) validateBinary(path string, b Binary) {
	switch {
	case b.Op.IsLogical():
		v.validateNode(path+".left", b.Left)
		v.validateNode(path+".right", b.Right)

	case b.Op == OpIn:
		if _, ok := b.Left.(FieldRef); !ok {
			v.addProblem(path+".left", "in requires a field reference, got %s", describe(b.Left))
		}
		for i, val := range b.Values {
			v.validateLiteral(fmt.Sprintf("%s.values[%d]", path, i), val, false)
		}

	case b.Op.IsComparison():
		negate := false
		switch left := b.Left.(type) {
		case FieldRef:
		case Unary:
			if _, ok := left.Operand.(FieldRef); left.Op != OpMinus || !ok {
				v.addProblem(path+".left", "comparison requires a field reference, got %s", describe(b.Left))
			}
			negate = true
		default:
			v.addProblem(path+".left", "comparison requires a field reference, got %s", describe(b.Left))
		}
		val := v.validateLiteral(path+".right", b.Right, negate)
		if val != nil && b.Op.IsOrdering() && !val.Kind().Ordered() {
			v.addProblem(path, "%s is not defined for %s values", b.Op, val.Kind())
		}

	default:
		v.addProblem(path, "unknown binary operator %q", b.Op)
	}
}

func (v *validator) validateMethod(path string, m MethodCall) {
	if !m.Name.Supported() {
		v.addProblem(path, "unsupported method %q", m.Name)
		return
	}
	if len(m.Args) != 2 {
		v.addProblem(path, "%s takes 2 arguments, got %d", m.Name, len(m.Args))
		return
	}
	if _, ok := m.Args[0].(FieldRef); !ok {
		v.addProblem(path+".args[0]", "%s requires a field reference, got %s", m.Name, describe(m.Args[0]))
	}
	lit, ok := m.Args[1].(Literal)
	if !ok {
		v.addProblem(path+".args[1]", "%s requires a literal, got %s", m.Name, describe(m.Args[1]))
		return
	}
	val, err := ir.Coerce(lit.Text, false)
	if err != nil {
		v.addProblem(path+".args[1]", "%v", err)
		return
	}
	if _, ok := val.(ir.String); !ok {
		v.addProblem(path+".args[1]", "%s requires a string literal, got %s", m.Name, val.Kind())
	}
}

// validateLiteral reports n unless it is a coercible literal, and
// returns the coerced value when it is.
func (v *validator) validateLiteral(path string, n Node, negate bool) ir.Value {
	lit, ok := n.(Literal)
	if !ok {
		v.addProblem(path, "expected a literal, got %s", describe(n))
		return nil
	}
	val, err := ir.Coerce(lit.Text, negate)
	if err != nil {
		v.addProblem(path, "%v", err)
		return nil
	}
	return val
}

func describe(n Node) string {
	switch node := n.(type) {
	case nil:
		return "nothing"
	case Literal:
		return "literal " + node.Text
	case FieldRef:
		return "field " + node.Path
	case Unary:
		return "unary " + string(node.Op)
	case Binary:
		return "binary " + string(node.Op)
	case MethodCall:
		return "method " + string(node.Name)
	}
	return fmt.Sprintf("%T", n)
}
