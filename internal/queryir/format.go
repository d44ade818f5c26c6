package queryir

import (
	"fmt"
	"strings"
)

// Format renders n in $filter-like syntax for logs and CLI output.
// The rendering is not meant to be parsed back.
func Format(n Node) string {
	var sb strings.Builder
	format(&sb, n)
	return sb.String()
}

func format(sb *strings.Builder, n Node) {
	switch v := n.(type) {
	case nil:
		sb.WriteString("<nil>")
	case Literal:
		sb.WriteString(v.Text)
	case FieldRef:
		sb.WriteString(v.Path)
	case Unary:
		if v.Op == OpMinus {
			sb.WriteByte('-')
			format(sb, v.Operand)
			return
		}
		sb.WriteString(string(v.Op))
		sb.WriteString(" (")
		format(sb, v.Operand)
		sb.WriteByte(')')
	case Binary:
		switch {
		case v.Op == OpIn:
			format(sb, v.Left)
			sb.WriteString(" in (")
			for i, val := range v.Values {
				if i > 0 {
					sb.WriteString(", ")
				}
				format(sb, val)
			}
			sb.WriteByte(')')
		case v.Op.IsLogical():
			sb.WriteByte('(')
			format(sb, v.Left)
			fmt.Fprintf(sb, " %s ", v.Op)
			format(sb, v.Right)
			sb.WriteByte(')')
		default:
			format(sb, v.Left)
			fmt.Fprintf(sb, " %s ", v.Op)
			format(sb, v.Right)
		}
	case MethodCall:
		sb.WriteString(string(v.Name))
		sb.WriteByte('(')
		for i, arg := range v.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			format(sb, arg)
		}
		sb.WriteByte(')')
	default:
		fmt.Fprintf(sb, "<%T>", n)
	}
}
