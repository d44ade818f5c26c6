// Package querysql compiles query specs into parameterized SQLite SQL.
//
// Values are never interpolated: every literal becomes a ? parameter.
// Every SELECT carries an ORDER BY ending in the key columns so that
// pages are deterministic.
//
// The compiled SQL keeps the in-memory predicate semantics: a null
// column fails every test, and NOT flips that failure into a match.
package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/predicate"
	"github.com/roach88/shopfloor/internal/query"
	"github.com/roach88/shopfloor/internal/schema"
)

// CaseFoldFunc is the SQL function the store registers for
// case-insensitive pattern tests. It must apply full Unicode case
// folding to a TEXT argument.
const CaseFoldFunc = "casefold"

// ErrUnknownField is returned when a filter or ordering names a field
// the entity set does not have.
var ErrUnknownField = errors.New("unknown field")

// Compiler compiles specs against one entity set.
type Compiler struct {
	set *schema.EntitySet
}

// NewCompiler returns a Compiler for set.
func NewCompiler(set *schema.EntitySet) *Compiler {
	return &Compiler{set: set}
}

// Select compiles spec into a paged SELECT of every property column.
func (c *Compiler) Select(spec query.Spec) (string, []any, error) {
	return c.selectColumns(strings.Join(c.set.Columns(), ", "), spec)
}

// SelectKeys compiles spec into a SELECT of the key columns only.
func (c *Compiler) SelectKeys(spec query.Spec) (string, []any, error) {
	keys := make([]string, 0, len(c.set.Key))
	for _, p := range c.set.KeyProperties() {
		keys = append(keys, p.Column)
	}
	return c.selectColumns(strings.Join(keys, ", "), spec)
}

func (c *Compiler) selectColumns(columns string, spec query.Spec) (string, []any, error) {
	where, params, err := c.Where(spec.Predicate())
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	orderBy, err := c.OrderBy(spec.Order())
	if err != nil {
		return "", nil, fmt.Errorf("compile order: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", columns, c.set.Table)
	if where != trueSQL {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy)
	if spec.Paged() {
		b.WriteString(" LIMIT ? OFFSET ?")
		params = append(params, int64(spec.Window().Limit()), int64(spec.Window().Offset()))
	}
	return b.String(), params, nil
}

// Count compiles spec into a COUNT(*) over every match. Order and window
// are ignored.
func (c *Compiler) Count(spec query.Spec) (string, []any, error) {
	where, params, err := c.Where(spec.Predicate())
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	sql := "SELECT COUNT(*) FROM " + c.set.Table
	if where != trueSQL {
		sql += " WHERE " + where
	}
	return sql, params, nil
}

// OrderBy compiles order into an ORDER BY list. The key columns are
// appended as a tiebreaker unless already present.
func (c *Compiler) OrderBy(order query.OrderSpec) (string, error) {
	parts := make([]string, 0, len(order)+len(c.set.Key))
	used := make(map[string]bool, len(order))
	for _, term := range order {
		p, err := c.property(term.Field)
		if err != nil {
			return "", err
		}
		if used[p.Column] {
			continue
		}
		used[p.Column] = true
		dir := "ASC"
		if !term.Ascending {
			dir = "DESC"
		}
		parts = append(parts, p.Column+" "+dir)
	}
	for _, p := range c.set.KeyProperties() {
		if used[p.Column] {
			continue
		}
		parts = append(parts, p.Column+" ASC COLLATE BINARY")
	}
	return strings.Join(parts, ", "), nil
}

const (
	trueSQL  = "1 = 1"
	falseSQL = "1 = 0"
)

// Where compiles p into a WHERE fragment and its parameters.
func (c *Compiler) Where(p predicate.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil, predicate.True:
		return trueSQL, nil, nil
	case predicate.Comparison:
		return c.compileComparison(pred)
	case predicate.Membership:
		return c.compileMembership(pred)
	case predicate.Pattern:
		return c.compilePattern(pred)
	case predicate.Conjunction:
		return c.compileConjunction(pred)
	case predicate.Disjunction:
		return c.compileBinary(pred.Left, pred.Right, "OR")
	case predicate.Negation:
		inner, params, err := c.Where(pred.Operand)
		if err != nil {
			return "", nil, err
		}
		// Null inside NOT counts as false before flipping.
		return "NOT COALESCE((" + inner + "), 0)", params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *Compiler) compileComparison(cmp predicate.Comparison) (string, []any, error) {
	p, err := c.property(cmp.Field)
	if err != nil {
		return "", nil, err
	}
	if !compatible(p.Kind, cmp.Value) {
		return falseSQL, nil, nil
	}
	return fmt.Sprintf("%s %s ?", p.Column, cmp.Op), []any{Param(p.Kind, cmp.Value)}, nil
}

func (c *Compiler) compileMembership(m predicate.Membership) (string, []any, error) {
	p, err := c.property(m.Field)
	if err != nil {
		return "", nil, err
	}
	var params []any
	for _, v := range m.Values {
		if compatible(p.Kind, v) {
			params = append(params, Param(p.Kind, v))
		}
	}
	if len(params) == 0 {
		return falseSQL, nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(params)), ", ")
	return fmt.Sprintf("%s IN (%s)", p.Column, placeholders), params, nil
}

func (c *Compiler) compilePattern(pat predicate.Pattern) (string, []any, error) {
	p, err := c.property(pat.Field)
	if err != nil {
		return "", nil, err
	}
	if p.Kind != ir.KindString {
		return falseSQL, nil, nil
	}
	needle := escapeLike(pat.Text)
	switch pat.Kind {
	case predicate.Contains:
		needle = "%" + needle + "%"
	case predicate.StartsWith:
		needle += "%"
	case predicate.EndsWith:
		needle = "%" + needle
	default:
		return "", nil, fmt.Errorf("unsupported pattern kind: %s", pat.Kind)
	}
	sql := fmt.Sprintf(`CASE WHEN %[1]s IS NULL THEN 0 ELSE %[2]s(%[1]s) LIKE %[2]s(?) ESCAPE '\' END`, p.Column, CaseFoldFunc)
	return sql, []any{needle}, nil
}

// compileConjunction drops always-true sides so composed specs stay
// readable.
func (c *Compiler) compileConjunction(and predicate.Conjunction) (string, []any, error) {
	_, leftTrue := and.Left.(predicate.True)
	_, rightTrue := and.Right.(predicate.True)
	switch {
	case leftTrue && rightTrue:
		return trueSQL, nil, nil
	case leftTrue:
		return c.Where(and.Right)
	case rightTrue:
		return c.Where(and.Left)
	}
	return c.compileBinary(and.Left, and.Right, "AND")
}

func (c *Compiler) compileBinary(left, right predicate.Predicate, op string) (string, []any, error) {
	l, lp, err := c.Where(left)
	if err != nil {
		return "", nil, err
	}
	r, rp, err := c.Where(right)
	if err != nil {
		return "", nil, err
	}
	return "(" + l + " " + op + " " + r + ")", append(lp, rp...), nil
}

func (c *Compiler) property(field string) (*schema.Property, error) {
	p, ok := c.set.Field(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no field %q", ErrUnknownField, c.set.Name, field)
	}
	return p, nil
}

// Param converts v into the parameter bound against a column of the
// given kind. A date compared with a timestamp column becomes midnight
// UTC of that day.
func Param(kind ir.Kind, v ir.Value) any {
	if d, ok := v.(ir.Date); ok && kind == ir.KindTimestamp {
		return ir.Native(ir.Timestamp{Time: d.Time()})
	}
	return ir.Native(v)
}

// compatible mirrors ir.Compare: numbers compare with numbers, dates
// with timestamps, everything else only with its own kind.
func compatible(kind ir.Kind, v ir.Value) bool {
	if v == nil {
		return false
	}
	switch kind {
	case ir.KindInt, ir.KindFloat:
		return v.Kind() == ir.KindInt || v.Kind() == ir.KindFloat
	case ir.KindDate, ir.KindTimestamp:
		return v.Kind() == ir.KindDate || v.Kind() == ir.KindTimestamp
	default:
		return v.Kind() == kind
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
