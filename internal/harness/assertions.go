package harness

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/shopfloor/internal/schema"
	"github.com/roach88/shopfloor/internal/store"
)

// validIdentifier matches plain SQL column names.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", event.Seq, event.Operation, event.EntitySet, event.Outcome)
		}
	}

	return buf.String()
}

// matchEvent reports whether event satisfies the assertion's selectors.
// Empty selectors match anything.
func matchEvent(event TraceEvent, a Assertion) bool {
	return (a.Operation == "" || event.Operation == a.Operation) &&
		(a.EntitySet == "" || event.EntitySet == a.EntitySet) &&
		(a.Outcome == "" || event.Outcome == a.Outcome)
}

func describeSelector(a Assertion) string {
	var parts []string
	if a.Operation != "" {
		parts = append(parts, "operation="+a.Operation)
	}
	if a.EntitySet != "" {
		parts = append(parts, "entity_set="+a.EntitySet)
	}
	if a.Outcome != "" {
		parts = append(parts, "outcome="+a.Outcome)
	}
	if len(parts) == 0 {
		return "any step"
	}
	return strings.Join(parts, " ")
}

// assertTraceContains checks that some step matches the selectors.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if matchEvent(event, assertion) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeSelector(assertion),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks that exactly Count steps match the selectors.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if matchEvent(event, assertion) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d steps with %s", assertion.Count, describeSelector(assertion)),
			Actual:   fmt.Sprintf("%d steps", count),
			Trace:    trace,
		}
	}

	return nil
}

// modelTables lists the tables behind the model's entity sets, join
// tables included.
func modelTables(m *schema.Model) map[string]bool {
	tables := make(map[string]bool)
	for _, set := range m.Sets {
		tables[set.Table] = true
		for _, nav := range set.Navigations {
			if nav.Style == schema.JoinThrough {
				tables[nav.Through.Table] = true
			}
		}
	}
	return tables
}

// assertFinalState checks that exactly one row of the table matches
// Where and that it holds the Expect column values. Only tables of the
// store's model can be named; where columns must be plain identifiers.
func assertFinalState(ctx context.Context, st *store.Store, a Assertion) error {
	if !modelTables(st.Model())[a.Table] {
		return fmt.Errorf("unknown table %q", a.Table)
	}

	where, args, err := buildWhereClause(a.Where)
	if err != nil {
		return err
	}
	q := "SELECT * FROM " + a.Table
	if where != "" {
		q += " WHERE " + where
	}

	columns, rows, err := scanRows(ctx, st.DB(), q, args, 2)
	selector := fmt.Sprintf("%s where %s", a.Table, formatWhereClause(a.Where))
	switch {
	case err != nil:
		return &AssertionError{Type: AssertFinalState, Expected: "query " + selector, Actual: "query error: " + err.Error()}
	case len(rows) == 0:
		return &AssertionError{Type: AssertFinalState, Expected: "one row in " + selector, Actual: "row not found"}
	case len(rows) > 1:
		return &AssertionError{Type: AssertFinalState, Expected: "exactly one row in " + selector, Actual: "multiple rows matched"}
	}

	row := rows[0]
	for _, col := range sortedKeys(a.Expect) {
		want := a.Expect[col]
		got, ok := row[col]
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("column %q in %s", col, a.Table),
				Actual:   fmt.Sprintf("column %q not present (have %v)", col, columns),
			}
		}
		if !stateValuesEqual(want, got) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("column %q = %v (%T)", col, want, want),
				Actual:   fmt.Sprintf("column %q = %v (%T)", col, got, got),
			}
		}
	}
	return nil
}

// scanRows runs q and returns up to limit rows as column maps.
func scanRows(ctx context.Context, db *sql.DB, q string, args []any, limit int) ([]string, []map[string]any, error) {
	rs, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rs.Close()

	columns, err := rs.Columns()
	if err != nil {
		return nil, nil, err
	}

	var rows []map[string]any
	for len(rows) < limit && rs.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		rows = append(rows, row)
	}
	return columns, rows, rs.Err()
}

// buildWhereClause turns where into a parameterized conjunction, one
// term per column in sorted order. Nil values compare with IS NULL.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	var terms []string
	var args []any
	for _, col := range sortedKeys(where) {
		if !validIdentifier.MatchString(col) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause", col)
		}
		if where[col] == nil {
			terms = append(terms, col+" IS NULL")
			continue
		}
		terms = append(terms, col+" = ?")
		args = append(args, where[col])
	}
	return strings.Join(terms, " AND "), args, nil
}

func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(where))
	for _, col := range sortedKeys(where) {
		parts = append(parts, fmt.Sprintf("%s=%v", col, where[col]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateValuesEqual compares a YAML-decoded expectation with a value
// scanned from SQLite, which returns int64, float64, string or []byte.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		actualStr, ok := actual.(string)
		return ok && exp == actualStr
	case int:
		switch act := actual.(type) {
		case int64:
			return int64(exp) == act
		case float64:
			return float64(exp) == act
		}
		return false
	case float64:
		switch act := actual.(type) {
		case float64:
			return exp == act
		case int64:
			return exp == float64(act)
		}
		return false
	case bool:
		// SQLite stores booleans as integers
		actualInt, ok := actual.(int64)
		return ok && exp == (actualInt != 0)
	}

	return false
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
