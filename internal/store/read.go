package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/query"
	"github.com/roach88/shopfloor/internal/querysql"
	"github.com/roach88/shopfloor/internal/schema"
)

// Find returns the rows of setName that satisfy spec, ordered and paged
// as spec says. Returns an empty slice (not nil) when nothing matches.
func (s *Store) Find(ctx context.Context, setName string, spec query.Spec) ([]Record, error) {
	set, err := s.set(setName)
	if err != nil {
		return nil, err
	}
	stmt, params, err := querysql.NewCompiler(set).Select(spec)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", setName, err)
	}

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", setName, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows, set, nil)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", setName, err)
	}
	return records, nil
}

// FindOne returns the first row matching spec, normally a key lookup.
// Returns ErrEntityNotFound when nothing matches.
func (s *Store) FindOne(ctx context.Context, setName string, spec query.Spec) (Record, error) {
	records, err := s.Find(ctx, setName, spec)
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrEntityNotFound, setName)
	}
	return records[0], nil
}

// Count returns how many rows of setName satisfy spec's predicate.
// Ordering and the window are ignored.
func (s *Store) Count(ctx context.Context, setName string, spec query.Spec) (int64, error) {
	set, err := s.set(setName)
	if err != nil {
		return 0, err
	}
	stmt, params, err := querysql.NewCompiler(set).Count(spec)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", setName, err)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, stmt, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", setName, err)
	}
	return n, nil
}

// Property returns one property of the first row matching spec. A null
// property yields a nil Value and no error.
func (s *Store) Property(ctx context.Context, setName string, spec query.Spec, property string) (ir.Value, error) {
	set, err := s.set(setName)
	if err != nil {
		return nil, err
	}
	p, ok := set.Property(property)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no property %q", querysql.ErrUnknownField, setName, property)
	}
	r, err := s.FindOne(ctx, setName, spec)
	if err != nil {
		return nil, err
	}
	v, _ := r.Value(p.Name)
	return v, nil
}

// related loads the targets of nav for each source key, in one query.
// The result is keyed by ir.Format of the source key; sources with no
// related rows are absent. Targets come back in key order.
func (s *Store) related(ctx context.Context, set *schema.EntitySet, nav *schema.Navigation, sources []ir.Value) (map[string][]Record, error) {
	target, err := s.set(nav.Target)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return map[string][]Record{}, nil
	}

	srcKey := set.KeyProperties()[0]
	tgtKey := target.KeyProperties()[0]

	cols := make([]string, len(target.Properties))
	for i, c := range target.Columns() {
		cols[i] = "t." + c
	}

	var from, sourceCol string
	switch nav.Style {
	case schema.JoinColumn:
		from = fmt.Sprintf("%s s JOIN %s t ON t.%s = s.%s", set.Table, target.Table, tgtKey.Column, nav.Column)
		sourceCol = "s." + srcKey.Column
	case schema.JoinInverse:
		from = target.Table + " t"
		sourceCol = "t." + nav.Column
	case schema.JoinThrough:
		from = fmt.Sprintf("%s j JOIN %s t ON t.%s = j.%s", nav.Through.Table, target.Table, tgtKey.Column, nav.Through.Target)
		sourceCol = "j." + nav.Through.Source
	default:
		return nil, fmt.Errorf("navigation %s.%s: unsupported join style %q", set.Name, nav.Name, nav.Style)
	}

	params := make([]any, len(sources))
	for i, v := range sources {
		params[i] = querysql.Param(srcKey.Kind, v)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(sources)), ", ")

	stmt := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (%s) ORDER BY %s ASC, t.%s ASC COLLATE BINARY",
		sourceCol, strings.Join(cols, ", "), from, sourceCol, placeholders, sourceCol, tgtKey.Column)

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("load %s.%s: %w", set.Name, nav.Name, err)
	}
	defer rows.Close()

	out := make(map[string][]Record)
	for rows.Next() {
		var rawSource any
		r, err := scanRecord(rows, target, &rawSource)
		if err != nil {
			return nil, err
		}
		source, err := ir.FromNative(rawSource, srcKey.Kind)
		if err != nil {
			return nil, fmt.Errorf("load %s.%s: source key: %w", set.Name, nav.Name, err)
		}
		k := ir.Format(source)
		out[k] = append(out[k], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s.%s: %w", set.Name, nav.Name, err)
	}
	return out, nil
}

// scanRecord scans one row of set's property columns. When lead is not
// nil the row starts with one extra column scanned into it.
func scanRecord(rows *sql.Rows, set *schema.EntitySet, lead *any) (Record, error) {
	raw := make([]any, len(set.Properties))
	dest := make([]any, 0, len(raw)+1)
	if lead != nil {
		dest = append(dest, lead)
	}
	for i := range raw {
		dest = append(dest, &raw[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return Record{}, fmt.Errorf("scan %s: %w", set.Name, err)
	}

	r := Record{set: set, values: make([]ir.Value, len(raw))}
	for i, p := range set.Properties {
		v, err := ir.FromNative(raw[i], p.Kind)
		if err != nil {
			return Record{}, fmt.Errorf("scan %s.%s: %w", set.Name, p.Name, err)
		}
		r.values[i] = v
	}
	return r, nil
}
