package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/querysql"
	"github.com/roach88/shopfloor/internal/schema"
)

// Insert writes one row of setName. Values are keyed by property name;
// absent properties are stored as null. Navigation foreign keys are set
// separately with Link.
func (s *Store) Insert(ctx context.Context, setName string, values map[string]ir.Value) error {
	return s.insert(ctx, s.db, setName, values)
}

func (s *Store) insert(ctx context.Context, db execer, setName string, values map[string]ir.Value) error {
	set, err := s.set(setName)
	if err != nil {
		return err
	}
	r, err := NewRecord(set, values)
	if err != nil {
		return fmt.Errorf("insert %s: %w", setName, err)
	}

	cols := set.Columns()
	params := make([]any, len(cols))
	for i, p := range set.Properties {
		if r.values[i] == nil {
			continue
		}
		if !compatibleKind(p.Kind, r.values[i]) {
			return fmt.Errorf("insert %s: %s holds %s, got %s", setName, p.Name, p.Kind, r.values[i].Kind())
		}
		params[i] = querysql.Param(p.Kind, r.values[i])
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	_, err = db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", set.Table, strings.Join(cols, ", "), placeholders),
		params...)
	if err != nil {
		return fmt.Errorf("insert %s: %w", setName, err)
	}
	return nil
}

// Link relates the entity of setName with key to the target entity with
// targetKey through navigation nav. To-one navigations are overwritten;
// to-many navigations gain one more member.
func (s *Store) Link(ctx context.Context, setName string, key ir.Value, nav string, targetKey ir.Value) error {
	return s.link(ctx, s.db, setName, key, nav, targetKey)
}

func (s *Store) link(ctx context.Context, db execer, setName string, key ir.Value, navName string, targetKey ir.Value) error {
	set, err := s.set(setName)
	if err != nil {
		return err
	}
	nav, ok := set.Navigation(navName)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownNavigation, setName, navName)
	}
	target, err := s.set(nav.Target)
	if err != nil {
		return err
	}
	srcKey := set.KeyProperties()[0]
	tgtKey := target.KeyProperties()[0]
	src := querysql.Param(srcKey.Kind, key)
	dst := querysql.Param(tgtKey.Kind, targetKey)

	var stmt string
	var params []any
	switch nav.Style {
	case schema.JoinColumn:
		stmt = fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", set.Table, nav.Column, srcKey.Column)
		params = []any{dst, src}
	case schema.JoinInverse:
		stmt = fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", target.Table, nav.Column, tgtKey.Column)
		params = []any{src, dst}
	case schema.JoinThrough:
		stmt = fmt.Sprintf("INSERT OR IGNORE INTO %s (%s, %s) VALUES (?, ?)", nav.Through.Table, nav.Through.Source, nav.Through.Target)
		params = []any{src, dst}
	default:
		return fmt.Errorf("link %s.%s: unsupported join style %q", setName, navName, nav.Style)
	}

	res, err := db.ExecContext(ctx, stmt, params...)
	if err != nil {
		return fmt.Errorf("link %s(%s).%s: %w", setName, ir.Format(key), navName, err)
	}
	if nav.Style != schema.JoinThrough {
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("link %s(%s).%s: %w", setName, ir.Format(key), navName, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: link %s(%s).%s", ErrEntityNotFound, setName, ir.Format(key), navName)
		}
	}
	return nil
}

// DeleteResult counts what Delete detached besides the row itself.
type DeleteResult struct {
	// Unlinked is the number of join rows deleted plus foreign keys
	// cleared.
	Unlinked int
}

// Create inserts one entity from a row shaped like a fixture row and
// links its navigations, all in one transaction. When the set has a
// single int key and row leaves it out, the next free key is assigned.
// Returns the stored record.
func (s *Store) Create(ctx context.Context, setName string, row map[string]any) (Record, error) {
	set, err := s.set(setName)
	if err != nil {
		return Record{}, err
	}
	values, navs, err := splitRow(s.model, set, row)
	if err != nil {
		return Record{}, fmt.Errorf("create %s: %w", setName, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("create %s: begin: %w", setName, err)
	}
	defer tx.Rollback()

	if values[set.Key[0]] == nil {
		key, err := nextKey(ctx, tx, set)
		if err != nil {
			return Record{}, fmt.Errorf("create %s: %w", setName, err)
		}
		values[set.Key[0]] = key
	}
	if err := requireKey(set, values); err != nil {
		return Record{}, fmt.Errorf("create %s: %w", setName, err)
	}
	key := values[set.Key[0]]

	taken, err := exists(ctx, tx, set, key)
	if err != nil {
		return Record{}, fmt.Errorf("create %s: %w", setName, err)
	}
	if taken {
		return Record{}, fmt.Errorf("%w: %s(%s)", ErrDuplicateKey, setName, ir.Format(key))
	}

	if err := s.insert(ctx, tx, setName, values); err != nil {
		return Record{}, err
	}
	if err := s.linkAll(ctx, tx, set, key, navs); err != nil {
		return Record{}, fmt.Errorf("create %s: %w", setName, err)
	}
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("create %s: commit: %w", setName, err)
	}
	return s.get(ctx, set, key)
}

// Update overwrites the properties named in row on the entity of
// setName with key. A null clears the property; properties row leaves
// out keep their value. A key property may only repeat its current
// value, and navigations are not patched. Returns the stored record.
func (s *Store) Update(ctx context.Context, setName string, key ir.Value, row map[string]any) (Record, error) {
	set, err := s.set(setName)
	if err != nil {
		return Record{}, err
	}
	for _, nav := range set.Navigations {
		if _, ok := row[nav.Name]; ok {
			return Record{}, fmt.Errorf("update %s: %w: navigation %s cannot be patched", setName, ErrInvalidValue, nav.Name)
		}
	}
	values, _, err := splitRow(s.model, set, row)
	if err != nil {
		return Record{}, fmt.Errorf("update %s: %w", setName, err)
	}

	var assigns []string
	var params []any
	for _, p := range set.Properties {
		v, ok := values[p.Name]
		if !ok {
			continue
		}
		if slices.Contains(set.Key, p.Name) {
			if p.Name != set.Key[0] || v == nil || !ir.Equal(v, key) {
				return Record{}, fmt.Errorf("update %s(%s): %w: %s", setName, ir.Format(key), ErrKeyImmutable, p.Name)
			}
			continue
		}
		if v != nil && !compatibleKind(p.Kind, v) {
			return Record{}, fmt.Errorf("update %s: %w: %s holds %s, got %s", setName, ErrInvalidValue, p.Name, p.Kind, v.Kind())
		}
		assigns = append(assigns, p.Column+" = ?")
		params = append(params, querysql.Param(p.Kind, v))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("update %s: begin: %w", setName, err)
	}
	defer tx.Rollback()

	found, err := exists(ctx, tx, set, key)
	if err != nil {
		return Record{}, fmt.Errorf("update %s: %w", setName, err)
	}
	if !found {
		return Record{}, fmt.Errorf("%w: %s(%s)", ErrEntityNotFound, setName, ir.Format(key))
	}
	if len(assigns) > 0 {
		k := set.KeyProperties()[0]
		stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", set.Table, strings.Join(assigns, ", "), k.Column)
		if _, err := tx.ExecContext(ctx, stmt, append(params, querysql.Param(k.Kind, key))...); err != nil {
			return Record{}, fmt.Errorf("update %s(%s): %w", setName, ir.Format(key), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("update %s: commit: %w", setName, err)
	}
	return s.get(ctx, set, key)
}

// Delete removes the entity of setName with key. Join rows naming it
// are deleted and foreign keys pointing at it are cleared first, in the
// same transaction. Returns ErrEntityNotFound when no row has key.
func (s *Store) Delete(ctx context.Context, setName string, key ir.Value) (DeleteResult, error) {
	set, err := s.set(setName)
	if err != nil {
		return DeleteResult{}, err
	}
	k := set.KeyProperties()[0]
	param := querysql.Param(k.Kind, key)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete %s: begin: %w", setName, err)
	}
	defer tx.Rollback()

	var res DeleteResult
	for _, stmt := range s.references(set) {
		n, err := execCount(ctx, tx, stmt, param)
		if err != nil {
			return DeleteResult{}, fmt.Errorf("delete %s(%s): unlink: %w", setName, ir.Format(key), err)
		}
		res.Unlinked += int(n)
	}

	n, err := execCount(ctx, tx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", set.Table, k.Column), param)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete %s(%s): %w", setName, ir.Format(key), err)
	}
	if n == 0 {
		return DeleteResult{}, fmt.Errorf("%w: %s(%s)", ErrEntityNotFound, setName, ir.Format(key))
	}
	if err := tx.Commit(); err != nil {
		return DeleteResult{}, fmt.Errorf("delete %s: commit: %w", setName, err)
	}
	return res, nil
}

// references returns the statements that detach other rows from one
// entity of set, one per distinct table and column. Each takes the
// entity's key as its only parameter.
func (s *Store) references(set *schema.EntitySet) []string {
	seen := make(map[string]bool)
	var stmts []string
	add := func(table, column, stmt string) {
		if id := table + "." + column; !seen[id] {
			seen[id] = true
			stmts = append(stmts, stmt)
		}
	}
	nullify := func(table, column string) {
		add(table, column, fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = ?", table, column, column))
	}
	unjoin := func(table, column string) {
		add(table, column, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, column))
	}

	for i := range s.model.Sets {
		owner := &s.model.Sets[i]
		for _, nav := range owner.Navigations {
			switch nav.Style {
			case schema.JoinThrough:
				if owner.Name == set.Name {
					unjoin(nav.Through.Table, nav.Through.Source)
				}
				if nav.Target == set.Name {
					unjoin(nav.Through.Table, nav.Through.Target)
				}
			case schema.JoinColumn:
				if nav.Target == set.Name {
					nullify(owner.Table, nav.Column)
				}
			case schema.JoinInverse:
				if target, ok := s.model.Set(nav.Target); ok && owner.Name == set.Name {
					nullify(target.Table, nav.Column)
				}
			}
		}
	}
	return stmts
}

// linkAll links key to every navigation target in navs. A target that
// does not exist is ErrEntityNotFound.
func (s *Store) linkAll(ctx context.Context, tx *sql.Tx, set *schema.EntitySet, key ir.Value, navs []navValues) error {
	for _, n := range navs {
		nav, _ := set.Navigation(n.name)
		target, err := s.set(nav.Target)
		if err != nil {
			return err
		}
		for _, t := range n.targets {
			ok, err := exists(ctx, tx, target, t)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s(%s) for %s", ErrEntityNotFound, target.Name, ir.Format(t), n.name)
			}
			if err := s.link(ctx, tx, set.Name, key, n.name, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// get reads the entity of set with key.
func (s *Store) get(ctx context.Context, set *schema.EntitySet, key ir.Value) (Record, error) {
	k := set.KeyProperties()[0]
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", strings.Join(set.Columns(), ", "), set.Table, k.Column)
	rows, err := s.db.QueryContext(ctx, stmt, querysql.Param(k.Kind, key))
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", set.Name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Record{}, fmt.Errorf("get %s: %w", set.Name, err)
		}
		return Record{}, fmt.Errorf("%w: %s(%s)", ErrEntityNotFound, set.Name, ir.Format(key))
	}
	return scanRecord(rows, set, nil)
}

// exists reports whether set has a row with key.
func exists(ctx context.Context, tx *sql.Tx, set *schema.EntitySet, key ir.Value) (bool, error) {
	k := set.KeyProperties()[0]
	var one int
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", set.Table, k.Column),
		querysql.Param(k.Kind, key)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %s(%s): %w", set.Name, ir.Format(key), err)
	}
	return true, nil
}

// nextKey returns one past the largest key of set. Only sets with a
// single int key number their rows.
func nextKey(ctx context.Context, tx *sql.Tx, set *schema.EntitySet) (ir.Value, error) {
	keys := set.KeyProperties()
	if len(keys) != 1 || keys[0].Kind != ir.KindInt {
		return nil, fmt.Errorf("%w: key %s is required", ErrInvalidValue, set.Key[0])
	}
	var n int64
	stmt := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) + 1 FROM %s", keys[0].Column, set.Table)
	if err := tx.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return nil, fmt.Errorf("next key: %w", err)
	}
	return ir.Int(n), nil
}

func execCount(ctx context.Context, db execer, stmt string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// compatibleKind reports whether v may be stored in a column of kind.
func compatibleKind(kind ir.Kind, v ir.Value) bool {
	switch kind {
	case ir.KindFloat:
		return v.Kind() == ir.KindFloat || v.Kind() == ir.KindInt
	case ir.KindTimestamp:
		return v.Kind() == ir.KindTimestamp || v.Kind() == ir.KindDate
	default:
		return v.Kind() == kind
	}
}
