package store

import (
	"fmt"
	"strings"

	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/schema"
)

// Schema is the DDL derived from an entity model.
type Schema struct {
	Tables  []string
	Indexes []string
}

// DDL derives CREATE statements for model. Each entity set gets a table
// with its property columns plus the foreign keys its navigations
// imply; through-joins get their own table. Statements use IF NOT
// EXISTS and are safe to replay.
func DDL(model *schema.Model) Schema {
	type fk struct {
		column string
		kind   ir.Kind
		ref    string
	}
	fks := make(map[string][]fk)
	seenFK := make(map[string]bool)
	addFK := func(table, column string, kind ir.Kind, refTable, refColumn string) {
		id := table + "." + column
		if seenFK[id] {
			return
		}
		seenFK[id] = true
		fks[table] = append(fks[table], fk{column: column, kind: kind, ref: refTable + "(" + refColumn + ")"})
	}

	var joins []string
	seenJoin := make(map[string]bool)
	var out Schema

	for _, set := range model.Sets {
		for _, nav := range set.Navigations {
			target, _ := model.Set(nav.Target)
			srcKey := set.KeyProperties()[0]
			tgtKey := target.KeyProperties()[0]

			switch nav.Style {
			case schema.JoinColumn:
				addFK(set.Table, nav.Column, tgtKey.Kind, target.Table, tgtKey.Column)
				out.Indexes = appendIndex(out.Indexes, set.Table, nav.Column)
			case schema.JoinInverse:
				addFK(target.Table, nav.Column, srcKey.Kind, set.Table, srcKey.Column)
				out.Indexes = appendIndex(out.Indexes, target.Table, nav.Column)
			case schema.JoinThrough:
				th := nav.Through
				if seenJoin[th.Table] {
					continue
				}
				seenJoin[th.Table] = true
				joins = append(joins, fmt.Sprintf(
					"CREATE TABLE IF NOT EXISTS %s (\n"+
						"    %s %s NOT NULL REFERENCES %s(%s),\n"+
						"    %s %s NOT NULL REFERENCES %s(%s),\n"+
						"    PRIMARY KEY (%s, %s)\n)",
					th.Table,
					th.Source, sqlType(srcKey.Kind), set.Table, srcKey.Column,
					th.Target, sqlType(tgtKey.Kind), target.Table, tgtKey.Column,
					th.Source, th.Target))
				out.Indexes = appendIndex(out.Indexes, th.Table, th.Target)
			}
		}
	}

	for _, set := range model.Sets {
		var cols []string
		for _, p := range set.Properties {
			col := "    " + p.Column + " " + sqlType(p.Kind)
			if !p.Nullable {
				col += " NOT NULL"
			}
			cols = append(cols, col)
		}
		for _, f := range fks[set.Table] {
			cols = append(cols, fmt.Sprintf("    %s %s REFERENCES %s", f.column, sqlType(f.kind), f.ref))
		}
		keyCols := make([]string, 0, len(set.Key))
		for _, p := range set.KeyProperties() {
			keyCols = append(keyCols, p.Column)
		}
		cols = append(cols, "    PRIMARY KEY ("+strings.Join(keyCols, ", ")+")")
		out.Tables = append(out.Tables,
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", set.Table, strings.Join(cols, ",\n")))
	}
	out.Tables = append(out.Tables, joins...)
	return out
}

func appendIndex(indexes []string, table, column string) []string {
	stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", table, column, table, column)
	for _, existing := range indexes {
		if existing == stmt {
			return indexes
		}
	}
	return append(indexes, stmt)
}

// sqlType maps a value kind to a column type. Dates and timestamps are
// ISO-8601 TEXT; declaring them DATE or TIMESTAMP would make the driver
// hand back time.Time values.
func sqlType(kind ir.Kind) string {
	switch kind {
	case ir.KindInt, ir.KindBool:
		return "INTEGER"
	case ir.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}
