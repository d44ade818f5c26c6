package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/querysql"
	"github.com/roach88/shopfloor/internal/schema"
)

// Fixture is seed data keyed by entity set name. Each row maps property
// names to scalar values and navigation names to related keys: one key
// for a to-one navigation, a list for a to-many one.
//
//	Products:
//	  - Id: 7
//	    Name: Pump
//	Orders:
//	  - Id: 1
//	    ProductBefore: 7
//	    Equipments: [10, 11]
type Fixture map[string][]map[string]any

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return f, nil
}

// LoadFixture reads and decodes a YAML fixture file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// SeedResult counts what Seed wrote.
type SeedResult struct {
	Rows  int
	Links int
}

// Seed writes every row of f in one transaction, then links them. Sets
// are inserted in model order; links run after all rows exist so
// foreign keys may point forward.
func (s *Store) Seed(ctx context.Context, f Fixture) (SeedResult, error) {
	var res SeedResult
	for name := range f {
		if _, err := s.set(name); err != nil {
			return res, fmt.Errorf("seed: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("seed: begin: %w", err)
	}
	defer tx.Rollback()

	type pendingLink struct {
		set    string
		key    ir.Value
		nav    string
		target ir.Value
	}
	var links []pendingLink

	for _, set := range s.model.Sets {
		for i, row := range f[set.Name] {
			values, navs, err := splitRow(s.model, &set, row)
			if err == nil {
				err = requireKey(&set, values)
			}
			if err != nil {
				return SeedResult{}, fmt.Errorf("seed %s[%d]: %w", set.Name, i, err)
			}
			if err := s.insert(ctx, tx, set.Name, values); err != nil {
				return SeedResult{}, fmt.Errorf("seed %s[%d]: %w", set.Name, i, err)
			}
			res.Rows++
			key := values[set.Key[0]]
			for _, n := range navs {
				for _, target := range n.targets {
					links = append(links, pendingLink{set: set.Name, key: key, nav: n.name, target: target})
				}
			}
		}
	}

	for _, l := range links {
		if err := s.link(ctx, tx, l.set, l.key, l.nav, l.target); err != nil {
			return SeedResult{}, fmt.Errorf("seed: %w", err)
		}
		res.Links++
	}

	if err := tx.Commit(); err != nil {
		return SeedResult{}, fmt.Errorf("seed: commit: %w", err)
	}
	return res, nil
}

type navValues struct {
	name    string
	targets []ir.Value
}

// splitRow separates a fixture row into property values and navigation
// targets, converting each to the declared kind.
func splitRow(model *schema.Model, set *schema.EntitySet, row map[string]any) (map[string]ir.Value, []navValues, error) {
	values := make(map[string]ir.Value, len(row))
	var navs []navValues

	for _, p := range set.Properties {
		raw, ok := row[p.Name]
		if !ok {
			continue
		}
		v, err := fixtureValue(raw, p.Kind)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w: %v", p.Name, ErrInvalidValue, err)
		}
		values[p.Name] = v
	}
	for _, nav := range set.Navigations {
		raw, ok := row[nav.Name]
		if !ok || raw == nil {
			continue
		}
		target, _ := model.Set(nav.Target)
		kind := target.KeyProperties()[0].Kind

		var items []any
		if list, isList := raw.([]any); isList {
			if !nav.Many {
				return nil, nil, fmt.Errorf("%w: %s is to-one and takes a single key", ErrInvalidValue, nav.Name)
			}
			items = list
		} else {
			items = []any{raw}
		}

		nv := navValues{name: nav.Name}
		for _, item := range items {
			v, err := fixtureValue(item, kind)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w: %v", nav.Name, ErrInvalidValue, err)
			}
			nv.targets = append(nv.targets, v)
		}
		navs = append(navs, nv)
	}

	for name := range row {
		if _, ok := set.Property(name); ok {
			continue
		}
		if _, ok := set.Navigation(name); ok {
			continue
		}
		return nil, nil, fmt.Errorf("%w %q", querysql.ErrUnknownField, name)
	}
	return values, navs, nil
}

// requireKey checks that every key property of set has a value.
func requireKey(set *schema.EntitySet, values map[string]ir.Value) error {
	for _, k := range set.Key {
		if values[k] == nil {
			return fmt.Errorf("%w: key %s is required", ErrInvalidValue, k)
		}
	}
	return nil
}

// fixtureValue converts a decoded YAML scalar into a Value of kind.
func fixtureValue(raw any, kind ir.Kind) (ir.Value, error) {
	switch v := raw.(type) {
	case int:
		raw = int64(v)
	case float64:
		if kind == ir.KindInt && v == float64(int64(v)) {
			raw = int64(v)
		}
	case time.Time:
		if kind == ir.KindTimestamp {
			return ir.Timestamp{Time: v.UTC()}, nil
		}
	}
	return ir.FromNative(raw, kind)
}
