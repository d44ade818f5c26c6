package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/shopfloor/internal/ir"
)

// CompileError reports a problem in a model definition, with the CUE
// source position when one is known.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile turns a CUE value holding an entity_set struct into a Model
// and checks it for consistency.
func Compile(v cue.Value) (*Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	setsVal := v.LookupPath(cue.ParsePath("entity_set"))
	if !setsVal.Exists() {
		return nil, &CompileError{
			Field:   "entity_set",
			Message: "at least one entity set is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := setsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	model := &Model{}
	for iter.Next() {
		set, err := compileSet(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		model.Sets = append(model.Sets, *set)
	}
	if len(model.Sets) == 0 {
		return nil, &CompileError{
			Field:   "entity_set",
			Message: "at least one entity set is required",
			Pos:     setsVal.Pos(),
		}
	}

	if err := model.validate(); err != nil {
		return nil, err
	}
	return model, nil
}

func compileSet(name string, v cue.Value) (*EntitySet, error) {
	set := &EntitySet{Name: name}
	var err error

	if set.Type, err = requiredString(v, "type"); err != nil {
		return nil, err
	}
	if set.Table, err = requiredString(v, "table"); err != nil {
		return nil, err
	}

	keyVal := v.LookupPath(cue.ParsePath("key"))
	if !keyVal.Exists() {
		return nil, &CompileError{Field: "key", Message: fmt.Sprintf("entity set %s needs a key", name), Pos: v.Pos()}
	}
	keyIter, err := keyVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for keyIter.Next() {
		k, err := keyIter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		set.Key = append(set.Key, k)
	}

	if set.Properties, err = compileProperties(v); err != nil {
		return nil, err
	}
	if set.Navigations, err = compileNavigations(v); err != nil {
		return nil, err
	}
	return set, nil
}

func compileProperties(v cue.Value) ([]Property, error) {
	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return nil, &CompileError{Field: "properties", Message: "properties are required", Pos: v.Pos()}
	}
	iter, err := propsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var props []Property
	for iter.Next() {
		pv := iter.Value()
		p := Property{Name: iter.Label(), Nullable: true}

		kindText, err := requiredString(pv, "kind")
		if err != nil {
			return nil, err
		}
		if p.Kind, err = ir.ParseKind(kindText); err != nil {
			return nil, &CompileError{Field: "kind", Message: err.Error(), Pos: pv.Pos()}
		}
		if p.Column, err = requiredString(pv, "column"); err != nil {
			return nil, err
		}
		if nv := pv.LookupPath(cue.ParsePath("nullable")); nv.Exists() {
			if p.Nullable, err = nv.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		props = append(props, p)
	}
	return props, nil
}

func compileNavigations(v cue.Value) ([]Navigation, error) {
	navsVal := v.LookupPath(cue.ParsePath("navigation"))
	if !navsVal.Exists() {
		return nil, nil
	}
	iter, err := navsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var navs []Navigation
	for iter.Next() {
		nv := iter.Value()
		nav := Navigation{Name: iter.Label()}

		if nav.Target, err = requiredString(nv, "target"); err != nil {
			return nil, err
		}
		if mv := nv.LookupPath(cue.ParsePath("many")); mv.Exists() {
			if nav.Many, err = mv.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}

		styles := 0
		if cv := nv.LookupPath(cue.ParsePath("column")); cv.Exists() {
			styles++
			nav.Style = JoinColumn
			if nav.Column, err = cv.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if iv := nv.LookupPath(cue.ParsePath("inverse")); iv.Exists() {
			styles++
			nav.Style = JoinInverse
			if nav.Column, err = iv.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if tv := nv.LookupPath(cue.ParsePath("through")); tv.Exists() {
			styles++
			nav.Style = JoinThrough
			if nav.Through.Table, err = requiredString(tv, "table"); err != nil {
				return nil, err
			}
			if nav.Through.Source, err = requiredString(tv, "source"); err != nil {
				return nil, err
			}
			if nav.Through.Target, err = requiredString(tv, "target"); err != nil {
				return nil, err
			}
		}
		if styles != 1 {
			return nil, &CompileError{
				Field:   "navigation",
				Message: fmt.Sprintf("%s must set exactly one of column, inverse or through", nav.Name),
				Pos:     nv.Pos(),
			}
		}
		if nav.Style == JoinColumn && nav.Many {
			return nil, &CompileError{
				Field:   "navigation",
				Message: fmt.Sprintf("%s: a column join is to-one and cannot set many", nav.Name),
				Pos:     nv.Pos(),
			}
		}
		if nav.Style != JoinColumn && !nav.Many {
			return nil, &CompileError{
				Field:   "navigation",
				Message: fmt.Sprintf("%s: %s joins are to-many and need many: true", nav.Name, nav.Style),
				Pos:     nv.Pos(),
			}
		}
		navs = append(navs, nav)
	}
	return navs, nil
}

// validate checks cross-references that CUE itself cannot see.
func (m *Model) validate() error {
	seenTables := make(map[string]string, len(m.Sets))
	for i := range m.Sets {
		s := &m.Sets[i]
		if other, dup := seenTables[s.Table]; dup {
			return &CompileError{Field: "table", Message: fmt.Sprintf("%s and %s share table %s", other, s.Name, s.Table)}
		}
		seenTables[s.Table] = s.Name

		if len(s.Key) == 0 {
			return &CompileError{Field: "key", Message: fmt.Sprintf("entity set %s needs a key", s.Name)}
		}
		seen := make(map[string]bool, len(s.Properties))
		for _, p := range s.Properties {
			if seen[p.Name] {
				return &CompileError{Field: "properties", Message: fmt.Sprintf("%s.%s declared twice", s.Name, p.Name)}
			}
			seen[p.Name] = true
		}
		for _, k := range s.Key {
			p, ok := s.Property(k)
			if !ok {
				return &CompileError{Field: "key", Message: fmt.Sprintf("%s key %s is not a property", s.Name, k)}
			}
			if p.Nullable {
				return &CompileError{Field: "key", Message: fmt.Sprintf("%s key %s must not be nullable", s.Name, k)}
			}
		}
		for _, nav := range s.Navigations {
			if _, ok := m.Set(nav.Target); !ok {
				return &CompileError{Field: "navigation", Message: fmt.Sprintf("%s.%s targets unknown entity set %s", s.Name, nav.Name, nav.Target)}
			}
			if _, clash := s.Property(nav.Name); clash {
				return &CompileError{Field: "navigation", Message: fmt.Sprintf("%s.%s clashes with a property", s.Name, nav.Name)}
			}
		}
	}

	// Navigation loading joins on a single key column.
	for _, s := range m.Sets {
		for _, nav := range s.Navigations {
			target, _ := m.Set(nav.Target)
			if len(s.Key) != 1 || len(target.Key) != 1 {
				return &CompileError{Field: "navigation", Message: fmt.Sprintf("%s.%s needs single-column keys on both sides", s.Name, nav.Name)}
			}
		}
	}
	return nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
