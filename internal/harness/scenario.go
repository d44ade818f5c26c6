package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shopfloor/internal/queryir"
	"github.com/roach88/shopfloor/internal/store"
)

// Scenario defines a request scenario: seed data, a flow of requests and
// assertions over the resulting trace and tables.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RequestID is the fixed id every request of the scenario gets.
	// Defaults to "test-request-default".
	RequestID string `yaml:"request_id,omitempty"`

	// Fixture is inline seed data keyed by entity set.
	Fixture store.Fixture `yaml:"fixture,omitempty"`

	// FixtureFile is a YAML fixture path, relative to the scenario file.
	// When neither Fixture nor FixtureFile is set the shop-floor fixture
	// is seeded.
	FixtureFile string `yaml:"fixture_file,omitempty"`

	// Flow contains the requests to run, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and table state.
	// Supported types: trace_contains, trace_count, final_state
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FlowStep is one request. Exactly one of Read, Get, Create, Update
// and Delete names the entity set; Property narrows a Get to a single
// property.
type FlowStep struct {
	// Read runs a collection read.
	Read string `yaml:"read,omitempty"`

	// Get reads one entity by Keys.
	Get string `yaml:"get,omitempty"`

	// Create stores Values as a new entity.
	Create string `yaml:"create,omitempty"`

	// Update patches the entity at Keys with Values.
	Update string `yaml:"update,omitempty"`

	// Delete removes the entity at Keys.
	Delete string `yaml:"delete,omitempty"`

	// Keys address the entity of a Get, Update or Delete. An empty list
	// is sent as is.
	Keys []KeyStep `yaml:"keys,omitempty"`

	// Property reads a single property of the Get entity.
	Property string `yaml:"property,omitempty"`

	// Values is the row a Create or Update writes, shaped like a fixture
	// row.
	Values map[string]any `yaml:"values,omitempty"`

	Filter  *queryir.Document `yaml:"filter,omitempty"`
	OrderBy []OrderStep       `yaml:"orderby,omitempty"`
	Search  *string           `yaml:"search,omitempty"`
	Top     *int64            `yaml:"top,omitempty"`
	Skip    *int64            `yaml:"skip,omitempty"`
	Expand  *int              `yaml:"expand,omitempty"`
	Count   bool              `yaml:"count,omitempty"`

	// Expect is checked against the step's outcome. If nil, the step
	// must merely succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// KeyStep is one key property and its literal text, e.g. {name: Id,
// value: "42"}.
type KeyStep struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// OrderStep is one sort key.
type OrderStep struct {
	Field string `yaml:"field"`
	Desc  bool   `yaml:"desc,omitempty"`
}

// ExpectClause specifies the expected outcome of a step. Only the
// fields that are set are checked.
type ExpectClause struct {
	// Error is the expected engine error code. When set the step must
	// fail with exactly this code.
	Error string `yaml:"error,omitempty"`

	// IDs are the expected top-level identifiers, in order.
	IDs []string `yaml:"ids,omitempty"`

	// Count is the expected total match count.
	Count *int64 `yaml:"count,omitempty"`

	// Value is the expected property value.
	Value any `yaml:"value,omitempty"`

	// Null expects a null property value.
	Null bool `yaml:"null,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": some step matches operation/entity_set/outcome
	// - "trace_count": exactly Count steps match operation/entity_set/outcome
	// - "final_state": query a table and verify expected column values
	Type string `yaml:"type"`

	// Operation, EntitySet and Outcome select trace events. Empty
	// fields match anything.
	Operation string `yaml:"operation,omitempty"`
	EntitySet string `yaml:"entity_set,omitempty"`
	Outcome   string `yaml:"outcome,omitempty"`

	// Count is the expected number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Table is the table name (final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies column filters (final_state).
	// All columns must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected column values (final_state).
	// Subset match - only specified columns are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// FixtureFile is resolved relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.FixtureFile != "" && !filepath.IsAbs(scenario.FixtureFile) {
		scenario.FixtureFile = filepath.Join(filepath.Dir(path), scenario.FixtureFile)
	}
	if scenario.FixtureFile != "" {
		if _, err := os.Stat(scenario.FixtureFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: fixture file not found: %s", scenario.FixtureFile)
		}
	}
	return scenario, nil
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Fixture != nil && s.FixtureFile != "" {
		return fmt.Errorf("fixture and fixture_file are mutually exclusive")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// target returns the operation and entity set a step names, and how
// many operations it names.
func (step *FlowStep) target() (op, set string, n int) {
	for _, t := range []struct{ op, set string }{
		{OpRead, step.Read},
		{OpGet, step.Get},
		{OpCreate, step.Create},
		{OpUpdate, step.Update},
		{OpDelete, step.Delete},
	} {
		if t.set == "" {
			continue
		}
		if n == 0 {
			op, set = t.op, t.set
		}
		n++
	}
	if op == OpGet && step.Property != "" {
		op = OpProperty
	}
	return op, set, n
}

func validateStep(index int, step *FlowStep) error {
	op, _, n := step.target()
	switch {
	case n == 0:
		return fmt.Errorf("flow[%d]: one of read, get, create, update or delete is required", index)
	case n > 1:
		return fmt.Errorf("flow[%d]: only one of read, get, create, update or delete may be set", index)
	}

	if step.Property != "" && step.Get == "" {
		return fmt.Errorf("flow[%d]: property needs get", index)
	}
	if len(step.Keys) > 0 && (op == OpRead || op == OpCreate) {
		return fmt.Errorf("flow[%d]: keys need get, update or delete", index)
	}
	if step.Values != nil && op != OpCreate && op != OpUpdate {
		return fmt.Errorf("flow[%d]: values need create or update", index)
	}
	if step.Expand != nil && op == OpDelete {
		return fmt.Errorf("flow[%d]: expand does not apply to delete", index)
	}
	if op != OpRead && (step.Filter != nil || len(step.OrderBy) > 0 || step.Search != nil ||
		step.Top != nil || step.Skip != nil || step.Count) {
		return fmt.Errorf("flow[%d]: filter, orderby, search, top, skip and count need read", index)
	}

	for i, k := range step.Keys {
		if k.Name == "" {
			return fmt.Errorf("flow[%d].keys[%d]: name is required", index, i)
		}
	}
	for i, o := range step.OrderBy {
		if o.Field == "" {
			return fmt.Errorf("flow[%d].orderby[%d]: field is required", index, i)
		}
	}

	if e := step.Expect; e != nil && e.Error != "" && (len(e.IDs) > 0 || e.Count != nil || e.Value != nil || e.Null) {
		return fmt.Errorf("flow[%d].expect: error excludes ids, count, value and null", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Operation == "" && a.EntitySet == "" && a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: trace_contains needs operation, entity_set or outcome", index)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
