package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/shopfloor/internal/engine"
	"github.com/roach88/shopfloor/internal/graph"
	"github.com/roach88/shopfloor/internal/ir"
	"github.com/roach88/shopfloor/internal/predicate"
	"github.com/roach88/shopfloor/internal/query"
	"github.com/roach88/shopfloor/internal/schema"
	"github.com/roach88/shopfloor/internal/store"
	"github.com/roach88/shopfloor/internal/testutil"
)

// Harness is the scenario execution engine. It runs one scenario
// against its own store with a deterministic clock and request ids.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	clock  *testutil.DeterministicClock
	ids    *testutil.FixedRequestIDs
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database for the default model
// 2. Stamp and seed the scenario fixture
// 3. Execute flow steps, checking each expect clause
// 4. Evaluate assertions against the trace and tables
func Run(scenario *Scenario) (*Result, error) {
	model, err := schema.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	st, err := store.Open(":memory:", model)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ids := testutil.NewFixedRequestIDs(scenario.RequestID)
	h := &Harness{
		store:  st,
		clock:  testutil.NewDeterministicClock(testutil.DefaultEpoch, time.Minute),
		ids:    ids,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.engine = engine.New(st, ids,
		engine.WithLogger(h.logger),
		engine.WithClock(h.clock.Next),
		engine.WithUser(1),
	)

	ctx := context.Background()

	if err := h.seed(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to seed fixture: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		h.executeStep(ctx, i, step, result)
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// seed loads the scenario's fixture, stamps audit fields from the
// harness clock and writes it.
func (h *Harness) seed(ctx context.Context, scenario *Scenario) error {
	var (
		f   store.Fixture
		err error
	)
	switch {
	case scenario.Fixture != nil:
		f = scenario.Fixture
	case scenario.FixtureFile != "":
		if f, err = store.LoadFixture(scenario.FixtureFile); err != nil {
			return err
		}
	default:
		if f, err = store.ParseFixture(testutil.ShopFloorYAML()); err != nil {
			return err
		}
	}

	testutil.Stamp(f, h.store.Model(), h.clock)
	_, err = h.store.Seed(ctx, f)
	return err
}

// executeStep runs one flow step, records its trace event and checks
// its expect clause.
func (h *Harness) executeStep(ctx context.Context, index int, step FlowStep, result *Result) {
	ev, err := h.request(ctx, step)
	if err != nil {
		re := engine.NewRequestError(h.ids.Generate(), err)
		ev.Outcome = string(re.Code)
		ev.RequestID = re.RequestID
	}
	result.AddTrace(ev)

	for _, msg := range checkExpect(ev, step.Expect, err) {
		result.AddError(fmt.Sprintf("flow[%d] %s %s: %s", index, ev.Operation, ev.EntitySet, msg))
	}
}

// request sends step to the engine. The returned event is filled in as
// far as the request got.
func (h *Harness) request(ctx context.Context, step FlowStep) (TraceEvent, error) {
	op, set, _ := step.target()
	ev := TraceEvent{Operation: op, EntitySet: set}

	keys := make([]predicate.Key, len(step.Keys))
	for i, k := range step.Keys {
		keys[i] = predicate.Key{Name: k.Name, Text: k.Value}
	}

	switch op {
	case OpRead:
		opts, err := readOptions(step)
		if err != nil {
			return ev, err
		}
		res, err := h.engine.ReadCollection(ctx, set, opts)
		if err != nil {
			return ev, err
		}
		ev.RequestID = res.RequestID
		ev.Count = res.Count
		for _, p := range res.Entities {
			ev.IDs = append(ev.IDs, p.ID)
			ev.Outline = append(ev.Outline, Outline(p))
		}

	case OpProperty:
		res, err := h.engine.ReadProperty(ctx, set, keys, step.Property)
		if err != nil {
			return ev, err
		}
		ev.RequestID = res.RequestID
		ev.Value = res.Value

	case OpDelete:
		res, err := h.engine.DeleteEntity(ctx, set, keys)
		if err != nil {
			return ev, err
		}
		ev.RequestID = res.RequestID
		ev.IDs = []string{res.ID}
		ev.Unlinked = res.Unlinked

	default:
		var res *engine.EntityResult
		var err error
		switch op {
		case OpCreate:
			res, err = h.engine.CreateEntity(ctx, set, step.Values, step.Expand)
		case OpUpdate:
			res, err = h.engine.UpdateEntity(ctx, set, keys, step.Values, step.Expand)
		default:
			res, err = h.engine.ReadEntity(ctx, set, keys, step.Expand)
		}
		if err != nil {
			return ev, err
		}
		ev.RequestID = res.RequestID
		ev.IDs = []string{res.Entity.ID}
		ev.Outline = []any{Outline(res.Entity)}
	}

	ev.Outcome = OutcomeOK
	return ev, nil
}

func readOptions(step FlowStep) (engine.Options, error) {
	opts := engine.Options{
		Search: step.Search,
		Top:    step.Top,
		Skip:   step.Skip,
		Expand: step.Expand,
		Count:  step.Count,
	}
	if step.Filter != nil {
		node, err := step.Filter.Node()
		if err != nil {
			return opts, err
		}
		opts.Filter = node
	}
	for _, o := range step.OrderBy {
		opts.OrderBy = append(opts.OrderBy, query.OrderItem{Field: o.Field, Descending: o.Desc})
	}
	return opts, nil
}

// Outline reduces a projection to its identifiers: "@id" plus one entry
// per expanded navigation, holding the outline of what was embedded.
// Fields and unexpanded links are left out.
func Outline(p graph.Projection) map[string]any {
	out := map[string]any{"@id": p.ID}
	for _, l := range p.Links {
		if !l.Expanded {
			continue
		}
		switch l.Kind {
		case graph.LinkEntity:
			if l.Entity == nil {
				out[l.Name] = nil
			} else {
				out[l.Name] = Outline(*l.Entity)
			}
		case graph.LinkEntitySet:
			items := make([]any, len(l.Entities))
			for i, e := range l.Entities {
				items[i] = Outline(e)
			}
			out[l.Name] = items
		}
	}
	return out
}

// checkExpect compares a step's outcome against its expect clause and
// returns one message per mismatch.
func checkExpect(ev TraceEvent, expect *ExpectClause, err error) []string {
	if expect == nil {
		if err != nil {
			return []string{fmt.Sprintf("unexpected error: %v", err)}
		}
		return nil
	}

	if expect.Error != "" {
		if ev.Outcome != expect.Error {
			return []string{fmt.Sprintf("expected error %s, got outcome %s", expect.Error, ev.Outcome)}
		}
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}

	var problems []string
	if expect.IDs != nil && !slices.Equal(expect.IDs, ev.IDs) {
		problems = append(problems, fmt.Sprintf("expected ids %v, got %v", expect.IDs, ev.IDs))
	}
	if expect.Count != nil {
		switch {
		case ev.Count == nil:
			problems = append(problems, fmt.Sprintf("expected count %d, got none", *expect.Count))
		case *ev.Count != *expect.Count:
			problems = append(problems, fmt.Sprintf("expected count %d, got %d", *expect.Count, *ev.Count))
		}
	}
	if expect.Null && ev.Value != nil {
		problems = append(problems, fmt.Sprintf("expected null, got %s", ir.Format(ev.Value)))
	}
	if expect.Value != nil && !irValueEquals(expect.Value, ev.Value) {
		problems = append(problems, fmt.Sprintf("expected value %v, got %s", expect.Value, ir.Format(ev.Value)))
	}
	return problems
}

// irValueEquals compares a YAML-decoded expectation with an engine value.
func irValueEquals(expected any, actual ir.Value) bool {
	if actual == nil {
		return expected == nil
	}
	switch exp := expected.(type) {
	case string:
		return ir.Format(actual) == exp
	case int:
		return actual == ir.Int(exp)
	case float64:
		return actual == ir.Float(exp)
	case bool:
		return actual == ir.Bool(exp)
	}
	return false
}
