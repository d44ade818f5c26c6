package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/shopfloor/internal/ir"
)

// TraceSnapshot is the golden form of a run: the scenario name and its
// trace, rendered as canonical JSON.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// canonical maps the event onto plain values for ir.MarshalCanonical.
// Successful property reads carry their value and deletes the removed
// id; other successful steps carry an outline, empty when nothing
// matched.
func (e TraceEvent) canonical() map[string]any {
	m := map[string]any{
		"seq":        e.Seq,
		"operation":  e.Operation,
		"entity_set": e.EntitySet,
		"request_id": e.RequestID,
		"outcome":    e.Outcome,
	}
	if e.Count != nil {
		m["count"] = *e.Count
	}
	if e.Outcome != OutcomeOK {
		return m
	}
	switch e.Operation {
	case OpProperty:
		m["value"] = e.Value
		return m
	case OpDelete:
		m["deleted"] = e.IDs[0]
		m["unlinked"] = e.Unlinked
		return m
	}
	outline := e.Outline
	if outline == nil {
		outline = []any{}
	}
	m["outline"] = outline
	return m
}

// Canonical renders the snapshot as canonical JSON.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	trace := make([]any, len(s.Trace))
	for i, e := range s.Trace {
		trace[i] = e.canonical()
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
	})
}

// RunWithGolden runs scenario and compares its trace with
// testdata/golden/<name>.golden. Regenerate with
//
//	go test ./internal/harness -update
//
// The result is returned so callers can still check Pass.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace with the golden file
// for scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}
	traceJSON, err := snapshot.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
