package harness

import "github.com/roach88/shopfloor/internal/ir"

// Step operations recorded in the trace.
const (
	OpRead     = "read"
	OpGet      = "get"
	OpProperty = "property"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
)

// OutcomeOK is the outcome of a step that did not fail.
const OutcomeOK = "ok"

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Operation string `json:"operation"` // one of the Op constants
	EntitySet string `json:"entity_set"`
	RequestID string `json:"request_id"`

	// Outcome is OutcomeOK or the engine error code.
	Outcome string `json:"outcome"`

	// IDs are the identifiers of the returned top-level entities.
	IDs []string `json:"ids,omitempty"`

	// Count is the total match count when the read asked for it.
	Count *int64 `json:"count,omitempty"`

	// Value is the property value of a property read.
	Value ir.Value `json:"value,omitempty"`

	// Unlinked counts the links a delete cleared.
	Unlinked int `json:"unlinked,omitempty"`

	// Outline is the expanded shape of the returned entities: "@id" plus
	// one entry per embedded navigation, recursively.
	Outline []any `json:"outline,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends ev, numbering it after the events before it.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}
