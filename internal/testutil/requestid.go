package testutil

// FixedRequestIDs returns the same request id every time.
//
// Unlike engine.FixedGenerator which returns ids in sequence, this
// generator never runs out, which suits scenarios that issue an unknown
// number of requests but want byte-identical output.
//
// Thread-safety: FixedRequestIDs is stateless and safe for concurrent use.
type FixedRequestIDs struct {
	id string
}

// NewFixedRequestIDs creates a generator for id. If id is empty,
// Generate() returns "test-request-default".
func NewFixedRequestIDs(id string) *FixedRequestIDs {
	if id == "" {
		id = "test-request-default"
	}
	return &FixedRequestIDs{id: id}
}

// Generate returns the fixed id.
//
// Implements engine.RequestIDGenerator.
func (g *FixedRequestIDs) Generate() string {
	return g.id
}
