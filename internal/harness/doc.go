// Package harness runs YAML request scenarios against the query engine.
//
// A scenario seeds a fresh in-memory SQLite store from an inline fixture
// (or the shop-floor fixture when none is given), runs a flow of
// collection, entity and property reads through engine.Engine, and
// checks each step's outcome against its expect clause. Every step
// leaves one TraceEvent; assertions then inspect the trace and the
// final table state.
//
// Scenario format:
//
//	name: filter_name_eq
//	description: Name eq 'Pump' matches only the pump
//	request_id: scenario-a
//	fixture:
//	  Products:
//	    - {Id: 1, Name: Pump}
//	    - {Id: 2, Name: Valve}
//	flow:
//	  - read: Products
//	    filter:
//	      binary: eq
//	      left: {field: Name}
//	      right: {literal: "'Pump'"}
//	    expect:
//	      ids: ["Products(1)"]
//	assertions:
//	  - type: trace_count
//	    entity_set: Products
//	    count: 1
//
// Fixture rows are stamped with audit fields from a deterministic clock
// and requests draw their id from a fixed generator, so the trace of a
// scenario is identical on every run. RunWithGolden compares it against
// testdata/golden/<name>.golden:
//
//	go test ./internal/harness -update
package harness
