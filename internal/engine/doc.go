// Package engine runs shop-floor read requests end to end.
//
// A request names an entity set and carries the parts of a query: a
// filter tree, an ordering, key values, a page window and an expand
// depth. The engine composes them into one query.Spec, hands that to
// the storage collaborator, loads navigations up to the expand depth
// and flattens the result with graph.Projector.
//
// REQUEST FLOW:
//
//  1. A request id is drawn from the RequestIDGenerator
//  2. query.Composer compiles filter, keys, ordering and window
//  3. The Store runs the Spec and returns records
//  4. The Store expands navigations level by level (batched per level)
//  5. graph.Projector flattens each root with the same depth budget
//
// Every failure comes back as a *RequestError carrying a stable Code and
// a Class, with the original sentinel reachable through errors.Is.
//
// The engine holds no per-request state. One Engine may serve
// concurrent requests as long as its Store may.
package engine
