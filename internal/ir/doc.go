// Package ir provides the typed values shared by every layer of the
// shopfloor query engine.
//
// ir imports nothing internal. It owns:
//   - the sealed Value interface (String, Int, Float, Bool, Date, Timestamp)
//   - literal coercion from raw filter text (Coerce)
//   - cross-kind comparison (Compare, Equal)
//   - conversion to and from SQL driver values (Native, FromNative)
//   - canonical JSON for projections and golden files (MarshalCanonical)
package ir
