// Package store is the SQLite storage collaborator for an entity model.
//
// Tables are derived from the model (see DDL): one per entity set, with
// foreign key columns for to-one navigations and join tables for
// many-to-many ones. Reads take a query.Spec and compile it through
// querysql; writes take property values keyed by property name.
//
// # Deterministic Results
//
//   - Every SELECT ends its ORDER BY with the key columns
//   - Navigation loads order by source key, then target key
//
// # Navigation Loading
//
// Expand loads related rows level by level with a per-call
// graph-gophers/dataloader per navigation, so each level costs one
// query per navigation however many entities it holds.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Pattern filters call a casefold SQL function registered on every
// connection, so SQL and in-memory matching fold case the same way.
package store
