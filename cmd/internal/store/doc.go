// Package store is the relational run/query contract used by the credential store.
//
// Statements are written once with positional "?" placeholders. Two engines
// implement Engine:
//   - SQLite (modernc.org/sqlite, embedded file or in-memory database)
//   - Postgres (pgx pool, placeholders rebound to $n)
//
// The engine is chosen once at startup (Open) and passed down explicitly.
// Timestamps are stored as unix milliseconds and booleans as 0/1 integers so
// the same statements and row structs work on both engines.
package store
