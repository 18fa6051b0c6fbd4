package store

import (
	"context"
	"errors"
)

// Dialect names the SQL engine behind an Engine.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ErrNoRows is returned by Row.Scan when a query matched nothing, regardless of engine.
var ErrNoRows = errors.New("store: no rows")

// Rows iterates a multi-row result. Close must be called.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Row is a single-row result.
type Row interface {
	Scan(dest ...any) error
}

// Querier runs parameterized statements. Placeholders are "?".
type Querier interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
}

// Engine is a Querier bound to a database, able to open transactions.
type Engine interface {
	Querier

	// InTx runs fn in a transaction. fn's error (or panic) rolls back; nil commits.
	InTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error

	Dialect() Dialect
	Ping(ctx context.Context) error
	Close() error
}
