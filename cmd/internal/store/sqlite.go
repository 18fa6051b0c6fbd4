package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// MemoryPath selects a private in-memory SQLite database.
const MemoryPath = ":memory:"

// SQLite is the embedded engine over database/sql.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path.
// The pool is pinned to one connection: SQLite serializes writers anyway, and
// an in-memory database only exists on the connection that created it.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store: empty sqlite path")
	}

	dsn := "file::memory:?_pragma=foreign_keys(1)"
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("store: create sqlite dir: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := NewSQLite(db)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}
	return s, nil
}

// NewSQLite wraps an already opened database. The engine owns db from here on.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// DB exposes the underlying handle for migrations.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Dialect() Dialect { return DialectSQLite }

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return sqlQuerier{s.db}.Exec(ctx, query, args...)
}

func (s *SQLite) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return sqlQuerier{s.db}.Query(ctx, query, args...)
}

func (s *SQLite) QueryRow(ctx context.Context, query string, args ...any) Row {
	return sqlQuerier{s.db}.QueryRow(ctx, query, args...)
}

// InTx commits on success and rolls back on error or panic. Panics are rethrown.
func (s *SQLite) InTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, sqlQuerier{tx})
	return err
}

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlQuerier struct {
	q dbtx
}

func (s sqlQuerier) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s sqlQuerier) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s sqlQuerier) QueryRow(ctx context.Context, query string, args ...any) Row {
	return sqlRow{s.q.QueryRowContext(ctx, query, args...)}
}

type sqlRow struct {
	r *sql.Row
}

func (r sqlRow) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	return err
}
