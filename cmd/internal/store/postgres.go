package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig configures the client/server engine.
type PostgresConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// Postgres is the client/server engine over a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres builds a pool with the configured limits and validates connectivity.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("store: empty database url")
	}

	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("store: parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns >= 0 {
		pcfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	p := NewPostgres(pool)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	return p, nil
}

// NewPostgres wraps an existing pool. The engine owns the pool from here on.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Pool exposes the underlying pool for migrations.
func (p *Postgres) Pool() *pgxpool.Pool { return p.pool }

func (p *Postgres) Dialect() Dialect { return DialectPostgres }

// Ping checks if we can acquire a connection.
func (p *Postgres) Ping(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return pgQuerier{p.pool}.Exec(ctx, query, args...)
}

func (p *Postgres) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return pgQuerier{p.pool}.Query(ctx, query, args...)
}

func (p *Postgres) QueryRow(ctx context.Context, query string, args ...any) Row {
	return pgQuerier{p.pool}.QueryRow(ctx, query, args...)
}

// InTx runs fn in a READ COMMITTED transaction.
func (p *Postgres) InTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, pgQuerier{tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// pgxtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgQuerier struct {
	q pgxtx
}

func (p pgQuerier) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	ct, err := p.q.Exec(ctx, Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (p pgQuerier) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := p.q.Query(ctx, Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return pgRows{rows}, nil
}

func (p pgQuerier) QueryRow(ctx context.Context, query string, args ...any) Row {
	return pgRow{p.q.QueryRow(ctx, Rebind(query), args...)}
}

type pgRows struct {
	pgx.Rows
}

func (r pgRows) Close() error {
	r.Rows.Close()
	return r.Rows.Err()
}

type pgRow struct {
	r pgx.Row
}

func (r pgRow) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	return err
}
