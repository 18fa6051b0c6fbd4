package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies all pending schema migrations for eng.
func Migrate(ctx context.Context, eng Engine) error {
	var (
		db      *sql.DB
		dialect goose.Dialect
	)

	switch e := eng.(type) {
	case *SQLite:
		db, dialect = e.DB(), goose.DialectSQLite3
	case *Postgres:
		db, dialect = stdlib.OpenDBFromPool(e.Pool()), goose.DialectPostgres
		defer func() { _ = db.Close() }()
	default:
		return fmt.Errorf("store: cannot migrate %T", eng)
	}

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("store: migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}
