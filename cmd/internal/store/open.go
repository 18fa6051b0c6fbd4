package store

import (
	"context"
	"fmt"
	"strings"
)

// Config selects and configures the engine.
type Config struct {
	Client      string // "sqlite" (default) or "postgres"
	SQLitePath  string
	DatabaseURL string
	MaxConns    int32
	MinConns    int32
}

// Open builds the configured engine and applies migrations.
func Open(ctx context.Context, cfg Config) (Engine, error) {
	var (
		eng Engine
		err error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Client)) {
	case "", "sqlite":
		eng, err = OpenSQLite(ctx, cfg.SQLitePath)
	case "postgres", "postgresql", "pg":
		eng, err = OpenPostgres(ctx, PostgresConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
	default:
		return nil, fmt.Errorf("store: unknown client %q", cfg.Client)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, eng); err != nil {
		_ = eng.Close()
		return nil, err
	}
	return eng, nil
}
