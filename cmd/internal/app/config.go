package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	// Env is production, development or test.
	Env string `env:"MOVIESCORE_ENV" envDefault:"development"`

	HTTPAddr  string `env:"MOVIESCORE_HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel  string `env:"MOVIESCORE_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"MOVIESCORE_LOG_FORMAT" envDefault:"json"`

	ReadHeaderTimeout time.Duration `env:"MOVIESCORE_HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"MOVIESCORE_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"MOVIESCORE_HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"MOVIESCORE_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"MOVIESCORE_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxHeaderBytes    int           `env:"MOVIESCORE_HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	// DBClient selects the store engine: sqlite or postgres.
	DBClient    string `env:"MOVIESCORE_DB_CLIENT" envDefault:"sqlite"`
	SQLitePath  string `env:"MOVIESCORE_SQLITE_PATH" envDefault:"./.data/moviescore.db"`
	DatabaseURL string `env:"MOVIESCORE_DATABASE_URL"`
	DBMaxConns  int32  `env:"MOVIESCORE_DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"MOVIESCORE_DB_MIN_CONNS" envDefault:"0"`

	FrontendOrigin string `env:"MOVIESCORE_FRONTEND_ORIGIN" envDefault:"http://localhost:3000"`

	// RedisURL, when set, backs the auth throttle so budgets are shared across instances.
	RedisURL string `env:"MOVIESCORE_REDIS_URL"`

	// SeedLocalUser creates the development test account at startup. Ignored in production.
	SeedLocalUser *bool `env:"MOVIESCORE_SEED_LOCAL_USER"`
}

// Production reports whether production security defaults apply.
func (c Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// ShouldSeed reports whether the local test account should be ensured.
func (c Config) ShouldSeed() bool {
	if c.Production() {
		return false
	}
	if c.SeedLocalUser != nil {
		return *c.SeedLocalUser
	}
	return true
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.DBClient = strings.ToLower(strings.TrimSpace(cfg.DBClient))
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Env {
	case "production", "development", "test":
	default:
		return fmt.Errorf("invalid MOVIESCORE_ENV %q", c.Env)
	}
	if c.ReadHeaderTimeout <= 0 || c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0 {
		return errors.New("http timeouts must be positive")
	}
	if c.MaxHeaderBytes <= 0 {
		return errors.New("invalid MOVIESCORE_HTTP_MAX_HEADER_BYTES")
	}
	if c.DBMaxConns < 0 || c.DBMinConns < 0 {
		return errors.New("db pool sizes must not be negative")
	}
	return nil
}
