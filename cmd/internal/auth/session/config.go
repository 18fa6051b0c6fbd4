package session

import (
	"os"
	"strconv"
	"time"

	"github.com/gouveags/moviescore/cmd/security/token"
)

// Config defines runtime configuration for the session subsystem.
type Config struct {
	// AccessTokenTTL is the lifetime of access tokens (and of the access cookie).
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the lifetime of refresh tokens. Rotation restarts it.
	RefreshTokenTTL time.Duration

	// TokenBytes is the entropy of each opaque token.
	TokenBytes int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		AccessTokenTTL:  5 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		TokenBytes:      token.MinBytes,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional (durations must be valid Go duration strings):
//   - MOVIESCORE_AUTH_ACCESS_TTL
//   - MOVIESCORE_AUTH_REFRESH_TTL
//   - MOVIESCORE_AUTH_TOKEN_BYTES
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("MOVIESCORE_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("MOVIESCORE_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = d
	}

	if v := os.Getenv("MOVIESCORE_AUTH_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < token.MinBytes || n > 64 {
			return Config{}, ErrConfig
		}
		cfg.TokenBytes = n
	}

	// A refresh token that dies before its access token is useless.
	if cfg.RefreshTokenTTL < cfg.AccessTokenTTL {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
