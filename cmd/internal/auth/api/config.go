package api

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gouveags/moviescore/cmd/internal/auth/session"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	// Production marks cookies Secure.
	Production   bool
	TrustProxy   bool
	MaxBodyBytes int64

	// Cookie lifetimes follow the session TTLs.
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Per-IP throttle for register, login and recovery routes.
	ThrottleMax    int
	ThrottleWindow time.Duration
}

// DefaultConfig returns the defaults for a development setup.
func DefaultConfig() Config {
	sess := session.DefaultConfig()
	return Config{
		MaxBodyBytes:   64 << 10,
		AccessTTL:      sess.AccessTokenTTL,
		RefreshTTL:     sess.RefreshTokenTTL,
		ThrottleMax:    30,
		ThrottleWindow: time.Minute,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
// Cookie lifetimes are taken from the session config so cookies and tokens expire together.
func LoadConfigFromEnv(production bool, sess session.Config) Config {
	def := DefaultConfig()
	cfg := Config{
		Production:     production,
		TrustProxy:     envBool("MOVIESCORE_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:   envInt64("MOVIESCORE_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		AccessTTL:      sess.AccessTokenTTL,
		RefreshTTL:     sess.RefreshTokenTTL,
		ThrottleMax:    envInt("MOVIESCORE_AUTH_THROTTLE_MAX", def.ThrottleMax),
		ThrottleWindow: envDuration("MOVIESCORE_AUTH_THROTTLE_WINDOW", def.ThrottleWindow),
	}

	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = def.AccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = def.RefreshTTL
	}

	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
