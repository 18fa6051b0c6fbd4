package account

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrConfig is returned for invalid configuration.
var ErrConfig = errors.New("invalid account config")

// Config holds the auth core policy knobs.
type Config struct {
	// MaxFailedAttempts consecutive password failures open a lockout window.
	MaxFailedAttempts int
	LockoutDuration   time.Duration

	ResetTokenTTL time.Duration
	// ResetDeliveryTimeout bounds one background reset delivery.
	ResetDeliveryTimeout time.Duration

	RecoveryCodeCount int
	TOTPIssuer        string

	// Production hides reset tokens from API responses.
	Production bool
}

func DefaultConfig() Config {
	return Config{
		MaxFailedAttempts:    5,
		LockoutDuration:      15 * time.Minute,
		ResetTokenTTL:        15 * time.Minute,
		ResetDeliveryTimeout: 30 * time.Second,
		RecoveryCodeCount:    8,
		TOTPIssuer:           "MovieScore",
	}
}

// LoadConfigFromEnv reads:
//   - MOVIESCORE_AUTH_MAX_FAILED_ATTEMPTS
//   - MOVIESCORE_AUTH_LOCKOUT
//   - MOVIESCORE_AUTH_RESET_TTL
//   - MOVIESCORE_AUTH_RESET_DELIVERY_TIMEOUT
//   - MOVIESCORE_AUTH_TOTP_ISSUER
func LoadConfigFromEnv(production bool) (Config, error) {
	cfg := DefaultConfig()
	cfg.Production = production

	if v := strings.TrimSpace(os.Getenv("MOVIESCORE_AUTH_MAX_FAILED_ATTEMPTS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return Config{}, ErrConfig
		}
		cfg.MaxFailedAttempts = n
	}

	if v := strings.TrimSpace(os.Getenv("MOVIESCORE_AUTH_LOCKOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.LockoutDuration = d
	}

	if v := strings.TrimSpace(os.Getenv("MOVIESCORE_AUTH_RESET_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.ResetTokenTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("MOVIESCORE_AUTH_RESET_DELIVERY_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.ResetDeliveryTimeout = d
	}

	if v := strings.TrimSpace(os.Getenv("MOVIESCORE_AUTH_TOTP_ISSUER")); v != "" {
		cfg.TOTPIssuer = v
	}

	return cfg, nil
}
