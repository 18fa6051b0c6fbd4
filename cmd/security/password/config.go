package password

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PBKDF2Params controls PBKDF2-SHA256 hashing cost.
type PBKDF2Params struct {
	Iterations int
	SaltLength int
	KeyLength  int
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int
	MaxLength int

	RequireLower  bool
	RequireUpper  bool
	RequireDigit  bool
	RequireSymbol bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params PBKDF2Params
	Policy Policy
}

// Algorithm is the identifier written as the first field of every encoded hash.
const Algorithm = "pbkdf2_sha256"

// MinIterations is the floor accepted for newly configured hashing cost.
const MinIterations = 200_000

// DefaultConfig returns the baseline used for account credentials.
func DefaultConfig() Config {
	return Config{
		Params: PBKDF2Params{
			Iterations: 210_000,
			SaltLength: 16,
			KeyLength:  32,
		},
		Policy: Policy{
			MinLength:     12,
			MaxLength:     256,
			RequireLower:  true,
			RequireUpper:  true,
			RequireDigit:  true,
			RequireSymbol: true,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - MOVIESCORE_PASSWORD_MIN_LEN
// - MOVIESCORE_PASSWORD_MAX_LEN
// - MOVIESCORE_PASSWORD_REQUIRE_CLASSES (true/false; toggles all character-class rules)
// - MOVIESCORE_PBKDF2_ITERATIONS
// - MOVIESCORE_PBKDF2_SALT_LEN
// - MOVIESCORE_PBKDF2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("MOVIESCORE_PASSWORD_MIN_LEN"); ok {
		n, err := atoiRange(v, 1, 1024)
		if err != nil {
			return Config{}, fmt.Errorf("MOVIESCORE_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("MOVIESCORE_PASSWORD_MAX_LEN"); ok {
		n, err := atoiRange(v, 1, 4096)
		if err != nil {
			return Config{}, fmt.Errorf("MOVIESCORE_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	if v, ok := os.LookupEnv("MOVIESCORE_PASSWORD_REQUIRE_CLASSES"); ok {
		b, err := parseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("MOVIESCORE_PASSWORD_REQUIRE_CLASSES: %w", err)
		}
		cfg.Policy.RequireLower = b
		cfg.Policy.RequireUpper = b
		cfg.Policy.RequireDigit = b
		cfg.Policy.RequireSymbol = b
	}

	if v, ok := os.LookupEnv("MOVIESCORE_PBKDF2_ITERATIONS"); ok {
		n, err := atoiRange(v, MinIterations, 5_000_000)
		if err != nil {
			return Config{}, fmt.Errorf("MOVIESCORE_PBKDF2_ITERATIONS: %w", err)
		}
		cfg.Params.Iterations = n
	}

	if v, ok := os.LookupEnv("MOVIESCORE_PBKDF2_SALT_LEN"); ok {
		n, err := atoiRange(v, 16, 64)
		if err != nil {
			return Config{}, fmt.Errorf("MOVIESCORE_PBKDF2_SALT_LEN: %w", err)
		}
		cfg.Params.SaltLength = n
	}

	if v, ok := os.LookupEnv("MOVIESCORE_PBKDF2_KEY_LEN"); ok {
		n, err := atoiRange(v, 32, 64)
		if err != nil {
			return Config{}, fmt.Errorf("MOVIESCORE_PBKDF2_KEY_LEN: %w", err)
		}
		cfg.Params.KeyLength = n
	}

	// Final sanity.
	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiRange(s string, minVal, maxVal int) (int, error) {
	s = strings.TrimSpace(s)
	i64, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}

	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}

func parseBool(s string) (bool, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean")
	}
}
