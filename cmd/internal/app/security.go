package app

import (
	"errors"
	"fmt"

	"github.com/gouveags/moviescore/cmd/security/atrest"
	"github.com/gouveags/moviescore/cmd/security/token"
)

// ValidateSecurityConfig refuses to start a production process without real secrets.
// Development and test runs fall back to the built-in dev pepper and key.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.Production() {
		return nil
	}

	if _, err := token.PepperFromEnv(true); err != nil {
		switch {
		case errors.Is(err, token.ErrPepperMissing):
			return fmt.Errorf("security policy: %s is required in production", token.PepperEnvKey)
		case errors.Is(err, token.ErrPepperTooShort):
			return fmt.Errorf("security policy: %s is too short (min %d bytes)", token.PepperEnvKey, token.MinPepperBytes)
		default:
			return err
		}
	}

	if _, err := atrest.KeyFromEnv(true); err != nil {
		switch {
		case errors.Is(err, atrest.ErrKeyMissing):
			return fmt.Errorf("security policy: %s is required in production", atrest.KeyEnvKey)
		case errors.Is(err, atrest.ErrKeyInvalid):
			return fmt.Errorf("security policy: %s must be base64 of %d bytes", atrest.KeyEnvKey, atrest.KeySize)
		default:
			return err
		}
	}
	return nil
}
