package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// PepperEnvKey is the env var name for the token pepper.
	// #nosec G101 -- not a credential; it's an environment variable name.
	PepperEnvKey = "MOVIESCORE_TOKEN_PEPPER"

	// DevPepper is used outside production when no pepper is configured.
	DevPepper = "moviescore-dev-token-pepper"

	// MinBytes is the minimum entropy of a generated opaque token.
	MinBytes = 32

	// MinPepperBytes is the minimum pepper size accepted in production.
	MinPepperBytes = 32
)

// NewOpaque returns a cryptographically random token of at least MinBytes bytes.
// It is URL-safe (base64url, no padding) so it can travel in cookies and JSON unchanged.
func NewOpaque(nBytes int) (string, error) {
	if nBytes < MinBytes {
		nBytes = MinBytes
	}

	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Hash returns the storage digest of token under pepper: hex(HMAC-SHA256(token, pepper)).
func Hash(token string, pepper []byte) string {
	m := hmac.New(sha256.New, pepper)
	_, _ = m.Write([]byte(token))
	return hex.EncodeToString(m.Sum(nil))
}

// Equal compares two secret-derived strings in constant time.
// Empty inputs never match.
func Equal(a, b string) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// PepperFromEnv returns the configured pepper.
// In production a missing or short pepper is an error; elsewhere DevPepper is the fallback.
func PepperFromEnv(production bool) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(PepperEnvKey))
	if raw == "" {
		if production {
			return nil, ErrPepperMissing
		}
		return []byte(DevPepper), nil
	}
	if production && len(raw) < MinPepperBytes {
		return nil, ErrPepperTooShort
	}
	return []byte(raw), nil
}
