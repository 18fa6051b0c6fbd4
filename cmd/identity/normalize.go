package identity

import (
	"strings"

	"github.com/gouveags/moviescore/cmd/identity/ids"
)

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewID returns a fresh primary key (128 random bits, hex).
func NewID() (string, error) {
	return ids.NewHex()
}
