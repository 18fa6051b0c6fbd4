// Package ids provides ID primitives used across the service.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewHex returns a random 128-bit value encoded as 32 lowercase hex chars.
// Used as primary key for credential rows.
func NewHex() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// NewULID returns a new ULID string (26 chars).
// ULIDs sort by creation time, which suits append-only logs and request ids.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
