package session

import (
	"errors"

	"github.com/gouveags/moviescore/cmd/identity"
)

// ErrConfig is returned for invalid configuration.
var ErrConfig = errors.New("invalid config")

// Caller-facing messages.
const (
	MsgInvalidSession   = "Invalid session."
	MsgSessionExpired   = "Session expired."
	MsgNotAuthenticated = "Not authenticated."
)

func unauthorized(op, msg string) error {
	return identity.E(op, identity.ErrUnauthorized, msg)
}
