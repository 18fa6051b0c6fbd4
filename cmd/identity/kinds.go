package identity

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrBadRequest   = errors.New("bad_request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not_found")
	ErrLocked       = errors.New("locked")
	ErrInternal     = errors.New("internal")

	// ErrNotActive is a store-level outcome: a conditional update matched no row
	// (token already rotated, reset token already used). Services translate it.
	ErrNotActive = errors.New("not_active")
)

// Kinds lists the caller-facing kinds in mapping order.
var Kinds = []error{ErrBadRequest, ErrUnauthorized, ErrConflict, ErrNotFound, ErrLocked, ErrInternal}
