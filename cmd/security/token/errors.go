package token

import "errors"

// Public, stable errors for callers.
var (
	ErrPepperMissing  = errors.New("token pepper missing")
	ErrPepperTooShort = errors.New("token pepper too short")
)
