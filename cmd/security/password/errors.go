package password

import "errors"

// Public, stable errors for callers.
var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrMissingLowercase = errors.New("password missing lowercase letter")
	ErrMissingUppercase = errors.New("password missing uppercase letter")
	ErrMissingDigit     = errors.New("password missing digit")
	ErrMissingSymbol    = errors.New("password missing special character")
	ErrInvalidHash      = errors.New("invalid password hash")
)
