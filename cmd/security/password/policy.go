package password

import "unicode/utf8"

// Validate checks password policy and returns the first violated rule.
// Rules are evaluated in a fixed order: length, lowercase, uppercase, digit, symbol.
func (c Config) Validate(password string) error {
	// Count characters (runes), not bytes, to be user-friendly.
	n := utf8.RuneCountInString(password)

	if n < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if n > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			// Anything outside [A-Za-z0-9] counts as a special character.
			symbol = true
		}
	}

	switch {
	case c.Policy.RequireLower && !lower:
		return ErrMissingLowercase
	case c.Policy.RequireUpper && !upper:
		return ErrMissingUppercase
	case c.Policy.RequireDigit && !digit:
		return ErrMissingDigit
	case c.Policy.RequireSymbol && !symbol:
		return ErrMissingSymbol
	}

	return nil
}
