package account

import (
	"errors"
	"fmt"

	"github.com/gouveags/moviescore/cmd/identity"
	"github.com/gouveags/moviescore/cmd/security/password"
)

// Caller-facing messages.
const (
	msgInvalidCredentials = "Invalid credentials."
	msgLocked             = "Account temporarily locked. Please try later."
	msgSecondFactor       = "Two-factor code is required."
	msgOneFactor          = "Provide either a two-factor code or a recovery code."
	msgInvalidTOTP        = "Invalid two-factor code."
	msgInvalidRecovery    = "Invalid recovery code."
	msgMFAMisconfigured   = "Two-factor is misconfigured. Contact support."
	msgRequired           = "Email and display name are required."
	msgAccountExists      = "Account already exists."
	msgUserNotFound       = "User not found."
	msgInvalidReset       = "Invalid recovery token."
	msgResetExpired       = "Recovery token expired."
	msgSetupNotFound      = "Two-factor setup not found."
	msgMFAAlreadyEnabled  = "Two-factor is already enabled."
	msgMFANotEnabled      = "Two-factor is not enabled."
)

func fail(op string, kind error, msg string) error {
	return identity.E(op, kind, msg)
}

// policyError maps the first violated password rule to a BadRequest.
func policyError(op string, p password.Policy, err error) error {
	var msg string
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		msg = fmt.Sprintf("Password must contain at least %d characters.", p.MinLength)
	case errors.Is(err, password.ErrPasswordTooLong):
		msg = fmt.Sprintf("Password must contain at most %d characters.", p.MaxLength)
	case errors.Is(err, password.ErrMissingLowercase):
		msg = "Password must include a lowercase letter."
	case errors.Is(err, password.ErrMissingUppercase):
		msg = "Password must include an uppercase letter."
	case errors.Is(err, password.ErrMissingDigit):
		msg = "Password must include a number."
	case errors.Is(err, password.ErrMissingSymbol):
		msg = "Password must include a special character."
	default:
		return identity.Internal(op, err)
	}
	return identity.OpError{Op: op, Kind: identity.ErrBadRequest, Msg: msg, Cause: err}
}
