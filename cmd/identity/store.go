package identity

import (
	"context"
	"time"
)

// CreateAccountInput describes a registration. Email must already be normalized.
type CreateAccountInput struct {
	Email        string
	DisplayName  string
	PasswordHash string
	Now          time.Time
}

// RotateSessionInput overwrites a session's token pair in place.
// The update only applies while the row still carries OldRefreshHash and is not revoked.
type RotateSessionInput struct {
	SessionID        string
	OldRefreshHash   string
	AccessHash       string
	RefreshHash      string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Store is the credential persistence boundary.
//
// Lookups return ErrNotFound when nothing matches. Conditional updates that
// lose a race return ErrNotActive. Everything else is ErrInternal.
type Store interface {
	CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error)
	FindAccountByEmail(ctx context.Context, email string) (Account, error)
	FindAccountByID(ctx context.Context, userID string) (Account, error)

	// RecordLoginFailure atomically counts a failed password. When the count
	// reaches threshold it sets lockUntil, resets the counter and reports true.
	RecordLoginFailure(ctx context.Context, userID string, threshold int, lockUntil, now time.Time) (locked bool, err error)
	// ClearLoginFailures resets the counter and lockout window after a successful login.
	ClearLoginFailures(ctx context.Context, userID string, now time.Time) error

	// SetPendingMFASecret stores an encrypted TOTP secret with MFA still disabled.
	SetPendingMFASecret(ctx context.Context, userID, secretEncrypted string, now time.Time) error
	// EnableMFA turns MFA on and replaces every recovery code with codeHashes.
	// It returns ErrNotFound unless the stored secret still equals verifiedSecret.
	EnableMFA(ctx context.Context, userID, verifiedSecret string, codeHashes []string, now time.Time) error
	// DisableMFA clears the secret and deletes all recovery codes.
	DisableMFA(ctx context.Context, userID string, now time.Time) error
	// ConsumeRecoveryCode marks a matching unused code as used. It reports false
	// when no unused code matched (including one consumed concurrently).
	ConsumeRecoveryCode(ctx context.Context, userID, codeHash string, now time.Time) (bool, error)

	CreateSession(ctx context.Context, s Session) error
	FindSessionByAccessHash(ctx context.Context, hash string) (Session, error)
	FindSessionByRefreshHash(ctx context.Context, hash string) (Session, error)
	RotateSession(ctx context.Context, in RotateSessionInput) error
	// RevokeSession is idempotent; an already revoked or missing session is not an error.
	RevokeSession(ctx context.Context, sessionID string, now time.Time) error
	RevokeAllSessions(ctx context.Context, userID string, now time.Time) error

	CreateResetToken(ctx context.Context, t PasswordResetToken) error
	FindResetToken(ctx context.Context, hash string) (PasswordResetToken, error)
	// CompletePasswordReset atomically marks the token used, stores the new password
	// hash, clears lockout state and revokes every session of the user.
	CompletePasswordReset(ctx context.Context, tokenID, userID, passwordHash string, now time.Time) error

	AppendAudit(ctx context.Context, ev AuditEvent) error
}
