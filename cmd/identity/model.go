package identity

import "time"

// User is the immutable identity anchor created at registration.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// Account is a user together with its credential row.
type Account struct {
	User

	PasswordHash        string
	MFAEnabled          bool
	MFASecretEncrypted  *string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	UpdatedAt           time.Time
}

// LockedAt reports whether the lockout window is still open at now.
func (a Account) LockedAt(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// Profile is the public view of an account.
type Profile struct {
	UserID      string
	Email       string
	DisplayName string
	MFAEnabled  bool
}

func (a Account) Profile() Profile {
	return Profile{
		UserID:      a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		MFAEnabled:  a.MFAEnabled,
	}
}

// Session is one access/refresh token pair. Only token hashes are stored.
// Refresh rotates the pair in place on the same row.
type Session struct {
	ID               string
	UserID           string
	AccessTokenHash  string
	RefreshTokenHash string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	RevokedAt        *time.Time
	CreatedAt        time.Time
}

func (s Session) Revoked() bool { return s.RevokedAt != nil }

// AccessActive reports whether the access token is usable at now.
func (s Session) AccessActive(now time.Time) bool {
	return !s.Revoked() && s.AccessExpiresAt.After(now)
}

// RefreshExpired reports whether the refresh token has passed its expiry at now.
func (s Session) RefreshExpired(now time.Time) bool {
	return !s.RefreshExpiresAt.After(now)
}

// PasswordResetToken is a single-use reset grant.
type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (t PasswordResetToken) Used() bool { return t.UsedAt != nil }

func (t PasswordResetToken) Expired(now time.Time) bool { return !t.ExpiresAt.After(now) }

// RecoveryCode is one single-use second-factor fallback.
type RecoveryCode struct {
	ID        string
	UserID    string
	CodeHash  string
	UsedAt    *time.Time
	CreatedAt time.Time
}

// AuditEvent is an append-only security log entry.
type AuditEvent struct {
	Action    string
	UserID    *string
	SessionID *string
	IP        string
	UserAgent string
	Meta      map[string]any
	At        time.Time
}
