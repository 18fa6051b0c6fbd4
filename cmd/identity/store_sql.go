package identity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gouveags/moviescore/cmd/identity/ids"
	"github.com/gouveags/moviescore/cmd/internal/store"
)

// SQLStore implements Store over either store engine.
// The engine is owned by the caller; this store must NOT close it.
type SQLStore struct {
	db store.Engine
}

// NewSQLStore returns a Store backed by db.
func NewSQLStore(db store.Engine) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("identity: nil engine")
	}
	return &SQLStore{db: db}, nil
}

var _ Store = (*SQLStore)(nil)

// ---- row types ----

type accountRow struct {
	ID                  string
	Email               string
	DisplayName         string
	CreatedAt           int64
	PasswordHash        string
	MFASecretEncrypted  *string
	MFAEnabled          int64
	FailedLoginAttempts int64
	LockedUntil         *int64
	UpdatedAt           int64
}

const accountColumns = `u.id, u.email, u.display_name, u.created_at,
	a.password_hash, a.mfa_secret_encrypted, a.mfa_enabled, a.failed_login_attempts, a.locked_until, a.updated_at`

func (r *accountRow) scan(row store.Row) error {
	return row.Scan(&r.ID, &r.Email, &r.DisplayName, &r.CreatedAt,
		&r.PasswordHash, &r.MFASecretEncrypted, &r.MFAEnabled, &r.FailedLoginAttempts, &r.LockedUntil, &r.UpdatedAt)
}

func (r accountRow) toAccount() Account {
	return Account{
		User: User{
			ID:          r.ID,
			Email:       r.Email,
			DisplayName: r.DisplayName,
			CreatedAt:   fromMillis(r.CreatedAt),
		},
		PasswordHash:        r.PasswordHash,
		MFAEnabled:          r.MFAEnabled != 0,
		MFASecretEncrypted:  r.MFASecretEncrypted,
		FailedLoginAttempts: int(r.FailedLoginAttempts),
		LockedUntil:         fromMillisPtr(r.LockedUntil),
		UpdatedAt:           fromMillis(r.UpdatedAt),
	}
}

type sessionRow struct {
	ID               string
	UserID           string
	AccessTokenHash  string
	RefreshTokenHash string
	AccessExpiresAt  int64
	RefreshExpiresAt int64
	RevokedAt        *int64
	CreatedAt        int64
}

const sessionColumns = `id, user_id, access_token_hash, refresh_token_hash,
	access_expires_at, refresh_expires_at, revoked_at, created_at`

func (r *sessionRow) scan(row store.Row) error {
	return row.Scan(&r.ID, &r.UserID, &r.AccessTokenHash, &r.RefreshTokenHash,
		&r.AccessExpiresAt, &r.RefreshExpiresAt, &r.RevokedAt, &r.CreatedAt)
}

func (r sessionRow) toSession() Session {
	return Session{
		ID:               r.ID,
		UserID:           r.UserID,
		AccessTokenHash:  r.AccessTokenHash,
		RefreshTokenHash: r.RefreshTokenHash,
		AccessExpiresAt:  fromMillis(r.AccessExpiresAt),
		RefreshExpiresAt: fromMillis(r.RefreshExpiresAt),
		RevokedAt:        fromMillisPtr(r.RevokedAt),
		CreatedAt:        fromMillis(r.CreatedAt),
	}
}

type resetTokenRow struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt int64
	UsedAt    *int64
	CreatedAt int64
}

func (r resetTokenRow) toToken() PasswordResetToken {
	return PasswordResetToken{
		ID:        r.ID,
		UserID:    r.UserID,
		TokenHash: r.TokenHash,
		ExpiresAt: fromMillis(r.ExpiresAt),
		UsedAt:    fromMillisPtr(r.UsedAt),
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

// ---- accounts ----

// CreateAccount inserts the user and its credential row in one transaction.
func (s *SQLStore) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	const op = "identity.CreateAccount"

	if in.Email == "" || in.PasswordHash == "" {
		return Account{}, E(op, ErrBadRequest, "email and password hash are required")
	}
	now := nowOr(in.Now)

	userID, err := NewID()
	if err != nil {
		return Account{}, Internal(op, err)
	}

	err = s.db.InTx(ctx, func(ctx context.Context, q store.Querier) error {
		if _, err := q.Exec(ctx,
			`INSERT INTO users (id, email, display_name, created_at) VALUES (?, ?, ?, ?)`,
			userID, in.Email, in.DisplayName, toMillis(now),
		); err != nil {
			return err
		}
		_, err := q.Exec(ctx,
			`INSERT INTO auth_users (
			     user_id, password_hash, mfa_secret_encrypted, mfa_enabled,
			     failed_login_attempts, locked_until, created_at, updated_at
			   ) VALUES (?, ?, NULL, 0, 0, NULL, ?, ?)`,
			userID, in.PasswordHash, toMillis(now), toMillis(now),
		)
		return err
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Account{}, OpError{Op: op, Kind: ErrConflict, Msg: "Account already exists.", Cause: err}
		}
		return Account{}, Internal(op, err)
	}

	ms := fromMillis(toMillis(now))
	return Account{
		User: User{
			ID:          userID,
			Email:       in.Email,
			DisplayName: in.DisplayName,
			CreatedAt:   ms,
		},
		PasswordHash: in.PasswordHash,
		UpdatedAt:    ms,
	}, nil
}

func (s *SQLStore) FindAccountByEmail(ctx context.Context, email string) (Account, error) {
	return s.findAccount(ctx, "identity.FindAccountByEmail", "u.email = ?", email)
}

func (s *SQLStore) FindAccountByID(ctx context.Context, userID string) (Account, error) {
	return s.findAccount(ctx, "identity.FindAccountByID", "u.id = ?", userID)
}

func (s *SQLStore) findAccount(ctx context.Context, op, where string, arg string) (Account, error) {
	if strings.TrimSpace(arg) == "" {
		return Account{}, E(op, ErrNotFound, "User not found.")
	}

	var r accountRow
	err := r.scan(s.db.QueryRow(ctx,
		`SELECT `+accountColumns+`
		   FROM users u
		   JOIN auth_users a ON a.user_id = u.id
		  WHERE `+where,
		arg,
	))
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return Account{}, E(op, ErrNotFound, "User not found.")
		}
		return Account{}, Internal(op, err)
	}
	return r.toAccount(), nil
}

// RecordLoginFailure increments the failure counter in place, so concurrent
// failures are all counted. The attempt that reaches threshold opens the
// lockout window and resets the counter; only that attempt reports locked.
func (s *SQLStore) RecordLoginFailure(ctx context.Context, userID string, threshold int, lockUntil, now time.Time) (bool, error) {
	const op = "identity.RecordLoginFailure"
	now = nowOr(now)

	var locked, missing bool
	err := s.db.InTx(ctx, func(ctx context.Context, q store.Querier) error {
		var attempts int
		err := q.QueryRow(ctx,
			`UPDATE auth_users
			    SET failed_login_attempts = failed_login_attempts + 1, updated_at = ?
			  WHERE user_id = ?
			RETURNING failed_login_attempts`,
			toMillis(now), userID,
		).Scan(&attempts)
		if errors.Is(err, store.ErrNoRows) {
			missing = true
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if attempts < threshold {
			return nil
		}

		n, err := q.Exec(ctx,
			`UPDATE auth_users
			    SET failed_login_attempts = 0, locked_until = ?, updated_at = ?
			  WHERE user_id = ? AND failed_login_attempts >= ?`,
			toMillis(lockUntil), toMillis(now), userID, threshold,
		)
		if err != nil {
			return err
		}
		locked = n == 1
		return nil
	})
	if missing {
		return false, E(op, ErrNotFound, "User not found.")
	}
	if err != nil {
		return false, Internal(op, err)
	}
	return locked, nil
}

// ClearLoginFailures resets the counter and lifts any lockout window.
func (s *SQLStore) ClearLoginFailures(ctx context.Context, userID string, now time.Time) error {
	const op = "identity.ClearLoginFailures"

	_, err := s.db.Exec(ctx,
		`UPDATE auth_users
		    SET failed_login_attempts = 0, locked_until = NULL, updated_at = ?
		  WHERE user_id = ?`,
		toMillis(nowOr(now)), userID,
	)
	if err != nil {
		return Internal(op, err)
	}
	return nil
}

// ---- MFA ----

func (s *SQLStore) SetPendingMFASecret(ctx context.Context, userID, secretEncrypted string, now time.Time) error {
	const op = "identity.SetPendingMFASecret"

	n, err := s.db.Exec(ctx,
		`UPDATE auth_users
		    SET mfa_secret_encrypted = ?, mfa_enabled = 0, updated_at = ?
		  WHERE user_id = ?`,
		secretEncrypted, toMillis(nowOr(now)), userID,
	)
	if err != nil {
		return Internal(op, err)
	}
	if n == 0 {
		return E(op, ErrNotFound, "User not found.")
	}
	return nil
}

// EnableMFA only applies while the stored secret is still verifiedSecret, so a
// setup racing with the confirmation cannot switch on an unconfirmed secret.
func (s *SQLStore) EnableMFA(ctx context.Context, userID, verifiedSecret string, codeHashes []string, now time.Time) error {
	const op = "identity.EnableMFA"
	now = nowOr(now)

	codeIDs := make([]string, len(codeHashes))
	for i := range codeHashes {
		id, err := NewID()
		if err != nil {
			return Internal(op, err)
		}
		codeIDs[i] = id
	}

	var missing bool
	err := s.db.InTx(ctx, func(ctx context.Context, q store.Querier) error {
		n, err := q.Exec(ctx,
			`UPDATE auth_users
			    SET mfa_enabled = 1, updated_at = ?
			  WHERE user_id = ? AND mfa_secret_encrypted = ?`,
			toMillis(now), userID, verifiedSecret,
		)
		if err != nil {
			return err
		}
		if n == 0 {
			missing = true
			return ErrNotFound
		}
		if _, err := q.Exec(ctx, `DELETE FROM auth_recovery_codes WHERE user_id = ?`, userID); err != nil {
			return err
		}
		for i, h := range codeHashes {
			if _, err := q.Exec(ctx,
				`INSERT INTO auth_recovery_codes (id, user_id, code_hash, used_at, created_at)
				 VALUES (?, ?, ?, NULL, ?)`,
				codeIDs[i], userID, h, toMillis(now),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if missing {
		return E(op, ErrNotFound, "Two-factor setup not found.")
	}
	if err != nil {
		return Internal(op, err)
	}
	return nil
}

func (s *SQLStore) DisableMFA(ctx context.Context, userID string, now time.Time) error {
	const op = "identity.DisableMFA"

	err := s.db.InTx(ctx, func(ctx context.Context, q store.Querier) error {
		if _, err := q.Exec(ctx,
			`UPDATE auth_users
			    SET mfa_secret_encrypted = NULL, mfa_enabled = 0, updated_at = ?
			  WHERE user_id = ?`,
			toMillis(nowOr(now)), userID,
		); err != nil {
			return err
		}
		_, err := q.Exec(ctx, `DELETE FROM auth_recovery_codes WHERE user_id = ?`, userID)
		return err
	})
	if err != nil {
		return Internal(op, err)
	}
	return nil
}

func (s *SQLStore) ConsumeRecoveryCode(ctx context.Context, userID, codeHash string, now time.Time) (bool, error) {
	const op = "identity.ConsumeRecoveryCode"

	if userID == "" || codeHash == "" {
		return false, nil
	}
	n, err := s.db.Exec(ctx,
		`UPDATE auth_recovery_codes
		    SET used_at = ?
		  WHERE user_id = ? AND code_hash = ? AND used_at IS NULL`,
		toMillis(nowOr(now)), userID, codeHash,
	)
	if err != nil {
		return false, Internal(op, err)
	}
	return n > 0, nil
}

// ListRecoveryCodes returns the stored recovery code rows of a user.
func (s *SQLStore) ListRecoveryCodes(ctx context.Context, userID string) ([]RecoveryCode, error) {
	const op = "identity.ListRecoveryCodes"

	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, code_hash, used_at, created_at
		   FROM auth_recovery_codes
		  WHERE user_id = ?
		  ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, Internal(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []RecoveryCode
	for rows.Next() {
		var (
			c         RecoveryCode
			usedAt    *int64
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.CodeHash, &usedAt, &createdAt); err != nil {
			return nil, Internal(op, err)
		}
		c.UsedAt = fromMillisPtr(usedAt)
		c.CreatedAt = fromMillis(createdAt)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, Internal(op, err)
	}
	return out, nil
}

// ---- sessions ----

func (s *SQLStore) CreateSession(ctx context.Context, sess Session) error {
	const op = "identity.CreateSession"

	if sess.ID == "" || sess.UserID == "" || sess.AccessTokenHash == "" || sess.RefreshTokenHash == "" {
		return E(op, ErrBadRequest, "incomplete session")
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO auth_sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, NULL, ?)`,
		sess.ID, sess.UserID, sess.AccessTokenHash, sess.RefreshTokenHash,
		toMillis(sess.AccessExpiresAt), toMillis(sess.RefreshExpiresAt), toMillis(nowOr(sess.CreatedAt)),
	)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return OpError{Op: op, Kind: ErrConflict, Msg: "token collision", Cause: err}
		}
		return Internal(op, err)
	}
	return nil
}

func (s *SQLStore) FindSessionByAccessHash(ctx context.Context, hash string) (Session, error) {
	return s.findSession(ctx, "identity.FindSessionByAccessHash", "access_token_hash", hash)
}

func (s *SQLStore) FindSessionByRefreshHash(ctx context.Context, hash string) (Session, error) {
	return s.findSession(ctx, "identity.FindSessionByRefreshHash", "refresh_token_hash", hash)
}

func (s *SQLStore) findSession(ctx context.Context, op, column, hash string) (Session, error) {
	if hash == "" {
		return Session{}, E(op, ErrNotFound, "session not found")
	}

	var r sessionRow
	err := r.scan(s.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM auth_sessions WHERE `+column+` = ?`,
		hash,
	))
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return Session{}, E(op, ErrNotFound, "session not found")
		}
		return Session{}, Internal(op, err)
	}
	return r.toSession(), nil
}

// RotateSession is an optimistic compare-and-swap on the refresh hash:
// of two concurrent rotations of the same token at most one matches.
func (s *SQLStore) RotateSession(ctx context.Context, in RotateSessionInput) error {
	const op = "identity.RotateSession"

	n, err := s.db.Exec(ctx,
		`UPDATE auth_sessions
		    SET access_token_hash = ?, refresh_token_hash = ?,
		        access_expires_at = ?, refresh_expires_at = ?
		  WHERE id = ?
		    AND refresh_token_hash = ?
		    AND revoked_at IS NULL`,
		in.AccessHash, in.RefreshHash,
		toMillis(in.AccessExpiresAt), toMillis(in.RefreshExpiresAt),
		in.SessionID, in.OldRefreshHash,
	)
	if err != nil {
		return Internal(op, err)
	}
	if n != 1 {
		return E(op, ErrNotActive, "session not active or token mismatch")
	}
	return nil
}

func (s *SQLStore) RevokeSession(ctx context.Context, sessionID string, now time.Time) error {
	const op = "identity.RevokeSession"

	_, err := s.db.Exec(ctx,
		`UPDATE auth_sessions
		    SET revoked_at = COALESCE(revoked_at, ?)
		  WHERE id = ?`,
		toMillis(nowOr(now)), sessionID,
	)
	if err != nil {
		return Internal(op, err)
	}
	return nil
}

func (s *SQLStore) RevokeAllSessions(ctx context.Context, userID string, now time.Time) error {
	const op = "identity.RevokeAllSessions"

	_, err := s.db.Exec(ctx,
		`UPDATE auth_sessions
		    SET revoked_at = ?
		  WHERE user_id = ? AND revoked_at IS NULL`,
		toMillis(nowOr(now)), userID,
	)
	if err != nil {
		return Internal(op, err)
	}
	return nil
}

// ---- password reset ----

func (s *SQLStore) CreateResetToken(ctx context.Context, t PasswordResetToken) error {
	const op = "identity.CreateResetToken"

	_, err := s.db.Exec(ctx,
		`INSERT INTO auth_password_reset_tokens (id, user_id, token_hash, expires_at, used_at, created_at)
		 VALUES (?, ?, ?, ?, NULL, ?)`,
		t.ID, t.UserID, t.TokenHash, toMillis(t.ExpiresAt), toMillis(nowOr(t.CreatedAt)),
	)
	if err != nil {
		return Internal(op, err)
	}
	return nil
}

func (s *SQLStore) FindResetToken(ctx context.Context, hash string) (PasswordResetToken, error) {
	const op = "identity.FindResetToken"

	if hash == "" {
		return PasswordResetToken{}, E(op, ErrNotFound, "reset token not found")
	}

	var r resetTokenRow
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, used_at, created_at
		   FROM auth_password_reset_tokens
		  WHERE token_hash = ?`,
		hash,
	).Scan(&r.ID, &r.UserID, &r.TokenHash, &r.ExpiresAt, &r.UsedAt, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return PasswordResetToken{}, E(op, ErrNotFound, "reset token not found")
		}
		return PasswordResetToken{}, Internal(op, err)
	}
	return r.toToken(), nil
}

func (s *SQLStore) CompletePasswordReset(ctx context.Context, tokenID, userID, passwordHash string, now time.Time) error {
	const op = "identity.CompletePasswordReset"
	ms := toMillis(nowOr(now))

	var raced bool
	err := s.db.InTx(ctx, func(ctx context.Context, q store.Querier) error {
		n, err := q.Exec(ctx,
			`UPDATE auth_password_reset_tokens
			    SET used_at = ?
			  WHERE id = ? AND user_id = ? AND used_at IS NULL`,
			ms, tokenID, userID,
		)
		if err != nil {
			return err
		}
		if n != 1 {
			raced = true
			return ErrNotActive
		}
		if _, err := q.Exec(ctx,
			`UPDATE auth_users
			    SET password_hash = ?, failed_login_attempts = 0, locked_until = NULL, updated_at = ?
			  WHERE user_id = ?`,
			passwordHash, ms, userID,
		); err != nil {
			return err
		}
		_, err = q.Exec(ctx,
			`UPDATE auth_sessions
			    SET revoked_at = ?
			  WHERE user_id = ? AND revoked_at IS NULL`,
			ms, userID,
		)
		return err
	})
	if raced {
		return E(op, ErrNotActive, "reset token already used")
	}
	if err != nil {
		return Internal(op, err)
	}
	return nil
}

// ---- audit ----

func (s *SQLStore) AppendAudit(ctx context.Context, ev AuditEvent) error {
	const op = "identity.AppendAudit"

	action := strings.TrimSpace(ev.Action)
	if action == "" {
		return E(op, ErrBadRequest, "missing action")
	}
	now := nowOr(ev.At)

	id, err := ids.NewULID(now)
	if err != nil {
		return Internal(op, err)
	}

	var meta *string
	if len(ev.Meta) > 0 {
		if b, err := json.Marshal(ev.Meta); err == nil {
			m := string(b)
			meta = &m
		}
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO auth_audit_log (id, user_id, session_id, action, ip, user_agent, meta, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ev.UserID, ev.SessionID, action, trimOrNil(ev.IP), trimOrNil(ev.UserAgent), meta, toMillis(now),
	)
	if err != nil {
		return Internal(op, err)
	}
	return nil
}

// ---- helpers ----

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func toMillisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func fromMillisPtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}

func trimOrNil(s string) *string {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return &v
}
