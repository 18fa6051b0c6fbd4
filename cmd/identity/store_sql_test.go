package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gouveags/moviescore/cmd/internal/store"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()

	eng, err := store.Open(ctx, store.Config{Client: "sqlite", SQLitePath: store.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	s, err := NewSQLStore(eng)
	require.NoError(t, err)
	return s
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustAccount(t *testing.T, s *SQLStore, email string) Account {
	t.Helper()
	a, err := s.CreateAccount(context.Background(), CreateAccountInput{
		Email:        email,
		DisplayName:  "Alice",
		PasswordHash: "pbkdf2_sha256$1$c2FsdA$aGFzaA",
		Now:          t0,
	})
	require.NoError(t, err)
	return a
}

func mustSession(t *testing.T, s *SQLStore, userID, access, refresh string) Session {
	t.Helper()
	id, err := NewID()
	require.NoError(t, err)
	sess := Session{
		ID:               id,
		UserID:           userID,
		AccessTokenHash:  access,
		RefreshTokenHash: refresh,
		AccessExpiresAt:  t0.Add(5 * time.Minute),
		RefreshExpiresAt: t0.Add(7 * 24 * time.Hour),
		CreatedAt:        t0,
	}
	require.NoError(t, s.CreateSession(context.Background(), sess))
	return sess
}

func TestSQLStore_CreateAndFindAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustAccount(t, s, "alice@example.com")
	require.Len(t, a.ID, 32)

	byEmail, err := s.FindAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, a.ID, byEmail.ID)
	require.Equal(t, "Alice", byEmail.DisplayName)
	require.False(t, byEmail.MFAEnabled)
	require.Nil(t, byEmail.LockedUntil)
	require.Nil(t, byEmail.MFASecretEncrypted)
	require.True(t, byEmail.CreatedAt.Equal(t0))

	byID, err := s.FindAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, byEmail, byID)

	_, err = s.FindAccountByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_CreateAccount_DuplicateEmailConflicts(t *testing.T) {
	s := newTestStore(t)
	mustAccount(t, s, "dup@example.com")

	_, err := s.CreateAccount(context.Background(), CreateAccountInput{
		Email:        "dup@example.com",
		DisplayName:  "Other",
		PasswordHash: "x",
		Now:          t0,
	})
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, ErrConflict, KindOf(err))
	require.Equal(t, "Account already exists.", MessageOf(err))
}

func TestSQLStore_RecordLoginFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustAccount(t, s, "lock@example.com")
	until := t0.Add(15 * time.Minute)

	for i := 1; i <= 2; i++ {
		locked, err := s.RecordLoginFailure(ctx, a.ID, 3, until, t0)
		require.NoError(t, err)
		require.False(t, locked)
		got, err := s.FindAccountByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, i, got.FailedLoginAttempts)
		require.Nil(t, got.LockedUntil)
	}

	locked, err := s.RecordLoginFailure(ctx, a.ID, 3, until, t0)
	require.NoError(t, err)
	require.True(t, locked)

	got, err := s.FindAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedLoginAttempts)
	require.NotNil(t, got.LockedUntil)
	require.True(t, got.LockedUntil.Equal(until))
	require.True(t, got.LockedAt(t0))
	require.False(t, got.LockedAt(until))

	require.NoError(t, s.ClearLoginFailures(ctx, a.ID, t0))
	got, err = s.FindAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedLoginAttempts)
	require.Nil(t, got.LockedUntil)

	_, err = s.RecordLoginFailure(ctx, "missing", 3, until, t0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_RecordLoginFailure_Concurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustAccount(t, s, "burst@example.com")
	until := t0.Add(time.Hour)

	const workers = 12
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		locks int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locked, err := s.RecordLoginFailure(ctx, a.ID, 5, until, t0)
			assert.NoError(t, err)
			if locked {
				mu.Lock()
				locks++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 12 failures with a threshold of 5: two windows opened, two failures left over.
	require.Equal(t, 2, locks)
	got, err := s.FindAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.FailedLoginAttempts)
	require.NotNil(t, got.LockedUntil)
}

func TestSQLStore_MFALifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustAccount(t, s, "mfa@example.com")

	err := s.EnableMFA(ctx, a.ID, "enc-secret", []string{"h1"}, t0)
	require.ErrorIs(t, err, ErrNotFound, "enable without a pending secret")

	require.NoError(t, s.SetPendingMFASecret(ctx, a.ID, "enc-secret", t0))
	got, _ := s.FindAccountByID(ctx, a.ID)
	require.False(t, got.MFAEnabled)
	require.Equal(t, "enc-secret", *got.MFASecretEncrypted)

	err = s.EnableMFA(ctx, a.ID, "enc-other", []string{"h1"}, t0)
	require.ErrorIs(t, err, ErrNotFound, "enable with a secret that is no longer stored")
	got, _ = s.FindAccountByID(ctx, a.ID)
	require.False(t, got.MFAEnabled)

	require.NoError(t, s.EnableMFA(ctx, a.ID, "enc-secret", []string{"h1", "h2"}, t0))
	got, _ = s.FindAccountByID(ctx, a.ID)
	require.True(t, got.MFAEnabled)

	// re-enable replaces the whole batch
	require.NoError(t, s.EnableMFA(ctx, a.ID, "enc-secret", []string{"h3", "h4", "h5"}, t0))
	codes, err := s.ListRecoveryCodes(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, codes, 3)

	ok, err := s.ConsumeRecoveryCode(ctx, a.ID, "h1", t0)
	require.NoError(t, err)
	require.False(t, ok, "old batch must be gone")

	ok, err = s.ConsumeRecoveryCode(ctx, a.ID, "h4", t0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.ConsumeRecoveryCode(ctx, a.ID, "h4", t0)
	require.NoError(t, err)
	require.False(t, ok, "codes are single use")

	require.NoError(t, s.DisableMFA(ctx, a.ID, t0))
	got, _ = s.FindAccountByID(ctx, a.ID)
	require.False(t, got.MFAEnabled)
	require.Nil(t, got.MFASecretEncrypted)
	codes, err = s.ListRecoveryCodes(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, codes)
}

func TestSQLStore_SessionRotation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustAccount(t, s, "sess@example.com")
	sess := mustSession(t, s, a.ID, "a1", "r1")

	found, err := s.FindSessionByRefreshHash(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, sess.ID, found.ID)
	require.True(t, found.AccessActive(t0))

	in := RotateSessionInput{
		SessionID:        sess.ID,
		OldRefreshHash:   "r1",
		AccessHash:       "a2",
		RefreshHash:      "r2",
		AccessExpiresAt:  t0.Add(10 * time.Minute),
		RefreshExpiresAt: t0.Add(8 * 24 * time.Hour),
	}
	require.NoError(t, s.RotateSession(ctx, in))

	_, err = s.FindSessionByRefreshHash(ctx, "r1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindSessionByAccessHash(ctx, "a1")
	require.ErrorIs(t, err, ErrNotFound)

	found, err = s.FindSessionByAccessHash(ctx, "a2")
	require.NoError(t, err)
	require.Equal(t, sess.ID, found.ID)

	// second rotation with the superseded hash loses
	in.AccessHash, in.RefreshHash = "a3", "r3"
	require.ErrorIs(t, s.RotateSession(ctx, in), ErrNotActive)
}

func TestSQLStore_RotateSession_ConcurrentSingleWinner(t *testing.T) {
	s := newTestStore(t)
	a := mustAccount(t, s, "race@example.com")
	sess := mustSession(t, s, a.ID, "a1", "r1")

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.RotateSession(context.Background(), RotateSessionInput{
				SessionID:        sess.ID,
				OldRefreshHash:   "r1",
				AccessHash:       "a-" + string(rune('a'+i)),
				RefreshHash:      "r-" + string(rune('a'+i)),
				AccessExpiresAt:  t0.Add(time.Minute),
				RefreshExpiresAt: t0.Add(time.Hour),
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrNotActive) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestSQLStore_RevokeIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustAccount(t, s, "revoke@example.com")
	sess := mustSession(t, s, a.ID, "a1", "r1")
	other := mustSession(t, s, a.ID, "a2", "r2")

	require.NoError(t, s.RevokeSession(ctx, sess.ID, t0))
	require.NoError(t, s.RevokeSession(ctx, sess.ID, t0.Add(time.Hour)))
	require.NoError(t, s.RevokeSession(ctx, "missing", t0))

	got, err := s.FindSessionByAccessHash(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got.RevokedAt)
	require.True(t, got.RevokedAt.Equal(t0), "first revocation time is kept")

	err = s.RotateSession(ctx, RotateSessionInput{SessionID: sess.ID, OldRefreshHash: "r1", AccessHash: "x", RefreshHash: "y"})
	require.ErrorIs(t, err, ErrNotActive)

	require.NoError(t, s.RevokeAllSessions(ctx, a.ID, t0))
	got, err = s.FindSessionByAccessHash(ctx, other.AccessTokenHash)
	require.NoError(t, err)
	require.True(t, got.Revoked())
}

func TestSQLStore_CompletePasswordReset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustAccount(t, s, "reset@example.com")
	mustSession(t, s, a.ID, "a1", "r1")

	until := t0.Add(time.Hour)
	_, err := s.RecordLoginFailure(ctx, a.ID, 1, until, t0)
	require.NoError(t, err)

	tokID, _ := NewID()
	require.NoError(t, s.CreateResetToken(ctx, PasswordResetToken{
		ID: tokID, UserID: a.ID, TokenHash: "t1", ExpiresAt: t0.Add(15 * time.Minute), CreatedAt: t0,
	}))

	tok, err := s.FindResetToken(ctx, "t1")
	require.NoError(t, err)
	require.False(t, tok.Used())
	require.False(t, tok.Expired(t0))
	require.True(t, tok.Expired(t0.Add(15*time.Minute)))

	require.NoError(t, s.CompletePasswordReset(ctx, tok.ID, a.ID, "new-hash", t0))

	got, err := s.FindAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)
	require.Zero(t, got.FailedLoginAttempts)
	require.Nil(t, got.LockedUntil)

	sess, err := s.FindSessionByAccessHash(ctx, "a1")
	require.NoError(t, err)
	require.True(t, sess.Revoked())

	tok, err = s.FindResetToken(ctx, "t1")
	require.NoError(t, err)
	require.True(t, tok.Used())

	err = s.CompletePasswordReset(ctx, tok.ID, a.ID, "other", t0)
	require.ErrorIs(t, err, ErrNotActive)
	got, _ = s.FindAccountByID(ctx, a.ID)
	require.Equal(t, "new-hash", got.PasswordHash, "second use must not change the password")
}

func TestSQLStore_AppendAudit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustAccount(t, s, "audit@example.com")

	require.NoError(t, s.AppendAudit(ctx, AuditEvent{
		Action:    "auth.login.success",
		UserID:    &a.ID,
		IP:        "203.0.113.7",
		UserAgent: "test",
		Meta:      map[string]any{"mfa": true},
		At:        t0,
	}))
	require.ErrorIs(t, s.AppendAudit(ctx, AuditEvent{Action: " "}), ErrBadRequest)

	var (
		action string
		meta   string
	)
	require.NoError(t, s.db.QueryRow(ctx,
		`SELECT action, meta FROM auth_audit_log WHERE user_id = ?`, a.ID).Scan(&action, &meta))
	require.Equal(t, "auth.login.success", action)
	require.JSONEq(t, `{"mfa":true}`, meta)
}
