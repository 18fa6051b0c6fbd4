package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gouveags/moviescore/cmd/identity"
	"github.com/gouveags/moviescore/cmd/security/token"
)

// maxTokenLen bounds presented tokens before hashing.
const maxTokenLen = 4096

// Service issues, rotates, validates and revokes sessions.
// It holds no per-request state; everything durable lives in the store.
type Service struct {
	cfg    Config
	store  identity.Store
	pepper []byte
}

// Issued is the result of issuing or rotating a session.
// The plain tokens must be handed to the client exactly once and never logged.
type Issued struct {
	SessionID    string
	UserID       string
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// NewService constructs a Service. pepper keys every stored token hash.
func NewService(cfg Config, st identity.Store, pepper []byte) (*Service, error) {
	if st == nil {
		return nil, errors.New("session: nil store")
	}
	if len(pepper) == 0 {
		return nil, token.ErrPepperMissing
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, ErrConfig
	}
	if cfg.TokenBytes < token.MinBytes {
		cfg.TokenBytes = token.MinBytes
	}
	return &Service{cfg: cfg, store: st, pepper: pepper}, nil
}

// Config returns the effective configuration (cookie lifetimes follow it).
func (s *Service) Config() Config { return s.cfg }

// Issue creates a new session row for userID and returns fresh tokens.
func (s *Service) Issue(ctx context.Context, now time.Time, userID string) (Issued, error) {
	const op = "session.Issue"

	sessionID, err := identity.NewID()
	if err != nil {
		return Issued{}, identity.Internal(op, err)
	}
	pair, err := s.newPair(now)
	if err != nil {
		return Issued{}, identity.Internal(op, err)
	}

	err = s.store.CreateSession(ctx, identity.Session{
		ID:               sessionID,
		UserID:           userID,
		AccessTokenHash:  pair.accessHash,
		RefreshTokenHash: pair.refreshHash,
		AccessExpiresAt:  pair.accessExp,
		RefreshExpiresAt: pair.refreshExp,
		CreatedAt:        now,
	})
	if err != nil {
		return Issued{}, err
	}

	return pair.issued(sessionID, userID), nil
}

// Refresh redeems a refresh token and rotates the session's token pair in place.
//
//   - unknown or revoked token: Unauthorized "Invalid session."
//   - refresh expiry passed: the session is revoked, then Unauthorized "Session expired."
//   - lost a concurrent rotation: Unauthorized "Invalid session."
func (s *Service) Refresh(ctx context.Context, now time.Time, refreshToken string) (Issued, error) {
	const op = "session.Refresh"

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" || len(refreshToken) > maxTokenLen {
		return Issued{}, unauthorized(op, MsgInvalidSession)
	}
	hash := token.Hash(refreshToken, s.pepper)

	row, err := s.store.FindSessionByRefreshHash(ctx, hash)
	if err != nil {
		if identity.IsNotFound(err) {
			return Issued{}, unauthorized(op, MsgInvalidSession)
		}
		return Issued{}, err
	}
	if !token.Equal(row.RefreshTokenHash, hash) || row.Revoked() {
		return Issued{}, unauthorized(op, MsgInvalidSession)
	}
	if row.RefreshExpired(now) {
		if err := s.store.RevokeSession(ctx, row.ID, now); err != nil {
			return Issued{}, err
		}
		return Issued{}, unauthorized(op, MsgSessionExpired)
	}

	pair, err := s.newPair(now)
	if err != nil {
		return Issued{}, identity.Internal(op, err)
	}

	err = s.store.RotateSession(ctx, identity.RotateSessionInput{
		SessionID:        row.ID,
		OldRefreshHash:   hash,
		AccessHash:       pair.accessHash,
		RefreshHash:      pair.refreshHash,
		AccessExpiresAt:  pair.accessExp,
		RefreshExpiresAt: pair.refreshExp,
	})
	if err != nil {
		if identity.IsNotActive(err) {
			return Issued{}, unauthorized(op, MsgInvalidSession)
		}
		return Issued{}, err
	}

	return pair.issued(row.ID, row.UserID), nil
}

// Logout revokes the session owning refreshToken. It never fails for an
// absent, unknown or already revoked token.
func (s *Service) Logout(ctx context.Context, now time.Time, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" || len(refreshToken) > maxTokenLen {
		return nil
	}

	row, err := s.store.FindSessionByRefreshHash(ctx, token.Hash(refreshToken, s.pepper))
	if err != nil {
		if identity.IsNotFound(err) {
			return nil
		}
		return err
	}
	return s.store.RevokeSession(ctx, row.ID, now)
}

// Authenticate resolves an access token to its live session.
func (s *Service) Authenticate(ctx context.Context, now time.Time, accessToken string) (identity.Session, error) {
	const op = "session.Authenticate"

	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" || len(accessToken) > maxTokenLen {
		return identity.Session{}, unauthorized(op, MsgNotAuthenticated)
	}
	hash := token.Hash(accessToken, s.pepper)

	row, err := s.store.FindSessionByAccessHash(ctx, hash)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.Session{}, unauthorized(op, MsgNotAuthenticated)
		}
		return identity.Session{}, err
	}
	if !token.Equal(row.AccessTokenHash, hash) || !row.AccessActive(now) {
		return identity.Session{}, unauthorized(op, MsgNotAuthenticated)
	}
	return row, nil
}

// RevokeAll revokes all sessions for a user (e.g., after a password change).
func (s *Service) RevokeAll(ctx context.Context, now time.Time, userID string) error {
	return s.store.RevokeAllSessions(ctx, userID, now)
}

type tokenPair struct {
	access, refresh         string
	accessHash, refreshHash string
	accessExp, refreshExp   time.Time
}

func (s *Service) newPair(now time.Time) (tokenPair, error) {
	access, err := token.NewOpaque(s.cfg.TokenBytes)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, err := token.NewOpaque(s.cfg.TokenBytes)
	if err != nil {
		return tokenPair{}, err
	}
	return tokenPair{
		access:      access,
		refresh:     refresh,
		accessHash:  token.Hash(access, s.pepper),
		refreshHash: token.Hash(refresh, s.pepper),
		accessExp:   now.Add(s.cfg.AccessTokenTTL),
		refreshExp:  now.Add(s.cfg.RefreshTokenTTL),
	}, nil
}

func (p tokenPair) issued(sessionID, userID string) Issued {
	return Issued{
		SessionID:    sessionID,
		UserID:       userID,
		AccessToken:  p.access,
		AccessExp:    p.accessExp,
		RefreshToken: p.refresh,
		RefreshExp:   p.refreshExp,
	}
}
