package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gouveags/moviescore/cmd/identity"
	"github.com/gouveags/moviescore/cmd/internal/auth/session"
	"github.com/gouveags/moviescore/cmd/security/atrest"
	"github.com/gouveags/moviescore/cmd/security/password"
	"github.com/gouveags/moviescore/cmd/security/totp"
)

// dummyPassword backs the hash verified for unknown emails so that a miss
// costs the same KDF work as a wrong password.
const dummyPassword = "Dummy-password-for-timing-0nly"

// Service is the auth core. It is safe for concurrent use.
type Service struct {
	cfg       Config
	store     identity.Store
	sessions  *session.Service
	passwords password.Config
	cipher    *atrest.Cipher
	totp      totp.Engine
	pepper    []byte

	now    func() time.Time
	resets ResetSender
	log    *slog.Logger

	// deliveries tracks reset sends still running in the background.
	deliveries sync.WaitGroup

	dummyHash string
}

// Deps are the collaborators the auth core is built from.
type Deps struct {
	Store     identity.Store
	Sessions  *session.Service
	Passwords password.Config
	Cipher    *atrest.Cipher
	Pepper    []byte
}

// Option configures optional behavior.
type Option func(*Service)

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithResetSender sets the out-of-band reset delivery channel.
func WithResetSender(rs ResetSender) Option {
	return func(s *Service) {
		if rs != nil {
			s.resets = rs
		}
	}
}

// WithLogger sets the logger used for best-effort side effects.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService wires the auth core.
func NewService(cfg Config, deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("account: nil store")
	case deps.Sessions == nil:
		return nil, errors.New("account: nil session service")
	case deps.Cipher == nil:
		return nil, errors.New("account: nil cipher")
	case len(deps.Pepper) == 0:
		return nil, errors.New("account: empty pepper")
	}
	if cfg.MaxFailedAttempts < 1 || cfg.LockoutDuration <= 0 || cfg.ResetTokenTTL <= 0 {
		return nil, ErrConfig
	}
	if cfg.RecoveryCodeCount <= 0 {
		cfg.RecoveryCodeCount = DefaultConfig().RecoveryCodeCount
	}
	if cfg.ResetDeliveryTimeout <= 0 {
		cfg.ResetDeliveryTimeout = DefaultConfig().ResetDeliveryTimeout
	}

	s := &Service{
		cfg:       cfg,
		store:     deps.Store,
		sessions:  deps.Sessions,
		passwords: deps.Passwords,
		cipher:    deps.Cipher,
		totp:      totp.New(cfg.TOTPIssuer),
		pepper:    deps.Pepper,
		now:       func() time.Time { return time.Now().UTC() },
		resets:    NoopResetSender{},
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	dummy, err := s.passwords.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}
	s.dummyHash = dummy

	return s, nil
}

// Result is a successful authentication: the public profile plus fresh tokens.
type Result struct {
	User    identity.Profile
	Session session.Issued
}

// RegisterInput is a new account request.
type RegisterInput struct {
	Email       string
	DisplayName string
	Password    string
}

// Register creates the account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Result, error) {
	const op = "account.Register"

	email := identity.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.DisplayName)
	if email == "" || name == "" {
		return Result{}, fail(op, identity.ErrBadRequest, msgRequired)
	}
	if err := s.passwords.Validate(in.Password); err != nil {
		return Result{}, policyError(op, s.passwords.Policy, err)
	}

	// Cheap pre-check before paying for the KDF; the unique index decides races.
	if _, err := s.store.FindAccountByEmail(ctx, email); err == nil {
		return Result{}, fail(op, identity.ErrConflict, msgAccountExists)
	} else if !identity.IsNotFound(err) {
		return Result{}, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return Result{}, identity.Internal(op, err)
	}

	acc, err := s.store.CreateAccount(ctx, identity.CreateAccountInput{
		Email:        email,
		DisplayName:  name,
		PasswordHash: hash,
		Now:          s.now(),
	})
	if err != nil {
		if identity.IsConflict(err) {
			return Result{}, fail(op, identity.ErrConflict, msgAccountExists)
		}
		return Result{}, err
	}

	return s.signIn(ctx, acc)
}

// LoginInput carries the credentials of a login attempt. At most one of
// TOTPCode and RecoveryCode may be set.
type LoginInput struct {
	Email        string
	Password     string
	TOTPCode     string
	RecoveryCode string
}

// Login authenticates a user.
//
// Order matters: the lockout window is checked before the password, the
// password before the second factor. Only password failures count towards
// the lockout threshold.
func (s *Service) Login(ctx context.Context, in LoginInput) (Result, error) {
	const op = "account.Login"
	now := s.now()

	acc, err := s.store.FindAccountByEmail(ctx, identity.NormalizeEmail(in.Email))
	if err != nil {
		if identity.IsNotFound(err) {
			_, _ = s.passwords.Verify(s.dummyHash, in.Password)
			return Result{}, fail(op, identity.ErrUnauthorized, msgInvalidCredentials)
		}
		return Result{}, err
	}

	if acc.LockedAt(now) {
		return Result{}, fail(op, identity.ErrLocked, msgLocked)
	}

	ok, err := s.passwords.Verify(acc.PasswordHash, in.Password)
	if err != nil && !errors.Is(err, password.ErrInvalidHash) {
		return Result{}, identity.Internal(op, err)
	}
	if !ok {
		if err := s.recordFailure(ctx, acc, now); err != nil {
			return Result{}, err
		}
		return Result{}, fail(op, identity.ErrUnauthorized, msgInvalidCredentials)
	}

	if acc.MFAEnabled {
		if err := s.checkSecondFactor(ctx, op, acc, in, now); err != nil {
			return Result{}, err
		}
	}

	if acc.FailedLoginAttempts != 0 || acc.LockedUntil != nil {
		if err := s.store.ClearLoginFailures(ctx, acc.ID, now); err != nil {
			return Result{}, err
		}
		acc.FailedLoginAttempts, acc.LockedUntil = 0, nil
	}

	return s.signIn(ctx, acc)
}

func (s *Service) recordFailure(ctx context.Context, acc identity.Account, now time.Time) error {
	until := now.Add(s.cfg.LockoutDuration)
	locked, err := s.store.RecordLoginFailure(ctx, acc.ID, s.cfg.MaxFailedAttempts, until, now)
	if err != nil {
		return err
	}
	if locked {
		s.log.Warn("auth.lockout", "user_id", acc.ID, "until", until)
	}
	return nil
}

func (s *Service) checkSecondFactor(ctx context.Context, op string, acc identity.Account, in LoginInput, now time.Time) error {
	code := strings.TrimSpace(in.TOTPCode)
	recovery := strings.TrimSpace(in.RecoveryCode)

	switch {
	case code == "" && recovery == "":
		return fail(op, identity.ErrUnauthorized, msgSecondFactor)
	case code != "" && recovery != "":
		return fail(op, identity.ErrBadRequest, msgOneFactor)
	case code != "":
		secret, err := s.mfaSecret(op, acc)
		if err != nil {
			return err
		}
		if !s.totp.Verify(code, secret, now) {
			return fail(op, identity.ErrUnauthorized, msgInvalidTOTP)
		}
		return nil
	default:
		used, err := s.store.ConsumeRecoveryCode(ctx, acc.ID, hashRecoveryCode(recovery, s.pepper), now)
		if err != nil {
			return err
		}
		if !used {
			return fail(op, identity.ErrUnauthorized, msgInvalidRecovery)
		}
		return nil
	}
}

// mfaSecret decrypts the stored TOTP secret. A missing or undecryptable
// secret on an MFA account is an internal invariant violation.
func (s *Service) mfaSecret(op string, acc identity.Account) (string, error) {
	if acc.MFASecretEncrypted == nil || *acc.MFASecretEncrypted == "" {
		return "", identity.OpError{Op: op, Kind: identity.ErrInternal, Msg: msgMFAMisconfigured}
	}
	secret, err := s.cipher.Decrypt(*acc.MFASecretEncrypted)
	if err != nil {
		return "", identity.OpError{Op: op, Kind: identity.ErrInternal, Msg: msgMFAMisconfigured, Cause: err}
	}
	return secret, nil
}

func (s *Service) signIn(ctx context.Context, acc identity.Account) (Result, error) {
	issued, err := s.sessions.Issue(ctx, s.now(), acc.ID)
	if err != nil {
		return Result{}, err
	}
	return Result{User: acc.Profile(), Session: issued}, nil
}

// Refresh rotates the session behind refreshToken and returns its user.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Result, error) {
	const op = "account.Refresh"

	issued, err := s.sessions.Refresh(ctx, s.now(), refreshToken)
	if err != nil {
		return Result{}, err
	}
	acc, err := s.store.FindAccountByID(ctx, issued.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return Result{}, fail(op, identity.ErrUnauthorized, session.MsgInvalidSession)
		}
		return Result{}, err
	}
	return Result{User: acc.Profile(), Session: issued}, nil
}

// Logout revokes the session behind refreshToken. It is idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.Logout(ctx, s.now(), refreshToken)
}

// AuthenticateAccessToken resolves an access token to the caller's profile.
func (s *Service) AuthenticateAccessToken(ctx context.Context, accessToken string) (identity.Profile, error) {
	const op = "account.AuthenticateAccessToken"

	sess, err := s.sessions.Authenticate(ctx, s.now(), accessToken)
	if err != nil {
		return identity.Profile{}, err
	}
	acc, err := s.store.FindAccountByID(ctx, sess.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.Profile{}, fail(op, identity.ErrUnauthorized, session.MsgNotAuthenticated)
		}
		return identity.Profile{}, err
	}
	return acc.Profile(), nil
}

// EnsureLocalUser creates a development account unless the email is taken.
// It reports whether an account was created.
func (s *Service) EnsureLocalUser(ctx context.Context, in RegisterInput) (bool, error) {
	const op = "account.EnsureLocalUser"

	email := identity.NormalizeEmail(in.Email)
	if _, err := s.store.FindAccountByEmail(ctx, email); err == nil {
		return false, nil
	} else if !identity.IsNotFound(err) {
		return false, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return false, policyError(op, s.passwords.Policy, err)
	}
	_, err = s.store.CreateAccount(ctx, identity.CreateAccountInput{
		Email:        email,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		PasswordHash: hash,
		Now:          s.now(),
	})
	if identity.IsConflict(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
