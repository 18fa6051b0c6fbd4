package account

import (
	"context"
	"strings"
	"time"

	"github.com/gouveags/moviescore/cmd/identity"
	"github.com/gouveags/moviescore/cmd/security/token"
)

// ResetRequest is the neutral answer to a reset request. ResetToken is only
// ever filled outside production.
type ResetRequest struct {
	ResetToken string
}

// RequestPasswordReset issues a reset token when the account exists. The
// answer looks the same either way.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (ResetRequest, error) {
	const op = "account.RequestPasswordReset"

	acc, err := s.store.FindAccountByEmail(ctx, identity.NormalizeEmail(email))
	if err != nil {
		if identity.IsNotFound(err) {
			return ResetRequest{}, nil
		}
		return ResetRequest{}, err
	}

	raw, err := token.NewOpaque(token.MinBytes)
	if err != nil {
		return ResetRequest{}, identity.Internal(op, err)
	}
	id, err := identity.NewID()
	if err != nil {
		return ResetRequest{}, identity.Internal(op, err)
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.ResetTokenTTL)
	if err := s.store.CreateResetToken(ctx, identity.PasswordResetToken{
		ID:        id,
		UserID:    acc.ID,
		TokenHash: token.Hash(raw, s.pepper),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}); err != nil {
		return ResetRequest{}, err
	}

	s.deliverReset(ctx, ResetRecipient{UserID: acc.ID, Email: acc.Email, DisplayName: acc.DisplayName}, raw, expiresAt)

	if s.cfg.Production {
		return ResetRequest{}, nil
	}
	return ResetRequest{ResetToken: raw}, nil
}

// deliverReset hands the token to the sender without blocking the request,
// so response time does not depend on whether the account exists. The send
// outlives the request context but is bounded by ResetDeliveryTimeout.
func (s *Service) deliverReset(ctx context.Context, to ResetRecipient, raw string, expiresAt time.Time) {
	if _, noop := s.resets.(NoopResetSender); noop {
		return
	}

	s.deliveries.Add(1)
	go func() {
		defer s.deliveries.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ResetDeliveryTimeout)
		defer cancel()

		if err := s.resets.SendPasswordReset(sendCtx, to, raw, expiresAt); err != nil {
			s.log.Error("auth.reset.delivery.fail", "user_id", to.UserID, "err", err)
		}
	}()
}

// Wait blocks until background reset deliveries have finished.
func (s *Service) Wait() {
	s.deliveries.Wait()
}

// ConfirmPasswordResetInput redeems a reset token.
type ConfirmPasswordResetInput struct {
	ResetToken  string
	NewPassword string
}

// ConfirmPasswordReset sets a new password, consumes the token and revokes
// every session of the user.
func (s *Service) ConfirmPasswordReset(ctx context.Context, in ConfirmPasswordResetInput) error {
	const op = "account.ConfirmPasswordReset"

	if err := s.passwords.Validate(in.NewPassword); err != nil {
		return policyError(op, s.passwords.Policy, err)
	}

	raw := strings.TrimSpace(in.ResetToken)
	if raw == "" {
		return fail(op, identity.ErrBadRequest, msgInvalidReset)
	}
	hash := token.Hash(raw, s.pepper)

	rec, err := s.store.FindResetToken(ctx, hash)
	if err != nil {
		if identity.IsNotFound(err) {
			return fail(op, identity.ErrBadRequest, msgInvalidReset)
		}
		return err
	}
	now := s.now()
	if !token.Equal(rec.TokenHash, hash) || rec.Used() {
		return fail(op, identity.ErrBadRequest, msgInvalidReset)
	}
	if rec.Expired(now) {
		return fail(op, identity.ErrBadRequest, msgResetExpired)
	}

	newHash, err := s.passwords.Hash(in.NewPassword)
	if err != nil {
		return identity.Internal(op, err)
	}

	err = s.store.CompletePasswordReset(ctx, rec.ID, rec.UserID, newHash, now)
	if identity.IsNotActive(err) {
		return fail(op, identity.ErrBadRequest, msgInvalidReset)
	}
	return err
}
