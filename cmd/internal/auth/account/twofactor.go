package account

import (
	"context"

	"github.com/gouveags/moviescore/cmd/identity"
)

// TwoFactorSetup is returned once when enrollment starts.
type TwoFactorSetup struct {
	Secret     string
	OTPAuthURL string
}

// SetupTwoFactor stores a new pending TOTP secret (encrypted) for userID.
// MFA stays disabled until EnableTwoFactor confirms a code.
func (s *Service) SetupTwoFactor(ctx context.Context, userID string) (TwoFactorSetup, error) {
	const op = "account.SetupTwoFactor"

	acc, err := s.account(ctx, op, userID)
	if err != nil {
		return TwoFactorSetup{}, err
	}
	if acc.MFAEnabled {
		return TwoFactorSetup{}, fail(op, identity.ErrConflict, msgMFAAlreadyEnabled)
	}

	secret, err := s.totp.GenerateSecret()
	if err != nil {
		return TwoFactorSetup{}, identity.Internal(op, err)
	}
	enc, err := s.cipher.Encrypt(secret)
	if err != nil {
		return TwoFactorSetup{}, identity.Internal(op, err)
	}
	if err := s.store.SetPendingMFASecret(ctx, acc.ID, enc, s.now()); err != nil {
		return TwoFactorSetup{}, err
	}

	return TwoFactorSetup{
		Secret:     secret,
		OTPAuthURL: s.totp.ProvisioningURI(acc.Email, secret),
	}, nil
}

// EnableTwoFactor confirms the pending secret with a code, turns MFA on and
// returns a fresh batch of recovery codes. The raw codes are never stored.
func (s *Service) EnableTwoFactor(ctx context.Context, userID, totpCode string) ([]string, error) {
	const op = "account.EnableTwoFactor"

	acc, err := s.account(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if acc.MFASecretEncrypted == nil || *acc.MFASecretEncrypted == "" {
		return nil, fail(op, identity.ErrBadRequest, msgSetupNotFound)
	}
	secret, err := s.mfaSecret(op, acc)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !s.totp.Verify(totpCode, secret, now) {
		return nil, fail(op, identity.ErrBadRequest, msgInvalidTOTP)
	}

	codes, hashes, err := newRecoveryCodes(s.cfg.RecoveryCodeCount, s.pepper)
	if err != nil {
		return nil, identity.Internal(op, err)
	}
	if err := s.store.EnableMFA(ctx, acc.ID, *acc.MFASecretEncrypted, hashes, now); err != nil {
		if identity.IsNotFound(err) {
			return nil, fail(op, identity.ErrBadRequest, msgSetupNotFound)
		}
		return nil, err
	}
	return codes, nil
}

// DisableTwoFactor turns MFA off after a valid code, dropping the secret and
// every recovery code.
func (s *Service) DisableTwoFactor(ctx context.Context, userID, totpCode string) error {
	const op = "account.DisableTwoFactor"

	acc, err := s.account(ctx, op, userID)
	if err != nil {
		return err
	}
	if !acc.MFAEnabled || acc.MFASecretEncrypted == nil {
		return fail(op, identity.ErrBadRequest, msgMFANotEnabled)
	}
	secret, err := s.mfaSecret(op, acc)
	if err != nil {
		return err
	}
	now := s.now()
	if !s.totp.Verify(totpCode, secret, now) {
		return fail(op, identity.ErrBadRequest, msgInvalidTOTP)
	}
	return s.store.DisableMFA(ctx, acc.ID, now)
}

// account loads userID for an already authenticated operation.
func (s *Service) account(ctx context.Context, op, userID string) (identity.Account, error) {
	acc, err := s.store.FindAccountByID(ctx, userID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.Account{}, fail(op, identity.ErrNotFound, msgUserNotFound)
		}
		return identity.Account{}, err
	}
	return acc, nil
}
