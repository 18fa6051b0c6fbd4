package account

import (
	"context"
	"time"
)

// ResetSender delivers a password reset token out of band.
type ResetSender interface {
	SendPasswordReset(ctx context.Context, to ResetRecipient, rawToken string, expiresAt time.Time) error
}

// ResetRecipient identifies who a reset is delivered to.
type ResetRecipient struct {
	UserID      string
	Email       string
	DisplayName string
}

// NoopResetSender discards deliveries. Used when no channel is configured.
type NoopResetSender struct{}

func (NoopResetSender) SendPasswordReset(context.Context, ResetRecipient, string, time.Time) error {
	return nil
}
