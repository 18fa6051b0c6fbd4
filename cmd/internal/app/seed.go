package app

import (
	"context"

	"github.com/gouveags/moviescore/cmd/internal/auth/account"
)

// Local development account, ensured at startup outside production.
const (
	seedEmail       = "test.user@moviescore.local"
	seedPassword    = "MoviescoreTest#123"
	seedDisplayName = "Test Pilot"
)

func seedLocalUser(ctx context.Context, log Logger, cfg Config, svc *account.Service) error {
	if !cfg.ShouldSeed() {
		return nil
	}
	created, err := svc.EnsureLocalUser(ctx, account.RegisterInput{
		Email:       seedEmail,
		DisplayName: seedDisplayName,
		Password:    seedPassword,
	})
	if err != nil {
		return err
	}
	if created {
		log.Info("seed.local_user.created", "email", seedEmail)
	}
	return nil
}
