package service

import (
	"context"
	"errors"
	"fmt"

	"user_management/internal/logger"
	"user_management/internal/models"
	"user_management/internal/repository"
)

// AdminAccount is the administrator ensured at startup. A zero value
// disables the bootstrap.
type AdminAccount struct {
	Username string
	Password string
}

func (a AdminAccount) enabled() bool {
	return a.Username != "" && a.Password != ""
}

// EnsureAdmin creates the bootstrap admin through the manager, so the
// creation is audited like any other. Create is idempotent, which makes this
// safe on every start. A user that already holds the name with other
// credentials is left as is and only reported.
func EnsureAdmin(ctx context.Context, users UserManager, acc AdminAccount, log *logger.Logger) error {
	if !acc.enabled() {
		return nil
	}

	u, err := users.CreateUser(ctx, models.UserRequest{Username: acc.Username, Password: acc.Password, Admin: true})
	switch {
	case errors.Is(err, repository.ErrConflict):
		if log != nil {
			log.Warnw("bootstrap_admin_skipped", "username", acc.Username, "reason", "user exists with different credentials")
		}
		return nil
	case err != nil:
		return fmt.Errorf("ensure admin %q: %w", acc.Username, err)
	}

	if log != nil {
		log.Infow("bootstrap_admin_ready", "username", u.Username, "user_id", u.ID)
	}
	return nil
}
