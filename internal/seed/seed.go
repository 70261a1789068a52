// Package seed creates the demo accounts at process startup
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/pasiforum/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the subset of the user repository needed for seeding
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// demoAccounts are the fixed accounts the demo deployment ships with
var demoAccounts = []struct {
	username string
	password string
	role     models.Role
}{
	{"admin", "admin", models.RoleAdmin},
	{"pasi", "pasi", models.RoleUser},
}

// DemoAccounts inserts the demo accounts if they are missing. Safe to run on
// every start; a uniqueness conflict from a concurrent start is treated as
// the account already existing, not as a failure.
func DemoAccounts(ctx context.Context, users UserStore, logger *zap.Logger) error {
	for _, account := range demoAccounts {
		exists, err := users.ExistsByUsername(ctx, account.username)
		if err != nil {
			return fmt.Errorf("failed to check demo account %q: %w", account.username, err)
		}
		if exists {
			continue
		}

		passwordHash, err := bcrypt.GenerateFromPassword([]byte(account.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash demo password: %w", err)
		}

		user := &models.User{
			Username:     account.username,
			PasswordHash: string(passwordHash),
			Role:         account.role,
		}
		if err := users.Create(ctx, user); err != nil {
			if errors.Is(err, models.ErrUsernameTaken) {
				// Another instance seeded it first
				continue
			}
			return fmt.Errorf("failed to seed demo account %q: %w", account.username, err)
		}

		logger.Info("seeded demo account",
			zap.String("username", account.username),
			zap.Int("role", int(account.role)),
		)
	}

	return nil
}
