package mongo

import (
	"carrental/pkg/config"
	apperrors "carrental/pkg/errors"
	"carrental/pkg/model"
	"context"
	"fmt"
)

type AccountCreator interface {
	Create(ctx context.Context, req *model.RegisterRequest, role string) (*model.User, error)
}

// SeedAdmin creates the configured administrator once. A rerun finds the
// email taken and leaves the existing account alone.
func SeedAdmin(ctx context.Context, accounts AccountCreator, cfg *config.Config) error {
	if cfg.AdminEmail == "" {
		cfg.Log.Info("Admin seed skipped, no admin email configured")
		return nil
	}

	user, err := accounts.Create(ctx, &model.RegisterRequest{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}, config.RoleAdmin)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			cfg.Log.Info("Admin account already exists", "email", cfg.AdminEmail)
			return nil
		}
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	cfg.Log.Info("Admin account created", "id", user.ID, "email", user.Email)
	return nil
}
