package bootstrap

import (
	"context"

	"anoa.com/foodrescue/internal/entity"
	userRepo "anoa.com/foodrescue/internal/modules/user/repository"
	"go.uber.org/zap"
)

const (
	adminUsername = "admin"
	adminEmail    = "admin@foodrescue.local"
)

// SeedAdminUser creates the development admin account unless an admin exists.
func SeedAdminUser(ctx context.Context, repo userRepo.UserRepository, log *zap.Logger) (*entity.User, error) {
	admins, err := repo.FindByRole(ctx, entity.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if len(admins) > 0 {
		log.Info("admin user already exists, skipping seed")
		return admins[0], nil
	}

	admin := &entity.User{
		Username: adminUsername,
		Email:    adminEmail,
		Role:     entity.RoleAdmin,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return nil, err
	}

	log.Info("admin user seeded",
		zap.String("user_id", admin.ID.String()),
		zap.String("email", adminEmail),
	)
	return admin, nil
}
