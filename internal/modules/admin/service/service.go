package service

import (
	"context"
	"strings"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/modules/admin/dto"
	userRepo "anoa.com/foodrescue/internal/modules/user/repository"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/database"
	"anoa.com/foodrescue/pkg/sanitize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminService registers the participants the engine works with.
type AdminService interface {
	CreateUser(ctx context.Context, input dto.CreateUserInput) (*entity.User, error)
	GetUsersByRole(ctx context.Context, role entity.Role) ([]*entity.User, error)
}

type adminService struct {
	userRepo userRepo.UserRepository
	log      *zap.Logger
}

func NewAdminService(userRepo userRepo.UserRepository, log *zap.Logger) AdminService {
	return &adminService{
		userRepo: userRepo,
		log:      log,
	}
}

func (s *adminService) CreateUser(ctx context.Context, input dto.CreateUserInput) (*entity.User, error) {
	role := entity.Role(input.Role)
	if !role.Valid() {
		return nil, apperror.Validation("unknown role %q", input.Role)
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return nil, apperror.Validation("latitude and longitude must be given together")
	}

	username := strings.ReplaceAll(sanitize.Text(input.Username), " ", "_")
	if len(username) < 3 {
		return nil, apperror.Validation("username must be at least 3 characters")
	}

	user := &entity.User{
		ID:       uuid.New(),
		Username: username,
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Role:     role,
		Location: entity.Location{
			Latitude:  input.Latitude,
			Longitude: input.Longitude,
			Address:   sanitize.Text(input.Address),
		},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperror.Conflict("username %q or email %q is already taken", user.Username, user.Email)
		}
		return nil, apperror.Dependency("create user", err)
	}

	s.log.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(role)),
	)
	return user, nil
}

func (s *adminService) GetUsersByRole(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	users, err := s.userRepo.FindByRole(ctx, role)
	if err != nil {
		return nil, apperror.Dependency("list users", err)
	}
	return users, nil
}
