package repository

import (
	"context"
	"errors"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.User, error)
	FindByRole(ctx context.Context, role entity.Role) ([]*entity.User, error)
	// FindByRoleWithLocation returns users of role that have both coordinates.
	FindByRoleWithLocation(ctx context.Context, role entity.Role) ([]*entity.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return database.Conn(ctx, r.db).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user %s not found", id)
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.User, error) {
	if len(ids) == 0 {
		return []*entity.User{}, nil
	}
	var users []*entity.User
	err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *userRepository) FindByRole(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	var users []*entity.User
	err := database.Conn(ctx, r.db).
		Where("role = ?", role).
		Order("created_at asc").
		Find(&users).Error
	return users, err
}

func (r *userRepository) FindByRoleWithLocation(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	var users []*entity.User
	err := database.Conn(ctx, r.db).
		Where("role = ? AND location_latitude IS NOT NULL AND location_longitude IS NOT NULL", role).
		Find(&users).Error
	return users, err
}
