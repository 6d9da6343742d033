package repository

import (
	"context"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementRepository interface {
	// CreateAchievementIfAbsent inserts unless (user, dedup key) exists and
	// reports whether a row was written.
	CreateAchievementIfAbsent(ctx context.Context, achievement *entity.Achievement) (bool, error)
	ExistsAchievement(ctx context.Context, userID uuid.UUID, dedupKey string) (bool, error)
	ListAchievements(ctx context.Context, userID uuid.UUID) ([]entity.Achievement, error)
	CountAchievements(ctx context.Context, userID uuid.UUID) (int64, error)

	// CreateBadgeIfAbsent inserts unless (user, badge type) exists.
	CreateBadgeIfAbsent(ctx context.Context, badge *entity.Badge) (bool, error)
	ListBadges(ctx context.Context, userID uuid.UUID) ([]entity.Badge, error)
	CountBadges(ctx context.Context, userID uuid.UUID) (int64, error)
}

type achievementRepository struct {
	db *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) AchievementRepository {
	return &achievementRepository{db: db}
}

func (r *achievementRepository) CreateAchievementIfAbsent(ctx context.Context, achievement *entity.Achievement) (bool, error) {
	res := database.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "dedup_key"}},
		DoNothing: true,
	}).Create(achievement)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *achievementRepository) ExistsAchievement(ctx context.Context, userID uuid.UUID, dedupKey string) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.Achievement{}).
		Where("user_id = ? AND dedup_key = ?", userID, dedupKey).
		Count(&count).Error
	return count > 0, err
}

func (r *achievementRepository) ListAchievements(ctx context.Context, userID uuid.UUID) ([]entity.Achievement, error) {
	var achievements []entity.Achievement
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("earned_at desc").
		Find(&achievements).Error
	return achievements, err
}

func (r *achievementRepository) CountAchievements(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.Achievement{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *achievementRepository) CreateBadgeIfAbsent(ctx context.Context, badge *entity.Badge) (bool, error) {
	res := database.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_type"}},
		DoNothing: true,
	}).Create(badge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *achievementRepository) ListBadges(ctx context.Context, userID uuid.UUID) ([]entity.Badge, error) {
	var badges []entity.Badge
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("earned_at asc").
		Find(&badges).Error
	return badges, err
}

func (r *achievementRepository) CountBadges(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.Badge{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
