package service

import (
	"context"
	"errors"

	"anoa.com/foodrescue/internal/config"
	"anoa.com/foodrescue/internal/entity"
	leaderboardRepo "anoa.com/foodrescue/internal/modules/leaderboard/repository"
	leaderboard "anoa.com/foodrescue/internal/modules/leaderboard/service"
	pointsDto "anoa.com/foodrescue/internal/modules/points/dto"
	profileDto "anoa.com/foodrescue/internal/modules/profile/dto"
	userRepo "anoa.com/foodrescue/internal/modules/user/repository"
	"anoa.com/foodrescue/pkg/apperror"
	"github.com/google/uuid"
)

// HistoryReader pages through a user's ledger.
type HistoryReader interface {
	History(ctx context.Context, userID uuid.UUID, page, limit int) (*pointsDto.HistoryResponse, error)
}

// RewardLister lists what a user has earned.
type RewardLister interface {
	ListAchievements(ctx context.Context, userID uuid.UUID) ([]entity.Achievement, error)
	ListBadges(ctx context.Context, userID uuid.UUID) ([]entity.Badge, error)
}

type ProfileService interface {
	GetPoints(ctx context.Context, userID uuid.UUID, page, limit int) (*profileDto.PointsSummary, error)
	GetAchievements(ctx context.Context, userID uuid.UUID) ([]entity.Achievement, error)
	GetBadges(ctx context.Context, userID uuid.UUID) ([]entity.Badge, error)
	GetPublicProfile(ctx context.Context, userID uuid.UUID) (*profileDto.PublicProfileResponse, error)
}

type profileService struct {
	repo            userRepo.UserRepository
	leaderboardRepo leaderboardRepo.LeaderboardRepository
	history         HistoryReader
	rewards         RewardLister
	tiers           []config.BadgeTier
}

func NewProfileService(repo userRepo.UserRepository, leaderboardRepo leaderboardRepo.LeaderboardRepository, history HistoryReader, rewards RewardLister, gam *config.Gamification) ProfileService {
	return &profileService{
		repo:            repo,
		leaderboardRepo: leaderboardRepo,
		history:         history,
		rewards:         rewards,
		tiers:           gam.BadgeTiers,
	}
}

func (s *profileService) GetPoints(ctx context.Context, userID uuid.UUID, page, limit int) (*profileDto.PointsSummary, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	rank, err := s.rank(ctx, userID)
	if err != nil {
		return nil, err
	}

	history, err := s.history.History(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	return &profileDto.PointsSummary{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		TotalPoints: user.TotalPoints,
		Rank:        rank,
		TierStatus:  leaderboard.GetTierStatus(user.TotalPoints, s.tiers),
		History:     history,
	}, nil
}

func (s *profileService) GetAchievements(ctx context.Context, userID uuid.UUID) ([]entity.Achievement, error) {
	return s.rewards.ListAchievements(ctx, userID)
}

func (s *profileService) GetBadges(ctx context.Context, userID uuid.UUID) ([]entity.Badge, error) {
	return s.rewards.ListBadges(ctx, userID)
}

func (s *profileService) GetPublicProfile(ctx context.Context, userID uuid.UUID) (*profileDto.PublicProfileResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	rank, err := s.rank(ctx, userID)
	if err != nil {
		return nil, err
	}

	achievements, err := s.rewards.ListAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := s.rewards.ListBadges(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &profileDto.PublicProfileResponse{
		ID:           user.ID,
		Username:     user.Username,
		Role:         user.Role,
		CreatedAt:    user.CreatedAt,
		TotalPoints:  user.TotalPoints,
		Rank:         rank,
		TierStatus:   leaderboard.GetTierStatus(user.TotalPoints, s.tiers),
		Achievements: achievements,
		Badges:       badges,
	}, nil
}

// rank is nil for users who never earned points.
func (s *profileService) rank(ctx context.Context, userID uuid.UUID) (*int, error) {
	entry, err := s.leaderboardRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, apperror.Dependency("load leaderboard entry", err)
	}
	if entry.Rank == 0 {
		return nil, nil
	}
	return &entry.Rank, nil
}
