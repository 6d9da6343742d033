package service

import (
	"context"
	"fmt"
	"time"

	"anoa.com/foodrescue/internal/config"
	"anoa.com/foodrescue/internal/entity"
	achievementRepo "anoa.com/foodrescue/internal/modules/achievement/repository"
	"anoa.com/foodrescue/internal/modules/leaderboard/dto"
	leaderboardRepo "anoa.com/foodrescue/internal/modules/leaderboard/repository"
	pointsRepo "anoa.com/foodrescue/internal/modules/points/repository"
	userRepo "anoa.com/foodrescue/internal/modules/user/repository"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/clock"
	"anoa.com/foodrescue/pkg/database"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type LeaderboardService interface {
	// UpdateLeaderboard recomputes the user's counters, upserts the entry and
	// re-ranks the role.
	UpdateLeaderboard(ctx context.Context, userID uuid.UUID, role entity.Role) error
	// RecalculateRanks assigns ranks 1..N by total points, highest first.
	RecalculateRanks(ctx context.Context, role entity.Role) error
	GetLeaderboard(ctx context.Context, role entity.Role, limit int) ([]dto.LeaderboardEntry, error)
	// RebuildRole recomputes every user of the role from the ledger and ranks once.
	RebuildRole(ctx context.Context, role entity.Role) (int, error)
}

type leaderboardService struct {
	repo         leaderboardRepo.LeaderboardRepository
	userRepo     userRepo.UserRepository
	ledger       pointsRepo.LedgerRepository
	achievements achievementRepo.AchievementRepository
	tiers        []config.BadgeTier
	redisClient  *redis.Client
	tx           database.Transactor
	clock        clock.Clock
	log          *zap.Logger
}

func NewLeaderboardService(
	repo leaderboardRepo.LeaderboardRepository,
	userRepo userRepo.UserRepository,
	ledger pointsRepo.LedgerRepository,
	achievements achievementRepo.AchievementRepository,
	gamification *config.Gamification,
	redisClient *redis.Client,
	tx database.Transactor,
	clk clock.Clock,
	log *zap.Logger,
) LeaderboardService {
	return &leaderboardService{
		repo:         repo,
		userRepo:     userRepo,
		ledger:       ledger,
		achievements: achievements,
		tiers:        gamification.BadgeTiers,
		redisClient:  redisClient,
		tx:           tx,
		clock:        clk,
		log:          log,
	}
}

func RedisKey(role entity.Role) string {
	return fmt.Sprintf("leaderboard:%s", role)
}

// UpdateLeaderboard and RecalculateRanks join the caller's transaction when
// there is one. The role lock is transaction scoped, so a writer that joined an
// outer transaction keeps the role until that transaction commits.
func (s *leaderboardService) UpdateLeaderboard(ctx context.Context, userID uuid.UUID, role entity.Role) error {
	var entry *entity.LeaderboardEntry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.lockRole(ctx, role); err != nil {
			return err
		}

		var err error
		entry, err = s.buildEntry(ctx, userID, role)
		if err != nil {
			return err
		}
		if err := s.repo.Upsert(ctx, entry); err != nil {
			return apperror.Dependency("upsert leaderboard entry", err)
		}
		return s.recalculateRanksLocked(ctx, role)
	})
	if err != nil {
		return err
	}

	s.mirror(ctx, role, *entry)
	return nil
}

func (s *leaderboardService) RecalculateRanks(ctx context.Context, role entity.Role) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.lockRole(ctx, role); err != nil {
			return err
		}
		return s.recalculateRanksLocked(ctx, role)
	})
}

func (s *leaderboardService) lockRole(ctx context.Context, role entity.Role) error {
	if err := s.repo.LockRole(ctx, role); err != nil {
		return apperror.Dependency("lock leaderboard role", err)
	}
	return nil
}

func (s *leaderboardService) recalculateRanksLocked(ctx context.Context, role entity.Role) error {
	entries, err := s.repo.ListByRole(ctx, role)
	if err != nil {
		return apperror.Dependency("list leaderboard", err)
	}

	ranks := make(map[uuid.UUID]int, len(entries))
	for i, e := range entries {
		ranks[e.UserID] = i + 1
	}

	if err := s.repo.UpdateRanks(ctx, ranks); err != nil {
		return apperror.Dependency("write leaderboard ranks", err)
	}
	return nil
}

func (s *leaderboardService) buildEntry(ctx context.Context, userID uuid.UUID, role entity.Role) (*entity.LeaderboardEntry, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry := &entity.LeaderboardEntry{
		UserID:      userID,
		Role:        role,
		TotalPoints: user.TotalPoints,
		UpdatedAt:   s.clock.Now(),
	}

	switch role {
	case entity.RoleDonor:
		n, err := s.ledger.CountBySource(ctx, userID, entity.SourceDonation)
		if err != nil {
			return nil, apperror.Dependency("count donations", err)
		}
		entry.DonationsCount = int(n)
	case entity.RoleNGO:
		n, err := s.ledger.CountBySource(ctx, userID, entity.SourceDonation)
		if err != nil {
			return nil, apperror.Dependency("count collections", err)
		}
		entry.CollectionsCount = int(n)
	case entity.RoleVolunteer:
		n, err := s.ledger.CountBySource(ctx, userID, entity.SourcePickup)
		if err != nil {
			return nil, apperror.Dependency("count pickups", err)
		}
		entry.PickupsCount = int(n)
	}

	achievements, err := s.achievements.CountAchievements(ctx, userID)
	if err != nil {
		return nil, apperror.Dependency("count achievements", err)
	}
	badges, err := s.achievements.CountBadges(ctx, userID)
	if err != nil {
		return nil, apperror.Dependency("count badges", err)
	}
	entry.AchievementsCount = int(achievements)
	entry.BadgesCount = int(badges)

	return entry, nil
}

// mirror keeps the redis sorted set in step for cheap top-N reads by other
// services. Failures only cost freshness.
func (s *leaderboardService) mirror(ctx context.Context, role entity.Role, entry entity.LeaderboardEntry) {
	if s.redisClient == nil {
		return
	}
	err := s.redisClient.ZAdd(ctx, RedisKey(role), redis.Z{
		Score:  float64(entry.TotalPoints),
		Member: entry.UserID.String(),
	}).Err()
	if err != nil {
		s.log.Warn("failed to mirror leaderboard entry",
			zap.String("user_id", entry.UserID.String()),
			zap.String("role", string(role)),
			zap.Error(err),
		)
	}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, role entity.Role, limit int) ([]dto.LeaderboardEntry, error) {
	if !role.Valid() || role == entity.RoleAdmin {
		return nil, apperror.Validation("unknown leaderboard role %q", role)
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	entries, err := s.repo.Top(ctx, role, limit)
	if err != nil {
		return nil, apperror.Dependency("read leaderboard", err)
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Dependency("read leaderboard users", err)
	}
	usernames := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		usernames[u.ID] = u.Username
	}

	result := make([]dto.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		result = append(result, dto.LeaderboardEntry{
			UserID:            e.UserID,
			Username:          usernames[e.UserID],
			Role:              string(e.Role),
			Rank:              e.Rank,
			TotalPoints:       e.TotalPoints,
			DonationsCount:    e.DonationsCount,
			CollectionsCount:  e.CollectionsCount,
			PickupsCount:      e.PickupsCount,
			AchievementsCount: e.AchievementsCount,
			BadgesCount:       e.BadgesCount,
			TierStatus:        GetTierStatus(e.TotalPoints, s.tiers),
			UpdatedAt:         e.UpdatedAt,
		})
	}
	return result, nil
}

func (s *leaderboardService) RebuildRole(ctx context.Context, role entity.Role) (int, error) {
	if !role.Valid() {
		return 0, apperror.Validation("unknown role %q", role)
	}

	users, err := s.userRepo.FindByRole(ctx, role)
	if err != nil {
		return 0, apperror.Dependency("list users", err)
	}

	start := time.Now()
	entries := make([]entity.LeaderboardEntry, 0, len(users))
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		entries = entries[:0]
		if err := s.lockRole(ctx, role); err != nil {
			return err
		}
		for _, u := range users {
			entry, err := s.buildEntry(ctx, u.ID, role)
			if err != nil {
				return err
			}
			if err := s.repo.Upsert(ctx, entry); err != nil {
				return apperror.Dependency("upsert leaderboard entry", err)
			}
			entries = append(entries, *entry)
		}
		return s.recalculateRanksLocked(ctx, role)
	})
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		s.mirror(ctx, role, e)
	}

	s.log.Info("leaderboard rebuilt",
		zap.String("role", string(role)),
		zap.Int("users", len(users)),
		zap.Duration("took", time.Since(start)),
	)
	return len(users), nil
}
