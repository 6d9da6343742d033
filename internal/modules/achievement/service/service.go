package service

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/foodrescue/internal/config"
	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/modules/achievement/dto"
	achievementRepo "anoa.com/foodrescue/internal/modules/achievement/repository"
	notifService "anoa.com/foodrescue/internal/modules/notification/service"
	pointsDto "anoa.com/foodrescue/internal/modules/points/dto"
	pointsRepo "anoa.com/foodrescue/internal/modules/points/repository"
	pointsService "anoa.com/foodrescue/internal/modules/points/service"
	userRepo "anoa.com/foodrescue/internal/modules/user/repository"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/clock"
	"anoa.com/foodrescue/pkg/database"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PointsAwarder is the slice of the points service the evaluator needs.
type PointsAwarder interface {
	AwardPoints(ctx context.Context, req pointsDto.AwardRequest) (*pointsDto.AwardResult, error)
	NotifyAward(ctx context.Context, result *pointsDto.AwardResult)
	CalculatePoints(action string, role entity.Role) int
}

type AchievementService interface {
	// CheckAchievementTrigger awards every catalog achievement of role whose
	// trigger matches and whose target value is met.
	CheckAchievementTrigger(ctx context.Context, userID uuid.UUID, role entity.Role, trigger string, value int) ([]entity.Achievement, error)
	// AwardAchievement grants a catalog achievement once per (user, title).
	AwardAchievement(ctx context.Context, userID uuid.UUID, achievementID string, role entity.Role) (*entity.Achievement, bool, error)
	// CheckAndAwardBadges unlocks every tier the user's total has reached.
	CheckAndAwardBadges(ctx context.Context, userID uuid.UUID) ([]entity.Badge, error)
	// CheckAchievements awards milestone achievements from ledger counts.
	CheckAchievements(ctx context.Context, userID uuid.UUID, role entity.Role) ([]entity.Achievement, error)
	// EvaluateActivity runs trigger, total points, milestone and badge checks
	// for a user after an activity of the given trigger.
	EvaluateActivity(ctx context.Context, userID uuid.UUID, role entity.Role, trigger string, milestones bool) (*dto.EvaluationResult, error)
	ListAchievements(ctx context.Context, userID uuid.UUID) ([]entity.Achievement, error)
	ListBadges(ctx context.Context, userID uuid.UUID) ([]entity.Badge, error)
}

type achievementService struct {
	repo         achievementRepo.AchievementRepository
	ledger       pointsRepo.LedgerRepository
	userRepo     userRepo.UserRepository
	points       PointsAwarder
	leaderboard  pointsService.LeaderboardUpdater
	notifier     notifService.Notifier
	tx           database.Transactor
	gamification *config.Gamification
	clock        clock.Clock
	log          *zap.Logger
}

func NewAchievementService(
	repo achievementRepo.AchievementRepository,
	ledger pointsRepo.LedgerRepository,
	userRepo userRepo.UserRepository,
	points PointsAwarder,
	leaderboard pointsService.LeaderboardUpdater,
	notifier notifService.Notifier,
	tx database.Transactor,
	gamification *config.Gamification,
	clk clock.Clock,
	log *zap.Logger,
) AchievementService {
	return &achievementService{
		repo:         repo,
		ledger:       ledger,
		userRepo:     userRepo,
		points:       points,
		leaderboard:  leaderboard,
		notifier:     notifier,
		tx:           tx,
		gamification: gamification,
		clock:        clk,
		log:          log,
	}
}

func TitleKey(title string) string {
	return "title:" + title
}

func MilestoneKey(source entity.PointSource, value int) string {
	return fmt.Sprintf("milestone:%s:%d", source, value)
}

func (s *achievementService) CheckAchievementTrigger(ctx context.Context, userID uuid.UUID, role entity.Role, trigger string, value int) ([]entity.Achievement, error) {
	var (
		awarded []entity.Achievement
		errs    []error
	)
	for _, def := range s.gamification.Achievements[role] {
		if def.Trigger != trigger || value < def.TargetValue {
			continue
		}
		a, created, err := s.AwardAchievement(ctx, userID, def.ID, role)
		if err != nil {
			errs = append(errs, fmt.Errorf("achievement %s: %w", def.ID, err))
			continue
		}
		if created {
			awarded = append(awarded, *a)
		}
	}
	return awarded, errors.Join(errs...)
}

func (s *achievementService) AwardAchievement(ctx context.Context, userID uuid.UUID, achievementID string, role entity.Role) (*entity.Achievement, bool, error) {
	def, ok := s.gamification.Achievement(role, achievementID)
	if !ok {
		return nil, false, apperror.NotFound("achievement %s not found for role %s", achievementID, role)
	}

	achievement := &entity.Achievement{
		UserID:        userID,
		Type:          def.Type,
		Title:         def.Title,
		Description:   def.Description,
		PointsAwarded: def.Points,
		DedupKey:      TitleKey(def.Title),
		Metadata: map[string]any{
			"achievementId": def.ID,
			"role":          string(role),
			"trigger":       def.Trigger,
			"targetValue":   def.TargetValue,
		},
	}
	return s.grant(ctx, achievement, role)
}

func (s *achievementService) CheckAchievements(ctx context.Context, userID uuid.UUID, role entity.Role) ([]entity.Achievement, error) {
	source, ok := s.gamification.MilestoneSources[role]
	if !ok {
		return nil, nil
	}

	count, err := s.ledger.CountBySource(ctx, userID, source)
	if err != nil {
		return nil, apperror.Dependency("count ledger entries", err)
	}

	var (
		awarded []entity.Achievement
		errs    []error
	)
	for _, milestone := range s.gamification.Milestones {
		if int(count) < milestone {
			continue
		}
		achievement := &entity.Achievement{
			UserID:        userID,
			Type:          entity.AchievementMilestone,
			Title:         milestoneTitle(source, milestone),
			Description:   fmt.Sprintf("Reached %d %s activities", milestone, source),
			PointsAwarded: s.points.CalculatePoints(config.ActionMilestone, role),
			DedupKey:      MilestoneKey(source, milestone),
			Metadata: map[string]any{
				"milestoneValue": milestone,
				"source":         string(source),
				"role":           string(role),
			},
		}
		a, created, err := s.grant(ctx, achievement, role)
		if err != nil {
			errs = append(errs, fmt.Errorf("milestone %d: %w", milestone, err))
			continue
		}
		if created {
			awarded = append(awarded, *a)
		}
	}
	return awarded, errors.Join(errs...)
}

func milestoneTitle(source entity.PointSource, value int) string {
	switch source {
	case entity.SourceDonation:
		return fmt.Sprintf("%d Donations", value)
	case entity.SourcePickup:
		return fmt.Sprintf("%d Pickups", value)
	default:
		return fmt.Sprintf("%d %s", value, source)
	}
}

// grant creates the achievement and its bonus in one transaction, then
// notifies and re-checks badges.
func (s *achievementService) grant(ctx context.Context, achievement *entity.Achievement, role entity.Role) (*entity.Achievement, bool, error) {
	exists, err := s.repo.ExistsAchievement(ctx, achievement.UserID, achievement.DedupKey)
	if err != nil {
		return nil, false, apperror.Dependency("check achievement", err)
	}
	if exists {
		return nil, false, nil
	}

	achievement.ID = uuid.New()
	achievement.EarnedAt = s.clock.Now()

	var (
		created bool
		bonus   *pointsDto.AwardResult
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.repo.CreateAchievementIfAbsent(ctx, achievement)
		if err != nil || !created {
			return err
		}
		if achievement.PointsAwarded == 0 {
			return s.leaderboard.UpdateLeaderboard(ctx, achievement.UserID, role)
		}
		bonus, err = s.points.AwardPoints(ctx, pointsDto.AwardRequest{
			UserID:      achievement.UserID,
			Amount:      achievement.PointsAwarded,
			Source:      entity.SourceAchievement,
			Role:        role,
			SourceID:    &achievement.ID,
			Description: "Achievement: " + achievement.Title,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, apperror.ErrDependency) || errors.Is(err, apperror.ErrNotFound) {
			return nil, false, err
		}
		return nil, false, apperror.Dependency("grant achievement", err)
	}
	if !created {
		return nil, false, nil
	}

	s.log.Info("achievement granted",
		zap.String("user_id", achievement.UserID.String()),
		zap.String("title", achievement.Title),
		zap.Int("points", achievement.PointsAwarded),
	)
	s.points.NotifyAward(ctx, bonus)
	s.notify(ctx, achievement.UserID, fmt.Sprintf("Achievement unlocked: %s", achievement.Title), entity.NotificationAchievement, achievement.ID)

	if _, err := s.CheckAndAwardBadges(ctx, achievement.UserID); err != nil {
		s.log.Warn("badge check after achievement failed",
			zap.String("user_id", achievement.UserID.String()),
			zap.Error(err),
		)
	}
	return achievement, true, nil
}

func (s *achievementService) CheckAndAwardBadges(ctx context.Context, userID uuid.UUID) ([]entity.Badge, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := user.TotalPoints
	var earned []entity.Badge
	for _, tier := range s.gamification.BadgeTiers {
		if total < tier.Threshold {
			// ascending thresholds: nothing above this tier can be met
			break
		}

		badge := &entity.Badge{
			ID:        uuid.New(),
			UserID:    userID,
			BadgeType: tier.Type,
			BadgeName: tier.Name,
			Criteria:  tier.Criteria,
			EarnedAt:  s.clock.Now(),
		}

		var (
			created bool
			bonus   *pointsDto.AwardResult
		)
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			created, err = s.repo.CreateBadgeIfAbsent(ctx, badge)
			if err != nil || !created {
				return err
			}
			if tier.BonusPoints == 0 {
				return s.leaderboard.UpdateLeaderboard(ctx, userID, user.Role)
			}
			bonus, err = s.points.AwardPoints(ctx, pointsDto.AwardRequest{
				UserID:      userID,
				Amount:      tier.BonusPoints,
				Source:      entity.SourceBadge,
				Role:        user.Role,
				SourceID:    &badge.ID,
				Description: "Badge: " + tier.Name,
			})
			return err
		})
		if err != nil {
			return earned, apperror.Dependency("award badge", err)
		}
		if !created {
			continue
		}

		if bonus != nil && !bonus.Duplicate {
			total += tier.BonusPoints
		}
		earned = append(earned, *badge)
		s.points.NotifyAward(ctx, bonus)
		s.notify(ctx, userID, fmt.Sprintf("New badge earned: %s", tier.Name), entity.NotificationBadge, badge.ID)
	}
	return earned, nil
}

func (s *achievementService) EvaluateActivity(ctx context.Context, userID uuid.UUID, role entity.Role, trigger string, milestones bool) (*dto.EvaluationResult, error) {
	result := &dto.EvaluationResult{}
	var errs []error

	if trigger != "" {
		value, err := s.triggerValue(ctx, userID, trigger)
		if err != nil {
			errs = append(errs, err)
		} else {
			awarded, err := s.CheckAchievementTrigger(ctx, userID, role, trigger, value)
			result.Achievements = append(result.Achievements, awarded...)
			errs = append(errs, err)
		}
	}

	if milestones {
		awarded, err := s.CheckAchievements(ctx, userID, role)
		result.Achievements = append(result.Achievements, awarded...)
		errs = append(errs, err)
	}

	// bonuses above may have moved the total
	total, err := s.triggerValue(ctx, userID, config.TriggerTotalPoints)
	if err != nil {
		errs = append(errs, err)
	} else {
		awarded, err := s.CheckAchievementTrigger(ctx, userID, role, config.TriggerTotalPoints, total)
		result.Achievements = append(result.Achievements, awarded...)
		errs = append(errs, err)
	}

	badges, err := s.CheckAndAwardBadges(ctx, userID)
	result.Badges = badges
	errs = append(errs, err)

	return result, errors.Join(errs...)
}

func (s *achievementService) triggerValue(ctx context.Context, userID uuid.UUID, trigger string) (int, error) {
	var source entity.PointSource
	switch trigger {
	case config.TriggerTotalPoints:
		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			return 0, err
		}
		return user.TotalPoints, nil
	case config.TriggerDonationsAccepted:
		source = entity.SourceDonation
	case config.TriggerDonationsCompleted:
		source = entity.SourceCompletion
	case config.TriggerPickupsCompleted:
		source = entity.SourcePickup
	default:
		return 0, apperror.Validation("unknown trigger %q", trigger)
	}

	n, err := s.ledger.CountBySource(ctx, userID, source)
	if err != nil {
		return 0, apperror.Dependency("count ledger entries", err)
	}
	return int(n), nil
}

func (s *achievementService) notify(ctx context.Context, userID uuid.UUID, message, notifType string, relatedID uuid.UUID) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, message, notifType, &relatedID); err != nil {
		s.log.Warn("failed to send notification",
			zap.String("user_id", userID.String()),
			zap.String("type", notifType),
			zap.Error(err),
		)
	}
}

func (s *achievementService) ListAchievements(ctx context.Context, userID uuid.UUID) ([]entity.Achievement, error) {
	achievements, err := s.repo.ListAchievements(ctx, userID)
	if err != nil {
		return nil, apperror.Dependency("list achievements", err)
	}
	return achievements, nil
}

func (s *achievementService) ListBadges(ctx context.Context, userID uuid.UUID) ([]entity.Badge, error) {
	badges, err := s.repo.ListBadges(ctx, userID)
	if err != nil {
		return nil, apperror.Dependency("list badges", err)
	}
	return badges, nil
}
