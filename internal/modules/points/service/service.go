package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"anoa.com/foodrescue/internal/config"
	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/metrics"
	notifService "anoa.com/foodrescue/internal/modules/notification/service"
	"anoa.com/foodrescue/internal/modules/points/dto"
	pointsRepo "anoa.com/foodrescue/internal/modules/points/repository"
	userRepo "anoa.com/foodrescue/internal/modules/user/repository"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/clock"
	"anoa.com/foodrescue/pkg/database"
	"anoa.com/foodrescue/pkg/sanitize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LeaderboardUpdater is the part of the leaderboard the ledger drives.
type LeaderboardUpdater interface {
	UpdateLeaderboard(ctx context.Context, userID uuid.UUID, role entity.Role) error
}

type PointsService interface {
	// AwardPoints writes a ledger entry, bumps the user's total and refreshes
	// the leaderboard as one unit. With a source id it is idempotent.
	AwardPoints(ctx context.Context, req dto.AwardRequest) (*dto.AwardResult, error)
	// CalculatePoints looks up the point table; unknown pairs give 0.
	CalculatePoints(action string, role entity.Role) int
	// NotifyAward sends the "points earned" notification for an award made
	// inside a caller's transaction, once that transaction has committed.
	NotifyAward(ctx context.Context, result *dto.AwardResult)
	AdjustPoints(ctx context.Context, actor entity.Actor, userID uuid.UUID, amount int, reason string) (*dto.AwardResult, error)
	History(ctx context.Context, userID uuid.UUID, page, limit int) (*dto.HistoryResponse, error)
}

type pointsService struct {
	ledger       pointsRepo.LedgerRepository
	userRepo     userRepo.UserRepository
	leaderboard  LeaderboardUpdater
	notifier     notifService.Notifier
	tx           database.Transactor
	gamification *config.Gamification
	clock        clock.Clock
	log          *zap.Logger
}

func NewPointsService(
	ledger pointsRepo.LedgerRepository,
	userRepo userRepo.UserRepository,
	leaderboard LeaderboardUpdater,
	notifier notifService.Notifier,
	tx database.Transactor,
	gamification *config.Gamification,
	clk clock.Clock,
	log *zap.Logger,
) PointsService {
	return &pointsService{
		ledger:       ledger,
		userRepo:     userRepo,
		leaderboard:  leaderboard,
		notifier:     notifier,
		tx:           tx,
		gamification: gamification,
		clock:        clk,
		log:          log,
	}
}

func (s *pointsService) CalculatePoints(action string, role entity.Role) int {
	return s.gamification.PointsFor(action, role)
}

func (s *pointsService) AwardPoints(ctx context.Context, req dto.AwardRequest) (*dto.AwardResult, error) {
	if err := validateAward(req); err != nil {
		return nil, err
	}

	entry := &entity.PointsLedgerEntry{
		UserID:      req.UserID,
		Points:      req.Amount,
		Source:      req.Source,
		SourceID:    req.SourceID,
		Role:        req.Role,
		Description: req.Description,
		EarnedAt:    s.clock.Now(),
	}

	var result dto.AwardResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		saved, created, err := s.ledger.Award(ctx, entry)
		if err != nil {
			return err
		}
		result = dto.AwardResult{Entry: saved, Duplicate: !created}
		if !created {
			return nil
		}
		return s.leaderboard.UpdateLeaderboard(ctx, req.UserID, req.Role)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrDependency) {
			return nil, err
		}
		return nil, apperror.Dependency("award points", err)
	}

	if result.Duplicate {
		metrics.RecordDuplicateAward(string(req.Source))
		s.log.Debug("duplicate award resolved",
			zap.String("user_id", req.UserID.String()),
			zap.String("source", string(req.Source)),
		)
		return &result, nil
	}

	metrics.RecordAward(string(req.Source), req.Amount)
	if !database.InTransaction(ctx) {
		s.notify(ctx, result.Entry)
	}
	return &result, nil
}

func validateAward(req dto.AwardRequest) error {
	switch {
	case req.UserID == uuid.Nil:
		return apperror.Validation("user id is required")
	case req.Amount == 0:
		return apperror.Validation("amount must not be zero")
	case req.Source == "":
		return apperror.Validation("source is required")
	case !req.Role.Valid():
		return apperror.Validation("invalid role %q", req.Role)
	}
	return nil
}

func (s *pointsService) NotifyAward(ctx context.Context, result *dto.AwardResult) {
	if result == nil || result.Duplicate || result.Entry == nil {
		return
	}
	s.notify(ctx, result.Entry)
}

// notify runs after the write is committed; failures are only logged.
func (s *pointsService) notify(ctx context.Context, entry *entity.PointsLedgerEntry) {
	if s.notifier == nil {
		return
	}
	msg := fmt.Sprintf("You earned %d points", entry.Points)
	if entry.Points < 0 {
		msg = fmt.Sprintf("%d points were deducted", -entry.Points)
	}
	if entry.Description != "" {
		msg += ": " + entry.Description
	}

	if err := s.notifier.Notify(database.Detached(ctx), entry.UserID, msg, entity.NotificationPointsEarned, entry.SourceID); err != nil {
		s.log.Warn("failed to send points notification",
			zap.String("user_id", entry.UserID.String()),
			zap.String("source", string(entry.Source)),
			zap.Error(err),
		)
	}
}

func (s *pointsService) AdjustPoints(ctx context.Context, actor entity.Actor, userID uuid.UUID, amount int, reason string) (*dto.AwardResult, error) {
	if actor.Role != entity.RoleAdmin {
		return nil, apperror.New(http.StatusForbidden, "only admins can adjust points", apperror.ErrForbidden)
	}
	reason = sanitize.Text(reason)
	if reason == "" {
		return nil, apperror.Validation("reason is required")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.AwardPoints(ctx, dto.AwardRequest{
		UserID:      user.ID,
		Amount:      amount,
		Source:      entity.SourceAdminAdjustment,
		Role:        user.Role,
		Description: reason,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("points adjusted",
		zap.String("admin_id", actor.UserID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("amount", amount),
	)
	return result, nil
}

func (s *pointsService) History(ctx context.Context, userID uuid.UUID, page, limit int) (*dto.HistoryResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	entries, total, err := s.ledger.ListByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, apperror.Dependency("list points history", err)
	}
	return &dto.HistoryResponse{
		Data:       entries,
		TotalItems: total,
		Page:       page,
		Limit:      limit,
	}, nil
}
