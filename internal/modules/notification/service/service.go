package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"anoa.com/foodrescue/internal/entity"
	notifRepo "anoa.com/foodrescue/internal/modules/notification/repository"
	"anoa.com/foodrescue/pkg/database"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notifier is what the engine talks to. Callers log and swallow its errors.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, message, notifType string, relatedID *uuid.UUID) error
}

type NotificationService interface {
	Notifier
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	// Drain waits for emails already handed off, or until ctx is done.
	Drain(ctx context.Context) error
}

// emailTimeout bounds one background email, lookup included.
var emailTimeout = 15 * time.Second

// EmailLookup resolves a recipient address. An empty address skips email.
type EmailLookup func(ctx context.Context, userID uuid.UUID) (string, error)

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
	mailer      Mailer
	emailOf     EmailLookup
	log         *zap.Logger
	pending     sync.WaitGroup
}

// NewNotificationService wires the dispatcher. redisClient, mailer and
// emailOf are optional.
func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client, mailer Mailer, emailOf EmailLookup, log *zap.Logger) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
		mailer:      mailer,
		emailOf:     emailOf,
		log:         log,
	}
}

func ChannelFor(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}

func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, message, notifType string, relatedID *uuid.UUID) error {
	notification := &entity.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Message:   message,
		RelatedID: relatedID,
	}

	// 1. Save to DB
	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	var errs []error

	// 2. Publish to Redis if Redis is available
	if s.redisClient != nil {
		payload, err := json.Marshal(notification)
		if err == nil {
			err = s.redisClient.Publish(ctx, ChannelFor(userID), payload).Err()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("publish notification: %w", err))
		}
	}

	// 3. Email in the background; the caller's request must not wait on SMTP
	if s.mailer != nil && s.emailOf != nil {
		s.pending.Add(1)
		go s.email(database.Detached(context.WithoutCancel(ctx)), userID, notifType, message)
	}

	s.log.Debug("notification dispatched",
		zap.String("user_id", userID.String()),
		zap.String("type", notifType),
		zap.Int("channel_errors", len(errs)),
	)
	return errors.Join(errs...)
}

func (s *notificationService) email(ctx context.Context, userID uuid.UUID, notifType, message string) {
	defer s.pending.Done()
	ctx, cancel := context.WithTimeout(ctx, emailTimeout)
	defer cancel()

	to, err := s.emailOf(ctx, userID)
	if err == nil && to != "" {
		err = s.mailer.Send(ctx, to, subjectFor(notifType), message)
	}
	if err != nil {
		s.log.Warn("email notification failed",
			zap.String("user_id", userID.String()),
			zap.String("type", notifType),
			zap.Error(err),
		)
	}
}

func (s *notificationService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func subjectFor(notifType string) string {
	switch notifType {
	case entity.NotificationDonationAccepted:
		return "Your donation was accepted"
	case entity.NotificationPickupAssigned:
		return "New pickup assigned"
	case entity.NotificationDonationDelivered:
		return "Donation delivered"
	case entity.NotificationDonationCancelled:
		return "Donation cancelled"
	case entity.NotificationDonationExpired:
		return "Donation expired"
	case entity.NotificationAchievement:
		return "Achievement unlocked"
	case entity.NotificationBadge:
		return "New badge earned"
	default:
		return "Food Rescue update"
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, userID, id)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
