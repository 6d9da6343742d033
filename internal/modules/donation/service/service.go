package service

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/foodrescue/internal/config"
	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/metrics"
	achievementDto "anoa.com/foodrescue/internal/modules/achievement/dto"
	"anoa.com/foodrescue/internal/modules/donation/dto"
	donationRepo "anoa.com/foodrescue/internal/modules/donation/repository"
	notifService "anoa.com/foodrescue/internal/modules/notification/service"
	pickupRepo "anoa.com/foodrescue/internal/modules/pickup/repository"
	pointsDto "anoa.com/foodrescue/internal/modules/points/dto"
	userRepo "anoa.com/foodrescue/internal/modules/user/repository"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/clock"
	"anoa.com/foodrescue/pkg/database"
	"anoa.com/foodrescue/pkg/geo"
	"anoa.com/foodrescue/pkg/sanitize"
	"anoa.com/foodrescue/pkg/validator"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PointsAwarder is the slice of the points service the state machine needs.
type PointsAwarder interface {
	AwardPoints(ctx context.Context, req pointsDto.AwardRequest) (*pointsDto.AwardResult, error)
	NotifyAward(ctx context.Context, result *pointsDto.AwardResult)
	CalculatePoints(action string, role entity.Role) int
}

// ActivityEvaluator runs achievement and badge checks after a commit.
type ActivityEvaluator interface {
	EvaluateActivity(ctx context.Context, userID uuid.UUID, role entity.Role, trigger string, milestones bool) (*achievementDto.EvaluationResult, error)
}

type DonationService interface {
	Create(ctx context.Context, actor entity.Actor, req dto.CreateDonationRequest) (*entity.Donation, error)
	Accept(ctx context.Context, actor entity.Actor, donationID uuid.UUID) (*entity.Donation, error)
	AssignVolunteer(ctx context.Context, actor entity.Actor, donationID, volunteerID uuid.UUID) (*entity.Donation, error)
	StartPickup(ctx context.Context, actor entity.Actor, donationID uuid.UUID) (*entity.Donation, error)
	Complete(ctx context.Context, actor entity.Actor, donationID uuid.UUID) (*entity.Donation, error)
	Cancel(ctx context.Context, actor entity.Actor, donationID uuid.UUID, reason string) (*entity.Donation, error)
	// Expire moves a donation whose expiry has passed to EXPIRED.
	Expire(ctx context.Context, donationID uuid.UUID) (*entity.Donation, error)
	// Delete removes a donation that is still CREATED.
	Delete(ctx context.Context, actor entity.Actor, donationID uuid.UUID) error
	Get(ctx context.Context, donationID uuid.UUID) (*dto.DonationDetail, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID, page, limit int) (*dto.DonationListResponse, error)
	RatePickup(ctx context.Context, actor entity.Actor, donationID uuid.UUID, rating int, feedback *string) (*entity.PickupAssignment, error)
}

type donationService struct {
	repo       donationRepo.DonationRepository
	pickupRepo pickupRepo.PickupRepository
	userRepo   userRepo.UserRepository
	points     PointsAwarder
	evaluator  ActivityEvaluator
	notifier   notifService.Notifier
	tx         database.Transactor
	clock      clock.Clock
	log        *zap.Logger
}

func NewDonationService(
	repo donationRepo.DonationRepository,
	pickupRepo pickupRepo.PickupRepository,
	userRepo userRepo.UserRepository,
	points PointsAwarder,
	evaluator ActivityEvaluator,
	notifier notifService.Notifier,
	tx database.Transactor,
	clk clock.Clock,
	log *zap.Logger,
) DonationService {
	return &donationService{
		repo:       repo,
		pickupRepo: pickupRepo,
		userRepo:   userRepo,
		points:     points,
		evaluator:  evaluator,
		notifier:   notifier,
		tx:         tx,
		clock:      clk,
		log:        log,
	}
}

func (s *donationService) Create(ctx context.Context, actor entity.Actor, req dto.CreateDonationRequest) (*entity.Donation, error) {
	req.FoodType = sanitize.Text(req.FoodType)
	req.Quantity = sanitize.Text(req.Quantity)
	req.Description = sanitize.Text(req.Description)
	req.Address = sanitize.Text(req.Address)

	if actor.UserID == uuid.Nil {
		return nil, apperror.Validation("donor is required")
	}
	if err := validator.Struct(req); err != nil {
		return nil, apperror.Validation("%s", err.Error())
	}
	if !req.ExpiryDate.After(s.clock.Now()) {
		return nil, apperror.Validation("expiry date must be in the future")
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, apperror.Validation("latitude and longitude must be given together")
	}
	if req.Latitude != nil && !geo.ValidCoordinates(*req.Latitude, *req.Longitude) {
		return nil, apperror.Validation("coordinates are out of range")
	}

	donation := &entity.Donation{
		ID:          uuid.New(),
		DonorID:     actor.UserID,
		FoodType:    req.FoodType,
		Quantity:    req.Quantity,
		Description: req.Description,
		ExpiryDate:  req.ExpiryDate.UTC(),
		Location: entity.Location{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Address:   req.Address,
		},
		Status: entity.DonationCreated,
	}
	if err := s.repo.Create(ctx, donation); err != nil {
		return nil, apperror.Dependency("create donation", err)
	}

	s.log.Info("donation created",
		zap.String("donation_id", donation.ID.String()),
		zap.String("donor_id", actor.UserID.String()),
	)
	return donation, nil
}

// transitionFn runs inside the transaction after the status row has moved.
// Awards it returns are announced once the transaction commits.
type transitionFn func(ctx context.Context, d *entity.Donation) ([]*pointsDto.AwardResult, error)

// apply moves the donation with a compare-and-set on its current status.
// Losing a race to another writer surfaces as an invalid transition.
// allow runs after the status check; a nil allow skips the actor check.
func (s *donationService) apply(ctx context.Context, donationID uuid.UUID, event Event, allow guard, t entity.DonationTransition, fn transitionFn) (*entity.Donation, []*pointsDto.AwardResult, error) {
	donation, err := s.repo.FindByID(ctx, donationID)
	if err != nil {
		return nil, nil, err
	}

	to, err := NextStatus(donation.Status, event)
	if err != nil {
		return nil, nil, err
	}
	if allow != nil {
		if err := allow(donation); err != nil {
			return nil, nil, err
		}
	}
	t.From, t.To, t.At = donation.Status, to, s.clock.Now()

	var awards []*pointsDto.AwardResult
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		awards = nil

		ok, err := s.repo.TransitionStatus(ctx, donation.ID, t)
		if err != nil {
			return apperror.Dependency("update donation status", err)
		}
		if !ok {
			return apperror.InvalidTransition("donation %s was changed concurrently", donation.ID)
		}
		if fn == nil {
			return nil
		}
		awards, err = fn(ctx, donation)
		return err
	})
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidTransition) || errors.Is(err, apperror.ErrNotFound) ||
			errors.Is(err, apperror.ErrValidation) || errors.Is(err, apperror.ErrDependency) {
			return nil, nil, err
		}
		return nil, nil, apperror.Dependency("apply donation transition", err)
	}

	applyTransition(donation, t)
	metrics.RecordTransition(string(t.From), string(t.To))
	s.log.Info("donation transitioned",
		zap.String("donation_id", donation.ID.String()),
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
	)

	for _, award := range awards {
		s.points.NotifyAward(ctx, award)
	}
	return donation, awards, nil
}

func applyTransition(d *entity.Donation, t entity.DonationTransition) {
	at := t.At
	d.Status = t.To
	d.UpdatedAt = at
	switch t.To {
	case entity.DonationAccepted:
		d.AcceptedBy = t.AcceptedBy
		d.AcceptedAt = &at
	case entity.DonationAssigned:
		d.AssignedVolunteerID = t.AssignedVolunteer
	case entity.DonationDelivered:
		d.CompletedAt = &at
	case entity.DonationCancelled:
		d.CancelledAt = &at
		d.CancellationReason = t.CancellationReason
	case entity.DonationExpired:
		d.ExpiredAt = &at
	}
}

// award skips zero amounts so a rule configured to 0 is not an error.
func (s *donationService) award(ctx context.Context, userID uuid.UUID, role entity.Role, action string, source entity.PointSource, sourceID uuid.UUID, description string) (*pointsDto.AwardResult, error) {
	amount := s.points.CalculatePoints(action, role)
	if amount == 0 {
		return nil, nil
	}
	return s.points.AwardPoints(ctx, pointsDto.AwardRequest{
		UserID:      userID,
		Amount:      amount,
		Source:      source,
		Role:        role,
		SourceID:    &sourceID,
		Description: description,
	})
}

func (s *donationService) Accept(ctx context.Context, actor entity.Actor, donationID uuid.UUID) (*entity.Donation, error) {
	orgID := actor.UserID
	donation, _, err := s.apply(ctx, donationID, EventAccept, actingAs(actor, entity.RoleNGO), entity.DonationTransition{AcceptedBy: &orgID},
		func(ctx context.Context, d *entity.Donation) ([]*pointsDto.AwardResult, error) {
			donorAward, err := s.award(ctx, d.DonorID, entity.RoleDonor, config.ActionDonation, entity.SourceDonation, d.ID,
				fmt.Sprintf("Donation of %s accepted", d.FoodType))
			if err != nil {
				return nil, err
			}
			orgAward, err := s.award(ctx, orgID, actor.Role, config.ActionDonation, entity.SourceDonation, d.ID,
				fmt.Sprintf("Accepted donation of %s", d.FoodType))
			if err != nil {
				return nil, err
			}
			return []*pointsDto.AwardResult{donorAward, orgAward}, nil
		})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, donation.DonorID, fmt.Sprintf("Your donation of %s has been accepted", donation.FoodType), entity.NotificationDonationAccepted, donation.ID)
	s.evaluate(ctx, orgID, actor.Role, config.TriggerDonationsAccepted, false)
	s.evaluate(ctx, donation.DonorID, entity.RoleDonor, "", false)
	return donation, nil
}

func (s *donationService) AssignVolunteer(ctx context.Context, actor entity.Actor, donationID, volunteerID uuid.UUID) (*entity.Donation, error) {
	volunteer, err := s.userRepo.FindByID(ctx, volunteerID)
	if err != nil {
		return nil, err
	}
	if volunteer.Role != entity.RoleVolunteer {
		return nil, apperror.Validation("user %s is not a volunteer", volunteerID)
	}

	donation, _, err := s.apply(ctx, donationID, EventAssign, acceptingOrgOrAdmin(actor), entity.DonationTransition{AssignedVolunteer: &volunteerID},
		func(ctx context.Context, d *entity.Donation) ([]*pointsDto.AwardResult, error) {
			err := s.pickupRepo.Assign(ctx, &entity.PickupAssignment{
				ID:          uuid.New(),
				DonationID:  d.ID,
				VolunteerID: volunteerID,
				Status:      entity.PickupPending,
				AssignedAt:  s.clock.Now(),
			})
			if err != nil {
				return nil, apperror.Dependency("assign pickup", err)
			}
			return nil, nil
		})
	if err != nil {
		return nil, err
	}

	s.log.Info("volunteer assigned",
		zap.String("donation_id", donation.ID.String()),
		zap.String("volunteer_id", volunteerID.String()),
		zap.String("assigned_by", actor.UserID.String()),
	)
	s.notify(ctx, volunteerID, fmt.Sprintf("You have been assigned to pick up %s", donation.FoodType), entity.NotificationPickupAssigned, donation.ID)
	return donation, nil
}

func (s *donationService) StartPickup(ctx context.Context, actor entity.Actor, donationID uuid.UUID) (*entity.Donation, error) {
	donation, _, err := s.apply(ctx, donationID, EventStartPickup, assignedVolunteer(actor), entity.DonationTransition{},
		func(ctx context.Context, d *entity.Donation) ([]*pointsDto.AwardResult, error) {
			assignment, err := s.pickupRepo.FindByDonationID(ctx, d.ID)
			if err != nil {
				return nil, err
			}
			if err := s.pickupRepo.UpdateStatus(ctx, assignment.ID, entity.PickupInProgress, s.clock.Now()); err != nil {
				return nil, apperror.Dependency("start pickup", err)
			}
			return nil, nil
		})
	if err != nil {
		return nil, err
	}

	s.log.Debug("pickup started",
		zap.String("donation_id", donation.ID.String()),
		zap.String("actor_id", actor.UserID.String()),
	)
	return donation, nil
}

func (s *donationService) Complete(ctx context.Context, actor entity.Actor, donationID uuid.UUID) (*entity.Donation, error) {
	var volunteerID *uuid.UUID
	donation, _, err := s.apply(ctx, donationID, EventComplete, volunteerOrAcceptingOrg(actor), entity.DonationTransition{},
		func(ctx context.Context, d *entity.Donation) ([]*pointsDto.AwardResult, error) {
			volunteerID = nil
			awards := make([]*pointsDto.AwardResult, 0, 2)

			donorAward, err := s.award(ctx, d.DonorID, entity.RoleDonor, config.ActionCompletion, entity.SourceCompletion, d.ID,
				fmt.Sprintf("Donation of %s delivered", d.FoodType))
			if err != nil {
				return nil, err
			}
			awards = append(awards, donorAward)

			if d.AssignedVolunteerID == nil {
				return awards, nil
			}
			assignment, err := s.pickupRepo.FindByDonationID(ctx, d.ID)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					return awards, nil
				}
				return nil, apperror.Dependency("load pickup", err)
			}
			if err := s.pickupRepo.UpdateStatus(ctx, assignment.ID, entity.PickupCompleted, s.clock.Now()); err != nil {
				return nil, apperror.Dependency("complete pickup", err)
			}
			volunteerAward, err := s.award(ctx, assignment.VolunteerID, entity.RoleVolunteer, config.ActionCompletion, entity.SourcePickup, assignment.ID,
				fmt.Sprintf("Delivered %s", d.FoodType))
			if err != nil {
				return nil, err
			}
			volunteerID = &assignment.VolunteerID
			return append(awards, volunteerAward), nil
		})
	if err != nil {
		return nil, err
	}

	s.log.Info("donation delivered",
		zap.String("donation_id", donation.ID.String()),
		zap.String("completed_by", actor.UserID.String()),
	)
	s.notify(ctx, donation.DonorID, fmt.Sprintf("Your donation of %s has been delivered", donation.FoodType), entity.NotificationDonationDelivered, donation.ID)
	s.evaluate(ctx, donation.DonorID, entity.RoleDonor, config.TriggerDonationsCompleted, true)
	if volunteerID != nil {
		s.evaluate(ctx, *volunteerID, entity.RoleVolunteer, config.TriggerPickupsCompleted, true)
	}
	return donation, nil
}

func (s *donationService) Cancel(ctx context.Context, actor entity.Actor, donationID uuid.UUID, reason string) (*entity.Donation, error) {
	var cancelReason *string
	if r := sanitize.Text(reason); r != "" {
		cancelReason = &r
	}

	var volunteerID *uuid.UUID
	donation, _, err := s.apply(ctx, donationID, EventCancel, donorOrgOrAdmin(actor), entity.DonationTransition{CancellationReason: cancelReason},
		func(ctx context.Context, d *entity.Donation) ([]*pointsDto.AwardResult, error) {
			var err error
			volunteerID, err = s.cancelPickup(ctx, d.ID)
			return nil, err
		})
	if err != nil {
		return nil, err
	}

	s.log.Info("donation cancelled",
		zap.String("donation_id", donation.ID.String()),
		zap.String("cancelled_by", actor.UserID.String()),
	)
	if volunteerID != nil {
		s.notify(ctx, *volunteerID, fmt.Sprintf("The pickup of %s was cancelled", donation.FoodType), entity.NotificationDonationCancelled, donation.ID)
	}
	if actor.UserID != donation.DonorID {
		s.notify(ctx, donation.DonorID, fmt.Sprintf("Your donation of %s was cancelled", donation.FoodType), entity.NotificationDonationCancelled, donation.ID)
	}
	return donation, nil
}

// cancelPickup closes a still-open assignment and returns its volunteer.
func (s *donationService) cancelPickup(ctx context.Context, donationID uuid.UUID) (*uuid.UUID, error) {
	assignment, err := s.pickupRepo.FindByDonationID(ctx, donationID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, apperror.Dependency("load pickup", err)
	}
	if assignment.Status.IsTerminal() {
		return nil, nil
	}
	if err := s.pickupRepo.UpdateStatus(ctx, assignment.ID, entity.PickupCancelled, s.clock.Now()); err != nil {
		return nil, apperror.Dependency("cancel pickup", err)
	}
	return &assignment.VolunteerID, nil
}

func (s *donationService) Expire(ctx context.Context, donationID uuid.UUID) (*entity.Donation, error) {
	current, err := s.repo.FindByID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if !current.Status.IsTerminal() && !current.ExpiryDate.Before(s.clock.Now()) {
		return nil, apperror.Validation("donation %s has not expired yet", donationID)
	}

	donation, _, err := s.apply(ctx, donationID, EventExpire, nil, entity.DonationTransition{},
		func(ctx context.Context, d *entity.Donation) ([]*pointsDto.AwardResult, error) {
			_, err := s.cancelPickup(ctx, d.ID)
			return nil, err
		})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, donation.DonorID, fmt.Sprintf("Your donation of %s expired before it could be delivered", donation.FoodType), entity.NotificationDonationExpired, donation.ID)
	return donation, nil
}

func (s *donationService) Delete(ctx context.Context, actor entity.Actor, donationID uuid.UUID) error {
	donation, err := s.repo.FindByID(ctx, donationID)
	if err != nil {
		return err
	}
	if donation.DonorID != actor.UserID && actor.Role != entity.RoleAdmin {
		return apperror.Forbidden("only the donor or an admin can delete donation %s", donationID)
	}
	if donation.Status != entity.DonationCreated {
		return apperror.InvalidTransition("only CREATED donations can be deleted, this one is %s", donation.Status)
	}

	deleted, err := s.repo.DeleteIfCreated(ctx, donationID)
	if err != nil {
		return apperror.Dependency("delete donation", err)
	}
	if !deleted {
		return apperror.InvalidTransition("donation %s was changed concurrently", donationID)
	}

	s.log.Info("donation deleted",
		zap.String("donation_id", donationID.String()),
		zap.String("deleted_by", actor.UserID.String()),
	)
	return nil
}

func (s *donationService) Get(ctx context.Context, donationID uuid.UUID) (*dto.DonationDetail, error) {
	donation, err := s.repo.FindByID(ctx, donationID)
	if err != nil {
		return nil, err
	}

	detail := &dto.DonationDetail{Donation: donation}
	assignment, err := s.pickupRepo.FindByDonationID(ctx, donationID)
	switch {
	case err == nil:
		detail.Pickup = assignment
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, apperror.Dependency("load pickup", err)
	}
	return detail, nil
}

func (s *donationService) ListByDonor(ctx context.Context, donorID uuid.UUID, page, limit int) (*dto.DonationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	donations, total, err := s.repo.FindByDonor(ctx, donorID, (page-1)*limit, limit)
	if err != nil {
		return nil, apperror.Dependency("list donations", err)
	}
	return &dto.DonationListResponse{
		Data:       donations,
		TotalItems: total,
		Page:       page,
		Limit:      limit,
	}, nil
}

func (s *donationService) RatePickup(ctx context.Context, actor entity.Actor, donationID uuid.UUID, rating int, feedback *string) (*entity.PickupAssignment, error) {
	if rating < 1 || rating > 5 {
		return nil, apperror.Validation("rating must be between 1 and 5")
	}

	donation, err := s.repo.FindByID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if err := donorOrAcceptingOrg(actor)(donation); err != nil {
		return nil, err
	}

	assignment, err := s.pickupRepo.FindByDonationID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if assignment.Status != entity.PickupCompleted {
		return nil, apperror.InvalidTransition("only completed pickups can be rated, this one is %s", assignment.Status)
	}

	feedback = sanitize.TextPtr(feedback)
	if err := s.pickupRepo.Rate(ctx, assignment.ID, rating, feedback); err != nil {
		return nil, apperror.Dependency("rate pickup", err)
	}
	assignment.Rating = &rating
	assignment.Feedback = feedback

	s.log.Debug("pickup rated",
		zap.String("assignment_id", assignment.ID.String()),
		zap.String("rated_by", actor.UserID.String()),
		zap.Int("rating", rating),
	)
	return assignment, nil
}

func (s *donationService) evaluate(ctx context.Context, userID uuid.UUID, role entity.Role, trigger string, milestones bool) {
	if s.evaluator == nil {
		return
	}
	if _, err := s.evaluator.EvaluateActivity(ctx, userID, role, trigger, milestones); err != nil {
		s.log.Warn("achievement evaluation failed",
			zap.String("user_id", userID.String()),
			zap.String("role", string(role)),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
	}
}

func (s *donationService) notify(ctx context.Context, userID uuid.UUID, message, notifType string, relatedID uuid.UUID) {
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
