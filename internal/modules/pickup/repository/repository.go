package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PickupRepository interface {
	// Assign creates the assignment for a donation, or replaces the volunteer
	// and resets it to PENDING when one already exists.
	Assign(ctx context.Context, assignment *entity.PickupAssignment) error
	FindByDonationID(ctx context.Context, donationID uuid.UUID) (*entity.PickupAssignment, error)
	FindByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]entity.PickupAssignment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.PickupStatus, at time.Time) error
	Rate(ctx context.Context, id uuid.UUID, rating int, feedback *string) error
}

type pickupRepository struct {
	db *gorm.DB
}

func NewPickupRepository(db *gorm.DB) PickupRepository {
	return &pickupRepository{db: db}
}

func (r *pickupRepository) Assign(ctx context.Context, assignment *entity.PickupAssignment) error {
	db := database.Conn(ctx, r.db)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "donation_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"volunteer_id": assignment.VolunteerID,
			"status":       entity.PickupPending,
			"assigned_at":  assignment.AssignedAt,
			"started_at":   nil,
			"completed_at": nil,
			"cancelled_at": nil,
			"updated_at":   assignment.AssignedAt,
		}),
	}).Create(assignment).Error
	if err != nil {
		return err
	}

	// on replace the generated id is not the stored one
	stored, err := r.FindByDonationID(ctx, assignment.DonationID)
	if err != nil {
		return err
	}
	*assignment = *stored
	return nil
}

func (r *pickupRepository) FindByDonationID(ctx context.Context, donationID uuid.UUID) (*entity.PickupAssignment, error) {
	var assignment entity.PickupAssignment
	if err := database.Conn(ctx, r.db).Where("donation_id = ?", donationID).First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("pickup assignment for donation %s not found", donationID)
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *pickupRepository) FindByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]entity.PickupAssignment, error) {
	var assignments []entity.PickupAssignment
	err := database.Conn(ctx, r.db).
		Where("volunteer_id = ?", volunteerID).
		Order("assigned_at desc").
		Find(&assignments).Error
	return assignments, err
}

func (r *pickupRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.PickupStatus, at time.Time) error {
	updates := map[string]any{"status": status, "updated_at": at}
	switch status {
	case entity.PickupInProgress:
		updates["started_at"] = at
	case entity.PickupCompleted:
		updates["completed_at"] = at
	case entity.PickupCancelled:
		updates["cancelled_at"] = at
	}

	res := database.Conn(ctx, r.db).Model(&entity.PickupAssignment{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("pickup assignment %s not found", id)
	}
	return nil
}

func (r *pickupRepository) Rate(ctx context.Context, id uuid.UUID, rating int, feedback *string) error {
	res := database.Conn(ctx, r.db).Model(&entity.PickupAssignment{}).
		Where("id = ?", id).
		Updates(map[string]any{"rating": rating, "feedback": feedback})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("pickup assignment %s not found", id)
	}
	return nil
}
