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
)

type DonationRepository interface {
	Create(ctx context.Context, donation *entity.Donation) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Donation, error)
	// TransitionStatus applies t only while the row is still in t.From and
	// reports whether it did.
	TransitionStatus(ctx context.Context, id uuid.UUID, t entity.DonationTransition) (bool, error)
	// DeleteIfCreated removes the donation only while it is CREATED.
	DeleteIfCreated(ctx context.Context, id uuid.UUID) (bool, error)
	// FindExpired lists non-terminal donations whose expiry is before now, oldest first.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Donation, error)
	FindByStatus(ctx context.Context, status entity.DonationStatus) ([]*entity.Donation, error)
	FindByDonor(ctx context.Context, donorID uuid.UUID, offset, limit int) ([]*entity.Donation, int64, error)
}

type donationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepository{db: db}
}

func (r *donationRepository) Create(ctx context.Context, donation *entity.Donation) error {
	return database.Conn(ctx, r.db).Create(donation).Error
}

func (r *donationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Donation, error) {
	var donation entity.Donation
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&donation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("donation %s not found", id)
		}
		return nil, err
	}
	return &donation, nil
}

func (r *donationRepository) TransitionStatus(ctx context.Context, id uuid.UUID, t entity.DonationTransition) (bool, error) {
	updates := map[string]any{
		"status":     t.To,
		"updated_at": t.At,
	}
	switch t.To {
	case entity.DonationAccepted:
		updates["accepted_by"] = t.AcceptedBy
		updates["accepted_at"] = t.At
	case entity.DonationAssigned:
		updates["assigned_volunteer_id"] = t.AssignedVolunteer
	case entity.DonationDelivered:
		updates["completed_at"] = t.At
	case entity.DonationCancelled:
		updates["cancelled_at"] = t.At
		updates["cancellation_reason"] = t.CancellationReason
	case entity.DonationExpired:
		updates["expired_at"] = t.At
	}

	res := database.Conn(ctx, r.db).Model(&entity.Donation{}).
		Where("id = ? AND status = ?", id, t.From).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *donationRepository) DeleteIfCreated(ctx context.Context, id uuid.UUID) (bool, error) {
	res := database.Conn(ctx, r.db).
		Where("id = ? AND status = ?", id, entity.DonationCreated).
		Delete(&entity.Donation{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *donationRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Donation, error) {
	var donations []*entity.Donation
	err := database.Conn(ctx, r.db).
		Where("expiry_date < ? AND status NOT IN ?", now, entity.TerminalStatuses).
		Order("expiry_date asc").
		Limit(limit).
		Find(&donations).Error
	return donations, err
}

func (r *donationRepository) FindByStatus(ctx context.Context, status entity.DonationStatus) ([]*entity.Donation, error) {
	var donations []*entity.Donation
	err := database.Conn(ctx, r.db).
		Where("status = ?", status).
		Order("created_at desc").
		Find(&donations).Error
	return donations, err
}

func (r *donationRepository) FindByDonor(ctx context.Context, donorID uuid.UUID, offset, limit int) ([]*entity.Donation, int64, error) {
	var (
		donations []*entity.Donation
		total     int64
	)
	db := database.Conn(ctx, r.db)
	if err := db.Model(&entity.Donation{}).Where("donor_id = ?", donorID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Where("donor_id = ?", donorID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&donations).Error
	return donations, total, err
}
