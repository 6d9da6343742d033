package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DonationStatus string

const (
	DonationCreated   DonationStatus = "CREATED"
	DonationAccepted  DonationStatus = "ACCEPTED"
	DonationAssigned  DonationStatus = "ASSIGNED"
	DonationInTransit DonationStatus = "IN_TRANSIT"
	DonationDelivered DonationStatus = "DELIVERED"
	DonationCancelled DonationStatus = "CANCELLED"
	DonationExpired   DonationStatus = "EXPIRED"
)

// TerminalStatuses accept no further transitions.
var TerminalStatuses = []DonationStatus{DonationDelivered, DonationCancelled, DonationExpired}

func (s DonationStatus) IsTerminal() bool {
	for _, t := range TerminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}

type Donation struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DonorID             uuid.UUID      `gorm:"type:uuid;index;not null" json:"donor_id"`
	FoodType            string         `gorm:"size:100;not null" json:"food_type"`
	Quantity            string         `gorm:"size:100;not null" json:"quantity"`
	Description         string         `gorm:"type:text" json:"description,omitempty"`
	ExpiryDate          time.Time      `gorm:"index;not null" json:"expiry_date"`
	Location            Location       `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Status              DonationStatus `gorm:"size:20;index;not null" json:"status"`
	AcceptedBy          *uuid.UUID     `gorm:"type:uuid;index" json:"accepted_by,omitempty"`
	AssignedVolunteerID *uuid.UUID     `gorm:"type:uuid;index" json:"assigned_volunteer,omitempty"`
	AcceptedAt          *time.Time     `json:"accepted_at,omitempty"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`
	CancelledAt         *time.Time     `json:"cancelled_at,omitempty"`
	ExpiredAt           *time.Time     `json:"expired_at,omitempty"`
	CancellationReason  *string        `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d *Donation) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (d *Donation) Coordinates() (float64, float64, bool) {
	return d.Location.Coordinates()
}

// DonationTransition describes a compare-and-set status change. Only the
// fields relevant to the target status are written.
type DonationTransition struct {
	From               DonationStatus
	To                 DonationStatus
	At                 time.Time
	AcceptedBy         *uuid.UUID
	AssignedVolunteer  *uuid.UUID
	CancellationReason *string
}

type PickupStatus string

const (
	PickupPending    PickupStatus = "PENDING"
	PickupInProgress PickupStatus = "IN_PROGRESS"
	PickupCompleted  PickupStatus = "COMPLETED"
	PickupCancelled  PickupStatus = "CANCELLED"
)

func (s PickupStatus) IsTerminal() bool {
	return s == PickupCompleted || s == PickupCancelled
}

// PickupAssignment binds a volunteer to a donation. It references the donation
// by id only; the donation finds it back through DonationID.
type PickupAssignment struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	DonationID  uuid.UUID    `gorm:"type:uuid;uniqueIndex;not null" json:"donation_id"`
	VolunteerID uuid.UUID    `gorm:"type:uuid;index;not null" json:"volunteer_id"`
	Status      PickupStatus `gorm:"size:20;not null" json:"status"`
	AssignedAt  time.Time    `json:"assigned_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CancelledAt *time.Time   `json:"cancelled_at,omitempty"`
	Rating      *int         `json:"rating,omitempty"`
	Feedback    *string      `gorm:"type:text" json:"feedback,omitempty"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *PickupAssignment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
