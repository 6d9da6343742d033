package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationDonationAccepted  = "donation_accepted"
	NotificationPickupAssigned    = "pickup_assigned"
	NotificationDonationDelivered = "donation_delivered"
	NotificationDonationCancelled = "donation_cancelled"
	NotificationDonationExpired   = "donation_expired"
	NotificationPointsEarned      = "points_earned"
	NotificationAchievement       = "achievement_earned"
	NotificationBadge             = "badge_earned"
)

type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"` // recipient
	Type      string     `gorm:"type:varchar(50);not null" json:"type"`   // donation_accepted, points_earned, ...
	Message   string     `gorm:"type:text" json:"message"`
	RelatedID *uuid.UUID `gorm:"type:uuid" json:"related_id,omitempty"` // donation, achievement or badge id
	IsRead    bool       `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
