package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleDonor     Role = "DONOR"
	RoleNGO       Role = "NGO"
	RoleVolunteer Role = "VOLUNTEER"
	RoleAdmin     Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleNGO, RoleVolunteer, RoleAdmin:
		return true
	}
	return false
}

// Location is embedded in users and donations. Coordinates are optional for
// users; a user without both coordinates never shows up in nearby searches.
type Location struct {
	Latitude  *float64 `gorm:"column:latitude" json:"lat,omitempty"`
	Longitude *float64 `gorm:"column:longitude" json:"lng,omitempty"`
	Address   string   `gorm:"column:address;type:text" json:"address"`
}

// Coordinates reports the location as a lat/lng pair when both are present.
func (l Location) Coordinates() (float64, float64, bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return 0, 0, false
	}
	return *l.Latitude, *l.Longitude, true
}

// User is owned by the account service. The engine only reads it and bumps
// TotalPoints through the points ledger.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username    string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role        Role      `gorm:"size:20;index;not null" json:"role"`
	Location    Location  `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	TotalPoints int       `gorm:"not null;default:0" json:"total_points"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) Coordinates() (float64, float64, bool) {
	return u.Location.Coordinates()
}

// Actor is the already-authenticated caller of an engine operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}
