package dto

import (
	"time"

	"anoa.com/foodrescue/internal/entity"
)

type CreateDonationRequest struct {
	FoodType    string    `json:"food_type" validate:"required,max=100"`
	Quantity    string    `json:"quantity" validate:"required,max=100"`
	Description string    `json:"description" validate:"max=2000"`
	ExpiryDate  time.Time `json:"expiry_date" validate:"required"`
	Latitude    *float64  `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64  `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	Address     string    `json:"address" validate:"max=500"`
}

type AssignVolunteerRequest struct {
	VolunteerID string `json:"volunteer_id" binding:"required,uuid"`
}

type CancelDonationRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type RatePickupRequest struct {
	Rating   int     `json:"rating" binding:"required,min=1,max=5"`
	Feedback *string `json:"feedback" binding:"omitempty,max=1000"`
}

type DonationListResponse struct {
	Data       []*entity.Donation `json:"data"`
	TotalItems int64              `json:"total_items"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
}

// DonationDetail is a donation with its pickup assignment, when one exists.
type DonationDetail struct {
	*entity.Donation
	Pickup *entity.PickupAssignment `json:"pickup,omitempty"`
}
