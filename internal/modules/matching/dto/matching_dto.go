package dto

import (
	"anoa.com/foodrescue/internal/entity"
	"github.com/google/uuid"
)

type NearbyQuery struct {
	Lat      *float64 `form:"lat" binding:"required"`
	Lng      *float64 `form:"lng" binding:"required"`
	RadiusKm *float64 `form:"radius"`
	Status   string   `form:"status"`
}

type NearbyUser struct {
	ID         uuid.UUID       `json:"id"`
	Username   string          `json:"username"`
	Role       entity.Role     `json:"role"`
	Location   entity.Location `json:"location"`
	DistanceKm float64         `json:"distance_km"`
}

type NearbyDonation struct {
	*entity.Donation
	DistanceKm float64 `json:"distance_km"`
}

type NearbyResponse[T any] struct {
	Data     []T     `json:"data"`
	RadiusKm float64 `json:"radius_km"`
}
