package dto

import (
	"time"

	"anoa.com/foodrescue/internal/entity"
	leaderboardDto "anoa.com/foodrescue/internal/modules/leaderboard/dto"
	pointsDto "anoa.com/foodrescue/internal/modules/points/dto"
	"github.com/google/uuid"
)

// PointsSummary is returned for the current user's points page.
type PointsSummary struct {
	UserID      uuid.UUID                  `json:"user_id"`
	Username    string                     `json:"username"`
	Role        entity.Role                `json:"role"`
	TotalPoints int                        `json:"total_points"`
	Rank        *int                       `json:"rank,omitempty"` // nil until the user has a leaderboard entry
	TierStatus  leaderboardDto.TierStatus  `json:"tier_status"`
	History     *pointsDto.HistoryResponse `json:"history"`
}

// PublicProfileResponse is returned when viewing another user's profile
type PublicProfileResponse struct {
	ID           uuid.UUID                 `json:"id"`
	Username     string                    `json:"username"`
	Role         entity.Role               `json:"role"`
	CreatedAt    time.Time                 `json:"created_at"`
	TotalPoints  int                       `json:"total_points"`
	Rank         *int                      `json:"rank,omitempty"`
	TierStatus   leaderboardDto.TierStatus `json:"tier_status"`
	Achievements []entity.Achievement      `json:"achievements"`
	Badges       []entity.Badge            `json:"badges"`
}
