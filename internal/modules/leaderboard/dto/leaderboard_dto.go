package dto

import (
	"time"

	"github.com/google/uuid"
)

// TierStatus is a user's position on the badge tier ladder.
type TierStatus struct {
	CurrentTier   string  `json:"current_tier"` // empty until the first tier is reached
	NextTier      string  `json:"next_tier"`    // next tier, or "Max Level"
	CurrentPoints int     `json:"current_points"`
	TargetPoints  int     `json:"target_points"`
	Progress      float64 `json:"progress"` // percentage toward NextTier (0-100)
}

// LeaderboardEntry is one ranked row of a role leaderboard.
type LeaderboardEntry struct {
	UserID            uuid.UUID  `json:"user_id"`
	Username          string     `json:"username"`
	Role              string     `json:"role"`
	Rank              int        `json:"rank"`
	TotalPoints       int        `json:"total_points"`
	DonationsCount    int        `json:"donations_count"`
	CollectionsCount  int        `json:"collections_count"`
	PickupsCount      int        `json:"pickups_count"`
	AchievementsCount int        `json:"achievements_count"`
	BadgesCount       int        `json:"badges_count"`
	TierStatus        TierStatus `json:"tier_status"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type LeaderboardQuery struct {
	Role  string `form:"role" binding:"required,oneof=DONOR NGO VOLUNTEER"`
	Limit int    `form:"limit"`
}

type RebuildResponse struct {
	Role  string `json:"role"`
	Users int    `json:"users"`
}
