package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PointSource string

const (
	SourceDonation        PointSource = "DONATION"
	SourcePickup          PointSource = "PICKUP"
	SourceCompletion      PointSource = "COMPLETION"
	SourceAchievement     PointSource = "ACHIEVEMENT"
	SourceBadge           PointSource = "BADGE"
	SourceAdminAdjustment PointSource = "ADMIN_ADJUSTMENT"
)

// PointsLedgerEntry is append-only. (user_id, source, source_id) is unique
// whenever source_id is set; that index is the idempotency guard for awards.
type PointsLedgerEntry struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID   `gorm:"type:uuid;not null;index:idx_ledger_user_earned,priority:1;uniqueIndex:idx_ledger_source,priority:1,where:source_id IS NOT NULL" json:"user_id"`
	Points      int         `gorm:"not null" json:"points"`
	Source      PointSource `gorm:"size:30;not null;uniqueIndex:idx_ledger_source,priority:2,where:source_id IS NOT NULL" json:"source"`
	SourceID    *uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_ledger_source,priority:3,where:source_id IS NOT NULL" json:"source_id,omitempty"`
	Role        Role        `gorm:"size:20;not null" json:"role"`
	Description string      `gorm:"type:text" json:"description"`
	EarnedAt    time.Time   `gorm:"not null;index:idx_ledger_user_earned,priority:2" json:"earned_at"`
}

func (PointsLedgerEntry) TableName() string {
	return "points_ledger"
}

func (e *PointsLedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// LeaderboardEntry is materialized from the ledger, achievements and badges.
type LeaderboardEntry struct {
	UserID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role              Role      `gorm:"size:20;index:idx_leaderboard_role_points,priority:1;not null" json:"role"`
	TotalPoints       int       `gorm:"not null;default:0;index:idx_leaderboard_role_points,priority:2,sort:desc" json:"total_points"`
	Rank              int       `gorm:"not null;default:0" json:"rank"`
	DonationsCount    int       `gorm:"not null;default:0" json:"donations_count"`
	CollectionsCount  int       `gorm:"not null;default:0" json:"collections_count"`
	PickupsCount      int       `gorm:"not null;default:0" json:"pickups_count"`
	AchievementsCount int       `gorm:"not null;default:0" json:"achievements_count"`
	BadgesCount       int       `gorm:"not null;default:0" json:"badges_count"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type AchievementType string

const (
	AchievementDonation  AchievementType = "DONATION"
	AchievementPickup    AchievementType = "PICKUP"
	AchievementStreak    AchievementType = "STREAK"
	AchievementMilestone AchievementType = "MILESTONE"
	AchievementSpecial   AchievementType = "SPECIAL"
)

// Achievement is created at most once per (user_id, dedup_key).
type Achievement struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_achievement_dedup,priority:1" json:"user_id"`
	Type          AchievementType `gorm:"size:20;not null" json:"type"`
	Title         string          `gorm:"size:150;not null" json:"title"`
	Description   string          `gorm:"type:text" json:"description"`
	PointsAwarded int             `gorm:"not null;default:0" json:"points_awarded"`
	DedupKey      string          `gorm:"size:200;not null;uniqueIndex:idx_achievement_dedup,priority:2" json:"-"`
	Metadata      map[string]any  `gorm:"type:jsonb;serializer:json" json:"metadata,omitempty"`
	EarnedAt      time.Time       `gorm:"not null" json:"earned_at"`
}

func (a *Achievement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type BadgeType string

const (
	BadgeBronze   BadgeType = "BRONZE"
	BadgeSilver   BadgeType = "SILVER"
	BadgeGold     BadgeType = "GOLD"
	BadgePlatinum BadgeType = "PLATINUM"
	BadgeDiamond  BadgeType = "DIAMOND"
	BadgeSpecial  BadgeType = "SPECIAL"
)

// BadgeTierOrder is the unlock order of the point-threshold tiers.
var BadgeTierOrder = []BadgeType{BadgeBronze, BadgeSilver, BadgeGold, BadgePlatinum, BadgeDiamond}

// Badge is created at most once per (user_id, badge_type) and never revoked.
type Badge struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_badge_user_type,priority:1" json:"user_id"`
	BadgeType BadgeType `gorm:"size:20;not null;uniqueIndex:idx_badge_user_type,priority:2" json:"badge_type"`
	BadgeName string    `gorm:"size:100;not null" json:"badge_name"`
	Criteria  string    `gorm:"type:text" json:"criteria"`
	EarnedAt  time.Time `gorm:"not null" json:"earned_at"`
}

func (b *Badge) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
