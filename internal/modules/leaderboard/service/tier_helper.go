package service

import (
	"math"

	"anoa.com/foodrescue/internal/config"
	"anoa.com/foodrescue/internal/modules/leaderboard/dto"
)

// MaxTier is reported as the next tier once the top tier is reached.
const MaxTier = "Max Level"

// GetTierStatus places totalPoints on the badge tier ladder. Tiers must be in
// ascending threshold order.
func GetTierStatus(totalPoints int, tiers []config.BadgeTier) dto.TierStatus {
	status := dto.TierStatus{
		CurrentTier:   "",
		CurrentPoints: totalPoints,
	}

	next := -1
	for i, tier := range tiers {
		if totalPoints >= tier.Threshold {
			status.CurrentTier = string(tier.Type)
			continue
		}
		next = i
		break
	}

	switch {
	case len(tiers) == 0:
		status.NextTier = MaxTier
		status.Progress = 100
	case next == -1:
		status.NextTier = MaxTier
		status.TargetPoints = tiers[len(tiers)-1].Threshold
		status.Progress = 100
	default:
		status.NextTier = string(tiers[next].Type)
		status.TargetPoints = tiers[next].Threshold
		if totalPoints > 0 && status.TargetPoints > 0 {
			status.Progress = (float64(totalPoints) / float64(status.TargetPoints)) * 100
		}
	}

	// Round progress to 2 decimal places
	status.Progress = math.Round(status.Progress*100) / 100

	return status
}
