package dto

import "anoa.com/foodrescue/internal/entity"

type AchievementsResponse struct {
	Data []entity.Achievement `json:"data"`
}

type BadgesResponse struct {
	Data []entity.Badge `json:"data"`
}

// EvaluationResult lists what a single evaluation pass unlocked.
type EvaluationResult struct {
	Achievements []entity.Achievement `json:"achievements"`
	Badges       []entity.Badge       `json:"badges"`
}
