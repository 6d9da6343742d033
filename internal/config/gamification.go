package config

import (
	"errors"
	"fmt"
	"os"

	"anoa.com/foodrescue/internal/entity"
	"gopkg.in/yaml.v3"
)

// Point rule keys. Roles are looked up first, then DefaultRuleKey.
const (
	ActionDonation   = "DONATION"
	ActionPickup     = "PICKUP"
	ActionCompletion = "COMPLETION"
	ActionMilestone  = "MILESTONE"

	DefaultRuleKey = "default"
)

// Achievement triggers.
const (
	TriggerDonationsAccepted  = "donations_accepted"
	TriggerDonationsCompleted = "donations_completed"
	TriggerPickupsCompleted   = "pickups_completed"
	TriggerTotalPoints        = "total_points"
)

type BadgeTier struct {
	Type        entity.BadgeType `yaml:"type"`
	Name        string           `yaml:"name"`
	Criteria    string           `yaml:"criteria"`
	Threshold   int              `yaml:"threshold"`
	BonusPoints int              `yaml:"bonus_points"`
}

type AchievementDef struct {
	ID          string                 `yaml:"id"`
	Title       string                 `yaml:"title"`
	Description string                 `yaml:"description"`
	Type        entity.AchievementType `yaml:"type"`
	Trigger     string                 `yaml:"trigger"`
	TargetValue int                    `yaml:"target_value"`
	Points      int                    `yaml:"points"`
}

// Gamification is the static reward catalog.
type Gamification struct {
	PointRules       map[string]map[string]int          `yaml:"point_rules"`
	BadgeTiers       []BadgeTier                        `yaml:"badge_tiers"`
	Achievements     map[entity.Role][]AchievementDef   `yaml:"achievements"`
	Milestones       []int                              `yaml:"milestones"`
	MilestoneSources map[entity.Role]entity.PointSource `yaml:"milestone_sources"`
}

func DefaultGamification() *Gamification {
	return &Gamification{
		PointRules: map[string]map[string]int{
			ActionDonation:   {string(entity.RoleDonor): 10, DefaultRuleKey: 5},
			ActionPickup:     {string(entity.RoleVolunteer): 15, DefaultRuleKey: 10},
			ActionCompletion: {string(entity.RoleDonor): 20, string(entity.RoleVolunteer): 25, string(entity.RoleNGO): 15, DefaultRuleKey: 10},
			ActionMilestone:  {DefaultRuleKey: 50},
		},
		BadgeTiers: []BadgeTier{
			{Type: entity.BadgeBronze, Name: "Bronze Saver", Criteria: "Earn 100 points", Threshold: 100},
			{Type: entity.BadgeSilver, Name: "Silver Saver", Criteria: "Earn 500 points", Threshold: 500},
			{Type: entity.BadgeGold, Name: "Gold Saver", Criteria: "Earn 1000 points", Threshold: 1000},
			{Type: entity.BadgePlatinum, Name: "Platinum Saver", Criteria: "Earn 2500 points", Threshold: 2500},
			{Type: entity.BadgeDiamond, Name: "Diamond Saver", Criteria: "Earn 5000 points", Threshold: 5000},
		},
		Achievements: map[entity.Role][]AchievementDef{
			entity.RoleDonor: {
				{ID: "donor_first_donation", Title: "First Share", Description: "Completed your first donation", Type: entity.AchievementDonation, Trigger: TriggerDonationsCompleted, TargetValue: 1, Points: 25},
				{ID: "donor_generous", Title: "Generous Giver", Description: "Completed 10 donations", Type: entity.AchievementDonation, Trigger: TriggerDonationsCompleted, TargetValue: 10, Points: 100},
				{ID: "donor_food_hero", Title: "Food Hero", Description: "Reached 1000 points", Type: entity.AchievementSpecial, Trigger: TriggerTotalPoints, TargetValue: 1000, Points: 100},
			},
			entity.RoleNGO: {
				{ID: "ngo_first_rescue", Title: "First Rescue", Description: "Accepted your first donation", Type: entity.AchievementDonation, Trigger: TriggerDonationsAccepted, TargetValue: 1, Points: 25},
				{ID: "ngo_community_pillar", Title: "Community Pillar", Description: "Accepted 25 donations", Type: entity.AchievementDonation, Trigger: TriggerDonationsAccepted, TargetValue: 25, Points: 150},
			},
			entity.RoleVolunteer: {
				{ID: "volunteer_first_ride", Title: "First Ride", Description: "Completed your first pickup", Type: entity.AchievementPickup, Trigger: TriggerPickupsCompleted, TargetValue: 1, Points: 25},
				{ID: "volunteer_road_warrior", Title: "Road Warrior", Description: "Completed 20 pickups", Type: entity.AchievementPickup, Trigger: TriggerPickupsCompleted, TargetValue: 20, Points: 150},
			},
		},
		Milestones: []int{5, 10, 25, 50, 100},
		MilestoneSources: map[entity.Role]entity.PointSource{
			entity.RoleDonor:     entity.SourceDonation,
			entity.RoleVolunteer: entity.SourcePickup,
		},
	}
}

// LoadGamification returns the defaults overlaid with the YAML file at path.
// An empty path yields the defaults.
func LoadGamification(path string) (*Gamification, error) {
	g := DefaultGamification()
	if path == "" {
		return g, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gamification file: %w", err)
	}
	if err := yaml.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("parse gamification file: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Gamification) Validate() error {
	var errs []error

	prev := -1
	for _, tier := range g.BadgeTiers {
		if tier.Type == "" {
			errs = append(errs, errors.New("badge tier without type"))
		}
		if tier.Threshold <= prev {
			errs = append(errs, fmt.Errorf("badge tier %s: threshold %d must exceed %d", tier.Type, tier.Threshold, prev))
		}
		if tier.BonusPoints < 0 {
			errs = append(errs, fmt.Errorf("badge tier %s: negative bonus", tier.Type))
		}
		prev = tier.Threshold
	}

	for role, defs := range g.Achievements {
		seenID := map[string]bool{}
		seenTitle := map[string]bool{}
		for _, def := range defs {
			if def.ID == "" || def.Title == "" {
				errs = append(errs, fmt.Errorf("achievement for %s needs id and title", role))
				continue
			}
			if seenID[def.ID] || seenTitle[def.Title] {
				errs = append(errs, fmt.Errorf("achievement %s duplicated for %s", def.ID, role))
			}
			seenID[def.ID], seenTitle[def.Title] = true, true
			if def.TargetValue < 0 || def.Points < 0 {
				errs = append(errs, fmt.Errorf("achievement %s: negative target or points", def.ID))
			}
		}
	}

	for _, m := range g.Milestones {
		if m <= 0 {
			errs = append(errs, fmt.Errorf("milestone %d must be positive", m))
		}
	}

	return errors.Join(errs...)
}

// PointsFor resolves a point rule: role entry, then default, then 0.
func (g *Gamification) PointsFor(action string, role entity.Role) int {
	rule, ok := g.PointRules[action]
	if !ok {
		return 0
	}
	if pts, ok := rule[string(role)]; ok {
		return pts
	}
	return rule[DefaultRuleKey]
}

// Achievement finds a catalog entry by id for role.
func (g *Gamification) Achievement(role entity.Role, id string) (AchievementDef, bool) {
	for _, def := range g.Achievements[role] {
		if def.ID == id {
			return def, true
		}
	}
	return AchievementDef{}, false
}
