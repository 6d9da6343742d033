package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"anoa.com/foodrescue/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MATCH_RADIUS_KM", "")
	os.Unsetenv("MATCH_RADIUS_KM")
	os.Unsetenv("EXPIRY_SWEEP_SCHEDULE")
	os.Unsetenv("EXPIRY_SWEEP_BATCH")
	t.Setenv("APP_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10.0, cfg.MatchRadiusKm)
	assert.Equal(t, "@every 15m", cfg.ExpirySweepSchedule)
	assert.Equal(t, 200, cfg.ExpirySweepBatch)
	assert.Equal(t, 5*time.Minute, cfg.ExpirySweepTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("MATCH_RADIUS_KM", "2.5")
	t.Setenv("EXPIRY_SWEEP_BATCH", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.MatchRadiusKm)
	assert.Equal(t, 50, cfg.ExpirySweepBatch)
}

func TestLoad_InvalidRadius(t *testing.T) {
	t.Setenv("MATCH_RADIUS_KM", "-1")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ProductionNeedsSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	_, err := Load()
	assert.Error(t, err)
}

func TestPointsFor(t *testing.T) {
	g := DefaultGamification()
	cases := []struct {
		action string
		role   entity.Role
		want   int
	}{
		{ActionDonation, entity.RoleDonor, 10},
		{ActionDonation, entity.RoleNGO, 5},
		{ActionPickup, entity.RoleVolunteer, 15},
		{ActionPickup, entity.RoleDonor, 10},
		{ActionCompletion, entity.RoleDonor, 20},
		{ActionCompletion, entity.RoleVolunteer, 25},
		{ActionCompletion, entity.RoleNGO, 15},
		{ActionCompletion, entity.RoleAdmin, 10},
		{ActionMilestone, entity.RoleVolunteer, 50},
		{"UNKNOWN", entity.RoleDonor, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, g.PointsFor(tc.action, tc.role), "%s/%s", tc.action, tc.role)
	}
}

func TestDefaultGamificationIsValid(t *testing.T) {
	assert.NoError(t, DefaultGamification().Validate())
}

func TestLoadGamification_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamification.yaml")
	content := `
point_rules:
  DONATION:
    DONOR: 12
    default: 6
milestones: [3, 6]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	g, err := LoadGamification(path)
	require.NoError(t, err)
	assert.Equal(t, 12, g.PointsFor(ActionDonation, entity.RoleDonor))
	assert.Equal(t, 25, g.PointsFor(ActionCompletion, entity.RoleVolunteer))
	assert.Equal(t, []int{3, 6}, g.Milestones)
	assert.Len(t, g.BadgeTiers, 5)
}

func TestLoadGamification_RejectsUnorderedTiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamification.yaml")
	content := `
badge_tiers:
  - {type: BRONZE, name: b, threshold: 500}
  - {type: SILVER, name: s, threshold: 100}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := LoadGamification(path)
	assert.Error(t, err)
}

func TestLoadGamification_EmptyPath(t *testing.T) {
	g, err := LoadGamification("")
	require.NoError(t, err)
	assert.Equal(t, DefaultGamification(), g)
}
