package service

import (
	"context"
	"testing"
	"time"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/testutil"
	"anoa.com/foodrescue/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const monasLat, monasLng = -6.1754, 106.8272

func located(lat, lng float64) entity.Location {
	return entity.Location{Latitude: &lat, Longitude: &lng}
}

func radius(km float64) *float64 { return &km }

func seedUsers(store *testutil.MemStore) {
	store.AddUser(entity.User{Username: "kota-tua-ngo", Role: entity.RoleNGO, Location: located(-6.1352, 106.8133)})
	store.AddUser(entity.User{Username: "bogor-ngo", Role: entity.RoleNGO, Location: located(-6.5950, 106.8166)})
	store.AddUser(entity.User{Username: "monas-ngo", Role: entity.RoleNGO, Location: located(monasLat, monasLng)})
	store.AddUser(entity.User{Username: "no-location-ngo", Role: entity.RoleNGO})
	store.AddUser(entity.User{Username: "menteng-volunteer", Role: entity.RoleVolunteer, Location: located(-6.1957, 106.8306)})
	store.AddUser(entity.User{Username: "nearby-donor", Role: entity.RoleDonor, Location: located(monasLat, monasLng)})
}

func TestNearbyNGOs(t *testing.T) {
	store := testutil.NewMemStore()
	seedUsers(store)
	svc := NewMatchingService(store.Users(), store.Donations(), 10, zap.NewNop())

	got, err := svc.NearbyNGOs(context.Background(), monasLat, monasLng, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "monas-ngo", got[0].Username)
	assert.Zero(t, got[0].DistanceKm)
	assert.Equal(t, "kota-tua-ngo", got[1].Username)
	assert.InDelta(t, 4.7, got[1].DistanceKm, 0.5)

	wide, err := svc.NearbyNGOs(context.Background(), monasLat, monasLng, radius(100))
	require.NoError(t, err)
	require.Len(t, wide, 3)
	assert.Equal(t, "bogor-ngo", wide[2].Username)

	exact, err := svc.NearbyNGOs(context.Background(), monasLat, monasLng, radius(0))
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "monas-ngo", exact[0].Username)
}

func TestNearbyVolunteers(t *testing.T) {
	store := testutil.NewMemStore()
	seedUsers(store)
	svc := NewMatchingService(store.Users(), store.Donations(), 0, zap.NewNop())

	got, err := svc.NearbyVolunteers(context.Background(), monasLat, monasLng, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entity.RoleVolunteer, got[0].Role)
}

func TestNearbyDonations(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewMatchingService(store.Users(), store.Donations(), 10, zap.NewNop())
	ctx := context.Background()
	expiry := time.Now().Add(24 * time.Hour)

	open := &entity.Donation{ID: uuid.New(), DonorID: uuid.New(), FoodType: "rice", Quantity: "5 kg", ExpiryDate: expiry, Status: entity.DonationCreated, Location: located(-6.1352, 106.8133)}
	accepted := &entity.Donation{ID: uuid.New(), DonorID: uuid.New(), FoodType: "bread", Quantity: "3 kg", ExpiryDate: expiry, Status: entity.DonationAccepted, Location: located(monasLat, monasLng)}
	unlocated := &entity.Donation{ID: uuid.New(), DonorID: uuid.New(), FoodType: "fruit", Quantity: "1 box", ExpiryDate: expiry, Status: entity.DonationCreated}
	for _, d := range []*entity.Donation{open, accepted, unlocated} {
		require.NoError(t, store.Donations().Create(ctx, d))
	}

	got, err := svc.NearbyDonations(ctx, monasLat, monasLng, nil, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, open.ID, got[0].ID)

	got, err = svc.NearbyDonations(ctx, monasLat, monasLng, nil, entity.DonationAccepted)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, accepted.ID, got[0].ID)
}

func TestMatching_Validation(t *testing.T) {
	store := testutil.NewMemStore()
	svc := NewMatchingService(store.Users(), store.Donations(), 10, zap.NewNop())
	ctx := context.Background()

	_, err := svc.NearbyNGOs(ctx, 91, 0, nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = svc.NearbyVolunteers(ctx, 0, -181, nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = svc.NearbyDonations(ctx, 0, 0, radius(-1), "")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	r, err := svc.Radius(nil)
	require.NoError(t, err)
	assert.Equal(t, 10.0, r)
}

func TestMatching_RepositoryFailure(t *testing.T) {
	store := testutil.NewMemStore()
	store.FailOn("User.FindByRole", nil)
	svc := NewMatchingService(store.Users(), store.Donations(), 10, zap.NewNop())

	_, err := svc.NearbyNGOs(context.Background(), monasLat, monasLng, nil)
	assert.ErrorIs(t, err, apperror.ErrDependency)
}
