package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"anoa.com/foodrescue/internal/config"
	"anoa.com/foodrescue/internal/entity"
	achievementService "anoa.com/foodrescue/internal/modules/achievement/service"
	"anoa.com/foodrescue/internal/modules/donation/dto"
	expiryService "anoa.com/foodrescue/internal/modules/expiry/service"
	leaderboardService "anoa.com/foodrescue/internal/modules/leaderboard/service"
	pointsService "anoa.com/foodrescue/internal/modules/points/service"
	"anoa.com/foodrescue/internal/testutil"
	"anoa.com/foodrescue/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var startOfDay = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type donationFixture struct {
	store     *testutil.MemStore
	notifier  *testutil.Notifier
	clock     *testutil.Clock
	svc       DonationService
	donor     *entity.User
	ngo       *entity.User
	volunteer *entity.User
}

func newDonationFixture(t *testing.T) *donationFixture {
	t.Helper()
	store := testutil.NewMemStore()
	notifier := &testutil.Notifier{}
	clk := testutil.NewClock(startOfDay)
	gam := config.DefaultGamification()
	log := zap.NewNop()

	lb := leaderboardService.NewLeaderboardService(store.Leaderboard(), store.Users(), store.Ledger(), store.Achievements(), gam, nil, store.Transactor(), clk, log)
	points := pointsService.NewPointsService(store.Ledger(), store.Users(), lb, notifier, store.Transactor(), gam, clk, log)
	evaluator := achievementService.NewAchievementService(store.Achievements(), store.Ledger(), store.Users(), points, lb, notifier, store.Transactor(), gam, clk, log)
	svc := NewDonationService(store.Donations(), store.Pickups(), store.Users(), points, evaluator, notifier, store.Transactor(), clk, log)

	return &donationFixture{
		store:     store,
		notifier:  notifier,
		clock:     clk,
		svc:       svc,
		donor:     store.AddUser(entity.User{Username: "donor", Role: entity.RoleDonor}),
		ngo:       store.AddUser(entity.User{Username: "ngo", Role: entity.RoleNGO}),
		volunteer: store.AddUser(entity.User{Username: "volunteer", Role: entity.RoleVolunteer}),
	}
}

func (f *donationFixture) actor(u *entity.User) entity.Actor {
	return entity.Actor{UserID: u.ID, Role: u.Role}
}

func (f *donationFixture) create(t *testing.T) *entity.Donation {
	t.Helper()
	lat, lng := -6.2, 106.8
	d, err := f.svc.Create(context.Background(), f.actor(f.donor), dto.CreateDonationRequest{
		FoodType:   "Rice boxes",
		Quantity:   "10 kg",
		ExpiryDate: f.clock.Now().Add(72 * time.Hour),
		Latitude:   &lat,
		Longitude:  &lng,
		Address:    "Jl. Sudirman 1",
	})
	require.NoError(t, err)
	return d
}

func (f *donationFixture) ledgerBySource(userID uuid.UUID, source entity.PointSource) []entity.PointsLedgerEntry {
	var out []entity.PointsLedgerEntry
	for _, e := range f.store.LedgerFor(userID) {
		if e.Source == source {
			out = append(out, e)
		}
	}
	return out
}

func (f *donationFixture) assertTotalsMatchLedger(t *testing.T) {
	t.Helper()
	for _, u := range []*entity.User{f.donor, f.ngo, f.volunteer} {
		assert.Equal(t, f.store.LedgerSum(u.ID), f.store.User(u.ID).TotalPoints, "total of %s", u.Username)
	}
}

func TestDonationLifecycle(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()

	d := f.create(t)
	assert.Equal(t, entity.DonationCreated, d.Status)

	d, err := f.svc.Accept(ctx, f.actor(f.ngo), d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DonationAccepted, d.Status)
	require.NotNil(t, d.AcceptedBy)
	assert.Equal(t, f.ngo.ID, *d.AcceptedBy)

	donorDonation := f.ledgerBySource(f.donor.ID, entity.SourceDonation)
	require.Len(t, donorDonation, 1)
	assert.Equal(t, 10, donorDonation[0].Points)
	assert.Equal(t, d.ID, *donorDonation[0].SourceID)
	ngoDonation := f.ledgerBySource(f.ngo.ID, entity.SourceDonation)
	require.Len(t, ngoDonation, 1)
	assert.Equal(t, 5, ngoDonation[0].Points)
	assert.Len(t, f.notifier.For(f.donor.ID, entity.NotificationDonationAccepted), 1)

	d, err = f.svc.AssignVolunteer(ctx, f.actor(f.ngo), d.ID, f.volunteer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DonationAssigned, d.Status)
	detail, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Pickup)
	assert.Equal(t, entity.PickupPending, detail.Pickup.Status)
	assert.Equal(t, f.volunteer.ID, detail.Pickup.VolunteerID)
	assert.Len(t, f.notifier.For(f.volunteer.ID, entity.NotificationPickupAssigned), 1)

	d, err = f.svc.StartPickup(ctx, f.actor(f.volunteer), d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DonationInTransit, d.Status)

	d, err = f.svc.Complete(ctx, f.actor(f.volunteer), d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DonationDelivered, d.Status)
	assert.NotNil(t, d.CompletedAt)

	completion := f.ledgerBySource(f.donor.ID, entity.SourceCompletion)
	require.Len(t, completion, 1)
	assert.Equal(t, 20, completion[0].Points)
	pickup := f.ledgerBySource(f.volunteer.ID, entity.SourcePickup)
	require.Len(t, pickup, 1)
	assert.Equal(t, 25, pickup[0].Points)

	detail, err = f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PickupCompleted, detail.Pickup.Status)
	assert.Len(t, f.notifier.For(f.donor.ID, entity.NotificationDonationDelivered), 1)

	// first-activity achievements ran after each commit
	assert.Len(t, f.ledgerBySource(f.ngo.ID, entity.SourceAchievement), 1)
	assert.Len(t, f.ledgerBySource(f.donor.ID, entity.SourceAchievement), 1)
	assert.Len(t, f.ledgerBySource(f.volunteer.ID, entity.SourceAchievement), 1)
	f.assertTotalsMatchLedger(t)

	// a retried completion is rejected and awards nothing
	before := len(f.store.LedgerFor(f.donor.ID)) + len(f.store.LedgerFor(f.volunteer.ID))
	_, err = f.svc.Complete(ctx, f.actor(f.volunteer), d.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Equal(t, before, len(f.store.LedgerFor(f.donor.ID))+len(f.store.LedgerFor(f.volunteer.ID)))
}

func TestComplete_WithoutVolunteer(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	d := f.create(t)

	_, err := f.svc.Accept(ctx, f.actor(f.ngo), d.ID)
	require.NoError(t, err)
	d, err = f.svc.Complete(ctx, f.actor(f.ngo), d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DonationDelivered, d.Status)
	assert.Len(t, f.ledgerBySource(f.donor.ID, entity.SourceCompletion), 1)
	assert.Empty(t, f.store.LedgerFor(f.volunteer.ID))
}

func TestComplete_RollsBackOnPickupFailure(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	d := f.create(t)
	_, err := f.svc.Accept(ctx, f.actor(f.ngo), d.ID)
	require.NoError(t, err)
	_, err = f.svc.AssignVolunteer(ctx, f.actor(f.ngo), d.ID, f.volunteer.ID)
	require.NoError(t, err)

	f.store.FailOn("Pickup.UpdateStatus", nil)
	_, err = f.svc.Complete(ctx, f.actor(f.volunteer), d.ID)
	require.ErrorIs(t, err, apperror.ErrDependency)

	detail, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DonationAssigned, detail.Status)
	assert.Empty(t, f.ledgerBySource(f.donor.ID, entity.SourceCompletion))
	f.assertTotalsMatchLedger(t)

	f.store.Clear("Pickup.UpdateStatus")
	_, err = f.svc.Complete(ctx, f.actor(f.volunteer), d.ID)
	require.NoError(t, err)
	assert.Len(t, f.ledgerBySource(f.donor.ID, entity.SourceCompletion), 1)
}

func TestAccept_ConcurrentOrganizations(t *testing.T) {
	f := newDonationFixture(t)
	d := f.create(t)

	orgs := make([]*entity.User, 5)
	for i := range orgs {
		orgs[i] = f.store.AddUser(entity.User{Username: "org", Role: entity.RoleNGO})
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for _, org := range orgs {
		wg.Add(1)
		go func(org *entity.User) {
			defer wg.Done()
			_, err := f.svc.Accept(context.Background(), f.actor(org), d.ID)
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
		}(org)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Len(t, f.ledgerBySource(f.donor.ID, entity.SourceDonation), 1)
	assert.Equal(t, 10, f.store.User(f.donor.ID).TotalPoints)
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	f := newDonationFixture(t)
	f.notifier.Err = assert.AnError
	d := f.create(t)

	d, err := f.svc.Accept(context.Background(), f.actor(f.ngo), d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DonationAccepted, d.Status)
	assert.NotEmpty(t, f.notifier.Sent())
}

func TestCreate_Validation(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	lat, badLng := 10.0, 200.0

	base := func() dto.CreateDonationRequest {
		return dto.CreateDonationRequest{
			FoodType:   "Bread",
			Quantity:   "20 loaves",
			ExpiryDate: f.clock.Now().Add(time.Hour),
		}
	}

	tests := []struct {
		name  string
		actor entity.Actor
		edit  func(r *dto.CreateDonationRequest)
	}{
		{"missing donor", entity.Actor{}, func(r *dto.CreateDonationRequest) {}},
		{"missing food type", f.actor(f.donor), func(r *dto.CreateDonationRequest) { r.FoodType = "" }},
		{"markup only food type", f.actor(f.donor), func(r *dto.CreateDonationRequest) { r.FoodType = "<script></script>" }},
		{"missing quantity", f.actor(f.donor), func(r *dto.CreateDonationRequest) { r.Quantity = "" }},
		{"missing expiry", f.actor(f.donor), func(r *dto.CreateDonationRequest) { r.ExpiryDate = time.Time{} }},
		{"expiry now", f.actor(f.donor), func(r *dto.CreateDonationRequest) { r.ExpiryDate = f.clock.Now() }},
		{"expiry past", f.actor(f.donor), func(r *dto.CreateDonationRequest) { r.ExpiryDate = f.clock.Now().Add(-time.Minute) }},
		{"lat without lng", f.actor(f.donor), func(r *dto.CreateDonationRequest) { r.Latitude = &lat }},
		{"lng out of range", f.actor(f.donor), func(r *dto.CreateDonationRequest) { r.Latitude, r.Longitude = &lat, &badLng }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.edit(&req)
			_, err := f.svc.Create(ctx, tt.actor, req)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestCreate_SanitizesText(t *testing.T) {
	f := newDonationFixture(t)
	d, err := f.svc.Create(context.Background(), f.actor(f.donor), dto.CreateDonationRequest{
		FoodType:    "<b>Soup</b>",
		Quantity:    "5 L",
		Description: `fresh <img src="x" onerror="alert(1)">today`,
		ExpiryDate:  f.clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "Soup", d.FoodType)
	assert.Equal(t, "fresh today", d.Description)
}

func TestCancel(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	d := f.create(t)
	_, err := f.svc.Accept(ctx, f.actor(f.ngo), d.ID)
	require.NoError(t, err)
	_, err = f.svc.AssignVolunteer(ctx, f.actor(f.ngo), d.ID, f.volunteer.ID)
	require.NoError(t, err)

	d, err = f.svc.Cancel(ctx, f.actor(f.ngo), d.ID, "<i>truck broke down</i>")
	require.NoError(t, err)
	assert.Equal(t, entity.DonationCancelled, d.Status)
	require.NotNil(t, d.CancellationReason)
	assert.Equal(t, "truck broke down", *d.CancellationReason)

	detail, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PickupCancelled, detail.Pickup.Status)
	assert.Len(t, f.notifier.For(f.volunteer.ID, entity.NotificationDonationCancelled), 1)
	assert.Len(t, f.notifier.For(f.donor.ID, entity.NotificationDonationCancelled), 1)

	for _, op := range []func() error{
		func() error { _, err := f.svc.Accept(ctx, f.actor(f.ngo), d.ID); return err },
		func() error { _, err := f.svc.Cancel(ctx, f.actor(f.donor), d.ID, ""); return err },
		func() error { _, err := f.svc.Complete(ctx, f.actor(f.ngo), d.ID); return err },
		func() error { _, err := f.svc.Expire(ctx, d.ID); return err },
	} {
		assert.ErrorIs(t, op(), apperror.ErrInvalidTransition)
	}
}

func TestCancel_ByDonorDoesNotNotifyDonor(t *testing.T) {
	f := newDonationFixture(t)
	d := f.create(t)

	_, err := f.svc.Cancel(context.Background(), f.actor(f.donor), d.ID, "")
	require.NoError(t, err)
	assert.Empty(t, f.notifier.For(f.donor.ID, entity.NotificationDonationCancelled))
}

func TestExpire(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	d := f.create(t)

	_, err := f.svc.Expire(ctx, d.ID)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	f.clock.Advance(73 * time.Hour)
	d, err = f.svc.Expire(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DonationExpired, d.Status)
	assert.NotNil(t, d.ExpiredAt)
	assert.Len(t, f.notifier.For(f.donor.ID, entity.NotificationDonationExpired), 1)

	_, err = f.svc.Expire(ctx, d.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Len(t, f.notifier.For(f.donor.ID, entity.NotificationDonationExpired), 1)
}

func TestSweepExpiresOnce(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	d := f.create(t)
	other := f.create(t)
	_, err := f.svc.Accept(ctx, f.actor(f.ngo), other.ID)
	require.NoError(t, err)
	f.clock.Advance(72*time.Hour + time.Minute)
	later := f.create(t)

	sweeper := expiryService.NewSweeper(f.store.Donations(), f.svc, f.clock, 10, "@every 15m", zap.NewNop())

	result, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Expired)
	assert.Zero(t, result.Failed)

	f.clock.Advance(15 * time.Minute)
	result, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Scanned)

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DonationExpired, got.Status)
	got, err = f.svc.Get(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DonationCreated, got.Status)
	assert.Len(t, f.notifier.For(f.donor.ID, entity.NotificationDonationExpired), 2)
}

func TestDelete(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()

	d := f.create(t)
	require.NoError(t, f.svc.Delete(ctx, f.actor(f.donor), d.ID))
	_, err := f.svc.Get(ctx, d.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	d = f.create(t)
	_, err = f.svc.Accept(ctx, f.actor(f.ngo), d.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.actor(f.donor), d.ID), apperror.ErrInvalidTransition)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.actor(f.donor), uuid.New()), apperror.ErrNotFound)
}

func TestAssignVolunteer(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	d := f.create(t)

	_, err := f.svc.AssignVolunteer(ctx, f.actor(f.ngo), d.ID, f.volunteer.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = f.svc.Accept(ctx, f.actor(f.ngo), d.ID)
	require.NoError(t, err)

	_, err = f.svc.AssignVolunteer(ctx, f.actor(f.ngo), d.ID, f.donor.ID)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.svc.AssignVolunteer(ctx, f.actor(f.ngo), d.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.StartPickup(ctx, f.actor(f.volunteer), d.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestRatePickup(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	d := f.create(t)
	_, err := f.svc.Accept(ctx, f.actor(f.ngo), d.ID)
	require.NoError(t, err)
	_, err = f.svc.AssignVolunteer(ctx, f.actor(f.ngo), d.ID, f.volunteer.ID)
	require.NoError(t, err)

	_, err = f.svc.RatePickup(ctx, f.actor(f.donor), d.ID, 5, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = f.svc.Complete(ctx, f.actor(f.volunteer), d.ID)
	require.NoError(t, err)

	_, err = f.svc.RatePickup(ctx, f.actor(f.donor), d.ID, 6, nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	feedback := "  <b>on time</b> "
	rated, err := f.svc.RatePickup(ctx, f.actor(f.donor), d.ID, 4, &feedback)
	require.NoError(t, err)
	assert.Equal(t, 4, *rated.Rating)
	assert.Equal(t, "on time", *rated.Feedback)
}

func TestListByDonor(t *testing.T) {
	f := newDonationFixture(t)
	for i := 0; i < 3; i++ {
		f.create(t)
	}

	page, err := f.svc.ListByDonor(context.Background(), f.donor.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Len(t, page.Data, 2)
}

func TestTransitionsRequireParticipant(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	otherNGO := f.store.AddUser(entity.User{Username: "other-ngo", Role: entity.RoleNGO})
	otherVolunteer := f.store.AddUser(entity.User{Username: "other-volunteer", Role: entity.RoleVolunteer})
	admin := f.store.AddUser(entity.User{Username: "admin", Role: entity.RoleAdmin})

	d := f.create(t)
	_, err := f.svc.Accept(ctx, f.actor(f.volunteer), d.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.svc.Cancel(ctx, f.actor(f.volunteer), d.ID, "")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.actor(f.ngo), d.ID), apperror.ErrForbidden)

	_, err = f.svc.Accept(ctx, f.actor(f.ngo), d.ID)
	require.NoError(t, err)
	_, err = f.svc.AssignVolunteer(ctx, f.actor(otherNGO), d.ID, f.volunteer.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.svc.AssignVolunteer(ctx, f.actor(f.ngo), d.ID, f.volunteer.ID)
	require.NoError(t, err)

	_, err = f.svc.StartPickup(ctx, f.actor(otherVolunteer), d.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.svc.Cancel(ctx, f.actor(otherNGO), d.ID, "")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.svc.StartPickup(ctx, f.actor(f.volunteer), d.ID)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, f.actor(otherVolunteer), d.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.svc.Complete(ctx, f.actor(otherNGO), d.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DonationInTransit, got.Status)
	assert.Empty(t, f.ledgerBySource(f.volunteer.ID, entity.SourcePickup))

	cancelled, err := f.svc.Cancel(ctx, f.actor(admin), d.ID, "")
	require.NoError(t, err)
	assert.Equal(t, entity.DonationCancelled, cancelled.Status)
}

func TestRatePickup_RequiresParticipant(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	d := f.create(t)
	_, err := f.svc.Accept(ctx, f.actor(f.ngo), d.ID)
	require.NoError(t, err)
	_, err = f.svc.AssignVolunteer(ctx, f.actor(f.ngo), d.ID, f.volunteer.ID)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, f.actor(f.ngo), d.ID)
	require.NoError(t, err)

	_, err = f.svc.RatePickup(ctx, f.actor(f.volunteer), d.ID, 5, nil)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	rated, err := f.svc.RatePickup(ctx, f.actor(f.ngo), d.ID, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, *rated.Rating)
}
