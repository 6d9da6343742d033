package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/foodrescue/internal/config"
	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/middleware"
	achievementService "anoa.com/foodrescue/internal/modules/achievement/service"
	adminService "anoa.com/foodrescue/internal/modules/admin/service"
	donationService "anoa.com/foodrescue/internal/modules/donation/service"
	leaderboardDto "anoa.com/foodrescue/internal/modules/leaderboard/dto"
	leaderboardService "anoa.com/foodrescue/internal/modules/leaderboard/service"
	matchingService "anoa.com/foodrescue/internal/modules/matching/service"
	notifService "anoa.com/foodrescue/internal/modules/notification/service"
	pointsService "anoa.com/foodrescue/internal/modules/points/service"
	profileService "anoa.com/foodrescue/internal/modules/profile/service"
	"anoa.com/foodrescue/internal/scheduler"
	"anoa.com/foodrescue/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const routerSecret = "router-secret"

type routerFixture struct {
	store  *testutil.MemStore
	router *gin.Engine
	tokens map[entity.Role]string
	users  map[entity.Role]*entity.User
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testutil.NewMemStore()
	clk := testutil.NewClock(time.Now())
	gam := config.DefaultGamification()
	log := zap.NewNop()

	notifications := notifService.NewNotificationService(store.NotificationRepo(), nil, nil, nil, log)
	lb := leaderboardService.NewLeaderboardService(store.Leaderboard(), store.Users(), store.Ledger(), store.Achievements(), gam, nil, store.Transactor(), clk, log)
	points := pointsService.NewPointsService(store.Ledger(), store.Users(), lb, notifications, store.Transactor(), gam, clk, log)
	achievements := achievementService.NewAchievementService(store.Achievements(), store.Ledger(), store.Users(), points, lb, notifications, store.Transactor(), gam, clk, log)
	donations := donationService.NewDonationService(store.Donations(), store.Pickups(), store.Users(), points, achievements, notifications, store.Transactor(), clk, log)

	svc := Services{
		Donations:     donations,
		Matching:      matchingService.NewMatchingService(store.Users(), store.Donations(), 10, log),
		Leaderboard:   lb,
		Points:        points,
		Profile:       profileService.NewProfileService(store.Users(), store.Leaderboard(), points, achievements, gam),
		Notifications: notifications,
		Admin:         adminService.NewAdminService(store.Users(), log),
		Jobs:          scheduler.New(time.Minute, log),
	}
	cfg := &config.Config{JWTSecret: routerSecret}

	f := &routerFixture{
		store:  store,
		router: NewRouter(cfg, svc, nil, log),
		tokens: map[entity.Role]string{},
		users:  map[entity.Role]*entity.User{},
	}
	for _, role := range []entity.Role{entity.RoleDonor, entity.RoleNGO, entity.RoleVolunteer, entity.RoleAdmin} {
		user := store.AddUser(entity.User{Username: string(role) + "_user", Role: role})
		token, err := middleware.NewToken(routerSecret, user.ID, role, time.Hour)
		require.NoError(t, err)
		f.users[role] = user
		f.tokens[role] = token
	}
	return f
}

func (f *routerFixture) do(method, path string, role entity.Role, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+f.tokens[role])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *routerFixture) createDonation(t *testing.T) entity.Donation {
	t.Helper()
	w := f.do(http.MethodPost, "/api/donations", entity.RoleDonor, gin.H{
		"food_type":   "Nasi kotak",
		"quantity":    "20 boxes",
		"expiry_date": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"lat":         -6.2,
		"lng":         106.8,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var donation entity.Donation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &donation))
	return donation
}

func TestRouter_Healthz(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RequiresAuth(t *testing.T) {
	f := newRouterFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/donations/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/leaderboard?role=DONOR", "", nil).Code)
}

func TestRouter_RoleGuards(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodPost, "/api/donations", entity.RoleVolunteer, gin.H{"food_type": "bread"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/api/admin/users?role=DONOR", entity.RoleNGO, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	donation := f.createDonation(t)
	w = f.do(http.MethodPost, "/api/donations/"+donation.ID.String()+"/accept", entity.RoleDonor, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func (f *routerFixture) addUser(t *testing.T, name string, role entity.Role) string {
	t.Helper()
	user := f.store.AddUser(entity.User{Username: name, Role: role})
	token, err := middleware.NewToken(routerSecret, user.ID, role, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *routerFixture) doAs(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRouter_CancelRequiresParticipant(t *testing.T) {
	f := newRouterFixture(t)
	donation := f.createDonation(t)
	base := "/api/donations/" + donation.ID.String()

	w := f.do(http.MethodPost, base+"/cancel", entity.RoleVolunteer, gin.H{"reason": "not mine"})
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = f.do(http.MethodPost, base+"/accept", entity.RoleNGO, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	otherNGO := f.addUser(t, "other_ngo", entity.RoleNGO)
	w = f.doAs(http.MethodPost, base+"/cancel", otherNGO, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = f.do(http.MethodGet, base, entity.RoleDonor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(entity.DonationAccepted))

	w = f.do(http.MethodPost, base+"/cancel", entity.RoleDonor, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRouter_PickupRequiresAssignedVolunteer(t *testing.T) {
	f := newRouterFixture(t)
	donation := f.createDonation(t)
	base := "/api/donations/" + donation.ID.String()

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/accept", entity.RoleNGO, nil).Code)
	w := f.do(http.MethodPost, base+"/assign", entity.RoleNGO, gin.H{"volunteer_id": f.users[entity.RoleVolunteer].ID.String()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	otherVolunteer := f.addUser(t, "other_volunteer", entity.RoleVolunteer)
	w = f.doAs(http.MethodPost, base+"/start", otherVolunteer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/start", entity.RoleVolunteer, nil).Code)

	w = f.doAs(http.MethodPost, base+"/complete", otherVolunteer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	otherNGO := f.addUser(t, "other_ngo", entity.RoleNGO)
	w = f.doAs(http.MethodPost, base+"/complete", otherNGO, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = f.do(http.MethodPost, base+"/complete", entity.RoleNGO, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRouter_DeleteRequiresOwner(t *testing.T) {
	f := newRouterFixture(t)
	donation := f.createDonation(t)
	path := "/api/donations/" + donation.ID.String()

	otherDonor := f.addUser(t, "other_donor", entity.RoleDonor)
	w := f.doAs(http.MethodDelete, path, otherDonor, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = f.do(http.MethodDelete, path, entity.RoleAdmin, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRouter_DonationFlow(t *testing.T) {
	f := newRouterFixture(t)
	donation := f.createDonation(t)
	base := "/api/donations/" + donation.ID.String()

	w := f.do(http.MethodPost, base+"/accept", entity.RoleNGO, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPost, base+"/accept", entity.RoleNGO, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, base+"/assign", entity.RoleNGO, gin.H{"volunteer_id": f.users[entity.RoleVolunteer].ID.String()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPost, base+"/start", entity.RoleVolunteer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPost, base+"/complete", entity.RoleVolunteer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var delivered entity.Donation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &delivered))
	assert.Equal(t, entity.DonationDelivered, delivered.Status)

	w = f.do(http.MethodGet, "/api/leaderboard?role=DONOR", entity.RoleVolunteer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var board struct {
		Data []leaderboardDto.LeaderboardEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	require.Len(t, board.Data, 1)
	assert.Equal(t, f.users[entity.RoleDonor].ID, board.Data[0].UserID)
	assert.Equal(t, f.store.LedgerSum(f.users[entity.RoleDonor].ID), board.Data[0].TotalPoints)

	w = f.do(http.MethodGet, "/api/me/points", entity.RoleDonor, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/notifications/unread-count", entity.RoleDonor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"count":0`)
}

func TestRouter_LeaderboardQueryValidation(t *testing.T) {
	f := newRouterFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/leaderboard", entity.RoleDonor, nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/leaderboard?role=ADMIN", entity.RoleDonor, nil).Code)
}

func TestRouter_AdminJobs(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(http.MethodPost, "/api/admin/jobs/unknown/run", entity.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/api/admin/users", entity.RoleAdmin, gin.H{
		"username": "kitchen",
		"email":    "kitchen@example.org",
		"role":     "NGO",
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/api/admin/users", entity.RoleAdmin, gin.H{
		"username": "kitchen",
		"email":    "kitchen2@example.org",
		"role":     "NGO",
	})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}
