package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/foodrescue/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewAuthMiddleware(testSecret)

	r := gin.New()
	r.Use(m.RequireAuth())
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "role": c.GetString("role")})
	})
	r.GET("/ngo-only", m.RequireRole(entity.RoleNGO), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/admin", m.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := newAuthRouter()
	userID := uuid.New()

	token, err := NewToken(testSecret, userID, entity.RoleDonor, time.Hour)
	require.NoError(t, err)

	w := get(r, "/whoami", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
	assert.Contains(t, w.Body.String(), "DONOR")

	assert.Equal(t, http.StatusUnauthorized, get(r, "/whoami", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/whoami", "not-a-jwt").Code)

	wrongKey, err := NewToken("other-secret", userID, entity.RoleDonor, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/whoami", wrongKey).Code)

	expired, err := NewToken(testSecret, userID, entity.RoleDonor, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/whoami", expired).Code)
}

func TestRequireAuth_RejectsBadClaims(t *testing.T) {
	r := newAuthRouter()

	unknownRole, err := NewToken(testSecret, uuid.New(), entity.Role("CHEF"), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/whoami", unknownRole).Code)

	claims := Claims{
		Role: string(entity.RoleNGO),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/whoami", badSubject).Code)
}

func TestRequireRole(t *testing.T) {
	r := newAuthRouter()

	ngo, err := NewToken(testSecret, uuid.New(), entity.RoleNGO, time.Hour)
	require.NoError(t, err)
	volunteer, err := NewToken(testSecret, uuid.New(), entity.RoleVolunteer, time.Hour)
	require.NoError(t, err)
	admin, err := NewToken(testSecret, uuid.New(), entity.RoleAdmin, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, get(r, "/ngo-only", ngo).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/ngo-only", volunteer).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", ngo).Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", admin).Code)
}

func TestRequireRole_WithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ngo-only", NewAuthMiddleware(testSecret).RequireRole(entity.RoleNGO), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusUnauthorized, get(r, "/ngo-only", "").Code)
}
