package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsWrapSentinels(t *testing.T) {
	assert.ErrorIs(t, NotFound("donation %s", "x"), ErrNotFound)
	assert.ErrorIs(t, InvalidTransition("from %s", "DELIVERED"), ErrInvalidTransition)
	assert.ErrorIs(t, Validation("expiry in the past"), ErrValidation)
	assert.ErrorIs(t, Conflict("username %q taken", "kitchen"), ErrConflict)
	assert.ErrorIs(t, Forbidden("not your donation"), ErrForbidden)

	cause := errors.New("connection refused")
	dep := Dependency("insert ledger entry", cause)
	assert.ErrorIs(t, dep, ErrDependency)
	assert.ErrorIs(t, dep, cause)
	assert.Contains(t, dep.Error(), "insert ledger entry")
}

func TestDependencyNil(t *testing.T) {
	assert.Nil(t, Dependency("noop", nil))
}

func TestMapErrorToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", ErrNotFound), http.StatusNotFound},
		{InvalidTransition("x"), http.StatusConflict},
		{ErrInvalidTransition, http.StatusConflict},
		{Validation("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{Forbidden("x"), http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrRateLimitExceeded, http.StatusTooManyRequests},
		{Dependency("db", errors.New("boom")), http.StatusServiceUnavailable},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MapErrorToStatus(tc.err), tc.err.Error())
	}
}
