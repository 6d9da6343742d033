package bootstrap

import (
	"context"
	"testing"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeedAdminUser(t *testing.T) {
	store := testutil.NewMemStore()
	ctx := context.Background()

	first, err := SeedAdminUser(ctx, store.Users(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, first.Role)

	again, err := SeedAdminUser(ctx, store.Users(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	admins, err := store.Users().FindByRole(ctx, entity.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}
