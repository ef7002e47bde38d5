package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
)

func TestGormUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user, err := identity.NewUser("Ada@Example.com", "secret123", "Ada")
	require.NoError(t, err)
	_, err = user.AddAddress(identity.Address{Recipient: "Ada", Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "us"})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, user))

	t.Run("find by email is case insensitive", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "  ADA@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		require.Len(t, found.Addresses, 1)
		assert.True(t, found.Addresses[0].IsDefault)
		assert.Equal(t, "US", found.Addresses[0].Country)
		assert.True(t, found.VerifyPassword("secret123"))
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup, err := identity.NewUser("ada@example.com", "secret123", "")
		require.NoError(t, err)
		assert.True(t, errors.Is(repo.Save(ctx, dup), shared.ErrAlreadyExists))

		exists, err := repo.ExistsByEmail(ctx, "ADA@EXAMPLE.COM")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("save with lock", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)

		user.RecordLoginFailure()
		require.NoError(t, repo.SaveWithLock(ctx, user))

		stale.RecordLoginSuccess()
		assert.True(t, errors.Is(repo.SaveWithLock(ctx, stale), shared.ErrConcurrentModification))

		found, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, found.FailedLoginCount)
	})

	t.Run("list with filters", func(t *testing.T) {
		admin, err := identity.NewUser("root@example.com", "secret123", "Root")
		require.NoError(t, err)
		require.NoError(t, admin.SetRole(identity.RoleAdmin))
		require.NoError(t, repo.Save(ctx, admin))

		items, total, err := repo.FindAll(ctx, identity.UserFilter{Role: identity.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, admin.ID, items[0].ID)

		_, total, err = repo.FindAll(ctx, identity.UserFilter{Filter: shared.Filter{Search: "ADA"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})
}
