package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/cart"
)

func sampleCart(t *testing.T, owner string) *cart.Cart {
	t.Helper()
	c := cart.New(owner)
	require.NoError(t, c.Add(cart.Item{
		ProductID: uuid.New(),
		SKU:       "TEE-M-BLK",
		Name:      "Tee",
		UnitPrice: decimal.RequireFromString("19.99"),
	}, 2))
	return c
}

// redisClient returns a client for STORE_TEST_REDIS_ADDR or skips the test
func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("STORE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STORE_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testCartStore(t *testing.T, store cart.Store) {
	ctx := context.Background()
	owner := cart.GuestOwner(uuid.NewString())

	empty, err := store.Load(ctx, owner)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	c := sampleCart(t, owner)
	require.NoError(t, store.Save(ctx, c, time.Hour))

	loaded, err := store.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.ItemCount())
	assert.True(t, loaded.Subtotal().Equal(decimal.RequireFromString("39.98")))

	// mutating the loaded copy must not leak into the store until saved
	loaded.Clear()
	again, err := store.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, again.ItemCount())

	require.NoError(t, store.Save(ctx, loaded, time.Hour))
	cleared, err := store.Load(ctx, owner)
	require.NoError(t, err)
	assert.True(t, cleared.IsEmpty())

	require.NoError(t, store.Save(ctx, sampleCart(t, owner), time.Hour))
	require.NoError(t, store.Delete(ctx, owner))
	deleted, err := store.Load(ctx, owner)
	require.NoError(t, err)
	assert.True(t, deleted.IsEmpty())
}

func TestMemoryCartStore(t *testing.T) {
	testCartStore(t, NewMemoryCartStore())
}

func TestMemoryCartStore_Expiry(t *testing.T) {
	store := NewMemoryCartStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	c := sampleCart(t, "user:1")
	require.NoError(t, store.Save(ctx, c, time.Minute))

	now = now.Add(2 * time.Minute)
	loaded, err := store.Load(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}

func TestRedisCartStore(t *testing.T) {
	testCartStore(t, NewRedisCartStore(redisClient(t), "test:cart:"))
}

func testTTLCache(t *testing.T, c TTLCache) {
	ctx := context.Background()
	type payload struct {
		Name string `json:"name"`
	}

	var out payload
	found, err := c.Get(ctx, "products:detail:tee", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "products:detail:tee", payload{Name: "Tee"}, time.Minute))
	require.NoError(t, c.Set(ctx, "products:list:p1", payload{Name: "page"}, time.Minute))

	found, err = c.Get(ctx, "products:detail:tee", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Tee", out.Name)

	require.NoError(t, c.DeletePrefix(ctx, "products:list:"))
	found, err = c.Get(ctx, "products:list:p1", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Delete(ctx, "products:detail:tee"))
	found, err = c.Get(ctx, "products:detail:tee", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryTTLCache(t *testing.T) {
	testTTLCache(t, NewMemoryTTLCache())
}

func TestMemoryTTLCache_Expiry(t *testing.T) {
	c := NewMemoryTTLCache()
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, time.Second))
	now = now.Add(2 * time.Second)

	var v int
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisTTLCache(t *testing.T) {
	testTTLCache(t, NewRedisTTLCache(redisClient(t), "test:"+uuid.NewString()+":"))
}

func TestMemoryIdempotencyStore(t *testing.T) {
	store := NewMemoryIdempotencyStore()
	ctx := context.Background()

	orderID, reserved, err := store.Reserve(ctx, "key-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Empty(t, orderID)

	t.Run("in flight", func(t *testing.T) {
		orderID, reserved, err := store.Reserve(ctx, "key-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, reserved)
		assert.Empty(t, orderID)
	})

	t.Run("completed returns the order", func(t *testing.T) {
		require.NoError(t, store.Complete(ctx, "key-1", "order-42", time.Hour))
		orderID, reserved, err := store.Reserve(ctx, "key-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, reserved)
		assert.Equal(t, "order-42", orderID)
	})

	t.Run("release allows retry", func(t *testing.T) {
		_, reserved, err := store.Reserve(ctx, "key-2", time.Hour)
		require.NoError(t, err)
		require.True(t, reserved)
		require.NoError(t, store.Release(ctx, "key-2"))
		_, reserved, err = store.Reserve(ctx, "key-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, reserved)
	})

	t.Run("expired keys are reusable", func(t *testing.T) {
		now := time.Now()
		store.now = func() time.Time { return now }
		_, reserved, err := store.Reserve(ctx, "key-3", time.Minute)
		require.NoError(t, err)
		require.True(t, reserved)

		now = now.Add(2 * time.Minute)
		_, reserved, err = store.Reserve(ctx, "key-3", time.Minute)
		require.NoError(t, err)
		assert.True(t, reserved)
	})
}

func TestFactory_InMemoryFallback(t *testing.T) {
	t.Run("falls back without a client", func(t *testing.T) {
		f := NewFactory(nil)
		carts, err := f.CartStore()
		require.NoError(t, err)
		assert.IsType(t, &MemoryCartStore{}, carts)

		idem, err := f.IdempotencyStore()
		require.NoError(t, err)
		assert.IsType(t, &MemoryIdempotencyStore{}, idem)

		ttl, err := f.TTLCache()
		require.NoError(t, err)
		assert.IsType(t, &MemoryTTLCache{}, ttl)
	})

	t.Run("refuses when fallback is disabled", func(t *testing.T) {
		f := NewFactory(nil, WithInMemoryFallback(false))
		_, err := f.CartStore()
		assert.Error(t, err)
	})
}
