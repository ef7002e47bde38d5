// Package cache holds the Redis-backed stores (carts, the product TTL cache
// and checkout idempotency keys) together with in-memory fallbacks.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Factory picks Redis-backed or in-memory stores depending on whether a
// Redis client is available
type Factory struct {
	client                *redis.Client
	keyPrefix             string
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithKeyPrefix namespaces every Redis key
func WithKeyPrefix(prefix string) FactoryOption {
	return func(f *Factory) {
		f.keyPrefix = prefix
	}
}

// WithInMemoryFallback controls whether stores fall back to memory when
// Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a store factory. client may be nil.
func NewFactory(client *redis.Client, opts ...FactoryOption) *Factory {
	f := &Factory{
		client:                client,
		keyPrefix:             "storefront:",
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) useMemory(store string) (bool, error) {
	if f.client != nil {
		return false, nil
	}
	if !f.allowInMemoryFallback {
		return false, fmt.Errorf("redis required for %s but not configured", store)
	}
	f.logger.Warn("Redis unavailable, using in-memory store. State is not shared across instances.",
		zap.String("store", store))
	return true, nil
}

// CartStore returns the cart store
func (f *Factory) CartStore() (cart.Store, error) {
	memory, err := f.useMemory("cart")
	if err != nil {
		return nil, err
	}
	if memory {
		return NewMemoryCartStore(), nil
	}
	return NewRedisCartStore(f.client, f.keyPrefix+"cart:"), nil
}

// IdempotencyStore returns the checkout idempotency store
func (f *Factory) IdempotencyStore() (order.IdempotencyStore, error) {
	memory, err := f.useMemory("idempotency")
	if err != nil {
		return nil, err
	}
	if memory {
		return NewMemoryIdempotencyStore(), nil
	}
	return NewRedisIdempotencyStore(f.client, f.keyPrefix+"idempotency:"), nil
}

// TTLCache returns the product TTL cache
func (f *Factory) TTLCache() (TTLCache, error) {
	memory, err := f.useMemory("product cache")
	if err != nil {
		return nil, err
	}
	if memory {
		return NewMemoryTTLCache(), nil
	}
	return NewRedisTTLCache(f.client, f.keyPrefix+"cache:"), nil
}
