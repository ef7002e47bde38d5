package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront/backend/internal/domain/cart"
)

// updatedAtField holds the cart timestamp inside the hash; line keys always
// contain a colon so they cannot collide with it
const updatedAtField = "updated_at"

// RedisCartStore keeps each cart in one Redis hash: one field per line plus
// the update timestamp. Every save resets the TTL so active carts live on.
type RedisCartStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCartStore creates a cart store over an existing client
func NewRedisCartStore(client *redis.Client, keyPrefix string) *RedisCartStore {
	if keyPrefix == "" {
		keyPrefix = "cart:"
	}
	return &RedisCartStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisCartStore) key(owner string) string {
	return s.keyPrefix + owner
}

// Load reads the cart of owner. A missing hash yields an empty cart.
func (s *RedisCartStore) Load(ctx context.Context, owner string) (*cart.Cart, error) {
	fields, err := s.client.HGetAll(ctx, s.key(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	c := cart.New(owner)
	for field, raw := range fields {
		if field == updatedAtField {
			if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				c.UpdatedAt = ts
			}
			continue
		}
		var item cart.Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("failed to decode cart line %s: %w", field, err)
		}
		c.Items[field] = item
	}
	return c, nil
}

// Save replaces the stored cart atomically
func (s *RedisCartStore) Save(ctx context.Context, c *cart.Cart, ttl time.Duration) error {
	key := s.key(c.Owner)
	if c.IsEmpty() {
		return s.Delete(ctx, c.Owner)
	}

	values := make(map[string]any, len(c.Items)+1)
	for k, item := range c.Items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to encode cart line %s: %w", k, err)
		}
		values[k] = data
	}
	values[updatedAtField] = c.UpdatedAt.UTC().Format(time.RFC3339Nano)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// Delete removes the cart of owner
func (s *RedisCartStore) Delete(ctx context.Context, owner string) error {
	if err := s.client.Del(ctx, s.key(owner)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// MemoryCartStore keeps carts in process memory. Carts are copied on the way
// in and out so callers never share maps.
type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[string]memoryCart
	now   func() time.Time
}

type memoryCart struct {
	cart      cart.Cart
	expiresAt time.Time
}

// NewMemoryCartStore creates an in-memory cart store
func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{
		carts: make(map[string]memoryCart),
		now:   time.Now,
	}
}

// Load returns a copy of the stored cart, or an empty cart
func (s *MemoryCartStore) Load(_ context.Context, owner string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.carts[owner]
	if !ok || (!entry.expiresAt.IsZero() && s.now().After(entry.expiresAt)) {
		delete(s.carts, owner)
		return cart.New(owner), nil
	}
	return copyCart(&entry.cart), nil
}

// Save stores a copy of c
func (s *MemoryCartStore) Save(_ context.Context, c *cart.Cart, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.IsEmpty() {
		delete(s.carts, c.Owner)
		return nil
	}
	entry := memoryCart{cart: *copyCart(c)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.carts[c.Owner] = entry
	return nil
}

// Delete removes the cart of owner
func (s *MemoryCartStore) Delete(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, owner)
	return nil
}

func copyCart(c *cart.Cart) *cart.Cart {
	out := &cart.Cart{
		Owner:     c.Owner,
		Items:     make(map[string]cart.Item, len(c.Items)),
		UpdatedAt: c.UpdatedAt,
	}
	for k, v := range c.Items {
		out.Items[k] = v
	}
	return out
}

var (
	_ cart.Store = (*RedisCartStore)(nil)
	_ cart.Store = (*MemoryCartStore)(nil)
)
