package cart

import (
	"context"
	"time"
)

// Store persists carts by owner key. Loading a missing cart returns an
// empty cart, not an error.
type Store interface {
	Load(ctx context.Context, owner string) (*Cart, error)
	Save(ctx context.Context, cart *Cart, ttl time.Duration) error
	Delete(ctx context.Context, owner string) error
}
