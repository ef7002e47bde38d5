package order

import (
	"context"
	"time"
)

// IdempotencyStore remembers which order a checkout Idempotency-Key produced
type IdempotencyStore interface {
	// Reserve claims key for a new checkout. When the key was already used it
	// returns the stored order ID and reserved=false. An empty order ID with
	// reserved=false means the first request is still running.
	Reserve(ctx context.Context, key string, ttl time.Duration) (orderID string, reserved bool, err error)
	// Complete records the order produced for key
	Complete(ctx context.Context, key, orderID string, ttl time.Duration) error
	// Release drops a reservation after a failed checkout so the client can retry
	Release(ctx context.Context, key string) error
}
