package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PendingOrderExpirer cancels pending orders created before cutoff and
// returns how many were cancelled.
type PendingOrderExpirer interface {
	ExpireStalePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// OrderExpiryJob cancels unpaid orders once they outlive the pending TTL so
// their stock is released.
type OrderExpiryJob struct {
	expirer PendingOrderExpirer
	ttl     time.Duration
	batch   int
	logger  *zap.Logger
	now     func() time.Time
}

// NewOrderExpiryJob creates the job
func NewOrderExpiryJob(expirer PendingOrderExpirer, ttl time.Duration, batch int, logger *zap.Logger) *OrderExpiryJob {
	if batch <= 0 {
		batch = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderExpiryJob{expirer: expirer, ttl: ttl, batch: batch, logger: logger, now: time.Now}
}

// Name implements Job
func (j *OrderExpiryJob) Name() string {
	return "expire_pending_orders"
}

// Run implements Job. Full batches are repeated until the backlog is gone
// or the context ends.
func (j *OrderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.ttl)
	total := 0
	for {
		n, err := j.expirer.ExpireStalePending(ctx, cutoff, j.batch)
		total += n
		if err != nil {
			return err
		}
		if n < j.batch || ctx.Err() != nil {
			break
		}
	}
	if total > 0 {
		j.logger.Info("Expired stale pending orders",
			zap.Int("count", total),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}
