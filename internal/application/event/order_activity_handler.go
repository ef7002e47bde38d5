package event

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// OrderActivityHandler writes an audit log line for every order lifecycle event
type OrderActivityHandler struct {
	logger *zap.Logger
}

// NewOrderActivityHandler creates a new OrderActivityHandler
func NewOrderActivityHandler(logger *zap.Logger) *OrderActivityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderActivityHandler{logger: logger.Named("order_activity")}
}

// EventTypes returns the order lifecycle events
func (h *OrderActivityHandler) EventTypes() []string {
	return []string{
		order.EventTypeOrderPlaced,
		order.EventTypeOrderPaid,
		order.EventTypeOrderShipped,
		order.EventTypeOrderDelivered,
		order.EventTypeOrderCancelled,
	}
}

// Handle logs the event
func (h *OrderActivityHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	switch e := event.(type) {
	case *order.OrderPlacedEvent:
		fields = append(fields,
			zap.String("order_number", e.Number),
			zap.String("user_id", e.UserID.String()),
			zap.String("total", e.Total.StringFixed(2)),
			zap.String("currency", e.Currency),
			zap.Int("item_count", e.ItemCount))
	case *order.OrderStatusChangedEvent:
		fields = append(fields,
			zap.String("order_number", e.Number),
			zap.String("user_id", e.UserID.String()),
			zap.String("from_status", string(e.FromStatus)),
			zap.String("to_status", string(e.ToStatus)))
	case *order.OrderCancelledEvent:
		fields = append(fields,
			zap.String("order_number", e.Number),
			zap.String("user_id", e.UserID.String()),
			zap.String("from_status", string(e.FromStatus)),
			zap.String("reason", e.Reason),
			zap.Int("lines", len(e.Lines)))
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	h.logger.Info("Order activity", fields...)
	return nil
}

var _ shared.EventHandler = (*OrderActivityHandler)(nil)
