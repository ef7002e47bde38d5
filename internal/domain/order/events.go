package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderPlaced    = "OrderPlaced"
	EventTypeOrderPaid      = "OrderPaid"
	EventTypeOrderShipped   = "OrderShipped"
	EventTypeOrderDelivered = "OrderDelivered"
	EventTypeOrderCancelled = "OrderCancelled"
)

// OrderPlacedEvent is published after a successful checkout
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID       `json:"order_id"`
	Number    string          `json:"number"`
	UserID    uuid.UUID       `json:"user_id"`
	Email     string          `json:"email"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	ItemCount int             `json:"item_count"`
}

// NewOrderPlacedEvent creates a new OrderPlacedEvent
func NewOrderPlacedEvent(o *Order) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Number:          o.Number,
		UserID:          o.UserID,
		Email:           o.Email,
		Total:           o.Total,
		Currency:        o.Currency,
		ItemCount:       o.ItemCount(),
	}
}

// OrderStatusChangedEvent covers paid, shipped and delivered
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID `json:"order_id"`
	Number     string    `json:"number"`
	UserID     uuid.UUID `json:"user_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
}

// NewOrderStatusChangedEvent creates an event of the given type
func NewOrderStatusChangedEvent(o *Order, eventType string, from Status) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Number:          o.Number,
		UserID:          o.UserID,
		FromStatus:      from,
		ToStatus:        o.Status,
	}
}

// OrderCancelledEvent is published when an order is cancelled
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID `json:"order_id"`
	Number     string    `json:"number"`
	UserID     uuid.UUID `json:"user_id"`
	FromStatus Status    `json:"from_status"`
	Reason     string    `json:"reason,omitempty"`
	Lines      []Line    `json:"lines"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(o *Order, from Status) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Number:          o.Number,
		UserID:          o.UserID,
		FromStatus:      from,
		Reason:          o.CancelReason,
		Lines:           o.Lines,
	}
}
