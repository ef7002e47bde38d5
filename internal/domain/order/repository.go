package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// Filter narrows order listings
type Filter struct {
	shared.Filter
	UserID *uuid.UUID
	Status Status
	From   *time.Time
	To     *time.Time
}

// StatusSummary aggregates order counts and totals per status
type StatusSummary struct {
	Status Status
	Count  int64
	Total  decimal.Decimal
}

// Repository defines persistence for orders
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, number string) (*Order, error)
	FindAll(ctx context.Context, filter Filter) ([]Order, int64, error)
	// FindStalePending returns pending orders created before cutoff
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]Order, error)
	SummarizeByStatus(ctx context.Context) ([]StatusSummary, error)
	Save(ctx context.Context, order *Order) error
	SaveWithLock(ctx context.Context, order *Order) error
	// Place inserts a new order and takes every line out of stock in one
	// transaction. Insufficient stock rolls back and returns ErrInsufficientStock.
	Place(ctx context.Context, order *Order) error
	// SaveCancelled persists a cancelled order and returns its lines to stock
	// in one transaction.
	SaveCancelled(ctx context.Context, order *Order) error
}
