package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// ProductFilter narrows product listings beyond the generic filter
type ProductFilter struct {
	shared.Filter
	Status     ProductStatus
	CategoryID *uuid.UUID
	Size       string
	Color      string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

// StockChange is one variant stock adjustment applied inside a batch
type StockChange struct {
	ProductID uuid.UUID
	SKU       string
	Delta     int
}

// ProductRepository defines persistence for products
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, int64, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	CountByStatus(ctx context.Context) (map[ProductStatus]int64, error)
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
	// Save inserts a new product
	Save(ctx context.Context, product *Product) error
	// SaveWithLock updates an existing product when its version still matches
	SaveWithLock(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ApplyStockChanges applies all changes atomically. Any change that would
	// drive stock negative aborts the whole batch with ErrInsufficientStock.
	ApplyStockChanges(ctx context.Context, changes []StockChange) error
}

// CategoryRepository defines persistence for categories
type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	FindBySlug(ctx context.Context, slug string) (*Category, error)
	FindAll(ctx context.Context) ([]Category, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	Save(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}
