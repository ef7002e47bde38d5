package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an order by its public number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, number string) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "number = ?", number).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll returns one page of orders and the total match count
func (r *GormOrderRepository) FindAll(ctx context.Context, filter order.Filter) ([]order.Order, int64, error) {
	filter.Filter = filter.Filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("(LOWER(number) LIKE ? OR LOWER(email) LIKE ?)", pattern, pattern)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	if err := query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, OrderSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainOrders(rows), total, nil
}

// FindStalePending returns the oldest pending orders created before cutoff
func (r *GormOrderRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]order.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", order.StatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(rows), nil
}

// SummarizeByStatus returns the order count and summed total per status
func (r *GormOrderRepository) SummarizeByStatus(ctx context.Context) ([]order.StatusSummary, error) {
	var rows []struct {
		Status order.Status
		Count  int64
		Total  decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	summaries := make([]order.StatusSummary, len(rows))
	for i, row := range rows {
		summaries[i] = order.StatusSummary{Status: row.Status, Count: row.Count, Total: row.Total}
	}
	return summaries, nil
}

// Save inserts a new order without touching stock
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return translateError(r.db.WithContext(ctx).Create(models.OrderModelFromDomain(o)).Error)
}

// SaveWithLock updates an order with optimistic locking
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	return updateOrder(r.db.WithContext(ctx), o)
}

// Place inserts the order and reserves stock for every line atomically
func (r *GormOrderRepository) Place(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.OrderModelFromDomain(o)).Error; err != nil {
			return translateError(err)
		}
		return applyStockChanges(tx, stockChangesFor(o, -1))
	})
}

// SaveCancelled writes the cancelled order and puts its lines back in stock.
// Lines whose product or variant no longer exists are not restored.
func (r *GormOrderRepository) SaveCancelled(ctx context.Context, o *order.Order) error {
	if o.Status != order.StatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Order is not cancelled")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateOrder(tx, o); err != nil {
			return err
		}
		return restoreStockChanges(tx, stockChangesFor(o, 1))
	})
}

func updateOrder(db *gorm.DB, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	model.Version = o.Version + 1

	result := db.Model(model).
		Where("version = ?", o.Version).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	o.Version = model.Version
	return nil
}

// stockChangesFor converts order lines into stock deltas with the given sign
func stockChangesFor(o *order.Order, sign int) []catalog.StockChange {
	changes := make([]catalog.StockChange, 0, len(o.Lines))
	for _, line := range o.Lines {
		changes = append(changes, catalog.StockChange{
			ProductID: line.ProductID,
			SKU:       line.SKU,
			Delta:     sign * line.Quantity,
		})
	}
	return changes
}

func toDomainOrders(rows []models.OrderModel) []order.Order {
	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders
}

// Ensure GormOrderRepository implements Repository
var _ order.Repository = (*GormOrderRepository)(nil)
