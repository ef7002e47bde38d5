package persistence

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindBySlug finds a product by its slug
func (r *GormProductRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "slug = ?", strings.ToLower(slug)).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs loads several products at once. Missing IDs are skipped.
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainProducts(rows), nil
}

// FindAll returns one page of products matching the filter and the total
// number of matches
func (r *GormProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, int64, error) {
	filter.Filter = filter.Filter.Normalize()
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProductModel{}), filter).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ProductModel
	if err := query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, ProductSortFields, "created_at")).
		Order("id ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainProducts(rows), total, nil
}

// ExistsBySlug checks if a product with the given slug exists
func (r *GormProductRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("slug = ?", strings.ToLower(slug)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountByStatus counts products grouped by status
func (r *GormProductRepository) CountByStatus(ctx context.Context) (map[catalog.ProductStatus]int64, error) {
	var rows []struct {
		Status catalog.ProductStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := map[catalog.ProductStatus]int64{
		catalog.ProductStatusDraft:    0,
		catalog.ProductStatusActive:   0,
		catalog.ProductStatusArchived: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountByCategory counts products in a category
func (r *GormProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save inserts a new product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return translateError(r.db.WithContext(ctx).Create(models.ProductModelFromDomain(product)).Error)
}

// SaveWithLock updates a product with optimistic locking and bumps its version
func (r *GormProductRepository) SaveWithLock(ctx context.Context, product *catalog.Product) error {
	return updateProduct(r.db.WithContext(ctx), product)
}

// Delete removes a product
func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ProductModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ApplyStockChanges applies all stock changes in a single transaction
func (r *GormProductRepository) ApplyStockChanges(ctx context.Context, changes []catalog.StockChange) error {
	if len(changes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return applyStockChanges(tx, changes)
	})
}

// applyStockChanges locks each affected product row, applies the deltas in
// the domain and writes the product back. Products are visited in ID order so
// concurrent checkouts acquire row locks in the same sequence.
func applyStockChanges(tx *gorm.DB, changes []catalog.StockChange) error {
	return adjustStock(tx, changes, false)
}

// restoreStockChanges returns stock for a cancelled order. Products and
// variants removed after the order was placed are skipped and logged.
func restoreStockChanges(tx *gorm.DB, changes []catalog.StockChange) error {
	return adjustStock(tx, changes, true)
}

func adjustStock(tx *gorm.DB, changes []catalog.StockChange, skipMissing bool) error {
	byProduct := make(map[uuid.UUID][]catalog.StockChange)
	ids := make([]uuid.UUID, 0)
	for _, c := range changes {
		if _, ok := byProduct[c.ProductID]; !ok {
			ids = append(ids, c.ProductID)
		}
		byProduct[c.ProductID] = append(byProduct[c.ProductID], c)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		var model models.ProductModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "id = ?", id).Error; err != nil {
			if skipMissing && errors.Is(err, gorm.ErrRecordNotFound) {
				logger.L(tx.Statement.Context).Warn("Skipping stock restore for missing product",
					zap.String("product_id", id.String()))
				continue
			}
			return translateError(err)
		}
		product := model.ToDomain()
		applied := 0
		for _, c := range byProduct[id] {
			if skipMissing && product.FindVariantBySKU(c.SKU) == nil {
				logger.L(tx.Statement.Context).Warn("Skipping stock restore for missing variant",
					zap.String("product_id", id.String()),
					zap.String("sku", c.SKU),
					zap.Int("quantity", c.Delta))
				continue
			}
			if err := product.AdjustStock(c.SKU, c.Delta); err != nil {
				return err
			}
			applied++
		}
		if applied == 0 {
			continue
		}
		if err := updateProduct(tx, product); err != nil {
			return err
		}
	}
	return nil
}

// updateProduct writes every column of product where the stored version
// still matches, then advances the in-memory version
func updateProduct(db *gorm.DB, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	model.Version = product.Version + 1

	result := db.Model(model).
		Where("version = ?", product.Version).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	product.Version = model.Version
	return nil
}

func (r *GormProductRepository) applyFilter(query *gorm.DB, filter catalog.ProductFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Size != "" {
		query = query.Where("sizes LIKE ?", models.OptionPattern(filter.Size))
	}
	if filter.Color != "" {
		query = query.Where("colors LIKE ?", models.OptionPattern(filter.Color))
	}
	if filter.MinPrice != nil {
		query = query.Where("base_price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("base_price <= ?", *filter.MaxPrice)
	}
	return query
}

func toDomainProducts(rows []models.ProductModel) []catalog.Product {
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
