package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

func TestGormProductRepository_FindByID_NotFound(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormProductRepository(db)

	id := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1 ORDER BY .* LIMIT .*`).
		WithArgs(id, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	product, err := repo.FindByID(context.Background(), id)

	assert.Nil(t, product)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	p := newTestProduct(t, "Canvas Tote", 25, 4, 6)
	p.SetAttributes(map[string]string{"material": "canvas"})
	require.NoError(t, p.AddImage(catalog.Image{Key: "products/tote.jpg", URL: "https://cdn/tote.jpg"}))
	require.NoError(t, repo.Save(ctx, p))

	t.Run("by id round-trips the embedded documents", func(t *testing.T) {
		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Name, found.Name)
		assert.Len(t, found.Variants, 2)
		assert.Equal(t, "canvas", found.Attributes["material"])
		require.Len(t, found.Images, 1)
		assert.Equal(t, "products/tote.jpg", found.Images[0].Key)
		assert.True(t, found.BasePrice.Equal(decimal.NewFromInt(25)))
	})

	t.Run("by slug", func(t *testing.T) {
		found, err := repo.FindBySlug(ctx, "CANVAS-TOTE")
		require.NoError(t, err)
		assert.Equal(t, p.ID, found.ID)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		dup := newTestProduct(t, "Canvas Tote", 30, 1, 1)
		err := repo.Save(ctx, dup)
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	})

	t.Run("exists by slug", func(t *testing.T) {
		exists, err := repo.ExistsBySlug(ctx, "canvas-tote")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestGormProductRepository_FindAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	categoryID := uuid.New()
	tee := newTestProduct(t, "Basic Tee", 15, 3, 3)
	tee.CategoryID = &categoryID
	hoodie := newTestProduct(t, "Zip Hoodie", 60, 2, 2)
	draft, err := catalog.NewProduct("Draft Cap", "", decimal.NewFromInt(20))
	require.NoError(t, err)
	for _, p := range []*catalog.Product{tee, hoodie, draft} {
		require.NoError(t, repo.Save(ctx, p))
	}

	t.Run("status filter", func(t *testing.T) {
		items, total, err := repo.FindAll(ctx, catalog.ProductFilter{Status: catalog.ProductStatusActive})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, items, 2)
	})

	t.Run("search is case insensitive", func(t *testing.T) {
		items, total, err := repo.FindAll(ctx, catalog.ProductFilter{Filter: shared.Filter{Search: "HOOD"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, hoodie.ID, items[0].ID)
	})

	t.Run("variant option filters", func(t *testing.T) {
		_, total, err := repo.FindAll(ctx, catalog.ProductFilter{Size: "m", Color: "white"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		_, total, err = repo.FindAll(ctx, catalog.ProductFilter{Size: "XL"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})

	t.Run("price range and category", func(t *testing.T) {
		lo, hi := decimal.NewFromInt(10), decimal.NewFromInt(30)
		items, total, err := repo.FindAll(ctx, catalog.ProductFilter{MinPrice: &lo, MaxPrice: &hi, Status: catalog.ProductStatusActive})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, tee.ID, items[0].ID)

		_, total, err = repo.FindAll(ctx, catalog.ProductFilter{CategoryID: &categoryID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("sorting and paging", func(t *testing.T) {
		items, total, err := repo.FindAll(ctx, catalog.ProductFilter{
			Filter: shared.Filter{Page: 1, PageSize: 2, OrderBy: "price", OrderDir: "asc"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, items, 2)
		assert.Equal(t, tee.ID, items[0].ID)
		assert.Equal(t, draft.ID, items[1].ID)
	})

	t.Run("count by status", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts[catalog.ProductStatusActive])
		assert.Equal(t, int64(1), counts[catalog.ProductStatusDraft])
		assert.Equal(t, int64(0), counts[catalog.ProductStatusArchived])
	})

	t.Run("count by category", func(t *testing.T) {
		count, err := repo.CountByCategory(ctx, categoryID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("find by ids", func(t *testing.T) {
		items, err := repo.FindByIDs(ctx, []uuid.UUID{tee.ID, hoodie.ID, uuid.New()})
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})
}

func TestGormProductRepository_SaveWithLock(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	p := newTestProduct(t, "Wool Socks", 12, 10, 10)
	require.NoError(t, repo.Save(ctx, p))

	stale, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, p.Update("Merino Socks", "warm", nil))
	require.NoError(t, repo.SaveWithLock(ctx, p))
	assert.Equal(t, 2, p.Version)

	require.NoError(t, stale.Update("Stale", "", nil))
	err = repo.SaveWithLock(ctx, stale)
	assert.True(t, errors.Is(err, shared.ErrConcurrentModification))

	found, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Merino Socks", found.Name)
}

func TestGormProductRepository_ApplyStockChanges(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	a := newTestProduct(t, "Rain Jacket", 90, 5, 5)
	b := newTestProduct(t, "Beanie", 18, 1, 0)
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, b))

	t.Run("applies all changes", func(t *testing.T) {
		err := repo.ApplyStockChanges(ctx, []catalog.StockChange{
			{ProductID: a.ID, SKU: a.Variants[0].SKU, Delta: -2},
			{ProductID: a.ID, SKU: a.Variants[1].SKU, Delta: 3},
			{ProductID: b.ID, SKU: b.Variants[0].SKU, Delta: -1},
		})
		require.NoError(t, err)

		got, err := repo.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Variants[0].Stock)
		assert.Equal(t, 8, got.Variants[1].Stock)
	})

	t.Run("insufficient stock rolls back the whole batch", func(t *testing.T) {
		err := repo.ApplyStockChanges(ctx, []catalog.StockChange{
			{ProductID: a.ID, SKU: a.Variants[0].SKU, Delta: -1},
			{ProductID: b.ID, SKU: b.Variants[0].SKU, Delta: -1},
		})
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

		got, err := repo.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Variants[0].Stock, "stock must be unchanged after rollback")
	})

	t.Run("unknown product", func(t *testing.T) {
		err := repo.ApplyStockChanges(ctx, []catalog.StockChange{{ProductID: uuid.New(), SKU: "X", Delta: 1}})
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestGormProductRepository_Delete(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormProductRepository(db)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM "products" WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), id)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
