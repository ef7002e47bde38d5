//go:build integration

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/migration"
	"github.com/storefront/backend/migrations"
)

// setupPostgres starts a disposable Postgres container and applies the
// embedded migrations
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("storefront_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Positive(t, version)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return db
}

func TestPostgres_CheckoutFlow(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	users := NewGormUserRepository(db)
	products := NewGormProductRepository(db)
	orders := NewGormOrderRepository(db)

	u, err := identity.NewUser("shopper@example.com", "s3cretPassw0rd", "Shopper")
	require.NoError(t, err)
	require.NoError(t, users.Save(ctx, u))

	dup, err := identity.NewUser("Shopper@Example.com", "s3cretPassw0rd", "Again")
	require.NoError(t, err)
	assert.ErrorIs(t, users.Save(ctx, dup), shared.ErrAlreadyExists)

	p := newTestProduct(t, "Wool Scarf", 30, 2, 0)
	require.NoError(t, products.Save(ctx, p))

	found, total, err := products.FindAll(ctx, catalog.ProductFilter{Size: "s"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, found, 1)
	assert.Equal(t, p.ID, found[0].ID)

	o := newTestOrder(t, u.ID, p, 2)
	require.NoError(t, orders.Place(ctx, o))

	again := newTestOrder(t, u.ID, p, 1)
	err = orders.Place(ctx, again)
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock), "got %v", err)

	require.NoError(t, o.Cancel("changed mind"))
	require.NoError(t, orders.SaveCancelled(ctx, o))

	restocked, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, restocked.Variants[0].Stock)

	stored, err := orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, stored.Status)
}

func TestPostgres_MigrateDownAndUp(t *testing.T) {
	db := setupPostgres(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Steps(-1))
	assert.False(t, db.Migrator().HasTable("orders"))
	require.NoError(t, m.Up())
	assert.True(t, db.Migrator().HasTable("orders"))
}
