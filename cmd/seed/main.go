// Command seed fills a migrated database with a demo catalog and accounts
package main

import (
	"context"
	"flag"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
)

func main() {
	var (
		opts     Options
		seed     uint64
		logLevel string
		timeout  time.Duration
	)
	flag.IntVar(&opts.Categories, "categories", 6, "Number of categories to create")
	flag.IntVar(&opts.ProductsPerCat, "products", 8, "Products per category")
	flag.IntVar(&opts.MaxVariants, "variants", 4, "Maximum variants per product")
	flag.IntVar(&opts.MaxStock, "stock", 50, "Maximum stock per variant")
	flag.Float64Var(&opts.PublishRatio, "publish", 0.8, "Share of products published (0-1)")
	flag.Float64Var(&opts.MinPrice, "min-price", 5, "Lowest base price")
	flag.Float64Var(&opts.MaxPrice, "max-price", 250, "Highest base price")
	flag.StringVar(&opts.AdminEmail, "admin-email", "admin@storefront.local", "Admin account email, empty skips it")
	flag.StringVar(&opts.AdminPassword, "admin-password", "admin12345", "Admin account password")
	flag.IntVar(&opts.CustomerCount, "customers", 5, "Number of customer accounts")
	flag.StringVar(&opts.CustomerPassword, "customer-password", "customer123", "Password for generated customers")
	flag.Uint64Var(&seed, "seed", 0, "Random seed, 0 picks one")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	log := logger.New(logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.GormLevel("warn"), cfg.Database.SlowThreshold)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s := newSeeder(
		gofakeit.New(seed),
		persistence.NewGormCategoryRepository(db.DB),
		persistence.NewGormProductRepository(db.DB),
		persistence.NewGormUserRepository(db.DB),
		log,
	)
	sum, err := s.Run(ctx, opts)
	if err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}
	log.Info("Seeding complete",
		zap.Int("categories", sum.Categories),
		zap.Int("products", sum.Products),
		zap.Int("variants", sum.Variants),
		zap.Int("users", sum.Users),
	)
}
