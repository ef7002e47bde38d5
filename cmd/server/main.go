package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	adminapp "github.com/storefront/backend/internal/application/admin"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	eventapp "github.com/storefront/backend/internal/application/event"
	identityapp "github.com/storefront/backend/internal/application/identity"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/metrics"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"

	_ "github.com/storefront/backend/docs"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	eventWorkers    = 4
	eventBuffer     = 256
	shutdownTimeout = 30 * time.Second
)

//	@title			Storefront API
//	@version		1.0
//	@description	Storefront backend: catalog, carts, checkout, orders and the admin panel.

//	@contact.name	API Support
//	@contact.email	support@storefront.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()
	zap.ReplaceGlobals(log)

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log, telemetry.WithServiceVersion(version))
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Database.SlowThreshold)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterGormTracing(db.DB, cfg.Telemetry, log); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	m := metrics.New()

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)

	// Key-value stores
	stores := cache.NewFactory(redisClient,
		cache.WithLogger(log),
		cache.WithKeyPrefix(cfg.Cache.KeyPrefix),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	)
	cartStore, err := stores.CartStore()
	if err != nil {
		log.Fatal("Failed to create cart store", zap.Error(err))
	}
	idempotency, err := stores.IdempotencyStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	var catalogCache catalogapp.Cache
	if cfg.Cache.Enabled {
		ttlCache, err := stores.TTLCache()
		if err != nil {
			log.Fatal("Failed to create product cache", zap.Error(err))
		}
		catalogCache = ttlCache
	}

	var blacklist auth.TokenBlacklist
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient, cfg.Cache.KeyPrefix+"revoked:")
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
	}

	images := newImageStorage(ctx, cfg, log)

	// Event bus
	bus := event.NewInMemoryEventBus(log,
		event.WithAsync(eventWorkers, eventBuffer),
		event.WithDispatchObserver(m.ObserveEventHandler),
	)
	if catalogCache != nil {
		cacheHandler := eventapp.NewCatalogCacheHandler(catalogCache, log)
		bus.Subscribe(cacheHandler, cacheHandler.EventTypes()...)
	}
	activityHandler := eventapp.NewOrderActivityHandler(log)
	bus.Subscribe(activityHandler, activityHandler.EventTypes()...)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := bus.Stop(stopCtx); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Application services
	productOpts := []catalogapp.ProductServiceOption{
		catalogapp.WithCacheObserver(m.RecordCacheLookup),
		catalogapp.WithProductLogger(log),
	}
	if catalogCache != nil {
		productOpts = append(productOpts, catalogapp.WithCache(catalogCache, cfg.Cache.ProductTTL))
	}
	if cfg.Storage.MaxImageSize > 0 {
		productOpts = append(productOpts, catalogapp.WithMaxImageSize(cfg.Storage.MaxImageSize))
	}
	productService := catalogapp.NewProductService(productRepo, categoryRepo, images, bus, productOpts...)
	categoryService := catalogapp.NewCategoryService(categoryRepo, productRepo, catalogCache, cfg.Cache.ProductTTL, log)
	cartService := cartapp.NewService(cartStore, productRepo, cfg.Checkout.CartTTL, cfg.Checkout.Currency, log)

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, log,
		identityapp.WithCartMerger(cartService),
		identityapp.WithLoginObserver(m.RecordLogin),
		identityapp.WithEventPublisher(bus),
	)
	accountService := identityapp.NewAccountService(userRepo, blacklist, cfg.JWT.RefreshTokenExpiration, log)

	checkoutService := orderapp.NewCheckoutService(orderRepo, productRepo, userRepo, cartStore, idempotency, bus,
		orderapp.CheckoutConfig{
			Currency:              cfg.Checkout.Currency,
			ShippingFee:           cfg.Checkout.ShippingFee,
			FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
			IdempotencyTTL:        cfg.Checkout.IdempotencyTTL,
		}, m, log)
	orderService := orderapp.NewService(orderRepo, bus, m, log)

	dashboardService := adminapp.NewDashboardService(productRepo, orderRepo, cfg.Checkout.Currency, log)
	userAdminService := adminapp.NewUserService(userRepo, blacklist, bus, cfg.JWT.RefreshTokenExpiration, log)

	// Background jobs
	if cfg.Scheduler.Enabled {
		jobs := scheduler.New(log,
			scheduler.WithJobTimeout(cfg.Scheduler.ExpireOrdersTimeout),
			scheduler.WithRunObserver(m.RecordJobRun),
		)
		expiry := scheduler.NewOrderExpiryJob(orderService, cfg.Checkout.PendingOrderTTL, cfg.Scheduler.ExpireOrdersBatch, log)
		if err := jobs.Register(cfg.Scheduler.ExpireOrdersSpec, expiry); err != nil {
			log.Fatal("Failed to register order expiry job", zap.Error(err))
		}
		jobs.Start(ctx)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := jobs.Stop(stopCtx); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()
		if next, ok := jobs.NextRun(expiry.Name()); ok {
			log.Info("Scheduler started", zap.String("job", expiry.Name()), zap.Time("next_run", next))
		}
	}

	// HTTP
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, router.RateLimiterIdleTTL)
		go limiter.Run(ctx)
		log.Info("Rate limiting enabled",
			zap.Float64("rps", cfg.HTTP.RateLimitRPS),
			zap.Int("burst", cfg.HTTP.RateLimitBurst),
		)
	}
	authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRPS, cfg.HTTP.AuthRateLimitBurst, router.RateLimiterIdleTTL)
	go authLimiter.Run(ctx)

	var (
		requestMetrics gin.HandlerFunc
		metricsHandler http.Handler
	)
	if cfg.HTTP.MetricsEnabled {
		requestMetrics = m.GinMiddleware()
		metricsHandler = m.Handler()
	}

	engine, err := router.NewEngine(router.EngineConfig{
		HTTP:       cfg.HTTP,
		Swagger:    cfg.Swagger,
		Telemetry:  cfg.Telemetry,
		Production: cfg.App.IsProduction(),
		Logger:     log,
		Limiter:    limiter,
		Metrics:    requestMetrics,
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	checks := map[string]handler.Pinger{"database": handler.PingFunc(db.Ping)}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	router.MountSystemRoutes(engine, router.SystemRoutes{
		Health:  handler.NewHealthHandler(version, checks).Health,
		Metrics: metricsHandler,
		Swagger: cfg.Swagger,
	})

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	groups := router.APIGroups(router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Account:  handler.NewAccountHandler(accountService),
		Catalog:  handler.NewCatalogHandler(productService, categoryService),
		Cart:     handler.NewCartHandler(cartService),
		Checkout: handler.NewCheckoutHandler(checkoutService),
		Orders:   handler.NewOrderHandler(orderService),
		Products: handler.NewProductHandler(productService),
		Category: handler.NewCategoryHandler(categoryService),
		Admin:    handler.NewAdminHandler(dashboardService, orderService, userAdminService),
	}, router.Guards{
		Authenticator: authService,
		AuthLimiter:   authLimiter,
		CartOwner: middleware.CartOwnerConfig{
			NewToken:     cartapp.NewGuestToken,
			CookieMaxAge: cfg.HTTP.GuestCartCookieMaxAge,
		},
		Logger: log,
	})
	for _, g := range groups {
		r.Register(g)
	}
	r.Setup()
	log.Info("Routes registered", zap.Int("groups", len(groups)), zap.String("base_path", r.BasePath()))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to start server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

// newImageStorage returns the S3 image storage, or a stub that only builds
// URLs when object storage is disabled
func newImageStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) catalogapp.ImageStorage {
	if !cfg.Storage.Enabled {
		log.Warn("Object storage disabled, image uploads are not persisted")
		return storage.NewStubImageStorage(cfg.Storage.PublicBaseURL)
	}
	s3, err := storage.NewS3ImageStorage(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
	)
	if err != nil {
		log.Fatal("Failed to create object storage client", zap.Error(err))
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		log.Fatal("Failed to prepare image bucket", zap.Error(err))
	}
	log.Info("Object storage ready", zap.String("bucket", cfg.Storage.Bucket))
	return s3
}
