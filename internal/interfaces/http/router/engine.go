package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// RateLimiterIdleTTL is how long an idle client's bucket is kept
const RateLimiterIdleTTL = 10 * time.Minute

// EngineConfig collects what NewEngine needs beyond the config file
type EngineConfig struct {
	HTTP      config.HTTPConfig
	Swagger   config.SwaggerConfig
	Telemetry config.TelemetryConfig
	// Production switches gin to release mode and enables HSTS
	Production bool
	Logger     *zap.Logger
	// Limiter is the global per-IP limiter, nil disables it
	Limiter *middleware.RateLimiter
	// Metrics records request metrics, nil disables it
	Metrics gin.HandlerFunc
}

// NewEngine creates the gin engine with the global middleware chain:
// recovery, request ID, access log, tracing, metrics, security headers,
// CORS, body limit and rate limiting, in that order
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		logger.Recovery(cfg.Logger),
		middleware.RequestID(),
		logger.GinMiddleware(cfg.Logger),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.TracingAttributes(),
	)
	if cfg.Metrics != nil {
		engine.Use(cfg.Metrics)
	}

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.Production
	engine.Use(middleware.SecureWithConfig(security))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(cors))

	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}
	if cfg.Limiter != nil {
		engine.Use(middleware.RateLimit(cfg.Limiter))
	}
	return engine, nil
}

// SystemRoutes are the unversioned operational endpoints
type SystemRoutes struct {
	Health  gin.HandlerFunc
	Metrics http.Handler
	Swagger config.SwaggerConfig
}

// MountSystemRoutes registers /health, /metrics and /swagger on the engine
func MountSystemRoutes(engine *gin.Engine, routes SystemRoutes) {
	if routes.Health != nil {
		engine.GET("/health", routes.Health)
	}
	if routes.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(routes.Metrics))
	}
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    routes.Swagger.Enabled,
			AllowedIPs: routes.Swagger.AllowedIPs,
		}),
		func(c *gin.Context) {
			// the UI relies on inline scripts
			c.Writer.Header().Del("Content-Security-Policy")
			c.Next()
		},
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)
}
