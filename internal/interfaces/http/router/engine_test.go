package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/metrics"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

func TestNewEngine_MiddlewareChain(t *testing.T) {
	m := metrics.New()
	engine, err := NewEngine(EngineConfig{
		HTTP: config.HTTPConfig{
			MaxBodySize:      16,
			CORSAllowOrigins: []string{"https://shop.example.com"},
		},
		Metrics: m.GinMiddleware(),
		Limiter: middleware.NewRateLimiter(0.01, 2, RateLimiterIdleTTL),
	})
	require.NoError(t, err)
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})
	MountSystemRoutes(engine, SystemRoutes{
		Health:  func(c *gin.Context) { c.String(http.StatusOK, "ok") },
		Metrics: m.Handler(),
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":1}`))
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"padding":"`+strings.Repeat("x", 64)+`"}`))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// burst of 2 is spent
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestMountSystemRoutes_SwaggerDisabled(t *testing.T) {
	engine, err := NewEngine(EngineConfig{Production: false})
	require.NoError(t, err)
	MountSystemRoutes(engine, SystemRoutes{Swagger: config.SwaggerConfig{Enabled: false}})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewEngine_Production(t *testing.T) {
	defer gin.SetMode(gin.TestMode)
	engine, err := NewEngine(EngineConfig{Production: true})
	require.NoError(t, err)
	engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=")
}
