package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// trace appends name to the X-Trace header so tests can see handler order
func trace(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value := name
		if prev := c.Writer.Header().Get("X-Trace"); prev != "" {
			value = prev + "," + name
		}
		c.Writer.Header().Set("X-Trace", value)
		c.Next()
	}
}

func reply(body string) gin.HandlerFunc {
	return func(c *gin.Context) { c.String(http.StatusOK, body) }
}

// adminTree mirrors the shape of the admin API: a guarded parent with
// permission-guarded resource subgroups
func adminTree() *DomainGroup {
	admin := NewDomainGroup("admin", "/admin").Use(trace("auth"))
	admin.GET("/dashboard", trace("dashboard-perm"), reply("dashboard"))

	products := admin.Group("products", "/products").Use(trace("catalog-perm"))
	products.GET("", reply("products"))
	products.POST("/:id/variants/:sku/stock", reply("stock adjusted"))

	orders := admin.Group("orders", "/orders").Use(trace("orders-perm"))
	orders.GET("/:id", func(c *gin.Context) { c.String(http.StatusOK, "order "+c.Param("id")) })
	orders.POST("/:id/ship", reply("shipped"))
	return admin
}

func TestRouter_BasePath(t *testing.T) {
	assert.Equal(t, "/api/v1", NewRouter(gin.New()).BasePath())
	assert.Equal(t, "/api/v2", NewRouter(gin.New(), WithAPIVersion("v2")).BasePath())
}

func TestRouter_NestedGroupsRunParentMiddlewareFirst(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).Use(trace("api")).Register(adminTree()).Setup()

	tests := []struct {
		method, path, trace, body string
	}{
		{http.MethodGet, "/api/v1/admin/dashboard", "api,auth,dashboard-perm", "dashboard"},
		{http.MethodGet, "/api/v1/admin/products", "api,auth,catalog-perm", "products"},
		{http.MethodGet, "/api/v1/admin/orders/42", "api,auth,orders-perm", "order 42"},
		{http.MethodPost, "/api/v1/admin/orders/42/ship", "api,auth,orders-perm", "shipped"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.trace, w.Header().Get("X-Trace"))
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestRouter_APIMiddlewareSkipsSystemRoutes(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", reply("ok"))
	NewRouter(engine).Use(trace("api")).Register(
		NewDomainGroup("catalog", "/catalog").GET("/products", reply("products")),
	).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products", nil))
	assert.Equal(t, "api", w.Header().Get("X-Trace"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Trace"))
}

func TestRouter_FallbacksUseErrorEnvelope(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	NewRouter(engine).Register(
		NewDomainGroup("cart", "/cart").GET("", reply("cart")).DELETE("", reply("cleared")),
	).Setup()

	tests := []struct {
		name   string
		method string
		path   string
		status int
		code   string
	}{
		{"unknown path", http.MethodGet, "/api/v1/wishlist", http.StatusNotFound, dto.ErrCodeRouteNotFound},
		{"unknown method", http.MethodPut, "/api/v1/cart", http.StatusMethodNotAllowed, dto.ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(""))
			req.Header.Set(middleware.RequestIDHeader, "req-"+tt.name)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "req-"+tt.name, resp.Error.RequestID)
		})
	}
}

func TestDomainGroup_Routes(t *testing.T) {
	routes := adminTree().Routes("/api/v1")

	assert.Equal(t, []RouteInfo{
		{Group: "admin", Method: http.MethodGet, Path: "/api/v1/admin/dashboard"},
		{Group: "orders", Method: http.MethodGet, Path: "/api/v1/admin/orders/:id"},
		{Group: "orders", Method: http.MethodPost, Path: "/api/v1/admin/orders/:id/ship"},
		{Group: "products", Method: http.MethodGet, Path: "/api/v1/admin/products"},
		{Group: "products", Method: http.MethodPost, Path: "/api/v1/admin/products/:id/variants/:sku/stock"},
	}, routes)
}

func TestDomainGroup_RootPath(t *testing.T) {
	cart := NewDomainGroup("cart", "/cart").GET("", reply("cart")).POST("/items", reply("added"))

	assert.Equal(t, []RouteInfo{
		{Group: "cart", Method: http.MethodGet, Path: "/api/v1/cart"},
		{Group: "cart", Method: http.MethodPost, Path: "/api/v1/cart/items"},
	}, cart.Routes("/api/v1"))
	assert.Equal(t, "cart", cart.Name())
	assert.Equal(t, "/cart", cart.Prefix())
}
