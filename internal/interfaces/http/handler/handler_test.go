package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminapp "github.com/storefront/backend/internal/application/admin"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	identityapp "github.com/storefront/backend/internal/application/identity"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

var (
	customerID = uuid.MustParse("7d7e4ac4-6f3e-4b53-9c5c-9d0a3c1f2a01")
	adminID    = uuid.MustParse("0e4c1b9a-2d8f-4f6e-a3b1-5c7d9e0f1a02")
)

// tokenAuthenticator accepts the tokens "customer" and "admin"
type tokenAuthenticator struct{}

func (tokenAuthenticator) Authenticate(_ context.Context, token string) (*auth.Claims, error) {
	switch token {
	case "customer":
		return &auth.Claims{UserID: customerID.String(), Role: string(identity.RoleCustomer), Permissions: identity.RoleCustomer.Permissions()}, nil
	case "admin":
		return &auth.Claims{UserID: adminID.String(), Role: string(identity.RoleAdmin), Permissions: identity.RoleAdmin.Permissions()}, nil
	}
	return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid token")
}

func newTestEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	return r
}

func authed() gin.HandlerFunc {
	return middleware.JWTAuth(tokenAuthenticator{}, nil)
}

type request struct {
	method  string
	path    string
	body    string
	token   string
	headers map[string]string
}

func do(r http.Handler, req request) *httptest.ResponseRecorder {
	httpReq := httptest.NewRequest(req.method, req.path, strings.NewReader(req.body))
	if req.body != "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httpReq)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestBaseHandler_HandleDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"mapped code", shared.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped domain error", errors.Join(errors.New("context"), shared.ErrConcurrentModification), http.StatusConflict, "CONCURRENT_MODIFICATION"},
		{"named by suffix", shared.NewDomainError("ADDRESS_NOT_FOUND", "Address not found"), http.StatusNotFound, "ADDRESS_NOT_FOUND"},
		{"business rule", shared.NewDomainError("ORDER_NOT_CANCELLABLE", "Only pending orders can be cancelled"), http.StatusUnprocessableEntity, "ORDER_NOT_CANCELLABLE"},
		{"unknown error", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			r := newTestEngine()
			r.GET("/x", func(c *gin.Context) { h.HandleDomainError(c, tt.err) })

			w := do(r, request{method: http.MethodGet, path: "/x", headers: map[string]string{middleware.RequestIDHeader: "req-1"}})
			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
			assert.NotContains(t, resp.Error.Message, "connection reset")
		})
	}
}

type fakeAuth struct {
	AuthUseCases
	login     identityapp.LoginRequest
	register  identityapp.RegisterRequest
	loggedOut *auth.Claims
}

func (f *fakeAuth) Register(_ context.Context, req identityapp.RegisterRequest) (*identityapp.AuthResult, error) {
	f.register = req
	if req.Email == "taken@example.com" {
		return nil, shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
	}
	return &identityapp.AuthResult{AccessToken: "a", TokenType: "Bearer"}, nil
}

func (f *fakeAuth) Login(_ context.Context, req identityapp.LoginRequest) (*identityapp.AuthResult, error) {
	f.login = req
	return &identityapp.AuthResult{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}, nil
}

func (f *fakeAuth) Logout(_ context.Context, claims *auth.Claims, _ identityapp.LogoutRequest) error {
	f.loggedOut = claims
	return nil
}

func TestAuthHandler(t *testing.T) {
	svc := &fakeAuth{}
	h := NewAuthHandler(svc)
	r := newTestEngine()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", authed(), h.Logout)
	guest := uuid.NewString()

	t.Run("register adopts the guest cart", func(t *testing.T) {
		w := do(r, request{method: http.MethodPost, path: "/auth/register",
			body:    `{"email":"new@example.com","password":"s3cretpass"}`,
			headers: map[string]string{middleware.CartTokenHeader: guest}})
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, guest, svc.register.CartToken)
	})

	t.Run("register with a taken email", func(t *testing.T) {
		w := do(r, request{method: http.MethodPost, path: "/auth/register",
			body: `{"email":"taken@example.com","password":"s3cretpass"}`})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "EMAIL_TAKEN", decodeResponse(t, w).Error.Code)
	})

	t.Run("register validation", func(t *testing.T) {
		w := do(r, request{method: http.MethodPost, path: "/auth/register",
			body: `{"email":"not-an-email","password":"short"}`})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		fields := make([]string, 0, len(resp.Error.Details))
		for _, d := range resp.Error.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"email", "password"}, fields)
	})

	t.Run("login passes client IP and cart token", func(t *testing.T) {
		w := do(r, request{method: http.MethodPost, path: "/auth/login",
			body:    `{"email":"a@example.com","password":"whatever"}`,
			headers: map[string]string{middleware.CartTokenHeader: guest}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, guest, svc.login.CartToken)
		assert.NotEmpty(t, svc.login.IP)
	})

	t.Run("logout without body", func(t *testing.T) {
		w := do(r, request{method: http.MethodPost, path: "/auth/logout", token: "customer"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		require.NotNil(t, svc.loggedOut)
		assert.Equal(t, customerID.String(), svc.loggedOut.UserID)
	})
}

type fakeCheckout struct {
	calls []orderapp.CheckoutRequest
	seen  map[string]*orderapp.CheckoutResult
}

func (f *fakeCheckout) Checkout(_ context.Context, userID uuid.UUID, req orderapp.CheckoutRequest) (*orderapp.CheckoutResult, error) {
	f.calls = append(f.calls, req)
	if prev, ok := f.seen[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return &orderapp.CheckoutResult{Order: prev.Order, Replayed: true}, nil
	}
	result := &orderapp.CheckoutResult{Order: orderapp.OrderResponse{ID: uuid.New(), UserID: userID, Status: "pending", Total: decimal.NewFromInt(30)}}
	f.seen[req.IdempotencyKey] = result
	return result, nil
}

func TestCheckoutHandler(t *testing.T) {
	svc := &fakeCheckout{seen: map[string]*orderapp.CheckoutResult{}}
	r := newTestEngine()
	r.POST("/checkout", authed(), NewCheckoutHandler(svc).Checkout)
	headers := map[string]string{middleware.IdempotencyKeyHeader: "key-1"}

	w := do(r, request{method: http.MethodPost, path: "/checkout", token: "customer", headers: headers, body: `{"note":"leave at door"}`})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, svc.calls, 1)
	assert.Equal(t, "key-1", svc.calls[0].IdempotencyKey)
	assert.Equal(t, "leave at door", svc.calls[0].Note)

	w = do(r, request{method: http.MethodPost, path: "/checkout", token: "customer", headers: headers})
	assert.Equal(t, http.StatusOK, w.Code)
	var replay struct {
		Data orderapp.CheckoutResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &replay))
	assert.True(t, replay.Data.Replayed)

	w = do(r, request{method: http.MethodPost, path: "/checkout", token: "customer",
		headers: map[string]string{middleware.IdempotencyKeyHeader: strings.Repeat("k", 129)}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, svc.calls, 2)

	w = do(r, request{method: http.MethodPost, path: "/checkout"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type fakeStorefront struct {
	query catalogapp.StorefrontProductQuery
}

func (f *fakeStorefront) ListStorefront(_ context.Context, q catalogapp.StorefrontProductQuery) (*catalogapp.ProductList, error) {
	f.query = q
	return &catalogapp.ProductList{Items: []catalogapp.ProductListItem{{Name: "Linen Shirt"}}, Total: 41, Page: 3, PageSize: 20}, nil
}

func (f *fakeStorefront) GetStorefrontProduct(_ context.Context, slug string) (*catalogapp.ProductResponse, error) {
	if slug != "linen-shirt" {
		return nil, shared.ErrNotFound
	}
	return &catalogapp.ProductResponse{Slug: slug}, nil
}

type fakeCategories struct{}

func (fakeCategories) List(context.Context) ([]catalogapp.CategoryResponse, error) {
	return []catalogapp.CategoryResponse{{Slug: "shirts"}}, nil
}

func TestCatalogHandler(t *testing.T) {
	svc := &fakeStorefront{}
	h := NewCatalogHandler(svc, fakeCategories{})
	r := newTestEngine()
	r.GET("/catalog/categories", h.ListCategories)
	r.GET("/catalog/products", h.ListProducts)
	r.GET("/catalog/products/:slug", h.GetProduct)

	w := do(r, request{method: http.MethodGet, path: "/catalog/products?page=3&category=shirts&min_price=10.50&sort_by=price&sort_dir=desc"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(41), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, "shirts", svc.query.Category)
	require.NotNil(t, svc.query.MinPrice)
	assert.True(t, svc.query.MinPrice.Equal(decimal.RequireFromString("10.50")))

	w = do(r, request{method: http.MethodGet, path: "/catalog/products?sort_by=stock"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, request{method: http.MethodGet, path: "/catalog/products/linen-shirt"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(r, request{method: http.MethodGet, path: "/catalog/products/missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, request{method: http.MethodGet, path: "/catalog/categories"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"shirts"`)
}

type fakeUserAdmin struct {
	UserAdmin
	actor uuid.UUID
}

func (f *fakeUserAdmin) Disable(_ context.Context, actorID, id uuid.UUID) (*identityapp.UserResponse, error) {
	f.actor = actorID
	if actorID == id {
		return nil, shared.NewDomainError("CANNOT_MODIFY_SELF", "Administrators cannot disable themselves")
	}
	return &identityapp.UserResponse{ID: id, Status: "disabled"}, nil
}

type fakeOrderAdmin struct {
	OrderAdmin
	shipped orderapp.ShipRequest
}

func (f *fakeOrderAdmin) Ship(_ context.Context, id uuid.UUID, req orderapp.ShipRequest) (*orderapp.OrderResponse, error) {
	f.shipped = req
	return &orderapp.OrderResponse{ID: id, Status: "shipped", TrackingNumber: req.TrackingNumber}, nil
}

func (f *fakeOrderAdmin) Deliver(context.Context, uuid.UUID) (*orderapp.OrderResponse, error) {
	return nil, shared.ErrInvalidState
}

type fakeDashboard struct{}

func (fakeDashboard) Summary(context.Context) (*adminapp.Dashboard, error) {
	return &adminapp.Dashboard{Currency: "USD", PendingOrders: 2}, nil
}

func TestAdminHandler(t *testing.T) {
	users := &fakeUserAdmin{}
	orders := &fakeOrderAdmin{}
	h := NewAdminHandler(fakeDashboard{}, orders, users)
	r := newTestEngine()
	r.Use(authed())
	r.GET("/admin/dashboard", h.Dashboard)
	r.POST("/admin/users/:id/disable", h.DisableUser)
	r.POST("/admin/orders/:id/ship", h.ShipOrder)
	r.POST("/admin/orders/:id/deliver", h.DeliverOrder)

	w := do(r, request{method: http.MethodGet, path: "/admin/dashboard", token: "admin"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pending_orders":2`)

	w = do(r, request{method: http.MethodPost, path: "/admin/users/" + customerID.String() + "/disable", token: "admin"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, adminID, users.actor)

	w = do(r, request{method: http.MethodPost, path: "/admin/users/" + adminID.String() + "/disable", token: "admin"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "CANNOT_MODIFY_SELF", decodeResponse(t, w).Error.Code)

	w = do(r, request{method: http.MethodPost, path: "/admin/users/not-a-uuid/disable", token: "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	orderID := uuid.NewString()
	w = do(r, request{method: http.MethodPost, path: "/admin/orders/" + orderID + "/ship", token: "admin", body: `{"tracking_number":"1Z999"}`})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1Z999", orders.shipped.TrackingNumber)

	w = do(r, request{method: http.MethodPost, path: "/admin/orders/" + orderID + "/ship", token: "admin", body: `{}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, request{method: http.MethodPost, path: "/admin/orders/" + orderID + "/deliver", token: "admin"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_STATE", decodeResponse(t, w).Error.Code)
}

func TestHealthHandler(t *testing.T) {
	healthy := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })

	r := newTestEngine()
	r.GET("/ok", NewHealthHandler("1.2.3", map[string]Pinger{"database": healthy, "redis": nil}).Health)
	r.GET("/degraded", NewHealthHandler("1.2.3", map[string]Pinger{"database": healthy, "redis": down}).Health)

	w := do(r, request{method: http.MethodGet, path: "/ok"})
	assert.Equal(t, http.StatusOK, w.Code)
	var ok APIResponse[HealthData]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	assert.Equal(t, "ok", ok.Data.Status)
	assert.Equal(t, map[string]string{"database": "ok"}, ok.Data.Checks)

	w = do(r, request{method: http.MethodGet, path: "/degraded"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var degraded APIResponse[HealthData]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &degraded))
	assert.Equal(t, "degraded", degraded.Data.Status)
	assert.Contains(t, degraded.Data.Checks["redis"], "connection refused")
}
