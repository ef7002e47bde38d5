package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthenticator struct {
	tokens map[string]*auth.Claims
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token string) (*auth.Claims, error) {
	if token == "revoked" {
		return nil, shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
	}
	if claims, ok := f.tokens[token]; ok {
		return claims, nil
	}
	return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid token")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func serve(r http.Handler, method, path string, headers map[string]string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ok(c *gin.Context) { c.String(http.StatusOK, "ok") }

func TestCORSWithConfig(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://shop.example.com"}
	r := gin.New()
	r.Use(CORSWithConfig(cfg))
	r.GET("/x", ok)

	w := serve(r, http.MethodGet, "/x", map[string]string{"Origin": "https://shop.example.com"}, "")
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), CartTokenHeader)
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), CartTokenHeader)

	w = serve(r, http.MethodGet, "/x", map[string]string{"Origin": "https://evil.example.com"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, http.MethodOptions, "/x", map[string]string{"Origin": "https://evil.example.com"}, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDAndSecure(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Secure())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := serve(r, http.MethodGet, "/x", nil, "")
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 32)
	assert.Equal(t, generated, w.Body.String())
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	w = serve(r, http.MethodGet, "/x", map[string]string{RequestIDHeader: "client-id-1"}, "")
	assert.Equal(t, "client-id-1", w.Body.String())

	w = serve(r, http.MethodGet, "/x", map[string]string{RequestIDHeader: strings.Repeat("a", 200)}, "")
	assert.Len(t, w.Body.String(), 32)
}

func TestJWTAuth(t *testing.T) {
	userID := uuid.New()
	authn := &fakeAuthenticator{tokens: map[string]*auth.Claims{
		"customer": {UserID: userID.String(), Permissions: identity.RoleCustomer.Permissions()},
		"admin":    {UserID: uuid.NewString(), Permissions: identity.RoleAdmin.Permissions()},
	}}

	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", JWTAuth(authn, nil), func(c *gin.Context) {
		c.String(http.StatusOK, GetJWTUserID(c).String())
	})
	r.GET("/admin", JWTAuth(authn, nil), RequirePermission(identity.PermUserManage), ok)
	r.GET("/maybe", OptionalJWTAuth(authn, nil), func(c *gin.Context) {
		c.String(http.StatusOK, GetJWTUserID(c).String())
	})

	w := serve(r, http.MethodGet, "/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, decode(t, w).Error.Code)
	assert.NotEmpty(t, decode(t, w).Error.RequestID)

	w = serve(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer customer"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())

	w = serve(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer revoked"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_REVOKED", decode(t, w).Error.Code)

	w = serve(r, http.MethodGet, "/me", map[string]string{"Authorization": "Basic abc"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer customer"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrCodeForbidden, decode(t, w).Error.Code)

	w = serve(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer admin"}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/maybe", map[string]string{"Authorization": "Bearer junk"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uuid.Nil.String(), w.Body.String())
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(1, 2, time.Minute)
	r := gin.New()
	r.Use(RateLimit(limiter))
	r.GET("/x", ok)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/x", nil, "").Code)
	w := serve(r, http.MethodGet, "/x", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))

	w = serve(r, http.MethodGet, "/x", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, dto.ErrCodeRateLimited, decode(t, w).Error.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(5, 5, time.Minute)
	now := time.Now()
	limiter.now = func() time.Time { return now }
	limiter.Allow("a")
	now = now.Add(2 * time.Minute)
	limiter.Allow("b")

	assert.Equal(t, 1, limiter.Cleanup())
	assert.Len(t, limiter.visitors, 1)
}

func TestCartOwner(t *testing.T) {
	userID := uuid.New()
	authn := &fakeAuthenticator{tokens: map[string]*auth.Claims{"customer": {UserID: userID.String()}}}

	r := gin.New()
	r.GET("/cart", OptionalJWTAuth(authn, nil), CartOwner(CartOwnerConfig{}), func(c *gin.Context) {
		c.String(http.StatusOK, GetCartOwner(c))
	})
	r.POST("/cart/items", OptionalJWTAuth(authn, nil),
		CartOwner(CartOwnerConfig{IssueToken: true, NewToken: func() string { return "6f1c2c6e-5d0b-4a4e-9a57-3d2f1e0a9b11" }, CookieMaxAge: time.Hour}),
		func(c *gin.Context) { c.String(http.StatusOK, GetCartOwner(c)) })

	w := serve(r, http.MethodGet, "/cart", map[string]string{"Authorization": "Bearer customer"}, "")
	assert.Equal(t, "user:"+userID.String(), w.Body.String())

	w = serve(r, http.MethodGet, "/cart", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/cart", map[string]string{CartTokenHeader: "not-a-uuid"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/cart/items", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "6f1c2c6e-5d0b-4a4e-9a57-3d2f1e0a9b11", w.Header().Get(CartTokenHeader))
	assert.Equal(t, "guest:6f1c2c6e-5d0b-4a4e-9a57-3d2f1e0a9b11", w.Body.String())
	assert.Contains(t, w.Header().Get("Set-Cookie"), CartTokenCookie+"=6f1c2c6e")
}

func TestValidation(t *testing.T) {
	require.NoError(t, SetupValidator())

	type request struct {
		Email string `json:"email" binding:"required,email"`
		Slug  string `json:"slug" binding:"omitempty,slug"`
		SKU   string `json:"sku" binding:"omitempty,sku"`
	}
	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := serve(r, http.MethodPost, "/x", nil, `{"email":"nope","slug":"Bad Slug","sku":"tote-nat"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	fields := map[string]string{}
	for _, d := range resp.Error.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "Invalid email format", fields["email"])
	assert.Contains(t, fields, "slug")
	assert.NotContains(t, fields, "sku")

	w = serve(r, http.MethodPost, "/x", nil, `{"email":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decode(t, w).Error.Code)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/x", nil, `{"email":"a@example.com","slug":"linen-shirt"}`).Code)
}

func TestSwaggerProtection(t *testing.T) {
	r := gin.New()
	r.GET("/off", SwaggerProtection(SwaggerConfig{}), ok)
	r.GET("/lan", SwaggerProtection(SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}}), ok)
	r.GET("/on", SwaggerProtection(SwaggerConfig{Enabled: true}), ok)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/off", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/lan", nil, "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/on", nil, "").Code)
}
