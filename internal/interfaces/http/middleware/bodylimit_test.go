package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/interfaces/http/dto"
)

func newCartItemsRouter(limit int64) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), BodyLimit(limit))
	r.POST("/cart/items", func(c *gin.Context) {
		var req struct {
			SKU      string `json:"sku"`
			Quantity int    `json:"quantity"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(dto.ErrCodeRequestTooLarge, "too large"))
				return
			}
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(gin.H{"sku": req.SKU, "quantity": req.Quantity}))
	})
	r.GET("/cart", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"items": []string{}}))
	})
	return r
}

func TestBodyLimit_AcceptsSmallCartItem(t *testing.T) {
	r := newCartItemsRouter(256)

	w := serve(r, http.MethodPost, "/cart/items", nil, `{"sku":"TEE-M-BLK","quantity":2}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, decode(t, w).Success)
}

func TestBodyLimit_RejectsDeclaredOversizeBody(t *testing.T) {
	r := newCartItemsRouter(64)
	body := `{"sku":"TEE-M-BLK","quantity":2,"note":"` + strings.Repeat("x", 200) + `"}`

	w := serve(r, http.MethodPost, "/cart/items", map[string]string{RequestIDHeader: "req-413"}, body)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	resp := decode(t, w)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
	assert.Equal(t, "req-413", resp.Error.RequestID)
	assert.Equal(t, "req-413", w.Header().Get(RequestIDHeader))
}

func TestBodyLimit_CapsChunkedBody(t *testing.T) {
	r := newCartItemsRouter(64)
	body := `{"sku":"` + strings.Repeat("A", 200) + `","quantity":1}`
	req := httptest.NewRequest(http.MethodPost, "/cart/items", io.NopCloser(strings.NewReader(body)))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.Equal(t, dto.ErrCodeRequestTooLarge, decode(t, w).Error.Code)
}

func TestBodyLimit_IgnoresBodilessRequests(t *testing.T) {
	r := newCartItemsRouter(1)

	w := serve(r, http.MethodGet, "/cart", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
}
