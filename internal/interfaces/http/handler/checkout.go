package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// maxIdempotencyKeyLength bounds the Idempotency-Key header
const maxIdempotencyKeyLength = 128

// Checkouter places orders from carts
type Checkouter interface {
	Checkout(ctx context.Context, userID uuid.UUID, req orderapp.CheckoutRequest) (*orderapp.CheckoutResult, error)
}

// CheckoutHandler handles checkout
type CheckoutHandler struct {
	BaseHandler
	checkout Checkouter
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkout Checkouter) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// Checkout godoc
// @Summary      Place an order
// @Description  Turns the caller's cart into a pending order at current prices and reserves stock. Repeating a request with the same Idempotency-Key returns the first order with status 200.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client-chosen key deduplicating retries"
// @Param        request body orderapp.CheckoutRequest true "Shipping details"
// @Success      201 {object} APIResponse[orderapp.CheckoutResult]
// @Success      200 {object} APIResponse[orderapp.CheckoutResult]
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	key := c.GetHeader(middleware.IdempotencyKeyHeader)
	if len(key) > maxIdempotencyKeyLength {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Idempotency-Key is too long")
		return
	}

	var req orderapp.CheckoutRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = key

	result, err := h.checkout.Checkout(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}
