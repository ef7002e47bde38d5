package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// CartUseCases is what CartHandler needs from the cart layer
type CartUseCases interface {
	Get(ctx context.Context, owner string) (*cartapp.Response, error)
	AddItem(ctx context.Context, owner string, req cartapp.AddItemRequest) (*cartapp.Response, error)
	UpdateItem(ctx context.Context, owner, key string, qty int) (*cartapp.Response, error)
	RemoveItem(ctx context.Context, owner, key string) (*cartapp.Response, error)
	Clear(ctx context.Context, owner string) error
}

// CartHandler serves the shopping cart of a user or a guest. The owner is
// resolved by middleware.CartOwner.
type CartHandler struct {
	BaseHandler
	carts CartUseCases
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts CartUseCases) *CartHandler {
	return &CartHandler{carts: carts}
}

// Get godoc
// @Summary      Get the cart
// @Tags         cart
// @Produce      json
// @Param        X-Cart-Token header string false "Guest cart token"
// @Success      200 {object} APIResponse[cartapp.Response]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	resp, err := h.carts.Get(c.Request.Context(), middleware.GetCartOwner(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.respond(c, resp)
}

// AddItem godoc
// @Summary      Add an item
// @Description  Adds a variant to the cart. Anonymous callers without a token get a new guest cart whose token is returned in X-Cart-Token and guest_token.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-Cart-Token header string false "Guest cart token"
// @Param        request body cartapp.AddItemRequest true "Item"
// @Success      200 {object} APIResponse[cartapp.Response]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cartapp.AddItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.carts.AddItem(c.Request.Context(), middleware.GetCartOwner(c), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.respond(c, resp)
}

// UpdateItem godoc
// @Summary      Change an item's quantity
// @Description  Quantity 0 removes the line
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        key path string true "Line key"
// @Param        request body cartapp.UpdateItemRequest true "Quantity"
// @Success      200 {object} APIResponse[cartapp.Response]
// @Failure      404 {object} ErrorResponse
// @Router       /cart/items/{key} [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req cartapp.UpdateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.carts.UpdateItem(c.Request.Context(), middleware.GetCartOwner(c), c.Param("key"), *req.Quantity)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.respond(c, resp)
}

// RemoveItem godoc
// @Summary      Remove an item
// @Tags         cart
// @Produce      json
// @Param        key path string true "Line key"
// @Success      200 {object} APIResponse[cartapp.Response]
// @Failure      404 {object} ErrorResponse
// @Router       /cart/items/{key} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	resp, err := h.carts.RemoveItem(c.Request.Context(), middleware.GetCartOwner(c), c.Param("key"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.respond(c, resp)
}

// Clear godoc
// @Summary      Empty the cart
// @Tags         cart
// @Success      204
// @Router       /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), middleware.GetCartOwner(c)); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// respond echoes a freshly issued guest token in the body
func (h *CartHandler) respond(c *gin.Context, resp *cartapp.Response) {
	if middleware.GetJWTClaims(c) == nil && middleware.GetCartToken(c) == "" {
		resp.GuestToken = c.Writer.Header().Get(middleware.CartTokenHeader)
	}
	h.Success(c, resp)
}
