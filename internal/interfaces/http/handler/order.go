package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	orderapp "github.com/storefront/backend/internal/application/order"
)

// CustomerOrders is the customer view of orders
type CustomerOrders interface {
	ListForUser(ctx context.Context, userID uuid.UUID, q orderapp.OrderQuery) (*orderapp.OrderList, error)
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*orderapp.OrderResponse, error)
	CancelByCustomer(ctx context.Context, userID, id uuid.UUID, req orderapp.CancelRequest) (*orderapp.OrderResponse, error)
}

// OrderHandler serves the signed-in customer's orders
type OrderHandler struct {
	BaseHandler
	orders CustomerOrders
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders CustomerOrders) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List godoc
// @Summary      List my orders
// @Tags         orders
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        status query string false "Status" Enums(pending, paid, shipped, delivered, cancelled)
// @Success      200 {object} APIResponse[[]orderapp.OrderResponse]
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var q orderapp.OrderQuery
	if !h.bindQuery(c, &q) {
		return
	}
	list, err := h.orders.ListForUser(c.Request.Context(), userID, q)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, list.Items, list.Total, list.Page, list.PageSize)
}

// Get godoc
// @Summary      Get one of my orders
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.GetForUser(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, o)
}

// Cancel godoc
// @Summary      Cancel one of my orders
// @Description  Only pending orders can be cancelled by the customer. Reserved stock is released.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderapp.CancelRequest false "Reason"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req orderapp.CancelRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	o, err := h.orders.CancelByCustomer(c.Request.Context(), userID, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, o)
}
