package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	adminapp "github.com/storefront/backend/internal/application/admin"
	identityapp "github.com/storefront/backend/internal/application/identity"
	orderapp "github.com/storefront/backend/internal/application/order"
)

// Dashboarder builds the admin dashboard
type Dashboarder interface {
	Summary(ctx context.Context) (*adminapp.Dashboard, error)
}

// UserAdmin manages accounts
type UserAdmin interface {
	List(ctx context.Context, q adminapp.UserQuery) (*adminapp.UserList, error)
	Get(ctx context.Context, id uuid.UUID) (*identityapp.UserResponse, error)
	SetRole(ctx context.Context, actorID, id uuid.UUID, req adminapp.SetRoleRequest) (*identityapp.UserResponse, error)
	Disable(ctx context.Context, actorID, id uuid.UUID) (*identityapp.UserResponse, error)
	Enable(ctx context.Context, id uuid.UUID) (*identityapp.UserResponse, error)
	Unlock(ctx context.Context, id uuid.UUID) (*identityapp.UserResponse, error)
}

// OrderAdmin is the back office order workflow
type OrderAdmin interface {
	List(ctx context.Context, q orderapp.AdminOrderQuery) (*orderapp.OrderList, error)
	Get(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error)
	MarkPaid(ctx context.Context, id uuid.UUID, req orderapp.MarkPaidRequest) (*orderapp.OrderResponse, error)
	Ship(ctx context.Context, id uuid.UUID, req orderapp.ShipRequest) (*orderapp.OrderResponse, error)
	Deliver(ctx context.Context, id uuid.UUID) (*orderapp.OrderResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, req orderapp.CancelRequest) (*orderapp.OrderResponse, error)
}

// AdminHandler serves the admin dashboard, order workflow and user management
type AdminHandler struct {
	BaseHandler
	dashboard Dashboarder
	orders    OrderAdmin
	users     UserAdmin
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(dashboard Dashboarder, orders OrderAdmin, users UserAdmin) *AdminHandler {
	return &AdminHandler{dashboard: dashboard, orders: orders, users: users}
}

// Dashboard godoc
// @Summary      Dashboard summary
// @Description  Product and order counts by status, revenue and the latest orders
// @Tags         admin
// @Produce      json
// @Success      200 {object} APIResponse[adminapp.Dashboard]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	d, err := h.dashboard.Summary(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, d)
}

// ListOrders godoc
// @Summary      List orders
// @Tags         admin-orders
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        status query string false "Status" Enums(pending, paid, shipped, delivered, cancelled)
// @Param        search query string false "Order number or email"
// @Param        user_id query string false "Customer ID" format(uuid)
// @Param        from query string false "Created on or after" format(date)
// @Param        to query string false "Created on or before" format(date)
// @Param        order_by query string false "Sort field" Enums(created_at, total, number, status)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]orderapp.OrderResponse]
// @Security     BearerAuth
// @Router       /admin/orders [get]
func (h *AdminHandler) ListOrders(c *gin.Context) {
	var q orderapp.AdminOrderQuery
	if !h.bindQuery(c, &q) {
		return
	}
	list, err := h.orders.List(c.Request.Context(), q)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, list.Items, list.Total, list.Page, list.PageSize)
}

// GetOrder godoc
// @Summary      Get an order
// @Tags         admin-orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id} [get]
func (h *AdminHandler) GetOrder(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, o)
}

// MarkOrderPaid godoc
// @Summary      Record payment
// @Tags         admin-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderapp.MarkPaidRequest true "Payment reference"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id}/pay [post]
func (h *AdminHandler) MarkOrderPaid(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req orderapp.MarkPaidRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.orderResult(c)(h.orders.MarkPaid(c.Request.Context(), id, req))
}

// ShipOrder godoc
// @Summary      Ship an order
// @Tags         admin-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderapp.ShipRequest true "Tracking number"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id}/ship [post]
func (h *AdminHandler) ShipOrder(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req orderapp.ShipRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.orderResult(c)(h.orders.Ship(c.Request.Context(), id, req))
}

// DeliverOrder godoc
// @Summary      Mark an order delivered
// @Tags         admin-orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id}/deliver [post]
func (h *AdminHandler) DeliverOrder(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	h.orderResult(c)(h.orders.Deliver(c.Request.Context(), id))
}

// CancelOrder godoc
// @Summary      Cancel an order
// @Description  Pending and paid orders can be cancelled; stock is released
// @Tags         admin-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderapp.CancelRequest false "Reason"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/orders/{id}/cancel [post]
func (h *AdminHandler) CancelOrder(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req orderapp.CancelRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	h.orderResult(c)(h.orders.Cancel(c.Request.Context(), id, req))
}

func (h *AdminHandler) orderResult(c *gin.Context) func(*orderapp.OrderResponse, error) {
	return func(o *orderapp.OrderResponse, err error) {
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		h.Success(c, o)
	}
}

// ListUsers godoc
// @Summary      List users
// @Tags         admin-users
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Email or name"
// @Param        role query string false "Role" Enums(customer, admin)
// @Param        status query string false "Status" Enums(active, locked, disabled)
// @Success      200 {object} APIResponse[[]identityapp.UserResponse]
// @Security     BearerAuth
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var q adminapp.UserQuery
	if !h.bindQuery(c, &q) {
		return
	}
	list, err := h.users.List(c.Request.Context(), q)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, list.Items, list.Total, list.Page, list.PageSize)
}

// GetUser godoc
// @Summary      Get a user
// @Tags         admin-users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identityapp.UserResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users/{id} [get]
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	h.userResult(c)(h.users.Get(c.Request.Context(), id))
}

// SetUserRole godoc
// @Summary      Change a user's role
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Param        request body adminapp.SetRoleRequest true "Role"
// @Success      200 {object} APIResponse[identityapp.UserResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users/{id}/role [put]
func (h *AdminHandler) SetUserRole(c *gin.Context) {
	actorID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req adminapp.SetRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.userResult(c)(h.users.SetRole(c.Request.Context(), actorID, id, req))
}

// DisableUser godoc
// @Summary      Disable a user
// @Description  Blocks sign-in and revokes the user's tokens
// @Tags         admin-users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identityapp.UserResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users/{id}/disable [post]
func (h *AdminHandler) DisableUser(c *gin.Context) {
	actorID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	h.userResult(c)(h.users.Disable(c.Request.Context(), actorID, id))
}

// EnableUser godoc
// @Summary      Re-enable a user
// @Tags         admin-users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identityapp.UserResponse]
// @Security     BearerAuth
// @Router       /admin/users/{id}/enable [post]
func (h *AdminHandler) EnableUser(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	h.userResult(c)(h.users.Enable(c.Request.Context(), id))
}

// UnlockUser godoc
// @Summary      Lift a login lock
// @Tags         admin-users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identityapp.UserResponse]
// @Security     BearerAuth
// @Router       /admin/users/{id}/unlock [post]
func (h *AdminHandler) UnlockUser(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	h.userResult(c)(h.users.Unlock(c.Request.Context(), id))
}

func (h *AdminHandler) userResult(c *gin.Context) func(*identityapp.UserResponse, error) {
	return func(u *identityapp.UserResponse, err error) {
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		h.Success(c, u)
	}
}
