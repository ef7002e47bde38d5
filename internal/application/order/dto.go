package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/order"
)

// ShippingAddressRequest is an address entered at checkout instead of one
// from the address book
type ShippingAddressRequest struct {
	Recipient  string `json:"recipient" binding:"required,max=100"`
	Line1      string `json:"line1" binding:"required,max=200"`
	Line2      string `json:"line2" binding:"max=200"`
	City       string `json:"city" binding:"required,max=100"`
	Region     string `json:"region" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"required,max=20"`
	Country    string `json:"country" binding:"required,len=2"`
	Phone      string `json:"phone" binding:"max=30"`
}

// CheckoutRequest turns the caller's cart into an order. Without an address
// ID or inline address the default address is used.
type CheckoutRequest struct {
	AddressID      *uuid.UUID              `json:"address_id"`
	Address        *ShippingAddressRequest `json:"address"`
	Note           string                  `json:"note" binding:"max=500"`
	IdempotencyKey string                  `json:"-"`
}

// CheckoutResult carries the order and whether it was replayed from an
// earlier request with the same Idempotency-Key
type CheckoutResult struct {
	Order    OrderResponse `json:"order"`
	Replayed bool          `json:"replayed"`
}

// OrderQuery lists the caller's own orders
type OrderQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=pending paid shipped delivered cancelled"`
}

// AdminOrderQuery lists every order
type AdminOrderQuery struct {
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status   string     `form:"status" binding:"omitempty,oneof=pending paid shipped delivered cancelled"`
	Search   string     `form:"search" binding:"max=100"`
	UserID   *uuid.UUID `form:"user_id"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	OrderBy  string     `form:"order_by" binding:"omitempty,oneof=created_at total number status"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// MarkPaidRequest records a payment made outside the storefront
type MarkPaidRequest struct {
	Reference string `json:"reference" binding:"required,max=100"`
}

// ShipRequest records the carrier tracking number
type ShipRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required,max=100"`
}

// CancelRequest cancels an order
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// LineResponse is one order line
type LineResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderResponse is the full view of an order
type OrderResponse struct {
	ID               uuid.UUID             `json:"id"`
	Number           string                `json:"number"`
	UserID           uuid.UUID             `json:"user_id"`
	Email            string                `json:"email"`
	Status           string                `json:"status"`
	Lines            []LineResponse        `json:"lines"`
	ShippingAddress  order.ShippingAddress `json:"shipping_address"`
	Subtotal         decimal.Decimal       `json:"subtotal"`
	ShippingFee      decimal.Decimal       `json:"shipping_fee"`
	Total            decimal.Decimal       `json:"total"`
	Currency         string                `json:"currency"`
	ItemCount        int                   `json:"item_count"`
	Note             string                `json:"note,omitempty"`
	PaymentReference string                `json:"payment_reference,omitempty"`
	TrackingNumber   string                `json:"tracking_number,omitempty"`
	CancelReason     string                `json:"cancel_reason,omitempty"`
	PaidAt           *time.Time            `json:"paid_at,omitempty"`
	ShippedAt        *time.Time            `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time            `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time            `json:"cancelled_at,omitempty"`
	Version          int                   `json:"version"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// OrderList is one page of orders
type OrderList struct {
	Items    []OrderResponse `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// ToOrderResponse converts a domain order to a response
func ToOrderResponse(o *order.Order) OrderResponse {
	lines := make([]LineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = LineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			SKU:       l.SKU,
			Size:      l.Size,
			Color:     l.Color,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal,
		}
	}
	return OrderResponse{
		ID:               o.ID,
		Number:           o.Number,
		UserID:           o.UserID,
		Email:            o.Email,
		Status:           string(o.Status),
		Lines:            lines,
		ShippingAddress:  o.ShippingAddress,
		Subtotal:         o.Subtotal,
		ShippingFee:      o.ShippingFee,
		Total:            o.Total,
		Currency:         o.Currency,
		ItemCount:        o.ItemCount(),
		Note:             o.Note,
		PaymentReference: o.PaymentReference,
		TrackingNumber:   o.TrackingNumber,
		CancelReason:     o.CancelReason,
		PaidAt:           o.PaidAt,
		ShippedAt:        o.ShippedAt,
		DeliveredAt:      o.DeliveredAt,
		CancelledAt:      o.CancelledAt,
		Version:          o.Version,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}
