package order

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// Status represents the lifecycle state of an order
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []Status{StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled}

// IsValid checks if the status is a known order status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can move to target
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusPaid || target == StatusCancelled
	case StatusPaid:
		return target == StatusShipped || target == StatusCancelled
	case StatusShipped:
		return target == StatusDelivered
	case StatusDelivered, StatusCancelled:
		return false // Terminal states
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Line is a priced snapshot of one cart line at checkout time
type Line struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// NewLine creates an order line and computes its total
func NewLine(productID uuid.UUID, name, sku, size, color string, unitPrice decimal.Decimal, qty int) (Line, error) {
	if productID == uuid.Nil {
		return Line{}, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if sku == "" {
		return Line{}, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if qty <= 0 {
		return Line{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return Line{}, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	return Line{
		ProductID: productID,
		Name:      name,
		SKU:       sku,
		Size:      size,
		Color:     color,
		UnitPrice: unitPrice,
		Quantity:  qty,
		LineTotal: unitPrice.Mul(decimal.NewFromInt(int64(qty))).Round(2),
	}, nil
}

// ShippingAddress is copied from the address book so later edits do not
// change historic orders
type ShippingAddress struct {
	Recipient  string `json:"recipient"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Order is the aggregate root for a placed purchase
type Order struct {
	shared.BaseAggregateRoot
	Number           string
	UserID           uuid.UUID
	Email            string
	Lines            []Line
	ShippingAddress  ShippingAddress
	Subtotal         decimal.Decimal
	ShippingFee      decimal.Decimal
	Total            decimal.Decimal
	Currency         string
	Status           Status
	Note             string
	PaymentReference string
	TrackingNumber   string
	PaidAt           *time.Time
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	CancelledAt      *time.Time
	CancelReason     string
}

// NewOrder creates a pending order. Subtotal is computed from the lines and
// shipping is added on top.
func NewOrder(number string, userID uuid.UUID, email string, lines []Line, addr ShippingAddress, shippingFee decimal.Decimal, currency string) (*Order, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Order must have at least one line")
	}
	if shippingFee.IsNegative() {
		return nil, shared.NewDomainError("INVALID_SHIPPING_FEE", "Shipping fee cannot be negative")
	}
	if addr.Recipient == "" || addr.Line1 == "" || addr.City == "" || addr.Country == "" {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Shipping address is incomplete")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		UserID:            userID,
		Email:             email,
		Lines:             lines,
		ShippingAddress:   addr,
		ShippingFee:       shippingFee.Round(2),
		Currency:          strings.ToUpper(currency),
		Status:            StatusPending,
	}
	o.recalculateTotals()
	o.AddDomainEvent(NewOrderPlacedEvent(o))
	return o, nil
}

// SetNote attaches a customer note
func (o *Order) SetNote(note string) error {
	if len(note) > 500 {
		return shared.NewDomainError("INVALID_NOTE", "Note cannot exceed 500 characters")
	}
	o.Note = strings.TrimSpace(note)
	return nil
}

// MarkPaid records a successful payment
func (o *Order) MarkPaid(reference string) error {
	if err := o.transition(StatusPaid); err != nil {
		return err
	}
	now := time.Now()
	o.PaymentReference = reference
	o.PaidAt = &now
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, EventTypeOrderPaid, StatusPending))
	return nil
}

// Ship records that the parcel left the warehouse
func (o *Order) Ship(trackingNumber string) error {
	if strings.TrimSpace(trackingNumber) == "" {
		return shared.NewDomainError("INVALID_TRACKING_NUMBER", "Tracking number is required")
	}
	if err := o.transition(StatusShipped); err != nil {
		return err
	}
	now := time.Now()
	o.TrackingNumber = strings.TrimSpace(trackingNumber)
	o.ShippedAt = &now
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, EventTypeOrderShipped, StatusPaid))
	return nil
}

// Deliver completes the order
func (o *Order) Deliver() error {
	if err := o.transition(StatusDelivered); err != nil {
		return err
	}
	now := time.Now()
	o.DeliveredAt = &now
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, EventTypeOrderDelivered, StatusShipped))
	return nil
}

// Cancel aborts a pending or paid order; the cancelled event carries the
// lines so stock can be restored
func (o *Order) Cancel(reason string) error {
	from := o.Status
	if err := o.transition(StatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	o.CancelledAt = &now
	o.CancelReason = strings.TrimSpace(reason)
	o.AddDomainEvent(NewOrderCancelledEvent(o, from))
	return nil
}

// CanCustomerCancel reports whether the shopper may still cancel on their own
func (o *Order) CanCustomerCancel() bool {
	return o.Status == StatusPending
}

// IsOwnedBy reports whether userID placed the order
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// ItemCount sums quantities over all lines
func (o *Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

func (o *Order) transition(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", "Cannot move order from "+string(o.Status)+" to "+string(target))
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

func (o *Order) recalculateTotals() {
	subtotal := decimal.Zero
	for _, l := range o.Lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	o.Subtotal = subtotal.Round(2)
	o.Total = o.Subtotal.Add(o.ShippingFee).Round(2)
}

// ShippingFeeFor applies the free-shipping threshold. A zero threshold
// disables free shipping.
func ShippingFeeFor(subtotal, flatFee, freeThreshold decimal.Decimal) decimal.Decimal {
	if freeThreshold.IsPositive() && subtotal.GreaterThanOrEqual(freeThreshold) {
		return decimal.Zero
	}
	return flatFee
}

const numberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateNumber returns an order number like ORD-20240131-7KQ2XM. The date
// part is the UTC calendar day.
func GenerateNumber(now time.Time) string {
	day := now.UTC().Format("20060102")
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// entropy failure, fall back to a uuid fragment
		return "ORD-" + day + "-" + strings.ToUpper(uuid.NewString()[:6])
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return "ORD-" + day + "-" + string(buf)
}
