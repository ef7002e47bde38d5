package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/order"
)

// OrderModel is the persistence model for the Order aggregate
type OrderModel struct {
	AggregateModel
	Number           string          `gorm:"type:varchar(30);not null;uniqueIndex"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	Email            string          `gorm:"type:varchar(200);not null"`
	LinesJSON        string          `gorm:"column:lines;type:jsonb;not null;default:'[]'"`
	AddressJSON      string          `gorm:"column:shipping_address;type:jsonb;not null;default:'{}'"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ShippingFee      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency         string          `gorm:"type:varchar(3);not null"`
	Status           order.Status    `gorm:"type:varchar(20);not null;index"`
	Note             string          `gorm:"type:text"`
	PaymentReference string          `gorm:"type:varchar(100)"`
	TrackingNumber   string          `gorm:"type:varchar(100)"`
	PaidAt           *time.Time
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	CancelledAt      *time.Time
	CancelReason     string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model to a domain Order
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Number:            m.Number,
		UserID:            m.UserID,
		Email:             m.Email,
		Lines:             make([]order.Line, 0),
		Subtotal:          m.Subtotal,
		ShippingFee:       m.ShippingFee,
		Total:             m.Total,
		Currency:          m.Currency,
		Status:            m.Status,
		Note:              m.Note,
		PaymentReference:  m.PaymentReference,
		TrackingNumber:    m.TrackingNumber,
		PaidAt:            m.PaidAt,
		ShippedAt:         m.ShippedAt,
		DeliveredAt:       m.DeliveredAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
	}
	decodeJSON(m.LinesJSON, &o.Lines, "orders", m.ID)
	decodeJSON(m.AddressJSON, &o.ShippingAddress, "orders", m.ID)
	return o
}

// FromDomain populates the model from a domain Order
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.Number = o.Number
	m.UserID = o.UserID
	m.Email = o.Email
	m.LinesJSON = encodeJSON(o.Lines, "[]")
	m.AddressJSON = encodeJSON(o.ShippingAddress, "{}")
	m.Subtotal = o.Subtotal
	m.ShippingFee = o.ShippingFee
	m.Total = o.Total
	m.Currency = o.Currency
	m.Status = o.Status
	m.Note = o.Note
	m.PaymentReference = o.PaymentReference
	m.TrackingNumber = o.TrackingNumber
	m.PaidAt = o.PaidAt
	m.ShippedAt = o.ShippedAt
	m.DeliveredAt = o.DeliveredAt
	m.CancelledAt = o.CancelledAt
	m.CancelReason = o.CancelReason
}

// OrderModelFromDomain creates a model from a domain Order
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// AllModels lists every persistence model, used by AutoMigrate in tests
func AllModels() []any {
	return []any{&CategoryModel{}, &ProductModel{}, &UserModel{}, &OrderModel{}}
}
