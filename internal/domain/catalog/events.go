package catalog

import (
	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeProduct = "Product"

// Event type constants
const (
	EventTypeProductCreated   = "ProductCreated"
	EventTypeProductUpdated   = "ProductUpdated"
	EventTypeProductPublished = "ProductPublished"
	EventTypeProductArchived  = "ProductArchived"
	EventTypeStockAdjusted    = "StockAdjusted"
)

// ProductEventTypes lists every event that changes what the storefront shows
var ProductEventTypes = []string{
	EventTypeProductCreated,
	EventTypeProductUpdated,
	EventTypeProductPublished,
	EventTypeProductArchived,
	EventTypeStockAdjusted,
}

// ProductCreatedEvent is published when a new product is created
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(p *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		Slug:            p.Slug,
		Name:            p.Name,
	}
}

// ProductUpdatedEvent is published when descriptive fields or prices change
type ProductUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	Slug      string    `json:"slug"`
}

// NewProductUpdatedEvent creates a new ProductUpdatedEvent
func NewProductUpdatedEvent(p *Product) *ProductUpdatedEvent {
	return &ProductUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductUpdated, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		Slug:            p.Slug,
	}
}

// ProductStatusChangedEvent covers publish and archive
type ProductStatusChangedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID     `json:"product_id"`
	Slug      string        `json:"slug"`
	Status    ProductStatus `json:"status"`
}

// NewProductStatusChangedEvent creates an event of the given type
func NewProductStatusChangedEvent(p *Product, eventType string) *ProductStatusChangedEvent {
	return &ProductStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		Slug:            p.Slug,
		Status:          p.Status,
	}
}

// StockAdjustedEvent is published whenever a variant's stock changes
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	Slug      string    `json:"slug"`
	SKU       string    `json:"sku"`
	Delta     int       `json:"delta"`
	Stock     int       `json:"stock"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(p *Product, sku string, delta, stock int) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		Slug:            p.Slug,
		SKU:             sku,
		Delta:           delta,
		Stock:           stock,
	}
}

// ProductSlug returns the slug of the product the event concerns
func (e *ProductCreatedEvent) ProductSlug() string { return e.Slug }

// ProductSlug returns the slug of the product the event concerns
func (e *ProductUpdatedEvent) ProductSlug() string { return e.Slug }

// ProductSlug returns the slug of the product the event concerns
func (e *ProductStatusChangedEvent) ProductSlug() string { return e.Slug }

// ProductSlug returns the slug of the product the event concerns
func (e *StockAdjustedEvent) ProductSlug() string { return e.Slug }
