// Package event contains the application-level subscribers of the
// in-process event bus.
package event

import (
	"context"

	"go.uber.org/zap"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// slugged is implemented by every product event
type slugged interface {
	shared.DomainEvent
	ProductSlug() string
}

// CatalogCacheHandler drops cached storefront reads when products or
// their stock change
type CatalogCacheHandler struct {
	cache  catalogapp.Cache
	logger *zap.Logger
}

// NewCatalogCacheHandler creates a new CatalogCacheHandler
func NewCatalogCacheHandler(cache catalogapp.Cache, logger *zap.Logger) *CatalogCacheHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogCacheHandler{cache: cache, logger: logger}
}

// EventTypes returns the product events plus the order events that move stock
func (h *CatalogCacheHandler) EventTypes() []string {
	types := make([]string, 0, len(catalog.ProductEventTypes)+2)
	types = append(types, catalog.ProductEventTypes...)
	return append(types, order.EventTypeOrderPlaced, order.EventTypeOrderCancelled)
}

// Handle invalidates the affected cache entries
func (h *CatalogCacheHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case slugged:
		if err := h.cache.Delete(ctx, catalogapp.ProductCacheKey(e.ProductSlug())); err != nil {
			return err
		}
		if err := h.cache.DeletePrefix(ctx, catalogapp.ListCacheKeyPrefix()); err != nil {
			return err
		}
		h.logger.Debug("Invalidated product cache",
			zap.String("event_type", event.EventType()),
			zap.String("slug", e.ProductSlug()))
	case *order.OrderPlacedEvent, *order.OrderCancelledEvent:
		// order lines carry no slugs, so every cached product goes
		if err := h.cache.DeletePrefix(ctx, catalogapp.ProductCacheKeyPrefix()); err != nil {
			return err
		}
		if err := h.cache.DeletePrefix(ctx, catalogapp.ListCacheKeyPrefix()); err != nil {
			return err
		}
		h.logger.Debug("Invalidated catalog cache after stock movement",
			zap.String("event_type", event.EventType()),
			zap.String("order_id", event.AggregateID().String()))
	default:
		h.logger.Warn("Unexpected event type", zap.String("event_type", event.EventType()))
	}
	return nil
}

var _ shared.EventHandler = (*CatalogCacheHandler)(nil)
