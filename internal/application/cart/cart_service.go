// Package cart implements the shopping cart use cases on top of a cart
// store and the live catalog.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// DefaultTTL is how long an idle cart is kept
const DefaultTTL = 30 * 24 * time.Hour

// Service manages carts for signed-in users and guests
type Service struct {
	store       cart.Store
	productRepo catalog.ProductRepository
	ttl         time.Duration
	currency    string
	logger      *zap.Logger
}

// NewService creates a new cart Service. Every write extends the cart's TTL.
func NewService(store cart.Store, productRepo catalog.ProductRepository, ttl time.Duration, currency string, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if currency == "" {
		currency = catalog.DefaultCurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		productRepo: productRepo,
		ttl:         ttl,
		currency:    currency,
		logger:      logger,
	}
}

// NewGuestToken returns a fresh anonymous cart token
func NewGuestToken() string {
	return uuid.NewString()
}

// Get returns the owner's cart. A missing cart is empty.
func (s *Service) Get(ctx context.Context, owner string) (*Response, error) {
	c, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return ToResponse(c, s.currency), nil
}

// AddItem resolves the requested variant against the live product and adds it
func (s *Service) AddItem(ctx context.Context, owner string, req AddItemRequest) (*Response, error) {
	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available")
		}
		return nil, err
	}
	if !product.IsPurchasable() {
		return nil, shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available")
	}

	variant, err := resolveVariant(product, req)
	if err != nil {
		return nil, err
	}

	c, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	want := req.Quantity
	if existing, ok := c.Items[cart.LineKey(product.ID, variant.SKU)]; ok {
		want += existing.Quantity
	}
	if !variant.InStock(want) {
		return nil, shared.NewDomainError("OUT_OF_STOCK", "Not enough stock for the selected variant")
	}

	price, err := product.UnitPrice(variant.SKU)
	if err != nil {
		return nil, err
	}
	item := cart.Item{
		ProductID: product.ID,
		SKU:       variant.SKU,
		Size:      variant.Size,
		Color:     variant.Color,
		Name:      product.Name,
		Slug:      product.Slug,
		UnitPrice: price,
	}
	if len(product.Images) > 0 {
		item.ImageURL = product.Images[0].URL
	}
	if err := c.Add(item, req.Quantity); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// UpdateItem sets a line's quantity. Raising it re-checks stock.
func (s *Service) UpdateItem(ctx context.Context, owner, key string, qty int) (*Response, error) {
	c, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	line, ok := c.Items[key]
	if !ok {
		return nil, shared.NewDomainError("ITEM_NOT_FOUND", "Cart item not found")
	}
	if qty > line.Quantity {
		product, err := s.productRepo.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		v := product.FindVariantBySKU(line.SKU)
		if !product.IsPurchasable() || v == nil {
			return nil, shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available")
		}
		if !v.InStock(qty) {
			return nil, shared.NewDomainError("OUT_OF_STOCK", "Not enough stock for the selected variant")
		}
	}
	if err := c.SetQuantity(key, qty); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// RemoveItem deletes a line
func (s *Service) RemoveItem(ctx context.Context, owner, key string) (*Response, error) {
	c, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := c.Remove(key); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// Clear empties the cart
func (s *Service) Clear(ctx context.Context, owner string) error {
	return s.store.Delete(ctx, owner)
}

// MergeGuestCart adds the guest cart's lines to the user's cart and discards
// the guest cart. Lines beyond the cart limits are dropped.
func (s *Service) MergeGuestCart(ctx context.Context, guestToken string, userID uuid.UUID) error {
	guestOwner := cart.GuestOwner(guestToken)
	guest, err := s.store.Load(ctx, guestOwner)
	if err != nil {
		return err
	}
	if guest.IsEmpty() {
		return nil
	}
	userCart, err := s.store.Load(ctx, cart.UserOwner(userID))
	if err != nil {
		return err
	}
	dropped := userCart.Merge(guest)
	if err := s.store.Save(ctx, userCart, s.ttl); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, guestOwner); err != nil {
		s.logger.Warn("Failed to delete merged guest cart", zap.Error(err))
	}
	s.logger.Info("Guest cart merged",
		zap.String("user_id", userID.String()),
		zap.Int("lines", len(guest.Items)),
		zap.Strings("dropped", dropped))
	return nil
}

func (s *Service) save(ctx context.Context, c *cart.Cart) (*Response, error) {
	if err := s.store.Save(ctx, c, s.ttl); err != nil {
		return nil, err
	}
	return ToResponse(c, s.currency), nil
}

func resolveVariant(product *catalog.Product, req AddItemRequest) (*catalog.Variant, error) {
	if req.SKU != "" {
		v := product.FindVariantBySKU(req.SKU)
		if v == nil {
			return nil, shared.NewDomainError("VARIANT_NOT_FOUND", "Variant not found")
		}
		return v, nil
	}
	return product.FindVariant(req.Size, req.Color)
}
