// Package order implements checkout and the order lifecycle use cases.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/metrics"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// maxNumberAttempts bounds retries when a generated order number collides
const maxNumberAttempts = 3

// Recorder receives checkout and order lifecycle counters
type Recorder interface {
	RecordCheckout(result string)
	RecordOrderPlaced(currency string, total float64)
	RecordOrderTransition(status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCheckout(string) {}

func (nopRecorder) RecordOrderPlaced(string, float64) {}

func (nopRecorder) RecordOrderTransition(string) {}

// CheckoutConfig holds pricing and idempotency settings
type CheckoutConfig struct {
	Currency              string
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	IdempotencyTTL        time.Duration
}

// CheckoutService converts carts into orders
type CheckoutService struct {
	orderRepo   order.Repository
	productRepo catalog.ProductRepository
	userRepo    identity.UserRepository
	carts       cart.Store
	idempotency order.IdempotencyStore
	events      shared.EventPublisher
	cfg         CheckoutConfig
	recorder    Recorder
	logger      *zap.Logger
	now         func() time.Time
}

// NewCheckoutService creates a new CheckoutService. recorder may be nil.
func NewCheckoutService(
	orderRepo order.Repository,
	productRepo catalog.ProductRepository,
	userRepo identity.UserRepository,
	carts cart.Store,
	idempotency order.IdempotencyStore,
	events shared.EventPublisher,
	cfg CheckoutConfig,
	recorder Recorder,
	logger *zap.Logger,
) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = catalog.DefaultCurrency
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		carts:       carts,
		idempotency: idempotency,
		events:      events,
		cfg:         cfg,
		recorder:    recorder,
		logger:      logger,
		now:         time.Now,
	}
}

// Checkout places an order for the user's cart. Every line is re-priced from
// the live catalog and stock is taken in the same transaction that stores
// the order. Repeating an Idempotency-Key returns the first order.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (result *CheckoutResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "CheckoutService", "Checkout",
		telemetry.AttrUserID, userID.String(),
		telemetry.AttrIdempotent, req.IdempotencyKey != "")
	defer telemetry.End(span, &err)

	if req.IdempotencyKey != "" {
		key := idempotencyKey(userID, req.IdempotencyKey)
		existingID, reserved, rerr := s.idempotency.Reserve(ctx, key, s.cfg.IdempotencyTTL)
		if rerr != nil {
			return nil, rerr
		}
		if !reserved {
			return s.replay(ctx, userID, existingID)
		}
		defer func() {
			if err != nil {
				if relErr := s.idempotency.Release(ctx, key); relErr != nil {
					s.logger.Warn("Failed to release idempotency key", zap.Error(relErr))
				}
				return
			}
			if cerr := s.idempotency.Complete(ctx, key, result.Order.ID.String(), s.cfg.IdempotencyTTL); cerr != nil {
				s.logger.Warn("Failed to record idempotency key", zap.Error(cerr))
			}
		}()
	}

	placed, err := s.place(ctx, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrInsufficientStock):
			s.recorder.RecordCheckout(metrics.CheckoutOutOfStock)
		default:
			s.recorder.RecordCheckout(metrics.CheckoutFailed)
		}
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.AttrOrderID, placed.ID.String(),
		telemetry.AttrOrderNumber, placed.Number,
		telemetry.AttrItemCount, placed.ItemCount(),
		telemetry.AttrAmount, placed.Total.String())
	s.recorder.RecordCheckout(metrics.CheckoutPlaced)
	s.recorder.RecordOrderPlaced(placed.Currency, placed.Total.InexactFloat64())
	s.logger.Info("Order placed",
		zap.String("order_id", placed.ID.String()),
		zap.String("number", placed.Number),
		zap.String("user_id", userID.String()),
		zap.String("total", placed.Total.StringFixed(2)))

	return &CheckoutResult{Order: ToOrderResponse(placed)}, nil
}

func (s *CheckoutService) place(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*order.Order, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	addr, err := shippingAddress(user, req)
	if err != nil {
		return nil, err
	}

	owner := cart.UserOwner(userID)
	c, err := s.carts.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, shared.NewDomainError("CART_EMPTY", "Cart is empty")
	}

	lines, err := s.priceLines(ctx, c)
	if err != nil {
		return nil, err
	}
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	fee := order.ShippingFeeFor(subtotal, s.cfg.ShippingFee, s.cfg.FreeShippingThreshold)

	var placed *order.Order
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		o, err := order.NewOrder(order.GenerateNumber(s.now()), userID, user.Email, lines, addr, fee, s.cfg.Currency)
		if err != nil {
			return nil, err
		}
		if err := o.SetNote(req.Note); err != nil {
			return nil, err
		}
		err = s.orderRepo.Place(ctx, o)
		if err == nil {
			placed = o
			break
		}
		if errors.Is(err, shared.ErrAlreadyExists) && attempt < maxNumberAttempts {
			s.logger.Warn("Order number collision, retrying", zap.String("number", o.Number), zap.Int("attempt", attempt))
			continue
		}
		return nil, err
	}

	if err := s.carts.Delete(ctx, owner); err != nil {
		s.logger.Error("Failed to clear cart after checkout", zap.String("user_id", userID.String()), zap.Error(err))
	}

	events := placed.GetDomainEvents()
	placed.ClearDomainEvents()
	if s.events != nil && len(events) > 0 {
		if err := s.events.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish order events", zap.Error(err))
		}
	}
	return placed, nil
}

// priceLines snapshots every cart line at the live product price
func (s *CheckoutService) priceLines(ctx context.Context, c *cart.Cart) ([]order.Line, error) {
	items := c.Lines()
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	lines := make([]order.Line, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok || !p.IsPurchasable() {
			return nil, shared.NewDomainError("CART_ITEM_UNAVAILABLE", it.Name+" is no longer available")
		}
		v := p.FindVariantBySKU(it.SKU)
		if v == nil {
			return nil, shared.NewDomainError("CART_ITEM_UNAVAILABLE", it.Name+" ("+it.SKU+") is no longer available")
		}
		if !v.InStock(it.Quantity) {
			return nil, shared.NewDomainError("INSUFFICIENT_STOCK", "Not enough stock for "+p.Name+" ("+v.SKU+")")
		}
		price, err := p.UnitPrice(v.SKU)
		if err != nil {
			return nil, err
		}
		line, err := order.NewLine(p.ID, p.Name, v.SKU, v.Size, v.Color, price, it.Quantity)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *CheckoutService) replay(ctx context.Context, userID uuid.UUID, orderID string) (*CheckoutResult, error) {
	if orderID == "" {
		return nil, shared.NewDomainError("CHECKOUT_IN_PROGRESS", "A checkout with this Idempotency-Key is still being processed")
	}
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, err
	}
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(userID) {
		return nil, shared.ErrNotFound
	}
	s.recorder.RecordCheckout(metrics.CheckoutReplayed)
	return &CheckoutResult{Order: ToOrderResponse(o), Replayed: true}, nil
}

func idempotencyKey(userID uuid.UUID, key string) string {
	return userID.String() + ":" + key
}

func shippingAddress(user *identity.User, req CheckoutRequest) (order.ShippingAddress, error) {
	if req.Address != nil {
		a := identity.Address{
			Recipient:  req.Address.Recipient,
			Line1:      req.Address.Line1,
			Line2:      req.Address.Line2,
			City:       req.Address.City,
			Region:     req.Address.Region,
			PostalCode: req.Address.PostalCode,
			Country:    req.Address.Country,
			Phone:      req.Address.Phone,
		}
		if err := a.Validate(); err != nil {
			return order.ShippingAddress{}, err
		}
		return toShippingAddress(&a), nil
	}
	var a *identity.Address
	if req.AddressID != nil {
		a = user.FindAddress(*req.AddressID)
		if a == nil {
			return order.ShippingAddress{}, shared.NewDomainError("ADDRESS_NOT_FOUND", "Address not found")
		}
	} else {
		a = user.DefaultAddress()
	}
	if a == nil {
		return order.ShippingAddress{}, shared.NewDomainError("ADDRESS_REQUIRED", "A shipping address is required")
	}
	return toShippingAddress(a), nil
}

func toShippingAddress(a *identity.Address) order.ShippingAddress {
	return order.ShippingAddress{
		Recipient:  a.Recipient,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}
