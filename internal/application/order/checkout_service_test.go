package order

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/metrics"
)

type checkoutFixture struct {
	svc      *CheckoutService
	orders   *fakeOrderRepo
	carts    *cache.MemoryCartStore
	events   *recordingPublisher
	recorder *countingRecorder
	user     *identity.User
	product  *catalog.Product
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	user, err := identity.NewUser("buyer@example.com", "s3cretpass", "Buyer")
	require.NoError(t, err)
	_, err = user.AddAddress(identity.Address{
		Recipient: "Buyer", Line1: "2 Elm Road", City: "Shelbyville", PostalCode: "54321", Country: "US",
	})
	require.NoError(t, err)

	product, err := catalog.NewProduct("Canvas Tote", "", decimal.RequireFromString("24.50"))
	require.NoError(t, err)
	for _, sku := range []string{"TOTE-NAT", "TOTE-BLK"} {
		v, err := catalog.NewVariant(sku, "", sku[5:], decimal.Zero, 3)
		require.NoError(t, err)
		require.NoError(t, product.AddVariant(v))
	}
	require.NoError(t, product.Publish())

	f := &checkoutFixture{
		orders:   newFakeOrderRepo(),
		carts:    cache.NewMemoryCartStore(),
		events:   &recordingPublisher{},
		recorder: &countingRecorder{},
		user:     user,
		product:  product,
	}
	f.svc = NewCheckoutService(
		f.orders,
		&fakeProducts{products: map[uuid.UUID]*catalog.Product{product.ID: product}},
		&fakeUsers{users: map[uuid.UUID]*identity.User{user.ID: user}},
		f.carts,
		cache.NewMemoryIdempotencyStore(),
		f.events,
		CheckoutConfig{
			Currency:              "USD",
			ShippingFee:           decimal.NewFromInt(5),
			FreeShippingThreshold: decimal.NewFromInt(100),
		},
		f.recorder,
		nil,
	)
	return f
}

// fillCart stores a cart whose prices are stale on purpose
func (f *checkoutFixture) fillCart(t *testing.T, lines map[string]int) {
	t.Helper()
	c := cart.New(cart.UserOwner(f.user.ID))
	for sku, qty := range lines {
		require.NoError(t, c.Add(cart.Item{ProductID: f.product.ID, SKU: sku, Name: f.product.Name, UnitPrice: decimal.NewFromInt(1)}, qty))
	}
	require.NoError(t, f.carts.Save(context.Background(), c, 0))
}

func TestCheckout_PlacesOrderAtLivePrices(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.fillCart(t, map[string]int{"TOTE-NAT": 2, "TOTE-BLK": 1})

	result, err := f.svc.Checkout(ctx, f.user.ID, CheckoutRequest{Note: "gift wrap"})
	require.NoError(t, err)

	o := result.Order
	assert.False(t, result.Replayed)
	assert.Equal(t, "pending", o.Status)
	assert.Regexp(t, `^ORD-\d{8}-[A-Z0-9]{6}$`, o.Number)
	assert.True(t, o.Subtotal.Equal(decimal.RequireFromString("73.50")), o.Subtotal.String())
	assert.True(t, o.ShippingFee.Equal(decimal.NewFromInt(5)))
	assert.True(t, o.Total.Equal(decimal.RequireFromString("78.50")))
	assert.Equal(t, "Buyer", o.ShippingAddress.Recipient)
	assert.Equal(t, "gift wrap", o.Note)

	left, err := f.carts.Load(ctx, cart.UserOwner(f.user.ID))
	require.NoError(t, err)
	assert.True(t, left.IsEmpty())
	assert.Equal(t, []string{order.EventTypeOrderPlaced}, f.events.types())
	assert.Equal(t, []string{metrics.CheckoutPlaced}, f.recorder.checkouts)
}

func TestCheckout_FreeShippingAtThreshold(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.product.BasePrice = decimal.NewFromInt(50)
	f.fillCart(t, map[string]int{"TOTE-NAT": 2})

	result, err := f.svc.Checkout(ctx, f.user.ID, CheckoutRequest{})
	require.NoError(t, err)
	assert.True(t, result.Order.ShippingFee.IsZero())
	assert.True(t, result.Order.Total.Equal(decimal.NewFromInt(100)))
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.svc.Checkout(context.Background(), f.user.ID, CheckoutRequest{})
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "CART_EMPTY", de.Code)
	assert.Equal(t, []string{metrics.CheckoutFailed}, f.recorder.checkouts)
}

func TestCheckout_IdempotencyKeyReplaysFirstOrder(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.fillCart(t, map[string]int{"TOTE-NAT": 1})

	first, err := f.svc.Checkout(ctx, f.user.ID, CheckoutRequest{IdempotencyKey: "k-1"})
	require.NoError(t, err)
	second, err := f.svc.Checkout(ctx, f.user.ID, CheckoutRequest{IdempotencyKey: "k-1"})
	require.NoError(t, err)

	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.True(t, second.Replayed)
	assert.Equal(t, 1, f.orders.placeCalls)
	assert.Equal(t, []string{metrics.CheckoutPlaced, metrics.CheckoutReplayed}, f.recorder.checkouts)
}

func TestCheckout_FailedAttemptReleasesIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.fillCart(t, map[string]int{"TOTE-NAT": 1})
	f.orders.placeErrs = []error{shared.ErrInsufficientStock}

	_, err := f.svc.Checkout(ctx, f.user.ID, CheckoutRequest{IdempotencyKey: "k-2"})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Equal(t, []string{metrics.CheckoutOutOfStock}, f.recorder.checkouts)

	// the cart survives a failed checkout
	c, err := f.carts.Load(ctx, cart.UserOwner(f.user.ID))
	require.NoError(t, err)
	assert.False(t, c.IsEmpty())

	result, err := f.svc.Checkout(ctx, f.user.ID, CheckoutRequest{IdempotencyKey: "k-2"})
	require.NoError(t, err)
	assert.False(t, result.Replayed)
}

func TestCheckout_RetriesOrderNumberCollision(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.fillCart(t, map[string]int{"TOTE-BLK": 1})
	f.orders.placeErrs = []error{shared.ErrAlreadyExists, shared.ErrAlreadyExists}

	_, err := f.svc.Checkout(ctx, f.user.ID, CheckoutRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, f.orders.placeCalls)

	f.fillCart(t, map[string]int{"TOTE-BLK": 1})
	f.orders.placeErrs = []error{shared.ErrAlreadyExists, shared.ErrAlreadyExists, shared.ErrAlreadyExists}
	_, err = f.svc.Checkout(ctx, f.user.ID, CheckoutRequest{})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestCheckout_RejectsUnavailableAndOverStock(t *testing.T) {
	ctx := context.Background()

	f := newCheckoutFixture(t)
	f.fillCart(t, map[string]int{"TOTE-NAT": 4})
	_, err := f.svc.Checkout(ctx, f.user.ID, CheckoutRequest{})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Zero(t, f.orders.placeCalls)

	f = newCheckoutFixture(t)
	f.fillCart(t, map[string]int{"TOTE-NAT": 1})
	require.NoError(t, f.product.Archive())
	_, err = f.svc.Checkout(ctx, f.user.ID, CheckoutRequest{})
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "CART_ITEM_UNAVAILABLE", de.Code)
}

func TestCheckout_ShippingAddressSelection(t *testing.T) {
	ctx := context.Background()

	t.Run("inline address wins", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.fillCart(t, map[string]int{"TOTE-NAT": 1})
		result, err := f.svc.Checkout(ctx, f.user.ID, CheckoutRequest{Address: &ShippingAddressRequest{
			Recipient: "Friend", Line1: "9 Oak Lane", City: "Ogdenville", PostalCode: "11111", Country: "ca",
		}})
		require.NoError(t, err)
		assert.Equal(t, "Friend", result.Order.ShippingAddress.Recipient)
		assert.Equal(t, "CA", result.Order.ShippingAddress.Country)
	})

	t.Run("unknown address id", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.fillCart(t, map[string]int{"TOTE-NAT": 1})
		missing := uuid.New()
		_, err := f.svc.Checkout(ctx, f.user.ID, CheckoutRequest{AddressID: &missing})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "ADDRESS_NOT_FOUND", de.Code)
	})

	t.Run("empty address book", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.user.Addresses = nil
		f.fillCart(t, map[string]int{"TOTE-NAT": 1})
		_, err := f.svc.Checkout(ctx, f.user.ID, CheckoutRequest{})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "ADDRESS_REQUIRED", de.Code)
	})
}
