// Package cart models a shopping cart as a mapping from product variant to
// quantity. Quantities are never negative; setting a line to zero removes it.
package cart

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// Cart limits
const (
	MaxLineQuantity = 99
	MaxLines        = 50
)

// Owner key prefixes
const (
	userOwnerPrefix  = "user:"
	guestOwnerPrefix = "guest:"
)

// UserOwner returns the owner key for a signed-in user's cart
func UserOwner(userID uuid.UUID) string {
	return userOwnerPrefix + userID.String()
}

// GuestOwner returns the owner key for an anonymous cart token
func GuestOwner(token string) string {
	return guestOwnerPrefix + token
}

// IsGuestOwner reports whether owner refers to an anonymous cart
func IsGuestOwner(owner string) bool {
	return strings.HasPrefix(owner, guestOwnerPrefix)
}

// Item is one cart line: a specific variant of a product
type Item struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug,omitempty"`
	ImageURL  string          `json:"image_url,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Key returns the line key of the item
func (i Item) Key() string {
	return LineKey(i.ProductID, i.SKU)
}

// LineTotal returns UnitPrice * Quantity rounded to cents
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// LineKey builds the mapping key for a product variant
func LineKey(productID uuid.UUID, sku string) string {
	return productID.String() + ":" + strings.ToUpper(sku)
}

// Cart is the shopping cart of one owner
type Cart struct {
	Owner     string
	Items     map[string]Item
	UpdatedAt time.Time
}

// New creates an empty cart for owner
func New(owner string) *Cart {
	return &Cart{
		Owner:     owner,
		Items:     make(map[string]Item),
		UpdatedAt: time.Now(),
	}
}

// Add puts qty units of item into the cart, merging with an existing line
func (c *Cart) Add(item Item, qty int) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if item.ProductID == uuid.Nil || item.SKU == "" {
		return shared.NewDomainError("INVALID_ITEM", "Product and SKU are required")
	}
	item.SKU = strings.ToUpper(item.SKU)
	key := item.Key()

	existing, ok := c.Items[key]
	if !ok && len(c.Items) >= MaxLines {
		return shared.NewDomainError("CART_FULL", "Cart cannot hold more than 50 different items")
	}
	total := qty
	if ok {
		total += existing.Quantity
	}
	if total > MaxLineQuantity {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity per item cannot exceed 99")
	}
	item.Quantity = total
	c.Items[key] = item
	c.UpdatedAt = time.Now()
	return nil
}

// SetQuantity sets a line's quantity; zero removes it
func (c *Cart) SetQuantity(key string, qty int) error {
	if qty < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if qty > MaxLineQuantity {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity per item cannot exceed 99")
	}
	item, ok := c.Items[key]
	if !ok {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Item is not in the cart")
	}
	if qty == 0 {
		delete(c.Items, key)
	} else {
		item.Quantity = qty
		c.Items[key] = item
	}
	c.UpdatedAt = time.Now()
	return nil
}

// Remove deletes a line
func (c *Cart) Remove(key string) error {
	if _, ok := c.Items[key]; !ok {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Item is not in the cart")
	}
	delete(c.Items, key)
	c.UpdatedAt = time.Now()
	return nil
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = make(map[string]Item)
	c.UpdatedAt = time.Now()
}

// Merge adds every line of other into c, capping each line at the per-line
// limit. Lines that do not fit are dropped and their keys returned.
func (c *Cart) Merge(other *Cart) []string {
	var dropped []string
	for _, key := range other.sortedKeys() {
		item := other.Items[key]
		existing, ok := c.Items[key]
		if !ok && len(c.Items) >= MaxLines {
			dropped = append(dropped, key)
			continue
		}
		qty := item.Quantity
		if ok {
			qty += existing.Quantity
		}
		if qty > MaxLineQuantity {
			qty = MaxLineQuantity
		}
		item.Quantity = qty
		c.Items[key] = item
	}
	c.UpdatedAt = time.Now()
	return dropped
}

// Subtotal sums the line totals
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount sums the quantities
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Lines returns the items in a stable order (by name, then SKU)
func (c *Cart) Lines() []Item {
	out := make([]Item, 0, len(c.Items))
	for _, key := range c.sortedKeys() {
		out = append(out, c.Items[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].SKU < out[j].SKU
	})
	return out
}

func (c *Cart) sortedKeys() []string {
	keys := make([]string, 0, len(c.Items))
	for k := range c.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
