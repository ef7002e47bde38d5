package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/cart"
)

// AddItemRequest adds a product variant to the cart. The variant is either
// named by SKU or selected by size and color.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	SKU       string    `json:"sku" binding:"omitempty,sku"`
	Size      string    `json:"size" binding:"max=20"`
	Color     string    `json:"color" binding:"max=30"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=99"`
}

// UpdateItemRequest sets a line's quantity. Zero removes the line.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0,max=99"`
}

// ItemResponse is one cart line
type ItemResponse struct {
	Key       string          `json:"key"`
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug,omitempty"`
	ImageURL  string          `json:"image_url,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Response is the cart as shown to the shopper
type Response struct {
	Items     []ItemResponse  `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updated_at"`
	// GuestToken is set when a new anonymous cart was started
	GuestToken string `json:"guest_token,omitempty"`
}

// ToResponse converts a domain cart to a response
func ToResponse(c *cart.Cart, currency string) *Response {
	lines := c.Lines()
	items := make([]ItemResponse, len(lines))
	for i, l := range lines {
		items[i] = ItemResponse{
			Key:       l.Key(),
			ProductID: l.ProductID,
			SKU:       l.SKU,
			Size:      l.Size,
			Color:     l.Color,
			Name:      l.Name,
			Slug:      l.Slug,
			ImageURL:  l.ImageURL,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal(),
		}
	}
	return &Response{
		Items:     items,
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal(),
		Currency:  currency,
		UpdatedAt: c.UpdatedAt,
	}
}
