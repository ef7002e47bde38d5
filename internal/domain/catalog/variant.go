package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// Variant is a purchasable size/color combination of a product
type Variant struct {
	SKU        string          `json:"sku"`
	Size       string          `json:"size,omitempty"`
	Color      string          `json:"color,omitempty"`
	PriceDelta decimal.Decimal `json:"price_delta"`
	Stock      int             `json:"stock"`
}

// NewVariant creates a variant with a normalized SKU
func NewVariant(sku, size, color string, priceDelta decimal.Decimal, stock int) (Variant, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if err := ValidateSKU(sku); err != nil {
		return Variant{}, err
	}
	if stock < 0 {
		return Variant{}, shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}
	return Variant{
		SKU:        sku,
		Size:       strings.TrimSpace(size),
		Color:      strings.TrimSpace(color),
		PriceDelta: priceDelta,
		Stock:      stock,
	}, nil
}

// InStock reports whether at least qty units are available
func (v Variant) InStock(qty int) bool {
	return qty > 0 && v.Stock >= qty
}

// Matches reports whether the variant fits a shopper's size/color selection.
// Empty selectors match anything; comparison ignores case.
func (v Variant) Matches(size, color string) bool {
	if size != "" && !strings.EqualFold(v.Size, size) {
		return false
	}
	if color != "" && !strings.EqualFold(v.Color, color) {
		return false
	}
	return true
}

// ValidateSKU checks that sku is upper case letters, digits, '-' or '_'
func ValidateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 64 {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 64 characters")
	}
	for _, r := range sku {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_SKU", "SKU can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}
