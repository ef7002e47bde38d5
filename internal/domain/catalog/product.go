package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

// IsValid checks if the status is a known ProductStatus
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusArchived:
		return true
	}
	return false
}

// DefaultCurrency is used when a product is created without one
const DefaultCurrency = "USD"

// Limits on the product document
const (
	MaxVariants = 100
	MaxImages   = 20
)

// Image is a product picture stored in object storage
type Image struct {
	Key string `json:"key"`
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Product is the catalog aggregate root. Variants, images and attributes
// are embedded in the product document.
type Product struct {
	shared.BaseAggregateRoot
	Slug        string
	Name        string
	Description string
	CategoryID  *uuid.UUID
	BasePrice   decimal.Decimal
	Currency    string
	Status      ProductStatus
	Images      []Image
	Attributes  map[string]string
	Variants    []Variant
}

// NewProduct creates a draft product. An empty slug is derived from the name.
func NewProduct(name, slug string, basePrice decimal.Decimal) (*Product, error) {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if basePrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Slug:              slug,
		Name:              name,
		BasePrice:         basePrice,
		Currency:          DefaultCurrency,
		Status:            ProductStatusDraft,
		Images:            make([]Image, 0),
		Attributes:        make(map[string]string),
		Variants:          make([]Variant, 0),
	}
	p.AddDomainEvent(NewProductCreatedEvent(p))
	return p, nil
}

// Update changes the product's descriptive fields
func (p *Product) Update(name, description string, categoryID *uuid.UUID) error {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return err
	}
	p.Name = name
	p.Description = description
	p.CategoryID = categoryID
	p.touch()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

// SetAttributes replaces the free-form attribute map (material, fit, ...)
func (p *Product) SetAttributes(attrs map[string]string) {
	p.Attributes = make(map[string]string, len(attrs))
	for k, v := range attrs {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		p.Attributes[k] = v
	}
	p.touch()
}

// SetPrice changes the base price. Every variant must stay non-negative.
func (p *Product) SetPrice(basePrice decimal.Decimal, currency string) error {
	if basePrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	for _, v := range p.Variants {
		if basePrice.Add(v.PriceDelta).IsNegative() {
			return shared.NewDomainError("INVALID_PRICE", "Price would make variant "+v.SKU+" negative")
		}
	}
	if currency != "" {
		if len(currency) != 3 {
			return shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
		}
		p.Currency = strings.ToUpper(currency)
	}
	p.BasePrice = basePrice
	p.touch()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

// AddVariant appends a new size/color variant
func (p *Product) AddVariant(v Variant) error {
	if len(p.Variants) >= MaxVariants {
		return shared.NewDomainError("TOO_MANY_VARIANTS", "Product cannot have more than 100 variants")
	}
	if p.FindVariantBySKU(v.SKU) != nil {
		return shared.NewDomainError("DUPLICATE_SKU", "Variant with SKU "+v.SKU+" already exists")
	}
	if p.findVariantExact(v.Size, v.Color) != nil {
		return shared.NewDomainError("DUPLICATE_VARIANT", "Variant with the same size and color already exists")
	}
	if p.BasePrice.Add(v.PriceDelta).IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Variant price cannot be negative")
	}
	p.Variants = append(p.Variants, v)
	p.touch()
	return nil
}

// UpdateVariant changes the size, color and price delta of an existing variant
func (p *Product) UpdateVariant(sku, size, color string, priceDelta decimal.Decimal) error {
	v := p.FindVariantBySKU(sku)
	if v == nil {
		return shared.NewDomainError("VARIANT_NOT_FOUND", "Variant not found")
	}
	if other := p.findVariantExact(size, color); other != nil && other.SKU != v.SKU {
		return shared.NewDomainError("DUPLICATE_VARIANT", "Variant with the same size and color already exists")
	}
	if p.BasePrice.Add(priceDelta).IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Variant price cannot be negative")
	}
	v.Size = strings.TrimSpace(size)
	v.Color = strings.TrimSpace(color)
	v.PriceDelta = priceDelta
	p.touch()
	return nil
}

// RemoveVariant deletes a variant. An active product keeps at least one.
func (p *Product) RemoveVariant(sku string) error {
	sku = strings.ToUpper(sku)
	for i := range p.Variants {
		if p.Variants[i].SKU != sku {
			continue
		}
		if p.Status == ProductStatusActive && len(p.Variants) == 1 {
			return shared.NewDomainError("LAST_VARIANT", "Active product must keep at least one variant")
		}
		p.Variants = append(p.Variants[:i], p.Variants[i+1:]...)
		p.touch()
		return nil
	}
	return shared.NewDomainError("VARIANT_NOT_FOUND", "Variant not found")
}

// AdjustStock adds delta (possibly negative) to a variant's stock
func (p *Product) AdjustStock(sku string, delta int) error {
	v := p.FindVariantBySKU(sku)
	if v == nil {
		return shared.NewDomainError("VARIANT_NOT_FOUND", "Variant not found")
	}
	if v.Stock+delta < 0 {
		return shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock for "+v.SKU)
	}
	v.Stock += delta
	p.touch()
	p.AddDomainEvent(NewStockAdjustedEvent(p, v.SKU, delta, v.Stock))
	return nil
}

// Publish makes a draft or archived product visible in the storefront
func (p *Product) Publish() error {
	if p.Status == ProductStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Product is already active")
	}
	if len(p.Variants) == 0 {
		return shared.NewDomainError("NO_VARIANTS", "Product needs at least one variant before publishing")
	}
	p.Status = ProductStatusActive
	p.touch()
	p.AddDomainEvent(NewProductStatusChangedEvent(p, EventTypeProductPublished))
	return nil
}

// Archive hides the product from the storefront
func (p *Product) Archive() error {
	if p.Status == ProductStatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Product is already archived")
	}
	p.Status = ProductStatusArchived
	p.touch()
	p.AddDomainEvent(NewProductStatusChangedEvent(p, EventTypeProductArchived))
	return nil
}

// Restore moves an archived product back to draft
func (p *Product) Restore() error {
	if p.Status != ProductStatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Only archived products can be restored")
	}
	p.Status = ProductStatusDraft
	p.touch()
	return nil
}

// AddImage appends an image to the gallery
func (p *Product) AddImage(img Image) error {
	if img.Key == "" {
		return shared.NewDomainError("INVALID_IMAGE", "Image key cannot be empty")
	}
	if len(p.Images) >= MaxImages {
		return shared.NewDomainError("TOO_MANY_IMAGES", "Product cannot have more than 20 images")
	}
	for _, existing := range p.Images {
		if existing.Key == img.Key {
			return shared.NewDomainError("DUPLICATE_IMAGE", "Image already attached")
		}
	}
	p.Images = append(p.Images, img)
	p.touch()
	return nil
}

// RemoveImage detaches the image with the given storage key
func (p *Product) RemoveImage(key string) error {
	for i := range p.Images {
		if p.Images[i].Key == key {
			p.Images = append(p.Images[:i], p.Images[i+1:]...)
			p.touch()
			return nil
		}
	}
	return shared.NewDomainError("IMAGE_NOT_FOUND", "Image not found")
}

// FindVariantBySKU returns a pointer into Variants, or nil
func (p *Product) FindVariantBySKU(sku string) *Variant {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	for i := range p.Variants {
		if p.Variants[i].SKU == sku {
			return &p.Variants[i]
		}
	}
	return nil
}

// FindVariant resolves a shopper's size/color selection to a single variant.
// Ambiguous selections (several matches) are rejected.
func (p *Product) FindVariant(size, color string) (*Variant, error) {
	var found *Variant
	for i := range p.Variants {
		if !p.Variants[i].Matches(size, color) {
			continue
		}
		if found != nil {
			return nil, shared.NewDomainError("AMBIGUOUS_VARIANT", "Select both size and color")
		}
		found = &p.Variants[i]
	}
	if found == nil {
		return nil, shared.NewDomainError("VARIANT_NOT_FOUND", "No variant matches the selected size and color")
	}
	return found, nil
}

func (p *Product) findVariantExact(size, color string) *Variant {
	for i := range p.Variants {
		if strings.EqualFold(p.Variants[i].Size, strings.TrimSpace(size)) &&
			strings.EqualFold(p.Variants[i].Color, strings.TrimSpace(color)) {
			return &p.Variants[i]
		}
	}
	return nil
}

// UnitPrice returns the price of one unit of the given variant
func (p *Product) UnitPrice(sku string) (decimal.Decimal, error) {
	v := p.FindVariantBySKU(sku)
	if v == nil {
		return decimal.Zero, shared.NewDomainError("VARIANT_NOT_FOUND", "Variant not found")
	}
	return p.BasePrice.Add(v.PriceDelta).Round(2), nil
}

// AvailableSizes lists distinct sizes in variant order
func (p *Product) AvailableSizes() []string {
	return p.distinct(func(v Variant) string { return v.Size })
}

// AvailableColors lists distinct colors sorted alphabetically
func (p *Product) AvailableColors() []string {
	colors := p.distinct(func(v Variant) string { return v.Color })
	sort.Strings(colors)
	return colors
}

func (p *Product) distinct(field func(Variant) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, v := range p.Variants {
		val := field(v)
		if val == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(val)]; ok {
			continue
		}
		seen[strings.ToLower(val)] = struct{}{}
		out = append(out, val)
	}
	return out
}

// TotalStock sums stock across variants
func (p *Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total
}

// PriceRange returns the lowest and highest variant price.
// A product without variants reports its base price for both.
func (p *Product) PriceRange() (decimal.Decimal, decimal.Decimal) {
	if len(p.Variants) == 0 {
		return p.BasePrice, p.BasePrice
	}
	lo := p.BasePrice.Add(p.Variants[0].PriceDelta)
	hi := lo
	for _, v := range p.Variants[1:] {
		price := p.BasePrice.Add(v.PriceDelta)
		if price.LessThan(lo) {
			lo = price
		}
		if price.GreaterThan(hi) {
			hi = price
		}
	}
	return lo, hi
}

// IsPurchasable reports whether the product can be added to a cart
func (p *Product) IsPurchasable() bool {
	return p.Status == ProductStatusActive
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now()
}

func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
