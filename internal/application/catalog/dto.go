package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/catalog"
)

// VariantRequest describes a variant to add
type VariantRequest struct {
	SKU        string          `json:"sku" binding:"required,sku"`
	Size       string          `json:"size" binding:"max=20"`
	Color      string          `json:"color" binding:"max=40"`
	PriceDelta decimal.Decimal `json:"price_delta"`
	Stock      int             `json:"stock" binding:"min=0"`
}

// CreateProductRequest represents a request to create a draft product
type CreateProductRequest struct {
	Name        string            `json:"name" binding:"required,min=1,max=200"`
	Slug        string            `json:"slug" binding:"omitempty,slug"`
	Description string            `json:"description" binding:"max=5000"`
	CategoryID  *uuid.UUID        `json:"category_id"`
	BasePrice   decimal.Decimal   `json:"base_price"`
	Currency    string            `json:"currency" binding:"omitempty,len=3"`
	Attributes  map[string]string `json:"attributes"`
	Variants    []VariantRequest  `json:"variants" binding:"omitempty,max=100,dive"`
}

// UpdateProductRequest changes descriptive fields and price. Nil fields are
// left untouched.
type UpdateProductRequest struct {
	Name        *string            `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string            `json:"description" binding:"omitempty,max=5000"`
	CategoryID  *uuid.UUID         `json:"category_id"`
	BasePrice   *decimal.Decimal   `json:"base_price"`
	Currency    *string            `json:"currency" binding:"omitempty,len=3"`
	Attributes  *map[string]string `json:"attributes"`
	// Version enables optimistic locking against the version the client read
	Version *int `json:"version"`
}

// UpdateVariantRequest changes a variant's options and price delta
type UpdateVariantRequest struct {
	Size       string          `json:"size" binding:"max=20"`
	Color      string          `json:"color" binding:"max=40"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

// AdjustStockRequest adds delta units to a variant, negative to remove
type AdjustStockRequest struct {
	Delta  int    `json:"delta" binding:"required,ne=0"`
	Reason string `json:"reason" binding:"max=200"`
}

// ImageUploadRequest asks for a presigned upload URL
type ImageUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"min=0"`
}

// AttachImageRequest attaches an uploaded object to the gallery
type AttachImageRequest struct {
	Key string `json:"key" binding:"required,max=300"`
	Alt string `json:"alt" binding:"max=200"`
}

// AdminProductQuery filters the admin product list
type AdminProductQuery struct {
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search     string     `form:"search" binding:"max=100"`
	Status     string     `form:"status" binding:"omitempty,oneof=draft active archived"`
	CategoryID *uuid.UUID `form:"category_id"`
	OrderBy    string     `form:"order_by" binding:"omitempty,oneof=name price created_at updated_at stock"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// StorefrontProductQuery filters the public product list. Only active
// products are ever returned.
type StorefrontProductQuery struct {
	Page     int              `form:"page" binding:"omitempty,min=1"`
	PageSize int              `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search   string           `form:"search" binding:"max=100"`
	Category string           `form:"category" binding:"omitempty,slug"`
	Size     string           `form:"size" binding:"max=20"`
	Color    string           `form:"color" binding:"max=40"`
	MinPrice *decimal.Decimal `form:"min_price"`
	MaxPrice *decimal.Decimal `form:"max_price"`
	SortBy   string           `form:"sort_by" binding:"omitempty,oneof=name price created_at"`
	SortDir  string           `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// VariantResponse is a variant with its effective price
type VariantResponse struct {
	SKU        string          `json:"sku"`
	Size       string          `json:"size,omitempty"`
	Color      string          `json:"color,omitempty"`
	PriceDelta decimal.Decimal `json:"price_delta"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	InStock    bool            `json:"in_stock"`
}

// ProductResponse is the full product document
type ProductResponse struct {
	ID          uuid.UUID         `json:"id"`
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	CategoryID  *uuid.UUID        `json:"category_id,omitempty"`
	BasePrice   decimal.Decimal   `json:"base_price"`
	Currency    string            `json:"currency"`
	Status      string            `json:"status"`
	Images      []catalog.Image   `json:"images"`
	Attributes  map[string]string `json:"attributes"`
	Variants    []VariantResponse `json:"variants"`
	Sizes       []string          `json:"sizes"`
	Colors      []string          `json:"colors"`
	PriceMin    decimal.Decimal   `json:"price_min"`
	PriceMax    decimal.Decimal   `json:"price_max"`
	TotalStock  int               `json:"total_stock"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Version     int               `json:"version"`
}

// ProductListItem is the compact card shown in listings
type ProductListItem struct {
	ID        uuid.UUID       `json:"id"`
	Slug      string          `json:"slug"`
	Name      string          `json:"name"`
	Status    string          `json:"status"`
	Thumbnail string          `json:"thumbnail,omitempty"`
	PriceMin  decimal.Decimal `json:"price_min"`
	PriceMax  decimal.Decimal `json:"price_max"`
	Currency  string          `json:"currency"`
	Sizes     []string        `json:"sizes"`
	Colors    []string        `json:"colors"`
	InStock   bool            `json:"in_stock"`
	CreatedAt time.Time       `json:"created_at"`
}

// ProductList is one page of product cards
type ProductList struct {
	Items    []ProductListItem `json:"items"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name        string     `json:"name" binding:"required,min=1,max=100"`
	Slug        string     `json:"slug" binding:"omitempty,slug"`
	Description string     `json:"description" binding:"max=1000"`
	ParentID    *uuid.UUID `json:"parent_id"`
	SortOrder   int        `json:"sort_order"`
}

// UpdateCategoryRequest replaces a category's editable fields
type UpdateCategoryRequest struct {
	Name        string     `json:"name" binding:"required,min=1,max=100"`
	Description string     `json:"description" binding:"max=1000"`
	ParentID    *uuid.UUID `json:"parent_id"`
	SortOrder   int        `json:"sort_order"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID          uuid.UUID  `json:"id"`
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	SortOrder   int        `json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ToProductResponse converts a domain product to its response
func ToProductResponse(p *catalog.Product) ProductResponse {
	lo, hi := p.PriceRange()
	variants := make([]VariantResponse, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = VariantResponse{
			SKU:        v.SKU,
			Size:       v.Size,
			Color:      v.Color,
			PriceDelta: v.PriceDelta,
			Price:      p.BasePrice.Add(v.PriceDelta).Round(2),
			Stock:      v.Stock,
			InStock:    v.Stock > 0,
		}
	}
	images := p.Images
	if images == nil {
		images = []catalog.Image{}
	}
	attrs := p.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	return ProductResponse{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		BasePrice:   p.BasePrice,
		Currency:    p.Currency,
		Status:      string(p.Status),
		Images:      images,
		Attributes:  attrs,
		Variants:    variants,
		Sizes:       p.AvailableSizes(),
		Colors:      p.AvailableColors(),
		PriceMin:    lo,
		PriceMax:    hi,
		TotalStock:  p.TotalStock(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Version:     p.Version,
	}
}

// ToProductListItem converts a domain product to a listing card
func ToProductListItem(p *catalog.Product) ProductListItem {
	lo, hi := p.PriceRange()
	item := ProductListItem{
		ID:        p.ID,
		Slug:      p.Slug,
		Name:      p.Name,
		Status:    string(p.Status),
		PriceMin:  lo,
		PriceMax:  hi,
		Currency:  p.Currency,
		Sizes:     p.AvailableSizes(),
		Colors:    p.AvailableColors(),
		InStock:   p.TotalStock() > 0,
		CreatedAt: p.CreatedAt,
	}
	if len(p.Images) > 0 {
		item.Thumbnail = p.Images[0].URL
	}
	return item
}

// ToCategoryResponse converts a domain category to its response
func ToCategoryResponse(c *catalog.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Slug:        c.Slug,
		Name:        c.Name,
		Description: c.Description,
		ParentID:    c.ParentID,
		SortOrder:   c.SortOrder,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
