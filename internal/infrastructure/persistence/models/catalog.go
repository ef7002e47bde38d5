package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/catalog"
)

// CategoryModel is the persistence model for the Category aggregate
type CategoryModel struct {
	AggregateModel
	Slug        string     `gorm:"type:varchar(120);not null;uniqueIndex"`
	Name        string     `gorm:"type:varchar(100);not null"`
	Description string     `gorm:"type:text"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"`
	SortOrder   int        `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the model to a domain Category
func (m *CategoryModel) ToDomain() *catalog.Category {
	return &catalog.Category{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Slug:              m.Slug,
		Name:              m.Name,
		Description:       m.Description,
		ParentID:          m.ParentID,
		SortOrder:         m.SortOrder,
	}
}

// FromDomain populates the model from a domain Category
func (m *CategoryModel) FromDomain(c *catalog.Category) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Slug = c.Slug
	m.Name = c.Name
	m.Description = c.Description
	m.ParentID = c.ParentID
	m.SortOrder = c.SortOrder
}

// CategoryModelFromDomain creates a model from a domain Category
func CategoryModelFromDomain(c *catalog.Category) *CategoryModel {
	m := &CategoryModel{}
	m.FromDomain(c)
	return m
}

// ProductModel is the persistence model for the Product aggregate. Sizes and
// Colors are comma-wrapped lists (",S,M,") derived from the variants so that
// option filters stay simple LIKE predicates.
type ProductModel struct {
	AggregateModel
	Slug           string                `gorm:"type:varchar(120);not null;uniqueIndex"`
	Name           string                `gorm:"type:varchar(200);not null;index"`
	Description    string                `gorm:"type:text"`
	CategoryID     *uuid.UUID            `gorm:"type:uuid;index"`
	BasePrice      decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	Currency       string                `gorm:"type:varchar(3);not null;default:'USD'"`
	Status         catalog.ProductStatus `gorm:"type:varchar(20);not null;index"`
	ImagesJSON     string                `gorm:"column:images;type:jsonb;not null;default:'[]'"`
	AttributesJSON string                `gorm:"column:attributes;type:jsonb;not null;default:'{}'"`
	VariantsJSON   string                `gorm:"column:variants;type:jsonb;not null;default:'[]'"`
	Sizes          string                `gorm:"type:text;not null;default:''"`
	Colors         string                `gorm:"type:text;not null;default:''"`
	TotalStock     int                   `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Slug:              m.Slug,
		Name:              m.Name,
		Description:       m.Description,
		CategoryID:        m.CategoryID,
		BasePrice:         m.BasePrice,
		Currency:          m.Currency,
		Status:            m.Status,
		Images:            make([]catalog.Image, 0),
		Attributes:        make(map[string]string),
		Variants:          make([]catalog.Variant, 0),
	}
	decodeJSON(m.ImagesJSON, &p.Images, "products", m.ID)
	decodeJSON(m.AttributesJSON, &p.Attributes, "products", m.ID)
	decodeJSON(m.VariantsJSON, &p.Variants, "products", m.ID)
	return p
}

// FromDomain populates the model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Slug = p.Slug
	m.Name = p.Name
	m.Description = p.Description
	m.CategoryID = p.CategoryID
	m.BasePrice = p.BasePrice
	m.Currency = p.Currency
	m.Status = p.Status
	m.ImagesJSON = encodeJSON(p.Images, "[]")
	m.AttributesJSON = encodeJSON(p.Attributes, "{}")
	m.VariantsJSON = encodeJSON(p.Variants, "[]")
	m.Sizes = OptionList(p.AvailableSizes())
	m.Colors = OptionList(p.AvailableColors())
	m.TotalStock = p.TotalStock()
}

// ProductModelFromDomain creates a model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// OptionList encodes option values as a lowercase comma-wrapped list
func OptionList(values []string) string {
	if len(values) == 0 {
		return ""
	}
	lowered := make([]string, len(values))
	for i, v := range values {
		lowered[i] = strings.ToLower(v)
	}
	return "," + strings.Join(lowered, ",") + ","
}

// OptionPattern returns the LIKE pattern matching one value of an OptionList
func OptionPattern(value string) string {
	return "%," + strings.ToLower(strings.TrimSpace(value)) + ",%"
}
