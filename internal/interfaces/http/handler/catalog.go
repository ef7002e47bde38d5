package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
)

// StorefrontCatalog is the public read side of the catalog
type StorefrontCatalog interface {
	ListStorefront(ctx context.Context, q catalogapp.StorefrontProductQuery) (*catalogapp.ProductList, error)
	GetStorefrontProduct(ctx context.Context, slug string) (*catalogapp.ProductResponse, error)
}

// CategoryLister lists the category tree
type CategoryLister interface {
	List(ctx context.Context) ([]catalogapp.CategoryResponse, error)
}

// CatalogHandler serves the public catalog
type CatalogHandler struct {
	BaseHandler
	products   StorefrontCatalog
	categories CategoryLister
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(products StorefrontCatalog, categories CategoryLister) *CatalogHandler {
	return &CatalogHandler{products: products, categories: categories}
}

// ListCategories godoc
// @Summary      List categories
// @Tags         catalog
// @Produce      json
// @Success      200 {object} APIResponse[[]catalogapp.CategoryResponse]
// @Router       /catalog/categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, categories)
}

// ListProducts godoc
// @Summary      Browse products
// @Description  Lists active products with search, category, option and price filters
// @Tags         catalog
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Search in name and description"
// @Param        category query string false "Category slug"
// @Param        size query string false "Variant size"
// @Param        color query string false "Variant color"
// @Param        min_price query number false "Minimum price"
// @Param        max_price query number false "Maximum price"
// @Param        sort_by query string false "Sort field" Enums(name, price, created_at)
// @Param        sort_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]catalogapp.ProductListItem]
// @Failure      400 {object} ErrorResponse
// @Router       /catalog/products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var q catalogapp.StorefrontProductQuery
	if !h.bindQuery(c, &q) {
		return
	}
	list, err := h.products.ListStorefront(c.Request.Context(), q)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, list.Items, list.Total, list.Page, list.PageSize)
}

// GetProduct godoc
// @Summary      Get a product by slug
// @Tags         catalog
// @Produce      json
// @Param        slug path string true "Product slug"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /catalog/products/{slug} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.products.GetStorefrontProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, product)
}
