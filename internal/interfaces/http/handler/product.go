package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
)

// ProductAdmin is the admin write side of the catalog
type ProductAdmin interface {
	Create(ctx context.Context, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	List(ctx context.Context, q catalogapp.AdminProductQuery) (*catalogapp.ProductList, error)
	Update(ctx context.Context, id uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.ProductResponse, error)
	Publish(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	Archive(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	Restore(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddVariant(ctx context.Context, id uuid.UUID, req catalogapp.VariantRequest) (*catalogapp.ProductResponse, error)
	UpdateVariant(ctx context.Context, id uuid.UUID, sku string, req catalogapp.UpdateVariantRequest) (*catalogapp.ProductResponse, error)
	RemoveVariant(ctx context.Context, id uuid.UUID, sku string) (*catalogapp.ProductResponse, error)
	AdjustStock(ctx context.Context, id uuid.UUID, sku string, req catalogapp.AdjustStockRequest) (*catalogapp.ProductResponse, error)
	RequestImageUpload(ctx context.Context, id uuid.UUID, req catalogapp.ImageUploadRequest) (*catalogapp.UploadTarget, error)
	AttachImage(ctx context.Context, id uuid.UUID, req catalogapp.AttachImageRequest) (*catalogapp.ProductResponse, error)
	DetachImage(ctx context.Context, id uuid.UUID, key string) (*catalogapp.ProductResponse, error)
}

// ProductHandler handles admin product endpoints
type ProductHandler struct {
	BaseHandler
	products ProductAdmin
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products ProductAdmin) *ProductHandler {
	return &ProductHandler{products: products}
}

// productAction runs a use case that takes only the product ID
func (h *ProductHandler) productAction(c *gin.Context, fn func(context.Context, uuid.UUID) (*catalogapp.ProductResponse, error)) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	product, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, product)
}

// Create godoc
// @Summary      Create a product
// @Description  Creates a draft product with optional variants
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.CreateProductRequest true "Product"
// @Success      201 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalogapp.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, product)
}

// List godoc
// @Summary      List products
// @Tags         admin-products
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Search"
// @Param        status query string false "Status" Enums(draft, active, archived)
// @Param        category_id query string false "Category ID" format(uuid)
// @Param        order_by query string false "Sort field" Enums(name, price, created_at, updated_at, stock)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]catalogapp.ProductListItem]
// @Security     BearerAuth
// @Router       /admin/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var q catalogapp.AdminProductQuery
	if !h.bindQuery(c, &q) {
		return
	}
	list, err := h.products.List(c.Request.Context(), q)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, list.Items, list.Total, list.Page, list.PageSize)
}

// Get godoc
// @Summary      Get a product
// @Tags         admin-products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	h.productAction(c, h.products.GetByID)
}

// Update godoc
// @Summary      Update a product
// @Description  Partial update. Send version to reject stale writes with 409.
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.UpdateProductRequest true "Fields to change"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.products.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, product)
}

// Publish godoc
// @Summary      Publish a product
// @Tags         admin-products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{id}/publish [post]
func (h *ProductHandler) Publish(c *gin.Context) {
	h.productAction(c, h.products.Publish)
}

// Archive godoc
// @Summary      Archive a product
// @Tags         admin-products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /admin/products/{id}/archive [post]
func (h *ProductHandler) Archive(c *gin.Context) {
	h.productAction(c, h.products.Archive)
}

// Restore godoc
// @Summary      Restore an archived product to draft
// @Tags         admin-products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /admin/products/{id}/restore [post]
func (h *ProductHandler) Restore(c *gin.Context) {
	h.productAction(c, h.products.Restore)
}

// Delete godoc
// @Summary      Delete a product
// @Tags         admin-products
// @Param        id path string true "Product ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// AddVariant godoc
// @Summary      Add a variant
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.VariantRequest true "Variant"
// @Success      201 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{id}/variants [post]
func (h *ProductHandler) AddVariant(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.VariantRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.products.AddVariant(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, product)
}

// UpdateVariant godoc
// @Summary      Update a variant
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        sku path string true "Variant SKU"
// @Param        request body catalogapp.UpdateVariantRequest true "Variant fields"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /admin/products/{id}/variants/{sku} [put]
func (h *ProductHandler) UpdateVariant(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateVariantRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.products.UpdateVariant(c.Request.Context(), id, c.Param("sku"), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, product)
}

// RemoveVariant godoc
// @Summary      Remove a variant
// @Tags         admin-products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        sku path string true "Variant SKU"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /admin/products/{id}/variants/{sku} [delete]
func (h *ProductHandler) RemoveVariant(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	product, err := h.products.RemoveVariant(c.Request.Context(), id, c.Param("sku"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, product)
}

// AdjustStock godoc
// @Summary      Adjust variant stock
// @Description  Adds delta units to the variant; a negative delta removes stock
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        sku path string true "Variant SKU"
// @Param        request body catalogapp.AdjustStockRequest true "Stock change"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{id}/variants/{sku}/stock [post]
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.AdjustStockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.products.AdjustStock(c.Request.Context(), id, c.Param("sku"), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, product)
}

// RequestImageUpload godoc
// @Summary      Get a presigned image upload URL
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.ImageUploadRequest true "Upload details"
// @Success      200 {object} APIResponse[catalogapp.UploadTarget]
// @Failure      413 {object} ErrorResponse
// @Failure      415 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{id}/images/upload-url [post]
func (h *ProductHandler) RequestImageUpload(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.ImageUploadRequest
	if !h.bindJSON(c, &req) {
		return
	}
	target, err := h.products.RequestImageUpload(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, target)
}

// AttachImage godoc
// @Summary      Attach an uploaded image
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.AttachImageRequest true "Uploaded object"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /admin/products/{id}/images [post]
func (h *ProductHandler) AttachImage(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.AttachImageRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.products.AttachImage(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, product)
}

// DetachImage godoc
// @Summary      Remove an image from the gallery
// @Tags         admin-products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        key query string true "Object key"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /admin/products/{id}/images [delete]
func (h *ProductHandler) DetachImage(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	key := c.Query("key")
	if key == "" {
		h.BadRequest(c, "key is required")
		return
	}
	product, err := h.products.DetachImage(c.Request.Context(), id, key)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, product)
}
