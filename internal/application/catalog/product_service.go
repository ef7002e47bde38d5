package catalog

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// AllowedImageTypes maps accepted upload content types to file extensions
var AllowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/avif": "avif",
}

// DefaultMaxImageSize is used when no limit is configured
const DefaultMaxImageSize int64 = 10 << 20

// ProductService handles catalog administration and storefront reads
type ProductService struct {
	productRepo  catalog.ProductRepository
	categoryRepo catalog.CategoryRepository
	images       ImageStorage
	events       shared.EventPublisher
	cache        Cache
	cacheTTL     time.Duration
	maxImageSize int64
	onCacheHit   func(hit bool)
	logger       *zap.Logger
}

// ProductServiceOption configures a ProductService
type ProductServiceOption func(*ProductService)

// WithCache puts storefront reads behind a TTL cache
func WithCache(cache Cache, ttl time.Duration) ProductServiceOption {
	return func(s *ProductService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithCacheObserver reports every cache lookup
func WithCacheObserver(fn func(hit bool)) ProductServiceOption {
	return func(s *ProductService) {
		s.onCacheHit = fn
	}
}

// WithMaxImageSize limits presigned uploads
func WithMaxImageSize(n int64) ProductServiceOption {
	return func(s *ProductService) {
		if n > 0 {
			s.maxImageSize = n
		}
	}
}

// WithProductLogger sets the logger
func WithProductLogger(logger *zap.Logger) ProductServiceOption {
	return func(s *ProductService) {
		s.logger = logger
	}
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	images ImageStorage,
	events shared.EventPublisher,
	opts ...ProductServiceOption,
) *ProductService {
	s := &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		images:       images,
		events:       events,
		maxImageSize: DefaultMaxImageSize,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates a draft product with optional initial variants
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	product, err := catalog.NewProduct(req.Name, strings.ToLower(req.Slug), req.BasePrice)
	if err != nil {
		return nil, err
	}

	exists, err := s.productRepo.ExistsBySlug(ctx, product.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this slug already exists")
	}

	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	if req.Description != "" || req.CategoryID != nil {
		if err := product.Update(product.Name, req.Description, req.CategoryID); err != nil {
			return nil, err
		}
	}
	if req.Currency != "" {
		if err := product.SetPrice(product.BasePrice, req.Currency); err != nil {
			return nil, err
		}
	}
	if len(req.Attributes) > 0 {
		product.SetAttributes(req.Attributes)
	}
	for _, vr := range req.Variants {
		v, err := catalog.NewVariant(vr.SKU, vr.Size, vr.Color, vr.PriceDelta, vr.Stock)
		if err != nil {
			return nil, err
		}
		if err := product.AddVariant(v); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	resp := ToProductResponse(product)
	return &resp, nil
}

// GetByID returns a product regardless of status
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// List returns products of every status for the admin panel
func (s *ProductService) List(ctx context.Context, q AdminProductQuery) (*ProductList, error) {
	filter := catalog.ProductFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.OrderBy,
			OrderDir: q.OrderDir,
			Search:   q.Search,
		}.Normalize(),
		Status:     catalog.ProductStatus(q.Status),
		CategoryID: q.CategoryID,
	}
	return s.findPage(ctx, filter)
}

// Update changes descriptive fields and price
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	return s.mutate(ctx, id, req.Version, func(p *catalog.Product) error {
		name, description, categoryID := p.Name, p.Description, p.CategoryID
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			description = *req.Description
		}
		if req.CategoryID != nil {
			if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
				return err
			}
			categoryID = req.CategoryID
		}
		if err := p.Update(name, description, categoryID); err != nil {
			return err
		}
		if req.BasePrice != nil || req.Currency != nil {
			price, currency := p.BasePrice, ""
			if req.BasePrice != nil {
				price = *req.BasePrice
			}
			if req.Currency != nil {
				currency = *req.Currency
			}
			if err := p.SetPrice(price, currency); err != nil {
				return err
			}
		}
		if req.Attributes != nil {
			p.SetAttributes(*req.Attributes)
		}
		return nil
	})
}

// Publish makes a product visible in the storefront
func (s *ProductService) Publish(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, nil, (*catalog.Product).Publish)
}

// Archive hides a product from the storefront
func (s *ProductService) Archive(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, nil, (*catalog.Product).Archive)
}

// Restore moves an archived product back to draft
func (s *ProductService) Restore(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, nil, (*catalog.Product).Restore)
}

// Delete removes a product that is not live. Its images are removed from
// storage on a best-effort basis.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if product.Status == catalog.ProductStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Archive the product before deleting it")
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	for _, img := range product.Images {
		if err := s.images.Delete(ctx, img.Key); err != nil {
			s.logger.Warn("Failed to delete product image",
				zap.String("product_id", id.String()),
				zap.String("key", img.Key),
				zap.Error(err))
		}
	}
	product.AddDomainEvent(catalog.NewProductStatusChangedEvent(product, catalog.EventTypeProductArchived))
	s.publish(ctx, product)
	return nil
}

// AddVariant adds a size/color variant
func (s *ProductService) AddVariant(ctx context.Context, id uuid.UUID, req VariantRequest) (*ProductResponse, error) {
	v, err := catalog.NewVariant(req.SKU, req.Size, req.Color, req.PriceDelta, req.Stock)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, nil, func(p *catalog.Product) error {
		if err := p.AddVariant(v); err != nil {
			return err
		}
		p.AddDomainEvent(catalog.NewProductUpdatedEvent(p))
		return nil
	})
}

// UpdateVariant changes a variant's options and price delta
func (s *ProductService) UpdateVariant(ctx context.Context, id uuid.UUID, sku string, req UpdateVariantRequest) (*ProductResponse, error) {
	return s.mutate(ctx, id, nil, func(p *catalog.Product) error {
		if err := p.UpdateVariant(sku, req.Size, req.Color, req.PriceDelta); err != nil {
			return err
		}
		p.AddDomainEvent(catalog.NewProductUpdatedEvent(p))
		return nil
	})
}

// RemoveVariant deletes a variant
func (s *ProductService) RemoveVariant(ctx context.Context, id uuid.UUID, sku string) (*ProductResponse, error) {
	return s.mutate(ctx, id, nil, func(p *catalog.Product) error {
		if err := p.RemoveVariant(sku); err != nil {
			return err
		}
		p.AddDomainEvent(catalog.NewProductUpdatedEvent(p))
		return nil
	})
}

// AdjustStock changes a variant's stock through the same row-locked path
// checkout uses, so manual corrections never race with orders
func (s *ProductService) AdjustStock(ctx context.Context, id uuid.UUID, sku string, req AdjustStockRequest) (*ProductResponse, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	err := s.productRepo.ApplyStockChanges(ctx, []catalog.StockChange{{ProductID: id, SKU: sku, Delta: req.Delta}})
	if err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stock := 0
	if v := product.FindVariantBySKU(sku); v != nil {
		stock = v.Stock
	}
	s.logger.Info("Stock adjusted",
		zap.String("product_id", id.String()),
		zap.String("sku", sku),
		zap.Int("delta", req.Delta),
		zap.Int("stock", stock),
		zap.String("reason", req.Reason))
	product.AddDomainEvent(catalog.NewStockAdjustedEvent(product, sku, req.Delta, stock))
	s.publish(ctx, product)

	resp := ToProductResponse(product)
	return &resp, nil
}

// RequestImageUpload returns a presigned PUT for a new product image. The
// object key is products/<product id>/<random>.<ext>.
func (s *ProductService) RequestImageUpload(ctx context.Context, id uuid.UUID, req ImageUploadRequest) (*UploadTarget, error) {
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	ext, ok := AllowedImageTypes[contentType]
	if !ok {
		return nil, shared.NewDomainError("UNSUPPORTED_MEDIA_TYPE", "Only JPEG, PNG, WebP and AVIF images are accepted")
	}
	if req.Size > s.maxImageSize {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", fmt.Sprintf("Image cannot exceed %d bytes", s.maxImageSize))
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(product.Images) >= catalog.MaxImages {
		return nil, shared.NewDomainError("TOO_MANY_IMAGES", "Product cannot have more than 20 images")
	}
	key := ImageKey(id, ext)
	return s.images.PresignUpload(ctx, key, contentType)
}

// AttachImage adds an uploaded object to the product gallery. The object must
// exist under the product's key prefix.
func (s *ProductService) AttachImage(ctx context.Context, id uuid.UUID, req AttachImageRequest) (*ProductResponse, error) {
	if !strings.HasPrefix(req.Key, imageKeyPrefix(id)) || path.Clean(req.Key) != req.Key {
		return nil, shared.NewDomainError("INVALID_IMAGE", "Image key does not belong to this product")
	}
	found, err := s.images.Exists(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, shared.NewDomainError("IMAGE_NOT_UPLOADED", "Image has not been uploaded yet")
	}
	return s.mutate(ctx, id, nil, func(p *catalog.Product) error {
		if err := p.AddImage(catalog.Image{Key: req.Key, URL: s.images.PublicURL(req.Key), Alt: req.Alt}); err != nil {
			return err
		}
		p.AddDomainEvent(catalog.NewProductUpdatedEvent(p))
		return nil
	})
}

// DetachImage removes an image from the gallery and from storage
func (s *ProductService) DetachImage(ctx context.Context, id uuid.UUID, key string) (*ProductResponse, error) {
	resp, err := s.mutate(ctx, id, nil, func(p *catalog.Product) error {
		if err := p.RemoveImage(key); err != nil {
			return err
		}
		p.AddDomainEvent(catalog.NewProductUpdatedEvent(p))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.images.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete product image", zap.String("key", key), zap.Error(err))
	}
	return resp, nil
}

// ImageKey builds a fresh object key for a product image
func ImageKey(productID uuid.UUID, ext string) string {
	return imageKeyPrefix(productID) + uuid.NewString() + "." + ext
}

func imageKeyPrefix(productID uuid.UUID) string {
	return "products/" + productID.String() + "/"
}

// ListStorefront returns active products for the public catalog
func (s *ProductService) ListStorefront(ctx context.Context, q StorefrontProductQuery) (*ProductList, error) {
	filter := catalog.ProductFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.SortBy,
			OrderDir: q.SortDir,
			Search:   strings.TrimSpace(q.Search),
		}.Normalize(),
		Status:   catalog.ProductStatusActive,
		Size:     q.Size,
		Color:    q.Color,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, shared.NewDomainError("INVALID_PRICE_RANGE", "min_price cannot exceed max_price")
	}

	key := listCacheKey(q, filter)
	var cached ProductList
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	if q.Category != "" {
		category, err := s.categoryRepo.FindBySlug(ctx, q.Category)
		if errors.Is(err, shared.ErrNotFound) {
			empty := &ProductList{Items: []ProductListItem{}, Page: filter.Page, PageSize: filter.PageSize}
			return empty, nil
		}
		if err != nil {
			return nil, err
		}
		filter.CategoryID = &category.ID
	}

	list, err := s.findPage(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, list)
	return list, nil
}

// GetStorefrontProduct returns an active product by slug. Draft and archived
// products are reported as not found.
func (s *ProductService) GetStorefrontProduct(ctx context.Context, slug string) (*ProductResponse, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	key := ProductCacheKey(slug)
	var cached ProductResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	product, err := s.productRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !product.IsPurchasable() {
		return nil, shared.ErrNotFound
	}
	resp := ToProductResponse(product)
	s.cacheSet(ctx, key, resp)
	return &resp, nil
}

func (s *ProductService) findPage(ctx context.Context, filter catalog.ProductFilter) (*ProductList, error) {
	products, total, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]ProductListItem, len(products))
	for i := range products {
		items[i] = ToProductListItem(&products[i])
	}
	return &ProductList{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// mutate loads a product, applies fn, saves with optimistic locking and
// publishes the resulting events
func (s *ProductService) mutate(ctx context.Context, id uuid.UUID, expectVersion *int, fn func(*catalog.Product) error) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expectVersion != nil && *expectVersion != product.Version {
		return nil, shared.ErrConcurrentModification
	}
	if err := fn(product); err != nil {
		return nil, err
	}
	if err := s.productRepo.SaveWithLock(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	resp := ToProductResponse(product)
	return &resp, nil
}

func (s *ProductService) ensureCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.categoryRepo.FindByID(ctx, *id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_CATEGORY", "Category not found")
		}
		return err
	}
	return nil
}

func (s *ProductService) publish(ctx context.Context, product *catalog.Product) {
	events := product.GetDomainEvents()
	product.ClearDomainEvents()
	if len(events) == 0 || s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish product events", zap.String("product_id", product.ID.String()), zap.Error(err))
	}
}

func (s *ProductService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
		hit = false
	}
	if s.onCacheHit != nil {
		s.onCacheHit(hit)
	}
	return hit
}

func (s *ProductService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func listCacheKey(q StorefrontProductQuery, f catalog.ProductFilter) string {
	var lo, hi string
	if f.MinPrice != nil {
		lo = f.MinPrice.String()
	}
	if f.MaxPrice != nil {
		hi = f.MaxPrice.String()
	}
	return fmt.Sprintf("%sp=%d;n=%d;q=%s;c=%s;s=%s;col=%s;lo=%s;hi=%s;o=%s;d=%s",
		listCacheKeyPrefix, f.Page, f.PageSize,
		strings.ToLower(f.Search), strings.ToLower(q.Category),
		strings.ToLower(f.Size), strings.ToLower(f.Color),
		lo, hi, strings.ToLower(f.OrderBy), strings.ToLower(f.OrderDir))
}
