package catalog

import (
	"context"
	"time"
)

// UploadTarget describes a presigned PUT the browser performs directly
// against object storage
type UploadTarget struct {
	Key       string            `json:"key"`
	UploadURL string            `json:"upload_url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	PublicURL string            `json:"public_url"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// ImageStorage is the object store holding product images
type ImageStorage interface {
	PresignUpload(ctx context.Context, key, contentType string) (*UploadTarget, error)
	PublicURL(key string) string
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Cache is the TTL read cache in front of storefront catalog queries
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Cache key layout shared with the invalidation handler
const (
	CacheKeyPrefix        = "catalog:"
	productCacheKeyPrefix = CacheKeyPrefix + "product:"
	listCacheKeyPrefix    = CacheKeyPrefix + "list:"
	categoriesCacheKey    = CacheKeyPrefix + "categories"
)

// ProductCacheKey returns the cache key of a storefront product detail
func ProductCacheKey(slug string) string {
	return productCacheKeyPrefix + slug
}

// ProductCacheKeyPrefix is the prefix of every cached product detail
func ProductCacheKeyPrefix() string {
	return productCacheKeyPrefix
}

// ListCacheKeyPrefix is the prefix of every cached storefront listing
func ListCacheKeyPrefix() string {
	return listCacheKeyPrefix
}

// CategoriesCacheKey is the key of the cached category tree
func CategoriesCacheKey() string {
	return categoriesCacheKey
}
