package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// CategoryService handles category administration and the public category list
type CategoryService struct {
	categoryRepo catalog.CategoryRepository
	productRepo  catalog.ProductRepository
	cache        Cache
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewCategoryService creates a new CategoryService. cache may be nil.
func NewCategoryService(categoryRepo catalog.CategoryRepository, productRepo catalog.ProductRepository, cache Cache, cacheTTL time.Duration, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cache:        cache,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// Create creates a category
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	category, err := catalog.NewCategory(req.Name, strings.ToLower(req.Slug))
	if err != nil {
		return nil, err
	}
	exists, err := s.categoryRepo.ExistsBySlug(ctx, category.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Category with this slug already exists")
	}
	if err := s.setParent(ctx, category, req.ParentID); err != nil {
		return nil, err
	}
	if err := category.Update(category.Name, req.Description, req.SortOrder); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Update replaces a category's editable fields
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := category.Update(req.Name, req.Description, req.SortOrder); err != nil {
		return nil, err
	}
	if err := s.setParent(ctx, category, req.ParentID); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Delete removes a category nobody references
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.categoryRepo.FindByID(ctx, id); err != nil {
		return err
	}
	count, err := s.productRepo.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.NewDomainError("CATEGORY_IN_USE", "Category still has products")
	}
	all, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	for _, c := range all {
		if c.ParentID != nil && *c.ParentID == id {
			return shared.NewDomainError("CATEGORY_IN_USE", "Category still has child categories")
		}
	}
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// GetByID returns a category
func (s *CategoryService) GetByID(ctx context.Context, id uuid.UUID) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// List returns every category ordered by sort order, then name
func (s *CategoryService) List(ctx context.Context) ([]CategoryResponse, error) {
	var cached []CategoryResponse
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, CategoriesCacheKey(), &cached); err == nil && hit {
			return cached, nil
		}
	}

	categories, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(categories, func(i, j int) bool {
		if categories[i].SortOrder != categories[j].SortOrder {
			return categories[i].SortOrder < categories[j].SortOrder
		}
		return categories[i].Name < categories[j].Name
	})
	out := make([]CategoryResponse, len(categories))
	for i := range categories {
		out[i] = ToCategoryResponse(&categories[i])
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, CategoriesCacheKey(), out, s.cacheTTL); err != nil {
			s.logger.Warn("Catalog cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

// setParent validates the parent exists and would not create a cycle
func (s *CategoryService) setParent(ctx context.Context, category *catalog.Category, parentID *uuid.UUID) error {
	if parentID == nil {
		return category.SetParent(nil)
	}
	seen := map[uuid.UUID]bool{category.ID: true}
	next := parentID
	for next != nil {
		if seen[*next] {
			return shared.NewDomainError("INVALID_PARENT", "Category hierarchy cannot contain cycles")
		}
		seen[*next] = true
		parent, err := s.categoryRepo.FindByID(ctx, *next)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_PARENT", "Parent category not found")
		}
		if err != nil {
			return err
		}
		next = parent.ParentID
	}
	return category.SetParent(parentID)
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, CategoriesCacheKey()); err != nil {
		s.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}
