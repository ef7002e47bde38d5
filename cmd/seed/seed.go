package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
)

var (
	seedSizes  = []string{"S", "M", "L", "XL"}
	seedColors = []string{"Black", "White", "Navy", "Olive", "Sand"}
)

// Options controls how much demo data is generated
type Options struct {
	Categories       int
	ProductsPerCat   int
	MaxVariants      int
	MaxStock         int
	PublishRatio     float64
	MinPrice         float64
	MaxPrice         float64
	AdminEmail       string
	AdminPassword    string
	CustomerCount    int
	CustomerPassword string
}

// Summary counts what a run created
type Summary struct {
	Categories int
	Products   int
	Variants   int
	Users      int
}

type seeder struct {
	faker      *gofakeit.Faker
	title      cases.Caser
	categories catalog.CategoryRepository
	products   catalog.ProductRepository
	users      identity.UserRepository
	logger     *zap.Logger
}

func newSeeder(faker *gofakeit.Faker, categories catalog.CategoryRepository, products catalog.ProductRepository, users identity.UserRepository, logger *zap.Logger) *seeder {
	return &seeder{
		faker:      faker,
		title:      cases.Title(language.English),
		categories: categories,
		products:   products,
		users:      users,
		logger:     logger,
	}
}

// Run inserts categories, products and accounts. Existing slugs and emails
// are skipped so the seeder can be re-run against the same database.
func (s *seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	sum := &Summary{}

	if opts.AdminEmail != "" {
		created, err := s.ensureUser(ctx, opts.AdminEmail, opts.AdminPassword, "Store Admin", identity.RoleAdmin)
		if err != nil {
			return sum, fmt.Errorf("admin user: %w", err)
		}
		if created {
			sum.Users++
		}
	}
	for i := 0; i < opts.CustomerCount; i++ {
		created, err := s.ensureUser(ctx, s.faker.Email(), opts.CustomerPassword, s.faker.Name(), identity.RoleCustomer)
		if err != nil {
			return sum, fmt.Errorf("customer user: %w", err)
		}
		if created {
			sum.Users++
		}
	}

	for i := 0; i < opts.Categories; i++ {
		cat, err := s.ensureCategory(ctx, s.title.String(s.faker.ProductCategory()))
		if err != nil {
			return sum, fmt.Errorf("category: %w", err)
		}
		if cat == nil {
			continue
		}
		sum.Categories++

		for j := 0; j < opts.ProductsPerCat; j++ {
			p, err := s.buildProduct(ctx, cat, opts)
			if err != nil {
				return sum, fmt.Errorf("product: %w", err)
			}
			if p == nil {
				continue
			}
			if err := s.products.Save(ctx, p); err != nil {
				return sum, fmt.Errorf("save product %s: %w", p.Slug, err)
			}
			sum.Products++
			sum.Variants += len(p.Variants)
		}
	}
	return sum, nil
}

func (s *seeder) ensureUser(ctx context.Context, email, password, name string, role identity.Role) (bool, error) {
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if exists {
		s.logger.Debug("User exists, skipping", zap.String("email", email))
		return false, nil
	}
	u, err := identity.NewUser(email, password, name)
	if err != nil {
		return false, err
	}
	if role != identity.RoleCustomer {
		if err := u.SetRole(role); err != nil {
			return false, err
		}
	}
	u.ClearDomainEvents()
	if err := s.users.Save(ctx, u); err != nil {
		return false, err
	}
	s.logger.Info("User created", zap.String("email", email), zap.String("role", string(role)))
	return true, nil
}

// ensureCategory returns nil when a category with the same slug exists
func (s *seeder) ensureCategory(ctx context.Context, name string) (*catalog.Category, error) {
	cat, err := catalog.NewCategory(name, "")
	if err != nil {
		return nil, err
	}
	exists, err := s.categories.ExistsBySlug(ctx, cat.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}
	if err := s.categories.Save(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// buildProduct returns nil when the generated slug is already taken
func (s *seeder) buildProduct(ctx context.Context, cat *catalog.Category, opts Options) (*catalog.Product, error) {
	price := decimal.NewFromFloat(s.faker.Price(opts.MinPrice, opts.MaxPrice)).Round(2)
	p, err := catalog.NewProduct(s.title.String(s.faker.ProductName()), "", price)
	if err != nil {
		return nil, err
	}
	exists, err := s.products.ExistsBySlug(ctx, p.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	catID := cat.ID
	if err := p.Update(p.Name, s.faker.ProductDescription(), &catID); err != nil {
		return nil, err
	}
	p.SetAttributes(map[string]string{
		"material": s.faker.ProductMaterial(),
		"feature":  s.faker.ProductFeature(),
	})

	n := min(s.faker.IntRange(1, max(1, opts.MaxVariants)), len(seedSizes)*len(seedColors))
	used := make(map[string]bool, n)
	for len(used) < n {
		size := seedSizes[s.faker.IntN(len(seedSizes))]
		color := seedColors[s.faker.IntN(len(seedColors))]
		sku := skuFor(p.Slug, size, color)
		if used[sku] {
			continue
		}
		used[sku] = true
		v, err := catalog.NewVariant(sku, size, color, decimal.Zero, s.faker.IntRange(0, max(1, opts.MaxStock)))
		if err != nil {
			return nil, err
		}
		if err := p.AddVariant(v); err != nil {
			return nil, err
		}
	}

	if s.faker.Float64() < opts.PublishRatio {
		if err := p.Publish(); err != nil {
			return nil, err
		}
	}
	p.ClearDomainEvents()
	return p, nil
}

// skuFor builds SKUs like WOOL-SCARF-M-NAV
func skuFor(slug, size, color string) string {
	base := strings.ToUpper(slug)
	if len(base) > 40 {
		base = strings.TrimSuffix(base[:40], "-")
	}
	return fmt.Sprintf("%s-%s-%s", base, size, strings.ToUpper(color[:3]))
}
