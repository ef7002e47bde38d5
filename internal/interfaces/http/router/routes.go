package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers mounted under the API prefix
type Handlers struct {
	Auth     *handler.AuthHandler
	Account  *handler.AccountHandler
	Catalog  *handler.CatalogHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Orders   *handler.OrderHandler
	Products *handler.ProductHandler
	Category *handler.CategoryHandler
	Admin    *handler.AdminHandler
}

// Guards are the middleware that protect API routes
type Guards struct {
	Authenticator middleware.Authenticator
	// AuthLimiter throttles login, registration and refresh per client IP
	AuthLimiter *middleware.RateLimiter
	CartOwner   middleware.CartOwnerConfig
	Logger      *zap.Logger
}

// APIGroups builds every domain route group of the storefront API
func APIGroups(h Handlers, g Guards) []*DomainGroup {
	if g.Logger == nil {
		g.Logger = zap.NewNop()
	}
	requireAuth := middleware.JWTAuth(g.Authenticator, g.Logger)
	optionalAuth := middleware.OptionalJWTAuth(g.Authenticator, g.Logger)
	perm := func(p string) gin.HandlerFunc {
		return middleware.RequireAnyPermissionWithConfig(middleware.PermissionConfig{Logger: g.Logger}, p)
	}

	authRoutes := NewDomainGroup("auth", "/auth")
	if g.AuthLimiter != nil {
		authRoutes.Use(middleware.RateLimit(g.AuthLimiter))
	}
	authRoutes.POST("/register", h.Auth.Register)
	authRoutes.POST("/login", h.Auth.Login)
	authRoutes.POST("/refresh", h.Auth.Refresh)
	authRoutes.POST("/logout", requireAuth, h.Auth.Logout)

	accountRoutes := NewDomainGroup("account", "/account").Use(requireAuth)
	accountRoutes.GET("/me", h.Account.GetProfile)
	accountRoutes.PUT("/me", h.Account.UpdateProfile)
	accountRoutes.PUT("/password", h.Account.ChangePassword)
	accountRoutes.GET("/addresses", h.Account.ListAddresses)
	accountRoutes.POST("/addresses", h.Account.AddAddress)
	accountRoutes.PUT("/addresses/:id", h.Account.UpdateAddress)
	accountRoutes.DELETE("/addresses/:id", h.Account.RemoveAddress)
	accountRoutes.POST("/addresses/:id/default", h.Account.SetDefaultAddress)

	catalogRoutes := NewDomainGroup("catalog", "/catalog")
	catalogRoutes.GET("/categories", h.Catalog.ListCategories)
	catalogRoutes.GET("/products", h.Catalog.ListProducts)
	catalogRoutes.GET("/products/:slug", h.Catalog.GetProduct)

	// Only adding an item may start a new guest cart
	issuing := g.CartOwner
	issuing.IssueToken = true
	existing := g.CartOwner
	existing.IssueToken = false

	cartRoutes := NewDomainGroup("cart", "/cart").Use(optionalAuth)
	cartRoutes.GET("", middleware.CartOwner(existing), h.Cart.Get)
	cartRoutes.DELETE("", middleware.CartOwner(existing), h.Cart.Clear)
	cartRoutes.POST("/items", middleware.CartOwner(issuing), h.Cart.AddItem)
	cartRoutes.PUT("/items/:key", middleware.CartOwner(existing), h.Cart.UpdateItem)
	cartRoutes.DELETE("/items/:key", middleware.CartOwner(existing), h.Cart.RemoveItem)

	checkoutRoutes := NewDomainGroup("checkout", "/checkout").Use(requireAuth, perm(identity.PermCartManage))
	checkoutRoutes.POST("", h.Checkout.Checkout)

	orderRoutes := NewDomainGroup("orders", "/orders").Use(requireAuth, perm(identity.PermOrderOwn))
	orderRoutes.GET("", h.Orders.List)
	orderRoutes.GET("/:id", h.Orders.Get)
	orderRoutes.POST("/:id/cancel", h.Orders.Cancel)

	adminRoutes := NewDomainGroup("admin", "/admin").Use(requireAuth)
	adminRoutes.GET("/dashboard", perm(identity.PermDashboardView), h.Admin.Dashboard)

	products := adminRoutes.Group("products", "/products").Use(perm(identity.PermCatalogWrite))
	products.GET("", h.Products.List)
	products.POST("", h.Products.Create)
	products.GET("/:id", h.Products.Get)
	products.PUT("/:id", h.Products.Update)
	products.DELETE("/:id", h.Products.Delete)
	products.POST("/:id/publish", h.Products.Publish)
	products.POST("/:id/archive", h.Products.Archive)
	products.POST("/:id/restore", h.Products.Restore)
	products.POST("/:id/variants", h.Products.AddVariant)
	products.PUT("/:id/variants/:sku", h.Products.UpdateVariant)
	products.DELETE("/:id/variants/:sku", h.Products.RemoveVariant)
	products.POST("/:id/variants/:sku/stock", h.Products.AdjustStock)
	products.POST("/:id/images/upload-url", h.Products.RequestImageUpload)
	products.POST("/:id/images", h.Products.AttachImage)
	products.DELETE("/:id/images", h.Products.DetachImage)

	categories := adminRoutes.Group("categories", "/categories").Use(perm(identity.PermCatalogWrite))
	categories.GET("", h.Category.List)
	categories.POST("", h.Category.Create)
	categories.GET("/:id", h.Category.Get)
	categories.PUT("/:id", h.Category.Update)
	categories.DELETE("/:id", h.Category.Delete)

	orders := adminRoutes.Group("orders", "/orders").Use(perm(identity.PermOrderManage))
	orders.GET("", h.Admin.ListOrders)
	orders.GET("/:id", h.Admin.GetOrder)
	orders.POST("/:id/pay", h.Admin.MarkOrderPaid)
	orders.POST("/:id/ship", h.Admin.ShipOrder)
	orders.POST("/:id/deliver", h.Admin.DeliverOrder)
	orders.POST("/:id/cancel", h.Admin.CancelOrder)

	users := adminRoutes.Group("users", "/users").Use(perm(identity.PermUserManage))
	users.GET("", h.Admin.ListUsers)
	users.GET("/:id", h.Admin.GetUser)
	users.PUT("/:id/role", h.Admin.SetUserRole)
	users.POST("/:id/disable", h.Admin.DisableUser)
	users.POST("/:id/enable", h.Admin.EnableUser)
	users.POST("/:id/unlock", h.Admin.UnlockUser)

	return []*DomainGroup{authRoutes, accountRoutes, catalogRoutes, cartRoutes, checkoutRoutes, orderRoutes, adminRoutes}
}
