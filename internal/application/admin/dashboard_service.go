// Package admin implements the admin panel use cases that span several
// aggregates: the dashboard summary and user management.
package admin

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// recentOrderCount is how many of the latest orders the dashboard shows
const recentOrderCount = 5

// revenueStatuses are the statuses whose totals count as revenue
var revenueStatuses = map[order.Status]bool{
	order.StatusPaid:      true,
	order.StatusShipped:   true,
	order.StatusDelivered: true,
}

// StatusTotal is the number and value of orders in one status
type StatusTotal struct {
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// Dashboard is the admin landing page summary
type Dashboard struct {
	ProductsByStatus map[string]int64         `json:"products_by_status"`
	OrdersByStatus   map[string]StatusTotal   `json:"orders_by_status"`
	Revenue          decimal.Decimal          `json:"revenue"`
	Currency         string                   `json:"currency"`
	PendingOrders    int64                    `json:"pending_orders"`
	RecentOrders     []orderapp.OrderResponse `json:"recent_orders"`
	GeneratedAt      time.Time                `json:"generated_at"`
}

// DashboardService builds the dashboard summary
type DashboardService struct {
	productRepo catalog.ProductRepository
	orderRepo   order.Repository
	currency    string
	logger      *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(productRepo catalog.ProductRepository, orderRepo order.Repository, currency string, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		currency:    currency,
		logger:      logger,
	}
}

// Summary returns product and order counts by status and the revenue of
// paid, shipped and delivered orders
func (s *DashboardService) Summary(ctx context.Context) (*Dashboard, error) {
	productCounts, err := s.productRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	summaries, err := s.orderRepo.SummarizeByStatus(ctx)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		ProductsByStatus: make(map[string]int64),
		OrdersByStatus:   make(map[string]StatusTotal),
		Revenue:          decimal.Zero,
		Currency:         s.currency,
		GeneratedAt:      time.Now(),
	}
	for _, st := range []catalog.ProductStatus{catalog.ProductStatusDraft, catalog.ProductStatusActive, catalog.ProductStatusArchived} {
		d.ProductsByStatus[string(st)] = productCounts[st]
	}
	for _, st := range order.AllStatuses {
		d.OrdersByStatus[string(st)] = StatusTotal{Total: decimal.Zero}
	}
	for _, sum := range summaries {
		d.OrdersByStatus[string(sum.Status)] = StatusTotal{Count: sum.Count, Total: sum.Total}
		if revenueStatuses[sum.Status] {
			d.Revenue = d.Revenue.Add(sum.Total)
		}
		if sum.Status == order.StatusPending {
			d.PendingOrders = sum.Count
		}
	}
	d.Revenue = d.Revenue.Round(2)

	recent, _, err := s.orderRepo.FindAll(ctx, order.Filter{
		Filter: shared.Filter{Page: 1, PageSize: recentOrderCount, OrderBy: "created_at", OrderDir: "desc"},
	})
	if err != nil {
		return nil, err
	}
	d.RecentOrders = make([]orderapp.OrderResponse, len(recent))
	for i := range recent {
		d.RecentOrders[i] = orderapp.ToOrderResponse(&recent[i])
	}
	return d, nil
}
