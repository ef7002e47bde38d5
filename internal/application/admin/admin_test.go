package admin

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
)

type stubProducts struct {
	catalog.ProductRepository
	counts map[catalog.ProductStatus]int64
}

func (s *stubProducts) CountByStatus(context.Context) (map[catalog.ProductStatus]int64, error) {
	return s.counts, nil
}

type stubOrders struct {
	order.Repository
	summaries []order.StatusSummary
	recent    []order.Order
	filter    order.Filter
}

func (s *stubOrders) SummarizeByStatus(context.Context) ([]order.StatusSummary, error) {
	return s.summaries, nil
}

func (s *stubOrders) FindAll(_ context.Context, f order.Filter) ([]order.Order, int64, error) {
	s.filter = f
	return s.recent, int64(len(s.recent)), nil
}

type stubUsers struct {
	identity.UserRepository
	users map[uuid.UUID]*identity.User
	saved int
}

func (s *stubUsers) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubUsers) SaveWithLock(context.Context, *identity.User) error {
	s.saved++
	return nil
}

func TestDashboardService_Summary(t *testing.T) {
	products := &stubProducts{counts: map[catalog.ProductStatus]int64{catalog.ProductStatusActive: 12, catalog.ProductStatusDraft: 3}}
	orders := &stubOrders{summaries: []order.StatusSummary{
		{Status: order.StatusPending, Count: 4, Total: decimal.RequireFromString("80.00")},
		{Status: order.StatusPaid, Count: 2, Total: decimal.RequireFromString("100.10")},
		{Status: order.StatusShipped, Count: 1, Total: decimal.RequireFromString("20.00")},
		{Status: order.StatusDelivered, Count: 5, Total: decimal.RequireFromString("300.00")},
		{Status: order.StatusCancelled, Count: 1, Total: decimal.RequireFromString("999.00")},
	}}
	svc := NewDashboardService(products, orders, "USD", nil)

	d, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, d.Revenue.Equal(decimal.RequireFromString("420.10")), d.Revenue.String())
	assert.Equal(t, int64(4), d.PendingOrders)
	assert.Equal(t, int64(12), d.ProductsByStatus["active"])
	assert.Equal(t, int64(0), d.ProductsByStatus["archived"])
	assert.Equal(t, int64(1), d.OrdersByStatus["cancelled"].Count)
	assert.Len(t, d.OrdersByStatus, len(order.AllStatuses))
	assert.Equal(t, 5, orders.filter.PageSize)
	assert.Empty(t, d.RecentOrders)
}

func TestUserService_AdminActions(t *testing.T) {
	ctx := context.Background()
	user, err := identity.NewUser("member@example.com", "s3cretpass", "")
	require.NoError(t, err)
	users := &stubUsers{users: map[uuid.UUID]*identity.User{user.ID: user}}
	blacklist := auth.NewInMemoryTokenBlacklist()
	svc := NewUserService(users, blacklist, nil, time.Hour, nil)
	adminID := uuid.New()

	resp, err := svc.SetRole(ctx, adminID, user.ID, SetRoleRequest{Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin", resp.Role)
	assert.Contains(t, resp.Permissions, identity.PermUserManage)

	resp, err = svc.Disable(ctx, adminID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "disabled", resp.Status)
	revoked, err := blacklist.IsUserRevoked(ctx, user.ID.String(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, revoked)

	resp, err = svc.Enable(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", resp.Status)

	_, err = svc.Unlock(ctx, user.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.Disable(ctx, adminID, adminID)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "CANNOT_MODIFY_SELF", de.Code)
	assert.Equal(t, 3, users.saved)
}
