package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// ExpiredReason is recorded on orders cancelled by the pending-order reaper
const ExpiredReason = "Payment not received in time"

// Service handles order reads and status transitions for shoppers and admins
type Service struct {
	orderRepo order.Repository
	events    shared.EventPublisher
	recorder  Recorder
	logger    *zap.Logger
}

// NewService creates a new order Service. recorder may be nil.
func NewService(orderRepo order.Repository, events shared.EventPublisher, recorder Recorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orderRepo: orderRepo,
		events:    events,
		recorder:  recorder,
		logger:    logger,
	}
}

// ListForUser returns the caller's orders, newest first
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, q OrderQuery) (*OrderList, error) {
	filter := order.Filter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  "created_at",
			OrderDir: "desc",
		}.Normalize(),
		UserID: &userID,
		Status: order.Status(q.Status),
	}
	return s.findPage(ctx, filter)
}

// GetForUser returns one of the caller's orders. Orders of other users are
// reported as not found.
func (s *Service) GetForUser(ctx context.Context, userID, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// CancelByCustomer cancels the caller's own order while it is still pending
func (s *Service) CancelByCustomer(ctx context.Context, userID, id uuid.UUID, req CancelRequest) (*OrderResponse, error) {
	o, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !o.CanCustomerCancel() {
		return nil, shared.NewDomainError("ORDER_NOT_CANCELLABLE", "Only pending orders can be cancelled")
	}
	reason := req.Reason
	if reason == "" {
		reason = "Cancelled by customer"
	}
	return s.cancel(ctx, o, reason)
}

// List returns orders of every user for the admin panel
func (s *Service) List(ctx context.Context, q AdminOrderQuery) (*OrderList, error) {
	filter := order.Filter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.OrderBy,
			OrderDir: q.OrderDir,
			Search:   q.Search,
		}.Normalize(),
		UserID: q.UserID,
		Status: order.Status(q.Status),
		From:   q.From,
		To:     q.To,
	}
	if q.To != nil {
		// include the whole end day
		end := q.To.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	return s.findPage(ctx, filter)
}

// Get returns any order
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// MarkPaid records an external payment
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, req MarkPaidRequest) (*OrderResponse, error) {
	return s.transition(ctx, id, "MarkPaid", func(o *order.Order) error {
		return o.MarkPaid(req.Reference)
	})
}

// Ship records the tracking number
func (s *Service) Ship(ctx context.Context, id uuid.UUID, req ShipRequest) (*OrderResponse, error) {
	return s.transition(ctx, id, "Ship", func(o *order.Order) error {
		return o.Ship(req.TrackingNumber)
	})
}

// Deliver completes an order
func (s *Service) Deliver(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, id, "Deliver", (*order.Order).Deliver)
}

// Cancel cancels a pending or paid order and restores its stock
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, req CancelRequest) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, o, req.Reason)
}

// ExpireStalePending cancels pending orders created before cutoff. Orders
// that fail to cancel are logged and retried on the next run.
func (s *Service) ExpireStalePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	stale, err := s.orderRepo.FindStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for i := range stale {
		o := &stale[i]
		if _, err := s.cancel(ctx, o, ExpiredReason); err != nil {
			if errors.Is(err, shared.ErrConcurrentModification) || errors.Is(err, shared.ErrInvalidState) {
				s.logger.Debug("Skipping pending order changed during expiry", zap.String("order_id", o.ID.String()))
				continue
			}
			if ctx.Err() != nil {
				return cancelled, ctx.Err()
			}
			s.logger.Error("Failed to expire pending order",
				zap.String("order_id", o.ID.String()),
				zap.String("order_number", o.Number),
				zap.Error(err))
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

func (s *Service) cancel(ctx context.Context, o *order.Order, reason string) (resp *OrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "OrderService", "Cancel",
		telemetry.AttrOrderID, o.ID.String(),
		telemetry.AttrOrderNumber, o.Number)
	defer telemetry.End(span, &err)

	if err := o.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveCancelled(ctx, o); err != nil {
		return nil, err
	}
	s.afterTransition(ctx, o)
	r := ToOrderResponse(o)
	return &r, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, method string, fn func(*order.Order) error) (resp *OrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "OrderService", method, telemetry.AttrOrderID, id.String())
	defer telemetry.End(span, &err)

	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.AttrOrderStatus, string(o.Status))
	s.afterTransition(ctx, o)
	r := ToOrderResponse(o)
	return &r, nil
}

func (s *Service) afterTransition(ctx context.Context, o *order.Order) {
	s.recorder.RecordOrderTransition(string(o.Status))
	s.logger.Info("Order status changed",
		zap.String("order_id", o.ID.String()),
		zap.String("number", o.Number),
		zap.String("status", string(o.Status)))

	events := o.GetDomainEvents()
	o.ClearDomainEvents()
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish order events", zap.Error(err))
	}
}

func (s *Service) findOwned(ctx context.Context, userID, id uuid.UUID) (*order.Order, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(userID) {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (s *Service) findPage(ctx context.Context, filter order.Filter) (*OrderList, error) {
	orders, total, err := s.orderRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]OrderResponse, len(orders))
	for i := range orders {
		items[i] = ToOrderResponse(&orders[i])
	}
	return &OrderList{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}
