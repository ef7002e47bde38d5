package order

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// fakeOrderRepo keeps orders in memory. placeErrs are returned by Place in
// order before it starts succeeding.
type fakeOrderRepo struct {
	order.Repository
	mu         sync.Mutex
	orders     map[uuid.UUID]*order.Order
	placeErrs  []error
	placeCalls int
	cancelled  []uuid.UUID
	staleErr   map[uuid.UUID]error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[uuid.UUID]*order.Order{}, staleErr: map[uuid.UUID]error{}}
}

func (r *fakeOrderRepo) Place(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placeCalls++
	if len(r.placeErrs) > 0 {
		err := r.placeErrs[0]
		r.placeErrs = r.placeErrs[1:]
		return err
	}
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) FindAll(_ context.Context, filter order.Filter) ([]order.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, o := range r.orders {
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) FindStalePending(_ context.Context, cutoff time.Time, limit int) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.Status == order.StatusPending && o.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) SaveWithLock(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) SaveCancelled(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.staleErr[o.ID]; err != nil {
		return err
	}
	r.orders[o.ID] = o
	r.cancelled = append(r.cancelled, o.ID)
	return nil
}

type fakeProducts struct {
	catalog.ProductRepository
	products map[uuid.UUID]*catalog.Product
}

func (f *fakeProducts) FindByIDs(_ context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeUsers struct {
	identity.UserRepository
	users map[uuid.UUID]*identity.User
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type countingRecorder struct {
	checkouts   []string
	placed      int
	transitions []string
}

func (r *countingRecorder) RecordCheckout(result string) { r.checkouts = append(r.checkouts, result) }

func (r *countingRecorder) RecordOrderPlaced(string, float64) { r.placed++ }

func (r *countingRecorder) RecordOrderTransition(status string) {
	r.transitions = append(r.transitions, status)
}
