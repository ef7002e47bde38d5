// Package event provides the in-process domain event bus.
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/shared"
)

var _ shared.EventBus = (*InMemoryEventBus)(nil)

// ErrBusStopped is returned by Publish in async mode after Stop
var ErrBusStopped = errors.New("event bus stopped")

// DispatchObserver is told about every handler invocation
type DispatchObserver func(eventType string, duration time.Duration, err error)

// InMemoryEventBus delivers events to handlers in the same process. Handler
// errors and panics are logged and never reach the publisher.
//
// By default Publish runs handlers before returning. With WithAsync, events
// are queued and handled by a worker pool started by Start.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	observer DispatchObserver

	async   bool
	workers int
	queue   chan envelope
	running atomic.Bool
	mu      sync.RWMutex // guards queue close against Publish
	wg      sync.WaitGroup
}

type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// Option configures the bus
type Option func(*InMemoryEventBus)

// WithAsync queues events for a pool of workers
func WithAsync(workers, buffer int) Option {
	return func(b *InMemoryEventBus) {
		if workers < 1 {
			workers = 1
		}
		if buffer < 0 {
			buffer = 0
		}
		b.async = true
		b.workers = workers
		b.queue = make(chan envelope, buffer)
	}
}

// WithDispatchObserver registers a hook called after each handler runs
func WithDispatchObserver(o DispatchObserver) Option {
	return func(b *InMemoryEventBus) {
		b.observer = o
	}
}

// NewInMemoryEventBus creates a new bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...Option) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers events to their handlers
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.async {
		for _, e := range events {
			b.dispatch(ctx, e)
		}
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.running.Load() {
		return ErrBusStopped
	}
	// handlers outlive the request, keep its values but not its deadline
	detached := context.WithoutCancel(ctx)
	for _, e := range events {
		select {
		case b.queue <- envelope{ctx: detached, event: e}:
		case <-ctx.Done():
			return fmt.Errorf("publish %s: %w", e.EventType(), ctx.Err())
		}
	}
	return nil
}

// Subscribe registers handler. Without explicit types the handler's own
// EventTypes are used.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Event handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start launches the workers in async mode
func (b *InMemoryEventBus) Start(_ context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	if b.async {
		for i := 0; i < b.workers; i++ {
			b.wg.Add(1)
			go b.worker()
		}
	}
	b.logger.Info("Event bus started", zap.Bool("async", b.async), zap.Int("workers", b.workers))
	return nil
}

// Stop drains queued events and waits for the workers, or until ctx expires
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}
	if b.async {
		b.mu.Lock()
		close(b.queue)
		b.mu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

func (b *InMemoryEventBus) worker() {
	defer b.wg.Done()
	for env := range b.queue {
		b.dispatch(env.ctx, env.event)
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, e shared.DomainEvent) {
	for _, h := range b.registry.Handlers(e.EventType()) {
		start := time.Now()
		err := b.safeHandle(ctx, h, e)
		if b.observer != nil {
			b.observer(e.EventType(), time.Since(start), err)
		}
		if err != nil {
			b.logger.Error("Event handler failed",
				zap.String("event_type", e.EventType()),
				zap.String("event_id", e.EventID().String()),
				zap.String("aggregate_id", e.AggregateID().String()),
				zap.Error(err),
			)
		}
	}
}

func (b *InMemoryEventBus) safeHandle(ctx context.Context, h shared.EventHandler, e shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, e)
}
