package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/storefront/backend/internal/domain/shared"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Test", uuid.New())}
}

type testHandler struct {
	types   []string
	err     error
	panics  bool
	mu      sync.Mutex
	handled []shared.DomainEvent
}

func (h *testHandler) Handle(_ context.Context, e shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, e)
	h.mu.Unlock()
	if h.panics {
		panic("boom")
	}
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.types }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_SyncPublish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	placed := &testHandler{types: []string{"OrderPlaced"}}
	all := &testHandler{}
	bus.Subscribe(placed)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderPlaced"), newTestEvent("ProductUpdated")))

	assert.Equal(t, 1, placed.count())
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := &testHandler{types: []string{"A"}}
	bus.Subscribe(h, "B")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("A"), newTestEvent("B")))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	var observed []error
	bus := NewInMemoryEventBus(zap.New(core), WithDispatchObserver(func(_ string, _ time.Duration, err error) {
		observed = append(observed, err)
	}))

	failing := &testHandler{types: []string{"E"}, err: errors.New("db down")}
	panicking := &testHandler{types: []string{"E"}, panics: true}
	healthy := &testHandler{types: []string{"E"}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("E"))
	require.NoError(t, err)

	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, 2, logs.FilterMessage("Event handler failed").Len())
	require.Len(t, observed, 3)
	assert.Error(t, observed[0])
	assert.ErrorContains(t, observed[1], "panic")
	assert.NoError(t, observed[2])
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := &testHandler{types: []string{"E"}}
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("E")))
	assert.Equal(t, 0, h.count())
}

func TestInMemoryEventBus_Async(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsync(2, 16))
	h := &testHandler{types: []string{"E"}}
	bus.Subscribe(h)

	t.Run("publish before start fails", func(t *testing.T) {
		assert.ErrorIs(t, bus.Publish(context.Background(), newTestEvent("E")), ErrBusStopped)
	})

	require.NoError(t, bus.Start(context.Background()))
	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(context.Background(), newTestEvent("E")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
	assert.Equal(t, 10, h.count())

	t.Run("publish after stop fails", func(t *testing.T) {
		assert.ErrorIs(t, bus.Publish(context.Background(), newTestEvent("E")), ErrBusStopped)
	})

	t.Run("stop twice is a no-op", func(t *testing.T) {
		assert.NoError(t, bus.Stop(context.Background()))
	})
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	a := &testHandler{}
	b := &testHandler{}

	r.Register(a, "X", "Y")
	r.Register(a, "X")
	r.Register(b)

	assert.Len(t, r.Handlers("X"), 2)
	assert.Len(t, r.Handlers("Z"), 1)
	assert.Equal(t, []string{"X", "Y"}, r.EventTypes())

	// a wildcard handler that is also typed is returned once
	r.Register(a)
	assert.Len(t, r.Handlers("X"), 2)

	r.Unregister(a)
	assert.Equal(t, []shared.EventHandler{b}, r.Handlers("X"))
	assert.Empty(t, r.EventTypes())
}
