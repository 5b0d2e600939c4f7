package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domoutbox "github.com/shopora/checkout/internal/domain/outbox"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var mu sync.Mutex
	got := 0
	handler := func(ctx context.Context, e domoutbox.Event) error {
		mu.Lock()
		got++
		mu.Unlock()
		return nil
	}
	bus.Subscribe("thing.happened", handler)
	bus.Subscribe("thing.happened", handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)
	defer bus.Stop(context.Background())

	require.NoError(t, bus.Publish(ctx, testEvent{name: "thing.happened"}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got == 2
	})
}

func TestBusIgnoresUnsubscribedEvents(t *testing.T) {
	bus := NewBus(zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)
	defer bus.Stop(context.Background())

	assert.NoError(t, bus.Publish(ctx, testEvent{name: "nobody.cares"}))
}

func TestBusSurvivesHandlerPanic(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var mu sync.Mutex
	delivered := false
	bus.Subscribe("boom", func(ctx context.Context, e domoutbox.Event) error {
		panic("handler exploded")
	})
	bus.Subscribe("boom", func(ctx context.Context, e domoutbox.Event) error {
		mu.Lock()
		delivered = true
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)
	defer bus.Stop(context.Background())

	require.NoError(t, bus.Publish(ctx, testEvent{name: "boom"}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered
	})
}

func TestPublishNilEvent(t *testing.T) {
	bus := NewBus(zap.NewNop())
	assert.NoError(t, bus.Publish(context.Background(), nil))
}
