package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishDeliversToTypedAndWildcardSubscribers(t *testing.T) {
	bus := NewInMemoryBus(zap.NewNop(), 8)
	defer bus.Close()

	var mu sync.Mutex
	var typed, wild int

	bus.Subscribe(TypeSessionStart, func(_ context.Context, _ Event) {
		mu.Lock()
		typed++
		mu.Unlock()
	})
	bus.Subscribe("*", func(_ context.Context, _ Event) {
		mu.Lock()
		wild++
		mu.Unlock()
	})

	bus.Publish(context.Background(), NewEvent(TypeSessionStart, nil))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return typed == 1 && wild == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	bus := NewInMemoryBus(zap.NewNop(), 1)
	bus.Close()
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), NewEvent(TypeError, nil))
	})
}

func TestFullBufferDropsRatherThanBlocks(t *testing.T) {
	bus := NewInMemoryBus(zap.NewNop(), 1)
	defer bus.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(context.Background(), NewEvent(TypeError, i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}
}

func TestHandlerPanicDoesNotCrashBus(t *testing.T) {
	bus := NewInMemoryBus(zap.NewNop(), 4)

	bus.Subscribe(TypeError, func(_ context.Context, _ Event) {
		panic("boom")
	})

	bus.Publish(context.Background(), NewEvent(TypeError, nil))
	bus.Close() // Close waits for dispatch to drain; a surviving panic would hang this.
}
