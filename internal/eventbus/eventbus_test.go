package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/events"
)

func TestBusFanOut(t *testing.T) {
	bus := New()
	a, b := bus.Subscribe(), bus.Subscribe()
	ev := events.PlaybackStateChanged{Session: "s1", State: "playing"}
	bus.Publish(ev)
	assert.Equal(t, Event(ev), <-a)
	assert.Equal(t, Event(ev), <-b)
	require.Equal(t, 2, bus.Subscribers())

	bus.Unsubscribe(a)
	if _, ok := <-a; ok {
		t.Fatalf("expected unsubscribed channel closed")
	}
	require.Equal(t, 1, bus.Subscribers())
	bus.Unsubscribe(a)
}

func TestTypedBusDropsWhenFull(t *testing.T) {
	bus := NewTyped[int](WithBuffer(2))
	ch := bus.Subscribe()
	for i := 0; i < 5; i++ {
		bus.Publish(i)
	}
	require.Equal(t, uint64(3), bus.Dropped())
	assert.Equal(t, 0, <-ch)
	assert.Equal(t, 1, <-ch)
}

func TestTypedBusWithBufferIgnoresInvalid(t *testing.T) {
	bus := NewTyped[int](WithBuffer(0))
	ch := bus.Subscribe()
	if cap(ch) != defaultBuffer {
		t.Fatalf("expected default buffer, got %d", cap(ch))
	}
}

func TestBusClose(t *testing.T) {
	bus := NewTyped[string]()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
	bus.Publish("late")
	late := bus.Subscribe()
	if _, ok := <-late; ok {
		t.Fatalf("subscription on closed bus must be closed")
	}
	require.Zero(t, bus.Subscribers())
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
