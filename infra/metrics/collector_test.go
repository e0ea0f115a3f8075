package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/fleetops/core/events"
	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/internal/eventbus"
)

type captureSink struct {
	coremetrics.NopSink
	mu     sync.Mutex
	gens   []coremetrics.TrackGenerationEvent
	frames []coremetrics.PlaybackFrameEvent
}

func (c *captureSink) RecordTrackGeneration(ev coremetrics.TrackGenerationEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens = append(c.gens, ev)
	return nil
}

func (c *captureSink) RecordPlaybackFrame(ev coremetrics.PlaybackFrameEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, ev)
	return nil
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, sink)

	bus.Publish(events.TrackGenerated{
		BatchID: "b", Key: model.TrackKey{VehicleID: 1, RouteID: 2},
		Source: coremetrics.SourceFailed, Err: errors.New("route 2: not found"),
	})
	bus.Publish(events.PlaybackStateChanged{Session: "s", State: "playing", Index: 3})

	deadline := time.Now().Add(time.Second)
	for {
		sink.mu.Lock()
		n := len(sink.gens) + len(sink.frames)
		sink.mu.Unlock()
		if n == 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.gens) != 1 || sink.gens[0].Reason != "route 2: not found" || sink.gens[0].RouteID != 2 {
		t.Fatalf("unexpected generation events %+v", sink.gens)
	}
	if len(sink.frames) != 1 || sink.frames[0].Index != 3 {
		t.Fatalf("unexpected frame events %+v", sink.frames)
	}
}

func TestStartEventCollectorNilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, coremetrics.NopSink{})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector without bus should return immediately")
	}
}
