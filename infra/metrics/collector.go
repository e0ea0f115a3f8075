package metrics

import (
	"context"

	"github.com/kilianp07/fleetops/core/events"
	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.Sink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, ev)
			}
		}
	}()
	return done
}

func record(sink coremetrics.Sink, ev eventbus.Event) {
	switch e := ev.(type) {
	case events.TrackGenerated:
		reason := ""
		if e.Err != nil {
			reason = e.Err.Error()
		}
		_ = sink.RecordTrackGeneration(coremetrics.TrackGenerationEvent{
			BatchID:   e.BatchID,
			VehicleID: e.Key.VehicleID,
			RouteID:   e.Key.RouteID,
			Source:    e.Source,
			Points:    e.Points,
			Reason:    reason,
			Duration:  e.Duration,
			Time:      e.At,
		})
	case events.PlaybackStateChanged:
		if r, ok := sink.(coremetrics.PlaybackRecorder); ok {
			_ = r.RecordPlaybackFrame(coremetrics.PlaybackFrameEvent{
				Session: e.Session, Index: e.Index, Time: e.At,
			})
		}
	}
}
