package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/fleetops/core/metrics"
)

func TestPromSink_RecordTrackGeneration(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	_ = sink.RecordTrackGeneration(coremetrics.TrackGenerationEvent{Source: coremetrics.SourceOSRM, Points: 80, Duration: time.Millisecond})
	_ = sink.RecordTrackGeneration(coremetrics.TrackGenerationEvent{Source: coremetrics.SourceFallback, Points: 41})
	_ = sink.RecordTrackGeneration(coremetrics.TrackGenerationEvent{Source: coremetrics.SourceFallback, Points: 41})
	_ = sink.RecordTrackGeneration(coremetrics.TrackGenerationEvent{Source: coremetrics.SourceFailed})

	expected := `
# HELP track_generation_total Track generations by geometry source
# TYPE track_generation_total counter
track_generation_total{source="failed"} 1
track_generation_total{source="fallback"} 2
track_generation_total{source="osrm"} 1
`
	if err := testutil.CollectAndCompare(sink.tracks, strings.NewReader(expected)); err != nil {
		t.Fatalf("unexpected counter: %v", err)
	}
	if c := testutil.CollectAndCount(sink.points); c != 2 {
		t.Fatalf("expected 2 point histograms, got %d", c)
	}
}

func TestPromSink_RecordRouteLookup(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	_ = sink.RecordRouteLookup(coremetrics.RouteLookupEvent{Outcome: coremetrics.LookupHit})
	_ = sink.RecordRouteLookup(coremetrics.RouteLookupEvent{Outcome: coremetrics.LookupMiss, Latency: 20 * time.Millisecond})
	if v := testutil.ToFloat64(sink.lookups.WithLabelValues("hit")); v != 1 {
		t.Fatalf("expected 1 hit, got %v", v)
	}
	if n := testutil.CollectAndCount(sink.latency); n != 1 {
		t.Fatalf("expected latency histogram, got %d", n)
	}
}

func TestPromSink_ReuseRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	s1, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first sink: %v", err)
	}
	s2, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second sink: %v", err)
	}
	_ = s2.RecordPlaybackFrame(coremetrics.PlaybackFrameEvent{Session: "s", Index: 7})
	if v := testutil.ToFloat64(s1.frame.WithLabelValues("s")); v != 7 {
		t.Fatalf("collectors not shared, got %v", v)
	}
}
