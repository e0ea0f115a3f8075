// Package metrics defines the observability events of the engine and the
// sinks recording them. Sinks like PromSink and InfluxSink live in
// infra/metrics and register themselves by type name; NewSink builds a
// MultiSink automatically when several sinks are configured.
package metrics

import (
	"time"

	"github.com/kilianp07/fleetops/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr is the listen address of the /metrics endpoint. Empty
	// disables the endpoint.
	PrometheusAddr string `json:"prometheus_addr"`
}

// Track generation outcomes.
const (
	SourceOSRM     = "osrm"
	SourceFallback = "fallback"
	SourceFailed   = "failed"
)

// TrackGenerationEvent records the synthesis of one vehicle/route track.
type TrackGenerationEvent struct {
	BatchID   string
	VehicleID int64
	RouteID   int64
	Source    string
	Points    int
	Reason    string
	Duration  time.Duration
	Time      time.Time
}

// Route lookup outcomes.
const (
	LookupHit         = "hit"
	LookupMiss        = "miss"
	LookupUnavailable = "unavailable"
)

// RouteLookupEvent records one geometry resolution.
type RouteLookupEvent struct {
	Outcome string
	Points  int
	Latency time.Duration
	Time    time.Time
}

// Sink records track synthesis and routing events.
type Sink interface {
	RecordTrackGeneration(ev TrackGenerationEvent) error
	RecordRouteLookup(ev RouteLookupEvent) error
}

// PlaybackFrameEvent is emitted for every playback tick.
type PlaybackFrameEvent struct {
	Session string
	Index   int
	Active  int
	Time    time.Time
}

// PlaybackRecorder is implemented by sinks able to record playback progress.
type PlaybackRecorder interface {
	RecordPlaybackFrame(ev PlaybackFrameEvent) error
}

// ReportEvent records a computed analytics figure.
type ReportEvent struct {
	Kind      string
	VehicleID int64
	Outcome   string
	Time      time.Time
}

// ReportRecorder is implemented by sinks able to record analytics requests.
type ReportRecorder interface {
	RecordReport(ev ReportEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTrackGeneration(TrackGenerationEvent) error { return nil }
func (NopSink) RecordRouteLookup(RouteLookupEvent) error         { return nil }
func (NopSink) RecordPlaybackFrame(PlaybackFrameEvent) error     { return nil }
func (NopSink) RecordReport(ReportEvent) error                   { return nil }
