package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/fleetops/core/metrics"
)

// PromSink records engine events in Prometheus metrics.
type PromSink struct {
	tracks   *prometheus.CounterVec
	points   *prometheus.HistogramVec
	genTime  prometheus.Histogram
	lookups  *prometheus.CounterVec
	latency  prometheus.Histogram
	frame    *prometheus.GaugeVec
	requests *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The /metrics endpoint should be started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// register registers c or returns the collector already registered under
// the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.tracks, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "track_generation_total",
		Help: "Track generations by geometry source",
	}, []string{"source"})); err != nil {
		return nil, err
	}
	if s.points, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "track_points",
		Help:    "Number of points stored per generated track",
		Buckets: []float64{2, 10, 25, 41, 60, 80, 101},
	}, []string{"source"})); err != nil {
		return nil, err
	}
	if s.genTime, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "track_generation_seconds",
		Help:    "Time to synthesize and store one track",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.lookups, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_lookups_total",
		Help: "Route geometry resolutions by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "route_lookup_seconds",
		Help:    "Latency of routing service calls",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.frame, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "playback_frame_index",
		Help: "Current playback step index",
	}, []string{"session"})); err != nil {
		return nil, err
	}
	if s.requests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_requests_total",
		Help: "Analytics figures computed by kind and outcome",
	}, []string{"kind", "outcome"})); err != nil {
		return nil, err
	}
	return s, nil
}

// RecordTrackGeneration counts the generation and observes its size.
func (s *PromSink) RecordTrackGeneration(ev coremetrics.TrackGenerationEvent) error {
	s.tracks.WithLabelValues(ev.Source).Inc()
	if ev.Source != coremetrics.SourceFailed {
		s.points.WithLabelValues(ev.Source).Observe(float64(ev.Points))
	}
	s.genTime.Observe(ev.Duration.Seconds())
	return nil
}

// RecordRouteLookup counts the lookup. Latency is only observed for calls
// that reached the routing service.
func (s *PromSink) RecordRouteLookup(ev coremetrics.RouteLookupEvent) error {
	s.lookups.WithLabelValues(ev.Outcome).Inc()
	if ev.Outcome != coremetrics.LookupHit {
		s.latency.Observe(ev.Latency.Seconds())
	}
	return nil
}

// RecordPlaybackFrame sets the gauge to the current index.
func (s *PromSink) RecordPlaybackFrame(ev coremetrics.PlaybackFrameEvent) error {
	s.frame.WithLabelValues(ev.Session).Set(float64(ev.Index))
	return nil
}

// RecordReport counts an analytics request.
func (s *PromSink) RecordReport(ev coremetrics.ReportEvent) error {
	s.requests.WithLabelValues(ev.Kind, ev.Outcome).Inc()
	return nil
}
