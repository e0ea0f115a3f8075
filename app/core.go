// Package app wires the configured collaborators into the engine.
package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/fleetops/auth"
	"github.com/kilianp07/fleetops/config"
	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/playback"
	"github.com/kilianp07/fleetops/core/routing"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/core/track"
	"github.com/kilianp07/fleetops/infra/logger"
	inframetrics "github.com/kilianp07/fleetops/infra/metrics"
	"github.com/kilianp07/fleetops/infra/osrm"
	infrastore "github.com/kilianp07/fleetops/infra/store"
	"github.com/kilianp07/fleetops/internal/eventbus"

	// Built-in sinks register themselves on import.
	_ "github.com/kilianp07/fleetops/app/plugins"
)

// Core holds the collaborators shared by the server and the CLI commands.
type Core struct {
	Config   *config.Config
	Store    store.Store
	Metrics  coremetrics.Sink
	Bus      *eventbus.Bus
	Resolver *routing.Resolver
	Synth    *track.Synthesizer

	log           logger.Logger
	stopCollector context.CancelFunc
	collectorDone <-chan struct{}
}

// Open connects the store and builds the analytics and synthesis pipeline.
func Open(ctx context.Context, cfg *config.Config) (*Core, error) {
	logger.SetLevel(cfg.Logging.Level)
	log := logger.New("app")

	st, err := infrastore.Open(ctx, cfg.Store.Backend, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}

	var opts []osrm.Option
	if cfg.Routing.Auth.Enabled() {
		opts = append(opts, osrm.WithCredentials(auth.NewClientCred(cfg.Routing.Auth)))
	}
	resolver := routing.NewResolver(osrm.NewClient(cfg.Routing.OSRMURL, opts...), cfg.Routing, logger.New("routing"), sink)

	bus := eventbus.New()
	synth := track.New(st, st, resolver, cfg.Synthesis, logger.New("track"), track.WithEventBus(bus))

	cctx, cancel := context.WithCancel(context.Background())
	c := &Core{
		Config:        cfg,
		Store:         st,
		Metrics:       sink,
		Bus:           bus,
		Resolver:      resolver,
		Synth:         synth,
		log:           log,
		stopCollector: cancel,
		collectorDone: inframetrics.StartEventCollector(cctx, bus, sink),
	}
	log.Infof("store %s ready, routing via %s", cfg.Store.Backend, cfg.Routing.OSRMURL)
	return c, nil
}

// Pairs returns the configured pairs, or the round-robin assignment of the
// stored fleet when none are configured.
func (c *Core) Pairs(ctx context.Context) ([]model.TrackKey, error) {
	return track.ResolvePairs(ctx, c.Store, c.Config.Synthesis.Pairs)
}

// Reports returns the metrics sink as a report recorder when it is one.
func (c *Core) Reports() coremetrics.ReportRecorder {
	if r, ok := c.Metrics.(coremetrics.ReportRecorder); ok {
		return r
	}
	return coremetrics.NopSink{}
}

// Close stops event collection and releases the sinks and the store.
func (c *Core) Close() error {
	c.stopCollector()
	<-c.collectorDone
	c.Bus.Close()
	closeAll(c.Metrics)
	return c.Store.Close()
}

// closeAll closes v and, for fan-out sinks, every wrapped sink.
func closeAll(v any) {
	switch s := v.(type) {
	case *coremetrics.MultiSink:
		for _, inner := range s.Sinks {
			closeAll(inner)
		}
	case *playback.MultiSink:
		for _, inner := range s.Sinks {
			closeAll(inner)
		}
	case interface{ Close() error }:
		_ = s.Close()
	case interface{ Close() }:
		s.Close()
	}
}
