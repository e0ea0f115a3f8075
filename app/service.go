package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/fleetops/api"
	"github.com/kilianp07/fleetops/config"
	coremon "github.com/kilianp07/fleetops/core/monitoring"
	"github.com/kilianp07/fleetops/core/playback"
	"github.com/kilianp07/fleetops/core/vehiclestatus"
	"github.com/kilianp07/fleetops/infra/logger"
	inframetrics "github.com/kilianp07/fleetops/infra/metrics"
	inframon "github.com/kilianp07/fleetops/infra/monitoring"
	"github.com/kilianp07/fleetops/infra/mqtt"
	"github.com/kilianp07/fleetops/infra/ws"
	"github.com/kilianp07/fleetops/jobs/regen"
)

// Service runs the HTTP API, the playback scheduler and the periodic
// regeneration on top of a Core.
type Service struct {
	*Core
	Scheduler *playback.Scheduler
	Hub       *ws.Hub
	Statuses  *vehiclestatus.MemoryStore

	frames playback.FrameSink
	regen  *regen.Job
	log    logger.Logger
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	core, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc := &Service{Core: core, log: logger.New("service")}
	if err := svc.build(cfg); err != nil {
		_ = svc.Close()
		return nil, err
	}
	return svc, nil
}

func (s *Service) build(cfg *config.Config) error {
	s.Hub = ws.NewHub(logger.New("ws"))
	s.Statuses = vehiclestatus.NewMemoryStore()
	extra := []playback.FrameSink{s.Hub, vehiclestatus.NewTracker(s.Statuses)}
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewFramePublisher(cfg.MQTT)
		if err != nil {
			s.Hub.Close()
			return fmt.Errorf("mqtt publisher: %w", err)
		}
		extra = append(extra, pub)
	}
	frames, err := playback.NewSink(cfg.Playback.Sinks, extra...)
	if err != nil {
		closeAll(playback.NewMultiSink(extra...))
		return fmt.Errorf("playback sinks: %w", err)
	}
	s.frames = frames

	s.Scheduler, err = playback.NewScheduler(cfg.Playback, frames, logger.New("playback"), playback.WithEventBus(s.Bus))
	if err != nil {
		return fmt.Errorf("playback scheduler: %w", err)
	}

	if cfg.Synthesis.Schedule != "" {
		s.regen, err = regen.New(cfg.Synthesis.Schedule, s.Synth, s.Pairs, logger.New("regen"))
		if err != nil {
			return fmt.Errorf("regeneration job: %w", err)
		}
	}
	return nil
}

// Handler returns the API router. ctx bounds the background batches it
// starts.
func (s *Service) Handler(ctx context.Context) http.Handler {
	return api.NewRouter(ctx, api.Deps{
		Store:     s.Store,
		Synth:     s.Synth,
		Playback:  s.Scheduler,
		WebSocket: s.Hub,
		Statuses:  s.Statuses,
		Reports:   s.Reports(),
		Pairs:     s.Config.Synthesis.Pairs,
		Log:       logger.New("api"),
	})
}

// Run serves the API and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if addr := s.Config.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := inframetrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.regen != nil {
		s.regen.Start(ctx)
	}
	go s.ensureTracks(ctx)

	srv := &http.Server{
		Addr:              s.Config.HTTP.Addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
	}()
	s.log.Infof("serving API on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ensureTracks generates the missing tracks of the default pairs so that
// playback has something to load after a fresh start.
func (s *Service) ensureTracks(ctx context.Context) {
	pairs, err := s.Pairs(ctx)
	if err != nil {
		s.log.Errorf("resolve pairs: %v", err)
		return
	}
	sum, err := s.Synth.Ensure(ctx, pairs)
	if err != nil {
		s.log.Warnf("ensure tracks: %v", err)
		return
	}
	if sum.Succeeded+sum.Failed > 0 {
		s.log.Infof("generated %d missing tracks (%d failed)", sum.Succeeded, sum.Failed)
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.Scheduler != nil {
		s.Scheduler.Close()
	}
	if s.frames != nil {
		closeAll(s.frames)
	} else if s.Hub != nil {
		s.Hub.Close()
	}
	coremon.Flush(2 * time.Second)
	return s.Core.Close()
}
