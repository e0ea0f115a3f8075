// Package api assembles the HTTP surface of the engine.
package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	apianalytics "github.com/kilianp07/fleetops/api/analytics"
	"github.com/kilianp07/fleetops/api/httpx"
	apiplayback "github.com/kilianp07/fleetops/api/playback"
	apitracks "github.com/kilianp07/fleetops/api/tracks"
	"github.com/kilianp07/fleetops/api/vehicles"
	"github.com/kilianp07/fleetops/core/analytics"
	"github.com/kilianp07/fleetops/core/logger"
	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/monitoring"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/core/vehiclestatus"
)

// Deps are the collaborators served by the router. Playback, WebSocket and
// Statuses are optional.
type Deps struct {
	Store     store.Store
	Synth     apitracks.Synthesizer
	Playback  apiplayback.Controller
	WebSocket http.Handler
	Statuses  vehiclestatus.Store
	Reports   coremetrics.ReportRecorder
	Pairs     []model.TrackKey
	Log       logger.Logger
}

// NewRouter returns the API router. ctx bounds background generation
// batches started through it.
func NewRouter(ctx context.Context, d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(recoverer(d.Log), requestLog(d.Log))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	apianalytics.NewHandler(d.Store, d.Reports, d.Log).Register(r)
	apitracks.NewHandler(ctx, d.Synth, d.Store, d.Pairs, d.Log).Register(r)
	if d.Playback != nil {
		apiplayback.NewHandler(d.Playback, d.Store, d.Log).Register(r)
	}
	if d.Statuses != nil {
		vehicles.Register(r, d.Statuses, analytics.NewForecaster(d.Store, d.Log), d.Log)
	}
	if d.WebSocket != nil {
		r.Handle("/ws/playback", d.WebSocket)
	}
	return r
}

func recoverer(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					log.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, v)
					monitoring.CapturePanic(v, map[string]string{"module": "api", "path": r.URL.Path})
					httpx.Error(w, fmt.Errorf("panic: %v", v))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Hijack hands the connection over for the WebSocket upgrade.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func requestLog(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Debugw("http request", map[string]any{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": time.Since(start).String(),
			})
		})
	}
}
