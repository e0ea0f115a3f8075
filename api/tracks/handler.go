// Package tracks exposes track generation and stored tracks over HTTP.
package tracks

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/kilianp07/fleetops/api/httpx"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/core/track"
	"github.com/kilianp07/fleetops/pkg/export"
)

// Synthesizer generates and clears tracks.
type Synthesizer interface {
	Generate(ctx context.Context, pairs []model.TrackKey) (track.Summary, error)
	Start(ctx context.Context, pairs []model.TrackKey) *track.Job
	Clear(ctx context.Context) error
}

// Store is what the handler reads.
type Store interface {
	track.PairLister
	store.TrackReader
}

// Handler serves /api/tracks.
type Handler struct {
	synth      Synthesizer
	store      Store
	configured []model.TrackKey
	log        logger.Logger

	// base outlives requests so async batches are not cut short.
	base context.Context

	mu  sync.Mutex
	job *track.Job
}

// NewHandler returns a handler. configured pairs are used when a request
// names none; otherwise every vehicle gets a route in turn.
func NewHandler(ctx context.Context, synth Synthesizer, s Store, configured []model.TrackKey, log logger.Logger) *Handler {
	return &Handler{synth: synth, store: s, configured: configured, log: log, base: ctx}
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r *mux.Router) {
	s := r.PathPrefix("/api/tracks").Subrouter()
	s.HandleFunc("", h.list).Methods(http.MethodGet)
	s.HandleFunc("", h.clear).Methods(http.MethodDelete)
	s.HandleFunc("/generate", h.generate).Methods(http.MethodPost)
	s.HandleFunc("/generate", h.jobStatus).Methods(http.MethodGet)
	s.HandleFunc("/{vehicle}/{route}", h.get).Methods(http.MethodGet)
}

type generateRequest struct {
	Pairs []model.TrackKey `json:"pairs"`
	Async bool             `json:"async"`
}

type jobResponse struct {
	Running bool           `json:"running"`
	Summary *track.Summary `json:"summary,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	for _, p := range req.Pairs {
		if p.VehicleID <= 0 || p.RouteID <= 0 {
			httpx.Error(w, fmt.Errorf("%w: invalid pair %s", httpx.ErrBadRequest, p))
			return
		}
	}
	configured := req.Pairs
	if len(configured) == 0 {
		configured = h.configured
	}
	pairs, err := track.ResolvePairs(r.Context(), h.store, configured)
	if err != nil {
		h.log.Errorf("resolve pairs: %v", err)
		httpx.Error(w, err)
		return
	}

	if !req.Async {
		sum, err := h.synth.Generate(r.Context(), pairs)
		if err != nil {
			h.log.Warnf("generation batch %s interrupted: %v", sum.BatchID, err)
			httpx.Error(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, sum)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.job != nil {
		select {
		case <-h.job.Done():
		default:
			httpx.JSON(w, http.StatusConflict, jobResponse{Running: true})
			return
		}
	}
	h.job = h.synth.Start(h.base, pairs)
	h.log.Infof("started generation of %d pairs", len(pairs))
	httpx.JSON(w, http.StatusAccepted, jobResponse{Running: true})
}

func (h *Handler) jobStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	job := h.job
	h.mu.Unlock()
	if job == nil {
		httpx.Error(w, fmt.Errorf("generation job: %w", store.ErrNotFound))
		return
	}
	select {
	case <-job.Done():
	default:
		httpx.JSON(w, http.StatusOK, jobResponse{Running: true})
		return
	}
	sum, err := job.Result()
	res := jobResponse{Summary: &sum}
	if err != nil {
		res.Error = err.Error()
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.TrackKeys(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if keys == nil {
		keys = []model.TrackKey{}
	}
	httpx.JSON(w, http.StatusOK, keys)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.synth.Clear(r.Context()); err != nil {
		h.log.Errorf("clear tracks: %v", err)
		httpx.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	vid, err := httpx.PathInt(r, "vehicle")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	rid, err := httpx.PathInt(r, "route")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	key := model.TrackKey{VehicleID: vid, RouteID: rid}
	pts, err := h.store.TrackPoints(r.Context(), key)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if len(pts) == 0 {
		httpx.Error(w, fmt.Errorf("track %s: %w", key, store.ErrNotFound))
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		httpx.JSON(w, http.StatusOK, pts)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		if err := export.WriteTrackCSV(w, pts); err != nil {
			h.log.Warnf("write track %s: %v", key, err)
		}
	case "geojson":
		w.Header().Set("Content-Type", "application/geo+json")
		b, err := Feature(key, pts).MarshalJSON()
		if err != nil {
			httpx.Error(w, err)
			return
		}
		_, _ = w.Write(b)
	default:
		httpx.Error(w, fmt.Errorf("%w: unknown format %q", httpx.ErrBadRequest, format))
	}
}

// Feature renders a track as a GeoJSON LineString in Seq order.
func Feature(key model.TrackKey, pts []model.TrackPoint) *geojson.Feature {
	line := make(orb.LineString, len(pts))
	for i, p := range pts {
		line[i] = orb.Point{p.Lon, p.Lat}
	}
	f := geojson.NewFeature(line)
	f.Properties["vehicle_id"] = key.VehicleID
	f.Properties["route_id"] = key.RouteID
	f.Properties["points"] = len(pts)
	return f
}
