// Package playback exposes the playback controls over HTTP.
package playback

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kilianp07/fleetops/api/httpx"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/playback"
)

// Controller is the playback scheduler.
type Controller interface {
	Load(tracks []playback.Track) error
	Play() error
	Pause() error
	Resume() error
	SetSpeed(speed int) error
	Step() (playback.Frame, error)
	Clear()
	Snapshot() playback.Status
}

// Source provides the stored tracks to load.
type Source interface {
	playback.Source
	TrackKeys(ctx context.Context) ([]model.TrackKey, error)
}

// Handler serves /api/playback.
type Handler struct {
	ctrl Controller
	src  Source
	log  logger.Logger
}

func NewHandler(ctrl Controller, src Source, log logger.Logger) *Handler {
	return &Handler{ctrl: ctrl, src: src, log: log}
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r *mux.Router) {
	s := r.PathPrefix("/api/playback").Subrouter()
	s.HandleFunc("", h.status).Methods(http.MethodGet)
	s.HandleFunc("/speed", h.speed).Methods(http.MethodPut)
	s.HandleFunc("/{action}", h.action).Methods(http.MethodPost)
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, h.ctrl.Snapshot())
}

type loadRequest struct {
	Pairs []model.TrackKey `json:"pairs"`
}

type speedRequest struct {
	Speed int `json:"speed"`
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request) {
	var err error
	switch action := mux.Vars(r)["action"]; action {
	case "load":
		err = h.load(r)
	case "play":
		err = h.ctrl.Play()
	case "pause":
		err = h.ctrl.Pause()
	case "resume":
		err = h.ctrl.Resume()
	case "clear":
		h.ctrl.Clear()
	case "step":
		f, err := h.ctrl.Step()
		if err != nil {
			httpx.Error(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, f)
		return
	default:
		httpx.Error(w, fmt.Errorf("%w: unknown action %q", httpx.ErrBadRequest, action))
		return
	}
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// load reads the requested tracks, or every stored track, and hands them to
// the scheduler.
func (h *Handler) load(r *http.Request) error {
	var req loadRequest
	if err := httpx.Decode(r, &req); err != nil {
		return err
	}
	pairs := req.Pairs
	if len(pairs) == 0 {
		keys, err := h.src.TrackKeys(r.Context())
		if err != nil {
			return err
		}
		pairs = keys
	}
	tracks, err := playback.LoadTracks(r.Context(), h.src, pairs)
	if err != nil {
		return err
	}
	if err := h.ctrl.Load(tracks); err != nil {
		return err
	}
	h.log.Infof("loaded %d tracks for playback", len(tracks))
	return nil
}

func (h *Handler) speed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	if err := h.ctrl.SetSpeed(req.Speed); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.ctrl.Snapshot())
}
