// Package analytics exposes the fleet figures over HTTP.
package analytics

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kilianp07/fleetops/api/httpx"
	"github.com/kilianp07/fleetops/core/analytics"
	"github.com/kilianp07/fleetops/core/logger"
	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/pkg/export"
)

const defaultHorizonDays = 30

// Handler serves the analytics endpoints under /api/analytics.
type Handler struct {
	agg      *analytics.Aggregator
	cons     *analytics.ConsumptionAnalyzer
	forecast *analytics.Forecaster
	rec      coremetrics.ReportRecorder
	log      logger.Logger
	now      func() time.Time
}

// NewHandler builds the analytics components on top of r. rec may be nil.
func NewHandler(r store.Reader, rec coremetrics.ReportRecorder, log logger.Logger, opts ...analytics.ForecasterOption) *Handler {
	if rec == nil {
		rec = coremetrics.NopSink{}
	}
	return &Handler{
		agg:      analytics.NewAggregator(r, log),
		cons:     analytics.NewConsumptionAnalyzer(r, log),
		forecast: analytics.NewForecaster(r, log, opts...),
		rec:      rec,
		log:      log,
		now:      time.Now,
	}
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r *mux.Router) {
	s := r.PathPrefix("/api/analytics").Subrouter()
	s.HandleFunc("/vehicles/{id}/cost", h.cost).Methods(http.MethodGet)
	s.HandleFunc("/vehicles/{id}/efficiency", h.efficiency).Methods(http.MethodGet)
	s.HandleFunc("/vehicles/{id}/consumption", h.consumption).Methods(http.MethodGet)
	s.HandleFunc("/vehicles/{id}/consumption/chart", h.consumptionChart).Methods(http.MethodGet)
	s.HandleFunc("/vehicles/{id}/forecast", h.maintenance).Methods(http.MethodGet)
	s.HandleFunc("/vehicles/{id}/failure-probability", h.failureProbability).Methods(http.MethodGet)
	s.HandleFunc("/reports/{kind}", h.report).Methods(http.MethodGet)
}

// vehicleRange reads the vehicle id and the optional date range.
func vehicleRange(r *http.Request) (int64, time.Time, time.Time, error) {
	id, err := httpx.PathInt(r, "id")
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	start, end, err := httpx.Range(r)
	return id, start, end, err
}

func (h *Handler) cost(w http.ResponseWriter, r *http.Request) {
	id, start, end, err := vehicleRange(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	res, err := h.agg.TransportationCost(r.Context(), id, start, end)
	h.respond(w, "cost", id, res, err)
}

func (h *Handler) efficiency(w http.ResponseWriter, r *http.Request) {
	id, start, end, err := vehicleRange(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	res, err := h.agg.VehicleEfficiency(r.Context(), id, start, end)
	h.respond(w, "efficiency", id, res, err)
}

func (h *Handler) consumption(w http.ResponseWriter, r *http.Request) {
	id, start, end, err := vehicleRange(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	res, err := h.cons.ConsumptionPer100km(r.Context(), id, start, end)
	h.respond(w, "consumption", id, res, err)
}

func (h *Handler) consumptionChart(w http.ResponseWriter, r *http.Request) {
	id, start, end, err := vehicleRange(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	series, err := h.cons.ConsumptionSeries(r.Context(), id, start, end)
	if err != nil {
		h.respond(w, "consumption_chart", id, nil, err)
		return
	}
	html, err := export.FuelChartHTML(fmt.Sprintf("Fuel consumption, vehicle %d", id), series)
	if err != nil {
		h.respond(w, "consumption_chart", id, nil, err)
		return
	}
	h.record("consumption_chart", id, nil)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (h *Handler) maintenance(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	res, err := h.forecast.PredictNextMaintenance(r.Context(), id)
	h.respond(w, "maintenance_forecast", id, res, err)
}

type probability struct {
	VehicleID   int64   `json:"vehicle_id"`
	HorizonDays int     `json:"horizon_days"`
	Probability float64 `json:"failure_probability"`
}

func (h *Handler) failureProbability(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	horizon := defaultHorizonDays
	if s := r.URL.Query().Get("horizon_days"); s != "" {
		horizon, err = strconv.Atoi(s)
		if err != nil || horizon < 0 {
			httpx.Error(w, fmt.Errorf("%w: invalid horizon_days %q", httpx.ErrBadRequest, s))
			return
		}
	}
	p, err := h.forecast.FailureProbability(r.Context(), id, horizon)
	h.respond(w, "failure_probability", id, probability{VehicleID: id, HorizonDays: horizon, Probability: p}, err)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	kind, err := analytics.ParseReportKind(mux.Vars(r)["kind"])
	if err != nil {
		h.respond(w, "report", 0, nil, err)
		return
	}
	start, end, err := httpx.Range(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	rows, err := h.agg.RegulatoryReport(r.Context(), kind, start, end)
	if err != nil {
		h.respond(w, "report_"+kind.String(), 0, nil, err)
		return
	}

	var buf bytes.Buffer
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		err = export.WriteReportJSON(&buf, rows)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_report.csv"`, kind))
		err = export.WriteReportCSV(&buf, kind, rows)
	default:
		httpx.Error(w, fmt.Errorf("%w: unknown format %q", httpx.ErrBadRequest, format))
		return
	}
	if err != nil {
		w.Header().Del("Content-Disposition")
		h.respond(w, "report_"+kind.String(), 0, nil, err)
		return
	}
	h.record("report_"+kind.String(), 0, nil)
	_, _ = w.Write(buf.Bytes())
}

// respond writes v, or the error, and records the outcome.
func (h *Handler) respond(w http.ResponseWriter, kind string, vehicleID int64, v any, err error) {
	h.record(kind, vehicleID, err)
	if err != nil {
		if code, _ := httpx.Status(err); code == http.StatusInternalServerError {
			h.log.Errorf("%s for vehicle %d: %v", kind, vehicleID, err)
		}
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) record(kind string, vehicleID int64, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, analytics.ErrInsufficientData), errors.Is(err, analytics.ErrDegenerateInput):
		outcome = "insufficient_data"
	default:
		outcome = "error"
	}
	if rerr := h.rec.RecordReport(coremetrics.ReportEvent{Kind: kind, VehicleID: vehicleID, Outcome: outcome, Time: h.now()}); rerr != nil {
		h.log.Warnf("record report event: %v", rerr)
	}
}
