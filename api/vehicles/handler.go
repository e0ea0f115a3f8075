// Package vehicles serves the live status of the replayed fleet.
package vehicles

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kilianp07/fleetops/api/httpx"
	"github.com/kilianp07/fleetops/core/analytics"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/core/vehiclestatus"
)

// MaintenanceForecaster predicts the next service of a vehicle.
type MaintenanceForecaster interface {
	PredictNextMaintenance(ctx context.Context, vehicleID int64) (analytics.MaintenanceForecast, error)
}

// NewStatusHandler returns an HTTP handler exposing vehicle statuses via
// GET /api/vehicles/status. fc may be nil.
func NewStatusHandler(statuses vehiclestatus.Store, fc MaintenanceForecaster, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		f := vehiclestatus.Filter{
			Icon:          r.URL.Query().Get("icon"),
			CurrentStatus: r.URL.Query().Get("status"),
		}
		entries := statuses.List(f)
		if fc != nil {
			for i := range entries {
				m, err := fc.PredictNextMaintenance(r.Context(), entries[i].VehicleID)
				switch {
				case err == nil:
					entries[i].Maintenance = &m
				case errors.Is(err, analytics.ErrInsufficientData), errors.Is(err, store.ErrNotFound):
				default:
					log.Warnf("maintenance forecast for vehicle %d: %v", entries[i].VehicleID, err)
				}
			}
		}
		httpx.JSON(w, http.StatusOK, entries)
	})
}

// Register mounts the status handler on r.
func Register(r *mux.Router, statuses vehiclestatus.Store, fc MaintenanceForecaster, log logger.Logger) {
	r.Handle("/api/vehicles/status", NewStatusHandler(statuses, fc, log)).Methods(http.MethodGet)
}
