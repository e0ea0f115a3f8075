package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/analytics"
	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/infra/logger"
	"github.com/kilianp07/fleetops/infra/store/memstore"
)

var d0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

type recorder struct {
	mu  sync.Mutex
	evs []coremetrics.ReportEvent
}

func (r *recorder) RecordReport(ev coremetrics.ReportEvent) error {
	r.mu.Lock()
	r.evs = append(r.evs, ev)
	r.mu.Unlock()
	return nil
}

func router(t *testing.T, rec coremetrics.ReportRecorder) *mux.Router {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.InsertVehicles(ctx, []model.Vehicle{
		{ID: 1, RegistrationNumber: "А001АА"},
		{ID: 2, RegistrationNumber: "В002ВВ"},
	}))
	require.NoError(t, s.InsertFuelRecords(ctx, []model.FuelRecord{
		{VehicleID: 1, Date: d0, Amount: 40, Cost: 2000, Mileage: 1000},
		{VehicleID: 1, Date: d0.AddDate(0, 0, 10), Amount: 30, Cost: 1500, Mileage: 1400},
		{VehicleID: 1, Date: d0.AddDate(0, 0, 20), Amount: 30, Cost: 1500, Mileage: 1800},
		{VehicleID: 2, Date: d0.AddDate(0, 0, 3), Amount: 50, Cost: 2600, Mileage: 300},
	}))
	require.NoError(t, s.InsertMaintenanceRecords(ctx, []model.MaintenanceRecord{
		{VehicleID: 1, Date: d0, Cost: 700},
		{VehicleID: 1, Date: d0.AddDate(0, 0, 30), Cost: 300},
	}))
	clock := func() time.Time { return d0.AddDate(0, 0, 40) }
	r := mux.NewRouter()
	NewHandler(s, rec, logger.NopLogger{}, analytics.WithClock(clock)).Register(r)
	return r
}

func get(r http.Handler, url string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
	return rr
}

func TestCost(t *testing.T) {
	rec := &recorder{}
	rr := get(router(t, rec), "/api/analytics/vehicles/1/cost?start=2024-05-01&end=2024-05-11")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got analytics.CostSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, analytics.CostSummary{FuelCost: 3500, MaintenanceCost: 700, TotalCost: 4200}, got)
	require.Len(t, rec.evs, 1)
	assert.Equal(t, coremetrics.ReportEvent{Kind: "cost", VehicleID: 1, Outcome: "ok", Time: rec.evs[0].Time}, rec.evs[0])
}

func TestConsumption(t *testing.T) {
	r := router(t, nil)
	rr := get(r, "/api/analytics/vehicles/1/consumption")
	require.Equal(t, http.StatusOK, rr.Code)
	var got analytics.Consumption
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.InDelta(t, 12.5, got.AvgPer100km, 1e-9)

	rr = get(r, "/api/analytics/vehicles/2/consumption")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.JSONEq(t, `{"error":"insufficient data"}`, rr.Body.String())
}

func TestConsumptionChart(t *testing.T) {
	r := router(t, nil)
	rr := get(r, "/api/analytics/vehicles/1/consumption/chart")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "vehicle 1")

	rr = get(r, "/api/analytics/vehicles/2/consumption/chart")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestForecastEndpoints(t *testing.T) {
	rec := &recorder{}
	r := router(t, rec)
	rr := get(r, "/api/analytics/vehicles/1/forecast")
	require.Equal(t, http.StatusOK, rr.Code)
	var fc analytics.MaintenanceForecast
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fc))
	assert.Equal(t, d0.AddDate(0, 0, 60), fc.PredictedNext)
	assert.Equal(t, 20, fc.DaysUntil)

	rr = get(r, "/api/analytics/vehicles/1/failure-probability?horizon_days=10")
	require.Equal(t, http.StatusOK, rr.Code)
	var p probability
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, 10, p.HorizonDays)
	assert.Greater(t, p.Probability, 0.0)
	assert.Less(t, p.Probability, 1.0)

	rr = get(r, "/api/analytics/vehicles/2/forecast")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "insufficient_data", rec.evs[len(rec.evs)-1].Outcome)

	rr = get(r, "/api/analytics/vehicles/1/failure-probability?horizon_days=soon")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReport(t *testing.T) {
	r := router(t, nil)
	rr := get(r, "/api/analytics/reports/fuel?start=2024-05-01&end=2024-05-31")
	require.Equal(t, http.StatusOK, rr.Code)
	var rows []analytics.ReportRow
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	require.Len(t, rows, 2)

	rr = get(r, "/api/analytics/reports/maintenance?format=csv")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "vehicle_id,registration_number,total_records,total_cost"))

	rr = get(r, "/api/analytics/reports/fuel?start=2030-01-01")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))

	assert.Equal(t, http.StatusUnprocessableEntity, get(r, "/api/analytics/reports/emissions").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/analytics/reports/fuel?format=xml").Code)
}

func TestBadParameters(t *testing.T) {
	r := router(t, nil)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/analytics/vehicles/abc/cost").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/analytics/vehicles/1/efficiency?start=last-week").Code)
}
