package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/infra/logger"
	"github.com/kilianp07/fleetops/infra/store/memstore"
)

func fuelStore(t *testing.T, vehicleID int64, mileage, amounts []float64) *memstore.MemoryStore {
	t.Helper()
	recs := make([]model.FuelRecord, len(mileage))
	for i := range mileage {
		recs[i] = model.FuelRecord{VehicleID: vehicleID, Date: d0.AddDate(0, 0, i), Mileage: mileage[i], Amount: amounts[i]}
	}
	s := memstore.New()
	require.NoError(t, s.InsertFuelRecords(context.Background(), recs))
	return s
}

func TestConsumptionBackwardReading(t *testing.T) {
	s := fuelStore(t, 7, []float64{10000, 10500, 10300, 11000}, []float64{40, 42, 0, 45})
	c := NewConsumptionAnalyzer(s, logger.NopLogger{})
	got, err := c.ConsumptionPer100km(context.Background(), 7, d0, d0.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, 1200.0, got.TotalDistance)
	assert.Equal(t, 127.0, got.TotalFuel)
	assert.InDelta(t, 127.0/1200*100, got.AvgPer100km, 1e-9)
	assert.Equal(t, 4, got.RecordsConsidered)
}

func TestConsumptionInsufficientData(t *testing.T) {
	for _, n := range []int{0, 1} {
		mileage := []float64{1000}[:n]
		s := fuelStore(t, 1, mileage, []float64{10}[:n])
		c := NewConsumptionAnalyzer(s, logger.NopLogger{})
		_, err := c.ConsumptionPer100km(context.Background(), 1, d0, d0.AddDate(0, 0, 5))
		if !errors.Is(err, ErrInsufficientData) {
			t.Fatalf("%d records: expected ErrInsufficientData, got %v", n, err)
		}
	}
}

func TestConsumptionNoDistance(t *testing.T) {
	s := fuelStore(t, 1, []float64{5000, 5000, 4900}, []float64{10, 20, 30})
	c := NewConsumptionAnalyzer(s, logger.NopLogger{})
	_, err := c.ConsumptionPer100km(context.Background(), 1, d0, d0.AddDate(0, 0, 5))
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.ErrorIs(t, err, ErrDegenerateInput)
}

func TestComputeConsumptionIgnoresNonPositiveSteps(t *testing.T) {
	recs := []model.FuelRecord{
		{Mileage: 100, Amount: 5},
		{Mileage: 100, Amount: 5},
		{Mileage: 50, Amount: 5},
		{Mileage: 150, Amount: 5},
	}
	got, err := ComputeConsumption(recs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalDistance != 100 {
		t.Fatalf("expected distance 100, got %v", got.TotalDistance)
	}
}

func TestConsumptionSeries(t *testing.T) {
	s := fuelStore(t, 7, []float64{10000, 10500, 10300, 11000}, []float64{40, 42, 0, 45})
	c := NewConsumptionAnalyzer(s, logger.NopLogger{})
	pts, err := c.ConsumptionSeries(context.Background(), 7, d0, d0.AddDate(0, 0, 10))
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.InDelta(t, 8.0, pts[0].LitresPer100km, 1e-9)
	assert.True(t, pts[0].Date.Equal(d0.AddDate(0, 0, 1)))
	assert.InDelta(t, 0.0, pts[1].LitresPer100km, 1e-9)

	s = fuelStore(t, 7, []float64{100, 90}, []float64{1, 1})
	c = NewConsumptionAnalyzer(s, logger.NopLogger{})
	_, err = c.ConsumptionSeries(context.Background(), 7, d0, d0.AddDate(0, 0, 10))
	assert.ErrorIs(t, err, ErrInsufficientData)
}
