// Package storetest holds the behaviour every store.Store implementation
// must share. Backends run it from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

// Day0 is the reference date of the fixture.
var Day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// Seed loads a small fleet: two vehicles, two routes, dated records for
// vehicle 1 and one task pointing at a missing route.
func Seed(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.InsertVehicles(ctx, []model.Vehicle{
		{ID: 1, RegistrationNumber: "B222BB", Brand: "Ford", Model: "Transit", Year: 2020, Type: "Грузовой"},
		{ID: 2, RegistrationNumber: "A111AA", Brand: "Lada", Model: "Vesta", Year: 2021, Type: "Легковой"},
	}))
	require.NoError(t, s.InsertRoutes(ctx, []model.Route{
		{ID: 10, VehicleID: 1, StartLocation: "Москва", EndLocation: "Тула",
			Start: model.Coordinate{Lat: 55.7558, Lon: 37.6176}, End: model.Coordinate{Lat: 54.1931, Lon: 37.6177},
			Distance: 180, EstimatedTime: 150},
		{ID: 11, VehicleID: 2, StartLocation: "Казань", EndLocation: "Самара", Distance: 350, EstimatedTime: 300},
	}))
	require.NoError(t, s.InsertFuelRecords(ctx, []model.FuelRecord{
		{VehicleID: 1, FuelType: "Diesel", Date: Day0.AddDate(0, 0, 2), Amount: 42, Cost: 2100, Mileage: 10500},
		{VehicleID: 1, FuelType: "Diesel", Date: Day0, Amount: 40, Cost: 2000, Mileage: 10000},
		{VehicleID: 2, FuelType: "AI-95", Date: Day0.AddDate(0, 0, 1), Amount: 30, Cost: 1500, Mileage: 5000},
		{VehicleID: 1, FuelType: "Diesel", Date: Day0.AddDate(0, 1, 0), Amount: 45, Cost: 2250, Mileage: 11000},
	}))
	require.NoError(t, s.InsertMaintenanceRecords(ctx, []model.MaintenanceRecord{
		{VehicleID: 1, Kind: "ТО", Description: "oil", Date: Day0.AddDate(0, 0, 5), Cost: 5000},
		{VehicleID: 1, Kind: "Ремонт", Description: "brakes", Date: Day0, Cost: 12000},
	}))
	require.NoError(t, s.InsertTasks(ctx, []model.Task{
		{VehicleID: 1, RouteID: 10, StartTime: Day0.Add(8 * time.Hour)},
		{VehicleID: 1, RouteID: 99, StartTime: Day0.Add(9 * time.Hour)},
		{VehicleID: 2, RouteID: 11, StartTime: Day0.AddDate(0, 0, 3)},
	}))
	require.NoError(t, s.InsertConsumptionSamples(ctx, []model.ConsumptionSample{
		{VehicleID: 1, Timestamp: Day0.Add(time.Hour), ConsumptionRate: 9, CurrentLevel: 50},
		{VehicleID: 1, Timestamp: Day0.Add(2 * time.Hour), ConsumptionRate: 11, CurrentLevel: 45},
	}))
}

// Run executes the shared suite. open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("Lookups", func(t *testing.T) { testLookups(t, open(t)) })
	t.Run("DatedQueries", func(t *testing.T) { testDatedQueries(t, open(t)) })
	t.Run("Tasks", func(t *testing.T) { testTasks(t, open(t)) })
	t.Run("Tracks", func(t *testing.T) { testTracks(t, open(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, open(t)) })
}

func testLookups(t *testing.T, s store.Store) {
	Seed(t, s)
	ctx := context.Background()

	vs, err := s.Vehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, int64(1), vs[0].ID)

	v, err := s.Vehicle(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "A111AA", v.RegistrationNumber)
	assert.Equal(t, 2021, v.Year)

	_, err = s.Vehicle(ctx, 42)
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	r, err := s.Route(ctx, 10)
	require.NoError(t, err)
	assert.InDelta(t, 55.7558, r.Start.Lat, 1e-9)
	assert.InDelta(t, 180, r.Distance, 1e-9)

	_, err = s.Route(ctx, 99)
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	rs, err := s.Routes(ctx)
	require.NoError(t, err)
	assert.Len(t, rs, 2)
}

func testDatedQueries(t *testing.T, s store.Store) {
	Seed(t, s)
	ctx := context.Background()

	fuel, err := s.FuelRecords(ctx, store.Query{VehicleID: 1})
	require.NoError(t, err)
	require.Len(t, fuel, 3)
	assert.Equal(t, 10000.0, fuel[0].Mileage)
	assert.Equal(t, 11000.0, fuel[2].Mileage)
	assert.True(t, fuel[0].Date.Equal(Day0))

	// inclusive bounds
	fuel, err = s.FuelRecords(ctx, store.Query{VehicleID: 1, Start: Day0, End: Day0.AddDate(0, 0, 2)})
	require.NoError(t, err)
	assert.Len(t, fuel, 2)

	all, err := s.FuelRecords(ctx, store.Query{AllVehicles: true})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := s.FuelRecords(ctx, store.Query{})
	require.NoError(t, err)
	assert.Empty(t, none, "vehicle id 0 selects no records")

	m, err := s.MaintenanceRecords(ctx, store.Query{VehicleID: 1})
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.Equal(t, "Ремонт", m[0].Kind)

	m, err = s.MaintenanceRecords(ctx, store.Query{VehicleID: 1, Start: Day0.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.Len(t, m, 1)

	samples, err := s.ConsumptionSamples(ctx, store.Query{VehicleID: 1, End: Day0.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 9.0, samples[0].ConsumptionRate)
}

func testTasks(t *testing.T, s store.Store) {
	Seed(t, s)
	ctx := context.Background()

	tasks, err := s.Tasks(ctx, store.Query{VehicleID: 1})
	require.NoError(t, err)
	require.Len(t, tasks, 1, "task with a missing route is skipped")
	assert.Equal(t, int64(10), tasks[0].Route.ID)
	assert.InDelta(t, 150, tasks[0].Route.EstimatedTime, 1e-9)

	tasks, err = s.Tasks(ctx, store.Query{AllVehicles: true, Start: Day0.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(2), tasks[0].VehicleID)
}

func points(key model.TrackKey, n int, at time.Time) []model.TrackPoint {
	pts := make([]model.TrackPoint, n)
	for i := range pts {
		pts[i] = model.TrackPoint{
			VehicleID: key.VehicleID, RouteID: key.RouteID, Seq: i,
			Lat: 55 + float64(i)*0.01, Lon: 37, Timestamp: at,
		}
	}
	return pts
}

func testTracks(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := model.TrackKey{VehicleID: 1, RouteID: 10}
	b := model.TrackKey{VehicleID: 2, RouteID: 11}
	at := Day0.Add(time.Minute)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertTrackPoints(ctx, points(a, 3, at)); err != nil {
			return err
		}
		return tx.InsertTrackPoints(ctx, points(b, 2, at))
	})
	require.NoError(t, err)

	speed := 42.0
	pts := points(a, 4, at)
	pts[1].Speed = &speed
	err = s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.DeleteTrack(ctx, a); err != nil {
			return err
		}
		return tx.InsertTrackPoints(ctx, pts)
	})
	require.NoError(t, err)

	got, err := s.TrackPoints(ctx, a)
	require.NoError(t, err)
	require.Len(t, got, 4, "no residue of the previous track")
	for i, p := range got {
		assert.Equal(t, i, p.Seq)
		assert.True(t, p.Timestamp.Equal(at))
	}
	require.NotNil(t, got[1].Speed)
	assert.Equal(t, 42.0, *got[1].Speed)
	assert.Nil(t, got[0].Speed)
	assert.Nil(t, got[0].FuelLevel)

	n, err := s.CountTrackPoints(ctx, &b)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = s.CountTrackPoints(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	keys, err := s.TrackKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.TrackKey{a, b}, keys)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error { return tx.DeleteAllTracks(ctx) }))
	n, err = s.CountTrackPoints(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := model.TrackKey{VehicleID: 1, RouteID: 10}
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertTrackPoints(ctx, points(key, 3, Day0))
	}))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.DeleteTrack(ctx, key); err != nil {
			return err
		}
		if err := tx.InsertTrackPoints(ctx, points(key, 1, Day0)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := s.CountTrackPoints(ctx, &key)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "previous track survives a failed transaction")
}
