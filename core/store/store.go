// Package store defines the persistence collaborator used by the analytics
// and track synthesis components. Implementations live under infra/store.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/fleetops/core/model"
)

// ErrNotFound is returned when a referenced vehicle or route does not exist.
var ErrNotFound = errors.New("not found")

// Query filters dated records of VehicleID, or of the whole fleet when
// AllVehicles is set. A zero Start or End leaves that side of the range
// open. Bounds are inclusive.
type Query struct {
	VehicleID   int64
	AllVehicles bool
	Start       time.Time
	End         time.Time
}

// Contains reports whether t falls inside the query range.
func (q Query) Contains(t time.Time) bool {
	if !q.Start.IsZero() && t.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && t.After(q.End) {
		return false
	}
	return true
}

// Matches reports whether the record of vehicleID dated t is selected.
func (q Query) Matches(vehicleID int64, t time.Time) bool {
	if !q.AllVehicles && q.VehicleID != vehicleID {
		return false
	}
	return q.Contains(t)
}

// Reader gives read access to the fleet records. Dated records are returned
// in ascending date order.
type Reader interface {
	Vehicles(ctx context.Context) ([]model.Vehicle, error)
	Vehicle(ctx context.Context, id int64) (model.Vehicle, error)
	Routes(ctx context.Context) ([]model.Route, error)
	Route(ctx context.Context, id int64) (model.Route, error)
	FuelRecords(ctx context.Context, q Query) ([]model.FuelRecord, error)
	MaintenanceRecords(ctx context.Context, q Query) ([]model.MaintenanceRecord, error)
	// Tasks returns tasks whose start time is in range, joined with their
	// route. Tasks referencing a missing route are skipped.
	Tasks(ctx context.Context, q Query) ([]model.Task, error)
	ConsumptionSamples(ctx context.Context, q Query) ([]model.ConsumptionSample, error)
}

// TrackReader reads synthesized tracks.
type TrackReader interface {
	// TrackPoints returns the points of a track ordered by Seq.
	TrackPoints(ctx context.Context, key model.TrackKey) ([]model.TrackPoint, error)
	// CountTrackPoints counts the points of one track, or of all tracks when
	// key is nil.
	CountTrackPoints(ctx context.Context, key *model.TrackKey) (int, error)
	// TrackKeys lists the stored tracks ordered by vehicle then route.
	TrackKeys(ctx context.Context) ([]model.TrackKey, error)
}

// Tx mutates tracks inside a transaction.
type Tx interface {
	DeleteTrack(ctx context.Context, key model.TrackKey) error
	DeleteAllTracks(ctx context.Context) error
	InsertTrackPoints(ctx context.Context, pts []model.TrackPoint) error
}

// TrackStore reads tracks and runs track mutations atomically. WithTx
// commits when fn returns nil and rolls back otherwise.
type TrackStore interface {
	TrackReader
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Seeder bulk-inserts fleet records. It backs the seed command and tests.
type Seeder interface {
	InsertVehicles(ctx context.Context, vs []model.Vehicle) error
	InsertRoutes(ctx context.Context, rs []model.Route) error
	InsertFuelRecords(ctx context.Context, rs []model.FuelRecord) error
	InsertMaintenanceRecords(ctx context.Context, rs []model.MaintenanceRecord) error
	InsertTasks(ctx context.Context, ts []model.Task) error
	InsertConsumptionSamples(ctx context.Context, ss []model.ConsumptionSample) error
}

// Store is the full persistence collaborator.
type Store interface {
	Reader
	TrackStore
	Seeder
	Close() error
}
