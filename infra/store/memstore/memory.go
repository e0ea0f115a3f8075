// Package memstore keeps fleet records and tracks in memory. It is used for
// local runs without a database and as the reference store in tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

// MemoryStore implements store.Store.
type MemoryStore struct {
	mu          sync.RWMutex
	vehicles    map[int64]model.Vehicle
	routes      map[int64]model.Route
	fuel        []model.FuelRecord
	maintenance []model.MaintenanceRecord
	tasks       []model.Task
	samples     []model.ConsumptionSample
	tracks      map[model.TrackKey][]model.TrackPoint
	nextID      int64
}

var _ store.Store = (*MemoryStore)(nil)

// New returns an empty MemoryStore.
func New() *MemoryStore {
	return &MemoryStore{
		vehicles: map[int64]model.Vehicle{},
		routes:   map[int64]model.Route{},
		tracks:   map[model.TrackKey][]model.TrackPoint{},
	}
}

func (s *MemoryStore) id(current int64) int64 {
	if current != 0 {
		if current > s.nextID {
			s.nextID = current
		}
		return current
	}
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) Vehicles(_ context.Context) ([]model.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		res = append(res, v)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) Vehicle(_ context.Context, id int64) (model.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	if !ok {
		return model.Vehicle{}, fmt.Errorf("vehicle %d: %w", id, store.ErrNotFound)
	}
	return v, nil
}

func (s *MemoryStore) Routes(_ context.Context) ([]model.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Route, 0, len(s.routes))
	for _, r := range s.routes {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) Route(_ context.Context, id int64) (model.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routes[id]
	if !ok {
		return model.Route{}, fmt.Errorf("route %d: %w", id, store.ErrNotFound)
	}
	return r, nil
}

func (s *MemoryStore) FuelRecords(_ context.Context, q store.Query) ([]model.FuelRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.FuelRecord
	for _, r := range s.fuel {
		if q.Matches(r.VehicleID, r.Date) {
			res = append(res, r)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Date.Before(res[j].Date) })
	return res, nil
}

func (s *MemoryStore) MaintenanceRecords(_ context.Context, q store.Query) ([]model.MaintenanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.MaintenanceRecord
	for _, r := range s.maintenance {
		if q.Matches(r.VehicleID, r.Date) {
			res = append(res, r)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Date.Before(res[j].Date) })
	return res, nil
}

func (s *MemoryStore) Tasks(_ context.Context, q store.Query) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.Task
	for _, t := range s.tasks {
		if !q.Matches(t.VehicleID, t.StartTime) {
			continue
		}
		r, ok := s.routes[t.RouteID]
		if !ok {
			continue
		}
		t.Route = r
		res = append(res, t)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].StartTime.Before(res[j].StartTime) })
	return res, nil
}

func (s *MemoryStore) ConsumptionSamples(_ context.Context, q store.Query) ([]model.ConsumptionSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.ConsumptionSample
	for _, c := range s.samples {
		if q.Matches(c.VehicleID, c.Timestamp) {
			res = append(res, c)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Timestamp.Before(res[j].Timestamp) })
	return res, nil
}

func (s *MemoryStore) TrackPoints(_ context.Context, key model.TrackKey) ([]model.TrackPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pts := s.tracks[key]
	res := make([]model.TrackPoint, len(pts))
	copy(res, pts)
	sort.SliceStable(res, func(i, j int) bool { return res[i].Seq < res[j].Seq })
	return res, nil
}

func (s *MemoryStore) CountTrackPoints(_ context.Context, key *model.TrackKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key != nil {
		return len(s.tracks[*key]), nil
	}
	n := 0
	for _, pts := range s.tracks {
		n += len(pts)
	}
	return n, nil
}

func (s *MemoryStore) TrackKeys(_ context.Context) ([]model.TrackKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]model.TrackKey, 0, len(s.tracks))
	for k, pts := range s.tracks {
		if len(pts) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].VehicleID != keys[j].VehicleID {
			return keys[i].VehicleID < keys[j].VehicleID
		}
		return keys[i].RouteID < keys[j].RouteID
	})
	return keys, nil
}

// WithTx runs fn against a copy of the track table and swaps it in when fn
// succeeds. Writers are serialized.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := make(map[model.TrackKey][]model.TrackPoint, len(s.tracks))
	for k, v := range s.tracks {
		work[k] = v
	}
	if err := fn(&memTx{tracks: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.tracks = work
	return nil
}

type memTx struct {
	tracks map[model.TrackKey][]model.TrackPoint
}

func (t *memTx) DeleteTrack(_ context.Context, key model.TrackKey) error {
	delete(t.tracks, key)
	return nil
}

func (t *memTx) DeleteAllTracks(_ context.Context) error {
	for k := range t.tracks {
		delete(t.tracks, k)
	}
	return nil
}

func (t *memTx) InsertTrackPoints(_ context.Context, pts []model.TrackPoint) error {
	for _, p := range pts {
		k := p.Key()
		// copy on first write so the committed slice is never aliased
		cur := t.tracks[k]
		next := make([]model.TrackPoint, len(cur), len(cur)+1)
		copy(next, cur)
		t.tracks[k] = append(next, p)
	}
	return nil
}

func (s *MemoryStore) InsertVehicles(_ context.Context, vs []model.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vs {
		v.ID = s.id(v.ID)
		s.vehicles[v.ID] = v
	}
	return nil
}

func (s *MemoryStore) InsertRoutes(_ context.Context, rs []model.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rs {
		r.ID = s.id(r.ID)
		s.routes[r.ID] = r
	}
	return nil
}

func (s *MemoryStore) InsertFuelRecords(_ context.Context, rs []model.FuelRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rs {
		r.ID = s.id(r.ID)
		s.fuel = append(s.fuel, r)
	}
	return nil
}

func (s *MemoryStore) InsertMaintenanceRecords(_ context.Context, rs []model.MaintenanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rs {
		r.ID = s.id(r.ID)
		s.maintenance = append(s.maintenance, r)
	}
	return nil
}

func (s *MemoryStore) InsertTasks(_ context.Context, ts []model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range ts {
		t.ID = s.id(t.ID)
		t.Route = model.Route{}
		s.tasks = append(s.tasks, t)
	}
	return nil
}

func (s *MemoryStore) InsertConsumptionSamples(_ context.Context, ss []model.ConsumptionSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, ss...)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
