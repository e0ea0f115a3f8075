// Package vehiclestatus keeps the latest replayed position of every vehicle.
package vehiclestatus

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/fleetops/core/analytics"
	"github.com/kilianp07/fleetops/core/playback"
)

const (
	StatusEnRoute = "en_route"
	StatusArrived = "arrived"
)

// Status is the live view of one vehicle during playback.
type Status struct {
	VehicleID     int64     `json:"vehicle_id"`
	RouteID       int64     `json:"route_id"`
	Label         string    `json:"label"`
	Icon          string    `json:"icon"`
	CurrentStatus string    `json:"current_status"`
	Seq           int       `json:"seq"`
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	Speed         *float64  `json:"speed,omitempty"`
	FuelLevel     *float64  `json:"fuel_level,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Session       string    `json:"session"`

	Maintenance *analytics.MaintenanceForecast `json:"maintenance,omitempty"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Icon          string
	CurrentStatus string
}

// Store holds vehicle statuses.
type Store interface {
	Set(Status)
	List(Filter) []Status
	Reset()
}

// MemoryStore is an in-memory Store safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[int64]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[int64]Status)}
}

func (m *MemoryStore) Set(st Status) {
	m.mu.Lock()
	m.data[st.VehicleID] = st
	m.mu.Unlock()
}

func (m *MemoryStore) Reset() {
	m.mu.Lock()
	m.data = make(map[int64]Status)
	m.mu.Unlock()
}

// List returns the matching statuses ordered by vehicle id.
func (m *MemoryStore) List(f Filter) []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Status, 0, len(m.data))
	for _, st := range m.data {
		if f.Icon != "" && st.Icon != f.Icon {
			continue
		}
		if f.CurrentStatus != "" && st.CurrentStatus != f.CurrentStatus {
			continue
		}
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].VehicleID < res[j].VehicleID })
	return res
}

// Tracker is a playback.FrameSink that records every frame into a Store.
// A frame from a new session drops the statuses of the previous one.
type Tracker struct {
	store Store

	mu      sync.Mutex
	session string
}

func NewTracker(s Store) *Tracker {
	return &Tracker{store: s}
}

func (t *Tracker) PublishFrame(f playback.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f.Session != t.session {
		t.store.Reset()
		t.session = f.Session
	}
	for _, p := range f.Positions {
		st := Status{
			VehicleID:     p.Key.VehicleID,
			RouteID:       p.Key.RouteID,
			Label:         p.Label,
			Icon:          p.Icon,
			CurrentStatus: StatusEnRoute,
			Seq:           p.Seq,
			Lat:           p.Lat,
			Lon:           p.Lon,
			Speed:         p.Speed,
			FuelLevel:     p.FuelLevel,
			Timestamp:     p.Timestamp,
			Session:       f.Session,
		}
		if p.Done {
			st.CurrentStatus = StatusArrived
		}
		t.store.Set(st)
	}
	return nil
}
