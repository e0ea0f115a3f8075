package vehiclestatus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/playback"
)

func TestMemoryStore_Filter(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{VehicleID: 2, Icon: "bus", CurrentStatus: StatusEnRoute})
	s.Set(Status{VehicleID: 1, Icon: "car", CurrentStatus: StatusArrived})
	out := s.List(Filter{Icon: "bus"})
	if len(out) != 1 || out[0].VehicleID != 2 {
		t.Fatalf("filter failed: %#v", out)
	}
	out = s.List(Filter{CurrentStatus: StatusArrived})
	if len(out) != 1 || out[0].VehicleID != 1 {
		t.Fatalf("status filter failed: %#v", out)
	}
	out = s.List(Filter{})
	require.Len(t, out, 2)
	require.Equal(t, int64(1), out[0].VehicleID)
}

func TestMemoryStore_Reset(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{VehicleID: 1})
	s.Reset()
	if out := s.List(Filter{}); len(out) != 0 {
		t.Fatalf("reset kept %#v", out)
	}
}

func TestTrackerRecordsFrames(t *testing.T) {
	s := NewMemoryStore()
	tr := NewTracker(s)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	err := tr.PublishFrame(playback.Frame{Session: "a", Positions: []playback.Position{
		{Key: model.TrackKey{VehicleID: 1, RouteID: 7}, Label: "A111AA", Icon: "car", Seq: 4, Lat: 55.7, Lon: 37.6, Timestamp: ts},
		{Key: model.TrackKey{VehicleID: 2, RouteID: 8}, Icon: "bus", Seq: 9, Done: true},
	}})
	require.NoError(t, err)

	out := s.List(Filter{})
	require.Len(t, out, 2)
	require.Equal(t, StatusEnRoute, out[0].CurrentStatus)
	require.Equal(t, int64(7), out[0].RouteID)
	require.Equal(t, 4, out[0].Seq)
	require.True(t, out[0].Timestamp.Equal(ts))
	require.Equal(t, StatusArrived, out[1].CurrentStatus)
}

func TestTrackerNewSessionResets(t *testing.T) {
	s := NewMemoryStore()
	tr := NewTracker(s)
	_ = tr.PublishFrame(playback.Frame{Session: "a", Positions: []playback.Position{{Key: model.TrackKey{VehicleID: 1, RouteID: 1}}}})
	_ = tr.PublishFrame(playback.Frame{Session: "b", Positions: []playback.Position{{Key: model.TrackKey{VehicleID: 2, RouteID: 1}}}})
	out := s.List(Filter{})
	if len(out) != 1 || out[0].VehicleID != 2 || out[0].Session != "b" {
		t.Fatalf("stale session kept: %#v", out)
	}
}
