package memstore

import (
	"context"
	"testing"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/internal/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestWithTxCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	err := s.WithTx(ctx, func(tx store.Tx) error {
		cancel()
		return tx.InsertTrackPoints(ctx, []model.TrackPoint{{VehicleID: 1, RouteID: 1}})
	})
	if err == nil {
		t.Fatalf("expected context error")
	}
	n, _ := s.CountTrackPoints(context.Background(), nil)
	if n != 0 {
		t.Fatalf("cancelled transaction must not commit, got %d points", n)
	}
}

func TestAutoIDs(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.InsertFuelRecords(ctx, []model.FuelRecord{{VehicleID: 1}, {VehicleID: 1}}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	recs, _ := s.FuelRecords(ctx, store.Query{AllVehicles: true})
	if len(recs) != 2 || recs[0].ID == 0 || recs[0].ID == recs[1].ID {
		t.Fatalf("ids not assigned: %+v", recs)
	}
}
