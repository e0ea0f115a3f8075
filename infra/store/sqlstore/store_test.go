package sqlstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/internal/storetest"
)

var dbSeq atomic.Int64

func openMemory(t *testing.T) store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:fleet%d?mode=memory&cache=shared", dbSeq.Add(1))
	s, err := OpenSQLite(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, openMemory)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fleet.db")
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	storetest.Seed(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()
	vs, err := s.Vehicles(ctx)
	if err != nil {
		t.Fatalf("vehicles: %v", err)
	}
	if len(vs) != 2 {
		t.Fatalf("expected 2 vehicles after reopen, got %d", len(vs))
	}
}
