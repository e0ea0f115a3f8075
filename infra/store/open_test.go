package infrastore

import (
	"context"
	"testing"

	"github.com/kilianp07/fleetops/infra/store/memstore"
	"github.com/kilianp07/fleetops/infra/store/sqlstore"
)

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "memory", "")
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*memstore.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}

	s, err = Open(ctx, "sqlite", "file:open_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer func() { _ = s.Close() }()
	if _, ok := s.(*sqlstore.Store); !ok {
		t.Fatalf("expected sql store, got %T", s)
	}

	if _, err := Open(ctx, "oracle", ""); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
