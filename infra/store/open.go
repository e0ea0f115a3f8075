// Package infrastore opens the configured store.Store backend.
package infrastore

import (
	"context"
	"fmt"
	"strings"

	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/infra/store/memstore"
	"github.com/kilianp07/fleetops/infra/store/sqlstore"
)

// Open returns the store for backend. The memory backend ignores dsn.
func Open(ctx context.Context, backend, dsn string) (store.Store, error) {
	if strings.EqualFold(backend, "memory") || backend == "" {
		return memstore.New(), nil
	}
	d, err := sqlstore.DialectFor(backend)
	if err != nil {
		return nil, err
	}
	s, err := sqlstore.Open(ctx, d, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	return s, nil
}
