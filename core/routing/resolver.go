// Package routing resolves the road geometry between two coordinates through
// an external routing service, with a bounded cache in front of it.
package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/kilianp07/fleetops/core/logger"
	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
)

// ErrUnavailable is returned when no geometry could be obtained. Callers are
// expected to fall back to a synthetic path.
var ErrUnavailable = errors.New("route geometry unavailable")

// Router is the routing service. It returns the driving path from one
// coordinate to another in travel order.
type Router interface {
	Route(ctx context.Context, from, to model.Coordinate) ([]model.Coordinate, error)
}

// keyDecimals is the precision of the cache key, about one metre.
const keyDecimals = 5

type cacheKey struct {
	from, to model.Coordinate
}

func keyOf(from, to model.Coordinate) cacheKey {
	return cacheKey{from: from.Round(keyDecimals), to: to.Round(keyDecimals)}
}

func (k cacheKey) String() string { return k.from.String() + ";" + k.to.String() }

// Resolver caches the geometries returned by a Router.
type Resolver struct {
	router    Router
	cache     *expirable.LRU[cacheKey, []model.Coordinate]
	group     singleflight.Group
	timeout   time.Duration
	maxPoints int
	log       logger.Logger
	metrics   coremetrics.Sink
}

// NewResolver returns a Resolver in front of router. cfg defaults are
// applied.
func NewResolver(router Router, cfg Config, log logger.Logger, sink coremetrics.Sink) *Resolver {
	cfg.SetDefaults()
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Resolver{
		router:    router,
		cache:     expirable.NewLRU[cacheKey, []model.Coordinate](cfg.CacheSize, nil, cfg.CacheTTL()),
		timeout:   cfg.Timeout(),
		maxPoints: cfg.MaxPoints,
		log:       log,
		metrics:   sink,
	}
}

// Resolve returns the geometry from one coordinate to the other. Endpoints
// equal to five decimals share a cache entry and concurrent misses on the
// same entry issue a single call. Any failure yields ErrUnavailable.
func (r *Resolver) Resolve(ctx context.Context, from, to model.Coordinate) ([]model.Coordinate, error) {
	key := keyOf(from, to)
	if pts, ok := r.cache.Get(key); ok {
		r.record(coremetrics.LookupHit, len(pts), 0)
		return clone(pts), nil
	}

	ch := r.group.DoChan(key.String(), func() (any, error) {
		if pts, ok := r.cache.Get(key); ok {
			return pts, nil
		}
		// detached from the caller: other waiters share this call
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		start := time.Now()
		pts, err := r.router.Route(callCtx, from, to)
		latency := time.Since(start)
		if err == nil && len(pts) == 0 {
			err = errors.New("empty geometry")
		}
		if err != nil {
			r.record(coremetrics.LookupUnavailable, 0, latency)
			r.log.Warnf("route %s unavailable: %v", key, err)
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		pts = Decimate(pts, r.maxPoints)
		r.cache.Add(key, pts)
		r.record(coremetrics.LookupMiss, len(pts), latency)
		r.log.Debugw("route resolved", map[string]any{"key": key.String(), "points": len(pts), "latency_ms": latency.Milliseconds()})
		return pts, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]model.Coordinate)), nil
	}
}

// Purge drops every cached geometry.
func (r *Resolver) Purge() { r.cache.Purge() }

// CacheLen returns the number of cached geometries.
func (r *Resolver) CacheLen() int { return r.cache.Len() }

func (r *Resolver) record(outcome string, points int, latency time.Duration) {
	_ = r.metrics.RecordRouteLookup(coremetrics.RouteLookupEvent{
		Outcome: outcome, Points: points, Latency: latency, Time: time.Now(),
	})
}

// Decimate keeps every stride-th point when pts is longer than limit, with
// stride = len(pts)/limit. Shorter geometries are returned unchanged.
func Decimate(pts []model.Coordinate, limit int) []model.Coordinate {
	if limit <= 0 || len(pts) <= limit {
		return pts
	}
	stride := len(pts) / limit
	if stride < 1 {
		stride = 1
	}
	res := make([]model.Coordinate, 0, len(pts)/stride+1)
	for i := 0; i < len(pts); i += stride {
		res = append(res, pts[i])
	}
	return res
}

func clone(pts []model.Coordinate) []model.Coordinate {
	res := make([]model.Coordinate, len(pts))
	copy(res, pts)
	return res
}
