package track

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilianp07/fleetops/core/model"
)

// Job is a generation batch running in the background.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	sum Summary
	err error
}

// Start runs Generate on its own goroutine. The batch outlives the caller's
// request but stops when ctx is cancelled or Cancel is called.
func (s *Synthesizer) Start(ctx context.Context, pairs []model.TrackKey) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{cancel: cancel, done: make(chan struct{})}
	pairs = append([]model.TrackKey(nil), pairs...)
	go func() {
		defer close(j.done)
		defer cancel()
		sum, err := s.Generate(ctx, pairs)
		j.mu.Lock()
		j.sum, j.err = sum, err
		j.mu.Unlock()
	}()
	return j
}

// Done is closed when the batch returns.
func (j *Job) Done() <-chan struct{} { return j.done }

// Cancel stops the batch before its next pair.
func (j *Job) Cancel() { j.cancel() }

// Wait blocks until the batch returns or ctx is done.
func (j *Job) Wait(ctx context.Context) (Summary, error) {
	select {
	case <-j.done:
		return j.Result()
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}
}

// Result returns the batch summary. It is only meaningful once Done is
// closed.
func (j *Job) Result() (Summary, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sum, j.err
}

// DefaultPairs assigns routes to vehicles in turn: the i-th vehicle gets the
// route at index i modulo the number of routes.
func DefaultPairs(vehicles []model.Vehicle, routes []model.Route) []model.TrackKey {
	if len(routes) == 0 {
		return nil
	}
	pairs := make([]model.TrackKey, len(vehicles))
	for i, v := range vehicles {
		pairs[i] = model.TrackKey{VehicleID: v.ID, RouteID: routes[i%len(routes)].ID}
	}
	return pairs
}

// PairLister lists the fleet for DefaultPairs.
type PairLister interface {
	Vehicles(ctx context.Context) ([]model.Vehicle, error)
	Routes(ctx context.Context) ([]model.Route, error)
}

// ResolvePairs returns configured when it is not empty, else DefaultPairs of
// the stored fleet.
func ResolvePairs(ctx context.Context, l PairLister, configured []model.TrackKey) ([]model.TrackKey, error) {
	if len(configured) > 0 {
		return configured, nil
	}
	vs, err := l.Vehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	rs, err := l.Routes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return DefaultPairs(vs, rs), nil
}
