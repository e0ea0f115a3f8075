// Package regen periodically regenerates the configured tracks.
package regen

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/track"
)

// Generator runs a generation batch.
type Generator interface {
	Generate(ctx context.Context, pairs []model.TrackKey) (track.Summary, error)
}

// PairsFunc returns the pairs to regenerate on each run.
type PairsFunc func(ctx context.Context) ([]model.TrackKey, error)

// Job regenerates tracks on a cron schedule. Runs never overlap: a tick
// arriving while the previous batch is still going is skipped.
type Job struct {
	gen   Generator
	pairs PairsFunc
	log   logger.Logger

	cron *cron.Cron
	mu   sync.Mutex
	ctx  context.Context
	last track.Summary
	runs int
}

// New returns a job for schedule, a standard five-field cron expression or
// a descriptor such as "@every 1h".
func New(schedule string, gen Generator, pairs PairsFunc, log logger.Logger) (*Job, error) {
	j := &Job{gen: gen, pairs: pairs, log: log, ctx: context.Background()}
	j.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := j.cron.AddFunc(schedule, j.run); err != nil {
		return nil, fmt.Errorf("regen schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start runs the schedule until ctx is cancelled.
func (j *Job) Start(ctx context.Context) {
	j.mu.Lock()
	j.ctx = ctx
	j.mu.Unlock()
	j.cron.Start()
	go func() {
		<-ctx.Done()
		<-j.cron.Stop().Done()
	}()
}

// RunOnce regenerates immediately.
func (j *Job) RunOnce(ctx context.Context) (track.Summary, error) {
	pairs, err := j.pairs(ctx)
	if err != nil {
		return track.Summary{}, fmt.Errorf("resolve pairs: %w", err)
	}
	if len(pairs) == 0 {
		j.log.Warnf("regen: no pairs to generate")
		return track.Summary{}, nil
	}
	sum, err := j.gen.Generate(ctx, pairs)
	j.mu.Lock()
	j.last = sum
	j.runs++
	j.mu.Unlock()
	return sum, err
}

// Last returns the summary of the latest run and the number of runs.
func (j *Job) Last() (track.Summary, int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last, j.runs
}

func (j *Job) run() {
	j.mu.Lock()
	ctx := j.ctx
	j.mu.Unlock()
	sum, err := j.RunOnce(ctx)
	if err != nil {
		j.log.Errorf("regen: %v", err)
		return
	}
	j.log.Infof("regen: %d tracks regenerated, %d failed", sum.Succeeded, sum.Failed)
}
