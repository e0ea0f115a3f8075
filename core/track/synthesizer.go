// Package track synthesizes replayable vehicle tracks from route endpoints.
//
// A track is the road geometry returned by the routing service, or a
// straight-line interpolation when the service is unavailable. Each
// vehicle/route pair is replaced in its own transaction: a pair counts as a
// success only once its new points are committed.
package track

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/logger"
	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/monitoring"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/internal/eventbus"
)

// ErrDegenerateInput is returned for a pair whose endpoints coincide, which
// leaves fewer than two distinct points to interpolate.
var ErrDegenerateInput = errors.New("degenerate route")

// Geometry sources of a generated track.
const (
	SourceOSRM     = coremetrics.SourceOSRM
	SourceFallback = coremetrics.SourceFallback
	SourceFailed   = coremetrics.SourceFailed
)

// Geometry resolves the road path between two coordinates.
type Geometry interface {
	Resolve(ctx context.Context, from, to model.Coordinate) ([]model.Coordinate, error)
}

// RouteSource looks routes up by id.
type RouteSource interface {
	Route(ctx context.Context, id int64) (model.Route, error)
}

// PairResult is the outcome of one vehicle/route pair.
type PairResult struct {
	Key      model.TrackKey `json:"key"`
	Source   string         `json:"source"`
	Points   int            `json:"points"`
	LengthKm float64        `json:"length_km,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Err      error          `json:"-"`
}

// Summary is the outcome of a generation batch.
type Summary struct {
	BatchID      string       `json:"batch_id"`
	Succeeded    int          `json:"succeeded"`
	Failed       int          `json:"failed"`
	PointsStored int          `json:"points_stored"`
	Results      []PairResult `json:"results"`
}

// Synthesizer generates and stores tracks.
type Synthesizer struct {
	routes   RouteSource
	tracks   store.TrackStore
	geometry Geometry
	cfg      Config
	log      logger.Logger
	bus      eventbus.EventBus
	now      func() time.Time
}

// Option customizes a Synthesizer.
type Option func(*Synthesizer)

// WithEventBus publishes generation events on bus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(s *Synthesizer) { s.bus = bus }
}

// WithClock sets the clock stamping stored points.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// New returns a Synthesizer. cfg defaults are applied. A nil geometry always
// uses interpolation.
func New(routes RouteSource, tracks store.TrackStore, geometry Geometry, cfg Config, log logger.Logger, opts ...Option) *Synthesizer {
	cfg.SetDefaults()
	s := &Synthesizer{
		routes:   routes,
		tracks:   tracks,
		geometry: geometry,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Generate regenerates the tracks of pairs in order. A failing pair does not
// stop the batch. When ctx is cancelled the batch stops between pairs and
// the partial summary is returned with the context error.
func (s *Synthesizer) Generate(ctx context.Context, pairs []model.TrackKey) (Summary, error) {
	sum := Summary{BatchID: uuid.NewString(), Results: make([]PairResult, 0, len(pairs))}
	s.log.Infof("generating %d tracks (batch %s)", len(pairs), sum.BatchID)
	var err error
	for _, key := range pairs {
		if err = ctx.Err(); err != nil {
			break
		}
		res := s.generateOne(ctx, sum.BatchID, key)
		sum.Results = append(sum.Results, res)
		if res.Err != nil {
			sum.Failed++
			continue
		}
		sum.Succeeded++
		sum.PointsStored += res.Points
	}
	s.log.Infof("batch %s done: %d succeeded, %d failed, %d points", sum.BatchID, sum.Succeeded, sum.Failed, sum.PointsStored)
	s.publish(events.BatchCompleted{
		BatchID: sum.BatchID, Succeeded: sum.Succeeded, Failed: sum.Failed,
		Points: sum.PointsStored, Err: err, At: s.now(),
	})
	return sum, err
}

func (s *Synthesizer) generateOne(ctx context.Context, batchID string, key model.TrackKey) PairResult {
	started := time.Now()
	res := PairResult{Key: key, Source: SourceFailed}
	defer func() {
		if res.Err != nil {
			res.Source = SourceFailed
			res.Reason = res.Err.Error()
			s.log.Errorf("track %s failed: %v", key, res.Err)
			if !errors.Is(res.Err, store.ErrNotFound) && !errors.Is(res.Err, ErrDegenerateInput) {
				monitoring.CaptureException(res.Err, map[string]string{"module": "track", "pair": key.String()})
			}
		} else {
			s.log.Debugw("track stored", map[string]any{"key": key.String(), "source": res.Source, "points": res.Points})
		}
		s.publish(events.TrackGenerated{
			BatchID: batchID, Key: key, Source: res.Source, Points: res.Points,
			Err: res.Err, Duration: time.Since(started), At: s.now(),
		})
	}()

	route, err := s.routes.Route(ctx, key.RouteID)
	if err != nil {
		res.Err = fmt.Errorf("route %d: %w", key.RouteID, err)
		return res
	}
	from, to := s.endpoints(route)

	path, source := s.resolve(ctx, from, to)
	if path == nil {
		if from == to {
			res.Err = fmt.Errorf("%w: identical endpoints %s", ErrDegenerateInput, from)
			return res
		}
		path = Interpolate(from, to, s.cfg.Steps)
		source = SourceFallback
	}

	at := s.now()
	pts := make([]model.TrackPoint, len(path))
	for i, c := range path {
		pts[i] = model.TrackPoint{
			VehicleID: key.VehicleID, RouteID: key.RouteID, Seq: i,
			Lat: c.Lat, Lon: c.Lon, Timestamp: at,
		}
	}
	err = s.tracks.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.DeleteTrack(ctx, key); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		if err := tx.InsertTrackPoints(ctx, pts); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		return nil
	})
	if err != nil {
		res.Err = fmt.Errorf("store track: %w", err)
		return res
	}
	res.Source = source
	res.Points = len(pts)
	res.LengthKm = LengthKm(path)
	return res
}

// resolve returns nil when the routing geometry is unusable.
func (s *Synthesizer) resolve(ctx context.Context, from, to model.Coordinate) ([]model.Coordinate, string) {
	if s.geometry == nil {
		return nil, ""
	}
	path, err := s.geometry.Resolve(ctx, from, to)
	if err != nil || len(path) < 2 {
		return nil, ""
	}
	return path, SourceOSRM
}

// endpoints returns the route endpoints. An endpoint missing either
// component is replaced by the configured fallback.
func (s *Synthesizer) endpoints(r model.Route) (model.Coordinate, model.Coordinate) {
	from, to := r.Start, r.End
	if from.Lat == 0 || from.Lon == 0 {
		from = s.cfg.FallbackStart
	}
	if to.Lat == 0 || to.Lon == 0 {
		to = s.cfg.FallbackEnd
	}
	return from, to
}

// Ensure regenerates the pairs whose stored track has fewer than two points
// and returns the summary of that regeneration. Pairs already usable are
// left untouched.
func (s *Synthesizer) Ensure(ctx context.Context, pairs []model.TrackKey) (Summary, error) {
	var missing []model.TrackKey
	for _, key := range pairs {
		k := key
		n, err := s.tracks.CountTrackPoints(ctx, &k)
		if err != nil {
			return Summary{}, fmt.Errorf("count %s: %w", key, err)
		}
		if n < 2 {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return Summary{}, nil
	}
	return s.Generate(ctx, missing)
}

// Clear deletes every stored track. A caching geometry source, such as
// routing.Resolver, is purged too so the next batch fetches fresh routes.
func (s *Synthesizer) Clear(ctx context.Context) error {
	if err := s.tracks.WithTx(ctx, func(tx store.Tx) error { return tx.DeleteAllTracks(ctx) }); err != nil {
		return fmt.Errorf("clear tracks: %w", err)
	}
	if p, ok := s.geometry.(interface{ Purge() }); ok {
		p.Purge()
	}
	s.log.Infof("all tracks cleared")
	return nil
}

func (s *Synthesizer) publish(ev eventbus.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

// Interpolate returns steps+1 evenly spaced points from one coordinate to
// the other, both endpoints included.
func Interpolate(from, to model.Coordinate, steps int) []model.Coordinate {
	if steps < 1 {
		steps = 1
	}
	pts := make([]model.Coordinate, steps+1)
	for i := range pts {
		f := float64(i) / float64(steps)
		pts[i] = model.Coordinate{
			Lat: from.Lat + (to.Lat-from.Lat)*f,
			Lon: from.Lon + (to.Lon-from.Lon)*f,
		}
	}
	return pts
}

// LengthKm returns the geodesic length of a path.
func LengthKm(path []model.Coordinate) float64 {
	ls := make(orb.LineString, len(path))
	for i, c := range path {
		ls[i] = orb.Point{c.Lon, c.Lat}
	}
	return geo.Length(ls) / 1000
}
