package playback

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/internal/eventbus"
)

// Scheduler drives playback of the loaded tracks. It is safe for concurrent
// use; ticks run on a goroutine of their own.
type Scheduler struct {
	mu      sync.Mutex
	base    time.Duration
	speed   int
	session string
	tracks  []Track
	current map[int]Position
	index   int
	length  int
	state   State

	// gen identifies the running tick loop; stop ends it.
	gen  uint64
	stop chan struct{}
	wg   sync.WaitGroup

	sink FrameSink
	bus  eventbus.EventBus
	log  logger.Logger
	now  func() time.Time
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithEventBus publishes state changes on bus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(s *Scheduler) { s.bus = bus }
}

// WithClock sets the clock stamping frames.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler returns an idle scheduler emitting frames to sink.
func NewScheduler(cfg Config, sink FrameSink, log logger.Logger, opts ...Option) (*Scheduler, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = NopSink{}
	}
	s := &Scheduler{
		base:    cfg.BasePeriod(),
		speed:   cfg.Speed,
		current: map[int]Position{},
		sink:    sink,
		log:     log,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Load replaces the active tracks and rewinds to index 0. Tracks with fewer
// than two points are ignored; ErrNoTracks is returned when none remain.
// A running playback is stopped and the scheduler is left Idle.
func (s *Scheduler) Load(tracks []Track) error {
	usable := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if len(t.Points) > 1 {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return ErrNoTracks
	}
	sort.SliceStable(usable, func(i, j int) bool {
		a, b := usable[i].Key, usable[j].Key
		if a.VehicleID != b.VehicleID {
			return a.VehicleID < b.VehicleID
		}
		return a.RouteID < b.RouteID
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.halt()
	s.tracks = usable
	s.length = 0
	for _, t := range usable {
		if len(t.Points) > s.length {
			s.length = len(t.Points)
		}
	}
	s.session = uuid.NewString()
	s.rewind()
	s.setState(Idle)
	s.log.Infof("playback %s loaded %d tracks, %d steps", s.session, len(usable), s.length)
	return nil
}

// Play starts ticking from the current index. A finished playback restarts
// from index 0 and a paused one resumes.
func (s *Scheduler) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Playing:
		return nil
	case Idle:
		if len(s.tracks) == 0 {
			return ErrNoTracks
		}
	case Finished:
		s.rewind()
	}
	s.start()
	return nil
}

// Pause stops the pending tick and keeps the index.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Paused:
		return nil
	case Playing:
		s.halt()
		s.setState(Paused)
		return nil
	}
	return fmt.Errorf("%w: cannot pause while %s", ErrInvalidState, s.state)
}

// Resume restarts ticking from the current index.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Playing:
		return nil
	case Paused:
		s.start()
		return nil
	}
	return fmt.Errorf("%w: cannot resume while %s", ErrInvalidState, s.state)
}

// SetSpeed changes the tick period to the base period divided by speed. It
// applies from the next scheduled tick.
func (s *Scheduler) SetSpeed(speed int) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: %d not in %d..%d", ErrInvalidSpeed, speed, MinSpeed, MaxSpeed)
	}
	s.mu.Lock()
	s.speed = speed
	s.mu.Unlock()
	return nil
}

// Step runs one tick synchronously and returns the emitted frame. It is
// allowed while Idle or Paused.
func (s *Scheduler) Step() (Frame, error) {
	s.mu.Lock()
	if len(s.tracks) == 0 {
		s.mu.Unlock()
		return Frame{}, ErrNoTracks
	}
	if s.state == Playing || s.state == Finished {
		st := s.state
		s.mu.Unlock()
		return Frame{}, fmt.Errorf("%w: cannot step while %s", ErrInvalidState, st)
	}
	f := s.tick()
	s.mu.Unlock()
	s.emit(f)
	return f, nil
}

// Clear removes every track and returns to Idle with the index reset.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halt()
	s.tracks = nil
	s.length = 0
	s.rewind()
	s.setState(Idle)
}

// Snapshot returns the current status.
func (s *Scheduler) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Session:   s.session,
		State:     s.state,
		Index:     s.index,
		Length:    s.length,
		Speed:     s.speed,
		PeriodMS:  s.period().Milliseconds(),
		Tracks:    len(s.tracks),
		Positions: s.positions(),
	}
}

// Close stops playback and waits for the tick goroutine to return.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.halt()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) period() time.Duration {
	return s.base / time.Duration(s.speed)
}

func (s *Scheduler) rewind() {
	s.index = 0
	s.current = map[int]Position{}
}

// start launches a tick loop. Callers hold mu.
func (s *Scheduler) start() {
	s.gen++
	s.stop = make(chan struct{})
	s.setState(Playing)
	s.wg.Add(1)
	go s.loop(s.gen, s.stop)
}

// halt ends the running tick loop if any. Callers hold mu.
func (s *Scheduler) halt() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.gen++
}

func (s *Scheduler) loop(gen uint64, stop <-chan struct{}) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if s.gen != gen || s.state != Playing {
			s.mu.Unlock()
			return
		}
		f := s.tick()
		more := s.state == Playing
		period := s.period()
		s.mu.Unlock()

		s.emit(f)
		if !more {
			return
		}
		timer := time.NewTimer(period)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// tick moves every track to the current index and advances it. Callers
// hold mu.
func (s *Scheduler) tick() Frame {
	for i, t := range s.tracks {
		if s.index < len(t.Points) {
			p := t.Points[s.index]
			s.current[i] = Position{
				Key: t.Key, Label: t.Label, Icon: t.Icon, Seq: p.Seq,
				Lat: p.Lat, Lon: p.Lon, Speed: p.Speed, FuelLevel: p.FuelLevel,
				Timestamp: p.Timestamp,
			}
		} else if pos, ok := s.current[i]; ok && !pos.Done {
			pos.Done = true
			s.current[i] = pos
		}
	}
	f := Frame{Session: s.session, Index: s.index, Positions: s.positions(), At: s.now()}
	s.index++
	if s.index >= s.length {
		if s.stop != nil {
			close(s.stop)
			s.stop = nil
		}
		s.setState(Finished)
	}
	f.State = s.state
	return f
}

func (s *Scheduler) positions() []Position {
	res := make([]Position, 0, len(s.current))
	for i := range s.tracks {
		if p, ok := s.current[i]; ok {
			res = append(res, p)
		}
	}
	return res
}

// setState records a transition and publishes it. Callers hold mu.
func (s *Scheduler) setState(st State) {
	if s.state == st {
		return
	}
	s.log.Debugw("playback state", map[string]any{"session": s.session, "from": s.state.String(), "to": st.String(), "index": s.index})
	s.state = st
	if s.bus != nil {
		s.bus.Publish(events.PlaybackStateChanged{Session: s.session, State: st.String(), Index: s.index, At: s.now()})
	}
}

func (s *Scheduler) emit(f Frame) {
	if err := s.sink.PublishFrame(f); err != nil {
		s.log.Warnf("playback frame %d: %v", f.Index, err)
	}
}
