// Package playback replays stored tracks as a sequence of frames.
//
// All loaded tracks share one step index. Every tick moves each track to its
// point at that index, emits a Frame and advances the index; a track shorter
// than the index keeps its last position. Playback finishes once the index
// passes the longest track.
package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/model"
)

var (
	// ErrNoTracks is returned when playback is requested without usable tracks.
	ErrNoTracks = errors.New("no tracks loaded")
	// ErrInvalidSpeed is returned for a speed outside MinSpeed..MaxSpeed.
	ErrInvalidSpeed = errors.New("invalid speed")
	// ErrInvalidState is returned for a transition the current state does not allow.
	ErrInvalidState = errors.New("invalid playback state")
)

// Speed bounds.
const (
	MinSpeed = 1
	MaxSpeed = 10
)

// State of the scheduler.
type State int

const (
	Idle State = iota
	Playing
	Paused
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{Idle, Playing, Paused, Finished} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown playback state %q", b)
}

// Track is a loaded track with its display metadata.
type Track struct {
	Key    model.TrackKey     `json:"key"`
	Label  string             `json:"label"`
	Icon   string             `json:"icon"`
	Points []model.TrackPoint `json:"points"`
}

// Position is the displayed position of one track.
type Position struct {
	Key       model.TrackKey `json:"key"`
	Label     string         `json:"label"`
	Icon      string         `json:"icon"`
	Seq       int            `json:"seq"`
	Lat       float64        `json:"lat"`
	Lon       float64        `json:"lon"`
	Speed     *float64       `json:"speed,omitempty"`
	FuelLevel *float64       `json:"fuel_level,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	// Done is set once the track has no point at the current index.
	Done bool `json:"done"`
}

// Frame is emitted on every tick.
type Frame struct {
	Session   string     `json:"session"`
	Index     int        `json:"index"`
	State     State      `json:"state"`
	Positions []Position `json:"positions"`
	At        time.Time  `json:"at"`
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Session   string     `json:"session"`
	State     State      `json:"state"`
	Index     int        `json:"index"`
	Length    int        `json:"length"`
	Speed     int        `json:"speed"`
	PeriodMS  int64      `json:"period_ms"`
	Tracks    int        `json:"tracks"`
	Positions []Position `json:"positions"`
}

// Config controls playback.
type Config struct {
	BasePeriodMS int                    `json:"base_period_ms"`
	Speed        int                    `json:"speed"`
	Sinks        []factory.ModuleConfig `json:"sinks"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.BasePeriodMS == 0 {
		c.BasePeriodMS = 600
	}
	if c.Speed == 0 {
		c.Speed = 5
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BasePeriodMS <= 0 {
		return fmt.Errorf("playback: base_period_ms must be positive")
	}
	if c.Speed < MinSpeed || c.Speed > MaxSpeed {
		return fmt.Errorf("playback: %w: %d", ErrInvalidSpeed, c.Speed)
	}
	return nil
}

// BasePeriod returns the tick period at speed 1.
func (c Config) BasePeriod() time.Duration {
	return time.Duration(c.BasePeriodMS) * time.Millisecond
}
