// Package events defines the events emitted on the event bus.
//
// Available event types:
//   - TrackGenerated: one vehicle/route track was synthesized or failed
//   - BatchCompleted: a generation batch finished
//   - PlaybackStateChanged: the playback scheduler changed state
package events

import (
	"time"

	"github.com/kilianp07/fleetops/core/model"
)

// TrackGenerated is published for every pair of a generation batch.
type TrackGenerated struct {
	BatchID  string
	Key      model.TrackKey
	Source   string
	Points   int
	Err      error
	Duration time.Duration
	At       time.Time
}

// BatchCompleted is published when a generation batch returns.
type BatchCompleted struct {
	BatchID   string
	Succeeded int
	Failed    int
	Points    int
	Err       error
	At        time.Time
}

// PlaybackStateChanged is published on every playback state transition.
type PlaybackStateChanged struct {
	Session string
	State   string
	Index   int
	At      time.Time
}
