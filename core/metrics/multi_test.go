package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordTrackGeneration(TrackGenerationEvent) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordRouteLookup(RouteLookupEvent) error {
	r.count++
	return r.err
}

type playbackSink struct {
	recordSink
	frames int
}

func (p *playbackSink) RecordPlaybackFrame(PlaybackFrameEvent) error {
	p.frames++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &playbackSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordTrackGeneration(TrackGenerationEvent{}); err != nil {
		t.Fatalf("record generation: %v", err)
	}
	if err := m.RecordRouteLookup(RouteLookupEvent{}); err != nil {
		t.Fatalf("record lookup: %v", err)
	}
	if err := m.RecordPlaybackFrame(PlaybackFrameEvent{}); err != nil {
		t.Fatalf("record frame: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("events not forwarded")
	}
	if s2.frames != 1 {
		t.Fatalf("playback frame not forwarded to capable sink")
	}
}

func TestMultiSinkKeepsGoingOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordTrackGeneration(TrackGenerationEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if s2.count != 1 {
		t.Fatalf("second sink skipped after error")
	}
}
