package metrics

import "errors"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTrackGeneration forwards the event to all sinks. Every sink is
// called; the errors are joined.
func (m *MultiSink) RecordTrackGeneration(ev TrackGenerationEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordTrackGeneration(ev))
	}
	return errors.Join(errs...)
}

// RecordRouteLookup forwards routing events.
func (m *MultiSink) RecordRouteLookup(ev RouteLookupEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRouteLookup(ev))
	}
	return errors.Join(errs...)
}

// RecordPlaybackFrame forwards playback events when supported by the sink.
func (m *MultiSink) RecordPlaybackFrame(ev PlaybackFrameEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(PlaybackRecorder); ok {
			errs = append(errs, r.RecordPlaybackFrame(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordReport forwards analytics events when supported by the sink.
func (m *MultiSink) RecordReport(ev ReportEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ReportRecorder); ok {
			errs = append(errs, r.RecordReport(ev))
		}
	}
	return errors.Join(errs...)
}
