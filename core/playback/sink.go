package playback

import (
	"errors"

	"github.com/kilianp07/fleetops/core/factory"
)

// FrameSink receives playback frames. PublishFrame is called from the tick
// goroutine and must not block on slow consumers.
type FrameSink interface {
	PublishFrame(Frame) error
}

// NopSink discards frames.
type NopSink struct{}

func (NopSink) PublishFrame(Frame) error { return nil }

// MultiSink fans frames out to several sinks.
type MultiSink struct {
	Sinks []FrameSink
}

// NewMultiSink creates a MultiSink.
func NewMultiSink(sinks ...FrameSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// PublishFrame forwards f to every sink and joins their errors.
func (m *MultiSink) PublishFrame(f Frame) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.PublishFrame(f))
	}
	return errors.Join(errs...)
}

var sinkRegistry = factory.NewRegistry[FrameSink]()

// RegisterSink adds a frame sink factory identified by name.
func RegisterSink(name string, f factory.Factory[FrameSink]) error {
	return sinkRegistry.Register(name, f)
}

// NewSink creates the configured frame sinks. extra sinks built by the caller,
// such as the websocket hub, are appended.
func NewSink(cfgs []factory.ModuleConfig, extra ...FrameSink) (FrameSink, error) {
	sinks, err := sinkRegistry.CreateAll(cfgs)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, extra...)
	switch len(sinks) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}

// SinkTypes lists the registered frame sink names.
func SinkTypes() []string { return sinkRegistry.Types() }

func init() {
	_ = RegisterSink("nop", func(map[string]any) (FrameSink, error) { return NopSink{}, nil })
}
