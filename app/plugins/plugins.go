// Package plugins links the built-in sink implementations into the binary
// and lists what can be referenced from the configuration.
package plugins

import (
	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/playback"

	// Built-in sinks register themselves on import.
	_ "github.com/kilianp07/fleetops/infra/metrics"
	_ "github.com/kilianp07/fleetops/infra/mqtt"
)

// Kind groups the factories of one extension point.
type Kind struct {
	Name  string
	Types []string
}

// Available returns the registered sink types by extension point.
func Available() []Kind {
	return []Kind{
		{Name: "metrics.sinks", Types: coremetrics.SinkTypes()},
		{Name: "playback.sinks", Types: playback.SinkTypes()},
	}
}
