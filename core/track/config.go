package track

import (
	"fmt"

	"github.com/kilianp07/fleetops/core/model"
)

// Config controls track synthesis.
type Config struct {
	// Steps is the number of segments of an interpolated track, which then
	// has Steps+1 points.
	Steps int `json:"steps"`
	// FallbackStart and FallbackEnd replace route endpoints without
	// coordinates.
	FallbackStart model.Coordinate `json:"fallback_start"`
	FallbackEnd   model.Coordinate `json:"fallback_end"`
	// Pairs are the vehicle/route pairs generated by the CLI and the
	// periodic job. Empty means one route per vehicle, assigned in turn.
	Pairs []model.TrackKey `json:"pairs"`
	// Schedule is a cron expression for periodic regeneration. Empty
	// disables it.
	Schedule string `json:"schedule"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Steps == 0 {
		c.Steps = 40
	}
	if c.FallbackStart.IsZero() {
		c.FallbackStart = model.Coordinate{Lat: 55.7558, Lon: 37.6176}
	}
	if c.FallbackEnd.IsZero() {
		c.FallbackEnd = model.Coordinate{Lat: 59.9343, Lon: 30.3351}
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Steps < 1 {
		return fmt.Errorf("synthesis: steps must be positive, got %d", c.Steps)
	}
	for _, p := range c.Pairs {
		if p.VehicleID <= 0 || p.RouteID <= 0 {
			return fmt.Errorf("synthesis: invalid pair %s", p)
		}
	}
	return nil
}
