package routing

import (
	"fmt"
	"time"

	"github.com/kilianp07/fleetops/auth"
)

// Config tunes the resolver and its routing service.
type Config struct {
	OSRMURL         string `json:"osrm_url"`
	TimeoutMS       int    `json:"timeout_ms"`
	CacheSize       int    `json:"cache_size"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`
	// MaxPoints bounds the geometry length; longer geometries are decimated.
	MaxPoints int `json:"max_points"`
	// Auth is used when the routing server sits behind an OAuth2 gateway.
	Auth auth.Conf `json:"auth"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.OSRMURL == "" {
		c.OSRMURL = "https://router.project-osrm.org"
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 5000
	}
	if c.CacheSize == 0 {
		c.CacheSize = 1024
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = int((24 * time.Hour).Seconds())
	}
	if c.MaxPoints == 0 {
		c.MaxPoints = 100
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TimeoutMS < 0 || c.CacheSize < 0 || c.CacheTTLSeconds < 0 {
		return fmt.Errorf("routing: negative timeout or cache setting")
	}
	if c.MaxPoints < 2 {
		return fmt.Errorf("routing: max_points must be at least 2, got %d", c.MaxPoints)
	}
	return nil
}

// Timeout returns the per-call timeout.
func (c Config) Timeout() time.Duration { return time.Duration(c.TimeoutMS) * time.Millisecond }

// CacheTTL returns the cache entry lifetime.
func (c Config) CacheTTL() time.Duration { return time.Duration(c.CacheTTLSeconds) * time.Second }
