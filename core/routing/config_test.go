package routing

import (
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if c.Timeout() != 5*time.Second || c.CacheSize != 1024 || c.CacheTTL() != 24*time.Hour || c.MaxPoints != 100 {
		t.Fatalf("unexpected defaults %+v", c)
	}
	c.MaxPoints = 1
	if err := c.Validate(); err == nil {
		t.Fatal("expected max_points error")
	}
}
