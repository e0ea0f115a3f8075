package config

import "fmt"

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is "memory", "sqlite" or "postgres".
	Backend string `json:"backend"`
	// DSN is the sqlite file path or the postgres connection string.
	DSN string `json:"dsn"`
}

func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.DSN == "" && c.Backend == "sqlite" {
		c.DSN = "fleet.db"
	}
}

func (c StoreConfig) Validate() error {
	switch c.Backend {
	case "memory":
		return nil
	case "sqlite", "postgres":
		if c.DSN == "" {
			return fmt.Errorf("store: dsn is required for %s", c.Backend)
		}
		return nil
	}
	return fmt.Errorf("store: unknown backend %s", c.Backend)
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

func (c HTTPConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("http: addr is required")
	}
	return nil
}
