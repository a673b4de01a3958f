package config

import "time"

// Config holds runtime settings for the marketfeed client.
//
// Fields:
//   - RelayURLs: websocket endpoints of the relays to consume events from.
//   - DatabaseDSN: path/DSN of the local SQLite cache.
//   - DebounceInterval: coalescing window for deletion-interest rebuilds.
type Config struct {
	RelayURLs        []string
	DatabaseDSN      string
	DebounceInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.RelayURLs = []string{"wss://relay.damus.io"}
	c.DatabaseDSN = "marketfeed.db"
	c.DebounceInterval = 200 * time.Millisecond
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
