package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/openstall/marketfeed/internal/flagx"
)

// jsonDuration accepts either a string like "200ms" or integer nanoseconds.
type jsonDuration struct {
	time.Duration
}

func (d *jsonDuration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return &json.UnsupportedValueError{}
	}
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	RelayURLs        []string     `json:"relay_urls"`
	DatabaseDSN      string       `json:"database_dsn"`
	DebounceInterval jsonDuration `json:"debounce_interval"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flag. Absent flag means no JSON is loaded. Read or unmarshal
// errors panic; configuration is resolved once at startup.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if len(jc.RelayURLs) > 0 {
		cfg.RelayURLs = jc.RelayURLs
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.DebounceInterval.Duration > 0 {
		cfg.DebounceInterval = jc.DebounceInterval.Duration
	}
}
