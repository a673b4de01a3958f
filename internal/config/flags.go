package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/openstall/marketfeed/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-r string   comma-separated relay URLs (default from Config)
//	-f string   local cache database path (default from Config)
//	-b int      deletion-interest debounce in milliseconds (default from Config)
//
// Note: the function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-f", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	relays := fs.String("r", strings.Join(cfg.RelayURLs, ","), "comma-separated relay URLs")
	fs.StringVar(&cfg.DatabaseDSN, "f", cfg.DatabaseDSN, "local cache database path")
	debounceMs := fs.Int("b", int(cfg.DebounceInterval.Milliseconds()), "deletion-interest debounce (ms)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *relays != "" {
		cfg.RelayURLs = strings.Split(*relays, ",")
	}
	cfg.DebounceInterval = time.Duration(*debounceMs) * time.Millisecond
}
