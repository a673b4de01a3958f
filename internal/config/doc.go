// Package config loads runtime configuration for the marketfeed client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-r string   comma-separated relay URLs
//	-f string   path of the local cache database
//	-b int      deletion-interest debounce window (milliseconds)
//	-c string   path of a JSON config file
//
// # JSON schema
//
//	{
//	  "relay_urls": ["wss://relay.example.com"],
//	  "database_dsn": "marketfeed.db",
//	  "debounce_interval": "200ms"
//	}
//
// Note: this package does not read environment variables; use the JSON file
// or flags to configure values.
package config
