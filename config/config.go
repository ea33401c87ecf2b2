// Package config loads brick-api configuration with viper: built-in
// defaults, then an optional TOML file, then BRICK_* environment
// variables, then command-line flags bound by the caller.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Graph  GraphConfig  `mapstructure:"graph"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig controls the HTTP boundary.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// QueryRateLimit is raw queries per second; 0 disables limiting.
	QueryRateLimit float64 `mapstructure:"query_rate_limit"`
	QueryBurst     int     `mapstructure:"query_burst"`
}

// GraphConfig lists the data the store is built from.
type GraphConfig struct {
	BaseURI string `mapstructure:"base_uri"`
	// SchemaFile replaces the embedded Brick schema when set.
	SchemaFile string   `mapstructure:"schema_file"`
	Files      []string `mapstructure:"files"`
	// Snapshot, when set, is opened instead of parsing Files.
	Snapshot string `mapstructure:"snapshot"`
}

// LogConfig selects the logger output.
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// Addr is the listen address for the configured port.
func (s ServerConfig) Addr() string {
	return ":" + s.Port
}
