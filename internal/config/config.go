// Package config provides configuration for the sentinel-ai server.
//
// Sources (priority order, high to low):
//  1. Environment variables (SENTINEL_ prefix, dots become underscores)
//  2. YAML config file (optional)
//  3. Built-in defaults
package config

import "fmt"

// Config contains all server configuration.
type Config struct {
	Server struct {
		Host string
		Port int
		// AllowedOrigins lists origins permitted for CORS and
		// WebSocket upgrades. ["*"] allows any origin; the frontend
		// is served from a different host, so that is the default.
		AllowedOrigins []string
		// RateLimitPerMinute caps requests per client IP. 0 disables.
		RateLimitPerMinute int
	}

	Model struct {
		Contamination float64
		NumTrees      int
		SampleSize    int
		Seed          int64
		// StorePath is the model snapshot database file. Empty
		// disables persistence; the model is retrained on every
		// start.
		StorePath string
	}

	Bootstrap struct {
		// Samples is the size of the synthetic dataset the model is
		// trained on before the server accepts traffic.
		Samples int
		Seed    int64
	}

	Logging struct {
		Level  string // debug | info | warn | error
		Format string // json | console
		// File enables rotated file output when non-empty.
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	}
}

// Validate checks the configuration for values the server cannot run
// with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Model.Contamination <= 0 || c.Model.Contamination >= 0.5 {
		return fmt.Errorf("invalid contamination %v (must be in (0, 0.5))", c.Model.Contamination)
	}
	if c.Model.NumTrees < 1 {
		return fmt.Errorf("invalid tree count: %d", c.Model.NumTrees)
	}
	if c.Model.SampleSize < 2 {
		return fmt.Errorf("invalid per-tree sample size: %d", c.Model.SampleSize)
	}
	if c.Bootstrap.Samples < 100 {
		return fmt.Errorf("bootstrap sample count %d below training minimum", c.Bootstrap.Samples)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return nil
}
