// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig; loader failures wrap ErrLoadConfig.
package config

import (
	"fmt"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MaxGlucose rejects readings above this value (mg/dL). Zero disables the ceiling.
	MaxGlucose float64 `koanf:"max_glucose"`

	// MaxRate rejects running rates above this value (U/h). Zero disables the ceiling.
	MaxRate float64 `koanf:"max_rate"`

	// RateLimitRPS and RateLimitBurst bound calculation requests per second.
	// A non-positive RPS disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// RequireSecondCheck adds the second clinician confirmation note to guidance.
	RequireSecondCheck bool `koanf:"require_second_check"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		MaxGlucose:         1500,
		MaxRate:            50,
		RateLimitRPS:       50,
		RateLimitBurst:     100,
		RequireSecondCheck: true,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	case c.MaxGlucose < 0:
		return fmt.Errorf("max_glucose must not be negative: %w", ErrInvalidConfig)
	case c.MaxRate < 0:
		return fmt.Errorf("max_rate must not be negative: %w", ErrInvalidConfig)
	case c.RateLimitRPS > 0 && c.RateLimitBurst <= 0:
		return fmt.Errorf("rate_limit_burst must be positive when rate limiting is enabled: %w", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q: %w", c.LogFormat, ErrInvalidConfig)
	}
	return nil
}
