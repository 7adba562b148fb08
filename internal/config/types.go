// Package config defines the .profiler.yaml configuration file: which
// counters to sample, how often, and how the dashboard renders.
package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .profiler.yaml configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Interval is the sampling cadence for all counters.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// RenderInterval is the dashboard redraw cadence. Faster than Interval
	// so relayed output appears promptly between samples.
	RenderInterval time.Duration `yaml:"render_interval" mapstructure:"render_interval"`

	// HistoryDepth is the number of data points kept per gauge for the
	// sparkline.
	HistoryDepth int `yaml:"history_depth" mapstructure:"history_depth"`

	Counters CountersConfig `yaml:"counters" mapstructure:"counters"`

	// Plain disables colors and styling in the dashboard.
	Plain bool `yaml:"plain" mapstructure:"plain"`
}

// CountersConfig toggles individual utilization sources.
type CountersConfig struct {
	// CPU enables the aggregate CPU gauge.
	CPU bool `yaml:"cpu" mapstructure:"cpu"`

	// PerCore adds one gauge per CPU core alongside the aggregate.
	PerCore bool `yaml:"per_core" mapstructure:"per_core"`

	// Mem enables the memory gauge.
	Mem bool `yaml:"mem" mapstructure:"mem"`

	// GPU enables GPU utilization and video memory gauges when a query
	// tool is available.
	GPU bool `yaml:"gpu" mapstructure:"gpu"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:        CurrentConfigVersion,
		Interval:       time.Second,
		RenderInterval: 250 * time.Millisecond,
		HistoryDepth:   60,
		Counters: CountersConfig{
			CPU:     true,
			PerCore: false,
			Mem:     true,
			GPU:     true,
		},
	}
}
