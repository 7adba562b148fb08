package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sheatsley/profiler/internal/errors"
)

const fileHeader = `# profiler configuration
# Generated by 'profiler init'. Durations accept Go syntax (1s, 250ms, 2m).
`

// yamlConfig mirrors Config with durations as strings so the generated
// file reads "1s" instead of nanosecond integers.
type yamlConfig struct {
	Version        int            `yaml:"version"`
	Interval       string         `yaml:"interval"`
	RenderInterval string         `yaml:"render_interval"`
	HistoryDepth   int            `yaml:"history_depth"`
	Counters       CountersConfig `yaml:"counters"`
	Plain          bool           `yaml:"plain"`
}

// Write serializes the config to the given path, creating parent
// directories as needed.
func Write(cfg *Config, path string) error {
	data, err := yaml.Marshal(yamlConfig{
		Version:        cfg.Version,
		Interval:       cfg.Interval.String(),
		RenderInterval: cfg.RenderInterval.String(),
		HistoryDepth:   cfg.HistoryDepth,
		Counters:       cfg.Counters,
		Plain:          cfg.Plain,
	})
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to serialize config", "")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to create config directory: "+dir,
				"Check directory permissions")
		}
	}

	out := append([]byte(fileHeader), data...)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file: "+path,
			"Check file permissions")
	}

	return nil
}
