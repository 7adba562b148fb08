package config

import (
	"fmt"
	"time"

	"github.com/sheatsley/profiler/internal/errors"
)

// Validation bounds. Intervals below the floor burn CPU on sampling itself;
// the history cap keeps per-gauge memory bounded.
const (
	MinInterval       = 100 * time.Millisecond
	MinRenderInterval = 50 * time.Millisecond
	MaxHistoryDepth   = 10000
)

// Validate checks a config for values that would break the session.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Config version %d is newer than supported version %d", cfg.Version, CurrentConfigVersion),
			"Upgrade profiler or lower the version field in your config")
	}

	if cfg.Interval < MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Sampling interval %s is below the minimum %s", cfg.Interval, MinInterval),
			"Use an interval of at least 100ms")
	}

	if cfg.RenderInterval < MinRenderInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Render interval %s is below the minimum %s", cfg.RenderInterval, MinRenderInterval),
			"Use a render interval of at least 50ms")
	}

	if cfg.HistoryDepth < 1 || cfg.HistoryDepth > MaxHistoryDepth {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("History depth %d is out of range [1, %d]", cfg.HistoryDepth, MaxHistoryDepth),
			"Use a history depth between 1 and 10000")
	}

	if !cfg.Counters.CPU && !cfg.Counters.Mem && !cfg.Counters.GPU {
		return errors.New(errors.ErrConfig,
			"All counters are disabled",
			"Enable at least one of counters.cpu, counters.mem, or counters.gpu")
	}

	if cfg.Counters.PerCore && !cfg.Counters.CPU {
		return errors.New(errors.ErrConfig,
			"counters.per_core requires counters.cpu",
			"Enable counters.cpu or disable counters.per_core")
	}

	return nil
}
