package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/sheatsley/profiler/internal/config"
	"github.com/sheatsley/profiler/internal/errors"
	"github.com/sheatsley/profiler/internal/logger"
	"github.com/sheatsley/profiler/pkg/profiler"
)

// runCommand loads the config, applies flag overrides, and drives a full
// monitoring session around the given command.
func runCommand(args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	if cfg.Plain {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	sess, err := profiler.New(profiler.Options{
		Config: cfg,
		Args:   args,
		Log:    sessionLogger(),
	})
	if err != nil {
		return err
	}

	if err := sess.Start(); err != nil {
		return err
	}

	code, waitErr := sess.Wait()
	sess.Stop()
	if derr := sess.Deinit(); derr != nil && waitErr == nil {
		waitErr = derr
	}
	if waitErr != nil {
		return waitErr
	}

	if code > 0 {
		childExitCode = code
	}
	return nil
}

// loadRunConfig merges the config file with run command flag overrides.
func loadRunConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return nil, err
	}

	if runIntervalFlag != "" {
		d, err := parseDurationFlag("--interval", runIntervalFlag)
		if err != nil {
			return nil, err
		}
		cfg.Interval = d
	}
	if runRenderFlag != "" {
		d, err := parseDurationFlag("--render-interval", runRenderFlag)
		if err != nil {
			return nil, err
		}
		cfg.RenderInterval = d
	}
	if runHistoryFlag > 0 {
		cfg.HistoryDepth = runHistoryFlag
	}
	if runPerCoreFlag {
		cfg.Counters.PerCore = true
	}
	if runNoGPUFlag {
		cfg.Counters.GPU = false
	}
	if runNoMemFlag {
		cfg.Counters.Mem = false
	}
	if runPlainFlag {
		cfg.Plain = true
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDurationFlag parses a duration flag value into a duration.
func parseDurationFlag(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid duration for %s", value, name),
			"Try something like 500ms, 1s, or 2s")
	}
	return d, nil
}

// sessionLogger returns the logger for session internals. The dashboard
// owns the terminal, so diagnostics are discarded unless PROFILER_DEBUG
// routes them to stderr for debugging.
func sessionLogger() logger.Logger {
	if os.Getenv("PROFILER_DEBUG") != "" {
		return logger.NewEnvLogger("[profiler]")
	}
	return logger.Noop()
}
