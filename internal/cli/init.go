package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/sheatsley/profiler/internal/config"
	"github.com/sheatsley/profiler/internal/errors"
)

// initCommand creates a new .profiler.yaml with interactive prompts.
func initCommand(force bool) error {
	configPath := filepath.Join(".", config.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !force {
		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	interval := cfg.Interval.String()
	perCore := cfg.Counters.PerCore
	gpu := cfg.Counters.GPU

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sampling interval").
				Description("How often counters are polled (e.g. 500ms, 1s, 2s)").
				Placeholder("1s").
				Value(&interval).
				Validate(func(s string) error {
					d, err := time.ParseDuration(s)
					if err != nil {
						return fmt.Errorf("use Go duration syntax, like 1s or 500ms")
					}
					if d < config.MinInterval {
						return fmt.Errorf("minimum interval is %s", config.MinInterval)
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Show one gauge per CPU core?").
				Description("Adds a gauge row for every core alongside the aggregate").
				Value(&perCore),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable GPU counters?").
				Description("Requires nvidia-smi; skipped automatically when absent").
				Value(&gpu),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --force with defaults")
	}

	d, _ := time.ParseDuration(interval)
	cfg.Interval = d
	cfg.Counters.PerCore = perCore
	cfg.Counters.GPU = gpu

	if err := config.Write(cfg, configPath); err != nil {
		return err
	}

	fmt.Printf("Created %s\n\n", configPath)
	fmt.Println("Next steps:")
	fmt.Println("  profiler run -- <command>  - Monitor a command")
	fmt.Println("  profiler demo              - Tour the dashboard")

	return nil
}
