package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sheatsley/profiler/internal/errors"
)

// Global flags
var configFlag string

// Command-specific flags
var (
	runIntervalFlag string
	runRenderFlag   string
	runHistoryFlag  int
	runPerCoreFlag  bool
	runNoGPUFlag    bool
	runNoMemFlag    bool
	runPlainFlag    bool
	initForce       bool
	demoPlainFlag   bool
)

// childExitCode carries the monitored command's exit code out of runCommand
// so Execute can propagate it as our own.
var childExitCode int

// rootCmd is the base command for the profiler CLI.
var rootCmd = &cobra.Command{
	Use:   "profiler",
	Short: "Live CPU, RAM, and GPU gauges for a running command",
	Long: `Profiler runs a command and shows its output under live utilization
gauges for CPU, memory, and GPU, sampled while the command runs.

The dashboard owns the terminal for the duration of the run; the monitored
command's stdout and stderr are relayed into a scrollable pane below the
gauges.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runCmd monitors a command with live gauges
var runCmd = &cobra.Command{
	Use:   "run -- <command> [args...]",
	Short: "Run a command with live utilization gauges",
	Long: `Run the given command with a live dashboard above its output.

Utilization is sampled on a fixed interval while the command runs. The
command is interpreted by your shell, so pipes and redirects work.

Keyboard shortcuts:
  q / Ctrl+C  Quit (terminates the command if still running)
  up/down     Scroll output (pauses follow mode)
  f / End     Resume following new output

Examples:
  profiler run -- python train.py
  profiler run -- make -j8
  profiler run --interval 500ms --per-core -- cargo build
  profiler run --no-gpu -- ./backup.sh | tee backup.log`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(args)
	},
}

// initCmd creates a new .profiler.yaml configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .profiler.yaml configuration",
	Long: `Initialize a new profiler configuration file.

Creates a .profiler.yaml file in the current directory with interactive
prompts for the sampling interval and enabled counters.

Examples:
  profiler init
  profiler init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(initForce)
	},
}

// demoCmd runs the dashboard against synthetic output
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Tour the dashboard with synthetic output",
	Long: `Run the dashboard against a command that prints a stream of random
words. Useful for checking terminal compatibility and colors without
running a real workload.

Examples:
  profiler demo
  profiler demo --plain`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return demoCommand()
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for profiler.

Examples:
  # Bash
  profiler completion bash > /etc/bash_completion.d/profiler

  # Zsh
  profiler completion zsh > "${fpath[1]}/_profiler"

  # Fish
  profiler completion fish > ~/.config/fish/completions/profiler.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		default:
			return errors.New(errors.ErrExec,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

// Execute runs the CLI and exits the process with the monitored command's
// exit code when one was observed.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if childExitCode != 0 {
		os.Exit(childExitCode)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")

	// run command flags
	runCmd.Flags().StringVar(&runIntervalFlag, "interval", "", "sampling interval (e.g., 500ms, 1s, 2s)")
	runCmd.Flags().StringVar(&runRenderFlag, "render-interval", "", "dashboard redraw interval (e.g., 100ms, 250ms)")
	runCmd.Flags().IntVar(&runHistoryFlag, "history", 0, "sparkline history depth in samples")
	runCmd.Flags().BoolVar(&runPerCoreFlag, "per-core", false, "show one gauge per CPU core")
	runCmd.Flags().BoolVar(&runNoGPUFlag, "no-gpu", false, "skip GPU counters")
	runCmd.Flags().BoolVar(&runNoMemFlag, "no-mem", false, "skip the memory counter")
	runCmd.Flags().BoolVar(&runPlainFlag, "plain", false, "disable colors and styling")

	// init command flags
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")

	// demo command flags
	demoCmd.Flags().BoolVar(&demoPlainFlag, "plain", false, "disable colors and styling")

	// Register all commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(completionCmd)
}
