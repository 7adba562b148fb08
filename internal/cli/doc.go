// Package cli implements the profiler command-line interface.
//
// The package is organized around Cobra commands, with each command
// delegating to a workflow function for the actual work:
//
//	profiler run -- <command>  - Monitor a command with live gauges
//	profiler demo              - Dashboard tour with synthetic output
//	profiler init              - Create .profiler.yaml config
//	profiler version           - Print version information
//
// # Flag Handling
//
// The global --config flag is defined on the root command. Command-specific
// flags like --interval and --no-gpu are defined on individual commands and
// override whatever the config file says.
//
// Everything after the -- separator is passed to the monitored command
// untouched, so flags of the monitored program never collide with ours.
package cli
