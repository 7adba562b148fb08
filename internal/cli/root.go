package cli

import (
	// Dependencies for CLI framework
	_ "github.com/spf13/cobra"
	_ "github.com/spf13/viper"

	// Dependencies for TUI/terminal UI
	_ "github.com/charmbracelet/bubbletea"
	_ "github.com/charmbracelet/huh"
	_ "github.com/charmbracelet/lipgloss"

	// Utility dependencies
	_ "gopkg.in/yaml.v3"
)
