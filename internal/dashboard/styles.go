package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Dashboard color palette
const (
	ColorBorder = lipgloss.Color("#2A2A4A")

	// Semantic colors for gauges
	ColorHealthy  = lipgloss.Color("#39FF14")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#FF0055")

	// Text colors
	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent = lipgloss.Color("#FF2E97")
	ColorStderr = lipgloss.Color("#FF6B6B")
)

// Thresholds for gauge severity levels
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	CommandStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	DetailStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	StderrStyle = lipgloss.NewStyle().
			Foreground(ColorStderr)

	ExitOKStyle = lipgloss.NewStyle().
			Foreground(ColorHealthy).
			Bold(true)

	ExitFailStyle = lipgloss.NewStyle().
			Foreground(ColorCritical).
			Bold(true)

	dividerStyle = lipgloss.NewStyle().Foreground(ColorBorder)
)

// MetricColor returns the color for a percentage-based gauge.
// Green below 70%, amber 70-90%, red above 90%.
func MetricColor(percent float64) lipgloss.Color {
	switch {
	case percent >= CriticalThreshold:
		return ColorCritical
	case percent >= WarningThreshold:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// MetricStyle returns a style colored for the given percentage.
func MetricStyle(percent float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MetricColor(percent))
}

// Divider renders a horizontal rule of the given width.
func Divider(width int) string {
	if width < 1 {
		width = 1
	}
	return dividerStyle.Render(strings.Repeat("─", width))
}
