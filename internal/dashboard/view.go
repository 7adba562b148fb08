package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/sheatsley/profiler/internal/relay"
)

// Fixed chrome heights used by the viewport layout.
const (
	headerHeight  = 1
	dividerHeight = 1
	footerHeight  = 1
)

func (m Model) render() string {
	var sb strings.Builder

	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(m.renderGauges())
	sb.WriteString(Divider(m.width))
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.renderFooter())

	return sb.String()
}

func (m Model) renderHeader() string {
	elapsed := time.Since(m.started).Round(time.Second)

	status := ""
	if m.exitCode != nil {
		if *m.exitCode == 0 {
			status = "  " + ExitOKStyle.Render("exited 0")
		} else {
			status = "  " + ExitFailStyle.Render(fmt.Sprintf("exited %d", *m.exitCode))
		}
	}

	header := HeaderStyle.Render("profiler") + " " +
		CommandStyle.Render(m.cmdline) +
		DetailStyle.Render("  "+elapsed.String()) +
		status

	return truncateToWidth(header, m.width)
}

func (m Model) renderGauges() string {
	if m.store == nil {
		return ""
	}

	snapshots := m.store.ReadAll()
	keys := m.store.Keys()

	showSpark := m.width >= sparklineBreakpoint
	gaugeWidth := m.width
	if showSpark {
		gaugeWidth = m.width - sparklineWidth - 1
	}

	var sb strings.Builder
	for _, key := range keys {
		snap, ok := snapshots[key]
		if !ok {
			continue
		}

		row := RenderGauge(snap.Latest.Label, snap.Latest.Percent, snap.Latest.Detail, gaugeWidth)
		if showSpark {
			row += " " + RenderSparkline(snap.History, sparklineWidth)
		}
		sb.WriteString(truncateToWidth(row, m.width))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderFooter() string {
	hints := "q quit · ↑/↓ scroll · f follow"

	stats := fmt.Sprintf("%d lines", m.rel.StdoutLines()+m.rel.StderrLines())
	if n := m.rel.StderrLines(); n > 0 {
		stats += fmt.Sprintf(" (%d stderr)", n)
	}
	if !m.follow {
		stats += " · paused"
	}

	footer := FooterStyle.Render(hints + "  " + stats)
	return truncateToWidth(footer, m.width)
}

// renderOutput renders retained output lines soft-wrapped to width. Stderr
// lines are tinted so interleaved diagnostics stand out.
func renderOutput(lines []relay.Line, width int) string {
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		for j, row := range wrapLine(line.Text, width) {
			if j > 0 {
				sb.WriteString("\n")
			}
			if line.Stderr {
				sb.WriteString(StderrStyle.Render(row))
			} else {
				sb.WriteString(row)
			}
		}
	}
	return sb.String()
}

// wrapLine splits a line into rows no wider than width. Wrapping is by rune
// so multibyte output never splits mid-character.
func wrapLine(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	runes := []rune(s)
	if len(runes) <= width {
		return []string{s}
	}

	var rows []string
	for len(runes) > width {
		rows = append(rows, string(runes[:width]))
		runes = runes[width:]
	}
	rows = append(rows, string(runes))
	return rows
}

// truncateToWidth hard-truncates a styled string to the terminal width,
// keeping escape sequences intact so a cut row never bleeds its style into
// the rows below.
func truncateToWidth(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "")
}
