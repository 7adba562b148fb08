package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Gauge layout constants. Labels and percents are fixed-width so the bars of
// stacked gauges line up.
const (
	gaugeLabelWidth   = 6
	gaugePercentWidth = 6
	minBarWidth       = 5
)

// Sparkline block characters representing 8 vertical levels.
var sparklineBlocks = []rune("▁▂▃▄▅▆▇█")

// RenderBar renders a proportional bar of the given width. The filled
// portion is clamped so a percent outside [0,100] never overruns the width.
func RenderBar(width int, percent float64) string {
	if width < 1 {
		width = 1
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100.0 * float64(width))
	if filled > width {
		filled = width
	}

	var sb strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			sb.WriteRune('▰')
		} else {
			sb.WriteRune('▱')
		}
	}

	return MetricStyle(percent).Render(sb.String())
}

// RenderSparkline maps history values (0-100) onto block characters, most
// recent on the right. Only the last width points are shown.
func RenderSparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	var sb strings.Builder
	levels := len(sparklineBlocks)
	for _, v := range data {
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		level := int(v / 100 * float64(levels-1))
		sb.WriteRune(sparklineBlocks[level])
	}

	last := data[len(data)-1]
	return MetricStyle(last).Render(sb.String())
}

// RenderGauge renders one full gauge row: label, bar, percent, and detail.
// The bar absorbs whatever width is left after the fixed columns.
func RenderGauge(label string, percent float64, detail string, width int) string {
	if len(label) > gaugeLabelWidth {
		label = label[:gaugeLabelWidth]
	}
	labelCol := LabelStyle.Render(fmt.Sprintf("%-*s", gaugeLabelWidth, label))
	percentCol := MetricStyle(percent).Render(fmt.Sprintf("%*.1f%%", gaugePercentWidth-1, percent))

	detailCol := ""
	if detail != "" {
		detailCol = " " + DetailStyle.Render(detail)
	}

	// label + space + bar + space + percent + detail
	barWidth := width - gaugeLabelWidth - gaugePercentWidth - 2 - lipgloss.Width(detailCol)
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}

	return labelCol + " " + RenderBar(barWidth, percent) + " " + percentCol + detailCol
}
