// Package components holds the widgets the tabs draw with: charts, share
// bars and the loading indicator.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/ui/styles"
)

const noData = "No data available"

var (
	sparkRamp = []rune("▁▂▃▄▅▆▇█")
	heatRamp  = []rune("░▒▓█")
	heatColor = []lipgloss.Color{styles.Subtle, styles.Success, styles.Warning, styles.Error}
)

// scale is the largest value in vs, or 1 when there is nothing positive, so
// callers can divide by it.
func scale(vs []float64) float64 {
	top := 0.0
	for _, v := range vs {
		top = max(top, v)
	}
	if top == 0 {
		return 1
	}
	return top
}

// bucket maps v onto [0, n-1] relative to top.
func bucket(v, top float64, n int) int {
	return min(max(int(v/top*float64(n-1)), 0), n-1)
}

func plotOptions(width, height int, caption string) []asciigraph.Option {
	return []asciigraph.Option{
		asciigraph.Width(max(width, 20)),
		asciigraph.Height(max(height, 3)),
		asciigraph.Caption(caption),
	}
}

// RenderLineChart plots one series.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render(noData)
	}
	return asciigraph.Plot(data, plotOptions(width, height, caption)...)
}

// RenderProviderChart plots daily request counts for ElevenLabs and OpenAI.
func RenderProviderChart(elevenlabs, openai []float64, width, height int, caption string) string {
	n := max(len(elevenlabs), len(openai))
	if n == 0 {
		return styles.HelpStyle.Render(noData)
	}

	series := [][]float64{make([]float64, n), make([]float64, n)}
	copy(series[0], elevenlabs)
	copy(series[1], openai)

	opts := append(plotOptions(width, height, caption),
		asciigraph.SeriesColors(asciigraph.DarkOrange, asciigraph.Teal))
	return asciigraph.PlotMany(series, opts...)
}

// RenderBarChart draws one labelled horizontal bar per value. format renders
// the value after each bar; nil prints one decimal.
func RenderBarChart(values []float64, labels []string, width int, format func(float64) string) string {
	if len(values) == 0 {
		return ""
	}
	if format == nil {
		format = func(v float64) string { return fmt.Sprintf("%.1f", v) }
	}

	labelWidth := 0
	for _, l := range labels {
		labelWidth = max(labelWidth, lipgloss.Width(l))
	}
	room := float64(max(width-labelWidth-12, 10))
	top := scale(values)

	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte('\n')
		}
		var label string
		if i < len(labels) {
			label = labels[i]
		}
		bar := strings.Repeat("█", max(int(v/top*room), 0))
		fmt.Fprintf(&b, "%*s │%s %s", labelWidth, label, bar, format(v))
	}
	return b.String()
}

// RenderHourlyHeatmap draws one colored cell per hour of day, 00 to 23, with
// a gap at noon. Missing hours count as zero.
func RenderHourlyHeatmap(hours []float64) string {
	var day [24]float64
	copy(day[:], hours)
	top := scale(day[:])

	var b strings.Builder
	b.WriteString("00 ")
	for h, v := range day {
		if h == 12 {
			b.WriteByte(' ')
		}
		i := bucket(v, top, len(heatRamp))
		b.WriteString(lipgloss.NewStyle().Foreground(heatColor[i]).Render(string(heatRamp[i])))
	}
	b.WriteString(" 23")
	return b.String()
}

// HourlyValues flattens hourly patterns into a 24-slot slice of average requests.
func HourlyValues(patterns []models.HourlyPattern) []float64 {
	out := make([]float64, 24)
	for _, p := range patterns {
		if p.Hour >= 0 && p.Hour < len(out) {
			out[p.Hour] = p.AvgRequests
		}
	}
	return out
}

// sample picks at most width evenly spaced points from values.
func sample(values []float64, width int) []float64 {
	if len(values) <= width {
		return values
	}
	step := float64(len(values)) / float64(width)
	out := make([]float64, width)
	for i := range out {
		out[i] = values[int(float64(i)*step)]
	}
	return out
}

// RenderSparkline draws values as a single line of block characters, at most
// width runes wide.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	pts := sample(values, width)
	top := scale(pts)

	out := make([]rune, len(pts))
	for i, v := range pts {
		out[i] = sparkRamp[bucket(v, top, len(sparkRamp))]
	}
	return string(out)
}

// RenderTrendSparkline is RenderSparkline colored against the first value:
// rises render as warnings, drops as success.
func RenderTrendSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	pts := sample(values, width)
	glyphs := []rune(RenderSparkline(pts, len(pts)))

	var b strings.Builder
	for i, v := range pts {
		style := styles.HelpStyle
		if v > values[0] {
			style = styles.WarningTextStyle
		} else if v < values[0] {
			style = styles.SuccessTextStyle
		}
		b.WriteString(style.Render(string(glyphs[i])))
	}
	return b.String()
}

// LegendEntry is one colored swatch in a chart legend.
type LegendEntry struct {
	Label string
	Color lipgloss.Color
}

// Legend renders entries on one line.
func Legend(entries ...LegendEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = lipgloss.NewStyle().Foreground(e.Color).Render("■") + " " + e.Label
	}
	return strings.Join(parts, "  ")
}

// ProviderLegend returns the legend for RenderProviderChart.
func ProviderLegend() string {
	return Legend(
		LegendEntry{Label: models.ProviderElevenLabs.DisplayName(), Color: styles.ElevenLabs},
		LegendEntry{Label: models.ProviderOpenAI.DisplayName(), Color: styles.OpenAI},
	)
}
