package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/report"
	"github.com/j-veylop/speechcost-tui/internal/ui/components"
	"github.com/j-veylop/speechcost-tui/internal/ui/styles"
)

// View renders the history tab.
func (m *Model) View() string {
	h := m.state.GetHistory()
	if h == nil && m.isLoading() {
		return m.renderLoading()
	}
	if h == nil || !h.HasData() {
		return m.renderEmpty()
	}

	sections := []string{
		m.renderHeader(h),
		m.renderDailyChart(h),
		m.renderHourlyPattern(h),
		m.renderProviders(h),
		m.renderCostTrend(h),
		m.renderRecent(h),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.scroll.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.scroll.View())
}

func (m *Model) isLoading() bool {
	for _, r := range m.state.GetLoadingResources() {
		if r == "history" {
			return true
		}
	}
	return false
}

func (m *Model) renderLoading() string {
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(styles.HelpStyle.Render("Loading history data..."))
}

func (m *Model) renderEmpty() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("History"),
		"",
		styles.HelpStyle.Render(fmt.Sprintf("No requests recorded in the %s range.", m.timeRange.String())),
		styles.HelpStyle.Render("Import a log export or press t to widen the range."),
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 40)
}

func cardTitle(icon, title string) string {
	return fmt.Sprintf("%s %s",
		lipgloss.NewStyle().Foreground(styles.Primary).Render(icon),
		styles.CardTitleStyle.Render(title))
}

func indent(block string) []string {
	var out []string
	for line := range strings.SplitSeq(block, "\n") {
		out = append(out, "  "+line)
	}
	return out
}

func (m *Model) card(rows []string) string {
	rows = append(rows, "")
	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderHeader(h *models.UsageHistory) string {
	title := styles.TitleStyle.Render("Usage History")

	rangeStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)
	rangeIndicator := rangeStyle.Render(fmt.Sprintf("[t] %s", h.TimeRange.String()))

	header := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", rangeIndicator)

	var subtitle string
	if !h.FirstRequest.IsZero() {
		subtitle = styles.HelpStyle.Render(fmt.Sprintf("%d requests · %s → %s (%d days)",
			h.TotalRequests,
			h.FirstRequest.Format("Jan 2, 2006"),
			h.LastRequest.Format("Jan 2, 2006"),
			h.TotalDataDays,
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, subtitle, "")
}

func (m *Model) renderDailyChart(h *models.UsageHistory) string {
	rows := []string{cardTitle("▤", "Daily Requests"), ""}

	if len(h.DailyUsage) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No daily data available"))
		return m.card(rows)
	}

	elevenlabs := make([]float64, len(h.DailyUsage))
	openai := make([]float64, len(h.DailyUsage))
	for i, d := range h.DailyUsage {
		elevenlabs[i] = float64(d.ElevenLabsRequests)
		openai[i] = float64(d.OpenAIRequests)
	}

	chart := components.RenderProviderChart(elevenlabs, openai,
		max(m.cardWidth()-12, 30), 8,
		fmt.Sprintf("Requests per day, last %d days", len(h.DailyUsage)))
	rows = append(rows, indent(chart)...)
	rows = append(rows, "", "  "+components.ProviderLegend())

	return m.card(rows)
}

func (m *Model) renderHourlyPattern(h *models.UsageHistory) string {
	rows := []string{cardTitle("◷", "Hourly Pattern"), ""}

	if len(h.HourlyPatterns) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No hourly data available"))
		return m.card(rows)
	}

	rows = append(rows, "  "+components.RenderHourlyHeatmap(components.HourlyValues(h.HourlyPatterns)))

	peakHour, peakVal := h.GetPeakHour()
	rows = append(rows, "", fmt.Sprintf("  Peak: %s (avg %.1f requests)",
		lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).
			Render(fmt.Sprintf("%02d:00-%02d:00", peakHour, (peakHour+1)%24)),
		peakVal,
	))

	return m.card(rows)
}

func (m *Model) renderProviders(h *models.UsageHistory) string {
	rows := []string{cardTitle("◈", "Providers"), ""}

	if len(h.Providers) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No provider data available"))
		return m.card(rows)
	}

	values := make([]float64, len(h.Providers))
	labels := make([]string, len(h.Providers))
	for i, p := range h.Providers {
		values[i] = p.SharePercent
		labels[i] = p.Provider.DisplayName()
	}
	rows = append(rows, indent(components.RenderBarChart(values, labels, m.cardWidth()-8, report.FormatPercent))...)
	rows = append(rows, "")

	for _, p := range h.Providers {
		name := lipgloss.NewStyle().Foreground(styles.ProviderColor(p.Provider)).Bold(true).
			Width(12).Render(p.Provider.DisplayName())
		rows = append(rows, fmt.Sprintf("  %s %s requests · %s chars · %d cache hits · %d errors · %.0fms avg",
			name, report.FormatCount(float64(p.Requests)), report.FormatCount(float64(p.Characters)),
			p.CacheHits, p.ErrorCount, p.AvgDurationMs))
	}

	return m.card(rows)
}

func (m *Model) renderCostTrend(h *models.UsageHistory) string {
	rows := []string{cardTitle("$", "Projected Cost")}

	if len(h.Snapshots) == 0 {
		rows = append(rows, "", styles.HelpStyle.Render("  No estimates recorded yet"))
		return m.card(rows)
	}

	totals := make([]float64, len(h.Snapshots))
	for i, s := range h.Snapshots {
		totals[i] = s.TotalMonthly
	}

	first, last := h.Snapshots[0], h.Snapshots[len(h.Snapshots)-1]
	rows[0] += "  " + components.RenderTrendSparkline(totals, 30)
	rows = append(rows, "")

	if len(totals) > 1 {
		chart := components.RenderLineChart(totals, max(m.cardWidth()-12, 30), 6, "Monthly total per refresh")
		rows = append(rows, indent(chart)...)
		rows = append(rows, "")
	}

	change := last.TotalMonthly - first.TotalMonthly
	changeStyle := styles.HelpStyle
	switch {
	case change > 0:
		changeStyle = styles.WarningTextStyle
	case change < 0:
		changeStyle = styles.SuccessTextStyle
	}
	rows = append(rows, fmt.Sprintf("  Latest %s for %d users · %s since %s",
		styles.MoneyStyle.Render(report.FormatMoney(last.TotalMonthly)),
		last.MonthlyUsers,
		changeStyle.Render(fmt.Sprintf("%+.2f", change)),
		first.Timestamp.Format("Jan 2 15:04"),
	))

	return m.card(rows)
}

func (m *Model) renderRecent(h *models.UsageHistory) string {
	rows := []string{cardTitle("≡", "Recent Requests"), ""}

	if len(h.Recent) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No requests logged yet"))
		return m.card(rows)
	}

	for _, r := range h.Recent {
		name := lipgloss.NewStyle().Foreground(styles.ProviderColor(r.Provider)).
			Width(12).Render(r.Provider.DisplayName())
		rows = append(rows, fmt.Sprintf("  %s  %s %-9s %6s chars %6dms  %s",
			styles.HelpStyle.Render(r.Timestamp.Local().Format("Jan 2 15:04")),
			name, r.Mode.DisplayName(),
			report.FormatCount(float64(r.TextLength)), r.DurationMs,
			requestFlags(&r)))
	}

	return m.card(rows)
}

func requestFlags(r *models.SpeechRequest) string {
	var flags []string
	if r.CacheHit {
		flags = append(flags, styles.SuccessTextStyle.Render("cached"))
	}
	if r.Batched {
		flags = append(flags, "batched")
	}
	if r.IsError() {
		flags = append(flags, styles.WarningTextStyle.Render(fmt.Sprintf("HTTP %d", r.StatusCode)))
	}
	return strings.Join(flags, " ")
}
