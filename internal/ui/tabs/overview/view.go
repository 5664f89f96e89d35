package overview

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/report"
	"github.com/j-veylop/speechcost-tui/internal/services"
	"github.com/j-veylop/speechcost-tui/internal/ui/components"
	"github.com/j-veylop/speechcost-tui/internal/ui/styles"
)

// View renders the overview tab.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return m.renderLoading()
	}

	snap := m.state.GetSnapshot()

	sections := []string{m.renderTitle(snap)}
	if m.editing {
		sections = append(sections, m.renderUsersInput())
	}

	if snap == nil {
		sections = append(sections, m.renderEmpty())
	} else {
		sections = append(sections, m.renderEstimate(snap), m.renderProfile(snap))
		if w := snap.WarningStrings(); len(w) > 0 {
			sections = append(sections, m.renderWarnings(w))
		}
		if len(snap.Trends) > 0 {
			sections = append(sections, m.renderTrends(snap.Trends))
		}
	}

	if err := m.state.GetError(); err != nil {
		sections = append(sections, styles.ErrorTextStyle.Render("✗ "+err.Error()))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderLoading() string {
	bar := components.LoadingBar(min(max(m.width/2, 20), 60), m.animationFrame, styles.Primary)
	m.loader.SetPending(m.state.GetLoadingResources())
	spin := components.RenderLoaderCentered(m.loader, m.width, max(m.height-2, 1))
	return lipgloss.JoinVertical(lipgloss.Center, spin, styles.CenterHorizontal(bar, m.width))
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 40)
}

func (m *Model) renderTitle(snap *services.Snapshot) string {
	title := styles.TitleStyle.Render("Speech Cost Estimate")

	sub := "Projected monthly text-to-speech spend"
	if snap != nil {
		sub = fmt.Sprintf("%d users · %s window · updated %s",
			snap.MonthlyUsers, snap.TimeRange.String(), snap.UpdatedAt.Format("15:04:05"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, styles.HelpStyle.Render(sub), "")
}

func (m *Model) renderUsersInput() string {
	hint := styles.HelpStyle.Render("  enter to apply · esc to cancel")
	return styles.HighlightCardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, m.input.View(), hint),
	)
}

func (m *Model) renderEmpty() string {
	icon := lipgloss.NewStyle().Foreground(styles.Subtle).Render("○")
	rows := []string{
		cardTitle("Estimate"),
		"",
		fmt.Sprintf("  %s %s", icon, styles.HelpStyle.Render("No estimate yet")),
		"",
		styles.InfoTextStyle.Render("  ╰─▶ Drop a log export into the inbox or press r to refresh"),
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func cardTitle(title string) string {
	icon := lipgloss.NewStyle().Foreground(styles.Primary).Render("◈")
	return fmt.Sprintf("%s %s", icon, styles.CardTitleStyle.Render(title))
}

func (m *Model) renderEstimate(snap *services.Snapshot) string {
	est := snap.Estimate
	width := m.cardWidth() - 4

	total := styles.MoneyStyle.Bold(true).Render(report.FormatMoney(est.TotalMonthly))
	rows := []string{
		cardTitle("Monthly Estimate"),
		"",
		fmt.Sprintf("  %s %s  %s %s",
			styles.LabelStyle.Render("Total"), total,
			styles.LabelStyle.Render("Per user"), styles.ValueStyle.Render(report.FormatMoney(est.CostPerUser()))),
		fmt.Sprintf("  %s %s  %s %s",
			styles.LabelStyle.Render("Requests"), styles.ValueStyle.Render(report.FormatCount(est.MonthlyRequests)),
			styles.LabelStyle.Render("API calls"), styles.ValueStyle.Render(report.FormatCount(est.APICalls))),
	}

	proj := snap.Budget
	if (proj == nil || proj.Budget <= 0) && m.state.GetBudget() > 0 {
		b := m.state.GetBudget()
		proj = &models.BudgetProjection{Budget: b, ProjectedMonthly: est.TotalMonthly, UsedPercent: est.TotalMonthly / b * 100}
	}
	if proj != nil && proj.Budget > 0 {
		rows = append(rows, renderBudget(proj)...)
	}

	rows = append(rows, "",
		styles.SubTitleStyle.Render("  By provider"),
		m.bars[barElevenLabs].View(report.FormatMoney(est.ByProvider[models.ProviderElevenLabs]), width),
		m.bars[barOpenAI].View(report.FormatMoney(est.ByProvider[models.ProviderOpenAI]), width),
		"",
		styles.SubTitleStyle.Render("  By mode"),
		m.bars[barStandard].View(report.FormatMoney(est.ByMode[models.ModeStandard]), width),
		m.bars[barStreaming].View(report.FormatMoney(est.ByMode[models.ModeStreaming]), width),
		"",
		styles.SubTitleStyle.Render("  Cache"),
		m.bars[barUncached].View(report.FormatMoney(est.Uncached), width),
		m.bars[barCached].View(report.FormatMoney(est.Cached), width),
	)

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderBudget shows how much of the monthly budget the estimate uses.
func renderBudget(p *models.BudgetProjection) []string {
	line := fmt.Sprintf("Budget %s (%s used)", report.FormatMoney(p.Budget), report.FormatPercent(p.UsedPercent))
	var first string
	switch {
	case p.Status == models.BudgetCritical || p.UsedPercent > 100:
		first = styles.ErrorTextStyle.Render("⚠ " + line)
	case p.Status == models.BudgetWarning || p.UsedPercent > 80:
		first = styles.WarningTextStyle.Render(line)
	default:
		first = styles.SuccessTextStyle.Render(line)
	}
	rows := []string{"  " + first, "  " + components.RenderGradientBar(p.UsedPercent, 40)}

	var details []string
	if !math.IsInf(p.RunwayDays, 0) && p.RunwayDays > 0 {
		details = append(details, fmt.Sprintf("runway %.0f days", p.RunwayDays))
	}
	if p.MaxUsers > 0 {
		details = append(details, fmt.Sprintf("covers %s users", report.FormatCount(float64(p.MaxUsers))))
	}
	if p.Confidence != "" {
		details = append(details, p.Confidence+" confidence")
	}
	if len(details) > 0 {
		rows = append(rows, "  "+styles.HelpStyle.Render(strings.Join(details, " · ")))
	}
	if p.VsPrevious != "" {
		rows = append(rows, "  "+styles.HelpStyle.Render(p.VsPrevious))
	}
	return rows
}

func (m *Model) renderProfile(snap *services.Snapshot) string {
	p := snap.Profile

	rows := []string{cardTitle("Usage Profile"), ""}
	if p.IsEmpty() {
		rows = append(rows, styles.HelpStyle.Render("  No requests in the "+snap.TimeRange.String()+" window"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	kv := func(label, value string) string {
		return fmt.Sprintf("  %s %s", styles.LabelStyle.Width(26).Render(label), styles.ValueStyle.Render(value))
	}

	rows = append(rows,
		kv("Window", fmt.Sprintf("%s → %s", p.WindowStart.Format("Jan 02"), p.WindowEnd.Format("Jan 02"))),
		kv("Sample size", fmt.Sprintf("%d requests · %d users · %d sessions", p.SampleSize, p.UniqueUsers, p.UniqueSessions)),
		kv("Avg text length", report.FormatCount(p.AvgTextLengthChars)+" chars"),
		kv("Requests per user/month", fmt.Sprintf("%.1f", p.MonthlyRequestsPerUser())),
		kv("Cache hit rate", report.FormatPercent(p.CacheHitRate*100)),
		kv("Batching rate", report.FormatPercent(p.BatchingRate*100)),
		kv("Streaming rate", report.FormatPercent(p.StreamingRate*100)),
	)

	var dist []string
	for _, prov := range p.DistributionProviders() {
		share := p.ProviderDistribution[prov] * 100
		name := lipgloss.NewStyle().Foreground(styles.ProviderColor(prov)).Render(prov.DisplayName())
		dist = append(dist, fmt.Sprintf("%s %s", name, report.FormatPercent(share)))
	}
	if len(dist) > 0 {
		rows = append(rows, kv("Provider distribution", strings.Join(dist, "  ")))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderWarnings(warnings []string) string {
	rows := []string{styles.WarningTextStyle.Bold(true).Render("⚠ Profile warnings"), ""}
	for _, w := range warnings {
		rows = append(rows, styles.WarningTextStyle.Render("  • "+w))
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderTrends(trends []string) string {
	rows := []string{cardTitle("Trends"), ""}
	for _, t := range trends {
		rows = append(rows, styles.InfoTextStyle.Render("  ▸ ")+t)
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
