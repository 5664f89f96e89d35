package scenarios

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/report"
	"github.com/j-veylop/speechcost-tui/internal/ui/components"
	"github.com/j-veylop/speechcost-tui/internal/ui/styles"
)

// View renders the scenarios tab.
func (m *Model) View() string {
	list := m.scenarios()
	if len(list) == 0 {
		return m.renderEmpty()
	}

	best := BestScenario(list)
	sel := min(m.selected, len(list)-1)

	sections := []string{
		m.renderTitle(),
		m.renderTable(list, sel, best),
		m.renderChart(list),
		m.renderDetail(list[sel], sel == best),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

// BestScenario returns the index of the cheapest scenario. Ties keep the
// earlier one so the baseline wins when nothing saves money.
func BestScenario(list []models.Scenario) int {
	best := 0
	for i, s := range list {
		if s.Estimate.TotalMonthly < list[best].Estimate.TotalMonthly {
			best = i
		}
	}
	return best
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 40)
}

func (m *Model) renderEmpty() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("Scenarios"),
		"",
		styles.HelpStyle.Render("No estimate to compare yet."),
		styles.HelpStyle.Render("Scenarios appear once a usage profile has been built."),
	)
	return styles.DocStyle.Width(m.width).Height(m.height).Render(content)
}

func (m *Model) renderTitle() string {
	sub := "What caching and batching would save"
	if snap := m.state.GetSnapshot(); snap != nil {
		sub = fmt.Sprintf("%s · %d users · %s window", sub, snap.MonthlyUsers, snap.TimeRange.String())
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("Optimization Scenarios"),
		styles.HelpStyle.Render(sub),
		"",
	)
}

var columns = []struct {
	title string
	width int
}{
	{"Scenario", 22},
	{"Monthly", 14},
	{"Per user", 12},
	{"API calls", 14},
	{"Savings", 14},
	{"", 9},
}

func row(cells []string) string {
	var out []string
	for i, c := range cells {
		style := lipgloss.NewStyle().Width(columns[i].width)
		if i > 0 {
			style = style.Align(lipgloss.Right)
		}
		out = append(out, style.Render(c))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

func (m *Model) renderTable(list []models.Scenario, sel, best int) string {
	var header []string
	for _, c := range columns {
		header = append(header, c.title)
	}

	lines := []string{styles.TableHeaderStyle.Render(row(header))}
	for i, s := range list {
		prefix := "  "
		if i == sel {
			prefix = lipgloss.NewStyle().Foreground(styles.Primary).Render("▸ ")
		}
		name := s.Name.Label()
		if i == best {
			name += " ★"
		}

		savings := styles.GetSavingsStyle(s.SavingsPercent)
		cells := []string{
			prefix + name,
			report.FormatMoney(s.Estimate.TotalMonthly),
			report.FormatMoney(s.Estimate.CostPerUser()),
			report.FormatCount(s.Estimate.APICalls),
			savings.Render(report.FormatMoney(s.Savings)),
			savings.Render(report.FormatPercent(s.SavingsPercent)),
		}
		line := row(cells)
		if i == sel {
			line = lipgloss.NewStyle().Bold(true).Render(line)
		}
		lines = append(lines, line)
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderChart(list []models.Scenario) string {
	values := make([]float64, len(list))
	labels := make([]string, len(list))
	for i, s := range list {
		values[i] = s.Estimate.TotalMonthly
		labels[i] = s.Name.Label()
	}

	icon := lipgloss.NewStyle().Foreground(styles.Primary).Render("▤")
	rows := []string{fmt.Sprintf("%s %s", icon, styles.CardTitleStyle.Render("Monthly Total")), ""}
	for line := range strings.SplitSeq(components.RenderBarChart(values, labels, m.cardWidth()-8, report.FormatMoney), "\n") {
		rows = append(rows, "  "+line)
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderDetail(s models.Scenario, best bool) string {
	est := s.Estimate
	card := styles.CardStyle
	title := s.Name.Label()
	if best {
		card = styles.HighlightCardStyle
		title += " · cheapest"
	}

	kv := func(label, value string) string {
		return fmt.Sprintf("  %s %s", styles.LabelStyle.Width(18).Render(label), value)
	}
	money := func(v float64) string { return styles.ValueStyle.Render(report.FormatMoney(v)) }

	rows := []string{
		styles.CardTitleStyle.Render(title),
		"",
		kv("Total / month", styles.MoneyStyle.Render(report.FormatMoney(est.TotalMonthly))),
		kv("Characters", money(est.CharacterCost)),
		kv("Request fees", money(est.APICallCost)),
		kv("Cache serving", money(est.Cached)),
		"",
	}
	for _, p := range models.Providers() {
		name := lipgloss.NewStyle().Foreground(styles.ProviderColor(p)).Render(p.DisplayName())
		rows = append(rows, kv(name, fmt.Sprintf("%s  %s",
			money(est.ByProvider[p]), styles.HelpStyle.Render(report.FormatPercent(est.ProviderShare(p))))))
	}
	for _, md := range models.Modes() {
		rows = append(rows, kv(md.DisplayName(), fmt.Sprintf("%s  %s",
			money(est.ByMode[md]), styles.HelpStyle.Render(report.FormatPercent(est.ModeShare(md))))))
	}

	return card.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
