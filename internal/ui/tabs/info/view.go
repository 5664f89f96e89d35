package info

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/report"
	"github.com/j-veylop/speechcost-tui/internal/ui/styles"
	"github.com/j-veylop/speechcost-tui/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{m.renderTitle()}
	if m.importing {
		sections = append(sections, m.renderImportPrompt())
	}
	sections = append(sections,
		m.renderConfigCard(),
		m.renderPricingCard(),
		m.renderAboutCard(),
	)

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 90)
}

// renderTitle renders the info tab title.
func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration, rate card and build information")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderImportPrompt() string {
	rows := []string{
		styles.CardTitleStyle.Render("Import log export"),
		"",
		m.input.View(),
		"",
		styles.HelpStyle.Render("CSV or JSON lines · enter to import · esc to cancel"),
	}
	return styles.HighlightCardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderConfigCard renders the configuration paths card.
func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Configuration"), ""}

	if m.config == nil {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
	} else {
		budget := "none"
		if m.config.MonthlyBudgetUSD > 0 {
			budget = report.FormatMoney(m.config.MonthlyBudgetUSD)
		}
		retention := "forever"
		if m.config.RetentionDays > 0 {
			retention = fmt.Sprintf("%d days", m.config.RetentionDays)
		}

		rows = append(rows,
			renderConfigRow("Database", m.config.DatabasePath),
			renderConfigRow("Rate card", m.config.PricingPath),
			renderConfigRow("Inbox", m.config.InboxPath),
			renderConfigRow("Log file", m.config.LogPath),
			renderConfigRow("Profile refresh", m.config.ProfileRefreshInterval.String()),
			renderConfigRow("Profile window", m.config.ProfileWindow.String()),
			renderConfigRow("Retention", retention),
			renderConfigRow("Monthly budget", budget),
		)
	}

	rows = append(rows, "")
	if m.lastPath != "" {
		rows = append(rows, renderConfigRow("Last import", m.lastPath))
	}
	rows = append(rows, styles.HelpStyle.Render("Drop exports into the inbox or press 'i' to import a file"))

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderConfigRow renders a configuration key-value row.
func renderConfigRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(18).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func (m *Model) renderPricingCard() string {
	rows := []string{styles.CardTitleStyle.Render("Rate Card"), ""}

	if m.pricing == nil {
		rows = append(rows, styles.HelpStyle.Render("Rate card not loaded"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(24).Render("Provider / mode"),
		lipgloss.NewStyle().Width(16).Align(lipgloss.Right).Render("per 1k chars"),
		lipgloss.NewStyle().Width(16).Align(lipgloss.Right).Render("per request"),
	)
	rows = append(rows, styles.TableHeaderStyle.Render(header))

	for _, p := range models.Providers() {
		for _, md := range models.Modes() {
			rate, ok := m.pricing.Rate(p, md)
			if !ok {
				continue
			}
			name := lipgloss.NewStyle().Foreground(styles.ProviderColor(p)).Render(p.DisplayName()) +
				" " + md.DisplayName()
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
				lipgloss.NewStyle().Width(24).Render(name),
				lipgloss.NewStyle().Width(16).Align(lipgloss.Right).Render(fmt.Sprintf("%.4f", rate.PerThousandChars)),
				lipgloss.NewStyle().Width(16).Align(lipgloss.Right).Render(fmt.Sprintf("%.5f", rate.PerRequest)),
			))
		}
	}

	rows = append(rows, "",
		renderConfigRow("Currency", m.pricing.Currency),
		renderConfigRow("Batch size", fmt.Sprintf("%d", m.pricing.EffectiveBatchSize())),
		renderConfigRow("Cache serving", fmt.Sprintf("%.5f / request", m.pricing.CacheServePerRequest)),
	)

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderAboutCard renders the about/version information card.
func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About Speech Cost TUI"),
		"",
		renderConfigRow("Version", version.GetVersion()),
		renderConfigRow("Build Date", version.GetDate()),
		renderConfigRow("Git Commit", version.GetCommit()),
		renderConfigRow("Go Version", runtime.Version()),
		renderConfigRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
	}

	if u := m.state.GetLastUpdated(); !u.IsZero() {
		rows = append(rows, "", fmt.Sprintf("Last estimate: %s",
			styles.InfoTextStyle.Render(u.Format("2006-01-02 15:04:05"))))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}
