package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/report"
	"github.com/j-veylop/speechcost-tui/internal/ui/styles"
)

// toastTop is the first screen row toasts may occupy, below the navbar.
const toastTop = 2

var toastIcons = map[NotificationType]string{
	NotificationSuccess: "✓",
	NotificationError:   "✗",
	NotificationWarning: "⚠",
	NotificationInfo:    "ℹ",
}

var toastColors = map[NotificationType]lipgloss.Color{
	NotificationSuccess: styles.Success,
	NotificationError:   styles.Error,
	NotificationWarning: styles.Warning,
	NotificationInfo:    styles.Info,
	NotificationLoading: styles.Info,
}

// View renders the navbar, the active tab and any overlays.
func (m *Model) View() string {
	var header string
	if m.width > 0 {
		header = m.renderNavbar() + "\n"
	}

	if !m.ready {
		return header + lipgloss.NewStyle().Padding(1, 2).Render(m.spinner.View()+" Loading...")
	}

	screen := header + m.renderBody()

	if m.showHelp {
		panel := m.renderHelp()
		x := (m.width - lipgloss.Width(panel)) / 2
		y := (m.height - lipgloss.Height(panel)) / 2
		screen = placeAt(screen, panel, x, y)
	}

	if toasts := m.renderToasts(); toasts != "" {
		screen = placeAt(screen, toasts, m.width-lipgloss.Width(toasts)-2, toastTop)
	}

	return screen
}

func (m *Model) renderBody() string {
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		return m.tabs[m.activeTab].View()
	}
	msg := styles.HelpStyle.Render("No view registered for this tab.")
	return lipgloss.NewStyle().Padding(1, 2).Render(
		fmt.Sprintf("%d · %s\n\n%s", m.activeTab+1, m.tabNames[m.activeTab], msg))
}

// placeAt paints block over base with its top-left corner at column x, row y.
// base grows downward when block extends past its last row.
func placeAt(base, block string, x, y int) string {
	x, y = max(x, 0), max(y, 0)
	rows := strings.Split(base, "\n")
	w := lipgloss.Width(block)

	for i, line := range strings.Split(block, "\n") {
		row := y + i
		for row >= len(rows) {
			rows = append(rows, "")
		}
		left := ansi.Truncate(rows[row], x, "")
		if gap := x - lipgloss.Width(left); gap > 0 {
			left += strings.Repeat(" ", gap)
		}
		rows[row] = left + line + ansi.TruncateLeft(rows[row], x+w, "")
	}
	return strings.Join(rows, "\n")
}

// renderNavbar draws the numbered tabs on the left and the current
// estimate summary on the right.
func (m *Model) renderNavbar() string {
	items := make([]string, 0, len(m.tabNames))
	for i, name := range m.tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if TabID(i) == m.activeTab {
			items = append(items, styles.NavActiveStyle.Render(label))
			continue
		}
		items = append(items, styles.NavInactiveStyle.Render(label))
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top, items...)

	status := m.renderStatus()
	gap := m.width - lipgloss.Width(tabs) - lipgloss.Width(status) - 1
	if status == "" || gap < 2 {
		return styles.NavBarStyle.Width(m.width).Render(tabs)
	}
	return styles.NavBarStyle.Width(m.width).Render(tabs + strings.Repeat(" ", gap) + status)
}

// renderStatus summarizes the loaded snapshot: users, window and monthly total.
func (m *Model) renderStatus() string {
	snap := m.state.GetSnapshot()
	if snap == nil {
		return ""
	}

	parts := []string{
		fmt.Sprintf("%s users", report.FormatCount(float64(snap.MonthlyUsers))),
		snap.TimeRange.String(),
	}
	total := report.FormatMoney(snap.Estimate.TotalMonthly) + "/mo"
	if snap.Budget != nil && snap.Budget.Status != models.BudgetUnknown {
		total = styles.BudgetStyle(snap.Budget.Status).Render(total)
	} else {
		total = styles.MoneyStyle.Render(total)
	}
	parts = append(parts, total)

	return styles.HelpStyle.Render(strings.Join(parts[:2], " · ") + " · ") + parts[2]
}

// renderToasts stacks the active notifications, newest last.
func (m *Model) renderToasts() string {
	notes := m.state.GetNotifications()
	if len(notes) == 0 {
		return ""
	}

	boxes := make([]string, 0, len(notes))
	for _, n := range notes {
		icon := toastIcons[n.Type]
		if n.Type == NotificationLoading {
			icon = m.spinner.View()
		}
		style := lipgloss.NewStyle().Foreground(toastColors[n.Type])
		if n.Type == NotificationError {
			style = style.Bold(true)
		}
		boxes = append(boxes, styles.ToastStyle.
			BorderForeground(toastColors[n.Type]).
			Render(style.Render(icon+" "+n.Message)))
	}
	return lipgloss.JoinVertical(lipgloss.Right, boxes...)
}

// renderHelp lists the global bindings followed by those of the active tab.
func (m *Model) renderHelp() string {
	sections := []struct {
		title    string
		bindings []key.Binding
	}{
		{"Tabs", append(m.keymap.Tabs[:], m.keymap.NextTab, m.keymap.PrevTab)},
		{"General", []key.Binding{m.keymap.Refresh, m.keymap.Help, m.keymap.Close, m.keymap.Quit}},
	}
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		if tb := m.tabs[m.activeTab].ShortHelp(); len(tb) > 0 {
			sections = append(sections, struct {
				title    string
				bindings []key.Binding
			}{m.tabNames[m.activeTab], tb})
		}
	}

	lines := []string{styles.TitleStyle.Render("Keyboard Shortcuts")}
	for _, sec := range sections {
		lines = append(lines, styles.SubTitleStyle.UnsetMarginBottom().Render(sec.title))
		for _, b := range sec.bindings {
			h := b.Help()
			if h.Key == "" {
				continue
			}
			lines = append(lines, "  "+
				styles.HelpKeyStyle.Width(14).Render(h.Key)+
				styles.HelpDescStyle.Render(h.Desc))
		}
		lines = append(lines, "")
	}
	lines = append(lines, styles.HelpStyle.Render("? or esc closes this panel"))

	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}
