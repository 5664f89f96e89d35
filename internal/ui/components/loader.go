package components

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/speechcost-tui/internal/ui/styles"
)

// Loader is a spinner with a label and the resources still being loaded.
type Loader struct {
	spin    spinner.Model
	label   string
	pending []string
}

// NewLoader creates a loader showing label.
func NewLoader(label string) Loader {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)
	return Loader{spin: s, label: label}
}

// Tick starts the spinner animation.
func (l Loader) Tick() tea.Cmd {
	return l.spin.Tick
}

// Update advances the spinner on its own tick messages.
func (l Loader) Update(msg tea.Msg) (Loader, tea.Cmd) {
	var cmd tea.Cmd
	l.spin, cmd = l.spin.Update(msg)
	return l, cmd
}

// SetLabel replaces the label.
func (l *Loader) SetLabel(label string) {
	l.label = label
}

// Label returns the current label.
func (l Loader) Label() string {
	return l.label
}

// SetPending records which resources are still loading, in sorted order.
func (l *Loader) SetPending(resources []string) {
	l.pending = slices.Sorted(slices.Values(resources))
}

// View renders the spinner, the label and the pending resources.
func (l Loader) View() string {
	out := l.spin.View() + " " + lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(l.label)
	if len(l.pending) > 0 {
		out += " " + styles.HelpStyle.Render("("+strings.Join(l.pending, ", ")+")")
	}
	return out
}

// RenderLoaderCentered centers the loader in a width × height box.
func RenderLoaderCentered(l Loader, width, height int) string {
	return styles.CenterBoth(l.View(), width, height)
}
