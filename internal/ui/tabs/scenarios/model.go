// Package scenarios provides the comparison tab: the baseline estimate next
// to the caching, batching and combined optimization scenarios.
package scenarios

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/speechcost-tui/internal/app"
	"github.com/j-veylop/speechcost-tui/internal/models"
)

var (
	keyPrevScenario = key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous scenario"))
	keyNextScenario = key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next scenario"))
)

// Model is the scenarios tab. Scenarios come from the latest snapshot in the
// shared state; the tab only tracks which one is highlighted.
type Model struct {
	state    *app.State
	viewport viewport.Model
	selected int

	width, height int
}

func New(state *app.State) *Model {
	return &Model{state: state, viewport: viewport.New(0, 0)}
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) scenarios() []models.Scenario {
	if snap := m.state.GetSnapshot(); snap != nil {
		return snap.Scenarios
	}
	return nil
}

// Selected returns the index of the highlighted scenario.
func (m *Model) Selected() int {
	return m.selected
}

// move shifts the highlight by delta, staying inside the scenario list.
func (m *Model) move(delta int) {
	last := len(m.scenarios()) - 1
	m.selected = max(min(m.selected+delta, last), 0)
}

func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.SnapshotLoadedMsg:
		m.move(0)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyPrevScenario):
			m.move(-1)
		case key.Matches(msg, keyNextScenario):
			m.move(1)
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width, m.viewport.Height = width, height
}

func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{keyPrevScenario, keyNextScenario}
}

func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{m.ShortHelp()}
}
