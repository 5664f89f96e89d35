// Package history provides the history tab: daily request volume per
// provider, the hourly traffic pattern and the recorded cost projections.
package history

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/speechcost-tui/internal/app"
	"github.com/j-veylop/speechcost-tui/internal/models"
)

var (
	keyNextRange = key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "next time range"))
	keyPrevRange = key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "previous time range"))
	keyScroll    = key.NewBinding(key.WithKeys("up", "down", "k", "j", "pgup", "pgdown"),
		key.WithHelp("↑↓/pgup/pgdn", "scroll"))
)

// Model is the history tab. The data lives in the shared app state; the
// tab only remembers which window it asked for.
type Model struct {
	state     *app.State
	scroll    viewport.Model
	timeRange models.TimeRange

	width, height int
}

func New(state *app.State) *Model {
	return &Model{
		state:     state,
		scroll:    viewport.New(0, 0),
		timeRange: models.TimeRange30Days,
	}
}

func (m *Model) Init() tea.Cmd { return nil }

// TimeRange returns the window the tab displays.
func (m *Model) TimeRange() models.TimeRange {
	return m.timeRange
}

// request asks the root model for history over tr.
func (m *Model) request(tr models.TimeRange) tea.Cmd {
	m.timeRange = tr
	return func() tea.Msg { return app.LoadHistoryMsg{TimeRange: tr} }
}

func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.HistoryLoadedMsg:
		if msg.History != nil {
			m.timeRange = msg.History.TimeRange
		}
		return m, nil

	case app.TabSwitchMsg:
		// History is loaded lazily the first time the tab is shown.
		if msg.Tab == app.TabHistory && m.state.GetHistory() == nil {
			return m, m.request(m.timeRange)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyNextRange):
			return m, m.request(m.timeRange.Next())
		case key.Matches(msg, keyPrevRange):
			return m, m.request(m.timeRange.Prev())
		}
		var cmd tea.Cmd
		m.scroll, cmd = m.scroll.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.scroll.Width, m.scroll.Height = width, height
}

func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{keyNextRange, keyPrevRange}
}

func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{{keyNextRange, keyPrevRange}, {keyScroll}}
}
