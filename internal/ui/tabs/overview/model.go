// Package overview provides the main tab: the usage profile and the
// projected monthly cost broken down by provider, mode and cache status.
package overview

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/speechcost-tui/internal/app"
	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/ui/components"
	"github.com/j-veylop/speechcost-tui/internal/ui/styles"
)

const maxUsers = 100_000_000

type loadingTickMsg time.Time

func loadingTickCmd() tea.Cmd {
	return tea.Tick(40*time.Millisecond, func(t time.Time) tea.Msg {
		return loadingTickMsg(t)
	})
}

// keyMap defines the key bindings specific to the overview tab.
type keyMap struct {
	MoreUsers  key.Binding
	FewerUsers key.Binding
	EditUsers  key.Binding
	Window     key.Binding
	Submit     key.Binding
	Cancel     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		MoreUsers:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more users")),
		FewerUsers: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "fewer users")),
		EditUsers:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "set users")),
		Window:     key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "profile window")),
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

const (
	barElevenLabs = "elevenlabs"
	barOpenAI     = "openai"
	barStandard   = "standard"
	barStreaming  = "streaming"
	barUncached   = "uncached"
	barCached     = "cached"
)

// Model represents the overview tab state.
type Model struct {
	state    *app.State
	loader   components.Loader
	keys     keyMap
	viewport viewport.Model
	input    textinput.Model
	bars     map[string]*components.ShareBar

	editing        bool
	width          int
	height         int
	animationFrame int
}

// New creates a new overview model.
func New(state *app.State) *Model {
	in := textinput.New()
	in.Placeholder = "monthly users"
	in.CharLimit = 9
	in.Prompt = "users ▸ "
	in.Validate = func(s string) error {
		if s == "" {
			return nil
		}
		_, err := strconv.Atoi(s)
		return err
	}

	bar := func(label string, color lipgloss.Color) *components.ShareBar {
		b := components.NewShareBar(label, color, 30)
		return &b
	}

	return &Model{
		state:    state,
		loader:   components.NewLoader("Building usage profile..."),
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
		input:    in,
		bars: map[string]*components.ShareBar{
			barElevenLabs: bar(models.ProviderElevenLabs.DisplayName(), styles.ElevenLabs),
			barOpenAI:     bar(models.ProviderOpenAI.DisplayName(), styles.OpenAI),
			barStandard:   bar(models.ModeStandard.DisplayName(), styles.Secondary),
			barStreaming:  bar(models.ModeStreaming.DisplayName(), styles.Info),
			barUncached:   bar("Uncached", styles.Warning),
			barCached:     bar("Cached", styles.Success),
		},
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loader.Tick(), loadingTickCmd())
}

// CapturingInput reports whether the user count editor has focus.
func (m *Model) CapturingInput() bool {
	return m.editing
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case app.SnapshotLoadedMsg, app.ServiceEventMsg:
		cmds = append(cmds, m.syncBars())

	case components.AnimationTickMsg:
		for k, b := range m.bars {
			nb, cmd := b.Update(msg)
			*m.bars[k] = nb
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		// Every bar shares one tick; keep only one follow-up.
		if len(cmds) > 1 {
			cmds = cmds[:1]
		}

	case loadingTickMsg:
		m.animationFrame++
		if m.state.AnyLoading() {
			cmds = append(cmds, loadingTickCmd())
		}

	case app.StartLoadingMsg:
		cmds = append(cmds, loadingTickCmd())

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.loader, cmd = m.loader.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// syncBars points every share bar at the current snapshot.
func (m *Model) syncBars() tea.Cmd {
	snap := m.state.GetSnapshot()
	if snap == nil {
		return nil
	}
	est := snap.Estimate

	uncached, cached := 0.0, 0.0
	if est.TotalMonthly > 0 {
		uncached = est.Uncached / est.TotalMonthly * 100
		cached = est.Cached / est.TotalMonthly * 100
	}

	targets := map[string]float64{
		barElevenLabs: est.ProviderShare(models.ProviderElevenLabs),
		barOpenAI:     est.ProviderShare(models.ProviderOpenAI),
		barStandard:   est.ModeShare(models.ModeStandard),
		barStreaming:  est.ModeShare(models.ModeStreaming),
		barUncached:   uncached,
		barCached:     cached,
	}

	var tick tea.Cmd
	for k, v := range targets {
		if cmd := m.bars[k].SetPercent(v); cmd != nil {
			tick = cmd
		}
	}
	return tick
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if m.editing {
		return m.handleEditKey(msg)
	}

	snap := m.state.GetSnapshot()
	switch {
	case key.Matches(msg, m.keys.MoreUsers):
		if snap != nil {
			return setUsers(StepUsers(snap.MonthlyUsers, true))
		}
	case key.Matches(msg, m.keys.FewerUsers):
		if snap != nil {
			return setUsers(StepUsers(snap.MonthlyUsers, false))
		}
	case key.Matches(msg, m.keys.EditUsers):
		m.editing = true
		m.input.Reset()
		if snap != nil {
			m.input.SetValue(strconv.Itoa(snap.MonthlyUsers))
			m.input.CursorEnd()
		}
		return m.input.Focus()
	case key.Matches(msg, m.keys.Window):
		if snap != nil {
			next := snap.TimeRange.Next()
			return func() tea.Msg { return app.SetTimeRangeMsg{TimeRange: next} }
		}
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.stopEditing()
		return nil
	case key.Matches(msg, m.keys.Submit):
		value := strings.TrimSpace(m.input.Value())
		m.stopEditing()
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return func() tea.Msg {
				return app.AddNotificationMsg{
					Type:     app.NotificationWarning,
					Message:  fmt.Sprintf("%q is not a user count", value),
					Duration: app.DefaultNotificationDuration,
				}
			}
		}
		return setUsers(min(n, maxUsers))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) stopEditing() {
	m.editing = false
	m.input.Blur()
}

func setUsers(n int) tea.Cmd {
	return func() tea.Msg { return app.SetUsersMsg{Users: n} }
}

// StepUsers returns the next user count on a 1-2-5 scale.
func StepUsers(n int, up bool) int {
	steps := func(decade int) []int { return []int{decade, 2 * decade, 5 * decade} }

	if up {
		for decade := 1; decade <= maxUsers; decade *= 10 {
			for _, s := range steps(decade) {
				if s > n {
					return min(s, maxUsers)
				}
			}
		}
		return maxUsers
	}

	if n <= 1 {
		return 0
	}
	decade := int(math.Pow(10, math.Floor(math.Log10(float64(n-1)))))
	for decade >= 1 {
		s := steps(decade)
		for i := len(s) - 1; i >= 0; i-- {
			if s[i] < n {
				return s[i]
			}
		}
		decade /= 10
	}
	return 0
}

// SetSize sets the available size for the overview.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.MoreUsers, m.keys.FewerUsers, m.keys.EditUsers, m.keys.Window}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.MoreUsers, m.keys.FewerUsers, m.keys.EditUsers},
		{m.keys.Window},
		{m.keys.Submit, m.keys.Cancel},
	}
}
