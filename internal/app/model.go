// Package app is the root Bubble Tea model of the dashboard. It owns the
// shared State, routes messages to the tabs and draws the navbar, toasts and
// help panel around them.
package app

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/speechcost-tui/internal/logger"
	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/services"
	"github.com/j-veylop/speechcost-tui/internal/services/ingest"
	"github.com/j-veylop/speechcost-tui/internal/ui/styles"
)

// chromeHeight is the number of rows the navbar and footer take from tabs.
const chromeHeight = 5

// Loading resources tracked in State.
const (
	resInitial  = "initial"
	resEstimate = "estimate"
	resHistory  = "history"
)

type Model struct {
	state    *State
	services *services.Manager
	commands *Commands
	keymap   KeyMap
	spinner  spinner.Model

	tabs      []Tab
	tabNames  []string
	activeTab TabID

	width, height int
	ready         bool
	showHelp      bool

	eventChannel chan services.ServiceEvent
}

// NewModel builds the root model. mgr may be nil, in which case the
// dashboard renders without data.
func NewModel(mgr *services.Manager) *Model {
	spin := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Primary)),
	)

	state := NewState()
	if mgr != nil {
		state.SetBudget(mgr.Budget())
	}

	return &Model{
		state:    state,
		services: mgr,
		commands: NewCommands(mgr),
		keymap:   DefaultKeyMap(),
		spinner:  spin,
		tabs:     make([]Tab, len(tabNames)),
		tabNames: tabNames,
	}
}

// SetTabs installs the tab implementations, indexed by TabID. Nil entries
// render a placeholder.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.resizeTabs()
	}
}

// GetState exposes the shared state the tabs are built on.
func (m *Model) GetState() *State {
	return m.state
}

func (m *Model) Init() tea.Cmd {
	m.state.SetLoadingNotification("Building usage profile...")

	cmds := []tea.Cmd{m.spinner.Tick, m.commands.DefaultTick()}
	if m.services != nil {
		m.state.SetLoading(resHistory, true)
		cmds = append(cmds, m.commands.Subscribe(), m.commands.Initial())
	}
	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && m.activeTabCapturing() {
		if key.Matches(k, m.keymap.ForceQ) {
			return m, m.quit()
		}
		return m, m.forward(msg)
	}

	cmds := []tea.Cmd{m.handle(msg)}
	cmds = append(cmds, m.forward(msg))
	return m, tea.Batch(cmds...)
}

// handle applies msg to the root model. Whatever it returns is batched with
// the tab's own reaction to the same message.
func (m *Model) handle(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resizeTabs()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case TickMsg:
		m.state.ClearExpiredNotifications()
		return m.commands.DefaultTick()

	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		return nextEvent(m.eventChannel)

	case ServiceEventMsg:
		cmd := m.handleServiceEvent(msg.Event)
		if m.eventChannel != nil {
			cmd = tea.Batch(cmd, nextEvent(m.eventChannel))
		}
		return cmd

	case SnapshotLoadedMsg:
		m.done(resInitial, resEstimate)
		if msg.Error != nil {
			return m.reportError("refresh failed", msg.Error)
		}
		m.state.SetSnapshot(msg.Snapshot)

	case HistoryLoadedMsg:
		m.done(resHistory)
		if msg.Error != nil {
			return m.reportError("history", msg.Error)
		}
		m.state.SetHistory(msg.History)

	case ImportResultMsg:
		m.done(resEstimate)
		if msg.Error != nil {
			return m.reportError("import "+filepath.Base(msg.Path), msg.Error)
		}
		return m.importedToasts(msg.Result)

	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			return expire(id, msg.Duration)
		}

	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)

	case ClearExpiredNotificationsMsg:
		m.state.ClearExpiredNotifications()

	case StartLoadingMsg:
		m.busy(msg.Resource, "Refreshing...")

	case StopLoadingMsg:
		m.done(msg.Resource)

	case RefreshMsg:
		if m.services == nil {
			return nil
		}
		m.busy(resEstimate, "Refreshing...")
		m.state.SetLoading(resHistory, true)
		return tea.Batch(m.commands.Refresh(), m.commands.LoadHistory(m.historyRange()))

	case SetUsersMsg:
		return m.commands.SetUsers(msg.Users)

	case SetTimeRangeMsg:
		if m.services == nil {
			return nil
		}
		m.busy(resEstimate, "Refreshing...")
		m.state.SetLoading(resHistory, true)
		return tea.Batch(m.commands.SetTimeRange(msg.TimeRange), m.commands.LoadHistory(msg.TimeRange))

	case LoadHistoryMsg:
		m.state.SetLoading(resHistory, true)
		return m.commands.LoadHistory(msg.TimeRange)

	case ImportFileMsg:
		if m.services == nil {
			return nil
		}
		m.busy(resEstimate, "Importing "+filepath.Base(msg.Path)+"...")
		return m.commands.ImportFile(msg.Path)

	case TabSwitchMsg:
		m.activeTab = msg.Tab
		m.resizeTabs()

	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	}
	return nil
}

// forward passes msg to the active tab, or to every tab for shared data.
func (m *Model) forward(msg tea.Msg) tea.Cmd {
	if isSharedData(msg) {
		var cmds []tea.Cmd
		for i, tab := range m.tabs {
			if tab == nil {
				continue
			}
			var cmd tea.Cmd
			m.tabs[i], cmd = tab.Update(msg)
			cmds = append(cmds, cmd)
		}
		return tea.Batch(cmds...)
	}

	tab := m.currentTab()
	if tab == nil {
		return nil
	}
	var cmd tea.Cmd
	m.tabs[m.activeTab], cmd = tab.Update(msg)
	return cmd
}

// isSharedData reports whether every tab needs msg, not just the visible one.
func isSharedData(msg tea.Msg) bool {
	switch msg.(type) {
	case SnapshotLoadedMsg, HistoryLoadedMsg, ServiceEventMsg, ImportResultMsg:
		return true
	}
	return false
}

func (m *Model) currentTab() Tab {
	if int(m.activeTab) < len(m.tabs) {
		return m.tabs[m.activeTab]
	}
	return nil
}

func (m *Model) activeTabCapturing() bool {
	c, ok := m.currentTab().(InputCapturer)
	return ok && c.CapturingInput()
}

func (m *Model) resizeTabs() {
	h := max(0, m.height-chromeHeight)
	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, h)
		}
	}
}

// busy marks resource as loading and shows label in the loading toast.
func (m *Model) busy(resource, label string) {
	m.state.SetLoading(resource, true)
	m.state.SetLoadingNotification(label)
}

// done clears the loading flags and drops the loading toast once nothing is
// left in flight.
func (m *Model) done(resources ...string) {
	for _, r := range resources {
		m.state.SetLoading(r, false)
	}
	if !m.state.AnyLoading() {
		m.state.ClearLoadingNotification()
	}
}

// reportError logs err and shows it as a toast. The state keeps whatever
// snapshot it had before the failure.
func (m *Model) reportError(context string, err error) tea.Cmd {
	if err == nil {
		return nil
	}
	logger.Error("operation failed", "context", context, "error", err)
	m.state.SetError(err)
	if context == "" {
		return toast(NotificationError, err.Error())
	}
	return toast(NotificationError, fmt.Sprintf("%s: %v", context, err))
}

func (m *Model) importedToasts(res *ingest.Result) tea.Cmd {
	if res == nil {
		return nil
	}
	name := filepath.Base(res.File)
	cmds := []tea.Cmd{toast(NotificationSuccess,
		fmt.Sprintf("Imported %d new of %d rows from %s", res.Inserted, res.Parsed, name))}
	if len(res.Skipped) > 0 {
		cmds = append(cmds, toast(NotificationWarning,
			fmt.Sprintf("%d rows skipped in %s", len(res.Skipped), name)))
	}
	if m.services != nil {
		cmds = append(cmds, m.commands.LoadHistory(m.historyRange()))
	}
	return tea.Batch(cmds...)
}

// historyRange is the window the history tab currently shows.
func (m *Model) historyRange() models.TimeRange {
	switch {
	case m.state.GetHistory() != nil:
		return m.state.GetHistory().TimeRange
	case m.services != nil:
		return m.services.TimeRange()
	default:
		return models.TimeRange7Days
	}
}

// switchTab activates t and lets the tab know it is now visible.
func (m *Model) switchTab(t TabID) tea.Cmd {
	if t < 0 || int(t) >= len(m.tabs) {
		return nil
	}
	m.activeTab = t
	m.resizeTabs()
	if m.tabs[t] == nil {
		return nil
	}
	return func() tea.Msg { return TabSwitchMsg{Tab: t} }
}

// quit drops the event subscription so the manager stops publishing to a
// program that is going away.
func (m *Model) quit() tea.Cmd {
	if m.services != nil && m.eventChannel != nil {
		m.services.Unsubscribe(m.eventChannel)
		m.eventChannel = nil
	}
	return tea.Quit
}

// handleKeyMsg handles global keys. Anything unmatched falls through to the
// active tab.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	for i, b := range m.keymap.Tabs {
		if key.Matches(msg, b) {
			return m.switchTab(TabID(i))
		}
	}

	n := len(m.tabs)
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m.quit()
	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keymap.Close):
		m.showHelp = false
	case key.Matches(msg, m.keymap.NextTab) && !m.showHelp && n > 0:
		return m.switchTab(TabID((int(m.activeTab) + 1) % n))
	case key.Matches(msg, m.keymap.PrevTab) && !m.showHelp && n > 0:
		return m.switchTab(TabID((int(m.activeTab) + n - 1) % n))
	case key.Matches(msg, m.keymap.Refresh) && m.services != nil:
		return func() tea.Msg { return RefreshMsg{} }
	}
	return nil
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.EstimateUpdatedEvent:
		m.state.SetSnapshot(e.Snapshot)
	case services.ImportedEvent:
		return m.importedToasts(e.Result)
	case services.BudgetExceededEvent:
		return toast(NotificationWarning,
			fmt.Sprintf("Projected $%.2f/month exceeds budget $%.2f", e.Total, e.Budget))
	case services.ErrorEvent:
		return m.reportError(e.Service, e.Error)
	}
	return nil
}
