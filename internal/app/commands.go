package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/services"
)

const (
	DefaultTickInterval = 2 * time.Second

	// Toast lifetimes. Errors stay longest so they can be read.
	QuickNotificationDuration   = 3 * time.Second
	DefaultNotificationDuration = 5 * time.Second
	LongNotificationDuration    = 10 * time.Second

	importTimeout = time.Minute
)

var toastDurations = map[NotificationType]time.Duration{
	NotificationSuccess: DefaultNotificationDuration,
	NotificationWarning: DefaultNotificationDuration,
	NotificationError:   LongNotificationDuration,
	NotificationInfo:    QuickNotificationDuration,
}

// toast returns a command that queues a notification of type t.
func toast(t NotificationType, message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: toastDurations[t]}
	}
}

// expire removes notification id once delay has passed.
func expire(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg { return RemoveNotificationMsg{ID: id} })
}

// nextEvent blocks on the subscription and yields nil once it is closed.
func nextEvent(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		if ev, ok := <-ch; ok {
			return ServiceEventMsg{Event: ev}
		}
		return nil
	}
}

// Commands turns manager calls into tea.Cmds. Every manager-backed command
// is nil when no manager is attached.
type Commands struct {
	mgr *services.Manager
}

func NewCommands(mgr *services.Manager) *Commands {
	return &Commands{mgr: mgr}
}

func (c *Commands) Tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return TickMsg{Time: t} })
}

func (c *Commands) DefaultTick() tea.Cmd {
	return c.Tick(DefaultTickInterval)
}

// Subscribe opens the model's single subscription for its lifetime.
func (c *Commands) Subscribe() tea.Cmd {
	if c.mgr == nil {
		return nil
	}
	ch, _ := c.mgr.Subscribe()
	return func() tea.Msg { return SubscriptionEventMsg{Channel: ch} }
}

// Initial delivers the manager's current snapshot, building one if needed,
// together with the history for the active window.
func (c *Commands) Initial() tea.Cmd {
	if c.mgr == nil {
		return nil
	}
	mgr := c.mgr
	return tea.Batch(
		func() tea.Msg { return SnapshotLoadedMsg{Snapshot: mgr.InitialState()} },
		c.LoadHistory(mgr.TimeRange()),
	)
}

func (c *Commands) Refresh() tea.Cmd {
	return c.snapshot(func(m *services.Manager) (*services.Snapshot, error) {
		return m.Refresh()
	})
}

func (c *Commands) SetUsers(n int) tea.Cmd {
	return c.snapshot(func(m *services.Manager) (*services.Snapshot, error) {
		return m.SetMonthlyUsers(n), nil
	})
}

func (c *Commands) SetTimeRange(tr models.TimeRange) tea.Cmd {
	return c.snapshot(func(m *services.Manager) (*services.Snapshot, error) {
		return m.SetTimeRange(tr)
	})
}

func (c *Commands) snapshot(fn func(*services.Manager) (*services.Snapshot, error)) tea.Cmd {
	if c.mgr == nil {
		return nil
	}
	mgr := c.mgr
	return func() tea.Msg {
		snap, err := fn(mgr)
		return SnapshotLoadedMsg{Snapshot: snap, Error: err}
	}
}

func (c *Commands) LoadHistory(tr models.TimeRange) tea.Cmd {
	if c.mgr == nil {
		return nil
	}
	mgr := c.mgr
	return func() tea.Msg {
		h, err := mgr.GetUsageHistory(tr)
		return HistoryLoadedMsg{History: h, Error: err}
	}
}

// ImportFile stores the rows of a log export. The manager re-estimates and
// broadcasts the new snapshot itself.
func (c *Commands) ImportFile(path string) tea.Cmd {
	if c.mgr == nil {
		return nil
	}
	mgr := c.mgr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()
		res, err := mgr.ImportFile(ctx, path)
		return ImportResultMsg{Path: path, Result: res, Error: err}
	}
}

func (c *Commands) NotifySuccess(message string) tea.Cmd { return toast(NotificationSuccess, message) }
func (c *Commands) NotifyError(message string) tea.Cmd   { return toast(NotificationError, message) }
func (c *Commands) NotifyWarning(message string) tea.Cmd { return toast(NotificationWarning, message) }
func (c *Commands) NotifyInfo(message string) tea.Cmd    { return toast(NotificationInfo, message) }

func (c *Commands) ClearNotification(id string, delay time.Duration) tea.Cmd {
	return expire(id, delay)
}
