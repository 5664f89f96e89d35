package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/speechcost-tui/internal/config"
	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/services"
	"github.com/j-veylop/speechcost-tui/internal/services/ingest"
)

func newTestManager(t *testing.T) *services.Manager {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DatabasePath:           filepath.Join(dir, "usage.db"),
		PricingPath:            filepath.Join(dir, "pricing.yaml"),
		MonthlyUsers:           500,
		MonthlyBudgetUSD:       0,
		ProfileRefreshInterval: time.Minute,
		ProfileWindow:          models.TimeRange7Days,
	}
	mgr, err := services.NewManager(cfg,
		services.WithoutBackground(),
		services.WithNotifier(func(string, string) error { return nil }),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func writeExport(t *testing.T, dir string, rows int) string {
	t.Helper()
	var b strings.Builder
	now := time.Now().UTC()
	for i := range rows {
		fmt.Fprintf(&b,
			`{"request_id":"r-%d","timestamp":"%s","session_id":"s%d","user_id":"u%d","provider":"elevenlabs","mode":"standard","text_length":100}`+"\n",
			i, now.Add(-time.Duration(i)*time.Minute).Format(time.RFC3339), i%2, i%2)
	}
	path := filepath.Join(dir, "export.jsonl")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// fakeTab records the messages it sees.
type fakeTab struct {
	capturing bool
	seen      []tea.Msg
}

func (f *fakeTab) Init() tea.Cmd { return nil }
func (f *fakeTab) Update(msg tea.Msg) (Tab, tea.Cmd) {
	f.seen = append(f.seen, msg)
	return f, nil
}
func (f *fakeTab) View() string              { return "fake tab" }
func (f *fakeTab) SetSize(int, int)          {}
func (f *fakeTab) ShortHelp() []key.Binding  { return nil }
func (f *fakeTab) FullHelp() [][]key.Binding { return nil }
func (f *fakeTab) CapturingInput() bool      { return f.capturing }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func lastNotification(t *testing.T, m *Model) Notification {
	t.Helper()
	n := m.state.GetNotifications()
	if len(n) == 0 {
		t.Fatal("expected a notification")
	}
	return n[len(n)-1]
}

// drain runs cmd and feeds any AddNotificationMsg it yields back into m.
func drain(m *Model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case AddNotificationMsg:
		m.Update(msg)
	case tea.BatchMsg:
		for _, c := range msg {
			drain(m, c)
		}
	}
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil)
	if model == nil {
		t.Fatal("NewModel returned nil")
	}
	if model.state == nil {
		t.Error("State should be initialized")
	}
	if model.activeTab != TabOverview {
		t.Error("Default tab should be Overview")
	}
	if len(model.tabs) != 4 {
		t.Errorf("Should have 4 tab slots, got %d", len(model.tabs))
	}
}

func TestModel_Init(t *testing.T) {
	model := NewModel(nil)
	if cmd := model.Init(); cmd == nil {
		t.Error("Init returned nil command")
	}
	if n := lastNotification(t, model); n.Type != NotificationLoading {
		t.Errorf("Init should show a loading toast, got %v", n.Type)
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	model := NewModel(nil)
	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	m, ok := newModel.(*Model)
	if !ok {
		t.Fatal("Update returned wrong model type")
	}
	if m.width != 100 || m.height != 50 {
		t.Errorf("size = %dx%d, want 100x50", m.width, m.height)
	}
	if !m.ready {
		t.Error("Model should be ready after WindowSizeMsg")
	}
}

func TestModel_TabSwitching(t *testing.T) {
	model := NewModel(nil)
	model.ready = true
	model.width = 100
	model.height = 50

	model.Update(TabSwitchMsg{Tab: TabHistory})
	if model.activeTab != TabHistory {
		t.Errorf("ActiveTab = %v, want History", model.activeTab)
	}

	tests := []struct {
		key  string
		want TabID
	}{
		{"1", TabOverview},
		{"2", TabScenarios},
		{"3", TabHistory},
		{"4", TabInfo},
	}
	for _, tt := range tests {
		model.Update(runes(tt.key))
		if model.activeTab != tt.want {
			t.Errorf("key %s: ActiveTab = %v, want %v", tt.key, model.activeTab, tt.want)
		}
	}

	model.Update(tea.KeyMsg{Type: tea.KeyTab})
	if model.activeTab != TabOverview {
		t.Errorf("tab should wrap to Overview, got %v", model.activeTab)
	}
	model.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if model.activeTab != TabInfo {
		t.Errorf("shift+tab should wrap to Info, got %v", model.activeTab)
	}
}

func TestModel_CapturingTabGetsKeys(t *testing.T) {
	model := NewModel(nil)
	tab := &fakeTab{capturing: true}
	model.SetTabs([]Tab{tab, nil, nil, nil})

	_, cmd := model.Update(runes("q"))
	if cmd != nil {
		if _, quit := cmd().(tea.QuitMsg); quit {
			t.Fatal("q must not quit while the tab captures input")
		}
	}
	model.Update(runes("3"))
	if model.activeTab != TabOverview {
		t.Error("tab keys must not switch while capturing")
	}
	if len(tab.seen) != 2 {
		t.Errorf("tab saw %d messages, want 2", len(tab.seen))
	}

	_, cmd = model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should produce QuitMsg")
	}
}

func TestModel_QuitUnsubscribes(t *testing.T) {
	mgr := newTestManager(t)
	ch, _ := mgr.Subscribe()

	model := NewModel(mgr)
	model.Update(SubscriptionEventMsg{Channel: ch})
	if model.eventChannel != ch {
		t.Fatal("subscription channel not stored")
	}

	_, cmd := model.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if model.eventChannel != nil {
		t.Error("quit should forget the event channel")
	}
	if _, ok := <-ch; ok {
		t.Error("quit should close the subscription")
	}
}

func TestModel_Update_Tick(t *testing.T) {
	model := NewModel(nil)
	_, cmd := model.Update(TickMsg{Time: time.Now()})
	if cmd == nil {
		t.Error("TickMsg should return a command (next tick)")
	}
}

func TestModel_View(t *testing.T) {
	model := NewModel(nil)

	if view := model.View(); !strings.Contains(view, "Loading...") {
		t.Error("View should show Loading when not ready")
	}

	model.ready = true
	model.width = 100
	model.height = 24

	view := model.View()
	for _, name := range []string{"Overview", "Scenarios", "History", "Info"} {
		if !strings.Contains(view, name) {
			t.Errorf("navbar should show %s", name)
		}
	}
	if !strings.Contains(view, "No view registered") {
		t.Error("View should show placeholder text")
	}

	model.SetTabs([]Tab{&fakeTab{}, nil, nil, nil})
	if view := model.View(); !strings.Contains(view, "fake tab") {
		t.Error("View should render the active tab")
	}
}

func TestModel_Help(t *testing.T) {
	model := NewModel(nil)
	model.ready = true
	model.width = 80
	model.height = 10

	model.Update(ToggleHelpMsg{})
	if !model.showHelp {
		t.Error("showHelp should be true")
	}
	if view := model.View(); !strings.Contains(view, "Keyboard Shortcuts") {
		t.Error("View should show help modal")
	}

	model.handleKeyMsg(runes("?"))
	if model.showHelp {
		t.Error("showHelp should be false after toggle")
	}

	model.showHelp = true
	model.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEsc})
	if model.showHelp {
		t.Error("esc should close help")
	}
}

func TestModel_Notifications(t *testing.T) {
	model := NewModel(nil)
	model.Update(AddNotificationMsg{Message: "Test Note", Type: NotificationInfo})

	if n := model.state.GetNotifications(); len(n) != 1 {
		t.Errorf("Expected 1 notification, got %d", len(n))
	}

	model.ready = true
	model.width = 80
	model.height = 24
	if view := model.View(); !strings.Contains(view, "Test Note") {
		t.Error("View should show notification")
	}

	id := lastNotification(t, model).ID
	model.Update(RemoveNotificationMsg{ID: id})
	if n := model.state.GetNotifications(); len(n) != 0 {
		t.Errorf("notification should be removed, got %d", len(n))
	}
}

func TestModel_SnapshotLoaded(t *testing.T) {
	model := NewModel(nil)
	model.Init()

	snap := &services.Snapshot{MonthlyUsers: 42}
	model.Update(SnapshotLoadedMsg{Snapshot: snap})

	if model.state.GetSnapshot() != snap {
		t.Error("snapshot should be stored")
	}
	if model.state.IsInitialLoading() {
		t.Error("initial loading should be cleared")
	}
	for _, n := range model.state.GetNotifications() {
		if n.ID == LoadingNotificationID {
			t.Error("loading toast should be cleared")
		}
	}
}

func TestModel_SnapshotErrorKeepsPrevious(t *testing.T) {
	model := NewModel(nil)
	prev := &services.Snapshot{MonthlyUsers: 10}
	model.state.SetSnapshot(prev)

	_, cmd := model.Update(SnapshotLoadedMsg{Error: errors.New("database locked")})
	drain(model, cmd)

	if model.state.GetSnapshot() != prev {
		t.Error("a failed refresh must keep the previous snapshot")
	}
	if model.state.GetError() == nil {
		t.Error("error should be recorded")
	}
	n := lastNotification(t, model)
	if n.Type != NotificationError || !strings.Contains(n.Message, "database locked") {
		t.Errorf("unexpected toast %+v", n)
	}
}

func TestModel_HistoryLoaded(t *testing.T) {
	model := NewModel(nil)
	model.state.SetLoading("history", true)

	h := &models.UsageHistory{TimeRange: models.TimeRange30Days}
	model.Update(HistoryLoadedMsg{History: h})
	if model.state.GetHistory() != h {
		t.Error("history should be stored")
	}
	if model.state.Loading.History {
		t.Error("history loading should be cleared")
	}
	if got := model.historyRange(); got != models.TimeRange30Days {
		t.Errorf("historyRange = %v, want 30 Days", got)
	}

	_, cmd := model.Update(HistoryLoadedMsg{Error: errors.New("boom")})
	drain(model, cmd)
	if model.state.GetHistory() != h {
		t.Error("failed history load must keep previous data")
	}
}

func TestModel_HandleServiceEvent(t *testing.T) {
	model := NewModel(nil)

	snap := &services.Snapshot{MonthlyUsers: 7}
	if cmd := model.handleServiceEvent(services.EstimateUpdatedEvent{Snapshot: snap}); cmd != nil {
		t.Error("estimate event should not need a command")
	}
	if model.state.GetSnapshot() != snap {
		t.Error("snapshot should be updated from event")
	}

	drain(model, model.handleServiceEvent(services.BudgetExceededEvent{Total: 120, Budget: 100}))
	n := lastNotification(t, model)
	if n.Type != NotificationWarning || !strings.Contains(n.Message, "$120.00") {
		t.Errorf("unexpected budget toast %+v", n)
	}

	drain(model, model.handleServiceEvent(services.ImportedEvent{Result: &ingest.Result{
		File: "/tmp/inbox/a.jsonl", Parsed: 5, Inserted: 4,
		Skipped: []ingest.RowError{{Line: 3}},
	}}))
	notes := model.state.GetNotifications()
	if len(notes) < 2 {
		t.Fatalf("expected import toasts, got %d", len(notes))
	}
	if !strings.Contains(notes[len(notes)-2].Message, "Imported 4 new of 5 rows from a.jsonl") {
		t.Errorf("unexpected import toast %q", notes[len(notes)-2].Message)
	}
	if notes[len(notes)-1].Type != NotificationWarning {
		t.Error("skipped rows should add a warning toast")
	}

	drain(model, model.handleServiceEvent(services.ErrorEvent{Service: "ingest", Error: errors.New("bad file")}))
	n = lastNotification(t, model)
	if n.Type != NotificationError || !strings.Contains(n.Message, "ingest: bad file") {
		t.Errorf("unexpected error toast %+v", n)
	}
	if model.state.GetSnapshot() != snap {
		t.Error("error event must keep the snapshot")
	}
}

func TestModel_LoadingMessages(t *testing.T) {
	model := NewModel(nil)
	model.state.SetLoading("initial", false)

	model.Update(StartLoadingMsg{Resource: "estimate"})
	if !model.state.Loading.Estimate {
		t.Error("Loading.Estimate should be true")
	}
	model.Update(StopLoadingMsg{Resource: "estimate"})
	if model.state.AnyLoading() {
		t.Error("nothing should be loading")
	}
	if len(model.state.GetNotifications()) != 0 {
		t.Error("loading toast should be cleared")
	}
}

func TestModel_ActionsWithoutManager(t *testing.T) {
	model := NewModel(nil)
	for _, msg := range []tea.Msg{
		RefreshMsg{},
		SetUsersMsg{Users: 10},
		SetTimeRangeMsg{TimeRange: models.TimeRange24Hours},
		ImportFileMsg{Path: "x.jsonl"},
		ClearExpiredNotificationsMsg{},
	} {
		model.Update(msg)
	}
	if model.handleKeyMsg(runes("r")) != nil {
		t.Error("refresh key without a manager should do nothing")
	}
}

func TestModel_WithManager(t *testing.T) {
	mgr := newTestManager(t)
	model := NewModel(mgr)

	msg := model.commands.Refresh()()
	model.Update(msg)
	snap := model.state.GetSnapshot()
	if snap == nil {
		t.Fatal("refresh should load a snapshot")
	}
	if snap.MonthlyUsers != 500 {
		t.Errorf("MonthlyUsers = %d, want 500", snap.MonthlyUsers)
	}

	path := writeExport(t, t.TempDir(), 10)
	res, ok := model.commands.ImportFile(path)().(ImportResultMsg)
	if !ok {
		t.Fatal("import should yield ImportResultMsg")
	}
	if res.Error != nil {
		t.Fatalf("import: %v", res.Error)
	}
	if res.Result.Inserted != 10 {
		t.Errorf("Inserted = %d, want 10", res.Result.Inserted)
	}
	_, cmd := model.Update(res)
	drain(model, cmd)
	if n := model.state.GetNotifications(); len(n) == 0 || n[0].Type != NotificationSuccess {
		t.Error("import should show a success toast")
	}

	users := model.commands.SetUsers(1000)().(SnapshotLoadedMsg)
	model.Update(users)
	if got := model.state.GetSnapshot().MonthlyUsers; got != 1000 {
		t.Errorf("MonthlyUsers = %d, want 1000", got)
	}
	if model.state.GetSnapshot().Profile.SampleSize != 10 {
		t.Errorf("SampleSize = %d, want 10", model.state.GetSnapshot().Profile.SampleSize)
	}

	hist := model.commands.LoadHistory(models.TimeRange24Hours)().(HistoryLoadedMsg)
	if hist.Error != nil {
		t.Fatalf("history: %v", hist.Error)
	}
	if hist.History.TotalRequests != 10 {
		t.Errorf("TotalRequests = %d, want 10", hist.History.TotalRequests)
	}

	tr := model.commands.SetTimeRange(models.TimeRange30Days)().(SnapshotLoadedMsg)
	if tr.Error != nil {
		t.Fatal(tr.Error)
	}
	if tr.Snapshot.TimeRange != models.TimeRange30Days {
		t.Errorf("TimeRange = %v, want 30 Days", tr.Snapshot.TimeRange)
	}
}

func TestModel_HandleSpinnerTick(t *testing.T) {
	model := NewModel(nil)
	if _, cmd := model.Update(spinner.TickMsg{}); cmd == nil {
		t.Error("Spinner tick should return command")
	}
}

func TestTabID_String(t *testing.T) {
	tests := map[TabID]string{
		TabOverview:  "Overview",
		TabScenarios: "Scenarios",
		TabHistory:   "History",
		TabInfo:      "Info",
		TabID(999):   "Unknown",
		TabID(-1):    "Unknown",
	}
	for id, want := range tests {
		if got := id.String(); got != want {
			t.Errorf("TabID(%d).String() = %q, want %q", id, got, want)
		}
	}
}

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()
	if len(km.ShortHelp()) == 0 {
		t.Error("ShortHelp empty")
	}
	if len(km.FullHelp()) == 0 {
		t.Error("FullHelp empty")
	}
}

func TestModel_SharedDataReachesEveryTab(t *testing.T) {
	model := NewModel(nil)
	overview, history := &fakeTab{}, &fakeTab{}
	model.SetTabs([]Tab{overview, nil, history, nil})

	model.Update(HistoryLoadedMsg{History: &models.UsageHistory{}})
	if len(overview.seen) != 1 || len(history.seen) != 1 {
		t.Errorf("seen = %d/%d, want 1/1", len(overview.seen), len(history.seen))
	}

	model.Update(TickMsg{Time: time.Now()})
	if len(history.seen) != 1 {
		t.Error("tick should only reach the active tab")
	}
}

func TestModel_TabKeyNotifiesTab(t *testing.T) {
	model := NewModel(nil)
	model.SetTabs([]Tab{&fakeTab{}, nil, &fakeTab{}, nil})

	_, cmd := model.Update(runes("3"))
	if cmd == nil {
		t.Fatal("expected a TabSwitchMsg command")
	}
	found := false
	var walk func(tea.Cmd)
	walk = func(c tea.Cmd) {
		if c == nil {
			return
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			for _, sub := range msg {
				walk(sub)
			}
		case TabSwitchMsg:
			found = msg.Tab == TabHistory
		}
	}
	walk(cmd)
	if !found {
		t.Error("switching tabs should emit TabSwitchMsg")
	}
}
