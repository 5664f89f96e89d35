package info

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/speechcost-tui/internal/app"
	"github.com/j-veylop/speechcost-tui/internal/config"
	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/pricing"
)

func testConfig() *config.Config {
	return &config.Config{
		DatabasePath:           "/tmp/speechcost/usage.db",
		PricingPath:            "/tmp/speechcost/pricing.yaml",
		InboxPath:              "/tmp/speechcost/inbox",
		LogPath:                "/tmp/speechcost/sct.log",
		MonthlyBudgetUSD:       250,
		ProfileRefreshInterval: 30 * time.Second,
		ProfileWindow:          models.TimeRange7Days,
	}
}

func typeText(m *Model, s string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestNew(t *testing.T) {
	m := New(app.NewState(), testConfig(), pricing.Default())
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() != nil {
		t.Error("Init should return nil")
	}
}

func TestModel_View(t *testing.T) {
	m := New(app.NewState(), testConfig(), pricing.Default())
	m.SetSize(100, 80)

	view := m.View()
	for _, want := range []string{
		"/tmp/speechcost/usage.db",
		"/tmp/speechcost/inbox",
		"$250.00",
		"7 Days",
		"Rate Card",
		"ElevenLabs",
		"0.3000",
		"USD",
		"About Speech Cost TUI",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_ViewWithoutConfig(t *testing.T) {
	m := New(app.NewState(), nil, nil)
	m.SetSize(100, 40)

	view := m.View()
	if !strings.Contains(view, "Configuration not loaded") {
		t.Error("missing config placeholder")
	}
	if !strings.Contains(view, "Rate card not loaded") {
		t.Error("missing rate card placeholder")
	}
}

func TestModel_ImportPrompt(t *testing.T) {
	m := New(app.NewState(), testConfig(), pricing.Default())
	m.SetSize(100, 60)

	typeText(m, "i")
	if !m.CapturingInput() {
		t.Fatal("i should open the import prompt")
	}
	if !strings.Contains(m.View(), "Import log export") {
		t.Error("view should show the import prompt")
	}

	typeText(m, "/data/export.csv")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.CapturingInput() {
		t.Error("enter should close the prompt")
	}
	if cmd == nil {
		t.Fatal("enter should emit an import request")
	}
	msg, ok := cmd().(app.ImportFileMsg)
	if !ok || msg.Path != "/data/export.csv" {
		t.Errorf("got %#v, want ImportFileMsg for /data/export.csv", cmd())
	}
}

func TestModel_ImportPromptCancel(t *testing.T) {
	m := New(app.NewState(), testConfig(), nil)

	typeText(m, "i")
	typeText(m, "abc")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.CapturingInput() || cmd != nil {
		t.Error("esc should close the prompt without importing")
	}

	typeText(m, "i")
	if _, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("an empty path should not import")
	}
}

func TestModel_LastImport(t *testing.T) {
	m := New(app.NewState(), testConfig(), nil)
	m.SetSize(100, 60)

	m.Update(app.ImportResultMsg{Path: "/data/old.jsonl"})
	if !strings.Contains(m.View(), "/data/old.jsonl") {
		t.Error("view should show the last imported file")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandHome("~/logs/a.csv"); got != filepath.Join(home, "logs/a.csv") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/abs/a.csv"); got != "/abs/a.csv" {
		t.Errorf("absolute path changed to %q", got)
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState(), nil, nil)
	if len(m.ShortHelp()) != 1 {
		t.Error("ShortHelp should list the import key")
	}
	typeText(m, "i")
	if len(m.ShortHelp()) != 2 {
		t.Error("ShortHelp should list submit and cancel while importing")
	}
	if len(m.FullHelp()) == 0 {
		t.Error("FullHelp empty")
	}
}
