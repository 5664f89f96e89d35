package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// TabID indexes the dashboard tabs in navbar order.
type TabID int

const (
	TabOverview TabID = iota
	TabScenarios
	TabHistory
	TabInfo
)

var tabNames = []string{"Overview", "Scenarios", "History", "Info"}

func (t TabID) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return "Unknown"
	}
	return tabNames[t]
}

// Tab is one screen of the dashboard. Tabs read shared data from State and
// receive every message while active; snapshot, history, import and service
// messages reach them even when hidden.
type Tab interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Tab, tea.Cmd)
	View() string
	SetSize(width, height int)
	ShortHelp() []key.Binding
	FullHelp() [][]key.Binding
}

// InputCapturer is implemented by tabs with a text input. While it reports
// true, keys go straight to the tab and only ctrl+c stays global.
type InputCapturer interface {
	CapturingInput() bool
}

// KeyMap holds the global bindings. Tabs define their own.
type KeyMap struct {
	Tabs    [4]key.Binding // indexed by TabID
	NextTab key.Binding
	PrevTab key.Binding
	Refresh key.Binding
	Help    key.Binding
	Close   key.Binding
	Quit    key.Binding
	ForceQ  key.Binding
}

// DefaultKeyMap returns the global bindings.
func DefaultKeyMap() KeyMap {
	bind := func(keys []string, help, desc string) key.Binding {
		return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
	}
	return KeyMap{
		Tabs: [4]key.Binding{
			bind([]string{"1"}, "1", "usage profile and estimate"),
			bind([]string{"2"}, "2", "optimization scenarios"),
			bind([]string{"3"}, "3", "request history"),
			bind([]string{"4"}, "4", "configuration and rate card"),
		},
		NextTab: bind([]string{"tab", "right"}, "tab/→", "next tab"),
		PrevTab: bind([]string{"shift+tab", "left"}, "shift+tab/←", "previous tab"),
		Refresh: bind([]string{"r", "ctrl+r"}, "r", "rebuild profile and estimate"),
		Help:    bind([]string{"?"}, "?", "show or hide this help"),
		Close:   bind([]string{"esc"}, "esc", "close help"),
		Quit:    bind([]string{"q", "ctrl+c"}, "q", "quit"),
		ForceQ:  key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Refresh, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.Tabs[:],
		{k.NextTab, k.PrevTab},
		{k.Refresh, k.Help, k.Close, k.Quit},
	}
}
