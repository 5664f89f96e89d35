// Package info provides the info tab: configuration paths, the active rate
// card, build metadata and a prompt for importing log exports.
package info

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/speechcost-tui/internal/app"
	"github.com/j-veylop/speechcost-tui/internal/config"
	"github.com/j-veylop/speechcost-tui/internal/pricing"
)

var (
	keyImport = key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "import log file"))
	keySubmit = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "import"))
	keyCancel = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	keyScroll = key.NewBinding(key.WithKeys("up", "down", "k", "j"), key.WithHelp("↑↓/jk", "scroll"))
)

// Model is the info tab. While the import prompt is open it captures all
// keys so typed paths do not trigger global shortcuts.
type Model struct {
	state   *app.State
	config  *config.Config
	pricing *pricing.Table

	viewport  viewport.Model
	input     textinput.Model
	importing bool
	lastPath  string

	width, height int
}

// New creates the info tab. cfg and table may be nil; the view then shows
// placeholders.
func New(state *app.State, cfg *config.Config, table *pricing.Table) *Model {
	in := textinput.New()
	in.Prompt = "file ▸ "
	in.Placeholder = "/path/to/export.jsonl"
	in.CharLimit = 512

	return &Model{
		state:    state,
		config:   cfg,
		pricing:  table,
		viewport: viewport.New(0, 0),
		input:    in,
	}
}

func (m *Model) Init() tea.Cmd { return nil }

// CapturingInput reports whether the import prompt has focus.
func (m *Model) CapturingInput() bool {
	return m.importing
}

func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.ImportResultMsg:
		m.lastPath = msg.Path
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if !m.importing {
		if key.Matches(msg, keyImport) {
			m.importing = true
			m.input.Reset()
			return m.input.Focus()
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, keyCancel):
		m.closePrompt()
		return nil
	case key.Matches(msg, keySubmit):
		path := expandHome(strings.TrimSpace(m.input.Value()))
		m.closePrompt()
		if path == "" {
			return nil
		}
		return func() tea.Msg { return app.ImportFileMsg{Path: path} }
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) closePrompt() {
	m.importing = false
	m.input.Blur()
}

// expandHome resolves a leading ~ to the user's home directory.
func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width, m.viewport.Height = width, height
}

func (m *Model) ShortHelp() []key.Binding {
	if m.importing {
		return []key.Binding{keySubmit, keyCancel}
	}
	return []key.Binding{keyImport}
}

func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{{keyImport, keySubmit, keyCancel}, {keyScroll}}
}
