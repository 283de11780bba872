package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hiroki-koketsu/go-todo/internal/client"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Add      key.Binding
	Edit     key.Binding
	Toggle   key.Binding
	Delete   key.Binding
	Priority key.Binding
	Filter   key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Edit, k.Toggle, k.Delete, k.Priority, k.Filter, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Add, k.Edit, k.Toggle, k.Delete},
		{k.Priority, k.Filter, k.Quit},
	}
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	Edit:     key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit")),
	Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Priority: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority")),
	Filter:   key.NewBinding(key.WithKeys("tab", "f"), key.WithHelp("tab", "filter")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type inputMode int

const (
	modeBrowse inputMode = iota
	modeAdd
	modeEdit
)

// Model is the Bubble Tea model over a client.Controller.
type Model struct {
	ctx   context.Context
	ctrl  *client.Controller
	input textinput.Model
	help  help.Model

	mode   inputMode
	cursor int
	status string
	err    error
}

// New returns a Model driving ctrl. ctx bounds every server call.
func New(ctx context.Context, ctrl *client.Controller) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	// 0 is unlimited
	ti.CharLimit = 0

	return Model{
		ctx:   ctx,
		ctrl:  ctrl,
		input: ti,
		help:  help.New(),
	}
}

// Run starts the terminal UI and blocks until the user quits.
func Run(ctx context.Context, ctrl *client.Controller) error {
	p := tea.NewProgram(New(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Err returns the last error shown in the status line.
func (m Model) Err() error { return m.err }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.ctrl.Visible()
	selected, hasSelection := "", false
	if m.cursor >= 0 && m.cursor < len(visible) {
		selected, hasSelection = visible[m.cursor].ID, true
	}

	m.status, m.err = "", nil
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(visible)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Add):
		m.mode = modeAdd
		m.input.SetValue("")
		m.input.Placeholder = "What needs to be done?"
		cmd := m.input.Focus()
		return m, cmd
	case key.Matches(msg, keys.Edit):
		if hasSelection && m.ctrl.BeginEdit(selected) {
			_, text, _ := m.ctrl.Editing()
			m.mode = modeEdit
			m.input.SetValue(text)
			m.input.CursorEnd()
			m.input.Placeholder = "Edit todo..."
			cmd := m.input.Focus()
			return m, cmd
		}
	case key.Matches(msg, keys.Toggle):
		if hasSelection {
			m.setErr(m.ctrl.Toggle(m.ctx, selected))
		}
	case key.Matches(msg, keys.Delete):
		if hasSelection {
			if m.setErr(m.ctrl.Remove(m.ctx, selected)) {
				m.status = "deleted"
			}
		}
	case key.Matches(msg, keys.Priority):
		if hasSelection {
			m.setErr(m.ctrl.SetPriority(m.ctx, selected, visible[m.cursor].Priority.Next()))
		}
	case key.Matches(msg, keys.Filter):
		m.ctrl.SetFilter(m.ctrl.Filter().Next())
		m.cursor = 0
	}
	m.clampCursor()
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		value := m.input.Value()
		if m.mode == modeAdd {
			item, err := m.ctrl.Add(m.ctx, value)
			if m.setErr(err) && item != nil {
				m.cursor = 0
				m.status = "added"
			}
		} else {
			m.setErr(m.ctrl.CommitEdit(m.ctx, value))
			m.ctrl.CancelEdit()
		}
		m.leaveInput()
		m.clampCursor()
		return m, nil
	case tea.KeyEsc:
		if m.mode == modeEdit {
			m.ctrl.CancelEdit()
		}
		m.leaveInput()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeEdit {
		m.ctrl.SetEditText(m.input.Value())
	}
	return m, cmd
}

func (m *Model) leaveInput() {
	m.mode = modeBrowse
	m.input.SetValue("")
	m.input.Blur()
}

// setErr records err for the status line and reports whether it was nil.
func (m *Model) setErr(err error) bool {
	m.err = err
	return err == nil
}

func (m *Model) clampCursor() {
	n := len(m.ctrl.Visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) View() string {
	stats := m.ctrl.Stats()
	lines := []string{
		Header(stats.Total, stats.Completed, stats.Remaining),
		mutedStyle.Render(ProgressBar(stats.Completed, stats.Total, 28)),
		m.tabs(),
		"",
	}

	visible := m.ctrl.Visible()
	if len(visible) == 0 {
		lines = append(lines, mutedStyle.Render("  Nothing here. Press a to add a todo."))
	}
	for i, item := range visible {
		prefix := "  "
		if i == m.cursor && m.mode == modeBrowse {
			prefix = selectedStyle.Render(">") + " "
		}
		lines = append(lines, prefix+ItemLine(item))
	}

	if m.mode != modeBrowse {
		title := "Add todo"
		if m.mode == modeEdit {
			title = "Edit todo"
		}
		lines = append(lines, "", panelStyle.Render(title+"\n"+m.input.View()))
	}

	lines = append(lines, "")
	switch {
	case m.err != nil:
		lines = append(lines, errorStyle.Render("✖ "+m.err.Error()))
	case m.status != "":
		lines = append(lines, successStyle.Render("✔ "+m.status))
	}
	lines = append(lines, m.help.View(keys))

	return Panel(lines)
}

func (m Model) tabs() string {
	tabs := make([]string, 0, len(client.Filters))
	for _, f := range client.Filters {
		label := strings.ToUpper(string(f[:1])) + string(f[1:])
		if f == m.ctrl.Filter() {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}
