// Package conversation renders the enriched conversation thread as a
// scrollable list of collapsible messages.
package conversation

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mailpane/conversations/internal/keys"
	"github.com/mailpane/conversations/internal/store"
	"github.com/mailpane/conversations/internal/theme"
)

// BackMsg signals the parent to leave the conversation view.
type BackMsg struct{}

// Model is the conversation view component.
type Model struct {
	state    store.State
	cursor   int
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool

	// startLine maps each message index to its first rendered line,
	// for scroll-anchor positioning.
	startLine []int
}

// New creates a new conversation view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		width:    width,
		height:   height,
		loading:  true,
	}
}

// Init returns the initial command for the conversation view.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetState replaces the displayed conversation. When the fresh state
// carries a scroll anchor the view jumps there and moves the cursor to
// the anchored message.
func (m *Model) SetState(s store.State) {
	m.state = s
	m.loading = false

	if m.cursor >= len(s.Messages) {
		m.cursor = len(s.Messages) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	if anchor := s.ScrollIndex(); anchor >= 0 {
		m.cursor = anchor
	}

	m.refresh()

	if anchor := s.ScrollIndex(); anchor >= 0 && anchor < len(m.startLine) {
		m.viewport.SetYOffset(m.startLine[anchor])
	}
}

// State returns the conversation currently displayed.
func (m Model) State() store.State {
	return m.state
}

// SetLoading puts the view into its loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.refresh()
}

// Update handles messages for the conversation view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.state.Messages)-1 {
				m.cursor++
				m.refresh()
				m.scrollCursorIntoView()
			}
			return m, nil

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.refresh()
				m.scrollCursorIntoView()
			}
			return m, nil

		case key.Matches(msg, m.keys.Toggle):
			if m.cursor < len(m.state.Messages) {
				m.state.Messages[m.cursor].Expanded = !m.state.Messages[m.cursor].Expanded
				m.refresh()
			}
			return m, nil

		case key.Matches(msg, m.keys.ExpandAll):
			for i := range m.state.Messages {
				m.state.Messages[i].Expanded = true
			}
			m.refresh()
			return m, nil

		case key.Matches(msg, m.keys.CollapseAll):
			for i := range m.state.Messages {
				m.state.Messages[i].Expanded = false
			}
			m.refresh()
			return m, nil

		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }
		}
	}

	// Delegate to viewport for scrolling (pgup/pgdn, mouse wheel)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the conversation view.
func (m Model) View() string {
	if m.loading {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Loading conversation...")
	}

	if len(m.state.Messages) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No conversation selected")
	}

	return m.viewport.View()
}

// refresh re-renders the conversation into the viewport and records
// per-message line offsets.
func (m *Model) refresh() {
	var lines []string
	m.startLine = make([]int, len(m.state.Messages))

	for i := range m.state.Messages {
		m.startLine[i] = len(lines)
		lines = append(lines, m.renderMessage(i, i == m.cursor)...)
	}

	m.viewport.SetContent(strings.Join(lines, "\n"))
}

// scrollCursorIntoView keeps the focused message header visible.
func (m *Model) scrollCursorIntoView() {
	if m.cursor >= len(m.startLine) {
		return
	}
	line := m.startLine[m.cursor]
	if line < m.viewport.YOffset {
		m.viewport.SetYOffset(line)
	}
	if line >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}
