package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mailpane/conversations/internal/keys"
	"github.com/mailpane/conversations/internal/theme"
)

// legend explains the markers the conversation view draws in front of
// each message header.
var legend = [][2]string{
	{"▼ / ▶", "message expanded / collapsed"},
	{"⚑", "message is flagged"},
	{"[Folder]", "copy lives outside the current view"},
	{"bold author", "message is unread"},
}

// Model is the help overlay: key bindings plus the marker legend.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the overlay inside a full-screen panel.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	sections := []string{
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		titleStyle.Render("Markers"),
		m.renderLegend(),
	}

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderLegend() string {
	markerStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue).Width(12)

	lines := make([]string, 0, len(legend))
	for _, entry := range legend {
		lines = append(lines, lipgloss.JoinHorizontal(
			lipgloss.Top,
			markerStyle.Render(entry[0]),
			theme.HelpStyle.Render(entry[1]),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// SetSize updates the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
