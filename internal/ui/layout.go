package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/mailpane/conversations/internal/theme"
)

// frameLines is the vertical space the frame takes: one header line and
// one status bar line.
const frameLines = 2

// HeaderBar carries the pieces of the conversation header line.
type HeaderBar struct {
	Subject string
	Unread  int
	Status  string
}

// Layout tracks terminal dimensions and renders the frame around the
// active view.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout for the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left for the active view once the
// frame lines are taken out.
func (l Layout) ContentHeight() int {
	return l.Height - frameLines
}

// RenderHeader renders the conversation header: the subject with an
// unread count on the left, the sync status on the right. The subject
// is truncated before it can push the status off screen.
func (l Layout) RenderHeader(bar HeaderBar) string {
	subject := bar.Subject
	if bar.Unread > 0 {
		subject = fmt.Sprintf("%s (%d unread)", subject, bar.Unread)
	}

	pad := theme.HeaderStyle.GetHorizontalPadding()
	maxSubject := l.Width - lipgloss.Width(bar.Status) - 2*pad
	subject = truncate(subject, maxSubject)

	return l.bar(theme.HeaderStyle, subject, bar.Status)
}

// RenderStatusBar renders the bottom bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return l.bar(theme.StatusBarStyle, hints, "")
}

// RenderWithFrame stacks the header, the active view and the status
// bar into the final frame.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

// bar renders one full-width line in the given style, with the left
// and right segments separated by a background-filled gap.
func (l Layout) bar(style lipgloss.Style, left, right string) string {
	leftRendered := style.Render(left)
	rightRendered := ""
	if right != "" {
		rightRendered = style.Align(lipgloss.Right).Render(right)
	}

	gap := l.Width - lipgloss.Width(leftRendered) - lipgloss.Width(rightRendered)
	if gap < 0 {
		gap = 0
	}
	filler := style.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(style.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftRendered, filler, rightRendered)
}

// truncate clamps s to max display cells, marking the cut with an
// ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
