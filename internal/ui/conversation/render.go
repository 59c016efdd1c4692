package conversation

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mailpane/conversations/internal/model"
	"github.com/mailpane/conversations/internal/theme"
)

// renderMessage renders one message as a slice of lines: a header line
// plus, when expanded, the body and attachment listing.
func (m Model) renderMessage(i int, focused bool) []string {
	msg := m.state.Messages[i]

	lines := []string{m.renderHeader(msg, focused)}

	if !msg.Expanded {
		if msg.Snippet != "" {
			lines = append(lines, "  "+theme.SnippetStyle.Render(firstLine(msg.Snippet, m.width-4)))
		}
		lines = append(lines, "")
		return lines
	}

	lines = append(lines, "")
	for _, bodyLine := range strings.Split(msg.Snippet, "\n") {
		lines = append(lines, theme.BodyStyle.Render(bodyLine))
	}

	if len(msg.Attachments) > 0 {
		lines = append(lines, "")
		lines = append(lines, theme.AttachmentStyle.Render("  "+msg.AttachmentsPlural))
		for _, att := range msg.Attachments {
			lines = append(lines, theme.AttachmentStyle.Render(
				fmt.Sprintf("    %s (%s)", att.Name, att.FormattedSize),
			))
		}
	}

	lines = append(lines, "")
	return lines
}

// renderHeader builds the one-line message summary: author, flags,
// tags, folder badge, and date.
func (m Model) renderHeader(msg model.EnrichedMessage, focused bool) string {
	authorStyle := theme.ReadStyle
	if !msg.Read {
		authorStyle = theme.UnreadStyle
	}

	var parts []string

	marker := "  "
	if msg.Expanded {
		marker = "▼ "
	} else {
		marker = "▶ "
	}
	parts = append(parts, marker)

	parts = append(parts, authorStyle.Render(msg.Author))

	if msg.Flagged {
		parts = append(parts, theme.FlagStyle.Render("⚑"))
	}

	for _, tag := range msg.Tags {
		parts = append(parts, theme.TagStyle(tag.Color).Render(tag.Name))
	}

	if msg.FolderName != "" {
		parts = append(parts, theme.FolderStyle.Render("["+msg.ShortFolderName+"]"))
	}

	left := strings.Join(parts, " ")

	date := theme.DateStyle.Render(msg.DateLabel)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(date) - 1
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + date

	if focused {
		return theme.FocusedHeaderStyle.Render(line)
	}
	return line
}

// firstLine clips a snippet to a single display line.
func firstLine(s string, width int) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	runes := []rune(s)
	if width > 3 && len(runes) > width {
		return string(runes[:width-1]) + "…"
	}
	return s
}
