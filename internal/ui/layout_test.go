package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestContentHeightReservesFrameLines(t *testing.T) {
	l := NewLayout(80, 24)
	assert.Equal(t, 22, l.ContentHeight())
	assert.Equal(t, 80, l.ContentWidth())
}

func TestRenderHeaderShowsUnreadCount(t *testing.T) {
	l := NewLayout(80, 24)
	header := l.RenderHeader(HeaderBar{
		Subject: "Lunch plans",
		Unread:  2,
		Status:  "idle",
	})

	assert.Contains(t, header, "Lunch plans (2 unread)")
	assert.Contains(t, header, "idle")
}

func TestRenderHeaderTruncatesLongSubject(t *testing.T) {
	l := NewLayout(40, 24)
	header := l.RenderHeader(HeaderBar{
		Subject: strings.Repeat("long subject ", 10),
		Status:  "refreshing",
	})

	assert.Contains(t, header, "refreshing")
	assert.Contains(t, header, "…")
	assert.LessOrEqual(t, lipgloss.Width(header), 40)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc…", truncate("abcdefg", 4))
	assert.Equal(t, "", truncate("abc", 0))
}
