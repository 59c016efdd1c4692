package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpane/conversations/internal/model"
)

// scrollTargets returns the ids of messages carrying the ScrollTo flag.
func scrollTargets(msgs []model.EnrichedMessage) []string {
	var ids []string
	for _, m := range msgs {
		if m.ScrollTo {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

func expandedIDs(msgs []model.EnrichedMessage) []string {
	var ids []string
	for _, m := range msgs {
		if m.Expanded {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

func TestScrollUniqueness(t *testing.T) {
	f := newFakeBackend()
	msgs := []model.Message{
		f.addMessage(rawMessage("a", model.FolderInbox, false, 10)),
		f.addMessage(rawMessage("b", model.FolderInbox, false, 20)),
		f.addMessage(rawMessage("c", model.FolderInbox, true, 30)),
	}

	for _, selected := range [][]string{nil, {"b"}, {"a", "c"}} {
		got, err := newTestEnricher(f).Enrich(context.Background(), Request{
			Mode:        ModeReplaceAll,
			Messages:    msgs,
			Prefs:       model.DefaultPrefs(),
			SelectedIDs: selected,
		})
		require.NoError(t, err)
		assert.Len(t, scrollTargets(got), 1, "selected=%v", selected)
	}
}

func TestExpansionTotality(t *testing.T) {
	f := newFakeBackend()
	msgs := []model.Message{
		f.addMessage(rawMessage("a", model.FolderInbox, false, 10)),
		f.addMessage(rawMessage("b", model.FolderInbox, true, 20)),
		f.addMessage(rawMessage("c", model.FolderInbox, false, 30)),
	}

	t.Run("all", func(t *testing.T) {
		got, err := newTestEnricher(f).Enrich(context.Background(), Request{
			Mode:        ModeReplaceAll,
			Messages:    msgs,
			Prefs:       model.Prefs{ExpandWho: model.ExpandAll},
			SelectedIDs: []string{"a", "b"},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, expandedIDs(got))
	})

	t.Run("none", func(t *testing.T) {
		got, err := newTestEnricher(f).Enrich(context.Background(), Request{
			Mode:        ModeReplaceAll,
			Messages:    msgs,
			Prefs:       model.Prefs{ExpandWho: model.ExpandNone},
			SelectedIDs: []string{"a", "b"},
		})
		require.NoError(t, err)
		assert.Empty(t, expandedIDs(got))
	})
}

func TestAutoExpansionSingleSelectionAllRead(t *testing.T) {
	f := newFakeBackend()
	msgs := []model.Message{
		f.addMessage(rawMessage("a", model.FolderInbox, true, 10)),
		f.addMessage(rawMessage("b", model.FolderInbox, true, 20)),
		f.addMessage(rawMessage("c", model.FolderInbox, true, 30)),
	}

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:        ModeReplaceAll,
		Messages:    msgs,
		Prefs:       model.Prefs{ExpandWho: model.ExpandAuto},
		SelectedIDs: []string{"b"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, scrollTargets(got))
	assert.Equal(t, []string{"b"}, expandedIDs(got))
}

func TestAutoExpansionSingleSelectionMixedRead(t *testing.T) {
	f := newFakeBackend()
	msgs := []model.Message{
		f.addMessage(rawMessage("a", model.FolderInbox, false, 10)),
		f.addMessage(rawMessage("b", model.FolderInbox, true, 20)),
		f.addMessage(rawMessage("c", model.FolderInbox, false, 30)),
	}

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:        ModeReplaceAll,
		Messages:    msgs,
		Prefs:       model.Prefs{ExpandWho: model.ExpandAuto},
		SelectedIDs: []string{"b"},
	})
	require.NoError(t, err)

	// Only the selected index, regardless of read state elsewhere.
	assert.Equal(t, []string{"b"}, expandedIDs(got))
}

func TestAutoExpansionMultiSelection(t *testing.T) {
	f := newFakeBackend()
	msgs := []model.Message{
		f.addMessage(rawMessage("a", model.FolderInbox, true, 10)),
		f.addMessage(rawMessage("b", model.FolderInbox, false, 20)),
		f.addMessage(rawMessage("c", model.FolderInbox, true, 30)),
		f.addMessage(rawMessage("d", model.FolderInbox, false, 40)),
		f.addMessage(rawMessage("e", model.FolderInbox, true, 50)),
	}

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:        ModeReplaceAll,
		Messages:    msgs,
		Prefs:       model.Prefs{ExpandWho: model.ExpandAuto},
		SelectedIDs: []string{"a", "c"},
	})
	require.NoError(t, err)

	// Unread messages plus, unconditionally, the last one.
	assert.Equal(t, []string{"b", "d", "e"}, expandedIDs(got))
	// Scroll target is the first unread message.
	assert.Equal(t, []string{"b"}, scrollTargets(got))
}

func TestAutoExpansionMultiSelectionAllRead(t *testing.T) {
	f := newFakeBackend()
	msgs := []model.Message{
		f.addMessage(rawMessage("a", model.FolderInbox, true, 10)),
		f.addMessage(rawMessage("b", model.FolderInbox, true, 20)),
	}

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:        ModeReplaceAll,
		Messages:    msgs,
		Prefs:       model.Prefs{ExpandWho: model.ExpandAuto},
		SelectedIDs: []string{"a", "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, scrollTargets(got))
	assert.Equal(t, []string{"b"}, expandedIDs(got))
}

func TestUnrecognizedExpandWhoFallsBackToAuto(t *testing.T) {
	f := newFakeBackend()
	msgs := []model.Message{
		f.addMessage(rawMessage("a", model.FolderInbox, true, 10)),
		f.addMessage(rawMessage("b", model.FolderInbox, true, 20)),
	}

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:        ModeReplaceAll,
		Messages:    msgs,
		Prefs:       model.Prefs{ExpandWho: model.ExpandWho("sometimes")},
		SelectedIDs: []string{"a"},
	})
	require.NoError(t, err)

	// Behaves exactly like auto with a single selection.
	assert.Equal(t, []string{"a"}, expandedIDs(got))
}

func TestScrollFallsBackToLastOnMissingSelection(t *testing.T) {
	f := newFakeBackend()
	msgs := []model.Message{
		f.addMessage(rawMessage("a", model.FolderInbox, true, 10)),
		f.addMessage(rawMessage("b", model.FolderInbox, true, 20)),
	}

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:        ModeReplaceAll,
		Messages:    msgs,
		Prefs:       model.DefaultPrefs(),
		SelectedIDs: []string{"nonexistent"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, scrollTargets(got))
}
