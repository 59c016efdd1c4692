package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpane/conversations/internal/localize"
	"github.com/mailpane/conversations/internal/model"
)

var testNow = time.Date(2021, 6, 4, 12, 0, 0, 0, time.UTC)

func newTestEnricher(f *fakeBackend) *Enricher {
	e := New(f, zerolog.Nop())
	e.now = func() time.Time { return testNow }
	return e
}

func rawMessage(id string, kind model.FolderKind, read bool, minute int) model.Message {
	return model.Message{
		ID:              id,
		HeaderMessageID: "<" + id + "@example.com>",
		FolderKind:      kind,
		Read:            read,
		Subject:         "subject " + id,
		Author:          "alice@example.com",
		Date:            testNow.Add(time.Duration(minute-60) * time.Minute),
		Snippet:         "snippet " + id,
		Kind:            model.KindNormal,
	}
}

func TestEnrichEmptyBatch(t *testing.T) {
	e := newTestEnricher(newFakeBackend())

	got, err := e.Enrich(context.Background(), Request{Mode: ModeReplaceAll})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEnrichSortsByDateAscending(t *testing.T) {
	f := newFakeBackend()
	msgs := []model.Message{
		f.addMessage(rawMessage("c", model.FolderInbox, true, 30)),
		f.addMessage(rawMessage("a", model.FolderInbox, true, 10)),
		f.addMessage(rawMessage("b", model.FolderInbox, true, 20)),
	}

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:     ModeReplaceAll,
		Messages: msgs,
		Prefs:    model.DefaultPrefs(),
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
}

func TestEnrichExcludesGoneMessages(t *testing.T) {
	f := newFakeBackend()
	ok := f.addMessage(rawMessage("ok", model.FolderInbox, true, 10))
	// "gone" has no registered header.
	gone := rawMessage("gone", model.FolderInbox, true, 20)

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:     ModeReplaceAll,
		Messages: []model.Message{ok, gone},
		Prefs:    model.DefaultPrefs(),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)
}

func TestEnrichCancelled(t *testing.T) {
	f := newFakeBackend()
	msg := f.addMessage(rawMessage("a", model.FolderInbox, true, 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := newTestEnricher(f).Enrich(ctx, Request{
		Mode:     ModeReplaceAll,
		Messages: []model.Message{msg},
		Prefs:    model.DefaultPrefs(),
	})
	require.Error(t, err)
	assert.Nil(t, got)
}

func TestEnrichCancelledDuringFanOut(t *testing.T) {
	f := newFakeBackend()
	msg := f.addMessage(rawMessage("a", model.FolderInbox, true, 10))

	// The backend keeps answering after cancellation, the way a cached
	// lookup would. Enrich must still discard the batch.
	ctx, cancel := context.WithCancel(context.Background())
	f.onHeader = cancel

	got, err := newTestEnricher(f).Enrich(ctx, Request{
		Mode:     ModeReplaceAll,
		Messages: []model.Message{msg},
		Prefs:    model.DefaultPrefs(),
	})
	require.Error(t, err)
	assert.Nil(t, got)
}

func TestEnrichFolderFlagsAndName(t *testing.T) {
	f := newFakeBackend()
	msg := f.addMessage(rawMessage("a", model.FolderArchives, true, 10))
	f.parents[string(model.FolderArchives)] = []string{"Local", "2021", "Archives"}

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:     ModeReplaceAll,
		Messages: []model.Message{msg},
		Prefs:    model.DefaultPrefs(),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.True(t, got[0].IsArchives)
	assert.False(t, got[0].IsInbox)
	assert.Equal(t, "Local/2021/Archives", got[0].FolderName)
	assert.Equal(t, "Archives", got[0].ShortFolderName)
}

func TestEnrichInViewSkipsFolderName(t *testing.T) {
	f := newFakeBackend()
	msg := f.addMessage(rawMessage("a", model.FolderInbox, true, 10))

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:        ModeReplaceAll,
		Messages:    []model.Message{msg},
		Prefs:       model.DefaultPrefs(),
		SelectedIDs: []string{"a"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].FolderName)
	assert.Empty(t, got[0].ShortFolderName)
}

func TestEnrichTagResolution(t *testing.T) {
	f := newFakeBackend()
	f.tags = []model.Tag{{Key: "$label1", Name: "Important", Color: "#FF0000"}}
	msg := rawMessage("a", model.FolderInbox, true, 10)
	msg.TagKeys = []string{"$label1", "$bogus"}
	msg = f.addMessage(msg)

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:     ModeReplaceAll,
		Messages: []model.Message{msg},
		Prefs:    model.DefaultPrefs(),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Tags, 2)

	assert.Equal(t, "Important", got[0].Tags[0].Name)
	assert.Equal(t, model.Tag{Key: "$bogus", Name: "unknown", Color: "#FFFFFF"}, got[0].Tags[1])
}

func TestEnrichTagListFailureDegrades(t *testing.T) {
	f := newFakeBackend()
	f.tagsErr = assert.AnError
	msg := rawMessage("a", model.FolderInbox, true, 10)
	msg.TagKeys = []string{"$label1"}
	msg = f.addMessage(msg)

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:     ModeReplaceAll,
		Messages: []model.Message{msg},
		Prefs:    model.DefaultPrefs(),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Tags, 1)
	assert.Equal(t, "unknown", got[0].Tags[0].Name)
}

func TestEnrichAttachments(t *testing.T) {
	f := newFakeBackend()
	msg := rawMessage("a", model.FolderInbox, true, 10)
	msg.InitialPosition = 0
	msg.Attachments = []model.Attachment{
		{Name: "report.pdf", ContentType: "application/pdf", Size: 2048},
		{Name: "blob", ContentType: "application/octet-stream", Size: -1},
	}
	msg = f.addMessage(msg)

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:     ModeReplaceAll,
		Messages: []model.Message{msg},
		Prefs:    model.DefaultPrefs(),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Attachments, 2)

	assert.Equal(t, "msg0att0", got[0].Attachments[0].AnchorID)
	assert.Equal(t, "msg0att1", got[0].Attachments[1].AnchorID)
	assert.Equal(t, "2.0 KiB", got[0].Attachments[0].FormattedSize)
	assert.Equal(t, localize.UnknownSize, got[0].Attachments[1].FormattedSize)
	assert.Equal(t, "2 attachments", got[0].AttachmentsPlural)
}

func TestEnrichInlineAttachments(t *testing.T) {
	f := newFakeBackend()
	msg := rawMessage("a", model.FolderInbox, true, 10)
	msg.Attachments = []model.Attachment{
		{Name: "logo.png", ContentType: "image/png", Size: 512, Inline: true},
		{Name: "report.pdf", ContentType: "application/pdf", Size: 2048},
	}
	msg = f.addMessage(msg)
	enricher := newTestEnricher(f)

	prefs := model.DefaultPrefs()
	got, err := enricher.Enrich(context.Background(), Request{
		Mode:     ModeReplaceAll,
		Messages: []model.Message{msg},
		Prefs:    prefs,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Attachments, 1)
	assert.Equal(t, "report.pdf", got[0].Attachments[0].Name)
	// The anchor keeps the part's original position.
	assert.Equal(t, "msg0att1", got[0].Attachments[0].AnchorID)
	assert.Equal(t, "one attachment", got[0].AttachmentsPlural)

	prefs.ExtraAttachments = true
	got, err = enricher.Enrich(context.Background(), Request{
		Mode:     ModeReplaceAll,
		Messages: []model.Message{msg},
		Prefs:    prefs,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Attachments, 2)
	assert.Equal(t, "logo.png", got[0].Attachments[0].Name)
}

func TestEnrichFullBodySnippet(t *testing.T) {
	f := newFakeBackend()
	msg := rawMessage("a", model.FolderInbox, true, 10)
	msg.Snippet = ""
	msg.NeedsFullBody = true
	msg = f.addMessage(msg)
	f.bodies["a"] = "the full body text"

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:     ModeReplaceAll,
		Messages: []model.Message{msg},
		Prefs:    model.DefaultPrefs(),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "the full body text", got[0].Snippet)
}

func TestEnrichFullBodyFailureKeepsFallback(t *testing.T) {
	f := newFakeBackend()
	msg := rawMessage("a", model.FolderInbox, true, 10)
	msg.Snippet = "fallback"
	msg.NeedsFullBody = true
	msg = f.addMessage(msg)
	f.bodyErr = assert.AnError

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:     ModeReplaceAll,
		Messages: []model.Message{msg},
		Prefs:    model.DefaultPrefs(),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fallback", got[0].Snippet)
}

func TestEnrichDateFormatting(t *testing.T) {
	f := newFakeBackend()
	msg := rawMessage("a", model.FolderInbox, true, 10)
	yesterday := testNow.Add(-24 * time.Hour)
	msg.Date = yesterday
	msg = f.addMessage(msg)

	t.Run("friendly", func(t *testing.T) {
		got, err := newTestEnricher(f).Enrich(context.Background(), Request{
			Mode:     ModeReplaceAll,
			Messages: []model.Message{msg},
			Prefs:    model.Prefs{ExpandWho: model.ExpandAuto},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, localize.FriendlyDate(yesterday, testNow), got[0].DateLabel)
		assert.Equal(t, localize.AbsoluteDate(yesterday, testNow), got[0].FullDateLabel)
	})

	t.Run("absolute only", func(t *testing.T) {
		got, err := newTestEnricher(f).Enrich(context.Background(), Request{
			Mode:     ModeReplaceAll,
			Messages: []model.Message{msg},
			Prefs:    model.Prefs{ExpandWho: model.ExpandAuto, NoFriendlyDate: true},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, localize.AbsoluteDate(yesterday, testNow), got[0].DateLabel)
		assert.Empty(t, got[0].FullDateLabel)
	})
}

func TestEnrichAppendAlwaysExpands(t *testing.T) {
	f := newFakeBackend()
	msgs := []model.Message{
		f.addMessage(rawMessage("a", model.FolderInbox, true, 10)),
		f.addMessage(rawMessage("b", model.FolderInbox, true, 20)),
	}

	got, err := newTestEnricher(f).Enrich(context.Background(), Request{
		Mode:     ModeAppend,
		Messages: msgs,
		Prefs:    model.Prefs{ExpandWho: model.ExpandNone},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, m := range got {
		assert.True(t, m.Expanded)
		assert.False(t, m.ScrollTo)
	}
}

func TestEnrichUpdateOnePolicies(t *testing.T) {
	f := newFakeBackend()
	msg := f.addMessage(rawMessage("a", model.FolderInbox, false, 10))

	tests := []struct {
		name string
		who  model.ExpandWho
		want bool
	}{
		{name: "none collapses", who: model.ExpandNone, want: false},
		{name: "all expands", who: model.ExpandAll, want: true},
		// Auto leaves the flag to the state layer; enricher output
		// stays collapsed.
		{name: "auto untouched", who: model.ExpandAuto, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := newTestEnricher(f).Enrich(context.Background(), Request{
				Mode:     ModeUpdateOne,
				Messages: []model.Message{msg},
				Prefs:    model.Prefs{ExpandWho: tc.who},
			})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tc.want, got[0].Expanded)
			assert.False(t, got[0].ScrollTo)
		})
	}
}
