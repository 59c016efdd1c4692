package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpane/conversations/internal/model"
)

var baseTime = time.Date(2021, 6, 4, 12, 0, 0, 0, time.UTC)

func enriched(id string, minute int) model.EnrichedMessage {
	return model.EnrichedMessage{
		Message: model.Message{
			ID:              id,
			HeaderMessageID: "<" + id + "@example.com>",
			Date:            baseTime.Add(time.Duration(minute) * time.Minute),
		},
	}
}

func ids(s State) []string {
	out := make([]string, len(s.Messages))
	for i, m := range s.Messages {
		out[i] = m.ID
	}
	return out
}

func TestReplaceAll(t *testing.T) {
	s := Apply(State{}, ReplaceAll{Messages: []model.EnrichedMessage{
		enriched("a", 0),
		enriched("b", 1),
	}})
	assert.Equal(t, []string{"a", "b"}, ids(s))

	s = Apply(s, ReplaceAll{Messages: []model.EnrichedMessage{enriched("c", 2)}})
	assert.Equal(t, []string{"c"}, ids(s))
}

func TestAppendKeepsDateOrder(t *testing.T) {
	s := Apply(State{}, ReplaceAll{Messages: []model.EnrichedMessage{
		enriched("a", 0),
		enriched("c", 20),
	}})

	// A late-arriving message dated between the existing two slots
	// into the middle.
	s = Apply(s, Append{Messages: []model.EnrichedMessage{enriched("b", 10)}})
	assert.Equal(t, []string{"a", "b", "c"}, ids(s))
}

func TestUpdateOneReplacesInPlace(t *testing.T) {
	s := Apply(State{}, ReplaceAll{Messages: []model.EnrichedMessage{
		enriched("a", 0),
		enriched("b", 1),
	}})

	updated := enriched("b", 1)
	updated.Read = true
	updated.Snippet = "fresh"
	s = Apply(s, UpdateOne{Message: updated})

	require.Equal(t, []string{"a", "b"}, ids(s))
	assert.True(t, s.Messages[1].Read)
	assert.Equal(t, "fresh", s.Messages[1].Snippet)
}

func TestUpdateOneKeepExpanded(t *testing.T) {
	expanded := enriched("a", 0)
	expanded.Expanded = true
	s := Apply(State{}, ReplaceAll{Messages: []model.EnrichedMessage{expanded}})

	updated := enriched("a", 0)
	updated.Read = true

	kept := Apply(s, UpdateOne{Message: updated, KeepExpanded: true})
	assert.True(t, kept.Messages[0].Expanded)

	overwritten := Apply(s, UpdateOne{Message: updated})
	assert.False(t, overwritten.Messages[0].Expanded)
}

func TestUpdateOneUnknownMessageIsNoop(t *testing.T) {
	s := Apply(State{}, ReplaceAll{Messages: []model.EnrichedMessage{enriched("a", 0)}})
	s = Apply(s, UpdateOne{Message: enriched("ghost", 5)})
	assert.Equal(t, []string{"a"}, ids(s))
}

func TestRemove(t *testing.T) {
	s := Apply(State{}, ReplaceAll{Messages: []model.EnrichedMessage{
		enriched("a", 0),
		enriched("b", 1),
	}})

	s = Apply(s, Remove{ID: "<a@example.com>"})
	assert.Equal(t, []string{"b"}, ids(s))

	s = Apply(s, Remove{ID: "<missing@example.com>"})
	assert.Equal(t, []string{"b"}, ids(s))
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	orig := Apply(State{}, ReplaceAll{Messages: []model.EnrichedMessage{
		enriched("a", 0),
		enriched("b", 1),
	}})

	updated := enriched("a", 0)
	updated.Read = true
	next := Apply(orig, UpdateOne{Message: updated})

	assert.False(t, orig.Messages[0].Read)
	assert.True(t, next.Messages[0].Read)
}

func TestFindAndScrollIndex(t *testing.T) {
	b := enriched("b", 1)
	b.ScrollTo = true
	s := Apply(State{}, ReplaceAll{Messages: []model.EnrichedMessage{enriched("a", 0), b}})

	assert.Equal(t, 1, s.Find("<b@example.com>"))
	assert.Equal(t, -1, s.Find("<z@example.com>"))
	assert.Equal(t, 1, s.ScrollIndex())

	assert.Equal(t, -1, State{}.ScrollIndex())
}
