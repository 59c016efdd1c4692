// Package store holds the in-memory state of the currently displayed
// conversation and the reducer that folds enrichment batches into it.
package store

import (
	"sort"

	"github.com/mailpane/conversations/internal/model"
)

// State is the displayed conversation. Messages are kept sorted by
// date ascending.
type State struct {
	Messages []model.EnrichedMessage
}

// Event is an update to apply to the conversation state. Exactly one
// concrete event type implements it per enrichment mode, plus Remove
// for messages deleted out from under the view.
type Event interface {
	isEvent()
}

// ReplaceAll swaps in a freshly enriched conversation.
type ReplaceAll struct {
	Messages []model.EnrichedMessage
}

// Append adds newly arrived messages to the tail of the conversation.
type Append struct {
	Messages []model.EnrichedMessage
}

// UpdateOne replaces a single message in place. When KeepExpanded is
// set the message's previous expansion state survives the update.
type UpdateOne struct {
	Message      model.EnrichedMessage
	KeepExpanded bool
}

// Remove drops a message from the conversation by logical id.
type Remove struct {
	ID string
}

func (ReplaceAll) isEvent() {}
func (Append) isEvent()     {}
func (UpdateOne) isEvent()  {}
func (Remove) isEvent()     {}

// Apply folds an event into the state and returns the next state.
// The input state is never mutated: callers holding a reference to
// the previous Messages slice keep seeing the previous conversation.
func Apply(s State, ev Event) State {
	switch e := ev.(type) {
	case ReplaceAll:
		next := make([]model.EnrichedMessage, len(e.Messages))
		copy(next, e.Messages)
		return State{Messages: next}

	case Append:
		next := make([]model.EnrichedMessage, 0, len(s.Messages)+len(e.Messages))
		next = append(next, s.Messages...)
		next = append(next, e.Messages...)
		sort.SliceStable(next, func(i, j int) bool {
			return next[i].Date.Before(next[j].Date)
		})
		return State{Messages: next}

	case UpdateOne:
		next := make([]model.EnrichedMessage, len(s.Messages))
		copy(next, s.Messages)
		for i := range next {
			if next[i].LogicalID() != e.Message.LogicalID() {
				continue
			}
			updated := e.Message
			if e.KeepExpanded {
				updated.Expanded = next[i].Expanded
			}
			next[i] = updated
			break
		}
		return State{Messages: next}

	case Remove:
		next := make([]model.EnrichedMessage, 0, len(s.Messages))
		for _, m := range s.Messages {
			if m.LogicalID() == e.ID {
				continue
			}
			next = append(next, m)
		}
		return State{Messages: next}
	}

	return s
}

// Find returns the index of the message with the given logical id, or
// -1 when it is not part of the conversation.
func (s State) Find(id string) int {
	for i, m := range s.Messages {
		if m.LogicalID() == id {
			return i
		}
	}
	return -1
}

// ScrollIndex returns the index of the message carrying the scroll
// anchor, or -1 when none is marked.
func (s State) ScrollIndex() int {
	for i, m := range s.Messages {
		if m.ScrollTo {
			return i
		}
	}
	return -1
}
