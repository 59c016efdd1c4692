// Package sync keeps the displayed conversation current: it re-queries
// the backend on an interval, diffs the result against what is shown,
// and delivers enriched update events to the UI.
package sync

import (
	"context"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/mailpane/conversations/internal/backend"
	"github.com/mailpane/conversations/internal/enrich"
	"github.com/mailpane/conversations/internal/model"
	"github.com/mailpane/conversations/internal/store"
)

// State represents the current state of the poller.
type State int

const (
	Idle State = iota
	Running
	Errored
)

// Status holds the poller's state for display in the status bar.
type Status struct {
	State    State
	LastSync time.Time
	Error    error
}

// ResultMsg is a tea.Msg sent when a conversation update is ready. The
// events are applied in order to the conversation state.
type ResultMsg struct {
	Key    string
	Events []store.Event
	Error  error

	// AuthError is set when the backend rejected our credentials.
	AuthError *AuthErrorMsg
}

// AuthErrorMsg is a tea.Msg sent when the account needs reauthentication.
type AuthErrorMsg struct {
	Account string
	Message string
}

// fetchTimeout is the maximum time allowed for a single refresh cycle.
const fetchTimeout = 30 * time.Second

// conversation is the poller's record of what it is watching.
type conversation struct {
	key         string
	viewID      string
	selectedIDs []string
	generation  uint64

	// known maps logical id to the last seen copy signature, used to
	// detect per-message changes between polls.
	known map[string]string
}

// Poller watches the active conversation in the background.
type Poller struct {
	source   backend.ConversationSource
	enricher *enrich.Enricher
	prefs    model.Prefs
	interval time.Duration
	log      zerolog.Logger

	resultCh  chan ResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	current conversation
	status  Status
	running bool
}

// New creates a poller over the given conversation source.
func New(
	source backend.ConversationSource,
	enricher *enrich.Enricher,
	prefs model.Prefs,
	interval time.Duration,
	log zerolog.Logger,
) *Poller {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Poller{
		source:    source,
		enricher:  enricher,
		prefs:     prefs,
		interval:  interval,
		log:       log,
		resultCh:  make(chan ResultMsg, 16),
		triggerCh: make(chan struct{}, 16),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling loop and returns the subscription command
// that feeds results back into the Bubble Tea runtime.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling loop.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
}

// ShowConversation switches the poller to a new conversation and
// triggers an immediate full load. Any in-flight refresh for the
// previous conversation is discarded when it completes.
func (p *Poller) ShowConversation(key, viewID string, selectedIDs []string) tea.Cmd {
	p.mu.Lock()
	p.current = conversation{
		key:         key,
		viewID:      viewID,
		selectedIDs: append([]string(nil), selectedIDs...),
		generation:  p.current.generation + 1,
	}
	p.mu.Unlock()

	return p.Refresh()
}

// Refresh triggers an immediate poll of the active conversation.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
	return nil
}

// GetStatus returns the poller's current status.
func (p *Poller) GetStatus() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// loop is the polling goroutine.
func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.refreshOnce()
		case <-p.triggerCh:
			p.refreshOnce()
		}
	}
}

// refreshOnce performs a single refresh cycle: list the conversation,
// diff against what is shown, enrich the differences, and deliver the
// resulting events.
func (p *Poller) refreshOnce() {
	p.mu.Lock()
	conv := p.current
	p.mu.Unlock()

	if conv.key == "" {
		return
	}

	p.setStatus(Running, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	msgs, err := p.source.ListConversation(ctx, conv.key)
	if err != nil {
		p.setStatus(Errored, err)
		p.deliver(conv.generation, p.errorResult(conv.key, err))
		return
	}

	events, nextKnown, err := p.buildEvents(ctx, conv, msgs)
	if err != nil {
		p.setStatus(Errored, err)
		p.deliver(conv.generation, p.errorResult(conv.key, err))
		return
	}

	p.mu.Lock()
	// A conversation switch during the refresh supersedes this batch.
	if p.current.generation == conv.generation {
		p.current.known = nextKnown
	}
	p.mu.Unlock()

	p.setStatus(Idle, nil)

	if len(events) == 0 {
		return
	}
	p.deliver(conv.generation, ResultMsg{Key: conv.key, Events: events})
}

// buildEvents diffs the fresh listing against the known state and
// enriches whatever changed. The first listing for a conversation
// always produces a full replacement.
func (p *Poller) buildEvents(
	ctx context.Context,
	conv conversation,
	msgs []model.Message,
) ([]store.Event, map[string]string, error) {
	nextKnown := make(map[string]string, len(msgs))
	for _, m := range msgs {
		// Later copies extend the signature so any copy's change is
		// visible at the logical-message level.
		nextKnown[m.LogicalID()] += copySignature(m)
	}

	if conv.known == nil {
		enriched, err := p.enricher.Enrich(ctx, enrich.Request{
			Mode:        enrich.ModeReplaceAll,
			Messages:    msgs,
			Prefs:       p.prefs,
			SelectedIDs: conv.selectedIDs,
			ViewID:      conv.viewID,
		})
		if err != nil {
			return nil, nil, err
		}
		return []store.Event{store.ReplaceAll{Messages: enriched}}, nextKnown, nil
	}

	added, changed, removed := diffConversation(conv.known, nextKnown, msgs)

	var events []store.Event

	for _, id := range removed {
		events = append(events, store.Remove{ID: id})
	}

	if len(added) > 0 {
		enriched, err := p.enricher.Enrich(ctx, enrich.Request{
			Mode:        enrich.ModeAppend,
			Messages:    added,
			Prefs:       p.prefs,
			SelectedIDs: conv.selectedIDs,
			ViewID:      conv.viewID,
		})
		if err != nil {
			return nil, nil, err
		}
		events = append(events, store.Append{Messages: enriched})
	}

	for _, msg := range changed {
		enriched, err := p.enricher.Enrich(ctx, enrich.Request{
			Mode:        enrich.ModeUpdateOne,
			Messages:    []model.Message{msg},
			Prefs:       p.prefs,
			SelectedIDs: conv.selectedIDs,
			ViewID:      conv.viewID,
		})
		if err != nil {
			return nil, nil, err
		}
		for _, em := range enriched {
			events = append(events, store.UpdateOne{
				Message: em,
				// Under the automatic expansion policy an update says
				// nothing about expansion, so the prior state stands.
				KeepExpanded: p.prefs.ExpandWho == model.ExpandAuto,
			})
		}
	}

	return events, nextKnown, nil
}

// diffConversation compares the known signature map against the fresh
// listing. Added and changed messages are reported once per logical
// id, represented by the copy pickCopy selects from the fresh listing.
func diffConversation(
	known, next map[string]string,
	msgs []model.Message,
) (added []model.Message, changed []model.Message, removed []string) {
	byLogical := make(map[string][]model.Message)
	var order []string
	for _, m := range msgs {
		id := m.LogicalID()
		if _, seen := byLogical[id]; !seen {
			order = append(order, id)
		}
		byLogical[id] = append(byLogical[id], m)
	}

	for _, id := range order {
		prev, existed := known[id]
		switch {
		case !existed:
			// Appends bypass the full-replace dedup pass, so only one
			// copy per logical message may enter the batch.
			added = append(added, pickCopy(byLogical[id]))
		case prev != next[id]:
			// A copy change updates the whole logical message; the
			// enricher will dedupe and pick the best copy again.
			changed = append(changed, pickCopy(byLogical[id]))
		}
	}

	for id := range known {
		if _, still := next[id]; !still {
			removed = append(removed, id)
		}
	}

	return added, changed, removed
}

// pickCopy chooses the copy to re-enrich for an updated logical
// message: the inbox copy when present, the first copy otherwise.
func pickCopy(copies []model.Message) model.Message {
	for _, c := range copies {
		if c.FolderKind == model.FolderInbox {
			return c
		}
	}
	return copies[0]
}

// copySignature reduces one physical copy to a comparable string.
func copySignature(m model.Message) string {
	return fmt.Sprintf("%s|%s|%t|%t|%s|%s|%d|%t;",
		m.ID,
		m.FolderID,
		m.Read,
		m.Flagged,
		strings.Join(m.TagKeys, ","),
		m.Snippet,
		m.Date.UnixNano(),
		m.NeedsFullBody,
	)
}

// errorResult wraps an error into a ResultMsg, flagging auth failures.
func (p *Poller) errorResult(key string, err error) ResultMsg {
	msg := ResultMsg{Key: key, Error: err}
	if backend.IsAuthError(err) {
		msg.AuthError = &AuthErrorMsg{
			Message: "authentication expired, reconfigure the account",
		}
	}
	return msg
}

// deliver sends a result unless the conversation changed while it was
// being computed.
func (p *Poller) deliver(generation uint64, msg ResultMsg) {
	p.mu.Lock()
	superseded := p.current.generation != generation
	p.mu.Unlock()

	if superseded {
		p.log.Debug().Str("key", msg.Key).Msg("dropping superseded refresh result")
		return
	}

	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// setStatus updates the poller status.
func (p *Poller) setStatus(state State, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == Idle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// waitForResult returns a tea.Cmd that waits for the next result from
// the result channel.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh
// result. Call it after processing a ResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
