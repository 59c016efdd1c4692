// Package enrich turns raw per-folder message copies into the
// deduplicated, annotated, display-ready conversation list. It is the
// decision core of the application: tie-breaking between folder copies,
// expansion and scroll policy, snippet and date normalization all live
// here. The package holds no conversation state of its own.
package enrich

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mailpane/conversations/internal/backend"
	"github.com/mailpane/conversations/internal/localize"
	"github.com/mailpane/conversations/internal/model"
)

// Mode selects how a batch relates to the displayed conversation.
type Mode int

const (
	// ModeReplaceAll rebuilds the whole conversation: deduplication,
	// scroll target and expansion policy all apply.
	ModeReplaceAll Mode = iota

	// ModeAppend adds messages that arrived while the conversation is
	// open. Appended messages are always expanded regardless of policy.
	ModeAppend

	// ModeUpdateOne refreshes existing messages in place. No scroll
	// target is computed and, under the auto policy, expansion state is
	// preserved by the state layer.
	ModeUpdateOne
)

// attachmentForms is the plural template for the attachment count line.
const attachmentForms = "one attachment;#1 attachments"

// Request carries one enrichment batch.
type Request struct {
	Mode     Mode
	Messages []model.Message
	Prefs    model.Prefs

	// SelectedIDs are the message ids currently selected in the host's
	// own message list. They drive in-view detection, dedup priority
	// and the scroll target.
	SelectedIDs []string

	// ViewID identifies the host view consulted for in-view detection.
	ViewID string
}

// Enricher transforms raw message batches through the injected backend.
// It is safe for concurrent use; the only internal state is a folder
// path memoization cache.
type Enricher struct {
	backend backend.Backend
	log     zerolog.Logger
	now     func() time.Time

	mu          sync.Mutex
	folderPaths map[string]string
}

// New creates an Enricher over the given backend.
func New(b backend.Backend, log zerolog.Logger) *Enricher {
	return &Enricher{
		backend:     b,
		log:         log,
		now:         time.Now,
		folderPaths: make(map[string]string),
	}
}

// Enrich processes one batch and returns the display-ready list, sorted
// by date ascending. Individual message failures degrade to exclusion;
// the only error Enrich itself returns is context cancellation, in
// which case partial results are discarded.
func (e *Enricher) Enrich(
	ctx context.Context,
	req Request,
) ([]model.EnrichedMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("enrichment cancelled: %w", err)
	}
	if len(req.Messages) == 0 {
		return []model.EnrichedMessage{}, nil
	}

	tags := e.tagDefs(ctx)

	// Per-message enrichment is independent; fan out and collect in
	// input order. Completion order never influences the result.
	results := make([]*model.EnrichedMessage, len(req.Messages))
	g, gctx := errgroup.WithContext(ctx)
	for i := range req.Messages {
		g.Go(func() error {
			em, err := e.enrichOne(gctx, req.Messages[i], req, tags)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.log.Warn().
					Err(err).
					Str("id", req.Messages[i].ID).
					Msg("excluding message from batch")
				return nil
			}
			results[i] = em
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrichment cancelled: %w", err)
	}
	// A backend that answers from cache can succeed under a cancelled
	// context; partial results must still be discarded.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("enrichment cancelled: %w", err)
	}

	msgs := make([]model.EnrichedMessage, 0, len(results))
	for _, r := range results {
		if r != nil {
			msgs = append(msgs, *r)
		}
	}

	if req.Mode == ModeReplaceAll {
		msgs = dedupe(msgs)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Date.Before(msgs[j].Date)
	})

	switch req.Mode {
	case ModeReplaceAll:
		if len(msgs) > 0 {
			focus := e.scrollIndex(msgs, req.SelectedIDs)
			msgs[focus].ScrollTo = true
			e.applyExpandPolicy(msgs, req.Prefs.ExpandWho, req.SelectedIDs, focus)
		}
	case ModeAppend:
		// Messages arriving live should always be visible.
		for i := range msgs {
			msgs[i].Expanded = true
		}
	case ModeUpdateOne:
		switch e.normalizeExpandWho(req.Prefs.ExpandWho) {
		case model.ExpandNone:
			for i := range msgs {
				msgs[i].Expanded = false
			}
		case model.ExpandAll:
			for i := range msgs {
				msgs[i].Expanded = true
			}
		case model.ExpandAuto:
			// Leave Expanded untouched; the state layer carries the
			// prior value forward.
		}
	}

	return msgs, nil
}

// enrichOne annotates a single raw message. An error means the message
// must be excluded from the batch; lesser failures (tag lookups, folder
// walks, body fetches) degrade to safe defaults instead.
func (e *Enricher) enrichOne(
	ctx context.Context,
	msg model.Message,
	req Request,
	tags map[string]model.Tag,
) (*model.EnrichedMessage, error) {
	hdr, err := e.backend.MessageHeader(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching header for %s: %w", msg.ID, err)
	}

	em := model.EnrichedMessage{Message: msg}

	// The header is canonical for folder placement and state flags.
	em.FolderID = hdr.Folder.ID
	em.FolderKind = hdr.Folder.Kind
	em.Read = hdr.Read
	em.Flagged = hdr.Flagged
	if hdr.Subject != "" {
		em.Subject = hdr.Subject
	}
	if em.Author == "" {
		em.Author = hdr.Author
	}
	if em.Date.IsZero() {
		em.Date = hdr.Date
	}
	if len(hdr.TagKeys) > 0 {
		em.TagKeys = hdr.TagKeys
	}
	em.ApplyFolderKind()

	em.Tags = make([]model.Tag, 0, len(em.TagKeys))
	for _, key := range em.TagKeys {
		def, ok := tags[key]
		if !ok {
			def = model.UnknownTag(key)
		}
		em.Tags = append(em.Tags, def)
	}

	inView := slices.Contains(req.SelectedIDs, msg.ID)
	if !inView {
		visible, err := e.backend.IsMessageInView(ctx, req.ViewID, msg.ID)
		if err != nil {
			e.log.Debug().Err(err).Str("id", msg.ID).Msg("in-view check failed")
		}
		inView = visible
	}
	if !inView {
		path, err := e.folderPath(ctx, hdr.Folder)
		if err != nil {
			e.log.Warn().
				Err(err).
				Str("folder", hdr.Folder.ID).
				Msg("folder path unresolved, leaving label empty")
		} else {
			em.FolderName = path
			em.ShortFolderName = hdr.Folder.Name
		}
	}

	em.Attachments = make([]model.AttachmentView, 0, len(msg.Attachments))
	for i, att := range msg.Attachments {
		if att.Inline && !req.Prefs.ExtraAttachments {
			continue
		}
		// Anchors keep the part's original index so they stay stable
		// across preference changes.
		em.Attachments = append(em.Attachments, model.AttachmentView{
			Attachment:    att,
			FormattedSize: localize.FileSize(att.Size),
			AnchorID:      fmt.Sprintf("msg%datt%d", msg.InitialPosition, i),
		})
	}
	em.AttachmentsPlural = localize.Pluralize(attachmentForms, len(em.Attachments))

	if msg.NeedsFullBody {
		body, err := e.backend.FullMessageBody(ctx, msg.ID)
		if err != nil {
			e.log.Warn().
				Err(err).
				Str("id", msg.ID).
				Msg("full body fetch failed, keeping fallback snippet")
		} else {
			em.Snippet = clampSnippet(body)
		}
	}
	if em.Kind == model.KindBugzilla && em.Snippet != "" {
		em.Snippet = TrimBugzillaSnippet(em.Snippet)
	}

	now := e.now()
	if req.Prefs.NoFriendlyDate {
		em.DateLabel = localize.AbsoluteDate(em.Date, now)
		em.FullDateLabel = ""
	} else {
		em.DateLabel = localize.FriendlyDate(em.Date, now)
		em.FullDateLabel = localize.AbsoluteDate(em.Date, now)
	}

	return &em, nil
}

// folderPath resolves and memoizes the full folder path string.
func (e *Enricher) folderPath(
	ctx context.Context,
	folder backend.FolderRef,
) (string, error) {
	e.mu.Lock()
	cached, ok := e.folderPaths[folder.ID]
	e.mu.Unlock()
	if ok {
		return cached, nil
	}

	names, err := e.backend.ParentFolders(ctx, folder.ID)
	if err != nil {
		return "", fmt.Errorf("walking parent folders of %s: %w", folder.ID, err)
	}
	path := strings.Join(names, "/")

	e.mu.Lock()
	e.folderPaths[folder.ID] = path
	e.mu.Unlock()

	return path, nil
}

// tagDefs fetches tag definitions once per batch. A failure degrades to
// every tag rendering as the unknown sentinel.
func (e *Enricher) tagDefs(ctx context.Context) map[string]model.Tag {
	defs, err := e.backend.ListTags(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("listing tags failed, tags will render as unknown")
		return nil
	}

	m := make(map[string]model.Tag, len(defs))
	for _, t := range defs {
		m[t.Key] = t
	}
	return m
}

// scrollIndex picks the message the view should scroll to. With a
// multi-selection in the host, that is the first unread message (the
// last message when everything is read). With a single selection it is
// the selected message itself; a missing match indicates a host
// inconsistency and falls back to the last message.
func (e *Enricher) scrollIndex(
	msgs []model.EnrichedMessage,
	selected []string,
) int {
	if len(selected) > 1 {
		for i := range msgs {
			if !msgs[i].Read {
				return i
			}
		}
		return len(msgs) - 1
	}

	if len(selected) == 1 {
		for i := range msgs {
			if msgs[i].ID == selected[0] {
				return i
			}
		}
		e.log.Error().
			Str("id", selected[0]).
			Msg("selected message not in conversation, scrolling to last")
	}

	return len(msgs) - 1
}

// applyExpandPolicy sets the Expanded flag on every message according
// to the configured policy and the focus index computed by scrollIndex.
func (e *Enricher) applyExpandPolicy(
	msgs []model.EnrichedMessage,
	who model.ExpandWho,
	selected []string,
	focus int,
) {
	switch e.normalizeExpandWho(who) {
	case model.ExpandNone:
		for i := range msgs {
			msgs[i].Expanded = false
		}
	case model.ExpandAll:
		for i := range msgs {
			msgs[i].Expanded = true
		}
	case model.ExpandAuto:
		if len(selected) > 1 {
			// Expand every unread message plus, unconditionally, the
			// last one.
			last := len(msgs) - 1
			for i := range msgs {
				msgs[i].Expanded = !msgs[i].Read || i == last
			}
			return
		}
		for i := range msgs {
			msgs[i].Expanded = i == focus
		}
	}
}

// normalizeExpandWho maps unrecognized preference values to auto. The
// fallback is logged because it signals a configuration bug, but it
// must never leave the conversation fully collapsed by accident.
func (e *Enricher) normalizeExpandWho(who model.ExpandWho) model.ExpandWho {
	switch who {
	case model.ExpandNone, model.ExpandAll, model.ExpandAuto:
		return who
	}
	e.log.Error().
		Str("expand_who", string(who)).
		Msg("unrecognized expansion preference, falling back to auto")
	return model.ExpandAuto
}
