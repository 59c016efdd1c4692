package imap

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/rs/zerolog"

	"github.com/mailpane/conversations/internal/backend"
	"github.com/mailpane/conversations/internal/index"
	"github.com/mailpane/conversations/internal/model"
)

// Adapter implements backend.Backend and backend.ConversationSource
// against an IMAP account. The local index supplies tag definitions,
// gloda identities, and cached snippets.
type Adapter struct {
	client *Client
	idx    *index.Index
	log    zerolog.Logger

	mu        sync.Mutex
	mailboxes map[string]mailbox
}

var (
	_ backend.Backend            = (*Adapter)(nil)
	_ backend.ConversationSource = (*Adapter)(nil)
)

// NewAdapter creates an IMAP-backed adapter for the given account.
func NewAdapter(client *Client, idx *index.Index, log zerolog.Logger) *Adapter {
	return &Adapter{
		client:    client,
		idx:       idx,
		log:       log,
		mailboxes: make(map[string]mailbox),
	}
}

// copyID encodes a physical message copy identity as mailbox;uid.
func copyID(mailboxName string, uid imap.UID) string {
	return fmt.Sprintf("%s;%d", mailboxName, uid)
}

// parseCopyID splits a physical copy id back into mailbox and UID.
func parseCopyID(id string) (string, imap.UID, error) {
	sep := strings.LastIndex(id, ";")
	if sep < 0 {
		return "", 0, fmt.Errorf("invalid message id %q", id)
	}
	uid, err := strconv.ParseUint(id[sep+1:], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("invalid message id %q: %w", id, err)
	}
	return id[:sep], imap.UID(uid), nil
}

// refreshMailboxes re-enumerates the account's mailboxes and caches
// them by name.
func (a *Adapter) refreshMailboxes(ctx context.Context) error {
	client, err := a.client.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	boxes, err := listMailboxes(client)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.mailboxes = make(map[string]mailbox, len(boxes))
	for _, box := range boxes {
		a.mailboxes[box.Name] = box
	}
	return nil
}

// lookupMailbox returns the cached mailbox entry, refreshing the cache
// on a miss.
func (a *Adapter) lookupMailbox(ctx context.Context, name string) (mailbox, error) {
	a.mu.Lock()
	box, ok := a.mailboxes[name]
	a.mu.Unlock()
	if ok {
		return box, nil
	}

	if err := a.refreshMailboxes(ctx); err != nil {
		return mailbox{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	box, ok = a.mailboxes[name]
	if !ok {
		return mailbox{}, fmt.Errorf("mailbox %q: %w", name, backend.ErrMessageGone)
	}
	return box, nil
}

// leafName returns the last path component of a mailbox name.
func leafName(box mailbox) string {
	delim := string(box.Delim)
	if delim == "" || delim == "\x00" {
		return box.Name
	}
	parts := strings.Split(box.Name, delim)
	return parts[len(parts)-1]
}

// MessageHeader fetches the canonical header for a physical copy.
func (a *Adapter) MessageHeader(ctx context.Context, id string) (*backend.Header, error) {
	mailboxName, uid, err := parseCopyID(id)
	if err != nil {
		return nil, err
	}

	box, err := a.lookupMailbox(ctx, mailboxName)
	if err != nil {
		return nil, err
	}

	client, err := a.client.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(mailboxName, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", mailboxName, err)
	}

	buf, err := fetchOne(client, uid, &imap.FetchOptions{
		Envelope: true,
		Flags:    true,
		UID:      true,
	})
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, fmt.Errorf("message %s: %w", id, backend.ErrMessageGone)
	}

	header := &backend.Header{
		Folder: backend.FolderRef{
			ID:   box.Name,
			Name: leafName(box),
			Kind: box.Kind,
		},
		TagKeys: tagKeysFromFlags(buf.Flags),
	}

	for _, flag := range buf.Flags {
		switch flag {
		case imap.FlagSeen:
			header.Read = true
		case imap.FlagFlagged:
			header.Flagged = true
		}
	}

	if buf.Envelope != nil {
		header.Subject = buf.Envelope.Subject
		header.Date = buf.Envelope.Date
		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				header.Author = from.Name
			} else {
				header.Author = from.Addr()
			}
		}
	}

	return header, nil
}

// ListTags returns the tag definitions held in the local index.
func (a *Adapter) ListTags(ctx context.Context) ([]model.Tag, error) {
	return a.idx.Tags(ctx)
}

// IsMessageInView reports whether the copy lives in the mailbox the
// view is showing. For an IMAP account a view is a selected mailbox.
func (a *Adapter) IsMessageInView(_ context.Context, viewID, id string) (bool, error) {
	mailboxName, _, err := parseCopyID(id)
	if err != nil {
		return false, err
	}
	return mailboxName == viewID, nil
}

// ParentFolders returns the hierarchy path for a mailbox, root to
// leaf, derived from the account's hierarchy delimiter.
func (a *Adapter) ParentFolders(ctx context.Context, folderID string) ([]string, error) {
	box, err := a.lookupMailbox(ctx, folderID)
	if err != nil {
		return nil, err
	}

	delim := string(box.Delim)
	if delim == "" || delim == "\x00" {
		return []string{box.Name}, nil
	}
	return strings.Split(box.Name, delim), nil
}

// FullMessageBody fetches the raw message and flattens its MIME
// structure down to the best text leaf.
func (a *Adapter) FullMessageBody(ctx context.Context, id string) (string, error) {
	mailboxName, uid, err := parseCopyID(id)
	if err != nil {
		return "", err
	}

	client, err := a.client.Connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(mailboxName, nil).Wait(); err != nil {
		return "", fmt.Errorf("selecting %s: %w", mailboxName, err)
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	buf, err := fetchOne(client, uid, &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	if err != nil {
		return "", err
	}
	if buf == nil {
		return "", fmt.Errorf("message %s: %w", id, backend.ErrMessageGone)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return "", fmt.Errorf("message %s has no body section", id)
	}

	return flattenBody(raw), nil
}

// ListConversation finds every physical copy of every message in the
// thread identified by key (the thread root's Message-ID), across all
// mailboxes, in mailbox order.
func (a *Adapter) ListConversation(ctx context.Context, key string) ([]model.Message, error) {
	if err := a.refreshMailboxes(ctx); err != nil {
		return nil, err
	}

	client, err := a.client.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	a.mu.Lock()
	boxes := make([]mailbox, 0, len(a.mailboxes))
	for _, box := range a.mailboxes {
		boxes = append(boxes, box)
	}
	a.mu.Unlock()

	var messages []model.Message
	for _, box := range boxes {
		copies, err := a.listThreadCopies(ctx, client, box, key)
		if err != nil {
			a.log.Warn().Err(err).Str("mailbox", box.Name).
				Msg("skipping mailbox during conversation query")
			continue
		}
		messages = append(messages, copies...)
	}

	for i := range messages {
		messages[i].InitialPosition = i
	}

	return messages, nil
}

// listThreadCopies searches one mailbox for messages belonging to the
// thread and maps them to the pipeline's message model.
func (a *Adapter) listThreadCopies(
	ctx context.Context,
	client *imapclient.Client,
	box mailbox,
	key string,
) ([]model.Message, error) {
	if _, err := client.Select(box.Name, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", box.Name, err)
	}

	// A copy belongs to the thread when it is the root itself or
	// references the root.
	criteria := &imap.SearchCriteria{
		Or: [][2]imap.SearchCriteria{{
			{Header: []imap.SearchCriteriaHeaderField{{Key: "Message-ID", Value: key}}},
			{Header: []imap.SearchCriteriaHeaderField{{Key: "References", Value: key}}},
		}},
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", box.Name, err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope: true,
		Flags:    true,
		UID:      true,
	})
	defer fetchCmd.Close()

	var messages []model.Message
	for {
		fetched := fetchCmd.Next()
		if fetched == nil {
			break
		}
		buf, err := fetched.Collect()
		if err != nil {
			continue
		}

		msg, err := a.messageFromBuffer(ctx, box, buf)
		if err != nil {
			a.log.Warn().Err(err).Str("mailbox", box.Name).
				Msg("skipping unreadable message copy")
			continue
		}
		messages = append(messages, msg)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching from %s: %w", box.Name, err)
	}

	return messages, nil
}

// messageFromBuffer maps one fetched copy to the pipeline's message
// model, consulting the index for identity and cached snippet.
func (a *Adapter) messageFromBuffer(
	ctx context.Context,
	box mailbox,
	buf *imapclient.FetchMessageBuffer,
) (model.Message, error) {
	msg := model.Message{
		ID:         copyID(box.Name, buf.UID),
		FolderID:   box.Name,
		FolderKind: box.Kind,
		TagKeys:    tagKeysFromFlags(buf.Flags),
		Kind:       model.KindNormal,
	}

	for _, flag := range buf.Flags {
		switch flag {
		case imap.FlagSeen:
			msg.Read = true
		case imap.FlagFlagged:
			msg.Flagged = true
		}
	}

	if buf.Envelope != nil {
		msg.HeaderMessageID = buf.Envelope.MessageID
		msg.Subject = buf.Envelope.Subject
		msg.Date = buf.Envelope.Date
		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				msg.Author = from.Name
			} else {
				msg.Author = from.Addr()
			}
			if strings.Contains(strings.ToLower(from.Addr()), "bugzilla") {
				msg.Kind = model.KindBugzilla
			}
		}
	}

	if msg.HeaderMessageID == "" {
		return msg, fmt.Errorf("copy %s has no Message-ID", msg.ID)
	}

	glodaID, err := a.idx.Assign(ctx, msg.HeaderMessageID)
	if err != nil {
		return msg, err
	}
	msg.GlodaID = glodaID

	entry, err := a.idx.Lookup(ctx, msg.HeaderMessageID)
	switch {
	case errors.Is(err, index.ErrNotIndexed):
		msg.NeedsFullBody = true
	case err != nil:
		return msg, err
	case entry.Indexed:
		msg.Snippet = entry.Snippet
	default:
		msg.NeedsFullBody = true
	}

	return msg, nil
}

// fetchOne fetches a single message by UID, returning nil when the
// server has no such message.
func fetchOne(
	client *imapclient.Client,
	uid imap.UID,
	opts *imap.FetchOptions,
) (*imapclient.FetchMessageBuffer, error) {
	fetchCmd := client.Fetch(imap.UIDSetNum(uid), opts)
	defer fetchCmd.Close()

	fetched := fetchCmd.Next()
	if fetched == nil {
		return nil, nil
	}

	buf, err := fetched.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	if err := fetchCmd.Close(); err != nil {
		return buf, fmt.Errorf("closing fetch: %w", err)
	}

	return buf, nil
}
