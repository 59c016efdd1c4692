package enrich

import (
	"context"
	"fmt"
	"sync"

	"github.com/mailpane/conversations/internal/backend"
	"github.com/mailpane/conversations/internal/model"
)

// fakeBackend is an in-memory backend for enricher tests. All methods
// are safe for the enricher's concurrent fan-out.
type fakeBackend struct {
	mu sync.Mutex

	headers  map[string]*backend.Header
	onHeader func()
	tags     []model.Tag
	tagsErr  error
	inView   map[string]bool
	parents  map[string][]string
	bodies   map[string]string
	bodyErr  error

	parentCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		headers: make(map[string]*backend.Header),
		inView:  make(map[string]bool),
		parents: make(map[string][]string),
		bodies:  make(map[string]string),
	}
}

func (f *fakeBackend) MessageHeader(
	_ context.Context, id string,
) (*backend.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onHeader != nil {
		f.onHeader()
	}
	hdr, ok := f.headers[id]
	if !ok {
		return nil, fmt.Errorf("header %s: %w", id, backend.ErrMessageGone)
	}
	cp := *hdr
	return &cp, nil
}

func (f *fakeBackend) ListTags(_ context.Context) ([]model.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tagsErr != nil {
		return nil, f.tagsErr
	}
	return append([]model.Tag(nil), f.tags...), nil
}

func (f *fakeBackend) IsMessageInView(
	_ context.Context, _ string, id string,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inView[id], nil
}

func (f *fakeBackend) ParentFolders(
	_ context.Context, folderID string,
) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parentCalls++
	names, ok := f.parents[folderID]
	if !ok {
		return nil, fmt.Errorf("folder %s not found", folderID)
	}
	return append([]string(nil), names...), nil
}

func (f *fakeBackend) FullMessageBody(
	_ context.Context, id string,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bodyErr != nil {
		return "", f.bodyErr
	}
	return f.bodies[id], nil
}

// addMessage registers a header for the message and returns the raw
// message the enricher would receive from the conversation query.
func (f *fakeBackend) addMessage(m model.Message) model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	folderID := string(m.FolderKind)
	f.headers[m.ID] = &backend.Header{
		Folder: backend.FolderRef{
			ID:   folderID,
			Name: folderName(m.FolderKind),
			Kind: m.FolderKind,
		},
		Read:    m.Read,
		Flagged: m.Flagged,
		TagKeys: m.TagKeys,
		Subject: m.Subject,
		Author:  m.Author,
		Date:    m.Date,
	}
	if _, ok := f.parents[folderID]; !ok {
		f.parents[folderID] = []string{"Local", folderName(m.FolderKind)}
	}
	return m
}

func folderName(kind model.FolderKind) string {
	switch kind {
	case model.FolderInbox:
		return "Inbox"
	case model.FolderSent:
		return "Sent"
	case model.FolderArchives:
		return "Archives"
	case model.FolderTrash:
		return "Trash"
	case model.FolderJunk:
		return "Junk"
	default:
		return string(kind)
	}
}
