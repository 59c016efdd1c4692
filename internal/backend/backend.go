// Package backend defines the contract between the enrichment pipeline
// and the host mail store. The pipeline only ever talks to this
// interface; the production adapter binds it to an IMAP server and the
// tests bind it to an in-memory fake.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailpane/conversations/internal/model"
)

// ErrMessageGone indicates the backend can no longer produce a header
// for a message id: it was deleted or moved between the conversation
// query and enrichment. Callers exclude the message and continue.
var ErrMessageGone = errors.New("message no longer exists")

// AuthError indicates that authentication has failed or expired for the
// mail account.
type AuthError struct {
	Account string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Account, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an
// AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// FolderRef identifies a folder and its special-use role.
type FolderRef struct {
	ID   string
	Name string
	Kind model.FolderKind
}

// Header is the canonical per-copy metadata the backend holds for a
// physical message.
type Header struct {
	Folder  FolderRef
	Read    bool
	Flagged bool
	TagKeys []string
	Subject string
	Author  string
	Date    time.Time
}

// Backend is the host mail store as seen by the enrichment pipeline.
// Every call may be slow (disk or network behind it) and must be given
// a context.
type Backend interface {
	// MessageHeader returns the canonical header for a physical message
	// copy, or an error wrapping ErrMessageGone when the copy no longer
	// exists.
	MessageHeader(ctx context.Context, id string) (*Header, error)

	// ListTags returns the user's tag definitions.
	ListTags(ctx context.Context) ([]model.Tag, error)

	// IsMessageInView reports whether the message is currently visible
	// in the host's own message list identified by viewID.
	IsMessageInView(ctx context.Context, viewID, id string) (bool, error)

	// ParentFolders returns the ancestor folder names for a folder,
	// ordered root to leaf, including the folder itself.
	ParentFolders(ctx context.Context, folderID string) ([]string, error)

	// FullMessageBody fetches and flattens the message's MIME structure,
	// returning the first non-empty text/plain or text/html leaf found
	// depth-first (reverse part order within a multipart). Used only
	// when a message's snippet must be recovered in full.
	FullMessageBody(ctx context.Context, id string) (string, error)
}

// ConversationSource lists the physical copies making up a
// conversation. It is the query side of the host store, separate from
// Backend because the enricher itself never issues queries.
type ConversationSource interface {
	// ListConversation returns every physical copy of every message in
	// the conversation identified by key, in backend order.
	ListConversation(ctx context.Context, key string) ([]model.Message, error)
}
