package model

import (
	"strconv"
	"time"
)

// MessageKind identifies the rendering flavor of a message.
type MessageKind string

const (
	KindNormal   MessageKind = "normal"
	KindBugzilla MessageKind = "bugzilla"
)

// FolderKind classifies a mail folder by its special-use role.
type FolderKind string

const (
	FolderInbox     FolderKind = "inbox"
	FolderSent      FolderKind = "sent"
	FolderArchives  FolderKind = "archives"
	FolderDrafts    FolderKind = "drafts"
	FolderOutbox    FolderKind = "outbox"
	FolderTemplates FolderKind = "templates"
	FolderTrash     FolderKind = "trash"
	FolderJunk      FolderKind = "junk"
	FolderOther     FolderKind = "other"
)

// Attachment holds metadata about a single message attachment.
// Size is -1 when the backend could not determine it.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	PartID      string `json:"part_id"`

	// Inline marks parts the body already displays, such as images
	// referenced from the HTML. They are hidden from the attachment
	// list unless the extra-attachments preference is on.
	Inline bool `json:"inline"`
}

// Message is one physical, folder-resident copy of a logical message as
// returned by the mail backend. Several Messages may share a
// HeaderMessageID (or GlodaID) when the same conversation message is
// stored in more than one folder; deduplication collapses them.
type Message struct {
	// ID uniquely identifies this physical copy (per folder placement).
	ID string `json:"id"`

	// HeaderMessageID is the RFC 5322 Message-ID, the primary logical
	// identity of the message.
	HeaderMessageID string `json:"header_message_id"`

	// GlodaID is the content index's numeric identity for the logical
	// message. Used as a fallback when HeaderMessageID is empty.
	GlodaID int64 `json:"gloda_id"`

	// FolderID identifies the folder this copy lives in.
	FolderID string `json:"folder_id"`

	// FolderKind is the special-use role of that folder.
	FolderKind FolderKind `json:"folder_kind"`

	Read    bool     `json:"read"`
	Flagged bool     `json:"flagged"`
	TagKeys []string `json:"tag_keys"`

	Subject string    `json:"subject"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`

	// Snippet is a short body preview. May be empty when the content
	// index has not seen the message body yet.
	Snippet string `json:"snippet"`

	// NeedsFullBody is set when the snippet must be recovered from a
	// full MIME fetch because the message is not in the content index.
	NeedsFullBody bool `json:"needs_full_body"`

	Kind MessageKind `json:"kind"`

	Attachments []Attachment `json:"attachments"`

	// InitialPosition is the message's position in the original query
	// result. It keys stable per-message anchors (e.g. "msg0att0") and
	// survives reordering.
	InitialPosition int `json:"initial_position"`
}

// LogicalID returns the identity used to group physical copies of the
// same conversation message: the header Message-ID when present,
// otherwise the content index identity.
func (m Message) LogicalID() string {
	if m.HeaderMessageID != "" {
		return m.HeaderMessageID
	}
	return "gloda:" + strconv.FormatInt(m.GlodaID, 10)
}
