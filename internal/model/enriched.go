package model

// AttachmentView is an Attachment annotated for display.
type AttachmentView struct {
	Attachment

	// FormattedSize is the human-readable size, or the localized
	// "unknown size" string when the backend reported -1.
	FormattedSize string `json:"formatted_size"`

	// AnchorID is the stable per-message anchor ("msg<pos>att<index>")
	// the view layer uses to jump to this attachment.
	AnchorID string `json:"anchor_id"`
}

// EnrichedMessage is one logical message after deduplication, annotated
// with everything the conversation view needs to render it. Instances
// live in the UI state until the next enrichment pass replaces or
// patches them; they are never persisted.
type EnrichedMessage struct {
	Message

	// FolderName is the full folder path ("Parent/Child/Inbox"),
	// populated only when the message is not already visible in the
	// current view. ShortFolderName is the leaf folder name.
	FolderName      string `json:"folder_name"`
	ShortFolderName string `json:"short_folder_name"`

	IsDraft    bool `json:"is_draft"`
	IsJunk     bool `json:"is_junk"`
	IsOutbox   bool `json:"is_outbox"`
	IsArchives bool `json:"is_archives"`
	IsInbox    bool `json:"is_inbox"`
	IsSent     bool `json:"is_sent"`

	// Tags are the resolved tag definitions for the message's tag keys.
	Tags []Tag `json:"tags"`

	// Attachments shadows the raw attachment list with the annotated
	// views. The raw descriptors remain reachable through the embedded
	// Message.
	Attachments []AttachmentView `json:"attachments"`

	// AttachmentsPlural is the localized "N attachments" count string.
	AttachmentsPlural string `json:"attachments_plural"`

	// DateLabel is the primary date string (friendly or absolute,
	// depending on preferences). FullDateLabel is the absolute
	// formatting shown alongside a friendly label; it is empty when
	// DateLabel is already absolute.
	DateLabel     string `json:"date_label"`
	FullDateLabel string `json:"full_date_label"`

	// Expanded is the display decision for this message.
	Expanded bool `json:"expanded"`

	// ScrollTo marks the message the view should scroll to. At most one
	// message per enrichment batch carries it.
	ScrollTo bool `json:"scroll_to"`
}

// ApplyFolderKind sets the folder boolean flags from the message's
// FolderKind.
func (m *EnrichedMessage) ApplyFolderKind() {
	m.IsDraft = m.FolderKind == FolderDrafts
	m.IsJunk = m.FolderKind == FolderJunk
	m.IsOutbox = m.FolderKind == FolderOutbox
	m.IsArchives = m.FolderKind == FolderArchives
	m.IsInbox = m.FolderKind == FolderInbox
	m.IsSent = m.FolderKind == FolderSent
}
