package model

import "time"

// Notification is a transient alert surfaced in the status bar when
// the open conversation changes behind the user's back (new messages
// arriving live, messages disappearing).
type Notification struct {
	// MessageID links the notification to the message that caused it,
	// when there is a single one.
	MessageID string `json:"message_id"`

	// Text is the human-readable notification text.
	Text string `json:"text"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}
