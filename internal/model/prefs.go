package model

// ExpandWho controls which messages in a conversation are shown
// expanded by default.
type ExpandWho string

const (
	ExpandNone ExpandWho = "none"
	ExpandAll  ExpandWho = "all"
	ExpandAuto ExpandWho = "auto"
)

// Prefs are the resolved user preferences the enrichment pipeline
// consumes. They are read from configuration by the app layer; the
// pipeline itself never touches preference storage.
type Prefs struct {
	// NoFriendlyDate disables relative date labels ("yesterday") in
	// favor of absolute ones.
	NoFriendlyDate bool `json:"no_friendly_date"`

	ExpandWho ExpandWho `json:"expand_who"`

	// ExtraAttachments includes inline parts in the attachment list.
	ExtraAttachments bool `json:"extra_attachments"`

	LoggingEnabled bool `json:"logging_enabled"`
}

// DefaultPrefs returns the preference values used when configuration
// does not say otherwise.
func DefaultPrefs() Prefs {
	return Prefs{ExpandWho: ExpandAuto}
}
