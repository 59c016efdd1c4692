package model

// Tag is a user-defined message label.
type Tag struct {
	Key   string `json:"key" db:"key"`
	Name  string `json:"name" db:"name"`
	Color string `json:"color" db:"color"`
}

// UnknownTag returns the sentinel definition used when a message
// carries a tag key with no matching user definition. A bad key never
// fails the batch; it renders as an unnamed white tag.
func UnknownTag(key string) Tag {
	return Tag{Key: key, Name: "unknown", Color: "#FFFFFF"}
}
