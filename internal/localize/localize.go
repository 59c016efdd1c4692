// Package localize provides the human-readable formatting helpers the
// conversation view depends on: attachment sizes, friendly and absolute
// dates, and plural-form count strings.
package localize

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// UnknownSize is the label used when a backend reports an attachment
// size of -1.
const UnknownSize = "unknown size"

// FileSize formats a byte count into a human-readable size string.
// A negative count means the backend does not know the size.
func FileSize(bytes int64) string {
	if bytes < 0 {
		return UnknownSize
	}
	return humanize.IBytes(uint64(bytes))
}

// FriendlyDate renders t as a relative phrase ("3 days ago") measured
// against now.
func FriendlyDate(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// AbsoluteDate renders t as a fixed date string: time-only when t falls
// on the same calendar day as now, date and time otherwise.
func AbsoluteDate(t, now time.Time) string {
	if sameDay(t, now) {
		return t.Format("15:04")
	}
	return t.Format("Jan 2, 2006 15:04")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Pluralize selects the right form from a semicolon-separated plural
// template ("one attachment;#1 attachments") and substitutes the count
// for the #1 placeholder. A template without a second form is used for
// every count.
func Pluralize(template string, n int) string {
	forms := strings.Split(template, ";")
	form := forms[0]
	if n != 1 && len(forms) > 1 {
		form = forms[1]
	}
	return strings.ReplaceAll(form, "#1", strconv.Itoa(n))
}
