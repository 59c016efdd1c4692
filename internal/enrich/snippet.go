package enrich

import "regexp"

// snippetMaxLen caps snippets recovered from a full body fetch.
const snippetMaxLen = 300

// bugzillaLink matches the bug link Bugzilla puts on the first line of
// its notification mails.
var bugzillaLink = regexp.MustCompile(
	`^https?://bugzilla\.mozilla\.org/show_bug\.cgi\?id=\d+`,
)

// bugzillaComment matches the "--- Comment #N from ... ---" separator.
// The greedy body makes a single match span to the last separator, so
// the text after it is the newest comment.
var bugzillaComment = regexp.MustCompile(`(?s)--- Comment #\d+ from .* ---`)

// TrimBugzillaSnippet cleans up a Bugzilla notification snippet:
// a leading bug-link URL is stripped, and when a comment separator is
// present the text after the last one is preferred. This is best-effort
// textual cleanup, not a parser; input that matches neither pattern
// passes through unchanged.
func TrimBugzillaSnippet(snippet string) string {
	snippet = bugzillaLink.ReplaceAllString(snippet, "")
	if loc := bugzillaComment.FindStringIndex(snippet); loc != nil {
		return snippet[loc[1]:]
	}
	return snippet
}

// clampSnippet bounds a full message body to snippet length.
func clampSnippet(body string) string {
	runes := []rune(body)
	if len(runes) > snippetMaxLen {
		return string(runes[:snippetMaxLen])
	}
	return body
}
