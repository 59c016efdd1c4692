package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimBugzillaSnippet(t *testing.T) {
	tests := []struct {
		name    string
		snippet string
		want    string
	}{
		{
			name:    "leading bug link stripped",
			snippet: "https://bugzilla.mozilla.org/show_bug.cgi?id=123\n\nFoo changed:\n",
			want:    "\n\nFoo changed:\n",
		},
		{
			name:    "text after last comment marker preferred",
			snippet: "preamble --- Comment #5 from X 2021-06-03 10:00:00 PDT ---\nUpdating",
			want:    "\nUpdating",
		},
		{
			name: "last of several comment markers",
			snippet: "--- Comment #1 from A 2021-06-01 09:00:00 PDT ---\nfirst\n" +
				"--- Comment #2 from B 2021-06-02 09:00:00 PDT ---\nsecond",
			want: "\nsecond",
		},
		{
			name:    "plain snippet passes through",
			snippet: "just a normal preview line",
			want:    "just a normal preview line",
		},
		{
			name:    "bug link not at start is kept",
			snippet: "see https://bugzilla.mozilla.org/show_bug.cgi?id=123 for details",
			want:    "see https://bugzilla.mozilla.org/show_bug.cgi?id=123 for details",
		},
		{
			name:    "empty",
			snippet: "",
			want:    "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TrimBugzillaSnippet(tc.snippet))
		})
	}
}

func TestClampSnippet(t *testing.T) {
	short := "short body"
	assert.Equal(t, short, clampSnippet(short))

	long := strings.Repeat("x", snippetMaxLen+50)
	got := clampSnippet(long)
	assert.Len(t, got, snippetMaxLen)
}
