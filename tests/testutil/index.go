package testutil

import (
	"testing"

	"github.com/mailpane/conversations/internal/index"
)

// NewTestIndex creates an in-memory message index with all migrations
// applied. It automatically closes the index when the test completes.
func NewTestIndex(t *testing.T) *index.Index {
	t.Helper()

	idx, err := index.Open(":memory:")
	if err != nil {
		t.Fatalf("creating test index: %v", err)
	}

	t.Cleanup(func() {
		if err := idx.Close(); err != nil {
			t.Errorf("closing test index: %v", err)
		}
	})

	return idx
}
