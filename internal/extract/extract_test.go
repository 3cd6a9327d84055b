package extract_test

import (
	"strings"
	"testing"

	"threadcast/internal/extract"
	"threadcast/internal/thread"
)

func sampleThread() thread.Document {
	return thread.Document{
		ID:     "1",
		Author: "alice",
		Posts: []thread.Post{
			{ID: "1", Author: "alice", Text: "  The main idea  ", Timestamp: "2024-01-01T10:00:00Z"},
			{ID: "3", Author: "carol", Text: "Later reply", Timestamp: "2024-01-01T12:00:00Z"},
			{ID: "2", Author: "@bob", Text: "Earlier reply", Timestamp: "2024-01-01T11:00:00Z"},
		},
	}
}

func TestFlattenOrdersRepliesChronologically(t *testing.T) {
	got := extract.Flatten(sampleThread(), true)
	want := "Original post by @alice:\nThe main idea" +
		extract.Separator + "@bob: Earlier reply" +
		extract.Separator + "@carol: Later reply"
	if got != want {
		t.Fatalf("Flatten mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFlattenWithoutReplies(t *testing.T) {
	got := extract.Flatten(sampleThread(), false)
	if strings.Contains(got, "bob") || strings.Contains(got, extract.Separator) {
		t.Fatalf("replies should be omitted: %q", got)
	}
}

func TestFlattenBudgetKeepsWholeReplies(t *testing.T) {
	doc := sampleThread()
	head := "Original post by @alice:\nThe main idea"
	first := extract.Separator + "@bob: Earlier reply"
	budget := len([]rune(head + first))

	got := extract.FlattenWithBudget(doc, true, budget)
	if got != head+first {
		t.Fatalf("expected only the first reply, got %q", got)
	}

	got = extract.FlattenWithBudget(doc, true, budget-1)
	if got != head {
		t.Fatalf("partial replies must not be appended, got %q", got)
	}
}

func TestFlattenOriginalPostNeverTruncated(t *testing.T) {
	long := strings.Repeat("word ", 3000)
	doc := thread.Document{Posts: []thread.Post{
		{Author: "alice", Text: long},
		{Author: "bob", Text: "reply"},
	}}
	got := extract.FlattenWithBudget(doc, true, 100)
	if !strings.Contains(got, strings.TrimSpace(long)) {
		t.Fatal("original post was truncated")
	}
	if strings.Contains(got, "@bob") {
		t.Fatal("replies should be dropped when the original exceeds the budget")
	}
}

func TestFlattenUnparsableTimestampsKeepCaptureOrder(t *testing.T) {
	doc := thread.Document{Posts: []thread.Post{
		{Author: "alice", Text: "root"},
		{Author: "x", Text: "first undated"},
		{Author: "y", Text: "dated", Timestamp: "2024-01-01T00:00:00Z"},
		{Author: "z", Text: "second undated", Timestamp: "sometime"},
	}}
	got := extract.Flatten(doc, true)
	iDated := strings.Index(got, "@y:")
	iFirst := strings.Index(got, "@x:")
	iSecond := strings.Index(got, "@z:")
	if !(iDated < iFirst && iFirst < iSecond) {
		t.Fatalf("unexpected order: %q", got)
	}
}

func TestFlattenSkipsEmptyRepliesAndUnknownAuthors(t *testing.T) {
	doc := thread.Document{Posts: []thread.Post{
		{Text: "root"},
		{Author: "bob", Text: "   "},
	}}
	got := extract.Flatten(doc, true)
	if got != "Original post by @unknown:\nroot" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestFlattenNormalizesToNFC(t *testing.T) {
	doc := thread.Document{Posts: []thread.Post{{Author: "a", Text: "cafe\u0301"}}}
	if got := extract.Flatten(doc, false); !strings.HasSuffix(got, "caf\u00e9") {
		t.Fatalf("text not normalized: %q", got)
	}
}
