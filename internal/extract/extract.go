package extract

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"threadcast/internal/textutil"
	"threadcast/internal/thread"
)

// DefaultBudget is the rune budget used by Flatten.
const DefaultBudget = 8000

// Separator divides consecutive posts in the flattened block.
const Separator = "\n\n---\n\n"

const unknownAuthor = "unknown"

// Flatten renders doc using DefaultBudget.
func Flatten(doc thread.Document, includeReplies bool) string {
	return FlattenWithBudget(doc, includeReplies, DefaultBudget)
}

// FlattenWithBudget renders doc, appending replies while the result stays
// within budget runes. A budget <= 0 falls back to DefaultBudget. When the
// original post alone exceeds the budget it is returned whole without replies.
func FlattenWithBudget(doc thread.Document, includeReplies bool, budget int) string {
	if budget <= 0 {
		budget = DefaultBudget
	}
	original := doc.Original()
	var b strings.Builder
	fmt.Fprintf(&b, "Original post by @%s:\n%s", authorOf(original), textutil.Clean(original.Text))
	if !includeReplies {
		return b.String()
	}

	used := textutil.RuneCount(b.String())
	for _, reply := range chronological(doc.Replies()) {
		text := textutil.Clean(reply.Text)
		if text == "" {
			continue
		}
		entry := Separator + fmt.Sprintf("@%s: %s", authorOf(reply), text)
		size := textutil.RuneCount(entry)
		if used+size > budget {
			break
		}
		b.WriteString(entry)
		used += size
	}
	return b.String()
}

func authorOf(post thread.Post) string {
	author := strings.TrimPrefix(textutil.Clean(post.Author), "@")
	if author == "" {
		return unknownAuthor
	}
	return author
}

// chronological orders replies by timestamp. Replies whose timestamp does not
// parse keep their capture position relative to each other and sort after
// every dated reply.
func chronological(replies []thread.Post) []thread.Post {
	type dated struct {
		post thread.Post
		at   time.Time
		ok   bool
	}
	items := make([]dated, len(replies))
	for i, reply := range replies {
		at, ok := thread.ParseTimestamp(reply.Timestamp)
		items[i] = dated{post: reply, at: at, ok: ok}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		return a.at.Before(b.at)
	})
	out := make([]thread.Post, len(items))
	for i, item := range items {
		out[i] = item.post
	}
	return out
}
