package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"threadcast/internal/thread"
)

// ThreadFileName is the input file name discovered by the batch runner.
const ThreadFileName = "thread_text.json"

// NewThread builds a document with an original post and the requested number
// of replies, timestamped one minute apart.
func NewThread(id string, replies int) thread.Document {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	doc := thread.Document{
		ID:     id,
		Author: "author_" + id,
		Posts: []thread.Post{{
			ID:        id,
			Author:    "author_" + id,
			Text:      fmt.Sprintf("Original post %s about shipping software", id),
			Timestamp: base.Format(time.RFC3339),
			URLs:      []string{},
			Hashtags:  []string{},
			Mentions:  []string{},
		}},
	}
	for i := 1; i <= replies; i++ {
		doc.Posts = append(doc.Posts, thread.Post{
			ID:        fmt.Sprintf("%s-%d", id, i),
			Author:    fmt.Sprintf("replier%d", i),
			Text:      fmt.Sprintf("Reply %d to %s", i, id),
			Timestamp: base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
			URLs:      []string{},
			Hashtags:  []string{},
			Mentions:  []string{},
			IsReply:   true,
			ReplyTo:   "author_" + id,
			ReplyToID: id,
		})
	}
	return doc
}

// WriteThread encodes doc into dir/thread_text.json and returns the path.
func WriteThread(t testing.TB, dir string, doc thread.Document) string {
	t.Helper()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal thread: %v", err)
	}
	return WriteFile(t, filepath.Join(dir, ThreadFileName), data)
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
