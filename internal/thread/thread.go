package thread

import (
	"strings"
	"time"
)

// Post is one captured message: the original post or a reply.
type Post struct {
	ID        string   `json:"tweet_id"`
	Author    string   `json:"author"`
	Text      string   `json:"text"`
	Timestamp string   `json:"timestamp"`
	URLs      []string `json:"urls"`
	Hashtags  []string `json:"hashtags"`
	Mentions  []string `json:"mentions"`
	IsReply   bool     `json:"is_reply"`
	ReplyTo   string   `json:"reply_to,omitempty"`
	ReplyToID string   `json:"reply_to_id,omitempty"`
}

// Document is a captured discussion. Posts[0] is the original post; the
// loader guarantees Posts is never empty.
type Document struct {
	ID     string `json:"thread_id"`
	Author string `json:"author"`
	Posts  []Post `json:"tweets"`
}

// Original returns the first post.
func (d Document) Original() Post {
	if len(d.Posts) == 0 {
		return Post{}
	}
	return d.Posts[0]
}

// Replies returns every post after the original, in capture order.
func (d Document) Replies() []Post {
	if len(d.Posts) < 2 {
		return nil
	}
	return d.Posts[1:]
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RubyDate, // Twitter API v1: "Mon Jan 02 15:04:05 -0700 2006"
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.UnixDate,
}

// ParseTimestamp parses the timestamp formats produced by common scrapers.
// The boolean is false when the value is empty or unrecognized.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
