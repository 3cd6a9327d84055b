package thread

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"threadcast/internal/services"
)

var (
	idKeys        = []string{"tweet_id", "id_str", "id", "tweetId", "postId", "post_id", "replyId"}
	textKeys      = []string{"text", "full_text", "tweet_text", "replyText", "body", "message", "content"}
	authorKeys    = []string{"author", "user"}
	handleKeys    = []string{"username", "screen_name", "userName", "name"}
	timeKeys      = []string{"timestamp", "created_at", "date", "time", "createdAt"}
	replyFlagKeys = []string{"is_reply", "isReply"}
	replyToKeys   = []string{"reply_to", "in_reply_to_screen_name", "replyToUser", "reply_to_user", "replyToScreenName", "reply_to_screen_name"}
	replyIDKeys   = []string{"reply_to_id", "in_reply_to_status_id_str", "in_reply_to_status_id", "replyToId", "replyToTweetId", "reply_to_tweet_id"}
)

// Load reads and decodes a captured discussion file. Unreadable or malformed
// files and documents without posts are input errors.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		msg := "read thread file"
		if errors.Is(err, fs.ErrNotExist) {
			msg = "thread file not found"
		}
		return Document{}, services.Wrap(services.ErrInput, "thread", "load", msg, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a captured discussion. Three shapes are accepted: the
// {thread_id, author, tweets} document, a bare array of posts, and a single
// post object. Field names used by different scrapers are tolerated; missing
// text fields become empty strings.
func Parse(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Document{}, services.Wrap(services.ErrInput, "thread", "parse", "empty document", nil)
	}

	var doc Document
	switch trimmed[0] {
	case '[':
		var raw []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return Document{}, services.Wrap(services.ErrInput, "thread", "parse", "malformed post list", err)
		}
		doc.Posts = decodePosts(raw)
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return Document{}, services.Wrap(services.ErrInput, "thread", "parse", "malformed document", err)
		}
		if tweets, ok := raw["tweets"]; ok {
			var posts []map[string]json.RawMessage
			if err := json.Unmarshal(tweets, &posts); err != nil {
				return Document{}, services.Wrap(services.ErrInput, "thread", "parse", "tweets must be an array of objects", err)
			}
			doc.ID = pickString(raw, "thread_id", "conversation_id", "id")
			doc.Author = pickAuthor(raw)
			doc.Posts = decodePosts(posts)
		} else {
			// Without tweets the object must itself look like a post.
			if _, ok := raw["thread_id"]; ok {
				return Document{}, services.Wrap(services.ErrInput, "thread", "parse", "thread document has no tweets field", nil)
			}
			if !hasAnyKey(raw, idKeys...) && !hasAnyKey(raw, textKeys...) {
				return Document{}, services.Wrap(services.ErrInput, "thread", "parse", "object is neither a thread nor a post", nil)
			}
			doc.Posts = decodePosts([]map[string]json.RawMessage{raw})
		}
	default:
		return Document{}, services.Wrap(services.ErrInput, "thread", "parse", "document must be a JSON object or array", nil)
	}

	if len(doc.Posts) == 0 {
		return Document{}, services.Wrap(services.ErrInput, "thread", "parse", "document has no posts", nil)
	}
	if allBlank(doc.Posts) {
		return Document{}, services.Wrap(services.ErrInput, "thread", "parse", "no post carries an id or text", nil)
	}
	if doc.ID == "" {
		doc.ID = doc.Posts[0].ID
	}
	if doc.Author == "" {
		doc.Author = doc.Posts[0].Author
	}
	return doc, nil
}

func decodePosts(raw []map[string]json.RawMessage) []Post {
	posts := make([]Post, 0, len(raw))
	for _, fields := range raw {
		if fields == nil {
			continue
		}
		post := Post{
			ID:        pickString(fields, idKeys...),
			Author:    pickAuthor(fields),
			Text:      pickString(fields, textKeys...),
			Timestamp: pickString(fields, timeKeys...),
			URLs:      pickList(fields, "urls", "urls", ""),
			Hashtags:  pickList(fields, "hashtags", "hashtags", "#"),
			Mentions:  pickList(fields, "mentions", "user_mentions", "@"),
			IsReply:   pickBool(fields, replyFlagKeys...),
			ReplyTo:   pickString(fields, replyToKeys...),
			ReplyToID: pickString(fields, replyIDKeys...),
		}
		if post.ReplyToID != "" {
			post.IsReply = true
		}
		posts = append(posts, post)
	}
	return posts
}

func hasAnyKey(fields map[string]json.RawMessage, keys ...string) bool {
	for _, key := range keys {
		if _, ok := fields[key]; ok {
			return true
		}
	}
	return false
}

func allBlank(posts []Post) bool {
	for _, post := range posts {
		if post.ID != "" || post.Text != "" {
			return false
		}
	}
	return true
}

// pickString returns the first non-empty string or number value among keys.
func pickString(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if value := scalarString(raw); value != "" {
			return value
		}
	}
	return ""
}

func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// pickAuthor accepts either a handle string or a user object.
func pickAuthor(fields map[string]json.RawMessage) string {
	for _, key := range authorKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if value := scalarString(raw); value != "" {
			return strings.TrimPrefix(value, "@")
		}
		var user map[string]json.RawMessage
		if err := json.Unmarshal(raw, &user); err == nil {
			if value := pickString(user, handleKeys...); value != "" {
				return strings.TrimPrefix(value, "@")
			}
		}
	}
	return ""
}

func pickStrings(fields map[string]json.RawMessage, key string) []string {
	raw, ok := fields[key]
	if !ok {
		return []string{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if value := scalarString(item); value != "" {
			out = append(out, value)
			continue
		}
		// Entity objects ({"text": "..."} / {"expanded_url": "..."}) are common.
		var entity map[string]json.RawMessage
		if err := json.Unmarshal(item, &entity); err == nil {
			if value := pickString(entity, "expanded_url", "url", "text", "tag", "screen_name", "username"); value != "" {
				out = append(out, value)
			}
		}
	}
	return out
}

// pickList reads a flat list field, falling back to the Twitter API
// entities block. Entity values get prefix applied when they lack it.
func pickList(fields map[string]json.RawMessage, key, entityKey, prefix string) []string {
	if _, ok := fields[key]; ok {
		return pickStrings(fields, key)
	}
	raw, ok := fields["entities"]
	if !ok {
		return []string{}
	}
	var entities map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entities); err != nil {
		return []string{}
	}
	values := pickStrings(entities, entityKey)
	if prefix == "" {
		return values
	}
	for i, value := range values {
		if !strings.HasPrefix(value, prefix) {
			values[i] = prefix + value
		}
	}
	return values
}

func pickBool(fields map[string]json.RawMessage, keys ...string) bool {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return b
		}
		if parsed, err := strconv.ParseBool(scalarString(raw)); err == nil {
			return parsed
		}
	}
	return false
}
