package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Clean trims surrounding whitespace and returns the NFC form of value.
func Clean(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

// RuneCount reports the length of value in runes.
func RuneCount(value string) int {
	return utf8.RuneCountInString(value)
}

// Hashtag canonicalizes a tag to "#tag": leading '#' characters and
// whitespace are removed and punctuation other than '_' is dropped. Combining
// marks are kept so composed and decomposed input yield the same tag. An
// empty result means the value carried no usable tag.
func Hashtag(value string) string {
	value = strings.TrimLeft(norm.NFC.String(strings.TrimSpace(value)), "#")
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "#" + b.String()
}

// Unique returns values with blanks removed and duplicates dropped, keeping
// the first occurrence. Comparison is case-insensitive when fold is set.
// The result is never nil.
func Unique(values []string, fold bool) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		key := value
		if fold {
			key = strings.ToLower(value)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	return out
}
