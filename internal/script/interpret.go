package script

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"threadcast/internal/services/llm"
)

// Kind records which interpretation stage produced the sections.
type Kind int

const (
	// KindStrict means the whole completion was one valid object.
	KindStrict Kind = iota
	// KindExtracted means a valid object was found embedded in prose.
	KindExtracted
	// KindDegraded means nothing usable was found.
	KindDegraded
)

func (k Kind) String() string {
	switch k {
	case KindStrict:
		return "strict"
	case KindExtracted:
		return "extracted"
	case KindDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Sections holds the three narrated parts in order.
type Sections struct {
	Hook      Section
	Intro     Section
	Explainer Section
}

// ParsedMetadata is the provider-declared metadata after repair.
// HasTotal distinguishes an absent total from a declared zero.
type ParsedMetadata struct {
	TotalDurationSeconds float64
	HasTotal             bool
	KeyTopics            []string
	Hashtags             []string
	EngagementPotential  string
	TargetAudience       string
}

// Interpretation is the result of reading one completion.
type Interpretation struct {
	Kind     Kind
	Sections Sections
	Metadata ParsedMetadata
	// Raw is the completion text exactly as received.
	Raw string
}

// Degraded reports whether no structured object could be recovered.
func (i Interpretation) Degraded() bool {
	return i.Kind == KindDegraded
}

// Interpret reads provider output in three stages: the whole text as one
// object, then balanced-brace objects found inside the text, then a degraded
// result that keeps the raw text. It never panics and never returns an error.
func Interpret(raw string) Interpretation {
	trimmed := strings.TrimSpace(raw)
	if sections, meta, ok := parseObject(trimmed); ok {
		return Interpretation{Kind: KindStrict, Sections: sections, Metadata: meta, Raw: raw}
	}
	if unfenced := llm.StripCodeFence(trimmed); unfenced != trimmed {
		if sections, meta, ok := parseObject(unfenced); ok {
			return Interpretation{Kind: KindStrict, Sections: sections, Metadata: meta, Raw: raw}
		}
	}
	for _, candidate := range balancedObjects(trimmed) {
		if sections, meta, ok := parseObject(candidate); ok {
			return Interpretation{Kind: KindExtracted, Sections: sections, Metadata: meta, Raw: raw}
		}
	}
	return Interpretation{Kind: KindDegraded, Sections: emptySections(), Metadata: ParsedMetadata{}, Raw: raw}
}

func emptySections() Sections {
	return Sections{
		Hook:      Section{VisualCues: []string{}},
		Intro:     Section{VisualCues: []string{}},
		Explainer: Section{VisualCues: []string{}},
	}
}

// balancedObjects returns every top-level {...} span of text, largest first.
// Braces inside JSON strings do not count toward depth. Spans left open at
// the end of the text are ignored.
func balancedObjects(text string) []string {
	var spans []string
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			// Quotes in surrounding prose are not JSON strings.
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				spans = append(spans, text[start:i+1])
				start = -1
			}
		}
	}
	sort.SliceStable(spans, func(a, b int) bool { return len(spans[a]) > len(spans[b]) })
	return spans
}

// parseObject decodes text as one JSON object and validates the three
// sections. Missing or malformed optional fields are repaired rather than
// rejected.
func parseObject(text string) (Sections, ParsedMetadata, bool) {
	if text == "" || text[0] != '{' {
		return Sections{}, ParsedMetadata{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Sections{}, ParsedMetadata{}, false
	}
	hook, ok := parseSection(fields["hook"])
	if !ok {
		return Sections{}, ParsedMetadata{}, false
	}
	intro, ok := parseSection(fields["intro"])
	if !ok {
		return Sections{}, ParsedMetadata{}, false
	}
	explainer, ok := parseSection(fields["explainer"])
	if !ok {
		return Sections{}, ParsedMetadata{}, false
	}
	return Sections{Hook: hook, Intro: intro, Explainer: explainer}, parseMetadata(fields["metadata"]), true
}

func parseSection(raw json.RawMessage) (Section, bool) {
	if len(raw) == 0 {
		return Section{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Section{}, false
	}
	rawText := bytes.TrimSpace(fields["text"])
	if len(rawText) == 0 || bytes.Equal(rawText, []byte("null")) {
		return Section{}, false
	}
	var text string
	if err := json.Unmarshal(rawText, &text); err != nil {
		return Section{}, false
	}
	cues := stringList(fields["visual_cues"])
	if _, ok := fields["visual_cues"]; !ok {
		cues = stringList(fields["visual_suggestions"])
	}
	return Section{
		Text:            strings.TrimSpace(text),
		DurationSeconds: numberOrZero(fields["duration_seconds"]),
		VisualCues:      cues,
	}, true
}

func parseMetadata(raw json.RawMessage) ParsedMetadata {
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil || fields == nil {
		return ParsedMetadata{KeyTopics: []string{}, Hashtags: []string{}}
	}
	meta := ParsedMetadata{
		KeyTopics:           firstList(fields, "key_topics", "key_points"),
		Hashtags:            firstList(fields, "hashtags", "suggested_hashtags"),
		EngagementPotential: stringValue(fields["engagement_potential"]),
		TargetAudience:      stringValue(fields["target_audience"]),
	}
	for _, key := range []string{"total_duration_seconds", "total_duration"} {
		if value, ok := number(fields[key]); ok {
			meta.TotalDurationSeconds = value
			meta.HasTotal = true
			break
		}
	}
	return meta
}

func firstList(fields map[string]json.RawMessage, keys ...string) []string {
	for _, key := range keys {
		if raw, ok := fields[key]; ok {
			return stringList(raw)
		}
	}
	return []string{}
}

// stringList accepts an array of strings or a single string. Non-string
// array members are skipped. The result is never nil.
func stringList(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if single := stringValue(raw); single != "" {
			out = append(out, single)
		}
		return out
	}
	for _, item := range items {
		if value := stringValue(item); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func stringValue(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func numberOrZero(raw json.RawMessage) float64 {
	if value, ok := number(raw); ok {
		return value
	}
	return 0
}

// number reads a JSON number or a numeric string such as "15" or "15s".
// Negative values are rejected.
func number(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, f >= 0
	}
	s := strings.ToLower(stringValue(raw))
	for _, suffix := range []string{"seconds", "second", "secs", "sec", "s"} {
		if trimmed, ok := strings.CutSuffix(s, suffix); ok {
			s = strings.TrimSpace(trimmed)
			break
		}
	}
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
