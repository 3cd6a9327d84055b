package script

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"threadcast/internal/prompt"
	"threadcast/internal/thread"
)

func testRequest(t *testing.T, target int) Request {
	t.Helper()
	doc := thread.Document{ID: "t-1", Posts: []thread.Post{{ID: "t-1", Author: "a", Text: "hello"}}}
	req, err := NewRequest(doc, "educational", target, "test/model", true)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 3600))
}

func TestAssembleComputesTotalFromSections(t *testing.T) {
	in := Interpretation{
		Kind: KindStrict,
		Sections: Sections{
			Hook:      Section{Text: "h", DurationSeconds: 15},
			Intro:     Section{Text: "i", DurationSeconds: 15},
			Explainer: Section{Text: "e", DurationSeconds: 28},
		},
	}
	doc := Assemble(in, testRequest(t, 60), AssembleOptions{Now: fixedNow})

	if doc.Metadata.TotalDurationSeconds != 58 {
		t.Fatalf("total = %v, want 58", doc.Metadata.TotalDurationSeconds)
	}
	if len(doc.Metadata.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", doc.Metadata.Warnings)
	}
	if doc.Degraded || doc.RawText != nil {
		t.Fatal("strict document must not be degraded")
	}
	if doc.Hook.VisualCues == nil || doc.Metadata.Hashtags == nil || doc.Metadata.KeyTopics == nil {
		t.Fatal("sets must be empty slices, not nil")
	}
	m := doc.Metadata
	if m.Style != string(prompt.StyleEducational) || m.Model != "test/model" || m.SourceThreadID != "t-1" {
		t.Fatalf("provenance fields missing: %+v", m)
	}
	if m.GeneratedAt != "2025-03-04T04:06:07Z" {
		t.Fatalf("generated_at = %q", m.GeneratedAt)
	}
	if m.EngagementPotential != "unknown" || m.TargetAudience != "general" {
		t.Fatalf("defaults not applied: %+v", m)
	}
}

func TestAssembleWarnsOutsideTolerance(t *testing.T) {
	in := Interpretation{
		Kind: KindStrict,
		Sections: Sections{
			Hook:      Section{DurationSeconds: 5},
			Intro:     Section{DurationSeconds: 5},
			Explainer: Section{DurationSeconds: 10},
		},
	}
	doc := Assemble(in, testRequest(t, 60), AssembleOptions{Now: fixedNow})
	if len(doc.Metadata.Warnings) != 1 || !strings.Contains(doc.Metadata.Warnings[0], "deviates from target 60s") {
		t.Fatalf("warnings = %v", doc.Metadata.Warnings)
	}

	// A looser tolerance accepts the same document.
	doc = Assemble(in, testRequest(t, 60), AssembleOptions{Tolerance: 0.8, Now: fixedNow})
	if len(doc.Metadata.Warnings) != 0 {
		t.Fatalf("warnings with 80%% tolerance = %v", doc.Metadata.Warnings)
	}
}

func TestAssemblePrefersDeclaredTotal(t *testing.T) {
	in := Interpretation{
		Kind: KindStrict,
		Sections: Sections{
			Hook:      Section{DurationSeconds: 10},
			Intro:     Section{DurationSeconds: 10},
			Explainer: Section{DurationSeconds: 10},
		},
		Metadata: ParsedMetadata{TotalDurationSeconds: 60, HasTotal: true},
	}
	doc := Assemble(in, testRequest(t, 60), AssembleOptions{Now: fixedNow})
	if doc.Metadata.TotalDurationSeconds != 60 {
		t.Fatalf("total = %v, want declared 60", doc.Metadata.TotalDurationSeconds)
	}
	if len(doc.Metadata.Warnings) != 1 || !strings.Contains(doc.Metadata.Warnings[0], "does not match section sum") {
		t.Fatalf("warnings = %v", doc.Metadata.Warnings)
	}
}

func TestAssembleNormalizesMetadata(t *testing.T) {
	in := Interpretation{
		Kind: KindStrict,
		Sections: Sections{
			Hook:      Section{Text: " h ", DurationSeconds: 15, VisualCues: []string{"zoom", "zoom", " "}},
			Intro:     Section{DurationSeconds: 15},
			Explainer: Section{DurationSeconds: 30},
		},
		Metadata: ParsedMetadata{
			Hashtags:            []string{"AI", "#ai", "#Tech News", "#"},
			KeyTopics:           []string{"Go", "go", " Rust "},
			EngagementPotential: "HIGH",
			TargetAudience:      "engineers",
		},
	}
	doc := Assemble(in, testRequest(t, 60), AssembleOptions{Now: fixedNow})

	if want := []string{"#AI", "#TechNews"}; !reflect.DeepEqual(doc.Metadata.Hashtags, want) {
		t.Fatalf("hashtags = %v, want %v", doc.Metadata.Hashtags, want)
	}
	if want := []string{"Go", "Rust"}; !reflect.DeepEqual(doc.Metadata.KeyTopics, want) {
		t.Fatalf("topics = %v, want %v", doc.Metadata.KeyTopics, want)
	}
	if doc.Hook.Text != "h" || !reflect.DeepEqual(doc.Hook.VisualCues, []string{"zoom"}) {
		t.Fatalf("hook = %+v", doc.Hook)
	}
	if doc.Metadata.EngagementPotential != "high" || doc.Metadata.TargetAudience != "engineers" {
		t.Fatalf("metadata = %+v", doc.Metadata)
	}
}

func TestAssembleDegradedKeepsRawText(t *testing.T) {
	raw := "no json here"
	doc := Assemble(Interpret(raw), testRequest(t, 60), AssembleOptions{Now: fixedNow})

	if !doc.Degraded {
		t.Fatal("expected degraded document")
	}
	if doc.RawText == nil || *doc.RawText != raw {
		t.Fatalf("raw_text = %v", doc.RawText)
	}
	if len(doc.Metadata.Warnings) != 1 || !strings.Contains(doc.Metadata.Warnings[0], "could not be parsed") {
		t.Fatalf("warnings = %v", doc.Metadata.Warnings)
	}
	if doc.Hook.VisualCues == nil || doc.Intro.VisualCues == nil || doc.Explainer.VisualCues == nil {
		t.Fatal("degraded sections must be present")
	}
}

func TestNewRequestValidation(t *testing.T) {
	doc := thread.Document{Posts: []thread.Post{{Text: "x"}}}
	if _, err := NewRequest(doc, "sarcastic", 60, "", true); err == nil {
		t.Fatal("expected unknown style error")
	}
	if _, err := NewRequest(doc, "viral", 0, "", true); err == nil {
		t.Fatal("expected duration error")
	}
	if _, err := NewRequest(thread.Document{}, "viral", 60, "", true); err == nil {
		t.Fatal("expected empty thread error")
	}
	req, err := NewRequest(doc, " Viral ", 45, "m", false)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if req.Style != prompt.StyleViral || req.TargetDurationSeconds != 45 || req.IncludeReplies {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDegradedRawTextEncoding(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "valid utf-8 is verbatim", raw: "plain \"quoted\" <tag> café \u2028 end", want: "plain \"quoted\" <tag> café \u2028 end"},
		{name: "invalid bytes become replacement runes", raw: "\xff\xfe{", want: "\ufffd\ufffd{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Assemble(Interpret(tt.raw), testRequest(t, 60), AssembleOptions{Now: fixedNow})
			data, err := json.Marshal(doc)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var decoded Document
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if decoded.RawText == nil || *decoded.RawText != tt.want {
				t.Fatalf("raw_text = %v, want %q", decoded.RawText, tt.want)
			}
		})
	}
}
