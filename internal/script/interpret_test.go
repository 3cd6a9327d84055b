package script

import (
	"strings"
	"testing"
)

const strictObject = `{"hook":{"text":"X","duration_seconds":10,"visual_cues":[]},` +
	`"intro":{"text":"Y","duration_seconds":15,"visual_cues":["a"]},` +
	`"explainer":{"text":"Z","duration_seconds":35,"visual_cues":["b"]}}`

func TestInterpretStrict(t *testing.T) {
	got := Interpret(strictObject)
	if got.Kind != KindStrict {
		t.Fatalf("kind = %v, want strict", got.Kind)
	}
	if got.Sections.Hook.Text != "X" || got.Sections.Explainer.DurationSeconds != 35 {
		t.Fatalf("unexpected sections: %+v", got.Sections)
	}
	if got.Metadata.HasTotal {
		t.Fatal("absent total must not be reported as declared")
	}
}

func TestInterpretStrictStripsCodeFence(t *testing.T) {
	got := Interpret("```json\n" + strictObject + "\n```")
	if got.Kind != KindStrict {
		t.Fatalf("kind = %v, want strict", got.Kind)
	}
}

func TestInterpretExtractsFromProse(t *testing.T) {
	raw := "Sure! Here you go: " + strictObject + " Hope that helps!"
	got := Interpret(raw)
	if got.Kind != KindExtracted {
		t.Fatalf("kind = %v, want extracted", got.Kind)
	}
	if got.Degraded() {
		t.Fatal("extracted result must not be degraded")
	}
	if got.Sections.Intro.Text != "Y" {
		t.Fatalf("unexpected intro: %+v", got.Sections.Intro)
	}
}

func TestInterpretIgnoresBracesInsideStrings(t *testing.T) {
	raw := `Result: {"hook":{"text":"use {curly} braces }","duration_seconds":5},` +
		`"intro":{"text":"quote \" and } inside","duration_seconds":5},` +
		`"explainer":{"text":"done","duration_seconds":5}} trailing }`
	got := Interpret(raw)
	if got.Kind != KindExtracted {
		t.Fatalf("kind = %v, want extracted", got.Kind)
	}
	if got.Sections.Hook.Text != "use {curly} braces }" {
		t.Fatalf("hook text = %q", got.Sections.Hook.Text)
	}
	if got.Sections.Intro.Text != `quote " and } inside` {
		t.Fatalf("intro text = %q", got.Sections.Intro.Text)
	}
}

func TestInterpretTriesLaterObjects(t *testing.T) {
	raw := `Example shape: {"note": "not a script"} and the real one: ` + strictObject
	got := Interpret(raw)
	if got.Kind != KindExtracted {
		t.Fatalf("kind = %v, want extracted", got.Kind)
	}
}

func TestInterpretDegraded(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "prose", raw: "I could not produce a script for this thread, sorry."},
		{name: "empty", raw: ""},
		{name: "unbalanced", raw: `{"hook": {"text": "x"`},
		{name: "missing sections", raw: `{"hook": {"text": "x"}}`},
		{name: "text not string", raw: `{"hook":{"text":1},"intro":{"text":"a"},"explainer":{"text":"b"}}`},
		{name: "array", raw: `[1, 2, 3]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpret(tt.raw)
			if !got.Degraded() {
				t.Fatalf("expected degraded, got %v", got.Kind)
			}
			if got.Raw != tt.raw {
				t.Fatalf("raw not preserved: %q", got.Raw)
			}
			if got.Sections.Hook.VisualCues == nil || got.Sections.Explainer.VisualCues == nil {
				t.Fatal("degraded sections must carry empty cue lists")
			}
		})
	}
}

func TestInterpretRepairsLegacyFields(t *testing.T) {
	raw := `{
		"hook": {"text": "h", "duration_seconds": "15s", "visual_suggestions": ["zoom"]},
		"intro": {"text": "i", "duration_seconds": "abc"},
		"explainer": {"text": "e", "duration_seconds": "30", "visual_cues": "single cue", "extra": true},
		"metadata": {"total_duration": 45, "key_points": ["p1"], "suggested_hashtags": ["#x"]}
	}`
	got := Interpret(raw)
	if got.Kind != KindStrict {
		t.Fatalf("kind = %v, want strict", got.Kind)
	}
	s := got.Sections
	if s.Hook.DurationSeconds != 15 || len(s.Hook.VisualCues) != 1 || s.Hook.VisualCues[0] != "zoom" {
		t.Fatalf("hook not repaired: %+v", s.Hook)
	}
	if s.Intro.DurationSeconds != 0 || s.Intro.VisualCues == nil {
		t.Fatalf("intro not repaired: %+v", s.Intro)
	}
	if s.Explainer.DurationSeconds != 30 || len(s.Explainer.VisualCues) != 1 {
		t.Fatalf("explainer not repaired: %+v", s.Explainer)
	}
	m := got.Metadata
	if !m.HasTotal || m.TotalDurationSeconds != 45 {
		t.Fatalf("legacy total not read: %+v", m)
	}
	if len(m.KeyTopics) != 1 || m.KeyTopics[0] != "p1" || len(m.Hashtags) != 1 {
		t.Fatalf("legacy lists not read: %+v", m)
	}
}

func TestInterpretNeverPanics(t *testing.T) {
	inputs := []string{
		"{", "}", "{{{{", "}}}}{", `{"a":"\`, strings.Repeat("{", 5000),
		`{"hook":null,"intro":null,"explainer":null}`,
		`{"hook":{"text":"a","duration_seconds":-5},"intro":{"text":"b"},"explainer":{"text":"c"},"metadata":"bad"}`,
	}
	for _, in := range inputs {
		_ = Interpret(in)
	}
}

func TestInterpretRejectsNegativeDurations(t *testing.T) {
	got := Interpret(`{"hook":{"text":"a","duration_seconds":-5},"intro":{"text":"b"},"explainer":{"text":"c"}}`)
	if got.Sections.Hook.DurationSeconds != 0 {
		t.Fatalf("negative duration kept: %v", got.Sections.Hook.DurationSeconds)
	}
}

func TestInterpretRejectsNullSectionText(t *testing.T) {
	nullHook := `{"hook":{"text":null,"duration_seconds":10},` +
		`"intro":{"text":"Y","duration_seconds":15},` +
		`"explainer":{"text":"Z","duration_seconds":35}}`

	if got := Interpret(nullHook); got.Kind != KindDegraded {
		t.Fatalf("kind = %v, want degraded", got.Kind)
	}

	got := Interpret(nullHook + "\nCorrected: " + strictObject)
	if got.Kind != KindExtracted {
		t.Fatalf("kind = %v, want extracted", got.Kind)
	}
	if got.Sections.Hook.Text != "X" {
		t.Fatalf("hook text = %q, want the valid object's", got.Sections.Hook.Text)
	}
}
