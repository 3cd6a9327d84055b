package script

import (
	"threadcast/internal/prompt"
	"threadcast/internal/services"
	"threadcast/internal/thread"
)

// Section is one narrated part of the script.
type Section struct {
	Text            string   `json:"text"`
	DurationSeconds float64  `json:"duration_seconds"`
	VisualCues      []string `json:"visual_cues"`
}

// Metadata summarizes a generated script. The last five fields are filled in
// by the assembler, never by the provider.
type Metadata struct {
	TotalDurationSeconds float64  `json:"total_duration_seconds"`
	KeyTopics            []string `json:"key_topics"`
	Hashtags             []string `json:"hashtags"`
	EngagementPotential  string   `json:"engagement_potential"`
	TargetAudience       string   `json:"target_audience"`
	Style                string   `json:"style"`
	Model                string   `json:"model"`
	SourceThreadID       string   `json:"source_thread_id"`
	GeneratedAt          string   `json:"generated_at"`
	Warnings             []string `json:"warnings"`
}

// Document is the output written next to each input thread.
//
// RawText holds the provider response when Degraded is set. It survives
// encoding byte-for-byte only when the response is valid UTF-8; JSON encoding
// replaces invalid bytes with U+FFFD.
type Document struct {
	Hook      Section  `json:"hook"`
	Intro     Section  `json:"intro"`
	Explainer Section  `json:"explainer"`
	Metadata  Metadata `json:"metadata"`
	Degraded  bool     `json:"degraded"`
	RawText   *string  `json:"raw_text"`
}

// Request describes one generation. Build it with NewRequest and do not
// mutate it afterwards.
type Request struct {
	Thread                thread.Document
	Style                 prompt.Style
	TargetDurationSeconds int
	ModelID               string
	IncludeReplies        bool
}

// NewRequest validates the generation parameters. Unknown styles and
// non-positive durations are configuration errors; a thread without posts is
// an input error.
func NewRequest(doc thread.Document, style string, targetSeconds int, modelID string, includeReplies bool) (Request, error) {
	parsed, err := prompt.ParseStyle(style)
	if err != nil {
		return Request{}, err
	}
	if targetSeconds <= 0 {
		return Request{}, services.Wrap(services.ErrConfiguration, "script", "request", "target duration must be positive", nil)
	}
	if len(doc.Posts) == 0 {
		return Request{}, services.Wrap(services.ErrInput, "script", "request", "thread has no posts", nil)
	}
	return Request{
		Thread:                doc,
		Style:                 parsed,
		TargetDurationSeconds: targetSeconds,
		ModelID:               modelID,
		IncludeReplies:        includeReplies,
	}, nil
}
