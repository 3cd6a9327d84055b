package testsupport

import (
	"context"
	"fmt"
	"sync"

	"threadcast/internal/prompt"
)

// CompletionFunc answers one Complete call. call counts from 1.
type CompletionFunc func(ctx context.Context, call int, payload prompt.Payload, modelID string) (string, error)

// FakeCompletion is a CompletionClient that records calls and delegates the
// answer to Respond. A nil Respond returns ValidCompletion(15, 15, 30).
type FakeCompletion struct {
	Respond CompletionFunc

	mu       sync.Mutex
	calls    int
	payloads []prompt.Payload
	models   []string
}

// Complete implements llm.CompletionClient.
func (f *FakeCompletion) Complete(ctx context.Context, payload prompt.Payload, modelID string) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.payloads = append(f.payloads, payload)
	f.models = append(f.models, modelID)
	f.mu.Unlock()

	if f.Respond == nil {
		return ValidCompletion(15, 15, 30), nil
	}
	return f.Respond(ctx, call, payload, modelID)
}

// Calls reports how many completions were requested.
func (f *FakeCompletion) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Payloads returns a copy of every payload received.
func (f *FakeCompletion) Payloads() []prompt.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]prompt.Payload(nil), f.payloads...)
}

// Models returns a copy of every model id received.
func (f *FakeCompletion) Models() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.models...)
}

// ValidCompletion renders a well-formed provider response with the given
// section durations.
func ValidCompletion(hook, intro, explainer float64) string {
	return fmt.Sprintf(`{
  "hook": {"text": "Stop scrolling: this changes everything", "duration_seconds": %g, "visual_cues": ["close-up"]},
  "intro": {"text": "Here is what happened", "duration_seconds": %g, "visual_cues": ["screenshot"]},
  "explainer": {"text": "The detailed breakdown", "duration_seconds": %g, "visual_cues": ["diagram", "b-roll"]},
  "metadata": {
    "total_duration_seconds": %g,
    "key_topics": ["shipping", "software"],
    "hashtags": ["#Go", "dev", "#go"],
    "engagement_potential": "high",
    "target_audience": "developers"
  }
}`, hook, intro, explainer, hook+intro+explainer)
}
