package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/genai"

	"threadcast/internal/services"
)

func geminiResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestGeminiCompletePassesInstructions(t *testing.T) {
	var gotModel, gotSystem string
	client, err := NewGeminiClient(context.Background(), GeminiConfig{Model: "gemini-test"},
		withGenerateFunc(func(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotModel = model
			if cfg != nil && cfg.SystemInstruction != nil && len(cfg.SystemInstruction.Parts) > 0 {
				gotSystem = cfg.SystemInstruction.Parts[0].Text
			}
			if len(contents) != 1 || contents[0].Parts[0].Text != "user instruction" {
				t.Errorf("unexpected contents: %+v", contents)
			}
			return geminiResponse(`{"hook":`), nil
		}),
	)
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	content, err := client.Complete(context.Background(), testPayload, "")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != `{"hook":` {
		t.Fatalf("unexpected content %q", content)
	}
	if gotModel != "gemini-test" || gotSystem != "system instruction" {
		t.Fatalf("unexpected request model=%q system=%q", gotModel, gotSystem)
	}
}

func TestGeminiRetriesResourceExhausted(t *testing.T) {
	calls := 0
	clock := &fakeClock{}
	client, err := NewGeminiClient(context.Background(), GeminiConfig{Model: "gemini-test"},
		WithGeminiClock(clock),
		withGenerateFunc(func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("Error 429, Message: quota exceeded, Status: RESOURCE_EXHAUSTED")
			}
			return geminiResponse("done"), nil
		}),
	)
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	content, err := client.Complete(context.Background(), testPayload, "m")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != "done" || calls != 3 {
		t.Fatalf("unexpected result %q after %d calls", content, calls)
	}
	if len(clock.slept) != 2 || clock.slept[0] != time.Second {
		t.Fatalf("unexpected sleeps %v", clock.slept)
	}
}

func TestGeminiPermanentFailure(t *testing.T) {
	calls := 0
	client, err := NewGeminiClient(context.Background(), GeminiConfig{Model: "gemini-test"},
		WithGeminiClock(&fakeClock{}),
		withGenerateFunc(func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			calls++
			return nil, errors.New("Error 400, Message: API key not valid, Status: INVALID_ARGUMENT")
		}),
	)
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	_, err = client.Complete(context.Background(), testPayload, "")
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestGeminiEmptyCandidateIsRetried(t *testing.T) {
	calls := 0
	client, err := NewGeminiClient(context.Background(), GeminiConfig{Model: "gemini-test"},
		WithGeminiClock(&fakeClock{}),
		WithGeminiRetryPolicy(RetryPolicy{MaxAttempts: 2}),
		withGenerateFunc(func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			calls++
			return &genai.GenerateContentResponse{}, nil
		}),
	)
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	_, err = client.Complete(context.Background(), testPayload, "")
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Attempts != 2 {
		t.Fatalf("expected provider error after 2 attempts, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{Model: "gemini-test"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestGeminiHealthCheck(t *testing.T) {
	reply := `{"ok":true}`
	client, err := NewGeminiClient(context.Background(), GeminiConfig{Model: "gemini-test"},
		withGenerateFunc(func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return geminiResponse(reply), nil
		}),
	)
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	reply = `{"ok":false}`
	if err := client.HealthCheck(context.Background()); !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestIsGeminiTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, true},
		{"server error", genai.APIError{Code: 503, Message: "overloaded"}, true},
		{"wrapped server error", fmt.Errorf("generate: %w", genai.APIError{Code: 500}), true},
		{"bad request mentioning numbers", genai.APIError{Code: 400, Message: "prompt exceeds 5000 tokens; retry after 500ms", Status: "INVALID_ARGUMENT"}, false},
		{"forbidden", genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}, false},
		{"status only", genai.APIError{Status: "UNAVAILABLE"}, true},
		{"text fallback", errors.New("Error 503, Message: try later"), true},
		{"text without status", errors.New("request used 5000 tokens"), false},
		{"canceled", context.Canceled, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isGeminiTransient(tt.err); got != tt.want {
				t.Fatalf("isGeminiTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
