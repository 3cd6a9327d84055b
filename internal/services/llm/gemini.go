package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"threadcast/internal/prompt"
	"threadcast/internal/services"
)

const geminiOp = "gemini complete"

// GeminiConfig captures the settings required to talk to the Gemini API.
type GeminiConfig struct {
	APIKey         string
	Model          string
	TimeoutSeconds int
}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiClient adapts Google's Gemini API to CompletionClient.
type GeminiClient struct {
	cfg      GeminiConfig
	timeout  time.Duration
	policy   RetryPolicy
	clock    Clock
	generate generateFunc
}

var _ CompletionClient = (*GeminiClient)(nil)

// GeminiOption customizes the Gemini client.
type GeminiOption func(*GeminiClient)

// WithGeminiRetryPolicy overrides the default retry schedule.
func WithGeminiRetryPolicy(policy RetryPolicy) GeminiOption {
	return func(c *GeminiClient) {
		c.policy = policy
	}
}

// WithGeminiClock overrides how retry waits are performed.
func WithGeminiClock(clock Clock) GeminiOption {
	return func(c *GeminiClient) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func withGenerateFunc(fn generateFunc) GeminiOption {
	return func(c *GeminiClient) {
		c.generate = fn
	}
}

// NewGeminiClient constructs a Gemini-backed completion client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, opts ...GeminiOption) (*GeminiClient, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	policy := DefaultRetryPolicy()
	policy.Retryable = isGeminiTransient
	client := &GeminiClient{
		cfg:     cfg,
		timeout: timeout,
		policy:  policy,
		clock:   RealClock{},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.policy.Retryable == nil {
		client.policy.Retryable = isGeminiTransient
	}
	if client.generate != nil {
		return client, nil
	}
	if cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gemini", "new client", "api key required", nil)
	}
	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gemini", "new client", "create client", err)
	}
	client.generate = sdk.Models.GenerateContent
	return client, nil
}

// Complete sends the payload to Gemini and returns the concatenated text parts
// of the first candidate.
func (c *GeminiClient) Complete(ctx context.Context, payload prompt.Payload, modelID string) (string, error) {
	system := strings.TrimSpace(payload.System)
	user := strings.TrimSpace(payload.User)
	if system == "" || user == "" {
		return "", services.Wrap(services.ErrConfiguration, "gemini", "complete", "system and user prompts required", nil)
	}
	model := strings.TrimSpace(modelID)
	if model == "" {
		model = c.cfg.Model
	}
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		ResponseMIMEType:  "application/json",
	}

	var content string
	attempts, err := c.policy.Run(ctx, c.clock, func(ctx context.Context, _ int) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		result, err := c.generate(callCtx, model, genai.Text(user), genCfg)
		if err != nil {
			if callCtx.Err() != nil && ctx.Err() == nil {
				return &transientError{err: fmt.Errorf("gemini request: timeout after %s: %w", c.timeout, err)}
			}
			return err
		}
		text := candidateText(result)
		if text == "" {
			return &emptyContentError{Op: geminiOp, FinishReason: finishReason(result)}
		}
		content = text
		return nil
	})
	if err != nil {
		return "", newProviderError(geminiOp, attempts, err)
	}
	return content, nil
}

// HealthCheck asks the configured model for a fixed JSON reply.
func (c *GeminiClient) HealthCheck(ctx context.Context) error {
	content, err := c.Complete(ctx, prompt.Payload{
		System: "You must respond with JSON only.",
		User:   "Respond with " + defaultHealthResponse,
	}, "")
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return newProviderError(geminiOp, 1, fmt.Errorf("parse payload: %w", err))
	}
	if !parsed.OK {
		return newProviderError(geminiOp, 1, errors.New("unexpected response"))
	}
	return nil
}

func candidateText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func finishReason(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	return string(result.Candidates[0].FinishReason)
}

var (
	geminiTransientStatuses = map[string]bool{
		"RESOURCE_EXHAUSTED": true,
		"UNAVAILABLE":        true,
		"INTERNAL":           true,
		"DEADLINE_EXCEEDED":  true,
	}
	// Fallback markers for errors that did not come back as genai.APIError.
	geminiTransientMarkers = []string{"Error 408", "Error 429", "Error 500", "Error 502", "Error 503", "Error 504", "RESOURCE_EXHAUSTED", "UNAVAILABLE", "DEADLINE_EXCEEDED"}
)

// isGeminiTransient extends IsTransient with the SDK's APIError status code
// and status name. Text markers apply only to errors of other types.
func isGeminiTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 408, apiErr.Code == 429, apiErr.Code >= 500:
			return true
		case apiErr.Code > 0:
			return false
		}
		return geminiTransientStatuses[apiErr.Status]
	}
	if IsTransient(err) {
		return true
	}
	msg := err.Error()
	for _, marker := range geminiTransientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
