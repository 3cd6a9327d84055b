// Package llm provides the completion provider adapters used by the script
// pipeline.
//
// # Entry Points
//
// CompletionClient: the contract the pipeline depends on.
// NewClient: OpenRouter chat completions adapter (default provider).
// NewGeminiClient: Google Gemini adapter built on google.golang.org/genai.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// Both adapters run each call through a RetryPolicy: HTTP 408/429/5xx,
// network timeouts, connection failures and empty-content responses are
// retried with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). A Retry-After header replaces the computed delay. Context
// cancellation aborts retries immediately. Permanent failures and exhausted
// retries surface as *ProviderError, which matches services.ErrProvider.
package llm
