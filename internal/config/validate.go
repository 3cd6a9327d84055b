package config

import (
	"errors"
	"fmt"
	"strings"
)

var validStyles = map[string]struct{}{
	"engaging":     {},
	"educational":  {},
	"viral":        {},
	"professional": {},
}

// Validate ensures the configuration is usable. Credentials are checked
// separately by RequireCredentials so commands that never call the provider
// can run without them.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateScript(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

// RequireCredentials reports an error when the selected provider has no API key.
func (c *Config) RequireCredentials() error {
	if c.ActiveAPIKey() != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/threadcast/config.toml"
	}
	if c.LLM.Provider == ProviderGemini {
		return fmt.Errorf("gemini.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'threadcast config init')", defaultPath)
	}
	return fmt.Errorf("llm.api_key is required. Set OPENROUTER_API_KEY env var or edit %s (create with 'threadcast config init')", defaultPath)
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider: unsupported value %q (want %q or %q)", c.LLM.Provider, ProviderOpenRouter, ProviderGemini)
	}
	if err := ensurePositiveMap(map[string]int{
		"llm.timeout_seconds":     c.LLM.TimeoutSeconds,
		"llm.retry_max_attempts":  c.LLM.RetryMaxAttempts,
		"llm.retry_base_delay_ms": c.LLM.RetryBaseDelayMS,
		"llm.retry_max_delay_ms":  c.LLM.RetryMaxDelayMS,
	}); err != nil {
		return err
	}
	if c.LLM.RetryMaxDelayMS < c.LLM.RetryBaseDelayMS {
		return errors.New("llm.retry_max_delay_ms must be greater than or equal to llm.retry_base_delay_ms")
	}
	if !strings.HasPrefix(c.LLM.BaseURL, "http://") && !strings.HasPrefix(c.LLM.BaseURL, "https://") {
		return fmt.Errorf("llm.base_url must be an http(s) URL, got %q", c.LLM.BaseURL)
	}
	return nil
}

func (c *Config) validateScript() error {
	if _, ok := validStyles[c.Script.Style]; !ok {
		return fmt.Errorf("script.style: unsupported value %q", c.Script.Style)
	}
	if err := ensurePositiveMap(map[string]int{
		"script.duration_seconds": c.Script.DurationSeconds,
		"script.character_budget": c.Script.CharacterBudget,
	}); err != nil {
		return err
	}
	if c.Script.DurationTolerance < 0 || c.Script.DurationTolerance > 1 {
		return errors.New("script.duration_tolerance must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.MaxConcurrent <= 0 {
		return errors.New("batch.max_concurrent must be positive")
	}
	if strings.ContainsAny(c.Batch.InputFile, `/\`) || strings.ContainsAny(c.Batch.OutputFile, `/\`) {
		return errors.New("batch.input_file and batch.output_file must be bare file names")
	}
	if c.Batch.InputFile == c.Batch.OutputFile {
		return errors.New("batch.input_file and batch.output_file must differ")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
