package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.loadEnvFile(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeGemini()
	c.normalizeScript()
	c.normalizeBatch()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.EnvFile, err = expandPath(strings.TrimSpace(c.Paths.EnvFile)); err != nil {
		return fmt.Errorf("paths.env_file: %w", err)
	}
	return nil
}

// loadEnvFile populates the process environment from a dotenv file. Variables
// already present in the environment are left untouched.
func (c *Config) loadEnvFile() error {
	if c.Paths.EnvFile == "" {
		return nil
	}
	if _, err := os.Stat(c.Paths.EnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("paths.env_file: %w", err)
	}
	if err := godotenv.Load(c.Paths.EnvFile); err != nil {
		return fmt.Errorf("load env file %s: %w", c.Paths.EnvFile, err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.LLM.APIKey = value
	}
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultProvider
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
	if c.LLM.RetryMaxAttempts == 0 {
		c.LLM.RetryMaxAttempts = defaultRetryMaxAttempts
	}
	if c.LLM.RetryBaseDelayMS == 0 {
		c.LLM.RetryBaseDelayMS = defaultRetryBaseDelayMS
	}
	if c.LLM.RetryMaxDelayMS == 0 {
		c.LLM.RetryMaxDelayMS = defaultRetryMaxDelayMS
	}
}

func (c *Config) normalizeGemini() {
	if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Gemini.APIKey = value
	}
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
}

func (c *Config) normalizeScript() {
	c.Script.Style = strings.ToLower(strings.TrimSpace(c.Script.Style))
	if c.Script.Style == "" {
		c.Script.Style = defaultStyle
	}
	if c.Script.DurationSeconds == 0 {
		c.Script.DurationSeconds = defaultDurationSeconds
	}
	if c.Script.CharacterBudget == 0 {
		c.Script.CharacterBudget = defaultCharacterBudget
	}
}

func (c *Config) normalizeBatch() {
	if c.Batch.MaxConcurrent == 0 {
		c.Batch.MaxConcurrent = defaultMaxConcurrent
	}
	c.Batch.InputFile = strings.TrimSpace(c.Batch.InputFile)
	if c.Batch.InputFile == "" {
		c.Batch.InputFile = defaultInputFile
	}
	c.Batch.OutputFile = strings.TrimSpace(c.Batch.OutputFile)
	if c.Batch.OutputFile == "" {
		c.Batch.OutputFile = defaultOutputFile
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("THREADCAST_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}
