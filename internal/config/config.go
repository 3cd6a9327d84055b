package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// LLM contains completion provider connection settings.
type LLM struct {
	Provider         string `toml:"provider"`
	APIKey           string `toml:"api_key"`
	BaseURL          string `toml:"base_url"`
	Model            string `toml:"model"`
	Referer          string `toml:"referer"`
	Title            string `toml:"title"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	RetryMaxAttempts int    `toml:"retry_max_attempts"`
	RetryBaseDelayMS int    `toml:"retry_base_delay_ms"`
	RetryMaxDelayMS  int    `toml:"retry_max_delay_ms"`
}

// Gemini contains settings for the Google Gemini provider. Only read when
// llm.provider is "gemini".
type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Script contains defaults applied to every generated script.
type Script struct {
	Style             string  `toml:"style"`
	DurationSeconds   int     `toml:"duration_seconds"`
	IncludeReplies    bool    `toml:"include_replies"`
	DurationTolerance float64 `toml:"duration_tolerance"`
	CharacterBudget   int     `toml:"character_budget"`
}

// Batch contains orchestrator settings.
type Batch struct {
	MaxConcurrent int    `toml:"max_concurrent"`
	InputFile     string `toml:"input_file"`
	OutputFile    string `toml:"output_file"`
}

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	EnvFile  string `toml:"env_file"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	BatchCompleted bool   `toml:"batch_completed"`
	Errors         bool   `toml:"errors"`
}

// Config encapsulates all configuration values for threadcast.
//
// Configuration sections by subsystem:
//   - LLM: completion provider selection, credentials, timeout and retry schedule
//   - Gemini: credentials and model for the Gemini provider
//   - Script: default style, duration and extraction budget
//   - Batch: worker pool size and input/output file names
//   - Paths: state (run ledger) and log directories, .env location
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
type Config struct {
	LLM           LLM           `toml:"llm"`
	Gemini        Gemini        `toml:"gemini"`
	Script        Script        `toml:"script"`
	Batch         Batch         `toml:"batch"`
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/threadcast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and credentials resolved from the environment.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("threadcast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RunLedgerPath returns the location of the SQLite run ledger.
func (c *Config) RunLedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "runs.db")
}

// RequestTimeout returns the per-call completion timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// ActiveModel returns the model identifier for the selected provider.
func (c *Config) ActiveModel() string {
	if c.LLM.Provider == ProviderGemini {
		return c.Gemini.Model
	}
	return c.LLM.Model
}

// ActiveAPIKey returns the credential for the selected provider.
func (c *Config) ActiveAPIKey() string {
	if c.LLM.Provider == ProviderGemini {
		return c.Gemini.APIKey
	}
	return c.LLM.APIKey
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML. API keys are masked.
func (c *Config) Encode() ([]byte, error) {
	clone := *c
	clone.LLM.APIKey = maskSecret(clone.LLM.APIKey)
	clone.Gemini.APIKey = maskSecret(clone.Gemini.APIKey)
	data, err := toml.Marshal(clone)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func maskSecret(value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return ""
	case len(value) <= 8:
		return "****"
	default:
		return value[:4] + "****" + value[len(value)-4:]
	}
}
