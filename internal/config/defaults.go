package config

const (
	// ProviderOpenRouter selects the OpenRouter chat completions adapter.
	ProviderOpenRouter = "openrouter"
	// ProviderGemini selects the Google Gemini adapter.
	ProviderGemini = "gemini"
)

const (
	defaultProvider          = ProviderOpenRouter
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1"
	defaultLLMModel          = "deepseek/deepseek-r1-0528:free"
	defaultLLMReferer        = "https://github.com/threadcast/threadcast"
	defaultLLMTitle          = "threadcast"
	defaultLLMTimeout        = 60
	defaultRetryMaxAttempts  = 5
	defaultRetryBaseDelayMS  = 1000
	defaultRetryMaxDelayMS   = 10000
	defaultGeminiModel       = "gemini-2.5-flash"
	defaultStyle             = "engaging"
	defaultDurationSeconds   = 60
	defaultDurationTolerance = 0.20
	defaultCharacterBudget   = 8000
	defaultMaxConcurrent     = 3
	defaultInputFile         = "thread_text.json"
	defaultOutputFile        = "tiktok_script.json"
	defaultStateDir          = "~/.local/share/threadcast"
	defaultLogDir            = "~/.local/share/threadcast/logs"
	defaultEnvFile           = ".env"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultNotifyTimeout     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		LLM: LLM{
			Provider:         defaultProvider,
			BaseURL:          defaultLLMBaseURL,
			Model:            defaultLLMModel,
			Referer:          defaultLLMReferer,
			Title:            defaultLLMTitle,
			TimeoutSeconds:   defaultLLMTimeout,
			RetryMaxAttempts: defaultRetryMaxAttempts,
			RetryBaseDelayMS: defaultRetryBaseDelayMS,
			RetryMaxDelayMS:  defaultRetryMaxDelayMS,
		},
		Gemini: Gemini{
			Model: defaultGeminiModel,
		},
		Script: Script{
			Style:             defaultStyle,
			DurationSeconds:   defaultDurationSeconds,
			IncludeReplies:    true,
			DurationTolerance: defaultDurationTolerance,
			CharacterBudget:   defaultCharacterBudget,
		},
		Batch: Batch{
			MaxConcurrent: defaultMaxConcurrent,
			InputFile:     defaultInputFile,
			OutputFile:    defaultOutputFile,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			EnvFile:  defaultEnvFile,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			BatchCompleted: true,
			Errors:         true,
		},
	}
}
