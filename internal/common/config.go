package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	OpenAI      OpenAIConfig    `toml:"openai"`
	LLM         LLMConfig       `toml:"llm"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Credits     CreditsConfig   `toml:"credits"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// GeminiConfig holds settings for the Gemini backend family.
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // User must provide API key (or via KV store)
	Temperature float32 `toml:"temperature"` // Default temperature for completions
	MaxTokens   int     `toml:"max_tokens"`  // Default max output tokens
	Timeout     string  `toml:"timeout"`     // Per-call ceiling, e.g. "120s"
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between requests, e.g. "4s"
}

// ClaudeConfig holds settings for the Anthropic vendor of the chat family.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"` // Concrete API model id behind the claude-sonnet alias
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// OpenAIConfig holds settings for the OpenAI vendor of the chat family.
type OpenAIConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"` // Concrete API model id behind the gpt-4o alias
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// LLMConfig holds cross-provider generation settings.
type LLMConfig struct {
	DefaultModel string `toml:"default_model"` // Model alias used when a request omits one
	ChatTimeout  string `toml:"chat_timeout"`  // Per-call ceiling for the chat family, e.g. "60s"
	RateLimit    string `toml:"rate_limit"`    // Minimum interval between chat family requests
}

// SchedulerConfig holds settings for the recurring job scheduler.
type SchedulerConfig struct {
	Enabled          bool `toml:"enabled"`           // Start timers for active jobs at boot
	DefaultTimeframe int  `toml:"default_timeframe"` // Days of data gathered per scheduled run
	MaxJobsPerOrg    int  `toml:"max_jobs_per_org"`  // 0 = unlimited
}

// CreditsConfig holds credit-gating settings.
type CreditsConfig struct {
	InitialGrant int64 `toml:"initial_grant"` // Credits granted to a new organization
}

// NewDefaultConfig returns the default configuration
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/insight-engine",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Gemini: GeminiConfig{
			APIKey:      "", // User must provide API key (no fallback)
			Temperature: 0.7,
			MaxTokens:   8192,
			Timeout:     "120s", // Analytical ceiling for heavier Gemini calls
			RateLimit:   "4s",   // 15 RPM free-tier default
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-sonnet-4-20250514",
			Temperature: 0.7,
			MaxTokens:   8192,
		},
		OpenAI: OpenAIConfig{
			APIKey:      "",
			Model:       "gpt-4o",
			Temperature: 0.7,
			MaxTokens:   8192,
		},
		LLM: LLMConfig{
			DefaultModel: "gemini-flash",
			ChatTimeout:  "60s", // Interactive ceiling for the chat family
			RateLimit:    "1s",
		},
		Scheduler: SchedulerConfig{
			Enabled:          true,
			DefaultTimeframe: 30,
			MaxJobsPerOrg:    0,
		},
		Credits: CreditsConfig{
			InitialGrant: 100,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ENGINE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if path := os.Getenv("ENGINE_STORAGE_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if level := os.Getenv("ENGINE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.OpenAI.APIKey = key
	}
	if model := os.Getenv("ENGINE_DEFAULT_MODEL"); model != "" {
		config.LLM.DefaultModel = model
	}
	if grant := os.Getenv("ENGINE_CREDITS_INITIAL_GRANT"); grant != "" {
		if g, err := strconv.ParseInt(grant, 10, 64); err == nil {
			config.Credits.InitialGrant = g
		}
	}
	if enabled := os.Getenv("ENGINE_SCHEDULER_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = b
		}
	}
}

// ParseDurationOr parses a duration string, returning the fallback on empty
// or invalid input.
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
