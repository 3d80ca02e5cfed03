// Package config defines the finagent configuration schema and its YAML loader.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls the verbosity of the process logger.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a known level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a slog level; unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Defaults applied by ApplyDefaults.
const (
	DefaultModel          = "gpt-4o-mini"
	DefaultLLMTimeout     = 2 * time.Minute
	DefaultFMPTimeout     = 30 * time.Second
	DefaultMaxIterations  = 10
	DefaultToolTimeout    = 3 * time.Minute
	DefaultMaxConcurrency = 8
)

// UnlimitedConcurrency as registry.max_concurrency disables the execution semaphore.
const UnlimitedConcurrency = -1

// Environment variables consulted by ApplyEnv.
const (
	EnvOpenAIKey = "OPENAI_API_KEY"
	EnvFMPKey    = "FINANCIAL_MODELING_PREP_API_KEY"
)

// Config is the root configuration.
type Config struct {
	LogLevel LogLevel       `yaml:"log_level"`
	LLM      LLMConfig      `yaml:"llm"`
	FMP      FMPConfig      `yaml:"fmp"`
	Agent    AgentConfig    `yaml:"agent"`
	Registry RegistryConfig `yaml:"registry"`
}

// LLMConfig configures the OpenAI-compatible model provider.
type LLMConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// FMPConfig configures the Financial Modeling Prep client.
type FMPConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AgentConfig configures the dispatch loop.
type AgentConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	SystemPrompt  string  `yaml:"system_prompt"`
	Temperature   float64 `yaml:"temperature"`
}

// RegistryConfig configures tool execution.
type RegistryConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	// MaxConcurrency caps concurrent tool executions. 0 selects DefaultMaxConcurrency;
	// UnlimitedConcurrency removes the cap.
	MaxConcurrency int `yaml:"max_concurrency"`
}
