package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and applies defaults.
// API keys may still be empty; call ApplyEnv and then Validate.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and applies defaults.
// Unknown keys are rejected. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero values with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = DefaultLLMTimeout
	}
	if cfg.FMP.Timeout == 0 {
		cfg.FMP.Timeout = DefaultFMPTimeout
	}
	if cfg.Agent.MaxIterations == 0 {
		cfg.Agent.MaxIterations = DefaultMaxIterations
	}
	if cfg.Registry.DefaultTimeout == 0 {
		cfg.Registry.DefaultTimeout = DefaultToolTimeout
	}
	if cfg.Registry.MaxConcurrency == 0 {
		cfg.Registry.MaxConcurrency = DefaultMaxConcurrency
	}
}

// ApplyEnv fills empty API keys from the environment through lookup
// (os.LookupEnv in production).
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if cfg.LLM.APIKey == "" {
		if v, ok := lookup(EnvOpenAIKey); ok {
			cfg.LLM.APIKey = v
		}
	}
	if cfg.FMP.APIKey == "" {
		if v, ok := lookup(EnvFMPKey); ok {
			cfg.FMP.APIKey = v
		}
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.LLM.APIKey == "" {
		errs = append(errs, fmt.Errorf("llm.api_key is required (or set %s)", EnvOpenAIKey))
	}
	if cfg.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if err := validateURL("llm.base_url", cfg.LLM.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if cfg.LLM.Timeout < 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must be >= 0, got %s", cfg.LLM.Timeout))
	}

	if cfg.FMP.APIKey == "" {
		errs = append(errs, fmt.Errorf("fmp.api_key is required (or set %s)", EnvFMPKey))
	}
	if err := validateURL("fmp.base_url", cfg.FMP.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if cfg.FMP.Timeout < 0 {
		errs = append(errs, fmt.Errorf("fmp.timeout must be >= 0, got %s", cfg.FMP.Timeout))
	}

	if cfg.Agent.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be >= 1, got %d", cfg.Agent.MaxIterations))
	}
	if cfg.Agent.Temperature < 0 || cfg.Agent.Temperature > 2 {
		errs = append(errs, fmt.Errorf("agent.temperature must be in [0, 2], got %g", cfg.Agent.Temperature))
	}

	if cfg.Registry.DefaultTimeout < 0 {
		errs = append(errs, fmt.Errorf("registry.default_timeout must be >= 0, got %s", cfg.Registry.DefaultTimeout))
	}
	if cfg.Registry.MaxConcurrency < UnlimitedConcurrency {
		errs = append(errs, fmt.Errorf("registry.max_concurrency must be >= %d, got %d", UnlimitedConcurrency, cfg.Registry.MaxConcurrency))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: %w", errors.Join(errs...))
}

func validateURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q is not an absolute URL", field, raw)
	}
	return nil
}
