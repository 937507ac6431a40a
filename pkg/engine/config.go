package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted when the YAML config leaves a provider
// field blank. A .env file loaded at startup feeds these.
const (
	EnvAPIKey      = "LLM_OPENAI_API_KEY"
	EnvAPIBase     = "LLM_OPENAI_API_BASE"
	EnvModel       = "GENERATION_MODEL"
	EnvModelKwargs = "GENERATION_MODEL_KWARGS"
	EnvTimeout     = "LLM_TIMEOUT"
)

// Config is the top-level application configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Eval     EvalConfig     `yaml:"eval"`
}

// ProviderConfig describes the chat-completion backend.
type ProviderConfig struct {
	APIKey  string         `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	APIBase string         `yaml:"api_base"`
	Model   string         `yaml:"model"`
	Timeout string         `yaml:"timeout"` // Duration string (e.g. "120s") or bare seconds.
	Options map[string]any `yaml:"options"` // Generation options merged over the built-in defaults.
	Retry   RetryConfig    `yaml:"retry"`
}

// RetryConfig controls rate-limit retries.
type RetryConfig struct {
	MaxAttempts int    `yaml:"max_attempts"` // Total dispatch attempts including the first (default 3).
	BaseDelay   string `yaml:"base_delay"`   // Initial backoff delay as a duration string (default "1s").
	MaxElapsed  string `yaml:"max_elapsed"`  // Overall retry ceiling as a duration string (default "60s").
}

// EvalConfig holds evaluation settings.
type EvalConfig struct {
	Driver          string  `yaml:"driver"` // database/sql driver name (default "pgx").
	DSN             string  `yaml:"dsn"`    // Connection string for the context database.
	RecallThreshold float64 `yaml:"recall_threshold"`
}

// LoadConfig reads a YAML file and returns a Config.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing, and blank provider fields fall back to the LLM_* and
// GENERATION_* environment variables. This keeps API keys in the environment
// (e.g. loaded from a .env file) rather than committed in the config.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	if err := cfg.Provider.applyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// DefaultConfig builds a Config entirely from the environment, for runs
// without a YAML file.
func DefaultConfig() (Config, error) {
	var cfg Config
	if err := cfg.Provider.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv fills blank provider fields from the environment.
func (p *ProviderConfig) applyEnv() error {
	if p.APIKey == "" {
		p.APIKey = os.Getenv(EnvAPIKey)
	}
	if p.APIBase == "" {
		p.APIBase = os.Getenv(EnvAPIBase)
	}
	if p.Model == "" {
		p.Model = os.Getenv(EnvModel)
	}
	if p.Timeout == "" {
		p.Timeout = os.Getenv(EnvTimeout)
	}

	if len(p.Options) == 0 {
		if kwargs := os.Getenv(EnvModelKwargs); kwargs != "" {
			if err := json.Unmarshal([]byte(kwargs), &p.Options); err != nil {
				return fmt.Errorf("engine: parse %s: %w", EnvModelKwargs, err)
			}
		}
	}

	return nil
}

// ParsedTimeout returns the configured timeout, accepting either a duration
// string ("120s") or a bare number of seconds ("120"). Zero means unset.
func (p ProviderConfig) ParsedTimeout() (time.Duration, error) {
	if p.Timeout == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(p.Timeout); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(p.Timeout, 64)
	if err != nil {
		return 0, fmt.Errorf("engine: config: invalid timeout %q", p.Timeout)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if _, err := c.Provider.ParsedTimeout(); err != nil {
		return err
	}

	for field, val := range map[string]string{
		"retry.base_delay":  c.Provider.Retry.BaseDelay,
		"retry.max_elapsed": c.Provider.Retry.MaxElapsed,
	} {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("engine: config: invalid %s %q: %w", field, val, err)
		}
	}

	if c.Provider.Retry.MaxAttempts < 0 {
		return fmt.Errorf("engine: config: retry.max_attempts must not be negative")
	}

	if c.Eval.RecallThreshold < 0 || c.Eval.RecallThreshold > 1 {
		return fmt.Errorf("engine: config: eval.recall_threshold must be within [0, 1]")
	}

	return nil
}
