package engine_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/queryloom/queryloom/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearProviderEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		engine.EnvAPIKey, engine.EnvAPIBase, engine.EnvModel,
		engine.EnvModelKwargs, engine.EnvTimeout,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearProviderEnv(t)

	path := writeConfig(t, `
provider:
  api_key: sk-test
  api_base: https://llm.internal/v1
  model: gpt-4o-mini
  timeout: 90s
  options:
    temperature: 0.2
  retry:
    max_attempts: 5
    base_delay: 500ms
eval:
  driver: pgx
  dsn: postgres://localhost/eval
  recall_threshold: 0.7
`)

	cfg, err := engine.LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sk-test", cfg.Provider.APIKey)
	assert.Equal(t, "https://llm.internal/v1", cfg.Provider.APIBase)
	assert.Equal(t, "gpt-4o-mini", cfg.Provider.Model)
	assert.Equal(t, 0.2, cfg.Provider.Options["temperature"])
	assert.Equal(t, 5, cfg.Provider.Retry.MaxAttempts)
	assert.Equal(t, "pgx", cfg.Eval.Driver)
	assert.Equal(t, 0.7, cfg.Eval.RecallThreshold)

	timeout, err := cfg.Provider.ParsedTimeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, timeout)
}

func TestLoadConfig_ExpandsEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("TEST_SECRET_KEY", "sk-from-env")

	path := writeConfig(t, `
provider:
  api_key: ${TEST_SECRET_KEY}
`)

	cfg, err := engine.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Provider.APIKey)
}

func TestLoadConfig_EnvFallbacks(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(engine.EnvAPIKey, "sk-env")
	t.Setenv(engine.EnvModel, "google/gemini-2.0-flash")
	t.Setenv(engine.EnvTimeout, "120")
	t.Setenv(engine.EnvModelKwargs, `{"temperature": 0, "n": 1}`)

	path := writeConfig(t, `
provider:
  api_base: https://llm.internal/v1
`)

	cfg, err := engine.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.Provider.APIKey)
	assert.Equal(t, "google/gemini-2.0-flash", cfg.Provider.Model)
	// Explicit YAML values win over the environment.
	assert.Equal(t, "https://llm.internal/v1", cfg.Provider.APIBase)

	assert.Equal(t, float64(0), cfg.Provider.Options["temperature"])

	timeout, err := cfg.Provider.ParsedTimeout()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, timeout)
}

func TestLoadConfig_MalformedKwargs(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(engine.EnvModelKwargs, `{"temperature":`)

	path := writeConfig(t, "provider: {}\n")

	_, err := engine.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), engine.EnvModelKwargs)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := engine.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestDefaultConfig(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(engine.EnvAPIKey, "sk-env")

	cfg, err := engine.DefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.Provider.APIKey)
	assert.Empty(t, cfg.Provider.Model)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*engine.Config)
		wantErr string
	}{
		{
			name:    "valid zero config",
			mutate:  func(*engine.Config) {},
			wantErr: "",
		},
		{
			name:    "bad timeout",
			mutate:  func(c *engine.Config) { c.Provider.Timeout = "soon" },
			wantErr: "invalid timeout",
		},
		{
			name:    "bad retry delay",
			mutate:  func(c *engine.Config) { c.Provider.Retry.BaseDelay = "fast" },
			wantErr: "retry.base_delay",
		},
		{
			name:    "negative attempts",
			mutate:  func(c *engine.Config) { c.Provider.Retry.MaxAttempts = -1 },
			wantErr: "max_attempts",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *engine.Config) { c.Eval.RecallThreshold = 1.5 },
			wantErr: "recall_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg engine.Config
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParsedTimeout_BareSeconds(t *testing.T) {
	p := engine.ProviderConfig{Timeout: "90"}

	timeout, err := p.ParsedTimeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, timeout)
}
