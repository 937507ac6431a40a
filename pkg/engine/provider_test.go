package engine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/queryloom/queryloom/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGenerator_MergesConfiguredOptions(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"gpt-test","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g, err := engine.BuildGenerator(context.Background(), engine.ProviderConfig{
		APIKey:  "sk-test",
		APIBase: srv.URL,
		Model:   "gpt-test",
		Options: map[string]any{"temperature": 0.3},
	}, engine.GeneratorOpts{})
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), "hi", nil)
	require.NoError(t, err)

	// Configured overrides land on the wire while untouched defaults survive.
	assert.Equal(t, 0.3, payload["temperature"])
	assert.Equal(t, float64(4096), payload["max_tokens"])
}

func TestBuildGenerator_InvalidRetryConfig(t *testing.T) {
	_, err := engine.BuildGenerator(context.Background(), engine.ProviderConfig{
		APIKey: "sk-test",
		Retry:  engine.RetryConfig{BaseDelay: "fast"},
	}, engine.GeneratorOpts{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry.base_delay")
}

func TestBuildGenerator_InvalidTimeout(t *testing.T) {
	_, err := engine.BuildGenerator(context.Background(), engine.ProviderConfig{
		APIKey:  "sk-test",
		Timeout: "soon",
	}, engine.GeneratorOpts{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeout")
}
