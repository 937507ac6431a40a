package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/queryloom/queryloom/pkg/modeladapter"
	"github.com/queryloom/queryloom/pkg/providers/openai"
)

// GeneratorOpts carries per-use wiring that does not belong in the config
// file: the system prompt of the calling pipeline and an optional streaming
// callback.
type GeneratorOpts struct {
	SystemPrompt      string
	StreamingCallback openai.StreamingCallback
	Logger            *slog.Logger
}

// BuildGenerator constructs the chat-completion generator from the provider
// configuration. Configured options are merged over the built-in generation
// defaults, so the config only needs to name the keys it overrides.
func BuildGenerator(ctx context.Context, cfg ProviderConfig, opts GeneratorOpts) (*openai.Generator, error) {
	timeout, err := cfg.ParsedTimeout()
	if err != nil {
		return nil, err
	}

	retry, err := buildRetryPolicy(cfg.Retry)
	if err != nil {
		return nil, err
	}

	g, err := openai.New(ctx, openai.Config{
		APIKey:            cfg.APIKey,
		APIBase:           cfg.APIBase,
		Model:             cfg.Model,
		SystemPrompt:      opts.SystemPrompt,
		DefaultOptions:    openai.DefaultOptions().Merge(cfg.Options),
		Timeout:           timeout,
		StreamingCallback: opts.StreamingCallback,
		Retry:             retry,
		Logger:            opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: build generator: %w", err)
	}

	return g, nil
}

func buildRetryPolicy(cfg RetryConfig) (*modeladapter.RetryPolicy, error) {
	if cfg.MaxAttempts == 0 && cfg.BaseDelay == "" && cfg.MaxElapsed == "" {
		return modeladapter.DefaultRetryPolicy(), nil
	}

	var baseDelay, maxElapsed time.Duration
	var err error

	if cfg.BaseDelay != "" {
		if baseDelay, err = time.ParseDuration(cfg.BaseDelay); err != nil {
			return nil, fmt.Errorf("engine: config: invalid retry.base_delay %q: %w", cfg.BaseDelay, err)
		}
	}
	if cfg.MaxElapsed != "" {
		if maxElapsed, err = time.ParseDuration(cfg.MaxElapsed); err != nil {
			return nil, fmt.Errorf("engine: config: invalid retry.max_elapsed %q: %w", cfg.MaxElapsed, err)
		}
	}

	return modeladapter.NewRetryPolicy(cfg.MaxAttempts, baseDelay, maxElapsed), nil
}
