// Package openai provides a Generator implementation for the OpenAI Chat
// Completions API and OpenAI-compatible backends.
//
// Models prefixed "google/" are treated as Vertex AI models served through the
// OpenAI compatibility endpoint; they authenticate with a refreshable Google
// credential instead of a static API key.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/queryloom/queryloom/pkg/chats/message"
	"github.com/queryloom/queryloom/pkg/modeladapter"
	"github.com/queryloom/queryloom/pkg/modeladapter/usage"
)

const (
	// DefaultAPIBase is the OpenAI API base used when none is configured.
	DefaultAPIBase = "https://api.openai.com/v1"

	// DefaultModel is the generation model used when none is configured.
	DefaultModel = "gpt-4o-mini"

	completionsPath = "/chat/completions"

	// vertexModelPrefix marks models served by Vertex AI through the
	// OpenAI-compatible endpoint. They use a refreshable credential rather
	// than an API key.
	vertexModelPrefix = "google/"
)

// ErrStreamingMultipleChoices is returned when a streaming callback is
// configured together with n > 1. Streaming delivers a single candidate.
var ErrStreamingMultipleChoices = errors.New("openai: cannot stream multiple responses, set n=1")

// DefaultOptions returns the default generation options: deterministic
// sampling, a single candidate, and a JSON object response.
func DefaultOptions() modeladapter.Options {
	return modeladapter.Options{
		"temperature":     0.0,
		"n":               1,
		"max_tokens":      4096,
		"response_format": map[string]any{"type": "json_object"},
	}
}

// StreamChunk is one partial completion fragment delivered during a streamed
// call, in arrival order.
type StreamChunk struct {
	Content string
	Meta    map[string]any
}

// StreamingCallback receives each content-bearing chunk as it arrives.
type StreamingCallback func(chunk StreamChunk)

// Config describes how to construct a Generator. Zero values fall back to the
// documented defaults.
type Config struct {
	APIKey         string              // API key; ignored for Vertex AI models.
	APIBase        string              // Base URL (default: DefaultAPIBase). Trailing slash is stripped.
	Model          string              // Model identifier (default: DefaultModel).
	SystemPrompt   string              // Optional system prompt prepended to every call.
	DefaultOptions modeladapter.Options // Per-generator default generation options.
	Timeout        time.Duration       // Backend call timeout (default: modeladapter.DefaultTimeout).

	// StreamingCallback switches the generator into streamed delivery and
	// receives each chunk as a side effect.
	StreamingCallback StreamingCallback

	Retry  *modeladapter.RetryPolicy // Retry policy (default: DefaultRetryPolicy).
	Logger *slog.Logger              // Logger (default: slog.Default).

	// Credential overrides the Vertex AI credential. When nil and the model
	// carries the "google/" prefix, one is acquired from Google Application
	// Default Credentials at construction.
	Credential *modeladapter.Credential

	// HTTPClient overrides the default client. When set, Timeout is the
	// caller's responsibility.
	HTTPClient *http.Client
}

// Generator is a chat-completion adapter for OpenAI-compatible backends.
// A Generator serves one logical call at a time from its caller's
// perspective; it holds no cross-call concurrency primitives beyond the
// credential refresh guard.
type Generator struct {
	modeladapter.ModelAdapter

	// Usage accumulates token consumption reported by the backend.
	Usage usage.Tracker

	systemPrompt string
	defaults     modeladapter.Options
	callback     StreamingCallback
	retry        *modeladapter.RetryPolicy
	cred         *modeladapter.Credential
	logger       *slog.Logger
}

var _ modeladapter.Generator = (*Generator)(nil)

// New creates a Generator. For Vertex AI models (prefix "google/") without an
// explicit credential, ambient Google credentials are acquired here; the
// returned error surfaces a missing or broken credential environment early.
func New(ctx context.Context, cfg Config) (*Generator, error) {
	g := &Generator{
		systemPrompt: cfg.SystemPrompt,
		defaults:     cfg.DefaultOptions,
		callback:     cfg.StreamingCallback,
		retry:        cfg.Retry,
		cred:         cfg.Credential,
		logger:       cfg.Logger,
	}

	if g.defaults == nil {
		g.defaults = DefaultOptions()
	}
	if g.retry == nil {
		g.retry = modeladapter.DefaultRetryPolicy()
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}

	g.Name = cfg.Model
	if g.Name == "" {
		g.Name = DefaultModel
	}

	g.BaseURL = strings.TrimRight(cfg.APIBase, "/")
	if g.BaseURL == "" {
		g.BaseURL = DefaultAPIBase
	}

	g.Auth = modeladapter.Auth{Key: cfg.APIKey}
	g.Timeout = cfg.Timeout
	g.Client = cfg.HTTPClient
	g.HeaderParser = modeladapter.ParseOpenAIRateLimitHeaders

	if g.cred == nil && strings.HasPrefix(g.Name, vertexModelPrefix) {
		cred, err := modeladapter.GoogleCredential(ctx)
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		g.cred = cred
	}

	if g.BaseURL == DefaultAPIBase {
		g.logger.Info("using OpenAI backend", "model", g.Name)
	} else {
		g.logger.Info("using OpenAI-compatible backend", "model", g.Name, "api_base", g.BaseURL)
	}

	return g, nil
}

// Complete sends the prompt to the backend and returns the ordered completion
// texts with their parallel metadata. The opts mapping is merged key-by-key
// over the generator defaults. When a streaming callback is configured the
// response is consumed incrementally and assembled into a single completion.
func (g *Generator) Complete(ctx context.Context, prompt string, opts modeladapter.Options) (*modeladapter.Result, error) {
	merged := g.defaults.Merge(opts)
	streaming := g.callback != nil

	if streaming && merged.Int("n", 1) > 1 {
		return nil, ErrStreamingMultipleChoices
	}

	if g.cred != nil {
		if err := g.cred.EnsureValid(); err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		// Propagate the (possibly refreshed) token into the request auth.
		g.Auth.Key = g.cred.Token()
	}

	payload := g.buildPayload(prompt, merged, streaming)

	var result *modeladapter.Result
	dispatch := func() error {
		var err error
		if streaming {
			result, err = g.completeStream(ctx, payload)
		} else {
			result, err = g.completeOnce(ctx, payload)
		}
		return err
	}

	if err := g.retry.Do(ctx, dispatch); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	g.checkFinishReasons(result)
	g.logRateLimitInfo()

	return result, nil
}

// buildPayload assembles the request body: merged options first, then the
// fixed keys so options can never clobber the model or message list.
func (g *Generator) buildPayload(prompt string, merged modeladapter.Options, streaming bool) map[string]any {
	var msgs []message.Message
	if g.systemPrompt != "" {
		// The backend rejects system-role messages; send the system prompt
		// with the assistant role instead.
		msgs = append(msgs, message.FromAssistant(g.systemPrompt))
	}
	msgs = append(msgs, message.FromUser(prompt))

	wire := make([]apiMessage, len(msgs))
	for i, m := range msgs {
		wire[i] = apiMessage{Role: m.Role.String(), Content: m.Content}
	}

	payload := make(map[string]any, len(merged)+3)
	for k, v := range merged {
		payload[k] = v
	}
	payload["model"] = g.Name
	payload["messages"] = wire
	if streaming {
		payload["stream"] = true
	}

	return payload
}

// completeOnce decodes a one-shot response into one completion per choice,
// preserving the backend-assigned ordering.
func (g *Generator) completeOnce(ctx context.Context, payload map[string]any) (*modeladapter.Result, error) {
	var resp apiResponse
	if err := g.PostJSON(ctx, completionsPath, payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("empty choices in response")
	}

	result := &modeladapter.Result{
		Texts: make([]string, 0, len(resp.Choices)),
		Meta:  make([]map[string]any, 0, len(resp.Choices)),
	}

	for _, choice := range resp.Choices {
		meta := map[string]any{
			"model":         resp.Model,
			"index":         choice.Index,
			"finish_reason": choice.FinishReason,
		}
		if resp.Usage != nil {
			meta["usage"] = map[string]any{
				"prompt_tokens":     resp.Usage.PromptTokens,
				"completion_tokens": resp.Usage.CompletionTokens,
				"total_tokens":      resp.Usage.TotalTokens,
			}
		}

		result.Texts = append(result.Texts, choice.Message.Content)
		result.Meta = append(result.Meta, meta)
	}

	if resp.Usage != nil {
		g.Usage.Add(usage.TokenCount{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		})
	}

	return result, nil
}

// checkFinishReasons surfaces truncation and content filtering in the log.
// These are not local errors; the metadata carries them to the caller.
func (g *Generator) checkFinishReasons(result *modeladapter.Result) {
	for i, meta := range result.Meta {
		switch meta["finish_reason"] {
		case "length":
			g.logger.Warn("completion truncated by the max token limit",
				"index", i, "model", g.Name)
		case "content_filter":
			g.logger.Warn("completion flagged by the content filter",
				"index", i, "model", g.Name)
		}
	}
}

func (g *Generator) logRateLimitInfo() {
	info := g.LastRateLimitInfo()
	if info == nil {
		return
	}
	g.logger.Debug("backend rate limit state",
		"remaining_requests", info.RemainingRequests,
		"remaining_tokens", info.RemainingTokens)
}

// --- wire types ---

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	ID      string      `json:"id"`
	Model   string      `json:"model"`
	Choices []apiChoice `json:"choices"`
	Usage   *apiUsage   `json:"usage"`
}

type apiChoice struct {
	Index        int            `json:"index"`
	Message      apiRespMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type apiRespMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
