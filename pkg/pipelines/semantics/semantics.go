// Package semantics implements the description-generation pipeline: it picks
// the requested models out of an MDL manifest, renders them into a prompt,
// asks the generator for per-model and per-column descriptions, and
// normalizes the JSON reply into a mapping keyed by model name.
package semantics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/queryloom/queryloom/pkg/mdl"
	"github.com/queryloom/queryloom/pkg/modeladapter"
)

// Pipeline generates semantic descriptions for a selection of data models.
type Pipeline struct {
	gen    modeladapter.Generator
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a Pipeline around the given generator. The generator is
// expected to carry [SystemPrompt] as its system prompt.
func New(gen modeladapter.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		gen:    gen,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PickModels selects the named models from the manifest, dropping columns
// that carry a relationship property — joins add nothing to a description
// prompt.
func PickModels(manifest mdl.Manifest, selected []string) []mdl.Model {
	want := make(map[string]struct{}, len(selected))
	for _, name := range selected {
		want[name] = struct{}{}
	}

	var picked []mdl.Model
	for _, m := range manifest.Models {
		if _, ok := want[m.Name]; !ok {
			continue
		}

		cols := make([]mdl.Column, 0, len(m.Columns))
		for _, c := range m.Columns {
			if c.HasRelationship() {
				continue
			}
			cols = append(cols, c)
		}

		picked = append(picked, mdl.Model{
			Name:       m.Name,
			Columns:    cols,
			Properties: m.Properties,
		})
	}

	return picked
}

// renderPrompt serializes the picked models and renders the final prompt text.
func (p *Pipeline) renderPrompt(userPrompt string, picked []mdl.Model) (string, error) {
	models, err := json.Marshal(picked)
	if err != nil {
		return "", fmt.Errorf("semantics: marshal picked models: %w", err)
	}

	var b strings.Builder
	err = userPromptTemplate.Execute(&b, promptInput{
		UserPrompt:   userPrompt,
		PickedModels: string(models),
	})
	if err != nil {
		return "", fmt.Errorf("semantics: render prompt: %w", err)
	}

	return b.String(), nil
}

// Normalize parses the generated reply into a mapping keyed by model name.
// Malformed JSON is tolerated: it yields an empty mapping, logged, never a
// parse error — content quality is the caller's policy decision.
func (p *Pipeline) Normalize(reply string) map[string]mdl.Model {
	text := strings.Join(strings.Fields(reply), " ")

	var parsed struct {
		Models []mdl.Model `json:"models"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		p.logger.Error("failed to decode generated descriptions", "error", err)
		return map[string]mdl.Model{}
	}

	out := make(map[string]mdl.Model, len(parsed.Models))
	for _, m := range parsed.Models {
		out[m.Name] = m
	}

	return out
}

// Run executes the pipeline: pick, render, generate, normalize.
func (p *Pipeline) Run(ctx context.Context, userPrompt string, selected []string, manifest mdl.Manifest) (map[string]mdl.Model, error) {
	picked := PickModels(manifest, selected)
	p.logger.Debug("picked models for description", "count", len(picked))

	prompt, err := p.renderPrompt(userPrompt, picked)
	if err != nil {
		return nil, err
	}

	res, err := p.gen.Complete(ctx, prompt, responseFormat())
	if err != nil {
		return nil, fmt.Errorf("semantics: generate: %w", err)
	}

	if len(res.Texts) == 0 {
		return nil, errors.New("semantics: generator returned no replies")
	}

	// Expecting only one reply.
	return p.Normalize(res.Texts[0]), nil
}

// responseFormat pins the reply to the semantic-description JSON schema.
func responseFormat() modeladapter.Options {
	return modeladapter.Options{
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "semantic_description",
				"schema": semanticResultSchema(),
			},
		},
	}
}

// semanticResultSchema describes the expected reply document: a list of
// models, each with described columns and its own description.
func semanticResultSchema() map[string]any {
	description := map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"description": map[string]any{"type": "string"}},
		"required":             []string{"description"},
		"additionalProperties": false,
	}

	column := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":       map[string]any{"type": "string"},
			"properties": description,
		},
		"required":             []string{"name", "properties"},
		"additionalProperties": false,
	}

	model := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":       map[string]any{"type": "string"},
			"columns":    map[string]any{"type": "array", "items": column},
			"properties": description,
		},
		"required":             []string{"name", "columns", "properties"},
		"additionalProperties": false,
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"models": map[string]any{"type": "array", "items": model},
		},
		"required":             []string{"models"},
		"additionalProperties": false,
	}
}
