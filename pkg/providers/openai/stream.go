package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/queryloom/queryloom/pkg/modeladapter"
	"github.com/queryloom/queryloom/pkg/modeladapter/usage"
)

// streamDone terminates the SSE stream.
const streamDone = "[DONE]"

// completeStream consumes the server-sent event stream chunk by chunk in
// arrival order, invoking the callback for every content-bearing chunk, and
// assembles the fragments into exactly one completion.
func (g *Generator) completeStream(ctx context.Context, payload map[string]any) (*modeladapter.Result, error) {
	resp, err := g.Post(ctx, completionsPath, payload)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var (
		assembled    strings.Builder
		model        string
		finishReason string
		streamUsage  *apiUsage
	)

	scanner := bufio.NewScanner(resp.Body)
	// SSE data lines can exceed the default 64KB token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == streamDone {
			break
		}

		var chunk chunkResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, fmt.Errorf("decode stream chunk: %w", err)
		}

		if chunk.Model != "" {
			model = chunk.Model
		}
		if chunk.Usage != nil {
			streamUsage = chunk.Usage
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			finishReason = choice.FinishReason
		}

		if choice.Delta.Content == "" {
			continue
		}

		g.callback(StreamChunk{
			Content: choice.Delta.Content,
			Meta: map[string]any{
				"model": chunk.Model,
				"index": choice.Index,
			},
		})
		assembled.WriteString(choice.Delta.Content)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}

	meta := map[string]any{
		"model":         model,
		"index":         0,
		"finish_reason": finishReason,
	}
	if streamUsage != nil {
		meta["usage"] = map[string]any{
			"prompt_tokens":     streamUsage.PromptTokens,
			"completion_tokens": streamUsage.CompletionTokens,
			"total_tokens":      streamUsage.TotalTokens,
		}
		g.Usage.Add(usage.TokenCount{
			PromptTokens:     streamUsage.PromptTokens,
			CompletionTokens: streamUsage.CompletionTokens,
		})
	}

	return &modeladapter.Result{
		Texts: []string{assembled.String()},
		Meta:  []map[string]any{meta},
	}, nil
}

// --- stream wire types ---

type chunkResponse struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
	Usage   *apiUsage     `json:"usage"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason string     `json:"finish_reason"`
}

type chunkDelta struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
