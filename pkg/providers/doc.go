// Package providers contains concrete LLM completion adapters.
//
// Each sub-package implements [github.com/queryloom/queryloom/pkg/modeladapter.Generator]
// for one backend API:
//   - [github.com/queryloom/queryloom/pkg/providers/openai] — OpenAI and OpenAI-compatible
//     chat completion endpoints, including Vertex AI models served through the
//     compatibility layer
package providers
