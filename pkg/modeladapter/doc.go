// Package modeladapter defines the interface and shared plumbing for LLM
// completion adapters.
//
// It contains:
//   - [Generator] interface and the [Result] type returned by every completion call
//   - embeddable [ModelAdapter] base struct with HTTP helpers, auth, and custom headers
//   - [Options] — generation options with per-key merge semantics
//   - [RetryPolicy] — explicit exponential-backoff retry for rate-limited calls
//   - [Credential] — a refreshable token for credential-based backends
//   - [github.com/queryloom/queryloom/pkg/modeladapter/usage] — thread-safe token usage tracker
//
// This package contains no provider-specific code — concrete adapters live in
// separate packages that import modeladapter.
package modeladapter
