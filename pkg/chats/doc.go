// Package chats provides a provider-agnostic data model for LLM chat
// interactions.
//
// It is organized into sub-packages:
//   - [github.com/queryloom/queryloom/pkg/chats/role] — conversation roles (system, user, assistant)
//   - [github.com/queryloom/queryloom/pkg/chats/message] — immutable text messages with per-message metadata
//
// No provider or API code is included — chats is a foundation layer
// that adapters can build on.
package chats
