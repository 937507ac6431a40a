// Package message defines the Message type used in LLM conversations.
package message

import (
	"github.com/queryloom/queryloom/pkg/chats/role"
)

// Message represents a single message in a conversation.
// It is a value type that copies cheaply and is not modified after
// construction.
type Message struct {
	Role    role.Role
	Content string
	Meta    map[string]any
}

// New creates a message with the given role and text content.
func New(r role.Role, content string) Message {
	return Message{Role: r, Content: content}
}

// FromUser creates a user message.
func FromUser(content string) Message {
	return New(role.User, content)
}

// FromAssistant creates an assistant message.
func FromAssistant(content string) Message {
	return New(role.Assistant, content)
}

// WithMeta returns a copy of the message carrying the given metadata map.
// The original message is left untouched.
func (m Message) WithMeta(meta map[string]any) Message {
	m.Meta = meta
	return m
}

// GetMeta retrieves a metadata value by key.
func (m Message) GetMeta(key string) (any, bool) {
	if m.Meta == nil {
		return nil, false
	}
	v, ok := m.Meta[key]
	return v, ok
}
