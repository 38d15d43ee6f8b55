package llm

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation sent to a provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System creates a system Message.
func System(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// User creates a user Message.
func User(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// Assistant creates an assistant Message.
func Assistant(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolDefinition describes a tool the model may call.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"` // JSON Schema
}

// ToolCall is a model-initiated tool invocation surfaced in the event stream.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Invocation is a single model call. It is built per request, owned
// exclusively by the call that issues it, and not retained afterward.
type Invocation struct {
	Provider    string           `json:"provider,omitempty"`
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Stream      bool             `json:"stream"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
}

// SystemText returns the concatenated system message content.
func (inv Invocation) SystemText() string {
	var sb strings.Builder
	for _, m := range inv.Messages {
		if m.Role == RoleSystem {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(m.Content)
		}
	}
	return sb.String()
}

// EventKind is the discriminator tag for ProviderEvent.
type EventKind string

const (
	EventToken    EventKind = "token"
	EventToolCall EventKind = "tool_call"
	EventEnd      EventKind = "end"
	EventErr      EventKind = "error"
)

// ProviderEvent is one unit of a provider's normalized streaming output.
// A stream is a finite sequence of Token and ToolCall events terminated by
// exactly one End or Err.
type ProviderEvent struct {
	Kind     EventKind `json:"kind"`
	Text     string    `json:"text,omitempty"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`
	Err      error     `json:"-"`
}

// Token creates a token ProviderEvent.
func Token(text string) ProviderEvent {
	return ProviderEvent{Kind: EventToken, Text: text}
}

// End is the terminal success event.
func End() ProviderEvent {
	return ProviderEvent{Kind: EventEnd}
}

// Errf creates a terminal error ProviderEvent.
func Errf(err error) ProviderEvent {
	return ProviderEvent{Kind: EventErr, Err: err}
}

// Completion is the result of a blocking (non-streaming) call.
type Completion struct {
	ID        string     `json:"id"`
	Model     string     `json:"model"`
	Provider  string     `json:"provider"`
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}
