package orchestrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/sitecheck-ai/agentforge/assistant"
	"github.com/sitecheck-ai/agentforge/llm"
)

// EventType identifies one kind of outward-facing stream event.
type EventType string

const (
	EventThinking EventType = "thinking"
	EventResponse EventType = "response"
	EventToolCall EventType = "tool_call"
	EventError    EventType = "error"
	EventDone     EventType = "done"
)

// Event is one element of a request's output stream. Agent carries the
// handling assistant's name on every event so clients can label multiplexed
// streams without extra bookkeeping.
type Event struct {
	Type    EventType     `json:"type"`
	Content string        `json:"content,omitempty"`
	Agent   string        `json:"agent,omitempty"`
	Tool    *llm.ToolCall `json:"tool,omitempty"`

	// ErrorKind is set only on error events. It is a stable machine-readable
	// label; Content carries the human-readable message.
	ErrorKind string `json:"error_kind,omitempty"`
}

// Error kinds attached to terminal error events.
const (
	KindInvalidQuery        = "invalid_query"
	KindAssistantNotFound   = "assistant_not_found"
	KindProviderUnavailable = "provider_unavailable"
	KindRateLimited         = "rate_limited"
	KindBadRequest          = "bad_request"
	KindTimeout             = "timeout"
	KindIdleTimeout         = "idle_timeout"
	KindCanceled            = "canceled"
	KindInternal            = "internal"
)

// InvalidQueryError rejects a request before any work is done on it.
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

// errorKind maps an error to the stable label reported on error events and
// used by the HTTP layer to pick status codes.
func errorKind(err error) string {
	var invalid *InvalidQueryError
	var notFound *assistant.NotFoundError
	var rateLimited *llm.RateLimitedError
	var badRequest *llm.BadRequestError
	var unavailable *llm.UnavailableError
	switch {
	case errors.As(err, &invalid):
		return KindInvalidQuery
	case errors.As(err, &notFound):
		return KindAssistantNotFound
	case errors.As(err, &rateLimited):
		return KindRateLimited
	case errors.As(err, &badRequest):
		return KindBadRequest
	case errors.As(err, &unavailable):
		return KindProviderUnavailable
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}
