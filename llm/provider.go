package llm

import "context"

// Adapter is the interface every provider backend implements. Each adapter
// normalizes one vendor's chat, streaming, and tool-call semantics into the
// shared Invocation/ProviderEvent shapes.
type Adapter interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic").
	Name() string

	// Complete sends a blocking request and returns the full response.
	Complete(ctx context.Context, inv Invocation) (*Completion, error)

	// Stream sends a request and returns a finite, non-restartable channel
	// of events. The first token must be observable before generation
	// completes. The last event is always End or Err, after which the
	// channel is closed.
	Stream(ctx context.Context, inv Invocation) (<-chan ProviderEvent, error)
}

// Closer is implemented by adapters that hold resources.
type Closer interface {
	Close() error
}
