package llm

import (
	"context"
	"fmt"
	"sync"
)

// Client holds registered provider adapters and routes each Invocation to
// the one that should serve it. Adapter selection happens here, by
// configuration, never by conditional branching in business logic.
type Client struct {
	mu              sync.RWMutex
	adapters        map[string]Adapter
	defaultProvider string
	retry           RetryPolicy
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAdapter registers a provider adapter.
func WithAdapter(adapter Adapter) ClientOption {
	return func(c *Client) {
		c.adapters[adapter.Name()] = adapter
	}
}

// WithDefaultProvider sets the provider used when an invocation names none
// and the model is not in the catalog.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) {
		c.defaultProvider = name
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = policy
	}
}

// NewClient creates a Client with the given options.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		adapters: make(map[string]Adapter),
		retry:    DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.defaultProvider == "" && len(c.adapters) == 1 {
		for name := range c.adapters {
			c.defaultProvider = name
		}
	}
	return c
}

// Register adds a provider adapter after construction.
func (c *Client) Register(adapter Adapter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adapters[adapter.Name()] = adapter
	if c.defaultProvider == "" {
		c.defaultProvider = adapter.Name()
	}
}

// Has reports whether a provider is registered.
func (c *Client) Has(provider string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.adapters[provider]
	return ok
}

// RetryPolicy returns the client's retry policy.
func (c *Client) RetryPolicy() RetryPolicy {
	return c.retry
}

// resolve determines which adapter serves an invocation: the named provider,
// else the model catalog's owner for the model, else the default provider.
func (c *Client) resolve(inv Invocation) (Adapter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name := inv.Provider
	if name == "" {
		if info := GetModelInfo(inv.Model); info != nil {
			name = info.Provider
		}
	}
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		return nil, BadRequestf("", nil, "no provider for model %q and no default configured", inv.Model)
	}
	adapter, ok := c.adapters[name]
	if !ok {
		return nil, BadRequestf(name, nil, "provider %q is not registered", name)
	}
	return adapter, nil
}

// Complete issues a blocking invocation through the retry controller.
func (c *Client) Complete(ctx context.Context, inv Invocation) (*Completion, error) {
	adapter, err := c.resolve(inv)
	if err != nil {
		return nil, err
	}
	return Retry(ctx, c.retry, func(ctx context.Context) (*Completion, error) {
		resp, err := adapter.Complete(ctx, inv)
		if err != nil {
			return nil, ClassifyProviderError(adapter.Name(), err)
		}
		return resp, nil
	})
}

// StreamWithRetry issues a streaming invocation. Transient failures before
// the first token are retried per the client's policy; failures after the
// first token surface as a terminal Err event.
func (c *Client) StreamWithRetry(ctx context.Context, inv Invocation) (<-chan ProviderEvent, error) {
	adapter, err := c.resolve(inv)
	if err != nil {
		return nil, err
	}
	return StreamWithRetry(ctx, adapter, inv, c.retry), nil
}

// Close releases resources held by all registered adapters.
func (c *Client) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var firstErr error
	for name, adapter := range c.adapters {
		if closer, ok := adapter.(Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("closing %s adapter: %w", name, err)
			}
		}
	}
	return firstErr
}
