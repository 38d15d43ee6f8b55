package llm

import (
	"context"
	"testing"
)

// mockAdapter is a test double for Adapter.
type mockAdapter struct {
	name       string
	completion *Completion
	err        error
	events     []ProviderEvent
	calls      int
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Complete(ctx context.Context, inv Invocation) (*Completion, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.completion, nil
}

func (m *mockAdapter) Stream(ctx context.Context, inv Invocation) (<-chan ProviderEvent, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan ProviderEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func newMockAdapter(name, text string) *mockAdapter {
	return &mockAdapter{
		name: name,
		completion: &Completion{
			ID:       "test_resp",
			Model:    "test-model",
			Provider: name,
			Text:     text,
		},
		events: []ProviderEvent{Token(text), End()},
	}
}

func TestClientComplete(t *testing.T) {
	mock := newMockAdapter("test-provider", "Hello!")
	client := NewClient(WithAdapter(mock))

	resp, err := client.Complete(context.Background(), Invocation{
		Model:    "test-model",
		Messages: []Message{User("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "Hello!" {
		t.Errorf("expected %q, got %q", "Hello!", resp.Text)
	}
}

func TestClientResolvesByCatalog(t *testing.T) {
	openai := newMockAdapter("openai", "from openai")
	anthropic := newMockAdapter("anthropic", "from anthropic")
	client := NewClient(
		WithAdapter(openai),
		WithAdapter(anthropic),
		WithDefaultProvider("openai"),
	)

	// Catalog maps claude-opus-4-6 to anthropic.
	resp, err := client.Complete(context.Background(), Invocation{
		Model:    "claude-opus-4-6",
		Messages: []Message{User("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "from anthropic" {
		t.Errorf("expected anthropic response, got %q", resp.Text)
	}

	// Unknown model falls to the default provider.
	resp, err = client.Complete(context.Background(), Invocation{
		Model:    "custom-model",
		Messages: []Message{User("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "from openai" {
		t.Errorf("expected openai response, got %q", resp.Text)
	}
}

func TestClientExplicitProviderWins(t *testing.T) {
	openai := newMockAdapter("openai", "from openai")
	anthropic := newMockAdapter("anthropic", "from anthropic")
	client := NewClient(WithAdapter(openai), WithAdapter(anthropic), WithDefaultProvider("openai"))

	resp, err := client.Complete(context.Background(), Invocation{
		Provider: "anthropic",
		Model:    "gpt-5.2", // catalog says openai, explicit provider overrides
		Messages: []Message{User("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "from anthropic" {
		t.Errorf("expected anthropic response, got %q", resp.Text)
	}
}

func TestClientNoProvider(t *testing.T) {
	client := NewClient()
	_, err := client.Complete(context.Background(), Invocation{Model: "custom-model"})
	if err == nil {
		t.Fatal("expected error with no registered providers")
	}
	if IsRetryable(err) {
		t.Error("configuration error should not be retryable")
	}
}

func TestClientUnregisteredProvider(t *testing.T) {
	client := NewClient(WithAdapter(newMockAdapter("openai", "hi")))
	_, err := client.Complete(context.Background(), Invocation{
		Provider: "gemini",
		Model:    "some-model",
	})
	if err == nil {
		t.Fatal("expected error for unregistered provider")
	}
}

func TestClientCompleteRetriesTransientErrors(t *testing.T) {
	flaky := &mockAdapter{name: "openai"}
	flaky.err = Unavailablef("openai", nil, "down")
	client := NewClient(WithAdapter(flaky), WithRetryPolicy(fastPolicy(3)))

	_, err := client.Complete(context.Background(), Invocation{Model: "gpt-5.2"})
	if err == nil {
		t.Fatal("expected error")
	}
	if flaky.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", flaky.calls)
	}
}

func TestClientStreamWithRetry(t *testing.T) {
	mock := newMockAdapter("openai", "streamed")
	client := NewClient(WithAdapter(mock))

	ch, err := client.StreamWithRetry(context.Background(), Invocation{Model: "gpt-5.2", Stream: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := collect(ch)
	if len(events) != 2 || events[0].Text != "streamed" || events[1].Kind != EventEnd {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestClientHas(t *testing.T) {
	client := NewClient(WithAdapter(newMockAdapter("openai", "hi")))
	if !client.Has("openai") {
		t.Error("expected openai to be registered")
	}
	if client.Has("anthropic") {
		t.Error("did not expect anthropic to be registered")
	}
}
