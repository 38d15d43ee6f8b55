package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmAdapter implements Adapter on top of a gollm.LLM instance. One
// adapter is constructed per configured provider.
//
// gollm carries per-call parameters as mutable state on the shared LLM, so
// the adapter holds mu from applying an invocation's options until the call
// consuming them has been issued. Requests never see each other's options.
type GollmAdapter struct {
	provider string
	mu       sync.Mutex
	llm      gollm.LLM
	model    string
}

// GollmOption configures a GollmAdapter.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithModel sets the adapter's default model.
func WithModel(model string) GollmOption {
	return func(c *gollmConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) GollmOption {
	return func(c *gollmConfig) {
		c.maxTokens = n
	}
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) GollmOption {
	return func(c *gollmConfig) {
		c.temperature = t
	}
}

// WithGollmOptions appends extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewGollmAdapter creates an adapter for the given provider. If apiKey is
// empty, gollm reads it from the provider's environment variable.
func NewGollmAdapter(provider, apiKey string, opts ...GollmOption) (*GollmAdapter, error) {
	cfg := &gollmConfig{
		maxTokens:   4096,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		for _, m := range ListModels(provider) {
			model = m.ID
			break
		}
	}
	if model == "" {
		return nil, BadRequestf(provider, nil, "no known model for provider %q", provider)
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retry is owned by the retry controller
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	inner, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating gollm LLM for provider %s: %w", provider, err)
	}

	return &GollmAdapter{provider: provider, llm: inner, model: model}, nil
}

// NewGollmAdapterFromLLM wraps an existing gollm.LLM instance. Used by tests
// and callers that configure gollm themselves.
func NewGollmAdapterFromLLM(provider string, inner gollm.LLM) *GollmAdapter {
	return &GollmAdapter{provider: provider, llm: inner, model: inner.GetModel()}
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string {
	return a.provider
}

// Complete sends a blocking request and returns the full response.
func (a *GollmAdapter) Complete(ctx context.Context, inv Invocation) (*Completion, error) {
	prompt := a.translate(inv)

	a.mu.Lock()
	a.applyOptions(inv)
	text, err := a.llm.Generate(ctx, prompt)
	a.mu.Unlock()
	if err != nil {
		return nil, ClassifyProviderError(a.provider, err)
	}
	return a.buildCompletion(inv, text), nil
}

// Stream sends a streaming request. Tokens are forwarded as they arrive;
// the response is never buffered in full before the first event.
func (a *GollmAdapter) Stream(ctx context.Context, inv Invocation) (<-chan ProviderEvent, error) {
	prompt := a.translate(inv)

	ch := make(chan ProviderEvent, 64)

	if !a.llm.SupportsStreaming() {
		// Fallback: one blocking call, emitted as a single token.
		go func() {
			defer close(ch)
			a.mu.Lock()
			a.applyOptions(inv)
			text, err := a.llm.Generate(ctx, prompt)
			a.mu.Unlock()
			if err != nil {
				ch <- Errf(ClassifyProviderError(a.provider, err))
				return
			}
			a.emitCompletion(ch, inv, text)
		}()
		return ch, nil
	}

	// The stream object captures the options at initiation, so mu is released
	// before the token loop starts.
	a.mu.Lock()
	a.applyOptions(inv)
	stream, err := a.llm.Stream(ctx, prompt)
	a.mu.Unlock()
	if err != nil {
		return nil, ClassifyProviderError(a.provider, err)
	}

	go func() {
		defer close(ch)
		defer stream.Close()

		var fullText strings.Builder
		for {
			token, err := stream.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				ch <- Errf(ClassifyProviderError(a.provider, err))
				return
			}
			if token == nil {
				continue
			}
			ch <- Token(token.Text)
			fullText.WriteString(token.Text)
		}

		for _, tc := range parseToolCalls(fullText.String()) {
			tc := tc
			ch <- ProviderEvent{Kind: EventToolCall, ToolCall: &tc}
		}
		ch <- End()
	}()

	return ch, nil
}

func (a *GollmAdapter) emitCompletion(ch chan<- ProviderEvent, inv Invocation, text string) {
	comp := a.buildCompletion(inv, text)
	if comp.Text != "" {
		ch <- Token(comp.Text)
	}
	for _, tc := range comp.ToolCalls {
		tc := tc
		ch <- ProviderEvent{Kind: EventToolCall, ToolCall: &tc}
	}
	ch <- End()
}

// translate converts an Invocation into a gollm Prompt. gollm takes one
// prompt string plus a system prompt, so conversation turns are flattened.
func (a *GollmAdapter) translate(inv Invocation) *gollm.Prompt {
	var userParts []string
	for _, msg := range inv.Messages {
		switch msg.Role {
		case RoleUser:
			userParts = append(userParts, msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				userParts = append(userParts, "[Assistant]: "+msg.Content)
			}
		}
	}
	promptText := strings.Join(userParts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	var promptOpts []gollm.PromptOption
	if system := inv.SystemText(); system != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(system), gollm.CacheTypeEphemeral))
	}
	if inv.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*inv.MaxTokens))
	}
	if len(inv.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(inv.Tools))
		for _, t := range inv.Tools {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// applyOptions pushes invocation-level parameters into the gollm LLM.
func (a *GollmAdapter) applyOptions(inv Invocation) {
	if inv.Model != "" {
		a.llm.SetOption("model", inv.Model)
	}
	if inv.Temperature != nil {
		a.llm.SetOption("temperature", *inv.Temperature)
	}
	if inv.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *inv.MaxTokens)
	}
}

func (a *GollmAdapter) buildCompletion(inv Invocation, text string) *Completion {
	model := inv.Model
	if model == "" {
		model = a.model
	}
	toolCalls := parseToolCalls(text)
	return &Completion{
		ID:        "resp_" + uuid.New().String()[:8],
		Model:     model,
		Provider:  a.provider,
		Text:      stripToolCallJSON(text, toolCalls),
		ToolCalls: toolCalls,
	}
}

// parseToolCalls extracts tool calls gollm returns embedded in the response
// text as JSON.
func parseToolCalls(text string) []ToolCall {
	start := strings.Index(text, `[{"name"`)
	if start == -1 {
		return nil
	}

	var rawCalls []struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(text[start:]), &rawCalls); err != nil {
		return nil
	}

	calls := make([]ToolCall, 0, len(rawCalls))
	for _, rc := range rawCalls {
		calls = append(calls, ToolCall{
			ID:        "call_" + uuid.New().String()[:8],
			Name:      rc.Name,
			Arguments: rc.Arguments,
		})
	}
	return calls
}

func stripToolCallJSON(text string, calls []ToolCall) string {
	if len(calls) == 0 {
		return text
	}
	if idx := strings.Index(text, `[{"name"`); idx != -1 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}
