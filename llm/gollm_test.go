package llm

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/teilomillet/gollm"
	gollmllm "github.com/teilomillet/gollm/llm"
	"github.com/teilomillet/gollm/utils"
)

// fakeGollm is an in-memory gollm.LLM. Generate echoes the model and
// temperature options it observed, and fails if they change while the call
// is in flight.
type fakeGollm struct {
	mu      sync.Mutex
	options map[string]interface{}
}

func newFakeGollm() *fakeGollm {
	return &fakeGollm{options: map[string]interface{}{}}
}

func (f *fakeGollm) snapshot() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("%v|%v", f.options["model"], f.options["temperature"])
}

func (f *fakeGollm) Generate(ctx context.Context, prompt *gollm.Prompt, opts ...gollmllm.GenerateOption) (string, error) {
	before := f.snapshot()
	time.Sleep(time.Millisecond)
	if after := f.snapshot(); after != before {
		return "", fmt.Errorf("options changed mid-call: %s -> %s", before, after)
	}
	return before, nil
}

func (f *fakeGollm) GenerateWithSchema(ctx context.Context, prompt *gollm.Prompt, schema interface{}, opts ...gollmllm.GenerateOption) (string, error) {
	return f.Generate(ctx, prompt)
}

func (f *fakeGollm) Stream(ctx context.Context, prompt *gollm.Prompt, opts ...gollm.StreamOption) (gollm.TokenStream, error) {
	return nil, fmt.Errorf("streaming unsupported")
}

func (f *fakeGollm) SupportsStreaming() bool { return false }

func (f *fakeGollm) SetOption(key string, value interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.options[key] = value
}

func (f *fakeGollm) SetLogLevel(level utils.LogLevel) {}
func (f *fakeGollm) SetEndpoint(endpoint string) {}
func (f *fakeGollm) NewPrompt(input string) *gollm.Prompt { return gollm.NewPrompt(input) }
func (f *fakeGollm) GetLogger() utils.Logger { return nil }
func (f *fakeGollm) SupportsJSONSchema() bool { return false }

func (f *fakeGollm) GetPromptJSONSchema(opts ...gollm.SchemaOption) ([]byte, error) {
	return nil, nil
}

func (f *fakeGollm) GetProvider() string { return "fake" }
func (f *fakeGollm) GetModel() string { return "fake-model" }
func (f *fakeGollm) UpdateLogLevel(level gollm.LogLevel) {}
func (f *fakeGollm) Debug(msg string, keysAndValues ...interface{}) {}
func (f *fakeGollm) GetLogLevel() gollm.LogLevel { return gollm.LogLevelWarn }
func (f *fakeGollm) SetOllamaEndpoint(endpoint string) error { return nil }
func (f *fakeGollm) SetSystemPrompt(prompt string, cacheType gollm.CacheType) {}

func TestGollmAdapterConcurrentInvocationOptions(t *testing.T) {
	adapter := NewGollmAdapterFromLLM("openai", newFakeGollm())

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			temp := float64(i) / 100
			model := fmt.Sprintf("model-%d", i)
			comp, err := adapter.Complete(context.Background(), Invocation{
				Model:       model,
				Temperature: &temp,
				Messages:    []Message{User("q")},
			})
			if err != nil {
				errs <- err
				return
			}
			if want := fmt.Sprintf("%s|%v", model, temp); comp.Text != want {
				errs <- fmt.Errorf("invocation saw %q, want %q", comp.Text, want)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestGollmAdapterStreamFallbackKeepsOptions(t *testing.T) {
	adapter := NewGollmAdapterFromLLM("openai", newFakeGollm())

	temp := 0.3
	ch, err := adapter.Stream(context.Background(), Invocation{
		Model:       "model-a",
		Temperature: &temp,
		Messages:    []Message{User("q")},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	events := collect(ch)
	if len(events) != 2 || events[0].Kind != EventToken || events[1].Kind != EventEnd {
		t.Fatalf("unexpected event sequence: %+v", events)
	}
	if want := "model-a|0.3"; events[0].Text != want {
		t.Fatalf("stream saw %q, want %q", events[0].Text, want)
	}
}
