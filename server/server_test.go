package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sitecheck-ai/agentforge/assistant"
	"github.com/sitecheck-ai/agentforge/llm"
	"github.com/sitecheck-ai/agentforge/orchestrate"
	"github.com/sitecheck-ai/agentforge/routing"
)

// cannedAdapter streams a fixed token sequence for every invocation.
type cannedAdapter struct {
	name   string
	tokens []string
}

func (a *cannedAdapter) Name() string { return a.name }

func (a *cannedAdapter) Complete(ctx context.Context, inv llm.Invocation) (*llm.Completion, error) {
	return &llm.Completion{Provider: a.name, Model: inv.Model, Text: strings.Join(a.tokens, "")}, nil
}

func (a *cannedAdapter) Stream(ctx context.Context, inv llm.Invocation) (<-chan llm.ProviderEvent, error) {
	ch := make(chan llm.ProviderEvent, len(a.tokens)+1)
	for _, tok := range a.tokens {
		ch <- llm.Token(tok)
	}
	ch <- llm.End()
	close(ch)
	return ch, nil
}

func newTestServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	registry, err := assistant.NewRegistry(assistant.DefaultProfiles())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	adapter := &cannedAdapter{name: "anthropic", tokens: []string{"All ", "clear."}}
	client := llm.NewClient(llm.WithAdapter(adapter), llm.WithDefaultProvider("anthropic"))
	orch := orchestrate.New(registry, routing.NewClassifier(), routing.NewRouter(), client)
	return New(orch, registry, opts...)
}

func postQuery(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// dataLines extracts the payload of each "data:" line in an SSE body.
func dataLines(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if payload, ok := strings.CutPrefix(line, "data: "); ok {
			out = append(out, strings.TrimSpace(payload))
		}
	}
	return out
}

func TestQueryStreamsSSE(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := postQuery(t, h, `{"query": "Audit the site for hazards", "force_agent": "safetyauditor"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	lines := dataLines(rec.Body.String())
	if len(lines) < 3 {
		t.Fatalf("expected thinking + responses + sentinel, got %v", lines)
	}
	if lines[len(lines)-1] != "[DONE]" {
		t.Fatalf("last data line = %q, want [DONE]", lines[len(lines)-1])
	}

	var first orchestrate.Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first event not JSON: %v", err)
	}
	if first.Type != orchestrate.EventThinking {
		t.Fatalf("first event type = %s, want thinking", first.Type)
	}
	if first.Agent != "safetyauditor" {
		t.Fatalf("first event agent = %q", first.Agent)
	}

	var text strings.Builder
	for _, line := range lines[1 : len(lines)-1] {
		var ev orchestrate.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("event not JSON: %v (%q)", err, line)
		}
		if ev.Type == orchestrate.EventResponse {
			text.WriteString(ev.Content)
		}
	}
	if got := text.String(); got != "All clear." {
		t.Fatalf("assembled response = %q", got)
	}
}

func TestQueryMalformedBody(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := postQuery(t, h, `{"query": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestQueryEmptyText(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := postQuery(t, h, `{"query": "  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if body.Kind != "invalid_query" {
		t.Fatalf("kind = %q, want invalid_query", body.Kind)
	}
}

func TestQueryUnknownAssistant(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := postQuery(t, h, `{"query": "hello", "force_agent": "safetyaudit"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if body.Kind != "assistant_not_found" {
		t.Fatalf("kind = %q", body.Kind)
	}
	if len(body.Valid) == 0 {
		t.Fatal("valid assistant names missing from 404 body")
	}
	if body.Suggestion != "safetyauditor" {
		t.Fatalf("suggestion = %q, want safetyauditor", body.Suggestion)
	}
}

func TestAgentsListing(t *testing.T) {
	h := newTestServer(t).Handler()
	req := httptest.NewRequest(http.MethodGet, "/agents", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Agents []agentInfo `json:"agents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if len(body.Agents) != len(assistant.DefaultProfiles()) {
		t.Fatalf("agents = %d, want %d", len(body.Agents), len(assistant.DefaultProfiles()))
	}
	names := map[string]bool{}
	for _, a := range body.Agents {
		names[a.Name] = true
	}
	if !names["safetyauditor"] || !names[assistant.FallbackName] {
		t.Fatalf("expected roster missing from %v", names)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t).Handler()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %v", body["status"])
	}
}

func TestRateLimitRejects(t *testing.T) {
	h := newTestServer(t, WithRateLimit(0, 1)).Handler()

	first := postQuery(t, h, `{"query": "hello"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d", first.Code)
	}
	second := postQuery(t, h, `{"query": "hello again"}`)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("429 response missing Retry-After")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := NewMetrics()
	srv := newTestServer(t, WithMetrics(m))
	h := srv.Handler()

	m.RequestRouted(routing.ModeForced)
	m.RequestFinished(routing.ModeForced, "completed")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "agentforge_requests_routed_total") {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}
