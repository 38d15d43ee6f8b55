// Package server exposes the orchestrator over HTTP. The query endpoint
// streams events in SSE framing (a "data: <json>" line per event, a
// "data: [DONE]" sentinel at the end); the rest are plain JSON.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/sitecheck-ai/agentforge/assistant"
	"github.com/sitecheck-ai/agentforge/llm"
	"github.com/sitecheck-ai/agentforge/orchestrate"
	"github.com/sitecheck-ai/agentforge/routing"
)

// Server handles the HTTP surface: query streaming, the assistant listing,
// health, and metrics.
type Server struct {
	orch     *orchestrate.Orchestrator
	registry *assistant.Registry
	metrics  *Metrics
	limiter  *rate.Limiter
	log      zerolog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server's logger.
func WithServerLogger(log zerolog.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// WithRateLimit bounds accepted queries per second with the given burst.
func WithRateLimit(perSecond float64, burst int) ServerOption {
	return func(s *Server) { s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithMetrics attaches pre-built metrics, letting the caller share them with
// the orchestrator's observer.
func WithMetrics(m *Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// New creates a Server.
func New(orch *orchestrate.Orchestrator, registry *assistant.Registry, opts ...ServerOption) *Server {
	s := &Server{
		orch:     orch,
		registry: registry,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /agents", s.handleAgents)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	return mux
}

// queryRequest is the POST /query body.
type queryRequest struct {
	Query          string   `json:"query"`
	ForceAgent     string   `json:"force_agent,omitempty"`
	PreferredModel string   `json:"preferred_model,omitempty"`
	ModelType      string   `json:"model_type,omitempty"`
	ModelCategory  string   `json:"model_category,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
}

// defaultTemperature applies when the request omits one.
const defaultTemperature = 0.7

// errorBody is the JSON shape of non-streaming error responses.
type errorBody struct {
	Error      string   `json:"error"`
	Kind       string   `json:"kind"`
	Valid      []string `json:"valid_assistants,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		s.metrics.RateLimited()
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded", Kind: "rate_limited"})
		return
	}

	var body queryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body: " + err.Error(), Kind: "invalid_query"})
		return
	}

	query := routing.Query{
		Text:            body.Query,
		ForcedAssistant: body.ForceAgent,
		PreferredModel:  body.PreferredModel,
		ModelType:       body.ModelType,
		ModelCategory:   llm.ModelCategory(body.ModelCategory),
		Temperature:     defaultTemperature,
	}
	if body.Temperature != nil {
		query.Temperature = *body.Temperature
	}

	events, decision, err := s.orch.Process(r.Context(), query)
	if err != nil {
		s.writeRoutingError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported", Kind: "internal"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.log.Debug().Str("assistant", decision.Assistant.Name).Str("mode", string(decision.Mode)).Msg("streaming query response")

	enc := json.NewEncoder(w)
	for ev := range events {
		if ev.Type == orchestrate.EventDone {
			break
		}
		fmt.Fprint(w, "data: ")
		if err := enc.Encode(ev); err != nil {
			return
		}
		fmt.Fprint(w, "\n")
		flusher.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// writeRoutingError maps pre-stream failures to status codes. They arrive
// before any stream bytes, so a plain JSON response is still possible.
func (s *Server) writeRoutingError(w http.ResponseWriter, err error) {
	var invalid *orchestrate.InvalidQueryError
	var notFound *assistant.NotFoundError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: invalid.Error(), Kind: "invalid_query"})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorBody{
			Error:      notFound.Error(),
			Kind:       "assistant_not_found",
			Valid:      notFound.Valid,
			Suggestion: notFound.Suggestion,
		})
	default:
		s.log.Error().Err(err).Msg("query routing failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Kind: "internal"})
	}
}

// agentInfo is the public shape of one assistant in the listing.
type agentInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
	TaskTypes   []string `json:"task_types,omitempty"`
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	profiles := s.registry.Snapshot().List()
	agents := make([]agentInfo, len(profiles))
	for i, p := range profiles {
		agents[i] = agentInfo{
			Name:        p.Name,
			DisplayName: p.DisplayName,
			Description: p.Description,
			Keywords:    p.Keywords,
			TaskTypes:   p.TaskTypes,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": agents})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"assistants": s.registry.Snapshot().Len(),
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
