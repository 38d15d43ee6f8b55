package orchestrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sitecheck-ai/agentforge/assistant"
	"github.com/sitecheck-ai/agentforge/llm"
	"github.com/sitecheck-ai/agentforge/retrieval"
	"github.com/sitecheck-ai/agentforge/routing"
)

// State is one step of the request lifecycle.
type State string

const (
	StateReceived    State = "RECEIVED"
	StateClassifying State = "CLASSIFYING"
	StateRouted      State = "ROUTED"
	StateInvoking    State = "INVOKING"
	StateStreaming   State = "STREAMING"
	StateCompleted   State = "COMPLETED"
	StateFailed      State = "FAILED"
)

// Defaults for the per-request deadlines.
const (
	DefaultPreStreamTimeout = 30 * time.Second
	DefaultIdleTimeout      = 60 * time.Second
	DefaultRetrievalLimit   = 5
)

// Orchestrator drives one request at a time through classification, routing,
// context retrieval, and model invocation. It owns cancellation and timeouts;
// the components it coordinates are all deadline-agnostic.
type Orchestrator struct {
	registry   *assistant.Registry
	classifier *routing.Classifier
	router     *routing.Router
	client     *llm.Client
	retriever  retrieval.ContextProvider
	log        zerolog.Logger

	preStreamTimeout time.Duration
	idleTimeout      time.Duration
	retrievalLimit   int
	observer         Observer
}

// Observer receives lifecycle notifications for metrics. All methods may be
// called concurrently.
type Observer interface {
	RequestRouted(mode routing.Mode)
	RequestFinished(mode routing.Mode, outcome string)
	FirstToken(provider string, elapsed time.Duration)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetriever supplies document context for invocations. Retrieval failures
// never fail a request; the query proceeds without context.
func WithRetriever(p retrieval.ContextProvider) Option {
	return func(o *Orchestrator) { o.retriever = p }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithPreStreamTimeout bounds classification, routing, and time to first
// token together.
func WithPreStreamTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.preStreamTimeout = d }
}

// WithIdleTimeout bounds the gap between consecutive stream chunks.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.idleTimeout = d }
}

// WithRetrievalLimit caps the number of context snippets per request.
func WithRetrievalLimit(k int) Option {
	return func(o *Orchestrator) { o.retrievalLimit = k }
}

// WithObserver attaches a metrics observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// New creates an Orchestrator.
func New(registry *assistant.Registry, classifier *routing.Classifier, router *routing.Router, client *llm.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:         registry,
		classifier:       classifier,
		router:           router,
		client:           client,
		log:              zerolog.Nop(),
		preStreamTimeout: DefaultPreStreamTimeout,
		idleTimeout:      DefaultIdleTimeout,
		retrievalLimit:   DefaultRetrievalLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// request is the per-request working state. One goroutine owns it.
type request struct {
	id       string
	query    routing.Query
	snap     *assistant.Snapshot
	decision *routing.Decision
	state    State
	started  time.Time
	deadline time.Time
	log      zerolog.Logger
}

func (r *request) transition(to State) {
	r.log.Debug().Str("from", string(r.state)).Str("to", string(to)).Msg("state transition")
	r.state = to
}

// Process validates, classifies, and routes the query, then starts streaming.
// Routing failures (empty query, unknown forced assistant) are returned
// synchronously so callers can reject before committing to a stream. The
// returned Decision is always set when the channel is, and the channel closes
// after exactly one terminal event.
func (o *Orchestrator) Process(ctx context.Context, query routing.Query) (<-chan Event, *routing.Decision, error) {
	req := &request{
		id:       uuid.NewString(),
		query:    query,
		snap:     o.registry.Snapshot(),
		state:    StateReceived,
		started:  time.Now(),
		deadline: time.Now().Add(o.preStreamTimeout),
	}
	req.log = o.log.With().Str("request_id", req.id).Logger()

	if strings.TrimSpace(query.Text) == "" {
		return nil, nil, &InvalidQueryError{Reason: "query text is empty"}
	}

	req.transition(StateClassifying)
	ranked := o.classify(ctx, req)

	decision, err := o.router.Route(query, req.snap, ranked)
	if err != nil {
		req.log.Warn().Err(err).Msg("routing failed")
		return nil, nil, err
	}
	req.decision = decision
	req.transition(StateRouted)
	req.log.Info().
		Str("assistant", decision.Assistant.Name).
		Str("mode", string(decision.Mode)).
		Float64("confidence", decision.Confidence).
		Msg(decision.Rationale)
	if o.observer != nil {
		o.observer.RequestRouted(decision.Mode)
	}

	out := make(chan Event, 16)
	go o.run(ctx, req, out)
	return out, decision, nil
}

// classify ranks assistants for the query. A forced assistant skips
// classification entirely; a classifier failure degrades to an empty ranking,
// which the router resolves to the fallback profile.
func (o *Orchestrator) classify(ctx context.Context, req *request) []routing.Candidate {
	if req.query.ForcedAssistant != "" {
		return nil
	}
	cctx, cancel := context.WithDeadline(ctx, req.deadline)
	defer cancel()
	ranked, err := o.classifier.Classify(cctx, req.query.Text, req.snap.List())
	if err != nil {
		req.log.Warn().Err(err).Msg("classification failed; degrading to direct routing")
		return nil
	}
	return ranked
}

// run executes the invocation half of the lifecycle on its own goroutine.
func (o *Orchestrator) run(ctx context.Context, req *request, out chan<- Event) {
	defer close(out)

	agent := req.decision.Assistant.Name
	req.transition(StateInvoking)

	// The thinking event goes out before the provider call so clients see
	// liveness immediately.
	thinking := Event{
		Type:    EventThinking,
		Agent:   agent,
		Content: fmt.Sprintf("Routing query to %s. %s", req.decision.Assistant.DisplayName, req.decision.Rationale),
	}
	select {
	case out <- thinking:
	case <-ctx.Done():
		req.transition(StateFailed)
		return
	}

	inv, err := o.buildInvocation(ctx, req)
	if err != nil {
		o.fail(ctx, req, out, err)
		return
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := o.client.StreamWithRetry(sctx, inv)
	if err != nil {
		o.fail(ctx, req, out, err)
		return
	}

	req.transition(StateStreaming)
	agg := &aggregator{
		out:                out,
		agent:              agent,
		firstTokenDeadline: req.deadline,
		idleTimeout:        o.idleTimeout,
		onFirstToken: func() {
			if o.observer != nil {
				o.observer.FirstToken(inv.Provider, time.Since(req.started))
			}
		},
	}
	res := agg.run(ctx, events)

	switch {
	case res.canceled:
		req.transition(StateFailed)
		req.log.Info().Msg("request canceled by caller")
		o.finish(req, "canceled")
	case res.err != nil:
		cancel() // stop the provider stream on timeout paths
		req.transition(StateFailed)
		req.log.Error().Err(res.err).
			Str("error_kind", res.errKind).
			Str("assistant", agent).
			Str("mode", string(req.decision.Mode)).
			Float64("confidence", req.decision.Confidence).
			Str("model", inv.Model).
			Str("provider", inv.Provider).
			Int("tokens", res.tokens).
			Msg("request failed")
		o.finish(req, res.errKind)
	default:
		req.transition(StateCompleted)
		req.log.Info().
			Int("tokens", res.tokens).
			Dur("elapsed", time.Since(req.started)).
			Msg("request completed")
		o.finish(req, "completed")
	}
}

// fail emits the single terminal error event for failures that happen before
// streaming begins.
func (o *Orchestrator) fail(ctx context.Context, req *request, out chan<- Event, err error) {
	kind := errorKind(err)
	req.transition(StateFailed)
	req.log.Error().Err(err).
		Str("error_kind", kind).
		Str("assistant", req.decision.Assistant.Name).
		Str("mode", string(req.decision.Mode)).
		Msg("invocation failed before streaming")
	select {
	case out <- Event{Type: EventError, Content: err.Error(), Agent: req.decision.Assistant.Name, ErrorKind: kind}:
	case <-ctx.Done():
	}
	o.finish(req, kind)
}

func (o *Orchestrator) finish(req *request, outcome string) {
	if o.observer != nil {
		o.observer.RequestFinished(req.decision.Mode, outcome)
	}
}

// buildInvocation assembles the provider invocation for the routed assistant:
// model selection with the profile's default as fallback preference, the
// profile's system prompt, retrieved document context, and the temperature
// clamped first by the profile's range and then by the model's.
func (o *Orchestrator) buildInvocation(ctx context.Context, req *request) (llm.Invocation, error) {
	profile := req.decision.Assistant

	spec := llm.SelectionSpec{
		Preferred:   req.query.PreferredModel,
		Category:    req.query.ModelCategory,
		Type:        req.query.ModelType,
		Temperature: profile.Temperature.Clamp(req.query.Temperature),
		Available:   o.client.Has,
	}
	if spec.Preferred == "" {
		spec.Preferred = profile.DefaultModel
	}
	sel, err := llm.SelectModel(spec)
	if err != nil {
		return llm.Invocation{}, err
	}

	userText := req.query.Text
	if snippets := o.retrieve(ctx, req); len(snippets) > 0 {
		userText = req.query.Text + "\n\n" + retrieval.FormatContext(snippets)
	}

	temp := sel.Temperature
	return llm.Invocation{
		Provider:    sel.Model.Provider,
		Model:       sel.Model.ID,
		Stream:      true,
		Temperature: &temp,
		Messages: []llm.Message{
			llm.System(profile.SystemPrompt),
			llm.User(userText),
		},
	}, nil
}

// retrieve fetches document context. Any failure is logged and swallowed.
func (o *Orchestrator) retrieve(ctx context.Context, req *request) []retrieval.Snippet {
	if o.retriever == nil {
		return nil
	}
	snippets, err := o.retriever.Retrieve(ctx, req.query.Text, o.retrievalLimit)
	if err != nil {
		req.log.Warn().Err(err).Msg("context retrieval failed; continuing without context")
		return nil
	}
	return snippets
}
