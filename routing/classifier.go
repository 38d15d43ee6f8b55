package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sitecheck-ai/agentforge/assistant"
	"github.com/sitecheck-ai/agentforge/llm"
)

// SemanticScorer produces per-profile confidence scores for a query using
// semantic understanding. Implementations may be non-deterministic;
// deterministic test doubles substitute here.
type SemanticScorer interface {
	Score(ctx context.Context, query string, profiles []*assistant.Profile) (map[string]float64, error)
}

// Classifier ranks assistant profiles for a query. Keyword scoring is a pure
// function of the query and the profile set; when a SemanticScorer is
// configured its scores are blended in, and its failure quietly degrades to
// keyword-only scoring.
type Classifier struct {
	semantic SemanticScorer
	log      zerolog.Logger
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithSemanticScorer enables LLM-backed semantic scoring.
func WithSemanticScorer(s SemanticScorer) ClassifierOption {
	return func(c *Classifier) {
		c.semantic = s
	}
}

// WithClassifierLogger sets the classifier's logger.
func WithClassifierLogger(log zerolog.Logger) ClassifierOption {
	return func(c *Classifier) {
		c.log = log
	}
}

// NewClassifier creates a Classifier.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// semanticWeight is how much a successful semantic score contributes to the
// blended confidence; keyword evidence keeps the remainder so an adversarial
// semantic score cannot fully override observable keyword overlap.
const semanticWeight = 0.6

// Classify scores each candidate profile against the query and returns them
// sorted by descending confidence, ties broken by registry order. It returns
// an error only when it has nothing to rank.
func (c *Classifier) Classify(ctx context.Context, query string, profiles []*assistant.Profile) ([]Candidate, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no assistant profiles to classify against")
	}

	candidates := make([]Candidate, len(profiles))
	for i, p := range profiles {
		candidates[i] = Candidate{Profile: p, Confidence: keywordScore(query, p)}
	}

	if c.semantic != nil {
		scores, err := c.semantic.Score(ctx, query, profiles)
		if err != nil {
			// Degraded, never fatal: keyword scores stand on their own.
			c.log.Warn().Err(err).Msg("semantic classification degraded to keyword scoring")
		} else {
			for i := range candidates {
				if s, ok := scores[candidates[i].Profile.Name]; ok {
					s = clamp01(s)
					candidates[i].Confidence = semanticWeight*s + (1-semanticWeight)*candidates[i].Confidence
				}
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates, nil
}

// keywordScore is the deterministic match fraction: matched keywords and
// task types over the total declared, capped at 1.
func keywordScore(query string, p *assistant.Profile) float64 {
	total := len(p.Keywords) + len(p.TaskTypes)
	if total == 0 {
		return 0
	}
	q := strings.ToLower(query)
	matches := 0
	for _, kw := range p.Keywords {
		if strings.Contains(q, strings.ToLower(kw)) {
			matches++
		}
	}
	for _, tt := range p.TaskTypes {
		if strings.Contains(q, strings.ToLower(strings.ReplaceAll(tt, "_", " "))) {
			matches++
		}
	}
	score := float64(matches) / float64(total)
	if score > 1 {
		score = 1
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// LLMScorer delegates semantic scoring to a model call through the provider
// adapter. The call is an ordinary invocation and is subject to the same
// retry and timeout policy as any other.
type LLMScorer struct {
	client *llm.Client
	model  string
}

// NewLLMScorer creates an LLMScorer using the given model for scoring calls.
func NewLLMScorer(client *llm.Client, model string) *LLMScorer {
	return &LLMScorer{client: client, model: model}
}

// Score asks the model to rate each profile's fit for the query on [0,1].
func (s *LLMScorer) Score(ctx context.Context, query string, profiles []*assistant.Profile) (map[string]float64, error) {
	var roster strings.Builder
	for _, p := range profiles {
		fmt.Fprintf(&roster, "- %s: %s\n", p.Name, p.Description)
	}

	temp := 0.0
	prompt := fmt.Sprintf(`Rate how well each assistant fits this query on a 0.0-1.0 scale.

Query: %q

Assistants:
%s
Respond with a single JSON object mapping assistant name to score, nothing else.`, query, roster.String())

	resp, err := s.client.Complete(ctx, llm.Invocation{
		Model:       s.model,
		Temperature: &temp,
		Messages: []llm.Message{
			llm.System("You classify user queries against assistant capabilities. Respond with JSON only."),
			llm.User(prompt),
		},
	})
	if err != nil {
		return nil, err
	}

	scores := map[string]float64{}
	if err := json.Unmarshal([]byte(extractJSONObject(resp.Text)), &scores); err != nil {
		return nil, fmt.Errorf("parsing classifier response: %w", err)
	}
	return scores, nil
}

// extractJSONObject pulls the first JSON object out of a model response that
// may wrap it in prose or code fences.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return text
	}
	return text[start : end+1]
}
