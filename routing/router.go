package routing

import (
	"fmt"

	"github.com/sitecheck-ai/agentforge/assistant"
)

// DefaultThreshold is the confidence a top candidate must reach to be
// selected automatically.
const DefaultThreshold = 0.5

// Router applies the classifier's output plus an optional caller-forced
// override to pick exactly one execution path.
type Router struct {
	Threshold float64
}

// NewRouter creates a Router with the default threshold.
func NewRouter() *Router {
	return &Router{Threshold: DefaultThreshold}
}

// Route produces the request's single RoutingDecision.
//
// A forced assistant always wins, even over a higher-confidence automatic
// match: the caller asked for it by name, and silently overriding that would
// take control away from them. An unknown forced name fails with
// assistant.NotFoundError rather than falling back.
func (r *Router) Route(query Query, snap *assistant.Snapshot, ranked []Candidate) (*Decision, error) {
	threshold := r.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	if query.ForcedAssistant != "" {
		profile, err := snap.Get(query.ForcedAssistant)
		if err != nil {
			return nil, err
		}
		return &Decision{
			Assistant:  profile,
			Confidence: 1.0,
			Rationale:  fmt.Sprintf("caller forced assistant %q", query.ForcedAssistant),
			Mode:       ModeForced,
		}, nil
	}

	if len(ranked) > 0 && ranked[0].Confidence >= threshold {
		top := ranked[0]
		return &Decision{
			Assistant:  top.Profile,
			Confidence: top.Confidence,
			Rationale: fmt.Sprintf("classified as %q with %s confidence (%.2f)",
				top.Profile.Name, Band(top.Confidence), top.Confidence),
			Mode: ModeClassified,
		}, nil
	}

	confidence := 0.0
	if len(ranked) > 0 {
		confidence = ranked[0].Confidence
	}
	return &Decision{
		Assistant:  snap.Fallback(),
		Confidence: confidence,
		Rationale: fmt.Sprintf("no candidate cleared threshold %.2f (best %.2f); using fallback",
			threshold, confidence),
		Mode: ModeDirect,
	}, nil
}
