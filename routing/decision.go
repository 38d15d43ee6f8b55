package routing

import (
	"github.com/sitecheck-ai/agentforge/assistant"
	"github.com/sitecheck-ai/agentforge/llm"
)

// Query is the normalized request the router and orchestrator operate on.
// Created at request ingress and read-only thereafter.
type Query struct {
	Text            string
	ForcedAssistant string
	Temperature     float64
	PreferredModel  string
	ModelType       string
	ModelCategory   llm.ModelCategory
}

// Mode records how the routing decision was reached.
type Mode string

const (
	// ModeForced means the caller explicitly named the assistant.
	ModeForced Mode = "FORCED"
	// ModeClassified means the top candidate cleared the routing threshold.
	ModeClassified Mode = "CLASSIFIED"
	// ModeDirect means no candidate cleared the threshold and the generic
	// fallback profile was selected.
	ModeDirect Mode = "DIRECT"
)

// Decision is the single routing outcome of one request.
type Decision struct {
	Assistant  *assistant.Profile
	Confidence float64
	Rationale  string
	Mode       Mode
}

// Candidate pairs a profile with the classifier's confidence that it is the
// right handler for a query.
type Candidate struct {
	Profile    *assistant.Profile
	Confidence float64
}

// Confidence bands. Fixed semantics, not tunable per call.
const (
	BandHigh   = 0.8 // strong keyword/description match
	BandMedium = 0.5 // partial capability match
)

// Band names the confidence band a score falls into.
func Band(confidence float64) string {
	switch {
	case confidence >= BandHigh:
		return "high"
	case confidence >= BandMedium:
		return "medium"
	default:
		return "low"
	}
}
