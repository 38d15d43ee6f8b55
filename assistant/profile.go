package assistant

import (
	"fmt"
	"strings"
)

// FallbackName is the generic profile every registry must contain. It serves
// queries no specialist clears the routing threshold for.
const FallbackName = "general"

// TemperatureRange bounds the sampling temperature a profile accepts.
type TemperatureRange struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Clamp forces t into the range.
func (r TemperatureRange) Clamp(t float64) float64 {
	if r.Min == 0 && r.Max == 0 {
		return t
	}
	if t < r.Min {
		return r.Min
	}
	if t > r.Max {
		return r.Max
	}
	return t
}

// Profile is one assistant persona. Immutable once loaded; referenced, never
// copied, by routing decisions for the lifetime of a request.
type Profile struct {
	Name         string           `yaml:"name" json:"name"`
	DisplayName  string           `yaml:"display_name" json:"display_name"`
	Description  string           `yaml:"description" json:"description"`
	Role         string           `yaml:"role" json:"role"`
	SystemPrompt string           `yaml:"system_prompt" json:"system_prompt"`
	DefaultModel string           `yaml:"default_model" json:"default_model,omitempty"`
	Temperature  TemperatureRange `yaml:"temperature" json:"temperature"`
	AllowedTools []string         `yaml:"allowed_tools" json:"allowed_tools,omitempty"`
	Keywords     []string         `yaml:"keywords" json:"keywords,omitempty"`
	TaskTypes    []string         `yaml:"task_types" json:"task_types,omitempty"`
}

// AllowsTool reports whether the profile may use the named tool.
func (p *Profile) AllowsTool(name string) bool {
	for _, t := range p.AllowedTools {
		if t == name {
			return true
		}
	}
	return false
}

// Normalize collapses a profile name for lookup: callers write
// "safetyauditor", "safety_auditor", or "Safety Auditor" interchangeably.
func Normalize(name string) string {
	name = strings.ToLower(name)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, name)
}

// NotFoundError reports a lookup for an unregistered assistant. It carries
// the full list of valid names so the caller can surface suggestions.
type NotFoundError struct {
	Name       string
	Valid      []string
	Suggestion string
}

func (e *NotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("assistant %q not found; did you mean %q? valid assistants: %s",
			e.Name, e.Suggestion, strings.Join(e.Valid, ", "))
	}
	return fmt.Sprintf("assistant %q not found; valid assistants: %s",
		e.Name, strings.Join(e.Valid, ", "))
}

// suggest picks the valid name closest to the requested one: a shared-prefix
// heuristic is enough to catch typos like "safetyaudit".
func suggest(name string, valid []string) string {
	norm := Normalize(name)
	best := ""
	bestLen := 0
	for _, v := range valid {
		n := Normalize(v)
		l := commonPrefixLen(norm, n)
		if l > bestLen {
			bestLen = l
			best = v
		}
	}
	if bestLen < 3 {
		return ""
	}
	return best
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
