package llm

// ModelCategory groups catalog entries by what callers ask for rather than
// by vendor naming schemes.
type ModelCategory string

const (
	CategoryReasoning     ModelCategory = "reasoning"
	CategoryFlagship      ModelCategory = "flagship"
	CategoryCostOptimized ModelCategory = "cost-optimized"
	CategoryLegacy        ModelCategory = "legacy"
	CategoryClaude        ModelCategory = "claude"
)

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID            string        `json:"id"`
	Provider      string        `json:"provider"`
	DisplayName   string        `json:"display_name"`
	Category      ModelCategory `json:"category"`
	Capabilities  []string      `json:"capabilities"`
	MaxTokens     int           `json:"max_tokens"`
	TempMin       float64       `json:"temp_min"`
	TempMax       float64       `json:"temp_max"`
	Aliases       []string      `json:"aliases,omitempty"`
	Priority      int           `json:"priority"` // lower = preferred
}

// Models is the built-in model catalog.
var Models = []ModelInfo{
	{
		ID: "claude-opus-4-6", Provider: "anthropic", DisplayName: "Claude Opus 4.6",
		Category:     CategoryClaude,
		Capabilities: []string{"conversation", "analysis", "tool_calling", "reasoning", "safety", "compliance"},
		MaxTokens:    32768, TempMin: 0.0, TempMax: 1.0,
		Aliases:  []string{"opus", "claude-opus"},
		Priority: 1,
	},
	{
		ID: "claude-sonnet-4-5", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5",
		Category:     CategoryClaude,
		Capabilities: []string{"conversation", "analysis", "tool_calling", "reasoning", "safety", "compliance"},
		MaxTokens:    16384, TempMin: 0.0, TempMax: 1.0,
		Aliases:  []string{"sonnet", "claude-sonnet"},
		Priority: 2,
	},
	{
		ID: "gpt-5.2", Provider: "openai", DisplayName: "GPT-5.2",
		Category:     CategoryFlagship,
		Capabilities: []string{"conversation", "analysis", "tool_calling", "reasoning", "safety", "compliance"},
		MaxTokens:    32768, TempMin: 0.0, TempMax: 2.0,
		Aliases:  []string{"gpt5"},
		Priority: 3,
	},
	{
		ID: "o3", Provider: "openai", DisplayName: "o3",
		Category:     CategoryReasoning,
		Capabilities: []string{"conversation", "analysis", "tool_calling", "reasoning"},
		MaxTokens:    32768, TempMin: 1.0, TempMax: 1.0,
		Priority: 4,
	},
	{
		ID: "gpt-5.2-mini", Provider: "openai", DisplayName: "GPT-5.2 Mini",
		Category:     CategoryCostOptimized,
		Capabilities: []string{"conversation", "analysis", "tool_calling"},
		MaxTokens:    16384, TempMin: 0.0, TempMax: 2.0,
		Aliases:  []string{"gpt5-mini", "mini"},
		Priority: 5,
	},
	{
		ID: "gpt-4-turbo", Provider: "openai", DisplayName: "GPT-4 Turbo",
		Category:     CategoryLegacy,
		Capabilities: []string{"conversation", "analysis", "tool_calling", "safety", "compliance"},
		MaxTokens:    4096, TempMin: 0.0, TempMax: 2.0,
		Aliases:  []string{"gpt-4", "gpt-4-turbo-preview"},
		Priority: 6,
	},
}

// GetModelInfo returns the catalog entry for a model ID or alias, or nil.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// ListModels returns all known models, optionally filtered by provider.
func ListModels(provider string) []ModelInfo {
	if provider == "" {
		result := make([]ModelInfo, len(Models))
		copy(result, Models)
		return result
	}
	var result []ModelInfo
	for _, m := range Models {
		if m.Provider == provider {
			result = append(result, m)
		}
	}
	return result
}

// Selection is a resolved model choice with the temperature clamped into the
// model's supported range.
type Selection struct {
	Model       ModelInfo
	Temperature float64
}

// SelectionSpec captures the caller's model preferences. Preferred is
// authoritative when it resolves to an available, capable model; Category is
// consulted next, then Type ("reasoning" or "default"), then catalog
// priority order.
type SelectionSpec struct {
	Preferred    string
	Category     ModelCategory
	Type         string
	Temperature  float64
	Capabilities []string
	Available    func(provider string) bool
}

func (s SelectionSpec) available(m ModelInfo) bool {
	if s.Available == nil {
		return true
	}
	return s.Available(m.Provider)
}

func (s SelectionSpec) capable(m ModelInfo) bool {
	for _, want := range s.Capabilities {
		found := false
		for _, have := range m.Capabilities {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func clampTemperature(t, lo, hi float64) float64 {
	if t < lo {
		return lo
	}
	if t > hi {
		return hi
	}
	return t
}

// SelectModel resolves a SelectionSpec against the catalog. An unknown or
// unavailable preferred model falls through to the category/type path rather
// than failing, so a stale client preference degrades instead of erroring.
func SelectModel(spec SelectionSpec) (Selection, error) {
	pick := func(m ModelInfo) Selection {
		return Selection{
			Model:       m,
			Temperature: clampTemperature(spec.Temperature, m.TempMin, m.TempMax),
		}
	}

	if spec.Preferred != "" {
		if info := GetModelInfo(spec.Preferred); info != nil && spec.available(*info) && spec.capable(*info) {
			return pick(*info), nil
		}
	}

	var candidates []ModelInfo
	for _, m := range Models {
		if !spec.available(m) || !spec.capable(m) {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		return Selection{}, BadRequestf("", nil, "no suitable model for requested capabilities")
	}

	best := func(filter func(ModelInfo) bool) *ModelInfo {
		var found *ModelInfo
		for i := range candidates {
			if !filter(candidates[i]) {
				continue
			}
			if found == nil || candidates[i].Priority < found.Priority {
				found = &candidates[i]
			}
		}
		return found
	}

	if spec.Category != "" {
		if m := best(func(m ModelInfo) bool { return m.Category == spec.Category }); m != nil {
			return pick(*m), nil
		}
	}
	if spec.Type == "reasoning" {
		if m := best(func(m ModelInfo) bool { return m.Category == CategoryReasoning }); m != nil {
			return pick(*m), nil
		}
	}

	return pick(*best(func(ModelInfo) bool { return true })), nil
}
