package assistant

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// profileFile is the on-disk shape of an assistants file.
type profileFile struct {
	Assistants []Profile `yaml:"assistants"`
}

// LoadFile reads assistant profiles from a YAML file and appends the builtin
// fallback profile when the file does not define one.
func LoadFile(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading assistants file: %w", err)
	}
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing assistants file %s: %w", path, err)
	}
	if len(f.Assistants) == 0 {
		return nil, fmt.Errorf("assistants file %s defines no assistants", path)
	}

	profiles := f.Assistants
	hasFallback := false
	for i := range profiles {
		applyDefaults(&profiles[i])
		if Normalize(profiles[i].Name) == FallbackName {
			hasFallback = true
		}
	}
	if !hasFallback {
		profiles = append(profiles, fallbackProfile())
	}
	return profiles, nil
}

func applyDefaults(p *Profile) {
	if p.DisplayName == "" {
		p.DisplayName = p.Name
	}
	if p.Temperature.Min == 0 && p.Temperature.Max == 0 {
		p.Temperature = TemperatureRange{Min: 0.0, Max: 1.0}
	}
	if p.SystemPrompt == "" && p.Role != "" {
		p.SystemPrompt = p.Role
	}
}

func fallbackProfile() Profile {
	return Profile{
		Name:        FallbackName,
		DisplayName: "General Assistant",
		Description: "A general-purpose assistant that handles non-specialized queries",
		Role:        "General-Purpose Assistant",
		SystemPrompt: "You are a helpful general-purpose assistant that handles queries not requiring " +
			"specialized domain knowledge. You provide clear, concise, and relevant responses while " +
			"recognizing when to defer to specialists.",
		Temperature: TemperatureRange{Min: 0.0, Max: 1.0},
		Keywords:    []string{"help", "information", "question", "general"},
		TaskTypes:   []string{"general_assistance", "information", "conversation"},
	}
}

// DefaultProfiles returns the builtin construction-safety roster used when
// no assistants file is configured.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:        "complianceadvisor",
			DisplayName: "Compliance Advisor",
			Description: "Specializes in construction regulations and compliance requirements",
			Role:        "Regulatory Compliance Specialist",
			SystemPrompt: "You are a regulatory compliance specialist for construction projects. " +
				"Review and interpret construction safety regulations, provide guidance on compliance " +
				"requirements, assess regulatory impacts, and recommend compliance strategies.",
			DefaultModel: "claude-opus-4-6",
			Temperature:  TemperatureRange{Min: 0.0, Max: 0.5},
			Keywords:     []string{"osha", "regulation", "compliance", "building code", "standard", "permit"},
			TaskTypes:    []string{"regulatory_analysis", "documentation_review", "risk_assessment"},
		},
		{
			Name:        "safetyauditor",
			DisplayName: "Safety Auditor",
			Description: "Conducts safety audits and inspections of construction sites",
			Role:        "Site Safety Inspector",
			SystemPrompt: "You are a site safety inspector. Perform comprehensive safety audits, " +
				"identify potential hazards and risks, document safety violations, and recommend " +
				"corrective actions.",
			DefaultModel: "claude-opus-4-6",
			Temperature:  TemperatureRange{Min: 0.0, Max: 0.6},
			Keywords:     []string{"safety", "audit", "inspection", "hazard", "ppe", "fall protection", "violation"},
			TaskTypes:    []string{"site_inspection", "hazard_assessment", "safety_reporting"},
		},
		{
			Name:        "productsupport",
			DisplayName: "Product Support",
			Description: "Provides guidance on construction equipment and materials safety",
			Role:        "Equipment and Materials Specialist",
			SystemPrompt: "You are an equipment and materials specialist. Advise on proper equipment " +
				"usage, review material safety data sheets, recommend safety equipment, and provide " +
				"maintenance guidelines.",
			Temperature: TemperatureRange{Min: 0.0, Max: 0.7},
			Keywords:    []string{"equipment", "material", "msds", "maintenance", "scaffold", "crane", "tool"},
			TaskTypes:   []string{"technical_support", "equipment_knowledge", "material_safety"},
		},
		{
			Name:        "meetingwriter",
			DisplayName: "Meeting Writer",
			Description: "Handles construction meeting documentation and communication",
			Role:        "Documentation Specialist",
			SystemPrompt: "You are a documentation specialist. Document safety meetings, create " +
				"meeting agendas, record action items, and draft meeting minutes.",
			Temperature: TemperatureRange{Min: 0.0, Max: 0.8},
			Keywords:    []string{"meeting", "minutes", "agenda", "action item", "toolbox talk", "documentation"},
			TaskTypes:   []string{"documentation", "communication", "organization"},
		},
		{
			Name:        "incidentinvestigator",
			DisplayName: "Incident Investigator",
			Description: "Investigates and analyzes safety incidents and near-misses",
			Role:        "Safety Incident Analyst",
			SystemPrompt: "You are a safety incident analyst. Investigate safety incidents, analyze " +
				"root causes, document findings, and recommend preventive measures.",
			DefaultModel: "claude-opus-4-6",
			Temperature:  TemperatureRange{Min: 0.0, Max: 0.5},
			Keywords:     []string{"incident", "accident", "near-miss", "investigation", "root cause", "injury"},
			TaskTypes:    []string{"investigation", "analysis", "documentation"},
		},
		fallbackProfile(),
	}
}
