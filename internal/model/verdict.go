package model

// Layer identifies one independent validation strategy.
type Layer int

const (
	LayerRules    Layer = 1 // Deterministic rule engine
	LayerAI       Layer = 2 // AI-assisted corroboration
	LayerOfficial Layer = 3 // Official-source corroboration
)

func (l Layer) String() string {
	switch l {
	case LayerRules:
		return "rules"
	case LayerAI:
		return "ai_corroboration"
	case LayerOfficial:
		return "official_sources"
	default:
		return "unknown"
	}
}

// LayerVerdict is one layer's judgment on a claim. Produced once per
// executed layer and never mutated afterwards.
type LayerVerdict struct {
	Layer          Layer    `json:"layer"`
	IsValid        bool     `json:"is_valid"`
	Confidence     int      `json:"confidence"` // 0-100
	Errors         []string `json:"errors,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	SourcesChecked []string `json:"sources_checked,omitempty"`
}

// ReconciledVerdict is the merged result of all executed layer verdicts.
// Derived and ephemeral; callers consume it within the same run.
type ReconciledVerdict struct {
	IsValid              bool     `json:"is_valid"`
	FinalConfidence      int      `json:"final_confidence"`
	FinalErrors          []string `json:"final_errors,omitempty"`
	FinalWarnings        []string `json:"final_warnings,omitempty"`
	DisagreementDetected bool     `json:"disagreement_detected"`
}
