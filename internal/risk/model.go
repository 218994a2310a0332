package risk

// Scoring source identifiers used in the weighted blend.
const (
	SourceSafetyRules     = "safety_rules"
	SourceClinicalScoring = "clinical_scoring"
	SourceClinicalRules   = "clinical_rules"
	SourceTabular         = "ml_tabular"
	SourceTemporal        = "ml_temporal"
	SourceMultimodal      = "ml_multimodal"
)

// ScoringResult is one scorer's contribution: a bounded score, the tier it
// implies, the scorer's confidence, and the factors behind it.
type ScoringResult struct {
	Source     string   `json:"source"`
	Score      float64  `json:"score"`
	Tier       Tier     `json:"tier"`
	Confidence float64  `json:"confidence"`
	Factors    []string `json:"factors,omitempty"`
}

// Interval is the symmetric uncertainty band around the blended risk score.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Result is the final assessment artifact. It is immutable once returned:
// a value object consumed by escalation logic, explanation rendering, and
// persistence. All list fields are always non-nil, possibly empty.
type Result struct {
	Tier               Tier            `json:"risk_tier"`
	Score              float64         `json:"risk_score"`
	Confidence         float64         `json:"confidence"`
	Interval           Interval        `json:"confidence_interval"`
	TriggeredRules     []string        `json:"triggered_rules"`
	RiskFactors        []string        `json:"risk_factors"`
	ProtectiveFactors  []string        `json:"protective_factors"`
	UncertaintyFactors []string        `json:"uncertainty_factors"`
	MissingData        []string        `json:"missing_data"`
	Clinical           *ClinicalResult `json:"clinical_scores,omitempty"`
}

// tierForScore maps a bounded score to a tier. The reference implementation
// carried a second branch at 0.5 that also resolved to moderate; only the
// effective mapping is reproduced here.
func tierForScore(score float64) Tier {
	switch {
	case score >= 0.75:
		return TierHigh
	case score >= 0.25:
		return TierModerate
	default:
		return TierLow
	}
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
