package risk

// Synthesis constants. Heuristic values replicated exactly for conformance;
// do not tune.
const (
	defaultSourceWeight = 0.10
	fallbackBlendScore  = 0.30

	clinicalConfActive = 0.85 // clinical scoring present with nonzero contribution
	clinicalConfIdle   = 0.70 // clinical scoring present, all zero

	disagreementVariance = 0.05
	disagreementPenalty  = 0.10
	confidenceFloor      = 0.30
	confidenceCeil       = 0.95

	clampModerateScore = 0.60 // blended score >= this forces at least moderate
	clampHighScore     = 0.80 // blended score >= this forces at least high

	// Conservative fallbacks for the degenerate paths.
	timeoutConfidence = 0.40
	emptyConfidence   = 0.50
)

// Config is the process-wide, read-only engine configuration: the predicate
// set, the ensemble, and the blend weight per scoring source. Construct it
// once at startup and share it by pointer into every assessment; concurrent
// assessments read it freely with no locking.
type Config struct {
	Rules   []*Predicate
	Scorers []Scorer
	Weights map[string]float64
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Rules: DefaultRules(),
		Scorers: []Scorer{
			TabularScorer{},
			TemporalScorer{},
			MultimodalScorer{},
		},
		Weights: map[string]float64{
			SourceClinicalScoring: 0.35,
			SourceClinicalRules:   0.30,
			SourceTabular:         0.20,
			SourceTemporal:        0.10,
			SourceMultimodal:      0.05,
		},
	}
}

// weight returns the blend weight for a scoring source.
func (c *Config) weight(source string) float64 {
	if w, ok := c.Weights[source]; ok {
		return w
	}
	return defaultSourceWeight
}
