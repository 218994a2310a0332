package risk

import "fmt"

// Scorer is one independent estimator contributing a single ScoringResult.
// Scorers are pure functions of the context with no side effects and no
// dependency on one another, which is what licenses concurrent execution.
// ok=false means the scorer is inactive for this context (e.g. no history).
type Scorer interface {
	Source() string
	Score(c *Context) (result *ScoringResult, ok bool)
}

// Per-feature contribution amounts for the tabular scorer.
const (
	tabularSymptomStep    = 0.05
	tabularSymptomCap     = 0.30
	tabularFeverHigh      = 0.30 // temperature >= 40.0
	tabularFeverModerate  = 0.20 // temperature >= 39.0
	tabularFeverLow       = 0.10 // temperature >= 38.0
	tabularAgeUnderThree  = 0.20
	tabularAgeUnderTwelve = 0.10
	tabularSevereStep     = 0.15
	tabularSevereCap      = 0.30
	tabularConfidence     = 0.70
)

// severePhenotypes are symptom identifiers treated as severe clinical
// phenotype flags by the tabular scorer.
var severePhenotypes = []string{
	"difficulty_breathing",
	"chest_pain",
	"severe_headache",
	"bloody_stool",
	"severe_abdominal_pain",
}

// TabularScorer combines symptom count, fever magnitude, age-based risk
// weighting, and severe phenotype flags into one bounded score.
type TabularScorer struct{}

func (TabularScorer) Source() string { return SourceTabular }

func (TabularScorer) Score(c *Context) (*ScoringResult, bool) {
	var score float64
	var factors []string

	if n := len(c.Symptoms); n > 0 {
		contribution := min(float64(n)*tabularSymptomStep, tabularSymptomCap)
		score += contribution
		factors = append(factors, fmt.Sprintf("%d reported symptoms", n))
	}

	if temp, ok := c.Vital(VitalTemperature); ok {
		switch {
		case temp >= 40.0:
			score += tabularFeverHigh
			factors = append(factors, fmt.Sprintf("very high fever %.1f°C", temp))
		case temp >= 39.0:
			score += tabularFeverModerate
			factors = append(factors, fmt.Sprintf("high fever %.1f°C", temp))
		case temp >= 38.0:
			score += tabularFeverLow
			factors = append(factors, fmt.Sprintf("fever %.1f°C", temp))
		}
	}

	if c.HasDemographics() {
		switch age := c.Demographics.AgeMonths; {
		case age < 3:
			score += tabularAgeUnderThree
			factors = append(factors, "age under 3 months")
		case age < 12:
			score += tabularAgeUnderTwelve
			factors = append(factors, "age under 12 months")
		}
	}

	var severe float64
	for _, s := range severePhenotypes {
		if c.HasSymptom(s) {
			severe += tabularSevereStep
			factors = append(factors, "severe phenotype: "+s)
		}
	}
	score += min(severe, tabularSevereCap)

	score = clamp01(score)
	return &ScoringResult{
		Source:     SourceTabular,
		Score:      score,
		Tier:       tierForScore(score),
		Confidence: tabularConfidence,
		Factors:    factors,
	}, true
}

// Temporal scorer constants.
const (
	temporalBase         = 0.10
	temporalFeverTrend   = 0.30 // temperature rose by >= 0.5°C
	temporalSymptomTrend = 0.20 // symptom count increased
	temporalConfidence   = 0.60
)

// TemporalScorer compares recent vs. earlier readings for worsening trends.
// Active only when at least two observations of history are present.
type TemporalScorer struct{}

func (TemporalScorer) Source() string { return SourceTemporal }

func (TemporalScorer) Score(c *Context) (*ScoringResult, bool) {
	if len(c.History) < 2 {
		return nil, false
	}

	earliest := c.History[0]
	latest := c.History[len(c.History)-1]

	score := temporalBase
	var factors []string

	t0, ok0 := earliest.Vitals[VitalTemperature]
	t1, ok1 := latest.Vitals[VitalTemperature]
	if ok0 && ok1 && t1-t0 >= 0.5 {
		score += temporalFeverTrend
		factors = append(factors, fmt.Sprintf("temperature rising %.1f°C to %.1f°C", t0, t1))
	}

	if latest.SymptomCount > earliest.SymptomCount {
		score += temporalSymptomTrend
		factors = append(factors, fmt.Sprintf("symptom count rising %d to %d", earliest.SymptomCount, latest.SymptomCount))
	}

	score = clamp01(score)
	return &ScoringResult{
		Source:     SourceTemporal,
		Score:      score,
		Tier:       tierForScore(score),
		Confidence: temporalConfidence,
		Factors:    factors,
	}, true
}

// Multimodal scorer constants. Attachments are flagged, not analyzed, so the
// contribution is a low fixed baseline with matching low confidence.
const (
	multimodalBaseline   = 0.20
	multimodalConfidence = 0.50
)

// MultimodalScorer contributes a fixed baseline when image or audio
// attachments are flagged present.
type MultimodalScorer struct{}

func (MultimodalScorer) Source() string { return SourceMultimodal }

func (MultimodalScorer) Score(c *Context) (*ScoringResult, bool) {
	if !c.HasImageAttachment && !c.HasAudioAttachment {
		return nil, false
	}

	var factors []string
	if c.HasImageAttachment {
		factors = append(factors, "unreviewed image attachment present")
	}
	if c.HasAudioAttachment {
		factors = append(factors, "unreviewed audio attachment present")
	}

	return &ScoringResult{
		Source:     SourceMultimodal,
		Score:      multimodalBaseline,
		Tier:       tierForScore(multimodalBaseline),
		Confidence: multimodalConfidence,
		Factors:    factors,
	}, true
}
