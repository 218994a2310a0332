package risk

import (
	"context"
	"fmt"

	"github.com/linnemanlabs/go-core/log"
)

// Calculator cut points. These mirror the externally documented scoring
// systems the calculators are modeled on; they are safety-relevant constants,
// not tuning knobs.
const (
	earlyWarningMax      = 9.0
	earlyWarningCritical = 7.0
	earlyWarningElevated = 4.0

	sepsisMax      = 5.0
	sepsisCritical = 3.0
	sepsisElevated = 2.0

	dehydrationMax      = 8.0
	dehydrationCritical = 6.0
	dehydrationElevated = 3.0

	respiratoryMax      = 12.0
	respiratoryCritical = 8.0
	respiratoryElevated = 4.0
)

// CalcScore is the structured output of one composite calculator.
type CalcScore struct {
	Name     string   `json:"name"`
	Score    float64  `json:"score"`
	Max      float64  `json:"max"`
	Critical bool     `json:"meets_critical_criteria"`
	Elevated bool     `json:"meets_elevated_criteria"`
	Factors  []string `json:"factors,omitempty"`
}

// ClinicalResult is the combined output of the clinical scoring subsystem.
type ClinicalResult struct {
	Calculators         []CalcScore `json:"calculators"`
	RiskLevel           Tier        `json:"risk_level"`
	ImmediateEscalation bool        `json:"immediate_escalation"`
	Missing             []string    `json:"missing,omitempty"`
}

// calculator computes one named composite severity score. ok=false means the
// calculator could not run; missing lists the inputs it needed.
type calculator struct {
	name    string
	compute func(*Context) (score CalcScore, ok bool, missing []string)
}

// clinicalCalculators is the fixed calculator set, shared read-only.
var clinicalCalculators = []calculator{
	{name: "early_warning", compute: computeEarlyWarning},
	{name: "sepsis_screen", compute: computeSepsisScreen},
	{name: "dehydration", compute: computeDehydration},
	{name: "respiratory", compute: computeRespiratory},
}

// runClinicalScoring runs every calculator, skipping those with missing
// inputs, and derives the overall clinical risk level from the threshold
// flags: any critical flag wins, then any elevated flag, then any nonzero
// contribution. A panicking calculator is logged and skipped.
func runClinicalScoring(ctx context.Context, c *Context, logger log.Logger) *ClinicalResult {
	result := &ClinicalResult{RiskLevel: TierLow}

	for _, calc := range clinicalCalculators {
		score, ok, missing := runCalculator(calc, c)
		if !ok {
			if len(missing) > 0 {
				logger.Info(ctx, "clinical calculator skipped", "calculator", calc.name, "missing", missing)
				result.Missing = append(result.Missing, missing...)
			}
			continue
		}
		result.Calculators = append(result.Calculators, score)

		switch {
		case score.Critical:
			result.RiskLevel = TierCritical
			result.ImmediateEscalation = true
		case score.Elevated:
			result.RiskLevel = maxTier(result.RiskLevel, TierHigh)
		case score.Score > 0:
			result.RiskLevel = maxTier(result.RiskLevel, TierModerate)
		}
	}

	return result
}

// runCalculator wraps compute with panic recovery so one bad calculator
// degrades to a skip instead of failing the subsystem.
func runCalculator(calc calculator, c *Context) (score CalcScore, ok bool, missing []string) {
	defer func() {
		if r := recover(); r != nil {
			score, ok, missing = CalcScore{}, false, nil
		}
	}()
	return calc.compute(c)
}

// blendedScore returns the clinical subsystem's contribution to the weighted
// blend: the mean of each calculator's normalized sub-score. ok=false when no
// calculator ran.
func (r *ClinicalResult) blendedScore() (float64, bool) {
	if r == nil || len(r.Calculators) == 0 {
		return 0, false
	}
	var sum float64
	for _, cs := range r.Calculators {
		if cs.Max > 0 {
			sum += cs.Score / cs.Max
		}
	}
	return sum / float64(len(r.Calculators)), true
}

// anyContribution reports whether any calculator produced a nonzero score.
func (r *ClinicalResult) anyContribution() bool {
	if r == nil {
		return false
	}
	for _, cs := range r.Calculators {
		if cs.Score > 0 {
			return true
		}
	}
	return false
}

// factors collects the contributing-factor strings across all calculators.
func (r *ClinicalResult) factors() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, cs := range r.Calculators {
		out = append(out, cs.Factors...)
	}
	return out
}

// computeEarlyWarning is a pediatric early-warning style composite: behavior,
// cardiovascular, and respiratory domains scored 0-3 each. Requires heart
// rate and respiratory rate.
func computeEarlyWarning(c *Context) (CalcScore, bool, []string) {
	hr, hasHR := c.Vital(VitalHeartRate)
	rr, hasRR := c.Vital(VitalRespiratoryRate)

	var missing []string
	if !hasHR {
		missing = append(missing, "vitals.heart_rate")
	}
	if !hasRR {
		missing = append(missing, "vitals.respiratory_rate")
	}
	if len(missing) > 0 {
		return CalcScore{}, false, missing
	}

	cs := CalcScore{Name: "early_warning", Max: earlyWarningMax}
	age := c.Demographics.AgeMonths

	// Behavior domain.
	if b, ok := c.ExamString("behavior"); ok {
		switch b {
		case "lethargic":
			cs.Score += 3
			cs.Factors = append(cs.Factors, "lethargic on examination")
		case "irritable":
			cs.Score += 2
			cs.Factors = append(cs.Factors, "irritable on examination")
		case "sleepy":
			cs.Score += 1
		}
	}

	// Cardiovascular domain.
	switch {
	case bradycardic(age, hr):
		cs.Score += 3
		cs.Factors = append(cs.Factors, "heart rate below age floor")
	case tachycardic(age, hr):
		cs.Score += 2
		cs.Factors = append(cs.Factors, "heart rate above age ceiling")
	}
	if refill, ok := c.ExamNumber("capillary_refill_seconds"); ok && refill >= 3 {
		cs.Score++
		cs.Factors = append(cs.Factors, fmt.Sprintf("capillary refill %.0fs", refill))
	}

	// Respiratory domain.
	if tachypneic(age, rr) {
		cs.Score += 2
		cs.Factors = append(cs.Factors, "respiratory rate above age ceiling")
	}
	if examBool(c, "retractions") {
		cs.Score++
		cs.Factors = append(cs.Factors, "chest retractions")
	}

	cs.Critical = cs.Score >= earlyWarningCritical
	cs.Elevated = cs.Score >= earlyWarningElevated
	return cs, true, nil
}

// computeSepsisScreen counts systemic-inflammatory criteria. Runs only when
// infection is suspected; temperature is a required input.
func computeSepsisScreen(c *Context) (CalcScore, bool, []string) {
	if !c.SuspectedInfection {
		return CalcScore{}, false, nil
	}
	temp, hasTemp := c.Vital(VitalTemperature)
	if !hasTemp {
		return CalcScore{}, false, []string{"vitals.temperature"}
	}

	cs := CalcScore{Name: "sepsis_screen", Max: sepsisMax}
	age := c.Demographics.AgeMonths

	if temp >= 38.5 || temp < 36.0 {
		cs.Score++
		cs.Factors = append(cs.Factors, fmt.Sprintf("temperature %.1f°C out of range", temp))
	}
	if hr, ok := c.Vital(VitalHeartRate); ok && tachycardic(age, hr) {
		cs.Score++
		cs.Factors = append(cs.Factors, "tachycardia with suspected infection")
	}
	if rr, ok := c.Vital(VitalRespiratoryRate); ok && tachypneic(age, rr) {
		cs.Score++
		cs.Factors = append(cs.Factors, "tachypnea with suspected infection")
	}
	if wbc, ok := c.Lab("wbc"); ok && (wbc > 15 || wbc < 5) {
		cs.Score++
		cs.Factors = append(cs.Factors, fmt.Sprintf("white cell count %.1f out of range", wbc))
	}
	if lactate, ok := c.Lab("lactate"); ok && lactate > 2.0 {
		cs.Score++
		cs.Factors = append(cs.Factors, fmt.Sprintf("lactate %.1f elevated", lactate))
	}

	cs.Critical = cs.Score >= sepsisCritical
	cs.Elevated = cs.Score >= sepsisElevated
	return cs, true, nil
}

// computeDehydration is a clinical dehydration scale: four exam findings
// scored 0-2 each. Requires at least one of the exam findings to be recorded.
func computeDehydration(c *Context) (CalcScore, bool, []string) {
	cs := CalcScore{Name: "dehydration", Max: dehydrationMax}
	found := false

	if appearance, ok := c.ExamString("general_appearance"); ok {
		found = true
		switch appearance {
		case "lethargic":
			cs.Score += 2
			cs.Factors = append(cs.Factors, "lethargic general appearance")
		case "restless":
			cs.Score++
		}
	}
	if examBool(c, "sunken_eyes") {
		found = true
		cs.Score += 2
		cs.Factors = append(cs.Factors, "sunken eyes")
	}
	if m, ok := c.ExamString("mucous_membranes"); ok {
		found = true
		switch m {
		case "dry":
			cs.Score += 2
			cs.Factors = append(cs.Factors, "dry mucous membranes")
		case "sticky":
			cs.Score++
		}
	}
	if tears, ok := c.ExamString("tears"); ok {
		found = true
		switch tears {
		case "absent":
			cs.Score += 2
			cs.Factors = append(cs.Factors, "absent tears")
		case "decreased":
			cs.Score++
		}
	}

	if !found {
		return CalcScore{}, false, []string{"physical_exam.hydration_findings"}
	}

	cs.Critical = cs.Score >= dehydrationCritical
	cs.Elevated = cs.Score >= dehydrationElevated
	return cs, true, nil
}

// computeRespiratory is a respiratory-distress composite over rate, effort,
// and oxygenation. Requires the respiratory rate.
func computeRespiratory(c *Context) (CalcScore, bool, []string) {
	rr, ok := c.Vital(VitalRespiratoryRate)
	if !ok {
		return CalcScore{}, false, []string{"vitals.respiratory_rate"}
	}

	cs := CalcScore{Name: "respiratory", Max: respiratoryMax}
	age := c.Demographics.AgeMonths
	limit := bandFor(age).rrHigh

	switch {
	case rr > limit*1.5:
		cs.Score += 3
		cs.Factors = append(cs.Factors, fmt.Sprintf("respiratory rate %.0f far above age ceiling", rr))
	case rr > limit:
		cs.Score += 2
		cs.Factors = append(cs.Factors, fmt.Sprintf("respiratory rate %.0f above age ceiling", rr))
	}

	if examBool(c, "retractions") {
		cs.Score += 2
		cs.Factors = append(cs.Factors, "chest retractions")
	}
	if examBool(c, "nasal_flaring") || c.HasSymptom("grunting") {
		cs.Score += 2
		cs.Factors = append(cs.Factors, "grunting or nasal flaring")
	}
	if c.HasSymptom("wheezing") {
		cs.Score++
		cs.Factors = append(cs.Factors, "wheezing")
	}

	if spo2, ok := c.Vital(VitalOxygenSat); ok {
		switch {
		case spo2 < 90:
			cs.Score += 4
			cs.Factors = append(cs.Factors, fmt.Sprintf("oxygen saturation %.0f%%", spo2))
		case spo2 < 94:
			cs.Score += 2
			cs.Factors = append(cs.Factors, fmt.Sprintf("oxygen saturation %.0f%%", spo2))
		}
	}

	cs.Critical = cs.Score >= respiratoryCritical
	cs.Elevated = cs.Score >= respiratoryElevated
	return cs, true, nil
}
