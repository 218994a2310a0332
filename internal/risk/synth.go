package risk

// Floor placed under the blended score when a hard override fixes the tier,
// so the numeric score cannot contradict the overriding verdict.
var overrideScoreFloor = map[Tier]float64{
	TierCritical: 0.95,
	TierHigh:     0.85,
	TierModerate: 0.65,
	TierLow:      0.30,
}

// synthesize blends all available scores into the final verdict. scores holds
// the rule-based and ensemble results (nil entries already removed), clinical
// the calculator breakdown if the subsystem ran, override a terminal safety
// or clinical escalation if one fired. It always returns a complete Result.
func (e *Engine) synthesize(c *Context, scores []*ScoringResult, clinical *ClinicalResult, override *Override) *Result {
	// Weighted blend over the sources actually present.
	var (
		weightedSum  float64
		weightTotal  float64
		sourceScores []float64
		confidences  []float64
	)
	for _, s := range scores {
		w := e.cfg.weight(s.Source)
		weightedSum += s.Score * w
		weightTotal += w
		sourceScores = append(sourceScores, s.Score)
		confidences = append(confidences, s.Confidence)
	}
	if cs, ok := clinical.blendedScore(); ok {
		w := e.cfg.weight(SourceClinicalScoring)
		weightedSum += cs * w
		weightTotal += w
		sourceScores = append(sourceScores, cs)
		if clinical.anyContribution() {
			confidences = append(confidences, clinicalConfActive)
		} else {
			confidences = append(confidences, clinicalConfIdle)
		}
	}

	blended := fallbackBlendScore
	if weightTotal > 0 {
		blended = clamp01(weightedSum / weightTotal)
	}

	// Disagreement is measured against the raw blend, before any override
	// floor moves the score.
	variance := scoreVariance(sourceScores, blended)

	if override != nil {
		if floor := overrideScoreFloor[override.Tier]; blended < floor {
			blended = floor
		}
	}

	// Tier resolution: an override wins unconditionally; otherwise the
	// clinical risk level seeds the tier and individual scorers escalate it.
	// The consistency clamp at the end only ever escalates.
	var tier Tier
	switch {
	case override != nil:
		tier = override.Tier
	default:
		if clinical != nil && len(clinical.Calculators) > 0 {
			tier = clinical.RiskLevel
		}
		for _, s := range scores {
			tier = maxTier(tier, s.Tier)
		}
	}
	switch {
	case blended >= clampHighScore:
		tier = maxTier(tier, TierHigh)
	case blended >= clampModerateScore:
		tier = maxTier(tier, TierModerate)
	}

	confidence := e.confidence(confidences, variance, scores, clinical, override)

	halfWidth := 0.15*(1-confidence) + 0.05
	interval := Interval{
		Lower: clamp01(blended - halfWidth),
		Upper: clamp01(blended + halfWidth),
	}

	return e.aggregate(c, &Result{
		Tier:       tier,
		Score:      blended,
		Confidence: confidence,
		Interval:   interval,
	}, scores, clinical, override, variance)
}

// confidence derives the verdict confidence: the mean of the participating
// source confidences, penalized when the sources disagree, clamped to the
// configured band. Overrides carry hard-rule certainty; a run with no signal
// at all gets the conservative default.
func (e *Engine) confidence(confidences []float64, variance float64, scores []*ScoringResult, clinical *ClinicalResult, override *Override) float64 {
	if override != nil && override.Source == SourceSafetyRules {
		return confidenceCeil
	}
	if len(confidences) == 0 {
		return emptyConfidence
	}
	if noSignal(scores, clinical) && override == nil {
		return emptyConfidence
	}

	var sum float64
	for _, cf := range confidences {
		sum += cf
	}
	conf := sum / float64(len(confidences))

	if variance > disagreementVariance {
		conf -= disagreementPenalty
	}

	if conf < confidenceFloor {
		return confidenceFloor
	}
	if conf > confidenceCeil {
		return confidenceCeil
	}
	return conf
}

// noSignal reports whether every participating source scored zero.
func noSignal(scores []*ScoringResult, clinical *ClinicalResult) bool {
	for _, s := range scores {
		if s.Score > 0 {
			return false
		}
	}
	return !clinical.anyContribution()
}

// scoreVariance is the mean squared deviation of the individual source
// scores around the blended score.
func scoreVariance(scores []float64, blended float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		d := s - blended
		sum += d * d
	}
	return sum / float64(len(scores))
}

// aggregate fills the evidence fields and enforces the result contract:
// every list field non-nil, possibly empty, so consumers never null-check.
func (e *Engine) aggregate(c *Context, res *Result, scores []*ScoringResult, clinical *ClinicalResult, override *Override, variance float64) *Result {
	triggered := []string{}
	riskFactors := []string{}
	if override != nil {
		triggered = append(triggered, override.RuleIDs...)
		riskFactors = append(riskFactors, override.Messages...)
	}
	for _, s := range scores {
		if s.Source == SourceClinicalRules {
			triggered = append(triggered, s.Factors...)
		}
		riskFactors = append(riskFactors, s.Factors...)
	}
	riskFactors = append(riskFactors, clinical.factors()...)

	uncertainty := []string{}
	if len(c.Vitals) == 0 {
		uncertainty = append(uncertainty, "no vital signs recorded")
	}
	if c.SymptomDurationHours <= 0 {
		uncertainty = append(uncertainty, "symptom duration unknown")
	}
	if variance > disagreementVariance {
		uncertainty = append(uncertainty, "scoring sources disagree")
	}
	for _, s := range scores {
		if s.Confidence < 0.6 {
			uncertainty = append(uncertainty, "low-confidence scoring source: "+s.Source)
		}
	}

	res.TriggeredRules = dedup(triggered)
	res.RiskFactors = dedup(riskFactors)
	res.ProtectiveFactors = protectiveFactors(c)
	res.UncertaintyFactors = dedup(uncertainty)
	res.MissingData = missingData(c, clinical)
	if clinical != nil && len(clinical.Calculators) > 0 {
		res.Clinical = clinical
	}
	return res
}

// protectiveFactors collects explicit positive signals straight from the
// context, independent of the scorers.
func protectiveFactors(c *Context) []string {
	out := []string{}
	if spo2, ok := c.Vital(VitalOxygenSat); ok && spo2 >= 97 {
		out = append(out, "normal oxygen saturation")
	}
	if temp, ok := c.Vital(VitalTemperature); ok && temp < 38.0 {
		out = append(out, "afebrile")
	}
	if hr, ok := c.Vital(VitalHeartRate); ok && c.HasDemographics() {
		age := c.Demographics.AgeMonths
		if !tachycardic(age, hr) && !bradycardic(age, hr) {
			out = append(out, "heart rate within normal range for age")
		}
	}
	if h, ok := c.ExamString("hydration"); ok && h == "normal" {
		out = append(out, "well hydrated")
	}
	if a, ok := c.ExamString("appetite"); ok && a == "normal" {
		out = append(out, "appetite maintained")
	}
	return out
}

// missingData lists the context sections absent from this assessment plus
// the calculator inputs the clinical subsystem reported missing.
func missingData(c *Context, clinical *ClinicalResult) []string {
	out := []string{}
	if len(c.Vitals) == 0 {
		out = append(out, "vitals")
	}
	if !c.HasDemographics() {
		out = append(out, "demographics")
	}
	if c.SymptomDurationHours <= 0 {
		out = append(out, "symptom_duration")
	}
	if len(c.Medications) == 0 {
		out = append(out, "medications")
	}
	if len(c.History) == 0 {
		out = append(out, "observation_history")
	}
	if clinical != nil {
		out = append(out, clinical.Missing...)
	}
	return dedup(out)
}

// dedup removes duplicates preserving first-seen order. Never returns nil.
func dedup(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, s := range items {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
