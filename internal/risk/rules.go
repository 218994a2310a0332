package risk

import (
	"fmt"
	"sort"
)

// DefaultRules returns the built-in predicate set, sorted by priority.
// The returned slice and its predicates are shared read-only configuration;
// callers must not mutate them.
func DefaultRules() []*Predicate {
	rules := []*Predicate{
		// Safety rules. Any trigger ends the pipeline with a hard override.
		{
			ID:       "safety_infant_fever",
			Name:     "Fever in infant under 3 months",
			Category: CategorySafety,
			Tier:     TierCritical,
			Priority: 1,
			Eval: func(c *Context) Outcome {
				temp, ok := c.Vital(VitalTemperature)
				if !ok || c.Demographics.AgeMonths >= 3 {
					return Outcome{}
				}
				if temp >= 38.0 {
					return Outcome{Triggered: true, Message: fmt.Sprintf("fever %.1f°C at %d months of age", temp, c.Demographics.AgeMonths)}
				}
				return Outcome{}
			},
		},
		{
			ID:       "safety_severe_hypoxia",
			Name:     "Oxygen saturation below 90%",
			Category: CategorySafety,
			Tier:     TierCritical,
			Priority: 2,
			Eval: func(c *Context) Outcome {
				spo2, ok := c.Vital(VitalOxygenSat)
				if ok && spo2 < 90 {
					return Outcome{Triggered: true, Message: fmt.Sprintf("oxygen saturation %.0f%%", spo2)}
				}
				return Outcome{}
			},
		},
		{
			ID:       "safety_unresponsive",
			Name:     "Unresponsiveness or seizure",
			Category: CategorySafety,
			Tier:     TierCritical,
			Priority: 3,
			Eval: func(c *Context) Outcome {
				if c.HasAnySymptom("unresponsive", "seizure", "loss_of_consciousness") {
					return Outcome{Triggered: true, Message: "altered consciousness or seizure reported"}
				}
				if lvl, ok := c.ExamString("responsiveness"); ok && (lvl == "unresponsive" || lvl == "pain_only") {
					return Outcome{Triggered: true, Message: "reduced responsiveness on examination"}
				}
				return Outcome{}
			},
		},
		{
			ID:       "safety_respiratory_failure",
			Name:     "Signs of respiratory failure",
			Category: CategorySafety,
			Tier:     TierCritical,
			Priority: 4,
			Eval: func(c *Context) Outcome {
				rr, ok := c.Vital(VitalRespiratoryRate)
				if !ok {
					return Outcome{}
				}
				distress := c.HasAnySymptom("grunting", "apnea") ||
					examBool(c, "retractions") || examBool(c, "cyanosis")
				if distress && tachypneic(c.Demographics.AgeMonths, rr) {
					return Outcome{Triggered: true, Message: fmt.Sprintf("respiratory distress with rate %.0f/min", rr)}
				}
				return Outcome{}
			},
		},
		{
			ID:       "safety_meningitis_signs",
			Name:     "Fever with meningeal signs",
			Category: CategorySafety,
			Tier:     TierCritical,
			Priority: 5,
			Eval: func(c *Context) Outcome {
				temp, ok := c.Vital(VitalTemperature)
				if !ok || temp < 38.0 {
					return Outcome{}
				}
				if c.HasAnySymptom("stiff_neck", "bulging_fontanelle", "petechial_rash", "photophobia") {
					return Outcome{Triggered: true, Message: "fever with meningeal signs"}
				}
				return Outcome{}
			},
		},
		{
			ID:       "safety_bradycardia",
			Name:     "Heart rate below age floor",
			Category: CategorySafety,
			Tier:     TierCritical,
			Priority: 6,
			Eval: func(c *Context) Outcome {
				hr, ok := c.Vital(VitalHeartRate)
				if ok && bradycardic(c.Demographics.AgeMonths, hr) {
					return Outcome{Triggered: true, Message: fmt.Sprintf("heart rate %.0f below age floor", hr)}
				}
				return Outcome{}
			},
		},
		{
			ID:       "safety_severe_dehydration",
			Name:     "Signs of severe dehydration",
			Category: CategorySafety,
			Tier:     TierHigh,
			Priority: 7,
			Eval: func(c *Context) Outcome {
				signs := 0
				if c.HasSymptom("no_urination") {
					signs++
				}
				if examBool(c, "sunken_eyes") {
					signs++
				}
				if s, ok := c.ExamString("skin_turgor"); ok && s == "poor" {
					signs++
				}
				if signs >= 2 {
					return Outcome{Triggered: true, Message: "multiple severe dehydration signs"}
				}
				return Outcome{}
			},
		},

		// Clinical and heuristic rules, aggregated by the rule-based scorer.
		{
			ID:       "clinical_high_fever",
			Name:     "High fever",
			Category: CategoryClinical,
			Tier:     TierHigh,
			Priority: 100,
			Eval: func(c *Context) Outcome {
				temp, ok := c.Vital(VitalTemperature)
				if ok && temp >= 39.5 {
					return Outcome{Triggered: true, Message: fmt.Sprintf("temperature %.1f°C", temp)}
				}
				return Outcome{}
			},
		},
		{
			ID:       "clinical_fever",
			Name:     "Fever",
			Category: CategoryClinical,
			Tier:     TierModerate,
			Priority: 101,
			Eval: func(c *Context) Outcome {
				temp, ok := c.Vital(VitalTemperature)
				if ok && temp >= 38.0 && temp < 39.5 {
					return Outcome{Triggered: true, Message: fmt.Sprintf("temperature %.1f°C", temp)}
				}
				return Outcome{}
			},
		},
		{
			ID:       "clinical_borderline_hypoxia",
			Name:     "Borderline oxygen saturation",
			Category: CategoryClinical,
			Tier:     TierHigh,
			Priority: 102,
			Eval: func(c *Context) Outcome {
				spo2, ok := c.Vital(VitalOxygenSat)
				if ok && spo2 >= 90 && spo2 < 94 {
					return Outcome{Triggered: true, Message: fmt.Sprintf("oxygen saturation %.0f%%", spo2)}
				}
				return Outcome{}
			},
		},
		{
			ID:       "clinical_tachycardia",
			Name:     "Heart rate above age ceiling",
			Category: CategoryClinical,
			Tier:     TierModerate,
			Priority: 103,
			Eval: func(c *Context) Outcome {
				hr, ok := c.Vital(VitalHeartRate)
				if ok && tachycardic(c.Demographics.AgeMonths, hr) {
					return Outcome{Triggered: true, Message: fmt.Sprintf("heart rate %.0f above age ceiling", hr)}
				}
				return Outcome{}
			},
		},
		{
			ID:       "clinical_tachypnea",
			Name:     "Respiratory rate above age ceiling",
			Category: CategoryClinical,
			Tier:     TierModerate,
			Priority: 104,
			Eval: func(c *Context) Outcome {
				rr, ok := c.Vital(VitalRespiratoryRate)
				if ok && tachypneic(c.Demographics.AgeMonths, rr) {
					return Outcome{Triggered: true, Message: fmt.Sprintf("respiratory rate %.0f above age ceiling", rr)}
				}
				return Outcome{}
			},
		},
		{
			ID:       "clinical_breathing_difficulty",
			Name:     "Reported difficulty breathing",
			Category: CategoryClinical,
			Tier:     TierHigh,
			Priority: 105,
			Eval: func(c *Context) Outcome {
				if c.HasAnySymptom("difficulty_breathing", "shortness_of_breath", "wheezing") {
					return Outcome{Triggered: true, Message: "breathing difficulty reported"}
				}
				return Outcome{}
			},
		},
		{
			ID:       "clinical_poor_feeding",
			Name:     "Poor feeding or fluid intake",
			Category: CategoryClinical,
			Tier:     TierModerate,
			Priority: 106,
			Eval: func(c *Context) Outcome {
				if c.HasAnySymptom("poor_feeding", "refusing_fluids", "poor_appetite") {
					return Outcome{Triggered: true, Message: "reduced feeding or fluid intake"}
				}
				return Outcome{}
			},
		},
		{
			ID:       "clinical_persistent_vomiting",
			Name:     "Persistent vomiting or diarrhea",
			Category: CategoryClinical,
			Tier:     TierModerate,
			Priority: 107,
			Eval: func(c *Context) Outcome {
				if c.HasAnySymptom("persistent_vomiting", "bloody_stool") {
					return Outcome{Triggered: true, Message: "persistent vomiting or bloody stool"}
				}
				if c.HasSymptom("vomiting") && c.HasSymptom("diarrhea") {
					return Outcome{Triggered: true, Message: "combined vomiting and diarrhea"}
				}
				return Outcome{}
			},
		},
		{
			ID:       "heuristic_prolonged_course",
			Name:     "Symptoms beyond 72 hours",
			Category: CategoryHeuristic,
			Tier:     TierModerate,
			Priority: 200,
			Eval: func(c *Context) Outcome {
				if c.SymptomDurationHours > 72 {
					return Outcome{Triggered: true, Message: fmt.Sprintf("symptoms present for %.0f hours", c.SymptomDurationHours)}
				}
				return Outcome{}
			},
		},
		{
			ID:       "heuristic_young_infant",
			Name:     "Symptomatic infant under 6 months",
			Category: CategoryHeuristic,
			Tier:     TierModerate,
			Priority: 201,
			Eval: func(c *Context) Outcome {
				if c.HasDemographics() && c.Demographics.AgeMonths < 6 && len(c.Symptoms) > 0 {
					return Outcome{Triggered: true, Message: "symptomatic infant under 6 months"}
				}
				return Outcome{}
			},
		},
		{
			ID:       "heuristic_rash_with_fever",
			Name:     "Rash with fever",
			Category: CategoryHeuristic,
			Tier:     TierModerate,
			Priority: 202,
			Eval: func(c *Context) Outcome {
				temp, ok := c.Vital(VitalTemperature)
				if ok && temp >= 38.0 && c.HasSymptom("rash") {
					return Outcome{Triggered: true, Message: "rash accompanied by fever"}
				}
				return Outcome{}
			},
		},
		{
			ID:       "heuristic_polypharmacy",
			Name:     "Multiple concurrent medications",
			Category: CategoryHeuristic,
			Tier:     TierLow,
			Priority: 203,
			Eval: func(c *Context) Outcome {
				if len(c.Medications) >= 3 {
					return Outcome{Triggered: true, Message: fmt.Sprintf("%d concurrent medications", len(c.Medications))}
				}
				return Outcome{}
			},
		},
	}

	// Priority order is the evaluation order; keep it explicit and stable
	// rather than relying on construction order.
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })
	return rules
}

// examBool reads a boolean physical-exam finding; absent means false.
func examBool(c *Context, name string) bool {
	v, ok := c.PhysicalExam[name]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
