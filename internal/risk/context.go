package risk

import "time"

// Well-known vital sign keys in Context.Vitals.
const (
	VitalTemperature     = "temperature"
	VitalHeartRate       = "heart_rate"
	VitalRespiratoryRate = "respiratory_rate"
	VitalOxygenSat       = "oxygen_saturation"
)

// Demographics describes the patient the snapshot belongs to.
// A zero value means demographics were not provided.
type Demographics struct {
	AgeMonths int     `json:"age_months"`
	WeightKG  float64 `json:"weight_kg,omitempty"`
	Sex       string  `json:"sex,omitempty"`
}

// Observation is one historical reading used by the temporal scorer.
type Observation struct {
	RecordedAt   time.Time          `json:"recorded_at"`
	Vitals       map[string]float64 `json:"vitals,omitempty"`
	SymptomCount int                `json:"symptom_count"`
}

// Context is the normalized situational snapshot consumed by the engine.
// It is immutable for the duration of one assessment and owned exclusively
// by the invocation that created it; nothing in this package mutates it.
type Context struct {
	Symptoms             []string           `json:"symptoms"`
	Vitals               map[string]float64 `json:"vitals"`
	Demographics         Demographics       `json:"demographics"`
	Medications          []string           `json:"medications,omitempty"`
	Labs                 map[string]float64 `json:"labs,omitempty"`
	PhysicalExam         map[string]any     `json:"physical_exam,omitempty"`
	History              []Observation      `json:"observation_history,omitempty"`
	SuspectedInfection   bool               `json:"suspected_infection,omitempty"`
	HasImageAttachment   bool               `json:"has_image_attachment,omitempty"`
	HasAudioAttachment   bool               `json:"has_audio_attachment,omitempty"`
	SymptomDurationHours float64            `json:"symptom_duration_hours,omitempty"`
}

// Vital returns the named vital sign reading, if recorded.
func (c *Context) Vital(name string) (float64, bool) {
	v, ok := c.Vitals[name]
	return v, ok
}

// Lab returns the named lab value, if recorded.
func (c *Context) Lab(name string) (float64, bool) {
	v, ok := c.Labs[name]
	return v, ok
}

// HasSymptom reports whether the normalized symptom set contains s.
func (c *Context) HasSymptom(s string) bool {
	for _, sym := range c.Symptoms {
		if sym == s {
			return true
		}
	}
	return false
}

// HasAnySymptom reports whether any of the given symptoms is present.
func (c *Context) HasAnySymptom(symptoms ...string) bool {
	for _, s := range symptoms {
		if c.HasSymptom(s) {
			return true
		}
	}
	return false
}

// ExamString returns the named physical-exam finding as a string, if present.
func (c *Context) ExamString(name string) (string, bool) {
	v, ok := c.PhysicalExam[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ExamNumber returns the named physical-exam finding as a number, if present.
// JSON decoding yields float64 for numbers; ints are accepted for callers
// that build the context programmatically.
func (c *Context) ExamNumber(name string) (float64, bool) {
	v, ok := c.PhysicalExam[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// HasDemographics reports whether any demographics were provided.
func (c *Context) HasDemographics() bool {
	return c.Demographics != (Demographics{})
}
