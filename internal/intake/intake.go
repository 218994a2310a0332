// Package intake defines the wire payload accepted by the assessment API and
// its normalization into the engine's Context. Normalization is the boundary
// contract: everything past it is lowercase, deduplicated, and range-checked.
package intake

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/linnemanlabs/acuity/internal/risk"
)

// Plausible physiological bounds for incoming vital readings. Values outside
// these are unit mistakes or sensor garbage, not extreme patients.
var vitalBounds = map[string][2]float64{
	risk.VitalTemperature:     {25, 45},
	risk.VitalHeartRate:       {20, 300},
	risk.VitalRespiratoryRate: {4, 150},
	risk.VitalOxygenSat:       {40, 100},
}

// Medication accepts either a bare string or an object with a name field,
// matching what upstream intake systems send.
type Medication struct {
	Name string `json:"name"`
}

// UnmarshalJSON decodes either form.
func (m *Medication) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		m.Name = s
		return nil
	}
	type medication Medication
	var obj medication
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("medication must be a string or an object with a name: %w", err)
	}
	*m = Medication(obj)
	return nil
}

// ObservationPayload is one historical reading in the submission.
type ObservationPayload struct {
	RecordedAt   time.Time          `json:"recorded_at"`
	Vitals       map[string]float64 `json:"vitals,omitempty"`
	SymptomCount int                `json:"symptom_count"`
}

// DemographicsPayload mirrors risk.Demographics on the wire.
type DemographicsPayload struct {
	AgeMonths int     `json:"age_months"`
	WeightKG  float64 `json:"weight_kg,omitempty"`
	Sex       string  `json:"sex,omitempty"`
}

// Submission is the raw assessment request body.
type Submission struct {
	PatientRef           string               `json:"patient_ref,omitempty"`
	Fingerprint          string               `json:"fingerprint,omitempty"`
	Symptoms             []string             `json:"symptoms"`
	Vitals               map[string]float64   `json:"vitals"`
	Demographics         DemographicsPayload  `json:"demographics"`
	Medications          []Medication         `json:"medications,omitempty"`
	Labs                 map[string]float64   `json:"labs,omitempty"`
	PhysicalExam         map[string]any       `json:"physical_exam,omitempty"`
	History              []ObservationPayload `json:"observation_history,omitempty"`
	SuspectedInfection   bool                 `json:"suspected_infection,omitempty"`
	HasImageAttachment   bool                 `json:"has_image_attachment,omitempty"`
	HasAudioAttachment   bool                 `json:"has_audio_attachment,omitempty"`
	SymptomDurationHours float64              `json:"symptom_duration_hours,omitempty"`
}

// Normalize validates the submission and produces the engine context.
// Symptoms are lowercased, trimmed, and deduplicated; vitals outside
// physiological bounds are rejected rather than silently dropped.
func (s *Submission) Normalize() (*risk.Context, error) {
	if s.Demographics.AgeMonths < 0 {
		return nil, fmt.Errorf("demographics.age_months %d is negative", s.Demographics.AgeMonths)
	}
	if s.SymptomDurationHours < 0 {
		return nil, fmt.Errorf("symptom_duration_hours %v is negative", s.SymptomDurationHours)
	}

	vitals := make(map[string]float64, len(s.Vitals))
	for name, v := range s.Vitals {
		if bounds, ok := vitalBounds[name]; ok && (v < bounds[0] || v > bounds[1]) {
			return nil, fmt.Errorf("vital %s = %v outside plausible range [%v,%v]", name, v, bounds[0], bounds[1])
		}
		vitals[name] = v
	}

	seen := make(map[string]struct{}, len(s.Symptoms))
	symptoms := make([]string, 0, len(s.Symptoms))
	for _, raw := range s.Symptoms {
		sym := strings.ToLower(strings.TrimSpace(raw))
		sym = strings.ReplaceAll(sym, " ", "_")
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		symptoms = append(symptoms, sym)
	}
	sort.Strings(symptoms)

	meds := make([]string, 0, len(s.Medications))
	for _, m := range s.Medications {
		if name := strings.ToLower(strings.TrimSpace(m.Name)); name != "" {
			meds = append(meds, name)
		}
	}

	history := make([]risk.Observation, 0, len(s.History))
	for _, o := range s.History {
		history = append(history, risk.Observation{
			RecordedAt:   o.RecordedAt,
			Vitals:       o.Vitals,
			SymptomCount: o.SymptomCount,
		})
	}
	// Temporal scoring compares earliest vs latest; keep history ordered.
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].RecordedAt.Before(history[j].RecordedAt)
	})

	return &risk.Context{
		Symptoms: symptoms,
		Vitals:   vitals,
		Demographics: risk.Demographics{
			AgeMonths: s.Demographics.AgeMonths,
			WeightKG:  s.Demographics.WeightKG,
			Sex:       strings.ToLower(s.Demographics.Sex),
		},
		Medications:          meds,
		Labs:                 s.Labs,
		PhysicalExam:         s.PhysicalExam,
		History:              history,
		SuspectedInfection:   s.SuspectedInfection,
		HasImageAttachment:   s.HasImageAttachment,
		HasAudioAttachment:   s.HasAudioAttachment,
		SymptomDurationHours: s.SymptomDurationHours,
	}, nil
}
