package assessment

import (
	"time"

	"github.com/linnemanlabs/acuity/internal/risk"
)

// Status tracks where an assessment is in its lifecycle.
type Status string

const (
	// StatusPending means created, not yet started
	StatusPending Status = "pending"

	// StatusInProgress means currently being processed
	StatusInProgress Status = "in_progress"

	// StatusComplete means finished successfully
	StatusComplete Status = "complete"

	// StatusFailed means finished with errors
	StatusFailed Status = "failed"
)

// Assessment is one submitted snapshot and its verdict.
type Assessment struct {
	ID          string        `json:"id"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	Status      Status        `json:"status"`
	PatientRef  string        `json:"patient_ref,omitempty"`
	Context     *risk.Context `json:"context,omitempty"`
	Result      *risk.Result  `json:"result,omitempty"`
	Explanation string        `json:"explanation,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Duration    float64       `json:"duration_seconds,omitempty"`
}
