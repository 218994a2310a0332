// Package assessapi exposes the assessment HTTP API.
package assessapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/acuity/internal/assessment"
	"github.com/linnemanlabs/acuity/internal/intake"
	"github.com/linnemanlabs/acuity/internal/risk"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
)

// AssessmentService defines the business operations assessapi needs.
type AssessmentService interface {
	Submit(ctx context.Context, patientRef, fingerprint string, c *risk.Context) (*assessment.SubmitResult, error)
	Get(ctx context.Context, id string) (*assessment.Assessment, bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    AssessmentService
}

// New creates a new API handler.
func New(logger log.Logger, svc AssessmentService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("assessment service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/assessments", a.handleSubmit)
		r.Get("/assessments/{id}", a.handleGet)
	})
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub intake.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	c, err := sub.Normalize()
	if err != nil {
		a.logger.Warn(r.Context(), "rejected submission", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("acuity.patient_ref", sub.PatientRef))

	sr, err := a.svc.Submit(r.Context(), sub.PatientRef, sub.Fingerprint, c)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to submit assessment")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	if sr.Skipped {
		span.SetAttributes(attribute.String("acuity.submit.skipped", sr.Reason))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"skipped": true,
			"reason":  sr.Reason,
		})
		return
	}

	span.SetAttributes(attribute.String("acuity.assessment.id", sr.ID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"id": sr.ID})
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("acuity.assessment.id", id))

	rec, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get assessment", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("acuity.assessment.status", string(rec.Status)))
	if rec.Result != nil {
		span.SetAttributes(attribute.String("acuity.assessment.tier", rec.Result.Tier.String()))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rec)
}
