package assessapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/acuity/internal/assessment"
	"github.com/linnemanlabs/acuity/internal/assessment/memstore"
	"github.com/linnemanlabs/acuity/internal/risk"
	"github.com/linnemanlabs/go-core/log"
)

func newTestRouter(t *testing.T) (chi.Router, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	engine := risk.NewEngine(nil, log.Nop(), risk.EngineHooks{})
	svc := assessment.NewService(store, engine, log.Nop(), nil, nil, nil, time.Second)
	api := New(nil, svc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r, store
}

// New / constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	engine := risk.NewEngine(nil, log.Nop(), risk.EngineHooks{})
	svc := assessment.NewService(store, engine, log.Nop(), nil, nil, nil, time.Second)
	api := New(nil, svc)
	if api == nil {
		t.Fatal("New(nil, svc) returned nil API")
	}
	if api.logger == nil {
		t.Fatal("New(nil, svc) left logger nil; expected Nop logger")
	}
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil, nil) did not panic; expected panic for nil service")
		}
	}()
	New(nil, nil)
}

// Routing

func TestRegisterRoutes_Submission(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"POST valid submission", http.MethodPost, `{"patient_ref":"p-1","fingerprint":"fp-1","symptoms":["fever"],"vitals":{"temperature":38.2},"demographics":{"age_months":24}}`, http.StatusAccepted},
		{"POST invalid JSON", http.MethodPost, `{bad`, http.StatusBadRequest},
		{"POST implausible vitals", http.MethodPost, `{"symptoms":["fever"],"vitals":{"temperature":98.6},"demographics":{"age_months":24}}`, http.StatusBadRequest},
		{"GET not allowed", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"PUT not allowed", http.MethodPut, "", http.StatusMethodNotAllowed},
		{"DELETE not allowed", http.MethodDelete, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/api/v1/assessments", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("%s /api/v1/assessments = %d, want %d", tt.method, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleSubmit_ReturnsID(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	body := `{
		"patient_ref": "p-id",
		"symptoms": ["cough"],
		"vitals": {"temperature": 37.5},
		"demographics": {"age_months": 36}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["id"] == "" {
		t.Error("expected non-empty assessment id")
	}
}

func TestHandleSubmit_DedupPendingFingerprint(t *testing.T) {
	t.Parallel()

	r, store := newTestRouter(t)

	// Pre-seed a pending assessment with the same fingerprint
	_ = store.Put(context.Background(), &assessment.Assessment{
		ID:          "existing-id",
		Fingerprint: "fp-dedup",
		Status:      assessment.StatusPending,
	})

	body := `{
		"fingerprint": "fp-dedup",
		"symptoms": ["fever"],
		"vitals": {"temperature": 38.0},
		"demographics": {"age_months": 24}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["reason"] != "duplicate" {
		t.Errorf("reason = %v, want duplicate", resp["reason"])
	}
}

func TestHandleSubmit_AllowsReassessCompletedFingerprint(t *testing.T) {
	t.Parallel()

	r, store := newTestRouter(t)

	_ = store.Put(context.Background(), &assessment.Assessment{
		ID:          "old-id",
		Fingerprint: "fp-complete",
		Status:      assessment.StatusComplete,
	})

	body := `{
		"fingerprint": "fp-complete",
		"symptoms": ["fever"],
		"vitals": {"temperature": 38.0},
		"demographics": {"age_months": 24}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
}

// GET /api/v1/assessments/{id}

func TestHandleGet_Found(t *testing.T) {
	t.Parallel()

	r, store := newTestRouter(t)

	_ = store.Put(context.Background(), &assessment.Assessment{
		ID:     "a-found",
		Status: assessment.StatusComplete,
		Result: &risk.Result{
			Tier:               risk.TierModerate,
			Score:              0.4,
			Confidence:         0.7,
			TriggeredRules:     []string{},
			RiskFactors:        []string{},
			ProtectiveFactors:  []string{},
			UncertaintyFactors: []string{},
			MissingData:        []string{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assessments/a-found", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got assessment.Assessment
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != "a-found" {
		t.Errorf("id = %q, want a-found", got.ID)
	}
	if got.Result == nil || got.Result.Tier != risk.TierModerate {
		t.Errorf("result = %+v, want moderate tier", got.Result)
	}
}

func TestHandleGet_NotFound(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assessments/nonexistent", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// Tracing

func TestHandleGet_SetsSpanAttributes(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	r, store := newTestRouter(t)

	_ = store.Put(context.Background(), &assessment.Assessment{
		ID:     "a-span",
		Status: assessment.StatusComplete,
		Result: &risk.Result{
			Tier:               risk.TierHigh,
			Score:              0.8,
			Confidence:         0.9,
			TriggeredRules:     []string{},
			RiskFactors:        []string{},
			ProtectiveFactors:  []string{},
			UncertaintyFactors: []string{},
			MissingData:        []string{},
		},
	})

	// Handlers annotate whatever span is already on the request context,
	// so start one the way the otelhttp wrapper in main would.
	ctx, span := tp.Tracer("test").Start(context.Background(), "GET /api/v1/assessments/{id}")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/assessments/a-span", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	span.End()

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported spans = %d, want 1", len(spans))
	}

	attrs := make(map[string]string)
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	if attrs["acuity.assessment.id"] != "a-span" {
		t.Errorf("acuity.assessment.id = %q, want a-span", attrs["acuity.assessment.id"])
	}
	if attrs["acuity.assessment.status"] != "complete" {
		t.Errorf("acuity.assessment.status = %q, want complete", attrs["acuity.assessment.status"])
	}
	if attrs["acuity.assessment.tier"] != "high" {
		t.Errorf("acuity.assessment.tier = %q, want high", attrs["acuity.assessment.tier"])
	}
}

// Error paths

type failingService struct{}

func (failingService) Submit(context.Context, string, string, *risk.Context) (*assessment.SubmitResult, error) {
	return nil, errors.New("store down")
}

func (failingService) Get(context.Context, string) (*assessment.Assessment, bool, error) {
	return nil, false, errors.New("store down")
}

func TestHandlers_ServiceErrors(t *testing.T) {
	t.Parallel()

	api := New(nil, failingService{})
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	body := `{"symptoms":["fever"],"vitals":{"temperature":38.0},"demographics":{"age_months":24}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("submit status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/assessments/any", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("get status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
