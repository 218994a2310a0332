package assessment

import (
	"context"
	"time"

	"github.com/linnemanlabs/acuity/internal/risk"
	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

// DefaultAssessTimeout bounds a single engine run when no timeout is configured.
const DefaultAssessTimeout = 10 * time.Second

// SubmitResult is the outcome of submitting a patient snapshot for assessment.
type SubmitResult struct {
	ID      string
	Skipped bool
	Reason  string
}

// Explainer produces a plain-language narrative for a completed assessment.
// Implementations must tolerate being called concurrently.
type Explainer interface {
	Explain(ctx context.Context, a *Assessment) (string, error)
}

// Notifier delivers high-acuity verdicts to an external channel.
type Notifier interface {
	Send(ctx context.Context, a *Assessment) error
}

// Service is the business boundary for assessment operations: dedup,
// lifecycle, async dispatch, and the per-run deadline.
type Service struct {
	store     Store
	engine    *risk.Engine
	logger    log.Logger
	metrics   *Metrics
	explainer Explainer
	notifier  Notifier
	timeout   time.Duration
}

// NewService creates a new assessment service. Metrics, explainer and
// notifier may be nil; timeout <= 0 falls back to DefaultAssessTimeout.
func NewService(store Store, engine *risk.Engine, logger log.Logger, metrics *Metrics, explainer Explainer, notifier Notifier, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultAssessTimeout
	}
	return &Service{
		store:     store,
		engine:    engine,
		logger:    logger,
		metrics:   metrics,
		explainer: explainer,
		notifier:  notifier,
		timeout:   timeout,
	}
}

// Submit accepts a normalized patient snapshot for assessment, handling
// dedup and lifecycle. The verdict is computed asynchronously; poll Get
// with the returned ID.
func (s *Service) Submit(ctx context.Context, patientRef, fingerprint string, c *risk.Context) (*SubmitResult, error) {
	// dedup: skip if the same snapshot is already pending or in progress
	if fingerprint != "" {
		if existing, ok, err := s.store.GetByFingerprint(ctx, fingerprint); err != nil {
			s.countSubmit("error")
			return nil, err
		} else if ok && (existing.Status == StatusPending || existing.Status == StatusInProgress) {
			s.countSubmit("duplicate")
			return &SubmitResult{Skipped: true, Reason: "duplicate"}, nil
		}
	}

	id := ulid.Make().String()
	a := &Assessment{
		ID:          id,
		Fingerprint: fingerprint,
		Status:      StatusPending,
		PatientRef:  patientRef,
		Context:     c,
		CreatedAt:   time.Now(),
	}

	if err := s.store.Put(ctx, a); err != nil {
		s.countSubmit("error")
		return nil, err
	}

	s.countSubmit("accepted")

	// kick off async assessment - pass only the ID to avoid sharing the
	// Assessment pointer.
	go s.runAssessment(context.WithoutCancel(ctx), id, c)

	return &SubmitResult{ID: id}, nil
}

// Get retrieves an assessment by ID.
func (s *Service) Get(ctx context.Context, id string) (*Assessment, bool, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) runAssessment(ctx context.Context, id string, c *risk.Context) {
	L := s.logger.With("assessment_id", id)

	a, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch assessment for processing")
		// the stored record is unreachable; surface the failure with what we have
		s.markFailed(ctx, L, &Assessment{ID: id, Context: c, CreatedAt: time.Now()})
		return
	}

	a.Status = StatusInProgress
	if err := s.store.Put(ctx, a); err != nil {
		L.Error(ctx, err, "failed to update status to in_progress")
		s.markFailed(ctx, L, a)
		return
	}

	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	res := s.engine.Assess(runCtx, c)
	cancel()

	a.Status = StatusComplete
	a.Result = res
	a.CompletedAt = time.Now()
	a.Duration = time.Since(start).Seconds()

	if s.explainer != nil {
		explanation, err := s.explainer.Explain(ctx, a)
		if err != nil {
			// the verdict stands without a narrative
			L.Warn(ctx, "explanation failed", "error", err)
		} else {
			a.Explanation = explanation
		}
	}

	if err := s.store.Put(ctx, a); err != nil {
		L.Error(ctx, err, "failed to persist assessment verdict")
		return
	}

	L.Info(ctx, "assessment complete",
		"tier", res.Tier.String(),
		"score", res.Score,
		"confidence", res.Confidence,
		"duration", a.Duration,
	)

	if s.notifier != nil && res.Tier >= risk.TierHigh {
		if err := s.notifier.Send(ctx, a); err != nil {
			L.Warn(ctx, "notification failed", "error", err)
		}
	}
}

// markFailed records a terminal failure and notifies, best effort on both:
// the store may be the thing that is down, and a failed run should still be
// visible somewhere.
func (s *Service) markFailed(ctx context.Context, L log.Logger, a *Assessment) {
	a.Status = StatusFailed
	a.CompletedAt = time.Now()

	if err := s.store.Put(ctx, a); err != nil {
		L.Error(ctx, err, "failed to persist failed assessment")
	}

	if s.notifier != nil {
		if err := s.notifier.Send(ctx, a); err != nil {
			L.Warn(ctx, "notification failed", "error", err)
		}
	}
}

func (s *Service) countSubmit(result string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(result).Inc()
	}
}
