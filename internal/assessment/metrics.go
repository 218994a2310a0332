package assessment

import (
	"github.com/linnemanlabs/acuity/internal/risk"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the assessment subsystem.
type Metrics struct {
	AssessmentsTotal   *prometheus.CounterVec
	AssessmentDuration *prometheus.HistogramVec
	AssessmentScore    prometheus.Histogram
	ConfidenceValue    prometheus.Histogram
	OverridesTotal     *prometheus.CounterVec
	TimeoutsTotal      prometheus.Counter
	ScorerRunsTotal    *prometheus.CounterVec
	ScorerDuration     *prometheus.HistogramVec
	SubmitsTotal       *prometheus.CounterVec
}

// NewMetrics registers and returns assessment metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acuity_assessments_total",
			Help: "Total completed assessments by final risk tier.",
		}, []string{"tier"}),
		AssessmentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acuity_assessment_duration_seconds",
			Help:    "Duration of assessment pipeline runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms .. ~8s
		}, []string{"tier"}),
		AssessmentScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "acuity_assessment_score",
			Help:    "Distribution of synthesized risk scores.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 .. 1.0
		}),
		ConfidenceValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "acuity_assessment_confidence",
			Help:    "Distribution of verdict confidence values.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 .. 1.0
		}),
		OverridesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acuity_overrides_total",
			Help: "Total assessments short-circuited by an override, by source and tier.",
		}, []string{"source", "tier"}),
		TimeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "acuity_assessment_timeouts_total",
			Help: "Total assessments that fell back to the conservative verdict on deadline.",
		}),
		ScorerRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acuity_scorer_runs_total",
			Help: "Total scorer invocations by source and activity.",
		}, []string{"source", "active"}),
		ScorerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acuity_scorer_duration_seconds",
			Help:    "Duration of individual scorer runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms .. ~400ms
		}, []string{"source"}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acuity_submits_total",
			Help: "Total snapshot submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.AssessmentsTotal,
		m.AssessmentDuration,
		m.AssessmentScore,
		m.ConfidenceValue,
		m.OverridesTotal,
		m.TimeoutsTotal,
		m.ScorerRunsTotal,
		m.ScorerDuration,
		m.SubmitsTotal,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() risk.EngineHooks {
	return risk.EngineHooks{
		OnOverride: func(source string, tier risk.Tier) {
			m.OverridesTotal.WithLabelValues(source, tier.String()).Inc()
		},
		OnScorer: func(source string, active bool, duration float64) {
			activeLabel := "false"
			if active {
				activeLabel = "true"
			}
			m.ScorerRunsTotal.WithLabelValues(source, activeLabel).Inc()
			m.ScorerDuration.WithLabelValues(source).Observe(duration)
		},
		OnComplete: func(e *risk.CompleteEvent) {
			m.AssessmentsTotal.WithLabelValues(e.Tier.String()).Inc()
			m.AssessmentDuration.WithLabelValues(e.Tier.String()).Observe(e.Duration)
			m.AssessmentScore.Observe(e.Score)
			m.ConfidenceValue.Observe(e.Confidence)
			if e.TimedOut {
				m.TimeoutsTotal.Inc()
			}
		},
	}
}
