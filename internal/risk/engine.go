package risk

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"golang.org/x/sync/errgroup"
)

// EngineHooks are optional callbacks for instrumentation (wired to
// Prometheus by the assessment service). Nil funcs are skipped.
type EngineHooks struct {
	OnOverride func(source string, tier Tier)
	OnScorer   func(source string, active bool, duration float64)
	OnComplete func(e *CompleteEvent)
}

// CompleteEvent summarizes one finished pipeline run for instrumentation.
type CompleteEvent struct {
	Tier           Tier
	Score          float64
	Confidence     float64
	Duration       float64
	Overridden     bool
	OverrideSource string
	TimedOut       bool
}

// Engine runs the risk-stratification pipeline. It is pure computation over
// the in-memory context: safe for concurrent use, no retries, no persistence.
type Engine struct {
	cfg    *Config
	logger log.Logger
	hooks  EngineHooks
}

// NewEngine creates an engine over the given configuration. The config is
// shared read-only across all assessments; pass DefaultConfig() unless a
// caller needs a custom rule set.
func NewEngine(cfg *Config, logger log.Logger, hooks EngineHooks) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{cfg: cfg, logger: logger, hooks: hooks}
}

// Assess runs one assessment: safety rules, clinical scoring, then the
// rule-based and ensemble scorers concurrently, joined by the synthesizer.
// It always returns a complete Result — on a safety or clinical override the
// override verdict, on an expired deadline a conservative fallback, never nil
// and never an error.
func (e *Engine) Assess(ctx context.Context, c *Context) *Result {
	start := time.Now()

	// Safety rules run first and alone: a trigger must not pay for, nor be
	// weakened by, any further scoring.
	if ov := evaluateSafety(ctx, e.cfg.Rules, c, e.logger); ov != nil {
		e.logger.Warn(ctx, "safety override triggered",
			"rules", ov.RuleIDs,
			"tier", ov.Tier.String(),
		)
		if e.hooks.OnOverride != nil {
			e.hooks.OnOverride(ov.Source, ov.Tier)
		}
		res := e.synthesize(c, nil, nil, ov)
		e.complete(res, start, ov, false)
		return res
	}

	clinical := runClinicalScoring(ctx, c, e.logger)
	if clinical.ImmediateEscalation {
		ov := &Override{
			Tier:   escalationTier(clinical),
			Source: SourceClinicalScoring,
		}
		for _, cs := range clinical.Calculators {
			if cs.Critical {
				ov.RuleIDs = append(ov.RuleIDs, "clinical_"+cs.Name)
				ov.Messages = append(ov.Messages, cs.Name+" meets critical criteria")
			}
		}
		e.logger.Warn(ctx, "clinical scoring escalation",
			"calculators", ov.RuleIDs,
			"tier", ov.Tier.String(),
		)
		if e.hooks.OnOverride != nil {
			e.hooks.OnOverride(ov.Source, ov.Tier)
		}
		res := e.synthesize(c, nil, clinical, ov)
		e.complete(res, start, ov, false)
		return res
	}

	if ctx.Err() != nil {
		return e.timeoutFallback(ctx, c, start)
	}

	// Fan out the independent scorers. Each writes its own slot so the
	// joined order is fixed regardless of scheduling, keeping results
	// reproducible for audit.
	slots := make([]*ScoringResult, 1+len(e.cfg.Scorers))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slots[0] = scoreClinicalRules(gctx, e.cfg.Rules, c, e.logger)
		return nil
	})
	for i, s := range e.cfg.Scorers {
		g.Go(func() error {
			begin := time.Now()
			result, active := s.Score(c)
			if e.hooks.OnScorer != nil {
				e.hooks.OnScorer(s.Source(), active, time.Since(begin).Seconds())
			}
			if active {
				slots[i+1] = result
			}
			return nil
		})
	}
	_ = g.Wait() // scorers never return errors

	if ctx.Err() != nil {
		return e.timeoutFallback(ctx, c, start)
	}

	scores := make([]*ScoringResult, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			scores = append(scores, s)
		}
	}

	res := e.synthesize(c, scores, clinical, nil)
	e.complete(res, start, nil, false)
	return res
}

// escalationTier maps a clinical escalation to its override tier: critical
// when any calculator met critical criteria, high otherwise.
func escalationTier(clinical *ClinicalResult) Tier {
	for _, cs := range clinical.Calculators {
		if cs.Critical {
			return TierCritical
		}
	}
	return TierHigh
}

// timeoutFallback returns the conservative result for an expired deadline:
// moderate tier, low fixed confidence, an explicit uncertainty factor. A
// timeout is never propagated as an error.
func (e *Engine) timeoutFallback(ctx context.Context, c *Context, start time.Time) *Result {
	e.logger.Warn(ctx, "assessment deadline exceeded, returning conservative fallback")

	const score = 0.5
	halfWidth := 0.15*(1-timeoutConfidence) + 0.05
	res := &Result{
		Tier:       TierModerate,
		Score:      score,
		Confidence: timeoutConfidence,
		Interval: Interval{
			Lower: clamp01(score - halfWidth),
			Upper: clamp01(score + halfWidth),
		},
		TriggeredRules:     []string{},
		RiskFactors:        []string{},
		ProtectiveFactors:  protectiveFactors(c),
		UncertaintyFactors: []string{"assessment deadline exceeded before synthesis"},
		MissingData:        missingData(c, nil),
	}
	e.complete(res, start, nil, true)
	return res
}

func (e *Engine) complete(res *Result, start time.Time, ov *Override, timedOut bool) {
	if e.hooks.OnComplete == nil {
		return
	}
	ev := &CompleteEvent{
		Tier:       res.Tier,
		Score:      res.Score,
		Confidence: res.Confidence,
		Duration:   time.Since(start).Seconds(),
		TimedOut:   timedOut,
	}
	if ov != nil {
		ev.Overridden = true
		ev.OverrideSource = ov.Source
	}
	e.hooks.OnComplete(ev)
}
