package risk

import (
	"context"

	"github.com/linnemanlabs/go-core/log"
)

// ruleConfidence is the fixed confidence of the rule-based scorer.
const ruleConfidence = 0.85

// tierPoints is the contribution of a triggered rule by its declared tier.
var tierPoints = map[Tier]float64{
	TierCritical: 4,
	TierHigh:     3,
	TierModerate: 2,
	TierLow:      1,
}

// scoreClinicalRules aggregates the non-safety predicates into one weighted
// score. Each triggered rule contributes points by tier; the total is
// normalized by 2x the number of scored rules so the output stays in [0,1].
// Rule evaluation failures are logged and treated as not triggered.
func scoreClinicalRules(ctx context.Context, rules []*Predicate, c *Context, logger log.Logger) *ScoringResult {
	var (
		points    float64
		scored    int
		triggered []string
	)

	for _, p := range rules {
		if p.Category == CategorySafety {
			continue
		}
		scored++

		out, err := evalPredicate(p, c)
		if err != nil {
			logger.Error(ctx, err, "clinical rule evaluation failed", "rule", p.ID)
			continue
		}
		if !out.Triggered {
			continue
		}

		points += tierPoints[p.Tier]
		triggered = append(triggered, p.ID)
	}

	var score float64
	if scored > 0 {
		score = clamp01(points / (2 * float64(scored)))
	}

	return &ScoringResult{
		Source:     SourceClinicalRules,
		Score:      score,
		Tier:       tierForScore(score),
		Confidence: ruleConfidence,
		Factors:    triggered,
	}
}
