package risk

import (
	"context"

	"github.com/linnemanlabs/go-core/log"
)

// Override is the terminal verdict of a short-circuiting check: the rule ids
// that fired, their messages, and the most severe tier among them. Once
// produced, no later-computed score may weaken it.
type Override struct {
	RuleIDs  []string
	Messages []string
	Tier     Tier
	Source   string // "safety_rules" or "clinical_scoring"
}

// evaluateSafety runs the safety predicates in priority order and collects
// every rule that triggers. A failing predicate is logged and treated as not
// triggered; it never aborts the rest of the sweep. Returns nil when nothing
// fired.
func evaluateSafety(ctx context.Context, rules []*Predicate, c *Context, logger log.Logger) *Override {
	var ov *Override

	for _, p := range rules {
		if p.Category != CategorySafety {
			continue
		}

		out, err := evalPredicate(p, c)
		if err != nil {
			logger.Error(ctx, err, "safety rule evaluation failed", "rule", p.ID)
			continue
		}
		if !out.Triggered {
			continue
		}

		if ov == nil {
			ov = &Override{Tier: p.Tier, Source: SourceSafetyRules}
		}
		ov.RuleIDs = append(ov.RuleIDs, p.ID)
		if out.Message != "" {
			ov.Messages = append(ov.Messages, out.Message)
		}
		ov.Tier = maxTier(ov.Tier, p.Tier)
	}

	return ov
}
