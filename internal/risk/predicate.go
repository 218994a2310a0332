package risk

import "fmt"

// Category classifies a predicate by the role it plays in the pipeline.
type Category int

const (
	// CategorySafety predicates are hard overrides evaluated first.
	CategorySafety Category = iota

	// CategoryClinical predicates contribute to the rule-based score.
	CategoryClinical

	// CategoryHeuristic predicates are softer signals, also scored.
	CategoryHeuristic
)

// String returns the lowercase name of the category.
func (c Category) String() string {
	switch c {
	case CategorySafety:
		return "safety"
	case CategoryClinical:
		return "clinical"
	case CategoryHeuristic:
		return "heuristic"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Outcome is the explicit result of one predicate evaluation.
type Outcome struct {
	Triggered bool
	Message   string
}

// Predicate is one safety or clinical rule: identity, classification, and a
// pure evaluation function over the context. Predicates are read-only
// configuration, constructed once and shared by reference across all
// concurrent assessments.
type Predicate struct {
	ID       string
	Name     string
	Category Category
	Tier     Tier
	Priority int // lower = evaluated first / most severe
	Eval     func(*Context) Outcome
}

// evalPredicate runs a predicate with panic recovery. A failing predicate is
// reported as an error so the caller can log it and treat the rule as not
// triggered; it never aborts evaluation of the remaining rules.
func evalPredicate(p *Predicate, c *Context) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{}
			err = fmt.Errorf("predicate %s: evaluation panicked: %v", p.ID, r)
		}
	}()
	return p.Eval(c), nil
}
