package risk

import (
	"encoding/json"
	"fmt"
)

// Tier is the ordinal severity classification of an assessment.
// Ordering is total: TierCritical > TierHigh > TierModerate > TierLow.
type Tier int

const (
	TierLow Tier = iota
	TierModerate
	TierHigh
	TierCritical
)

// String returns the lowercase wire name of the tier.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierModerate:
		return "moderate"
	case TierHigh:
		return "high"
	case TierCritical:
		return "critical"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// MarshalJSON encodes the tier as its wire name.
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a tier from its wire name.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "low":
		*t = TierLow
	case "moderate":
		*t = TierModerate
	case "high":
		*t = TierHigh
	case "critical":
		*t = TierCritical
	default:
		return fmt.Errorf("unknown risk tier %q", s)
	}
	return nil
}

// maxTier returns the more severe of two tiers.
func maxTier(a, b Tier) Tier {
	if a > b {
		return a
	}
	return b
}
