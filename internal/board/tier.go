package board

import (
	"fmt"
	"strings"
)

// Tier is the display band of a posting's score.
type Tier string

const (
	TierHigh    Tier = "high"
	TierMedium  Tier = "medium"
	TierLow     Tier = "low"
	TierPending Tier = "pending"
)

const (
	HighThreshold   = 80
	MediumThreshold = 50
)

// Classify bands a score. ok is false when no score exists for the posting.
func Classify(score int, ok bool) Tier {
	switch {
	case !ok:
		return TierPending
	case score >= HighThreshold:
		return TierHigh
	case score >= MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// rank orders tiers from best to worst. Pending ranks below low.
func (t Tier) rank() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether t is as good as min. Pending never qualifies unless
// min is pending too.
func (t Tier) AtLeast(min Tier) bool {
	return t.rank() >= min.rank()
}

func ParseTier(raw string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(raw))); t {
	case TierHigh, TierMedium, TierLow, TierPending:
		return t, nil
	case "":
		return TierPending, nil
	default:
		return "", fmt.Errorf("unknown tier %q", raw)
	}
}
