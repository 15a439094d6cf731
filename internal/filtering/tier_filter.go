package filtering

import (
	"context"

	"github.com/clarityhire/clarity/internal/board"
	"go.uber.org/zap"
)

type minTierFilter struct {
	min    board.Tier
	reason string
}

// NewMinTier creates a filter that drops postings banded below the configured tier.
func NewMinTier() Filter {
	return &minTierFilter{}
}

func (f *minTierFilter) Name() string { return "min_tier" }

func (f *minTierFilter) Disable(reason string) { f.reason = reason }

func (f *minTierFilter) IsEnabled() bool { return f.reason == "" }

func (f *minTierFilter) Validate(cfg *Config) error {
	f.min = board.TierPending
	if cfg == nil || cfg.MinTier == "" {
		return nil
	}

	tier, err := board.ParseTier(string(cfg.MinTier))
	if err != nil {
		return err
	}
	f.min = tier
	return nil
}

func (f *minTierFilter) Apply(_ context.Context, deps Deps, b *board.Board) (*board.Board, Step, error) {
	initial := b.Len()
	if f.min == board.TierPending {
		return b, Step{Initial: initial, Dropped: 0, Left: b.Len()}, nil
	}

	dropped := b.Retain(func(e *board.Entry) bool { return e.Tier.AtLeast(f.min) })
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Debug("excluding postings below tier",
			zap.String("min_tier", string(f.min)),
			zap.Strings("excluded_jobs", dropped),
			zap.Int("jobs_left", b.Len()),
		)
	}

	return b, Step{Initial: initial, Dropped: len(dropped), Left: b.Len()}, nil
}

func (f *minTierFilter) Status() Status {
	details := map[string]string{}
	if f.min != "" {
		details["min_tier"] = string(f.min)
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
