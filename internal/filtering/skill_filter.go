package filtering

import (
	"context"
	"strings"

	"github.com/clarityhire/clarity/internal/board"
)

type skillFilter struct {
	skill string
}

// NewSkill creates a filter that keeps postings requiring the configured skill.
func NewSkill() Filter {
	return &skillFilter{}
}

func (f *skillFilter) Name() string { return "skill" }

func (f *skillFilter) Disable(string) {}

func (f *skillFilter) IsEnabled() bool { return true }

func (f *skillFilter) Validate(cfg *Config) error {
	f.skill = ""
	if cfg != nil {
		f.skill = strings.TrimSpace(cfg.Skill)
	}
	return nil
}

func (f *skillFilter) Apply(_ context.Context, _ Deps, b *board.Board) (*board.Board, Step, error) {
	initial := b.Len()
	if f.skill == "" {
		return b, Step{Initial: initial, Dropped: 0, Left: b.Len()}, nil
	}

	dropped := b.Retain(func(e *board.Entry) bool { return e.HasSkill(f.skill) })

	return b, Step{Initial: initial, Dropped: len(dropped), Left: b.Len()}, nil
}
