package filtering

import (
	"context"
	"strings"

	"github.com/clarityhire/clarity/internal/board"
	"go.uber.org/zap"
)

type companiesFilter struct {
	companies []string
}

// NewExcludedCompanies creates a filter that removes postings by the companies configured in the config.
func NewExcludedCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Disable(string) {}

func (f *companiesFilter) IsEnabled() bool { return true }

func (f *companiesFilter) Validate(cfg *Config) error {
	f.companies = nil
	if cfg == nil {
		return nil
	}
	for _, c := range cfg.ExcludeCompanies {
		if c = strings.TrimSpace(c); c != "" {
			f.companies = append(f.companies, c)
		}
	}
	return nil
}

func (f *companiesFilter) Apply(_ context.Context, deps Deps, b *board.Board) (*board.Board, Step, error) {
	initial := b.Len()
	if len(f.companies) == 0 {
		return b, Step{Initial: initial, Dropped: 0, Left: b.Len()}, nil
	}

	excluded := b.Retain(func(e *board.Entry) bool {
		for _, c := range f.companies {
			if strings.EqualFold(strings.TrimSpace(e.Job.Company), c) {
				return false
			}
		}
		return true
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding postings by companies",
			zap.Strings("excluded_companies", f.companies),
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", b.Len()),
		)
	}

	return b, Step{Initial: initial, Dropped: len(excluded), Left: b.Len()}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
