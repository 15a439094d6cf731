package clarity

import (
	"context"
	"net/url"
	"strings"

	"github.com/clarityhire/clarity/internal/errs"
	"go.uber.org/zap"
)

const (
	matchesForResumePath = "/matches/resume/"
	MinScore             = 0
	MaxScore             = 100
)

type Match struct {
	JobID     string         `json:"job_id" yaml:"job_id"`
	ResumeID  string         `json:"resume_id,omitempty" yaml:"resume_id,omitempty"`
	Score     int            `json:"score" yaml:"score"`
	JobTitle  string         `json:"job_title,omitempty" yaml:"job_title,omitempty"`
	Company   string         `json:"company,omitempty" yaml:"company,omitempty"`
	Breakdown map[string]any `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
}

// MatchesForResume lists the scores computed for a document. Scores outside
// [0,100] are clamped and null entries are skipped.
func (c *Client) MatchesForResume(ctx context.Context, resumeID string) ([]*Match, error) {
	resumeID = strings.TrimSpace(resumeID)
	if resumeID == "" {
		return nil, errs.Validation("resume id is required", nil)
	}

	var matches []*Match
	if err := c.getJSON(ctx, matchesForResumePath+url.PathEscape(resumeID), nil, &matches); err != nil {
		return nil, err
	}

	kept := matches[:0]
	for _, m := range matches {
		if m == nil {
			continue
		}
		kept = append(kept, m)
		if m.ResumeID == "" {
			m.ResumeID = resumeID
		}
		if clamped := ClampScore(m.Score); clamped != m.Score {
			c.logger.Warn("score out of range",
				zap.String("job_id", m.JobID),
				zap.Int("score", m.Score),
			)
			m.Score = clamped
		}
	}

	return kept, nil
}

func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
