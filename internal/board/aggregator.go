package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clarityhire/clarity/internal/clarity"
	"github.com/clarityhire/clarity/internal/errs"
	"github.com/clarityhire/clarity/internal/logger"
	"go.uber.org/zap"
)

// ErrStale is returned by Refresh when a newer refresh was applied first.
var ErrStale = errors.New("board refresh superseded by a newer one")

// API is the part of the service client the aggregator needs.
type API interface {
	ListJobs(ctx context.Context) ([]*clarity.Job, error)
	LatestResume(ctx context.Context) (*clarity.Resume, error)
	MatchesForResume(ctx context.Context, resumeID string) ([]*clarity.Match, error)
}

type Aggregator struct {
	api    API
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	seq     uint64
	applied uint64
	current *Board
}

func New(api API, log *zap.Logger) *Aggregator {
	return &Aggregator{
		api:    api,
		logger: logger.WithFields(log),
		now:    time.Now,
	}
}

// Current returns the last applied board, nil before the first success.
func (a *Aggregator) Current() *Board {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Refresh re-runs the whole pipeline: postings, latest document, its scores.
// Any fetch failure aborts the cycle and leaves the current board in place.
// A result older than the applied board is discarded with ErrStale.
func (a *Aggregator) Refresh(ctx context.Context) (*Board, error) {
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	log := a.logger.With(zap.Uint64(logger.FieldSeq, seq))

	jobs, err := a.api.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}

	var resumeID string
	resume, err := a.api.LatestResume(ctx)
	switch {
	case errs.IsNotFound(err):
		log.Debug("no document submitted, scores left empty")
	case err != nil:
		return nil, fmt.Errorf("fetching latest document: %w", err)
	default:
		resumeID = resume.ID
	}

	scores := ScoreBoard{}
	if resumeID != "" {
		matches, err := a.api.MatchesForResume(ctx, resumeID)
		if err != nil {
			return nil, fmt.Errorf("listing matches: %w", err)
		}
		for _, m := range matches {
			if m == nil || m.JobID == "" {
				continue
			}
			scores[m.JobID] = m.Score
		}
	}

	b := &Board{
		Seq:      seq,
		ResumeID: resumeID,
		Scores:   scores,
		Entries:  Build(jobs, scores),
		BuiltAt:  a.now(),
	}
	b.Sort()

	a.mu.Lock()
	defer a.mu.Unlock()
	if seq <= a.applied {
		log.Debug("discarding stale board", zap.Uint64("applied", a.applied))
		return nil, ErrStale
	}
	a.applied = seq
	a.current = b

	log.Debug("board applied",
		zap.String(logger.FieldResumeID, resumeID),
		zap.Int("jobs", len(jobs)),
		zap.Int("scores", len(scores)),
	)

	return b, nil
}
