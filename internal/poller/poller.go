// Package poller tracks the lifecycle of the caller's latest document:
// submission, polling while the server works on it, and the terminal result.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/clarityhire/clarity/internal/clarity"
	"github.com/clarityhire/clarity/internal/errs"
	"github.com/clarityhire/clarity/internal/logger"
	"go.uber.org/zap"
)

const DefaultInterval = 3 * time.Second

var ErrClosed = errors.New("poller is closed")

// Outcome is the result of a single latest-document query.
type Outcome int

const (
	// OutcomeSkipped means no session was live and nothing was sent.
	OutcomeSkipped Outcome = iota
	OutcomeFound
	// OutcomeNotFound means the server has no document. The record becomes NONE.
	OutcomeNotFound
	// OutcomeFailed means the call failed. The record is left unchanged.
	OutcomeFailed
	// OutcomeDiscarded means the answer arrived after the state it was asked
	// for had moved on.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFailed:
		return "failed"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// API is the part of the service client the poller needs.
type API interface {
	LatestResume(ctx context.Context) (*clarity.Resume, error)
	GetResume(ctx context.Context, id string) (*clarity.Resume, error)
	UploadResume(ctx context.Context, doc *clarity.Document) (*clarity.Resume, error)
}

// Session reports whether a credential is available.
type Session interface {
	Live() bool
}

type Poller struct {
	api       API
	session   Session
	logger    *zap.Logger
	interval  time.Duration
	newTicker func(time.Duration) Ticker

	root     context.Context
	stopRoot context.CancelFunc
	wg       sync.WaitGroup

	mu     sync.Mutex
	record *clarity.Resume
	doc    *clarity.Document
	// submitted is the id returned by the last successful submission.
	submitted string
	// epoch changes on submission and reset. Answers to queries issued in an
	// older epoch are dropped.
	epoch uint64
	// gen identifies the current polling task.
	gen    uint64
	cancel context.CancelFunc
	// settled holds ids observed in a terminal status since the last submission.
	settled map[string]clarity.Status
	subs    map[int]chan clarity.Resume
	nextSub int
	closed  bool
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithTicker replaces the ticker factory.
func WithTicker(f func(time.Duration) Ticker) Option {
	return func(p *Poller) {
		if f != nil {
			p.newTicker = f
		}
	}
}

func New(api API, s Session, log *zap.Logger, opts ...Option) *Poller {
	root, stop := context.WithCancel(context.Background())
	p := &Poller{
		api:       api,
		session:   s,
		logger:    logger.WithFields(log),
		interval:  DefaultInterval,
		newTicker: newTimeTicker,
		root:      root,
		stopRoot:  stop,
		settled:   make(map[string]clarity.Status),
		subs:      make(map[int]chan clarity.Resume),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Record returns a copy of the current record, nil for NONE.
func (p *Poller) Record() *clarity.Resume {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.record == nil {
		return nil
	}
	r := *p.record
	return &r
}

func (p *Poller) State() clarity.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.record.State()
}

// Armed reports whether a polling task is running.
func (p *Poller) Armed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Document returns the last submitted document, nil after Reset.
func (p *Poller) Document() *clarity.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc
}

// QueryLatest fetches the latest document and replaces the record with it.
// Without a live session it does nothing. After a submission the record
// follows the submitted document, looked up by id when the latest one is
// a different document.
func (p *Poller) QueryLatest(ctx context.Context) (Outcome, error) {
	return p.fetch(ctx, 0, false)
}

// Submit uploads doc. On success the record is replaced by the server's
// initial record and polling is armed. On failure the state is unchanged.
func (p *Poller) Submit(ctx context.Context, doc *clarity.Document) (*clarity.Resume, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if p.session == nil || !p.session.Live() {
		return nil, errs.Auth("not logged in", nil)
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	r, err := p.api.UploadResume(ctx, doc)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	p.epoch++
	p.settled = make(map[string]clarity.Status)
	p.doc = doc
	p.submitted = r.ID
	p.apply(r)

	p.logger.Info("document submitted", logger.ResumeFields(r.ID, string(r.State()))...)

	out := *r
	return &out, nil
}

// Reset drops the record and the cached document and stops polling. The
// server is not contacted.
func (p *Poller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.epoch++
	p.doc = nil
	p.submitted = ""
	p.settled = make(map[string]clarity.Status)
	p.apply(nil)
}

// Subscribe returns a channel receiving every applied record. Only the most
// recent undelivered record is kept. The returned func unsubscribes.
func (p *Poller) Subscribe() (<-chan clarity.Resume, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan clarity.Resume, 1)
	if p.closed {
		close(ch)
		return ch, func() {}
	}

	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if _, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(ch)
			}
		})
	}
}

// Wait blocks until the record reaches a terminal status. After a
// submission only the submitted document settles it. It fails when there is
// nothing to wait for or ctx ends first.
func (p *Poller) Wait(ctx context.Context) (*clarity.Resume, error) {
	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	for {
		if r, done, err := p.settledRecord(); done {
			return r, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case _, ok := <-updates:
			if !ok {
				return nil, ErrClosed
			}
		}
	}
}

// settledRecord reads the record and the armed flag under one lock.
func (p *Poller) settledRecord() (*clarity.Resume, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := p.record
	switch {
	case r.State().Terminal() && (p.submitted == "" || r.ID == p.submitted):
		out := *r
		return &out, true, nil
	case p.cancel == nil:
		return nil, true, errs.NotFound("no document to wait for", nil)
	default:
		return nil, false, nil
	}
}

// Close stops polling and closes every subscription.
func (p *Poller) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.disarm()
		for id, ch := range p.subs {
			delete(p.subs, id)
			close(ch)
		}
	}
	p.mu.Unlock()

	p.stopRoot()
	p.wg.Wait()
}

func (p *Poller) fetch(ctx context.Context, gen uint64, fromTask bool) (Outcome, error) {
	if p.session == nil || !p.session.Live() {
		return OutcomeSkipped, nil
	}

	p.mu.Lock()
	epoch, submitted := p.epoch, p.submitted
	p.mu.Unlock()

	r, err := p.api.LatestResume(ctx)
	// Latest only reports analysed documents, so a submission still in
	// progress is looked up by id.
	if submitted != "" && (err == nil || errs.IsNotFound(err)) && (r == nil || r.ID != submitted) {
		p.logger.Debug("latest document is not the submitted one", logger.ResumeFields(submitted, "")...)
		r, err = p.api.GetResume(ctx, submitted)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || epoch != p.epoch || (fromTask && gen != p.gen) {
		return OutcomeDiscarded, nil
	}

	switch {
	case errs.IsNotFound(err), err == nil && r == nil:
		p.apply(nil)
		return OutcomeNotFound, nil
	case err != nil:
		return OutcomeFailed, err
	}

	if prior, ok := p.settled[r.ID]; ok && r.State().Active() {
		p.logger.Debug("ignoring status regression",
			append(logger.ResumeFields(r.ID, string(r.State())), zap.String("settled", string(prior)))...,
		)
		return OutcomeDiscarded, nil
	}

	p.apply(r)
	return OutcomeFound, nil
}

// apply replaces the record, recomputes whether polling should run and
// publishes the change. It must be called with p.mu held.
func (p *Poller) apply(r *clarity.Resume) {
	before := p.record.State()
	p.record = r

	state := r.State()
	if state.Terminal() {
		p.settled[r.ID] = state
	}
	if state != before {
		var id string
		if r != nil {
			id = r.ID
		}
		p.logger.Info("document status changed",
			append(logger.ResumeFields(id, string(state)), zap.String("previous", string(before)))...,
		)
	}

	p.reconcile()
	p.publish()
}

// reconcile arms polling while the record is active and disarms it
// otherwise. It must be called with p.mu held.
func (p *Poller) reconcile() {
	if !p.closed && p.record.State().Active() {
		p.arm()
		return
	}
	p.disarm()
}

func (p *Poller) arm() {
	if p.cancel != nil {
		return
	}

	p.gen++
	ctx, cancel := context.WithCancel(p.root)
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(ctx, p.gen)
}

func (p *Poller) disarm() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.gen++
}

func (p *Poller) publish() {
	var r clarity.Resume
	if p.record != nil {
		r = *p.record
	}

	for _, ch := range p.subs {
		select {
		case ch <- r:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- r
		}
	}
}

func (p *Poller) current(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && p.gen == gen
}

func (p *Poller) run(ctx context.Context, gen uint64) {
	defer p.wg.Done()

	ticker := p.newTicker(p.interval)
	defer ticker.Stop()

	log := p.logger.With(zap.Uint64("task", gen))
	log.Debug("polling armed", zap.Duration("interval", p.interval))
	defer log.Debug("polling disarmed")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		if ctx.Err() != nil || !p.current(gen) {
			return
		}

		// The fetch runs inline so a slow answer delays the next tick
		// instead of overlapping with it.
		outcome, err := p.fetch(ctx, gen, true)
		if err != nil {
			log.Warn("polling latest document failed", zap.Error(err))
			continue
		}
		log.Debug("polled latest document", zap.Stringer("outcome", outcome))
	}
}
