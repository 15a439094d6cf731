package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clarityhire/clarity/internal/clarity"
	"github.com/clarityhire/clarity/internal/errs"
)

const (
	waitTimeout  = 2 * time.Second
	quietTimeout = 100 * time.Millisecond
)

type answer struct {
	resume *clarity.Resume
	err    error
}

type fakeAPI struct {
	mu     sync.Mutex
	latest []answer
	// get answers lookups by id; an empty queue reports not found.
	get    []answer
	upload answer
	// gate, when set, holds every LatestResume call until it is closed.
	gate chan struct{}

	latestCalls atomic.Int32
	getCalls    atomic.Int32
	uploadCalls atomic.Int32
	called      chan struct{}
}

func newFakeAPI(latest ...answer) *fakeAPI {
	return &fakeAPI{latest: latest, called: make(chan struct{}, 64)}
}

func (f *fakeAPI) LatestResume(ctx context.Context) (*clarity.Resume, error) {
	f.latestCalls.Add(1)
	defer func() { f.called <- struct{}{} }()

	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.latest) == 0 {
		return nil, errs.Transient("no scripted answer", nil)
	}
	next := f.latest[0]
	if len(f.latest) > 1 {
		f.latest = f.latest[1:]
	}
	return next.resume, next.err
}

func (f *fakeAPI) GetResume(ctx context.Context, id string) (*clarity.Resume, error) {
	f.getCalls.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.get) == 0 {
		return nil, errs.NotFound("resume not found", nil)
	}
	next := f.get[0]
	if len(f.get) > 1 {
		f.get = f.get[1:]
	}
	return next.resume, next.err
}

func (f *fakeAPI) UploadResume(ctx context.Context, doc *clarity.Document) (*clarity.Resume, error) {
	f.uploadCalls.Add(1)
	return f.upload.resume, f.upload.err
}

func (f *fakeAPI) waitCall(t *testing.T) {
	t.Helper()
	select {
	case <-f.called:
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for a latest query")
	}
}

type liveSession bool

func (s liveSession) Live() bool { return bool(s) }

type fakeTicker struct {
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() { t.once.Do(func() { close(t.stopped) }) }

type fakeClock struct {
	tickers chan *fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{tickers: make(chan *fakeTicker, 16)}
}

func (c *fakeClock) newTicker(time.Duration) Ticker {
	t := &fakeTicker{c: make(chan time.Time), stopped: make(chan struct{})}
	c.tickers <- t
	return t
}

func (c *fakeClock) next(t *testing.T) *fakeTicker {
	t.Helper()
	select {
	case tk := <-c.tickers:
		return tk
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for polling to be armed")
		return nil
	}
}

func (tk *fakeTicker) fire(t *testing.T) {
	t.Helper()
	select {
	case tk.c <- time.Now():
	case <-time.After(waitTimeout):
		t.Fatalf("tick was not consumed")
	}
}

func (tk *fakeTicker) waitStopped(t *testing.T) {
	t.Helper()
	select {
	case <-tk.stopped:
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for polling to be disarmed")
	}
}

func nextUpdate(t *testing.T, updates <-chan clarity.Resume) clarity.Resume {
	t.Helper()
	select {
	case r := <-updates:
		return r
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for a record update")
		return clarity.Resume{}
	}
}

func document() *clarity.Document {
	return &clarity.Document{Name: "cv.pdf", Content: []byte("%PDF-1.7")}
}

func resume(id string, status clarity.Status) *clarity.Resume {
	return &clarity.Resume{ID: id, Status: status, OriginalFilename: "cv.pdf"}
}

func TestSubmitPollsUntilParsed(t *testing.T) {
	t.Parallel()

	parsed := resume("r1", clarity.StatusParsed)
	parsed.ParsedJSON = map[string]any{"skills": []any{"Go", "SQL"}}

	api := newFakeAPI(
		answer{resume: resume("r1", clarity.StatusParsing)},
		answer{resume: parsed},
	)
	api.upload = answer{resume: resume("r1", clarity.StatusPending)}

	clock := newFakeClock()
	p := New(api, liveSession(true), nil, WithTicker(clock.newTicker))
	defer p.Close()

	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	r, err := p.Submit(context.Background(), document())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.State() != clarity.StatusPending || !p.Armed() {
		t.Fatalf("expected pending and armed, got %s armed=%v", r.State(), p.Armed())
	}
	if got := nextUpdate(t, updates); got.State() != clarity.StatusPending {
		t.Fatalf("expected pending update, got %s", got.State())
	}

	tk := clock.next(t)

	tk.fire(t)
	if got := nextUpdate(t, updates); got.State() != clarity.StatusParsing {
		t.Fatalf("expected parsing update, got %s", got.State())
	}

	tk.fire(t)
	got := nextUpdate(t, updates)
	if got.State() != clarity.StatusParsed {
		t.Fatalf("expected parsed update, got %s", got.State())
	}
	profile, err := got.Profile()
	if err != nil || profile == nil {
		t.Fatalf("expected profile, got %v (%v)", profile, err)
	}
	if len(profile.Skills) != 2 || profile.Skills[0] != "Go" || profile.Skills[1] != "SQL" {
		t.Fatalf("unexpected skills %v", profile.Skills)
	}

	tk.waitStopped(t)
	if p.Armed() {
		t.Fatalf("expected polling to be disarmed")
	}

	select {
	case tk.c <- time.Now():
		t.Fatalf("tick consumed after disarm")
	case <-time.After(quietTimeout):
	}
	if calls := api.latestCalls.Load(); calls != 2 {
		t.Fatalf("expected 2 latest queries, got %d", calls)
	}
}

func TestFailedPollKeepsPolling(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(
		answer{err: errs.Transient("bad status: 503 Service Unavailable", nil)},
		answer{resume: resume("r1", clarity.StatusFailed)},
	)
	api.upload = answer{resume: resume("r1", clarity.StatusPending)}

	clock := newFakeClock()
	p := New(api, liveSession(true), nil, WithTicker(clock.newTicker))
	defer p.Close()

	if _, err := p.Submit(context.Background(), document()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tk := clock.next(t)

	tk.fire(t)
	api.waitCall(t)
	if p.State() != clarity.StatusPending || !p.Armed() {
		t.Fatalf("failed poll must keep the record and polling, got %s armed=%v", p.State(), p.Armed())
	}

	tk.fire(t)
	api.waitCall(t)
	tk.waitStopped(t)
	if p.State() != clarity.StatusFailed {
		t.Fatalf("expected failed status, got %s", p.State())
	}
}

func TestResetDisarms(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.upload = answer{resume: resume("r1", clarity.StatusPending)}

	clock := newFakeClock()
	p := New(api, liveSession(true), nil, WithTicker(clock.newTicker))
	defer p.Close()

	if _, err := p.Submit(context.Background(), document()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tk := clock.next(t)

	p.Reset()
	tk.waitStopped(t)

	if p.State() != clarity.StatusNone || p.Record() != nil || p.Document() != nil {
		t.Fatalf("expected empty state after reset")
	}
	if p.Armed() {
		t.Fatalf("expected polling to be disarmed")
	}
	if calls := api.latestCalls.Load(); calls != 0 {
		t.Fatalf("reset must not contact the server, got %d calls", calls)
	}
}

func TestQueryLatest(t *testing.T) {
	t.Parallel()

	t.Run("no session", func(t *testing.T) {
		t.Parallel()
		api := newFakeAPI(answer{resume: resume("r1", clarity.StatusParsed)})
		p := New(api, liveSession(false), nil)
		defer p.Close()

		outcome, err := p.QueryLatest(context.Background())
		if err != nil || outcome != OutcomeSkipped {
			t.Fatalf("expected skipped, got %s (%v)", outcome, err)
		}
		if api.latestCalls.Load() != 0 {
			t.Fatalf("expected no query without a session")
		}
	})

	t.Run("failure keeps record", func(t *testing.T) {
		t.Parallel()
		boom := errs.Transient("connection refused", nil)
		api := newFakeAPI(answer{resume: resume("r1", clarity.StatusParsed)}, answer{err: boom})
		p := New(api, liveSession(true), nil)
		defer p.Close()

		if outcome, err := p.QueryLatest(context.Background()); err != nil || outcome != OutcomeFound {
			t.Fatalf("expected found, got %s (%v)", outcome, err)
		}
		outcome, err := p.QueryLatest(context.Background())
		if outcome != OutcomeFailed || !errors.Is(err, boom) {
			t.Fatalf("expected failed, got %s (%v)", outcome, err)
		}
		if p.State() != clarity.StatusParsed {
			t.Fatalf("expected record to be kept, got %s", p.State())
		}
	})

	t.Run("not found clears record", func(t *testing.T) {
		t.Parallel()
		api := newFakeAPI(answer{err: errs.NotFound("no document submitted yet", nil)})
		api.upload = answer{resume: resume("r1", clarity.StatusPending)}
		clock := newFakeClock()
		p := New(api, liveSession(true), nil, WithTicker(clock.newTicker))
		defer p.Close()

		if _, err := p.Submit(context.Background(), document()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tk := clock.next(t)

		outcome, err := p.QueryLatest(context.Background())
		if err != nil || outcome != OutcomeNotFound {
			t.Fatalf("expected not found, got %s (%v)", outcome, err)
		}
		tk.waitStopped(t)
		if p.State() != clarity.StatusNone {
			t.Fatalf("expected NONE, got %s", p.State())
		}
	})

	t.Run("terminal status does not revert", func(t *testing.T) {
		t.Parallel()
		api := newFakeAPI(
			answer{resume: resume("r1", clarity.StatusParsed)},
			answer{resume: resume("r1", clarity.StatusPending)},
			answer{resume: resume("r2", clarity.StatusPending)},
		)
		clock := newFakeClock()
		p := New(api, liveSession(true), nil, WithTicker(clock.newTicker))
		defer p.Close()

		if outcome, _ := p.QueryLatest(context.Background()); outcome != OutcomeFound {
			t.Fatalf("expected found, got %s", outcome)
		}
		if outcome, _ := p.QueryLatest(context.Background()); outcome != OutcomeDiscarded {
			t.Fatalf("expected regression to be discarded, got %s", outcome)
		}
		if p.State() != clarity.StatusParsed || p.Armed() {
			t.Fatalf("expected parsed and idle, got %s armed=%v", p.State(), p.Armed())
		}

		if outcome, _ := p.QueryLatest(context.Background()); outcome != OutcomeFound {
			t.Fatalf("expected a new record to be applied, got %s", outcome)
		}
		clock.next(t)
		if p.Record().ID != "r2" || !p.Armed() {
			t.Fatalf("expected r2 to arm polling")
		}
	})
}

func TestLateAnswerDiscarded(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(answer{resume: resume("r1", clarity.StatusParsing)})
	api.gate = make(chan struct{})
	p := New(api, liveSession(true), nil)
	defer p.Close()

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := p.QueryLatest(context.Background())
		done <- result{outcome, err}
	}()

	// The query is in flight once the fake has counted it.
	deadline := time.Now().Add(waitTimeout)
	for api.latestCalls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("query never started")
		}
		time.Sleep(time.Millisecond)
	}

	p.Reset()
	close(api.gate)

	res := <-done
	if res.err != nil || res.outcome != OutcomeDiscarded {
		t.Fatalf("expected discarded, got %s (%v)", res.outcome, res.err)
	}
	if p.State() != clarity.StatusNone || p.Armed() {
		t.Fatalf("late answer must not change state")
	}
}

func TestSubmitErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing document", func(t *testing.T) {
		t.Parallel()
		api := newFakeAPI()
		p := New(api, liveSession(true), nil)
		defer p.Close()

		for _, doc := range []*clarity.Document{nil, {Name: "cv.pdf"}, {Content: []byte("x")}} {
			if _, err := p.Submit(context.Background(), doc); !errs.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		}
		if api.uploadCalls.Load() != 0 {
			t.Fatalf("validation failures must not be sent")
		}
	})

	t.Run("no session", func(t *testing.T) {
		t.Parallel()
		api := newFakeAPI()
		p := New(api, liveSession(false), nil)
		defer p.Close()

		if _, err := p.Submit(context.Background(), document()); !errs.IsAuth(err) {
			t.Fatalf("expected auth error, got %v", err)
		}
		if api.uploadCalls.Load() != 0 {
			t.Fatalf("submission without a session must not be sent")
		}
	})

	t.Run("server rejects", func(t *testing.T) {
		t.Parallel()
		api := newFakeAPI(answer{resume: resume("r0", clarity.StatusParsed)})
		api.upload = answer{err: errs.Validation("bad status: 400 Bad Request: Only PDF files are supported", nil)}
		p := New(api, liveSession(true), nil)
		defer p.Close()

		if _, err := p.QueryLatest(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := p.Submit(context.Background(), document()); !errs.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if r := p.Record(); r == nil || r.ID != "r0" || p.Document() != nil || p.Armed() {
			t.Fatalf("failed submission must leave the prior state, got %+v", r)
		}
	})
}

func TestWait(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(answer{resume: resume("r1", clarity.StatusParsed)})
	api.upload = answer{resume: resume("r1", clarity.StatusPending)}
	clock := newFakeClock()
	p := New(api, liveSession(true), nil, WithTicker(clock.newTicker))
	defer p.Close()

	if _, err := p.Submit(context.Background(), document()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tk := clock.next(t)

	type result struct {
		r   *clarity.Resume
		err error
	}
	done := make(chan result, 1)
	go func() {
		r, err := p.Wait(context.Background())
		done <- result{r, err}
	}()

	tk.fire(t)

	select {
	case res := <-done:
		if res.err != nil || res.r.State() != clarity.StatusParsed {
			t.Fatalf("expected parsed record, got %+v (%v)", res.r, res.err)
		}
	case <-time.After(waitTimeout):
		t.Fatalf("wait did not return")
	}
}

func TestWaitIgnoresOtherDocuments(t *testing.T) {
	t.Parallel()

	// Latest keeps reporting the previously analysed document while the new
	// one is still being worked on.
	api := newFakeAPI(answer{resume: resume("old", clarity.StatusParsed)})
	api.get = []answer{
		{resume: resume("new", clarity.StatusParsing)},
		{resume: resume("new", clarity.StatusParsed)},
	}
	api.upload = answer{resume: resume("new", clarity.StatusPending)}
	clock := newFakeClock()
	p := New(api, liveSession(true), nil, WithTicker(clock.newTicker))
	defer p.Close()

	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	if _, err := p.Submit(context.Background(), document()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nextUpdate(t, updates)
	tk := clock.next(t)

	type result struct {
		r   *clarity.Resume
		err error
	}
	done := make(chan result, 1)
	go func() {
		r, err := p.Wait(context.Background())
		done <- result{r, err}
	}()

	tk.fire(t)
	if got := nextUpdate(t, updates); got.ID != "new" || got.State() != clarity.StatusParsing {
		t.Fatalf("expected new parsing update, got %+v", got)
	}
	select {
	case res := <-done:
		t.Fatalf("wait returned before the submitted document settled: %+v (%v)", res.r, res.err)
	case <-time.After(quietTimeout):
	}
	if !p.Armed() {
		t.Fatalf("expected polling to stay armed")
	}

	tk.fire(t)
	select {
	case res := <-done:
		if res.err != nil || res.r.ID != "new" || res.r.State() != clarity.StatusParsed {
			t.Fatalf("expected new parsed record, got %+v (%v)", res.r, res.err)
		}
	case <-time.After(waitTimeout):
		t.Fatalf("wait did not return")
	}
	tk.waitStopped(t)
	if calls := api.getCalls.Load(); calls != 2 {
		t.Fatalf("expected 2 lookups by id, got %d", calls)
	}
}

func TestWaitWithoutDocument(t *testing.T) {
	t.Parallel()

	p := New(newFakeAPI(), liveSession(true), nil)
	defer p.Close()

	if _, err := p.Wait(context.Background()); !errs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.upload = answer{resume: resume("r1", clarity.StatusPending)}
	clock := newFakeClock()
	p := New(api, liveSession(true), nil, WithTicker(clock.newTicker))

	updates, _ := p.Subscribe()
	if _, err := p.Submit(context.Background(), document()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tk := clock.next(t)

	p.Close()
	tk.waitStopped(t)

	<-updates
	if _, ok := <-updates; ok {
		t.Fatalf("expected subscription to be closed")
	}
	uploads := api.uploadCalls.Load()
	if _, err := p.Submit(context.Background(), document()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if calls := api.uploadCalls.Load(); calls != uploads {
		t.Fatalf("submit after close must not upload, got %d calls", calls-uploads)
	}
}
