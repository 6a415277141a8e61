package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abelbrown/foodlog/internal/logging"
	"github.com/abelbrown/foodlog/internal/otel"
	"github.com/abelbrown/foodlog/internal/usda"
)

// DefaultRequestTimeout bounds a single lookup.
const DefaultRequestTimeout = 15 * time.Second

// inboxSize is the capacity of the coordinator's event queue.
const inboxSize = 64

// Lookup fetches one page of foods. *usda.Client satisfies it.
type Lookup interface {
	Fetch(ctx context.Context, query string, page int) (usda.Page, error)
}

// Options tune a Coordinator. Zero values use the package defaults.
type Options struct {
	Debounce       time.Duration
	RequestTimeout time.Duration
	Events         *otel.Logger // optional
}

// Events handled by the owner goroutine.
type (
	inputChanged  struct{ text string }
	loadMore      struct{}
	retry         struct{}
	debounceFired struct{ gen uint64 }
	pageLoaded    struct {
		tok   Token
		page  usda.Page
		err   error
		took  time.Duration
		query Query
	}
)

// Coordinator is the consumer-facing search core. All state transitions
// happen on the goroutine started by Start; the exported methods only post
// events to it, so they are safe to call from any goroutine.
// Context cancellation is the only stop mechanism.
type Coordinator struct {
	lookup   Lookup
	events   *otel.Logger
	timeout  time.Duration
	debounce *Debouncer
	arbiter  Arbiter

	inbox chan any
	done  chan struct{}
	wg    sync.WaitGroup

	// Owned by the run goroutine.
	query         Query
	sessionCtx    context.Context
	cancelSession context.CancelFunc

	mu      sync.RWMutex
	snap    Snapshot
	subs    []chan Snapshot
	stopped bool

	discarded atomic.Int64 // stale responses dropped, for tests and stats
}

// NewCoordinator creates a Coordinator around lookup. Call Start before use.
func NewCoordinator(lookup Lookup, opts Options) *Coordinator {
	c := &Coordinator{
		lookup:  lookup,
		events:  opts.Events,
		timeout: opts.RequestTimeout,
		inbox:   make(chan any, inboxSize),
		done:    make(chan struct{}),
	}
	if c.timeout <= 0 {
		c.timeout = DefaultRequestTimeout
	}
	c.debounce = NewDebouncer(opts.Debounce, func(gen uint64) {
		c.post(debounceFired{gen: gen})
	})
	return c
}

// Start runs the owner goroutine until ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) {
	c.sessionCtx, c.cancelSession = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				c.debounce.Cancel()
				c.cancelSession()
				c.closeSubscribers()
				return
			case ev := <-c.inbox:
				c.handle(ctx, ev)
				c.publish()
			}
		}
	}()
}

// Wait blocks until the owner goroutine and every lookup goroutine exit.
// Call after cancelling the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// OnInputChanged feeds the raw contents of the search box.
func (c *Coordinator) OnInputChanged(text string) {
	c.post(inputChanged{text: text})
}

// LoadMore requests the next page of the current session, if allowed.
func (c *Coordinator) LoadMore() {
	c.post(loadMore{})
}

// Retry re-dispatches the last failed page. Nothing is ever retried
// without this call.
func (c *Coordinator) Retry() {
	c.post(retry{})
}

// Snapshot returns the latest derived state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Subscribe returns a channel that always holds the newest Snapshot; older
// undelivered snapshots are replaced. The channel is closed on shutdown.
func (c *Coordinator) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	ch <- c.snap
	if c.stopped {
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	return ch
}

// OnResultSelected returns the i-th visible result for autofill.
func (c *Coordinator) OnResultSelected(i int) (usda.Food, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.snap.Results) {
		return usda.Food{}, false
	}
	return c.snap.Results[i], true
}

func (c *Coordinator) post(ev any) {
	select {
	case c.inbox <- ev:
	case <-c.done:
	}
}

func (c *Coordinator) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case inputChanged:
		c.onInput(ev.text)
	case debounceFired:
		c.onSettled(ctx, ev.gen)
	case loadMore:
		if tok, ok := c.arbiter.Advance(); ok {
			c.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSearchMore, SearchID: tok.SessionID, Page: tok.Page, Query: string(c.query)})
			c.dispatch(tok, c.query)
		}
	case retry:
		if tok, ok := c.arbiter.Retry(); ok {
			if tok.Page == 1 {
				c.restartSession(ctx)
			}
			c.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSearchStart, SearchID: tok.SessionID, Page: tok.Page, Query: string(c.query), Msg: "retry"})
			c.dispatch(tok, c.query)
		}
	case pageLoaded:
		c.onPage(ev)
	}
}

func (c *Coordinator) onInput(text string) {
	q, err := Normalize(text)
	if err != nil {
		c.debounce.Cancel()
		if c.query == "" && c.arbiter.Current() == nil {
			return
		}
		c.arbiter.Discard()
		c.cancelInflight()
		c.query = ""
		c.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindSearchReset, Comp: "search"})
		return
	}

	if s := c.arbiter.Current(); s != nil && s.Query == q {
		// Back to the query already on screen: nothing to dispatch.
		c.debounce.Cancel()
		c.query = q
		return
	}

	if c.arbiter.Current() != nil {
		c.arbiter.Discard()
		c.cancelInflight()
	}
	c.query = q
	c.debounce.Schedule(q)
	c.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindSearchDebounce, Query: string(q)})
}

func (c *Coordinator) onSettled(ctx context.Context, gen uint64) {
	q, ok := c.debounce.Claim(gen)
	if !ok || q != c.query {
		return
	}
	c.restartSession(ctx)
	tok := c.arbiter.Supersede(q)
	c.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSearchStart, SearchID: tok.SessionID, Page: 1, Query: string(q)})
	c.dispatch(tok, q)
}

func (c *Coordinator) onPage(ev pageLoaded) {
	if err := c.arbiter.Resolve(ev.tok, ev.page, ev.err); err != nil {
		if errors.Is(err, ErrSuperseded) {
			c.discarded.Add(1)
			c.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSearchStale, SearchID: ev.tok.SessionID, Page: ev.tok.Page, Query: string(ev.query)})
		}
		return
	}

	if ev.err != nil {
		logging.Warn("Food lookup failed", "query", ev.query, "page", ev.tok.Page, "error", ev.err)
		c.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindSearchError, SearchID: ev.tok.SessionID, Page: ev.tok.Page, Query: string(ev.query), Dur: ev.took, Err: ev.err.Error()})
		return
	}
	c.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSearchPage, SearchID: ev.tok.SessionID, Page: ev.tok.Page, Query: string(ev.query), Dur: ev.took, Count: len(ev.page.Foods)})
}

// restartSession cancels every lookup of the previous session and derives
// a fresh context for the next one.
func (c *Coordinator) restartSession(ctx context.Context) {
	c.cancelSession()
	c.sessionCtx, c.cancelSession = context.WithCancel(ctx)
}

// cancelInflight aborts the transport calls of a discarded session. Their
// late replies are dropped by the token check either way.
func (c *Coordinator) cancelInflight() {
	c.cancelSession()
}

// dispatch runs one lookup off the owner goroutine and posts its outcome
// back as a pageLoaded event.
func (c *Coordinator) dispatch(tok Token, q Query) {
	reqCtx, cancel := context.WithTimeout(c.sessionCtx, c.timeout)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		start := time.Now()
		page, err := c.lookup.Fetch(reqCtx, string(q), tok.Page)
		if err == nil {
			page.Number = tok.Page
		}
		c.post(pageLoaded{tok: tok, page: page, err: err, took: time.Since(start), query: q})
	}()
}

// publish derives the snapshot and hands it to subscribers, replacing any
// snapshot they have not read yet.
func (c *Coordinator) publish() {
	_, debouncing := c.debounce.Pending()
	snap := Derive(c.query, debouncing, c.arbiter.Current())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (c *Coordinator) closeSubscribers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	c.stopped = true
}

func (c *Coordinator) emit(e otel.Event) {
	if e.Comp == "" {
		e.Comp = "search"
	}
	c.events.Emit(e)
}
