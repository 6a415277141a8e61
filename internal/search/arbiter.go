package search

import (
	"errors"
	"slices"

	"github.com/abelbrown/foodlog/internal/usda"
)

// ErrSuperseded marks a response that belongs to a session (or page) that is
// no longer current. It is an expected outcome, not a failure.
var ErrSuperseded = errors.New("search: superseded")

// Token identifies one issued lookup.
type Token struct {
	SessionID uint64
	Page      int
}

// outcome is a finished lookup waiting for its turn to be applied.
type outcome struct {
	page usda.Page
	err  error
}

// Session is one logical search for a single Query.
type Session struct {
	ID      uint64
	Query   Query
	Results []usda.Food

	issued    int // highest page requested
	applied   int // highest page appended, in order
	nonEmpty  bool
	exhausted bool // the last applied page came back empty
	inflight  map[int]bool
	buffered  map[int]outcome
	seen      map[string]bool // food ids already in Results
	err       error
	errPage   int
}

func newSession(id uint64, q Query) *Session {
	return &Session{
		ID:       id,
		Query:    q,
		inflight: make(map[int]bool),
		buffered: make(map[int]outcome),
		seen:     make(map[string]bool),
	}
}

// Loading reports whether any page of the session is in flight.
func (s *Session) Loading() bool {
	return len(s.inflight) > 0
}

// PagesApplied returns how many pages have been appended in order.
func (s *Session) PagesApplied() int {
	return s.applied
}

// Failure returns the page and error of the most recent failed lookup.
// err is nil once a later page succeeds.
func (s *Session) Failure() (page int, err error) {
	return s.errPage, s.err
}

// CanAdvance reports whether another page may be requested.
func (s *Session) CanAdvance() bool {
	return s.nonEmpty && !s.exhausted && !s.Loading()
}

// Arbiter owns the single current Session. It is not safe for concurrent
// use; Coordinator calls it from one goroutine.
type Arbiter struct {
	lastID  uint64
	current *Session
}

// Current returns the open session, or nil.
func (a *Arbiter) Current() *Session {
	return a.current
}

// Open discards any current session and starts a new one for q, issuing
// page 1.
func (a *Arbiter) Open(q Query) Token {
	a.lastID++
	a.current = newSession(a.lastID, q)
	return a.issue(a.current, 1)
}

// Supersede replaces the current session with one for q. Tokens of the old
// session become permanently stale.
func (a *Arbiter) Supersede(q Query) Token {
	a.Discard()
	return a.Open(q)
}

// Discard drops the current session without opening another.
func (a *Arbiter) Discard() {
	a.current = nil
}

// Advance issues the next page of the current session. It refuses until a
// non-empty page has been applied, while anything is in flight, and after
// an empty page signalled the end of results.
func (a *Arbiter) Advance() (Token, bool) {
	s := a.current
	if s == nil || !s.CanAdvance() {
		return Token{}, false
	}
	return a.issue(s, s.issued+1), true
}

// Retry re-issues the page that failed last. A failed page 1 restarts the
// query in a fresh session.
func (a *Arbiter) Retry() (Token, bool) {
	s := a.current
	if s == nil || s.err == nil || s.Loading() {
		return Token{}, false
	}
	if s.errPage <= 1 {
		return a.Supersede(s.Query), true
	}
	return a.issue(s, s.errPage), true
}

func (a *Arbiter) issue(s *Session, page int) Token {
	s.inflight[page] = true
	if page > s.issued {
		s.issued = page
	}
	return Token{SessionID: s.ID, Page: page}
}

// Resolve routes a finished lookup. Responses for a superseded session, or
// for a page that is no longer outstanding, return ErrSuperseded and leave
// every piece of state untouched. Otherwise the outcome is buffered and all
// consecutive pages from applied+1 onward are applied in page order.
func (a *Arbiter) Resolve(tok Token, page usda.Page, err error) error {
	s := a.current
	if s == nil || tok.SessionID != s.ID || !s.inflight[tok.Page] {
		return ErrSuperseded
	}
	delete(s.inflight, tok.Page)
	s.buffered[tok.Page] = outcome{page: page, err: err}

	for {
		next := s.applied + 1
		o, ok := s.buffered[next]
		if !ok {
			return nil
		}
		delete(s.buffered, next)

		if o.err != nil {
			a.fail(s, next, o.err)
			return nil
		}
		a.apply(s, next, o.page)
	}
}

func (a *Arbiter) apply(s *Session, n int, p usda.Page) {
	s.applied = n
	s.err, s.errPage = nil, 0

	if p.Empty() {
		s.exhausted = true
		if n == 1 {
			s.Results = nil
		}
		return
	}
	s.nonEmpty = true
	for _, f := range p.Foods {
		if f.ID != "" {
			if s.seen[f.ID] {
				continue
			}
			s.seen[f.ID] = true
		}
		s.Results = append(s.Results, f)
	}
}

// fail records err for page n. Later pages can no longer be appended in
// order, so their buffered or in-flight outcomes are dropped and the page
// cursor rewinds to n-1; Retry or Advance asks for n again.
func (a *Arbiter) fail(s *Session, n int, err error) {
	s.err, s.errPage = err, n
	if n == 1 {
		s.Results = nil
		clear(s.seen)
	}
	for p := range s.inflight {
		if p > n {
			delete(s.inflight, p)
		}
	}
	clear(s.buffered)
	s.issued = n - 1
}

// results returns a copy safe to hand to other goroutines.
func (s *Session) results() []usda.Food {
	return slices.Clone(s.Results)
}
