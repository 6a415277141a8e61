package search

import "github.com/abelbrown/foodlog/internal/usda"

// UIState is what the result area should show. It is always derived, never
// stored.
type UIState int

const (
	Idle UIState = iota
	Debouncing
	Loading
	HasResults
	Empty
	Failed
)

func (s UIState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Loading:
		return "loading"
	case HasResults:
		return "results"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the search for rendering.
type Snapshot struct {
	State     UIState
	Query     Query
	SessionID uint64
	Results   []usda.Food

	// LoadingMore is set while a page > 1 is in flight under HasResults.
	LoadingMore bool
	// CanLoadMore reports whether LoadMore would issue a request.
	CanLoadMore bool
	// Pages is how many pages have been applied.
	Pages int
	// Err is the failure behind Failed.
	Err error
	// Notice is a non-blocking failure shown over existing results.
	Notice error
}

// Derive computes the Snapshot for the accepted query, whether a debounce
// timer is pending, and the current session (which may be nil).
func Derive(q Query, debouncing bool, s *Session) Snapshot {
	snap := Snapshot{Query: q}

	if q == "" {
		snap.State = Idle
		return snap
	}
	if s == nil || s.Query != q {
		if debouncing {
			snap.State = Debouncing
		} else {
			snap.State = Idle
		}
		return snap
	}

	snap.SessionID = s.ID
	snap.Pages = s.applied
	snap.CanLoadMore = s.CanAdvance()
	errPage, err := s.Failure()

	switch {
	case len(s.Results) > 0:
		snap.State = HasResults
		snap.Results = s.results()
		snap.LoadingMore = s.Loading()
		if err != nil && errPage > 1 {
			snap.Notice = err
		}
	case err != nil:
		snap.State = Failed
		snap.Err = err
	case s.Loading() || s.applied == 0:
		snap.State = Loading
	default:
		snap.State = Empty
	}
	return snap
}
