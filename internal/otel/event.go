// Package otel records what the search coordinator and meal log do as
// JSONL events.
//
// Emit never blocks the caller: events go through a buffered channel to a
// drain goroutine that writes the file and feeds an optional RingBuffer,
// which backs the TUI debug pane.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind is "<subsystem>.<action>".
type EventKind string

const (
	// Search coordinator
	KindSearchDebounce EventKind = "search.debounce" // timer armed for an accepted query
	KindSearchReset    EventKind = "search.reset"    // input rejected, back to idle
	KindSearchStart    EventKind = "search.start"    // session opened, page 1 issued
	KindSearchMore     EventKind = "search.more"     // page > 1 issued
	KindSearchPage     EventKind = "search.page"     // page applied to the session
	KindSearchStale    EventKind = "search.stale"    // response for a superseded session dropped
	KindSearchError    EventKind = "search.error"    // lookup failed for the current session

	// Meal log
	KindMealLogged  EventKind = "meal.logged"
	KindMealDeleted EventKind = "meal.deleted"
	KindStoreError  EventKind = "store.error"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is one observability record. Only Kind is required.
type Event struct {
	Time     time.Time      `json:"t"`
	Level    Level          `json:"level,omitempty"`
	Kind     EventKind      `json:"kind"`
	Comp     string         `json:"comp,omitempty"`   // "search", "ui", "store", "main"
	RunID    string         `json:"run_id,omitempty"` // random hex, same for the whole process
	SearchID uint64         `json:"sid,omitempty"`    // search session id
	Page     int            `json:"page,omitempty"`
	Dur      time.Duration  `json:"-"`
	DurMs    float64        `json:"dur_ms,omitempty"` // filled from Dur when marshalled
	Count    int            `json:"count,omitempty"`
	Query    string         `json:"query,omitempty"`
	Err      string         `json:"err,omitempty"`
	Msg      string         `json:"msg,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
