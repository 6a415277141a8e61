package search

import (
	"sync"
	"time"
)

// Debounce bounds and default. Config clamps user values into this range.
const (
	DefaultDebounce = 500 * time.Millisecond
	MinDebounce     = 300 * time.Millisecond
	MaxDebounce     = 2000 * time.Millisecond
)

// Debouncer holds at most one pending timer. Every Schedule replaces the
// previous timer; expiry reports the generation that fired, and only a
// Claim for the current generation yields a query. Cancel bumps the
// generation, so a timer that already fired but has not been claimed yet
// can no longer dispatch.
type Debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	timer  *time.Timer
	gen    uint64
	armed  bool
	latest Query
	fire   func(gen uint64)
}

// NewDebouncer creates a Debouncer that calls fire (on the timer's
// goroutine) when a scheduled query settles.
func NewDebouncer(delay time.Duration, fire func(gen uint64)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, fire: fire}
}

// Delay returns the settle window.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule (re)arms the timer for q.
func (d *Debouncer) Schedule(q Query) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	d.latest = q
	d.armed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		live := d.armed && d.gen == gen
		d.mu.Unlock()
		if live {
			d.fire(gen)
		}
	})
}

// Claim consumes the pending query if gen is still current.
func (d *Debouncer) Claim(gen uint64) (Query, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.armed || gen != d.gen {
		return "", false
	}
	d.armed = false
	d.timer = nil
	return d.latest, true
}

// Cancel drops any pending query. Nothing scheduled before Cancel will be
// claimable afterwards.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	d.armed = false
	d.latest = ""
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a query is waiting to settle.
func (d *Debouncer) Pending() (Query, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest, d.armed
}
