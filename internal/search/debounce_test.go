package search

import (
	"testing"
	"time"
)

const testDelay = 20 * time.Millisecond

func newTestDebouncer() (*Debouncer, chan uint64) {
	fired := make(chan uint64, 8)
	d := NewDebouncer(testDelay, func(gen uint64) { fired <- gen })
	return d, fired
}

func TestDebouncerFiresOnceWithLatest(t *testing.T) {
	d, fired := newTestDebouncer()

	d.Schedule("chi")
	d.Schedule("chic")
	d.Schedule("chick")

	var gen uint64
	select {
	case gen = <-fired:
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}

	q, ok := d.Claim(gen)
	if !ok {
		t.Fatal("Claim() of the firing generation failed")
	}
	if q != "chick" {
		t.Errorf("Claim() = %q, want chick", q)
	}

	select {
	case g := <-fired:
		t.Errorf("debouncer fired again (gen %d)", g)
	case <-time.After(5 * testDelay):
	}

	if _, ok := d.Claim(gen); ok {
		t.Error("second Claim() of the same generation succeeded")
	}
}

func TestDebouncerCancelPreventsFire(t *testing.T) {
	d, fired := newTestDebouncer()

	d.Schedule("chick")
	d.Cancel()

	select {
	case g := <-fired:
		t.Errorf("cancelled debouncer fired (gen %d)", g)
	case <-time.After(5 * testDelay):
	}
	if _, pending := d.Pending(); pending {
		t.Error("Pending() true after Cancel")
	}
}

func TestDebouncerCancelAfterFireBlocksClaim(t *testing.T) {
	d, fired := newTestDebouncer()

	d.Schedule("chick")
	gen := <-fired
	d.Cancel()

	if _, ok := d.Claim(gen); ok {
		t.Error("Claim() succeeded after Cancel")
	}
}

func TestDebouncerRescheduleInvalidatesOldGeneration(t *testing.T) {
	d, fired := newTestDebouncer()

	d.Schedule("chick")
	old := <-fired
	d.Schedule("beef")

	if _, ok := d.Claim(old); ok {
		t.Error("Claim() of a replaced generation succeeded")
	}

	gen := <-fired
	q, ok := d.Claim(gen)
	if !ok || q != "beef" {
		t.Errorf("Claim() = %q, %v; want beef, true", q, ok)
	}
}

func TestDebouncerPending(t *testing.T) {
	d, fired := newTestDebouncer()

	if _, pending := d.Pending(); pending {
		t.Fatal("new debouncer reports pending")
	}
	d.Schedule("chick")
	if q, pending := d.Pending(); !pending || q != "chick" {
		t.Errorf("Pending() = %q, %v; want chick, true", q, pending)
	}
	d.Claim(<-fired)
	if _, pending := d.Pending(); pending {
		t.Error("Pending() true after Claim")
	}
}

func TestDebouncerDefaultDelay(t *testing.T) {
	d := NewDebouncer(0, func(uint64) {})
	if d.Delay() != DefaultDebounce {
		t.Errorf("Delay() = %v, want %v", d.Delay(), DefaultDebounce)
	}
}
