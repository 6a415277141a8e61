package otel

import (
	"sync"
	"testing"
)

func TestLastReturnsNewestInOrder(t *testing.T) {
	r := NewRingBuffer(8)
	for i := 0; i < 5; i++ {
		r.Push(Event{Kind: KindSearchPage, Count: i})
	}

	got := r.Last(3)
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, e := range got {
		if e.Count != i+2 {
			t.Errorf("got[%d].Count = %d, want %d", i, e.Count, i+2)
		}
	}
}

func TestWrapAroundEvictsOldest(t *testing.T) {
	r := NewRingBuffer(4)
	for i := 0; i < 6; i++ {
		r.Push(Event{Kind: KindSearchPage, Count: i})
	}

	if r.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", r.Len())
	}
	got := r.Last(10)
	for i, e := range got {
		if e.Count != i+2 {
			t.Errorf("got[%d].Count = %d, want %d", i, e.Count, i+2)
		}
	}
}

func TestLastEdgeCases(t *testing.T) {
	r := NewRingBuffer(4)
	if r.Last(3) != nil {
		t.Error("empty ring should return nil")
	}
	r.Push(Event{Kind: KindStartup})
	if r.Last(0) != nil {
		t.Error("Last(0) should return nil")
	}
}

func TestCountByKind(t *testing.T) {
	r := NewRingBuffer(3)
	r.Push(Event{Kind: KindSearchStale})
	r.Push(Event{Kind: KindSearchStale})
	r.Push(Event{Kind: KindSearchPage})
	r.Push(Event{Kind: KindSearchPage})

	if got := r.Count(KindSearchStale); got != 1 {
		t.Errorf("Count(stale) = %d, want 1", got)
	}
	if got := r.Count(KindSearchPage); got != 2 {
		t.Errorf("Count(page) = %d, want 2", got)
	}
}

func TestPushCopiesExtra(t *testing.T) {
	r := NewRingBuffer(2)
	extra := map[string]any{"k": 1}
	r.Push(Event{Kind: KindStartup, Extra: extra})
	extra["k"] = 2

	if got := r.Last(1)[0].Extra["k"]; got != 1 {
		t.Errorf("Extra aliased: got %v, want 1", got)
	}
}

func TestConcurrentPushAndRead(t *testing.T) {
	r := NewRingBuffer(64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Push(Event{Kind: KindSearchPage})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = r.Last(10)
				_ = r.Count(KindSearchPage)
			}
		}()
	}
	wg.Wait()

	if r.Len() != 64 {
		t.Errorf("Len() = %d, want 64", r.Len())
	}
}
