package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestEmitWritesSearchEvent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindSearchStart, Level: LevelInfo, Comp: "search", SearchID: 7, Page: 1, Query: "chick"})
	l.Close()

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	ev := lines[0]
	if ev["kind"] != "search.start" {
		t.Errorf("kind = %v, want search.start", ev["kind"])
	}
	if ev["sid"] != float64(7) {
		t.Errorf("sid = %v, want 7", ev["sid"])
	}
	if ev["page"] != float64(1) {
		t.Errorf("page = %v, want 1", ev["page"])
	}
	if ev["query"] != "chick" {
		t.Errorf("query = %v, want chick", ev["query"])
	}
}

func TestEmitStampsTimeAndRunID(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Emit(Event{Kind: KindShutdown})
	l.Close()
	after := time.Now()

	var first, second Event
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if first.Time.Before(before) || first.Time.After(after) {
		t.Errorf("time %v not in [%v, %v]", first.Time, before, after)
	}
	if len(first.RunID) != 16 {
		t.Errorf("run_id should be 16 hex chars, got %q", first.RunID)
	}
	if first.RunID != second.RunID {
		t.Errorf("run ids differ: %q vs %q", first.RunID, second.RunID)
	}
}

func TestDurationAsMilliseconds(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindSearchPage, Dur: 250 * time.Millisecond})
	l.Close()

	ev := decodeLines(t, &buf)[0]
	if ev["dur_ms"] != float64(250) {
		t.Errorf("dur_ms = %v, want 250", ev["dur_ms"])
	}
}

func TestOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStartup})
	l.Close()

	line := buf.String()
	for _, field := range []string{"dur_ms", "count", "query", "err", "msg", "extra", "sid", "page"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Errorf("field %q should be omitted: %s", field, line)
		}
	}
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Emit(Event{Kind: KindSearchDebounce, Comp: "search"})
		}()
	}
	wg.Wait()
	l.Close()

	if got := len(decodeLines(t, &buf)); got != 50 {
		t.Errorf("expected 50 lines, got %d", got)
	}
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Close()
	l.Close()

	l.Emit(Event{Kind: KindStartup})
	if l.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", l.Dropped())
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Info(KindStartup, "main", "hi")
	l.Close()
	if l.Dropped() != 0 {
		t.Error("nil logger should report no drops")
	}
}

func TestLevelHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Info(KindStartup, "main", "starting")
	l.Warn(KindSearchError, "search", "page 2 failed")
	l.Error(KindStoreError, "store", errors.New("disk full"))
	l.Close()

	lines := decodeLines(t, &buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	want := []struct{ level, kind, comp string }{
		{"info", "sys.startup", "main"},
		{"warn", "search.error", "search"},
		{"error", "store.error", "store"},
	}
	for i, w := range want {
		if lines[i]["level"] != w.level || lines[i]["kind"] != w.kind || lines[i]["comp"] != w.comp {
			t.Errorf("line %d = %v, want %+v", i, lines[i], w)
		}
	}
	if lines[2]["err"] != "disk full" {
		t.Errorf("err = %v, want disk full", lines[2]["err"])
	}
}

func TestRingBufferReceivesEvents(t *testing.T) {
	l := NewNullLogger()
	rb := NewRingBuffer(8)
	l.SetRingBuffer(rb)

	l.Info(KindSearchStart, "search", "a")
	l.Info(KindSearchStale, "search", "b")
	l.Close()

	if rb.Len() != 2 {
		t.Fatalf("ring has %d events, want 2", rb.Len())
	}
	if rb.Count(KindSearchStale) != 1 {
		t.Errorf("Count(stale) = %d, want 1", rb.Count(KindSearchStale))
	}
}
