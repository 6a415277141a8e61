package otel

import (
	"os"
	"sync/atomic"
)

// debugPane is read by the UI on every render, so it is atomic.
var debugPane atomic.Bool

func init() {
	debugPane.Store(os.Getenv("FOODLOG_DEBUG") != "")
}

// DebugPaneEnabled reports whether the TUI should open with the event pane
// visible (FOODLOG_DEBUG set, or the --debug flag).
func DebugPaneEnabled() bool {
	return debugPane.Load()
}

// SetDebugPane overrides the FOODLOG_DEBUG default.
func SetDebugPane(v bool) {
	debugPane.Store(v)
}
