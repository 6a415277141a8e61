package otel

import "testing"

func TestDebugPaneToggle(t *testing.T) {
	orig := DebugPaneEnabled()
	defer SetDebugPane(orig)

	SetDebugPane(true)
	if !DebugPaneEnabled() {
		t.Error("DebugPaneEnabled() should be true after SetDebugPane(true)")
	}
	SetDebugPane(false)
	if DebugPaneEnabled() {
		t.Error("DebugPaneEnabled() should be false after SetDebugPane(false)")
	}
}
