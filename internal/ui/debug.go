package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/foodlog/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
const debugPanelChrome = 4

// debugOverlay renders search counters and recent events from ring.
// Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Search Stats"))
	lines = append(lines, fmt.Sprintf("  Sessions:   %d started, %d pages, %d more",
		ring.Count(otel.KindSearchStart), ring.Count(otel.KindSearchPage), ring.Count(otel.KindSearchMore)))
	lines = append(lines, fmt.Sprintf("  Discarded:  %d stale, %d errors",
		ring.Count(otel.KindSearchStale), ring.Count(otel.KindSearchError)))
	lines = append(lines, fmt.Sprintf("  Meals:      %d logged, %d deleted",
		ring.Count(otel.KindMealLogged), ring.Count(otel.KindMealDeleted)))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range ring.Last(20) {
		line := fmt.Sprintf("  %6s  %-16s", formatAge(time.Since(e.Time)), string(e.Kind))
		if e.SearchID != 0 {
			line += fmt.Sprintf("  sid:%d", e.SearchID)
		}
		if e.Page != 0 {
			line += fmt.Sprintf(" p%d", e.Page)
		}
		if e.Query != "" {
			line += "  " + truncateRunes(e.Query, 24)
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 30)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		lines = append(lines, line)
	}

	maxHeight := max(height-debugPanelChrome, 1)
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := min(76, width-4)
	if panelWidth < 20 {
		panelWidth = 20
	}

	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// formatAge formats a duration as a compact human string.
// Negative durations from clock skew clamp to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("ctrl+g") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
