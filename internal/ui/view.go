package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/foodlog/internal/search"
	"github.com/abelbrown/foodlog/internal/usda"
)

// chrome is the number of lines around the result list: title, the
// bordered search box (3), state line, totals and status bar.
const chrome = 7

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.showDebug {
		return lipgloss.JoinVertical(lipgloss.Left,
			debugOverlay(a.ring, a.width, a.height-1),
			debugStatusBar(a.width))
	}

	header := Title.Render("foodlog") + MealBadge.Render(a.mealType.String())
	box := SearchBox.Width(max(a.width-2, 20)).Render(a.input.View())

	var status string
	switch {
	case a.err != nil:
		status = ErrorStyle.Render("Error: " + a.err.Error())
	case a.status != "":
		status = SuccessStyle.Render(a.status)
	default:
		status = a.stateLine()
	}

	body := RenderResults(a.snap, a.cursor, a.width, a.height-chrome)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		box,
		status,
		body,
		RenderTotals(a.totals.Meals, a.totals.Calories, a.totals.Protein, a.totals.Fat, a.totals.Carbohydrates, a.width),
		a.statusBar(),
	)
}

// stateLine describes the search state above the result list.
func (a App) stateLine() string {
	s := a.snap
	switch s.State {
	case search.Idle:
		return Hint.Render(fmt.Sprintf("Type at least %d characters to search", search.MinQueryLen))
	case search.Debouncing:
		return Hint.Render("…")
	case search.Loading:
		return Hint.Render(a.spinner.View() + " Searching for " + string(s.Query))
	case search.Empty:
		return Hint.Render(fmt.Sprintf("No foods found for %q", s.Query))
	case search.Failed:
		return ErrorStyle.Render(describeError(s.Err)) + Hint.Render("ctrl+r to retry")
	case search.HasResults:
		line := Hint.Render(fmt.Sprintf("%d results for %q", len(s.Results), s.Query))
		if s.LoadingMore {
			line += Hint.Render(a.spinner.View() + " loading more")
		}
		if s.Notice != nil {
			line += NoticeStyle.Render(describeError(s.Notice) + ", ctrl+r to retry")
		}
		return line
	}
	return ""
}

// describeError turns a lookup failure into a short user-facing message.
func describeError(err error) string {
	var (
		se *usda.StatusError
		te *usda.TransportError
		pe *usda.ParseError
	)
	switch {
	case errors.As(err, &se):
		return se.Error()
	case errors.As(err, &te):
		return "network error, check your connection"
	case errors.As(err, &pe):
		return "unexpected response from the food database"
	case err != nil:
		return err.Error()
	}
	return ""
}

// RenderResults renders the visible window of results around cursor.
// Pure function so it can be tested without a program.
func RenderResults(s search.Snapshot, cursor, width, height int) string {
	if len(s.Results) == 0 || height < 1 {
		return ""
	}

	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	end := min(start+height, len(s.Results))

	lines := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		lines = append(lines, renderFood(s.Results[i], i == cursor, width))
	}
	if end == len(s.Results) && s.CanLoadMore {
		lines = append(lines, Hint.Render("pgdn for more"))
	}
	return strings.Join(lines, "\n")
}

func renderFood(f usda.Food, selected bool, width int) string {
	macros := fmt.Sprintf("%4.0f kcal  P %5.1f  F %5.1f  C %5.1f", f.Calories, f.Protein, f.Fat, f.Carbohydrates)
	nameWidth := max(width-len(macros)-6, 10)
	name := truncateRunes(f.Name, nameWidth)
	name += strings.Repeat(" ", max(nameWidth-len([]rune(name)), 0))

	if selected {
		return SelectedItem.Render(name + "  " + macros)
	}
	return NormalItem.Render(name) + "  " + Macros.Render(macros)
}

// RenderTotals renders the daily totals line.
func RenderTotals(meals, calories int, protein, fat, carbs float64, width int) string {
	text := fmt.Sprintf("Today: %d kcal  P %.1fg  F %.1fg  C %.1fg  (%d entries)", calories, protein, fat, carbs, meals)
	return TotalsBar.Width(width).Render(text)
}

func (a App) statusBar() string {
	var hints []string
	for _, b := range a.keys.shortHelp() {
		h := b.Help()
		hints = append(hints, StatusBarKey.Render(h.Key)+StatusBarText.Render(":"+h.Desc))
	}
	return StatusBar.Width(a.width).Render(strings.Join(hints, "  "))
}

// truncateRunes shortens s to at most n runes, ending in "…" when cut.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
