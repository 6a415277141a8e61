package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/foodlog/internal/otel"
	"github.com/abelbrown/foodlog/internal/search"
	"github.com/abelbrown/foodlog/internal/store"
)

// Searcher is the part of search.Coordinator the TUI drives.
type Searcher interface {
	OnInputChanged(text string)
	LoadMore()
	Retry()
	Subscribe() <-chan search.Snapshot
}

// MealLog is the part of store.Store the TUI writes to.
type MealLog interface {
	AddMeal(m store.Meal) (store.Meal, error)
	DeleteMeal(id string) error
	MealsOn(day time.Time) ([]store.Meal, error)
	DailyTotals(day time.Time) (store.Totals, error)
}

// App is the root Bubble Tea model.
// App never blocks on the search or the store; both answer through messages.
type App struct {
	searcher Searcher
	meals    MealLog
	events   *otel.Logger
	ring     *otel.RingBuffer
	now      func() time.Time

	updates <-chan search.Snapshot
	input   textinput.Model
	spinner spinner.Model
	keys    keyMap

	snap     search.Snapshot
	cursor   int
	mealType store.MealType
	today    []store.Meal
	totals   store.Totals
	lastID   string // most recent meal logged this run, for undo
	status   string
	err      error

	width     int
	height    int
	ready     bool
	showDebug bool
}

// NewApp creates an App. meals, events and ring may be nil.
func NewApp(s Searcher, meals MealLog, events *otel.Logger, ring *otel.RingBuffer) App {
	in := textinput.New()
	in.Placeholder = "Search foods (e.g. chicken breast)"
	in.Prompt = "🔍 "
	in.CharLimit = 120
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return App{
		searcher:  s,
		meals:     meals,
		events:    events,
		ring:      ring,
		now:       time.Now,
		updates:   s.Subscribe(),
		input:     in,
		spinner:   sp,
		keys:      defaultKeys(),
		mealType:  defaultMealType(time.Now()),
		showDebug: otel.DebugPaneEnabled(),
	}
}

// defaultMealType guesses the meal slot from the time of day.
func defaultMealType(t time.Time) store.MealType {
	switch h := t.Hour(); {
	case h >= 5 && h < 11:
		return store.Breakfast
	case h >= 11 && h < 16:
		return store.Lunch
	case h >= 16 && h < 22:
		return store.Dinner
	default:
		return store.Snack
	}
}

// Init starts listening for search snapshots and loads today's log.
func (a App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.spinner.Tick, waitForSnapshot(a.updates), a.loadDay())
}

func waitForSnapshot(ch <-chan search.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return searchClosed{}
		}
		return SnapshotMsg{Snap: snap}
	}
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = max(msg.Width-10, 10)
		a.ready = true
		return a, nil

	case SnapshotMsg:
		a.snap = msg.Snap
		if a.cursor >= len(a.snap.Results) {
			a.cursor = max(len(a.snap.Results)-1, 0)
		}
		return a, waitForSnapshot(a.updates)

	case searchClosed:
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case MealLogged:
		if msg.Err != nil {
			a.err = msg.Err
			a.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindStoreError, Comp: "ui", Err: msg.Err.Error()})
			return a, nil
		}
		a.lastID = msg.Meal.ID
		a.status = "Logged " + msg.Meal.Name + " for " + msg.Meal.MealType.String()
		a.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindMealLogged, Comp: "ui",
			Msg: msg.Meal.Name, Count: msg.Meal.Calories, Extra: map[string]any{"meal_type": msg.Meal.MealType.String()}})
		return a, a.loadDay()

	case MealDeleted:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		if a.lastID == msg.ID {
			a.lastID = ""
		}
		a.status = "Removed last entry"
		a.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindMealDeleted, Comp: "ui", Msg: msg.ID})
		return a, a.loadDay()

	case DayLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.today = msg.Meals
		a.totals = msg.Totals
		return a, nil
	}

	return a, nil
}

// handleKeyMsg processes keyboard input. Anything that is not a binding
// goes to the search box.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.err != nil {
		a.err = nil
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case key.Matches(msg, a.keys.Down):
		if a.cursor < len(a.snap.Results)-1 {
			a.cursor++
		} else if a.snap.CanLoadMore {
			a.searcher.LoadMore()
		}
		return a, nil

	case key.Matches(msg, a.keys.More):
		a.searcher.LoadMore()
		return a, nil

	case key.Matches(msg, a.keys.Retry):
		a.searcher.Retry()
		return a, nil

	case key.Matches(msg, a.keys.MealType):
		a.mealType = a.mealType.Next()
		return a, nil

	case key.Matches(msg, a.keys.Log):
		return a, a.logSelected()

	case key.Matches(msg, a.keys.Undo):
		if a.lastID == "" || a.meals == nil {
			return a, nil
		}
		return a, a.deleteMeal(a.lastID)

	case key.Matches(msg, a.keys.Debug):
		a.showDebug = !a.showDebug
		return a, nil

	case key.Matches(msg, a.keys.Clear):
		a.input.SetValue("")
		a.cursor = 0
		a.searcher.OnInputChanged("")
		return a, nil
	}

	before := a.input.Value()
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	if v := a.input.Value(); v != before {
		a.cursor = 0
		a.status = ""
		a.searcher.OnInputChanged(v)
	}
	return a, cmd
}

// logSelected autofills a meal from the highlighted result and stores it.
// The row comes from the snapshot on screen, not the coordinator's newest.
func (a App) logSelected() tea.Cmd {
	if a.meals == nil || a.cursor < 0 || a.cursor >= len(a.snap.Results) {
		return nil
	}
	food := a.snap.Results[a.cursor]
	meal := store.MealFromFood(food, a.mealType, a.now())
	meals := a.meals
	return func() tea.Msg {
		saved, err := meals.AddMeal(meal)
		return MealLogged{Meal: saved, Err: err}
	}
}

func (a App) deleteMeal(id string) tea.Cmd {
	meals := a.meals
	return func() tea.Msg {
		return MealDeleted{ID: id, Err: meals.DeleteMeal(id)}
	}
}

func (a App) loadDay() tea.Cmd {
	if a.meals == nil {
		return nil
	}
	meals, day := a.meals, a.now()
	return func() tea.Msg {
		list, err := meals.MealsOn(day)
		if err != nil {
			return DayLoaded{Err: err}
		}
		totals, err := meals.DailyTotals(day)
		return DayLoaded{Meals: list, Totals: totals, Err: err}
	}
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// MealType returns the meal slot new entries are logged under.
func (a App) MealType() store.MealType {
	return a.mealType
}
