// Package ui provides the Bubble Tea TUI for foodlog.
package ui

import (
	"github.com/abelbrown/foodlog/internal/search"
	"github.com/abelbrown/foodlog/internal/store"
)

// SnapshotMsg carries the newest search state from the coordinator.
type SnapshotMsg struct {
	Snap search.Snapshot
}

// searchClosed is sent when the coordinator shut down its subscription.
type searchClosed struct{}

// MealLogged is sent when a selected result has been written to the log.
type MealLogged struct {
	Meal store.Meal
	Err  error
}

// MealDeleted is sent when the last logged meal was removed.
type MealDeleted struct {
	ID  string
	Err error
}

// DayLoaded is sent when today's meals and totals have been read.
type DayLoaded struct {
	Meals  []store.Meal
	Totals store.Totals
	Err    error
}
