package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/abelbrown/foodlog/internal/logging"
	"github.com/abelbrown/foodlog/internal/otel"
	"github.com/abelbrown/foodlog/internal/search"
	"github.com/abelbrown/foodlog/internal/store"
	"github.com/abelbrown/foodlog/internal/ui"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:   "search",
		Usage:  "Interactive food search and meal logging (default)",
		Action: runSearch,
	}
}

func runSearch(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	debug := c.Bool("debug")
	if err := logging.Init(cfg.DataDir, debug); err != nil {
		return err
	}
	defer logging.Close()
	if debug {
		otel.SetDebugPane(true)
	}

	events, ring, closeEvents, err := openEvents(cfg.EventsPath())
	if err != nil {
		return err
	}
	defer closeEvents()

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("opening meal log: %w", err)
	}
	defer st.Close()

	client := cfg.NewClient()
	if !client.Available() {
		logging.Warn("No USDA API key configured, lookups will fail", "env", "USDA_API_KEY")
	}

	opts := cfg.SearchOptions()
	opts.Events = events
	coordinator := search.NewCoordinator(client, opts)

	ctx, cancel := context.WithCancel(ctx)
	coordinator.Start(ctx)

	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStartup, Comp: "main", Msg: logging.Version})
	logging.Info("Search ready", "endpoint", cfg.USDA.Endpoint, "debounce", opts.Debounce, "page_size", client.PageSize())

	app := ui.NewApp(coordinator, st, events, ring)
	program := tea.NewProgram(app, tea.WithAltScreen())
	_, runErr := program.Run()

	cancel()
	coordinator.Wait()
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShutdown, Comp: "main"})

	if runErr != nil {
		logging.Error("TUI exited with error", "error", runErr)
		return fmt.Errorf("running TUI: %w", runErr)
	}
	return nil
}

// openEvents opens the JSONL trace in append mode and attaches a ring
// buffer for the debug pane.
func openEvents(path string) (*otel.Logger, *otel.RingBuffer, func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening event log: %w", err)
	}
	events := otel.NewLogger(f)
	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	events.SetRingBuffer(ring)

	return events, ring, func() {
		events.Close()
		f.Close()
	}, nil
}
