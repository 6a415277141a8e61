package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/abelbrown/foodlog/internal/config"
	"github.com/abelbrown/foodlog/internal/logging"
)

func main() {
	app := &cli.Command{
		Name:    "foodlog",
		Usage:   "Search USDA FoodData Central and keep a daily meal log",
		Version: logging.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to config file",
				Value: config.DefaultPath(),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file with USDA_API_KEY",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Debug logging and open the TUI with the event pane",
			},
		},
		Action: runSearch,
		Commands: []*cli.Command{
			searchCommand(),
			lookupCommand(),
			logCommand(),
			configCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "foodlog: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, then the optional env file. A missing
// env file at the default location is not an error.
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	envFile := c.String("env-file")
	if err := cfg.LoadEnvFile(envFile); err != nil {
		if c.IsSet("env-file") {
			return nil, err
		}
		if _, statErr := os.Stat(envFile); statErr == nil {
			return nil, err
		}
	}
	// The process environment wins over the env file.
	cfg.AutoPopulateFromEnv()
	return cfg, nil
}
