package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "init",
				Usage: "Write the effective configuration to the config file",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			if c.Bool("init") {
				path := c.String("config")
				if err := cfg.Save(path); err != nil {
					return err
				}
				fmt.Println("Wrote", path)
				return nil
			}

			shown := *cfg
			shown.USDA.APIKey = maskKey(cfg.USDA.APIKey)
			data, err := toml.Marshal(shown)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			os.Stdout.Write(data)
			return nil
		},
	}
}

func maskKey(k string) string {
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}
