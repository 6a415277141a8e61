package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/foodlog/internal/search"
	"github.com/abelbrown/foodlog/internal/usda"
)

// maxConcurrentPages bounds parallel page requests in lookup.
const maxConcurrentPages = 4

var (
	nameStyle  = lipgloss.NewStyle().Bold(true)
	macroStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	countStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "One-shot food search",
		ArgsUsage: "QUERY...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "pages",
				Usage: "Number of pages to fetch concurrently",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			q, err := search.Normalize(strings.Join(c.Args().Slice(), " "))
			if err != nil {
				return fmt.Errorf("query must be at least %d characters", search.MinQueryLen)
			}

			ctx, cancel := context.WithTimeout(ctx, cfg.Search.RequestTimeout.Duration*2)
			defer cancel()

			foods, err := lookupPages(ctx, cfg.NewClient(), q, c.Int("pages"))
			if err != nil {
				return err
			}

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(foods)
			}
			printFoods(q, foods)
			return nil
		},
	}
}

// lookupPages fetches pages 1..n concurrently and joins them in page order.
// Pages after the first empty one are ignored, and duplicate ids keep their
// first occurrence. Foods without an id are always kept.
func lookupPages(ctx context.Context, lookup search.Lookup, q search.Query, n int) ([]usda.Food, error) {
	if n < 1 {
		n = 1
	}
	pages := make([]usda.Page, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPages)
	for i := range n {
		g.Go(func() error {
			p, err := lookup.Fetch(ctx, string(q), i+1)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			pages[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var se *usda.StatusError
		if errors.As(err, &se) && se.Kind() == usda.StatusUnauthorized {
			return nil, fmt.Errorf("%w (set USDA_API_KEY)", err)
		}
		return nil, err
	}

	var out []usda.Food
	seen := make(map[string]bool)
	for _, p := range pages {
		if p.Empty() {
			break
		}
		for _, f := range p.Foods {
			if f.ID != "" {
				if seen[f.ID] {
					continue
				}
				seen[f.ID] = true
			}
			out = append(out, f)
		}
	}
	return out, nil
}

func printFoods(q search.Query, foods []usda.Food) {
	if len(foods) == 0 {
		fmt.Printf("No foods found for %q\n", q)
		return
	}
	fmt.Println(countStyle.Render(fmt.Sprintf("%d results for %q", len(foods), q)))
	for i, f := range foods {
		fmt.Printf("%3d. %s\n     %s\n", i+1, nameStyle.Render(f.Name),
			macroStyle.Render(fmt.Sprintf("%.0f kcal  protein %.1fg  fat %.1fg  carbs %.1fg  (fdc %s)",
				f.Calories, f.Protein, f.Fat, f.Carbohydrates, f.ID)))
	}
}
