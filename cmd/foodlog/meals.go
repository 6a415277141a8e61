package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/abelbrown/foodlog/internal/store"
)

const dateLayout = "2006-01-02"

var mealHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

func logCommand() *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "Show or edit the meal log",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "date",
				Usage: "Day to show (YYYY-MM-DD, default today)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			day, err := parseDay(c.String("date"))
			if err != nil {
				return err
			}
			return withStore(c, func(st *store.Store) error {
				return printDay(st, day)
			})
		},
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Log a meal by hand",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Usage: "Breakfast, Lunch, Dinner or Snack", Value: "Snack"},
					&cli.IntFlag{Name: "calories", Usage: "Calories (kcal)"},
					&cli.FloatFlag{Name: "fat", Usage: "Fat (g)"},
					&cli.FloatFlag{Name: "protein", Usage: "Protein (g)"},
					&cli.FloatFlag{Name: "carbs", Usage: "Carbohydrates (g)"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					mt, err := store.ParseMealType(c.String("type"))
					if err != nil {
						return err
					}
					meal := store.Meal{
						Name:          c.Args().First(),
						MealType:      mt,
						Calories:      c.Int("calories"),
						Fat:           c.Float("fat"),
						Protein:       c.Float("protein"),
						Carbohydrates: c.Float("carbs"),
					}
					return withStore(c, func(st *store.Store) error {
						saved, err := st.AddMeal(meal)
						if err != nil {
							return err
						}
						fmt.Printf("Logged %s (%d kcal) for %s, id %s\n", saved.Name, saved.Calories, saved.MealType, saved.ID)
						return nil
					})
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete a meal by id",
				ArgsUsage: "ID",
				Action: func(ctx context.Context, c *cli.Command) error {
					id := c.Args().First()
					if id == "" {
						return errors.New("meal id required")
					}
					return withStore(c, func(st *store.Store) error {
						if err := st.DeleteMeal(id); err != nil {
							return err
						}
						fmt.Println("Deleted", id)
						return nil
					})
				},
			},
		},
	}
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	day, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return day, nil
}

func withStore(c *cli.Command, fn func(*store.Store) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("opening meal log: %w", err)
	}
	defer st.Close()
	return fn(st)
}

func printDay(st *store.Store, day time.Time) error {
	meals, err := st.MealsOn(day)
	if err != nil {
		return err
	}
	totals, err := st.DailyTotals(day)
	if err != nil {
		return err
	}

	fmt.Println(mealHeader.Render(day.Format("Monday, January 2 2006")))
	if len(meals) == 0 {
		fmt.Println("  nothing logged")
		return nil
	}

	groups := store.GroupByType(meals)
	for _, mt := range store.MealTypes {
		list := groups[mt]
		if len(list) == 0 {
			continue
		}
		fmt.Println(mealHeader.Render(mt.String()))
		for _, m := range list {
			fmt.Printf("  %-40s %5d kcal  P %5.1f  F %5.1f  C %5.1f  %s\n",
				m.Name, m.Calories, m.Protein, m.Fat, m.Carbohydrates, macroStyle.Render(m.ID))
		}
	}
	fmt.Printf("\nTotal: %d kcal  protein %.1fg  fat %.1fg  carbs %.1fg  (%d entries)\n",
		totals.Calories, totals.Protein, totals.Fat, totals.Carbohydrates, totals.Meals)
	return nil
}
