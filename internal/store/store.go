// Package store provides SQLite persistence for the meal log.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/abelbrown/foodlog/internal/usda"
)

// ErrNotFound is returned when a meal id does not exist.
var ErrNotFound = errors.New("store: meal not found")

// MealType is the slot a meal is logged under.
type MealType int

const (
	Breakfast MealType = iota
	Lunch
	Dinner
	Snack
)

// MealTypes lists every MealType in display order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner, Snack}

func (m MealType) String() string {
	switch m {
	case Breakfast:
		return "Breakfast"
	case Lunch:
		return "Lunch"
	case Dinner:
		return "Dinner"
	case Snack:
		return "Snack"
	default:
		return "Unknown"
	}
}

// Next cycles to the following meal type.
func (m MealType) Next() MealType {
	return MealType((int(m) + 1) % len(MealTypes))
}

// ParseMealType accepts a meal type name in any case.
func ParseMealType(s string) (MealType, error) {
	for _, m := range MealTypes {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("store: unknown meal type %q", s)
}

// Meal is one logged entry.
type Meal struct {
	ID            string
	Name          string
	MealType      MealType
	Calories      int
	Fat           float64
	Protein       float64
	Carbohydrates float64
	Date          time.Time
}

// MealFromFood fills a meal entry from a search result. Calories are
// rounded to the nearest whole number.
func MealFromFood(f usda.Food, mt MealType, at time.Time) Meal {
	return Meal{
		Name:          f.Name,
		MealType:      mt,
		Calories:      int(math.Round(f.Calories)),
		Fat:           f.Fat,
		Protein:       f.Protein,
		Carbohydrates: f.Carbohydrates,
		Date:          at,
	}
}

// Totals sums the nutrients of a day.
type Totals struct {
	Meals         int
	Calories      int
	Fat           float64
	Protein       float64
	Carbohydrates float64
}

// Store handles SQLite persistence. Safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var memSeq atomic.Int64

// Open creates a new Store with the given database path and creates the
// schema if needed. ":memory:" opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	memory := dbPath == ":memory:"
	connStr := dbPath
	if memory {
		// Named so every pooled connection sees the same database, but no
		// other Store does.
		connStr = fmt.Sprintf("file:foodlog-mem-%d?mode=memory&cache=shared", memSeq.Add(1))
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if !memory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meals (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		meal_type INTEGER NOT NULL,
		calories INTEGER NOT NULL DEFAULT 0,
		fat REAL NOT NULL DEFAULT 0,
		protein REAL NOT NULL DEFAULT 0,
		carbohydrates REAL NOT NULL DEFAULT 0,
		eaten_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_meals_eaten ON meals(eaten_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// AddMeal stores m and returns it with its assigned ID. A zero Date means
// now.
func (s *Store) AddMeal(m Meal) (Meal, error) {
	if strings.TrimSpace(m.Name) == "" {
		return Meal{}, errors.New("store: meal name is required")
	}
	if m.Calories < 0 || m.Fat < 0 || m.Protein < 0 || m.Carbohydrates < 0 {
		return Meal{}, errors.New("store: nutrient values must not be negative")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Date.IsZero() {
		m.Date = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO meals (id, name, meal_type, calories, fat, protein, carbohydrates, eaten_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Name, int(m.MealType), m.Calories, m.Fat, m.Protein, m.Carbohydrates, m.Date.Unix())
	if err != nil {
		return Meal{}, fmt.Errorf("insert meal: %w", err)
	}
	return m, nil
}

// MealsOn returns the meals eaten on the local calendar day containing day,
// ordered by meal type then time.
func (s *Store) MealsOn(day time.Time) ([]Meal, error) {
	from, to := dayBounds(day)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, name, meal_type, calories, fat, protein, carbohydrates, eaten_at
		FROM meals
		WHERE eaten_at >= ? AND eaten_at < ?
		ORDER BY meal_type, eaten_at, id
	`, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("query meals: %w", err)
	}
	defer rows.Close()

	var meals []Meal
	for rows.Next() {
		var (
			m     Meal
			mt    int
			eaten int64
		)
		if err := rows.Scan(&m.ID, &m.Name, &mt, &m.Calories, &m.Fat, &m.Protein, &m.Carbohydrates, &eaten); err != nil {
			return nil, fmt.Errorf("scan meal: %w", err)
		}
		m.MealType = MealType(mt)
		m.Date = time.Unix(eaten, 0).In(day.Location())
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// GroupByType splits meals by MealType, preserving order within a group.
func GroupByType(meals []Meal) map[MealType][]Meal {
	out := make(map[MealType][]Meal)
	for _, m := range meals {
		out[m.MealType] = append(out[m.MealType], m)
	}
	return out
}

// DeleteMeal removes a meal by id.
func (s *Store) DeleteMeal(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM meals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete meal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete meal: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DailyTotals sums the meals of the local calendar day containing day.
func (s *Store) DailyTotals(day time.Time) (Totals, error) {
	from, to := dayBounds(day)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var t Totals
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(calories), 0), COALESCE(SUM(fat), 0),
			COALESCE(SUM(protein), 0), COALESCE(SUM(carbohydrates), 0)
		FROM meals
		WHERE eaten_at >= ? AND eaten_at < ?
	`, from.Unix(), to.Unix()).Scan(&t.Meals, &t.Calories, &t.Fat, &t.Protein, &t.Carbohydrates)
	if err != nil {
		return Totals{}, fmt.Errorf("sum meals: %w", err)
	}
	return t, nil
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return from, from.AddDate(0, 0, 1)
}
