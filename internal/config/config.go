package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/abelbrown/foodlog/internal/search"
	"github.com/abelbrown/foodlog/internal/usda"
)

// Environment variables that override the file.
const (
	EnvAPIKey   = "USDA_API_KEY"
	EnvEndpoint = "FOODLOG_ENDPOINT"
)

// Config is the persistent application configuration
type Config struct {
	// DataDir holds the meal database, logs and the event trace.
	DataDir string `toml:"data_dir"`

	USDA   USDAConfig   `toml:"usda"`
	Search SearchConfig `toml:"search"`
}

// USDAConfig holds FoodData Central client settings
type USDAConfig struct {
	Endpoint          string  `toml:"endpoint"`
	APIKey            string  `toml:"api_key,omitempty"`
	PageSize          int     `toml:"page_size"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// SearchConfig tunes the incremental search
type SearchConfig struct {
	Debounce       Duration `toml:"debounce"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// Duration is a time.Duration written as "500ms" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// DefaultDir returns ~/.foodlog.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".foodlog"
	}
	return filepath.Join(home, ".foodlog")
}

// DefaultPath returns the path to the config file
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DataDir: DefaultDir(),
		USDA: USDAConfig{
			Endpoint:          usda.DefaultEndpoint,
			PageSize:          usda.DefaultPageSize,
			RequestsPerSecond: 4,
			Burst:             2,
		},
		Search: SearchConfig{
			Debounce:       Duration{search.DefaultDebounce},
			RequestTimeout: Duration{search.DefaultRequestTimeout},
		},
	}
}

// Load reads config from path, or returns defaults if the file does not
// exist. Missing fields keep their defaults; the result is normalized.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.AutoPopulateFromEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.AutoPopulateFromEnv()
	cfg.Normalize()
	return cfg, nil
}

// Save writes config to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0600) // holds the API key
}

// Normalize fills zero values with defaults and clamps the debounce window.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.USDA.Endpoint == "" {
		c.USDA.Endpoint = def.USDA.Endpoint
	}
	if c.USDA.PageSize <= 0 {
		c.USDA.PageSize = def.USDA.PageSize
	}
	if c.USDA.Burst <= 0 {
		c.USDA.Burst = def.USDA.Burst
	}
	if c.Search.RequestTimeout.Duration <= 0 {
		c.Search.RequestTimeout = def.Search.RequestTimeout
	}

	switch d := c.Search.Debounce.Duration; {
	case d == 0:
		c.Search.Debounce = def.Search.Debounce
	case d < search.MinDebounce:
		c.Search.Debounce.Duration = search.MinDebounce
	case d > search.MaxDebounce:
		c.Search.Debounce.Duration = search.MaxDebounce
	}
}

// AutoPopulateFromEnv fills in the API key and endpoint from environment
// variables
func (c *Config) AutoPopulateFromEnv() {
	c.apply(os.Getenv)
}

// LoadEnvFile applies USDA_API_KEY and FOODLOG_ENDPOINT from a dotenv file
// (like .env). Other keys are ignored and the process environment is left
// alone.
func (c *Config) LoadEnvFile(path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("reading env file: %w", err)
	}
	c.apply(func(k string) string { return vars[k] })
	return nil
}

func (c *Config) apply(get func(string) string) {
	if key := get(EnvAPIKey); key != "" {
		c.USDA.APIKey = key
	}
	if ep := get(EnvEndpoint); ep != "" {
		c.USDA.Endpoint = ep
	}
}

// DBPath returns the meal database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "meals.db")
}

// EventsPath returns the JSONL event trace location.
func (c *Config) EventsPath() string {
	return filepath.Join(c.DataDir, "events.jsonl")
}

// SearchOptions converts the search section for search.NewCoordinator.
func (c *Config) SearchOptions() search.Options {
	return search.Options{
		Debounce:       c.Search.Debounce.Duration,
		RequestTimeout: c.Search.RequestTimeout.Duration,
	}
}

// NewClient builds a rate-limited FoodData Central client.
func (c *Config) NewClient() *usda.Client {
	client := usda.NewClient(c.USDA.APIKey, c.USDA.Endpoint, c.USDA.PageSize)
	client.SetRateLimit(c.USDA.RequestsPerSecond, c.USDA.Burst)
	return client
}
