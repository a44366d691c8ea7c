// Package models defines data structures for configuration and scraped data.
package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dtnitsch/vitiscrape/pkg/portal"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. VITISCRAPE_WORKERS.
const EnvPrefix = "VITISCRAPE"

// Config holds runtime configuration for scraping runs.
// Precedence: defaults < YAML file < .env < environment < CLI flags.
type Config struct {
	BaseURL         string        `yaml:"base_url" split_words:"true"`
	DatabasePath    string        `yaml:"database_path" split_words:"true"`
	ReferenceYear   int           `yaml:"reference_year" split_words:"true"`
	FallbackMinYear int           `yaml:"fallback_min_year" split_words:"true"`
	FallbackMaxYear int           `yaml:"fallback_max_year" split_words:"true"`
	MaxYear         int           `yaml:"max_year" split_words:"true"`
	RequestDelay    time.Duration `yaml:"request_delay" split_words:"true"`
	MaxRetries      int           `yaml:"max_retries" split_words:"true"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	Workers         int           `yaml:"workers" split_words:"true"`
	CacheDir        string        `yaml:"cache_dir" split_words:"true"`
	CacheTTL        time.Duration `yaml:"cache_ttl" split_words:"true"`
	UserAgent       string        `yaml:"user_agent" split_words:"true"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		BaseURL:         portal.BaseURL,
		ReferenceYear:   2023,
		FallbackMinYear: 2023,
		FallbackMaxYear: 2023,
		MaxYear:         2023,
		RequestDelay:    500 * time.Millisecond,
		MaxRetries:      3,
		ConnectTimeout:  30 * time.Second,
		ReadTimeout:     60 * time.Second,
		Workers:         4,
		CacheTTL:        24 * time.Hour,
		UserAgent:       "vitiscrape/1.0",
	}
}

// LoadConfig builds a Config from defaults, a .env file, an optional YAML
// file and VITISCRAPE_* environment variables. An empty or missing path
// skips the YAML layer.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load environment config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations the scraper cannot run with.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url must not be empty")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive, got %d", c.MaxRetries)
	}
	if c.FallbackMinYear > c.FallbackMaxYear {
		return fmt.Errorf("fallback_min_year %d is after fallback_max_year %d", c.FallbackMinYear, c.FallbackMaxYear)
	}
	if c.MaxYear < MinYear {
		return fmt.Errorf("max_year must be at least %d, got %d", MinYear, c.MaxYear)
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request_delay must not be negative, got %s", c.RequestDelay)
	}
	return nil
}
