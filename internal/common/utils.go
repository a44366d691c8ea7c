package common

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dtnitsch/vitiscrape/models"
	"github.com/dtnitsch/vitiscrape/pkg/db"
	"github.com/dtnitsch/vitiscrape/pkg/textutil"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Logger builds the JSON stderr logger every command uses.
func Logger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	} else if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig loads the configuration named by --config and applies the
// global flag overrides on top.
func LoadConfig(c *cli.Context) (models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}

	if c.IsSet("db") {
		cfg.DatabasePath = c.String("db")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("cache-dir") {
		cfg.CacheDir = c.String("cache-dir")
	}
	return cfg, cfg.Validate()
}

// OpenDB opens the configured database.
func OpenDB(cfg models.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// Encode writes v to w as indented JSON, or YAML when format is "yaml".
func Encode(w io.Writer, format string, v any) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(format, "yaml") {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	_, err = fmt.Fprintln(w, strings.TrimRight(string(data), "\n"))
	return err
}

// PrintOutput encodes v to stdout in the format chosen by --format.
func PrintOutput(c *cli.Context, v any) error {
	return Encode(os.Stdout, c.String("format"), v)
}

// MatchesOption reports whether a stored option display name (e.g.
// "Produção") belongs to the public option name (e.g. "producao").
func MatchesOption(stored, option string) bool {
	return stored == option || textutil.Normalize(stored) == textutil.Normalize(option)
}

// FilterBatches keeps the batches of option from minYear on.
func FilterBatches(batches []models.Batch, option string, minYear int) []models.Batch {
	var out []models.Batch
	for _, b := range batches {
		if b.Year >= minYear && MatchesOption(b.Option, option) {
			out = append(out, b)
		}
	}
	return out
}

// StoredOptionNames returns the stored display names that belong to option.
func StoredOptionNames(ctx context.Context, database *db.DB, option string) ([]string, error) {
	names, err := database.OptionNames(ctx)
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, name := range names {
		if MatchesOption(name, option) {
			matched = append(matched, name)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("no stored data for option %q. Run 'vitiscrape sweep' first", option)
	}
	return matched, nil
}
