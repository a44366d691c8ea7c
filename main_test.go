package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dtnitsch/vitiscrape/models"
	"github.com/dtnitsch/vitiscrape/pkg/db"
	"github.com/dtnitsch/vitiscrape/pkg/forecast"
	"github.com/dtnitsch/vitiscrape/pkg/scraper"
	"github.com/dtnitsch/vitiscrape/pkg/storage"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) error {
	t.Helper()
	return newApp().Run(append([]string{"vitiscrape", "--quiet", "--config", ""}, args...))
}

func yearlyBatches(option string, totals map[int]float64) []models.Batch {
	var batches []models.Batch
	for year, q := range totals {
		batches = append(batches, models.Batch{
			Year:    year,
			Option:  option,
			Records: []models.Record{{"produto": "Tinto", "quantidade": q}},
		})
	}
	return batches
}

func TestCommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range newApp().Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"sweep", "scrape", "metadata", "history", "forecast", "quickstart"} {
		require.True(t, names[want], "missing command %s", want)
	}
}

func TestScrape_InvalidRangeFailsBeforeFetching(t *testing.T) {
	err := runApp(t, "--db", filepath.Join(t.TempDir(), "v.db"),
		"scrape", "--from", "1960", "--to", "2000", "--option", "producao")
	require.ErrorIs(t, err, scraper.ErrValidation)

	err = runApp(t, "scrape", "--from", "2000", "--to", "2001", "--option", "vinhos")
	require.ErrorIs(t, err, scraper.ErrValidation)
}

func TestForecast_FromInputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches.json")
	st := &storage.Storage{}
	require.NoError(t, st.WriteBatches(path, yearlyBatches("Produção", map[int]float64{2020: 10, 2021: 20, 2022: 30})))

	require.NoError(t, runApp(t, "--format", "json", "forecast", "--option", "producao", "--input", path))

	err := runApp(t, "forecast", "--option", "producao", "--input", path, "--from-year", "2022")
	require.ErrorIs(t, err, forecast.ErrInsufficientData)

	err = runApp(t, "forecast", "--option", "processamento", "--input", path)
	require.ErrorIs(t, err, forecast.ErrUnsupportedOption)

	err = runApp(t, "forecast", "--option", "producao", "--input", filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorContains(t, err, "not found")
}

func TestHistoryAndForecast_FromDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "v.db")
	database, err := db.Open(dbPath)
	require.NoError(t, err)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	_, err = database.InsertBatches(context.Background(), "run-1",
		yearlyBatches("Exportação", map[int]float64{2019: 5, 2020: 7, 2021: 9}), at)
	require.NoError(t, err)
	require.NoError(t, database.Close())

	require.NoError(t, runApp(t, "--db", dbPath, "history", "--runs"))
	require.NoError(t, runApp(t, "--db", dbPath, "history", "--latest"))
	require.NoError(t, runApp(t, "--db", dbPath, "history", "--option", "exportacao", "--top", "2"))
	require.NoError(t, runApp(t, "--db", dbPath, "forecast", "--option", "exportacao"))

	require.Error(t, runApp(t, "--db", dbPath, "history", "--option", "importacao"))
	require.Error(t, runApp(t, "--db", dbPath, "history"))
}
