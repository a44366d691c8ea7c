package forecast

import (
	"fmt"
	"time"

	"github.com/dtnitsch/vitiscrape/internal/common"
	"github.com/dtnitsch/vitiscrape/models"
	"github.com/dtnitsch/vitiscrape/pkg/db"
	forecastpkg "github.com/dtnitsch/vitiscrape/pkg/forecast"
	"github.com/dtnitsch/vitiscrape/pkg/storage"
	"github.com/urfave/cli/v2"
)

// ForecastAction predicts the next year's total for --option from stored
// history, or from a batches document given with --input.
func ForecastAction(c *cli.Context) error {
	logger := common.Logger(c)
	option := c.String("option")
	if err := forecastpkg.ValidateOption(option); err != nil {
		return err
	}

	batches, err := history(c, option)
	if err != nil {
		return err
	}
	logger.Debug("forecast input", "option", option, "batches", len(batches))

	f, err := forecastpkg.Predict(option, batches, time.Now())
	if err != nil {
		return err
	}
	logger.Info("forecast ready", "option", option, "next_year", f.NextYear,
		"predicted", f.Predicted, "confidence", f.Confidence)
	return common.PrintOutput(c, f)
}

func history(c *cli.Context, option string) ([]models.Batch, error) {
	minYear := c.Int("from-year")

	if in := c.String("input"); in != "" {
		st := &storage.Storage{}
		if !st.HasFile(in) {
			return nil, fmt.Errorf("input file %s not found", in)
		}
		batches, err := st.ReadBatches(in)
		if err != nil {
			return nil, err
		}
		return common.FilterBatches(batches, option, minYear), nil
	}

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return nil, err
	}
	database, err := common.OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	names, err := common.StoredOptionNames(c.Context, database, option)
	if err != nil {
		return nil, err
	}

	var batches []models.Batch
	for _, name := range names {
		stored, err := database.LatestBatchesByOption(c.Context, name, minYear)
		if err != nil {
			return nil, err
		}
		batches = append(batches, db.Batches(stored)...)
	}
	return batches, nil
}
