package db

import (
	"fmt"
	"strings"

	"github.com/dtnitsch/vitiscrape/internal/common"
	"github.com/dtnitsch/vitiscrape/models"
	dbpkg "github.com/dtnitsch/vitiscrape/pkg/db"
	"github.com/dtnitsch/vitiscrape/pkg/mapreduce"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

// HistoryAction prints stored data: the run list (--runs), the most recent
// run (--latest), or one option's history (--option).
func HistoryAction(c *cli.Context) error {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}

	database, err := common.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	switch {
	case c.Bool("runs"):
		return printRuns(c, database)
	case c.Bool("latest"):
		stored, err := database.LatestBatches(c.Context)
		if err != nil {
			return err
		}
		if len(stored) == 0 {
			fmt.Println("No runs found")
			return nil
		}
		return common.PrintOutput(c, dbpkg.Batches(stored))
	case c.String("option") != "":
		return printOptionHistory(c, database, c.String("option"))
	default:
		return fmt.Errorf("one of --runs, --latest or --option is required")
	}
}

func printRuns(c *cli.Context, database *dbpkg.DB) error {
	runs, err := database.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-38s %-20s %-10s %-12s\n", "Run", "Scraped", "Batches", "Records")
	fmt.Println(strings.Repeat("-", 84))
	for _, r := range runs {
		fmt.Printf("%-38s %-20s %-10s %-12s\n",
			r.ID,
			r.ScrapedAt.Local().Format("2006-01-02 15:04:05"),
			humanize.Comma(int64(r.Batches)),
			humanize.Comma(int64(r.Records)),
		)
	}

	fmt.Printf("\nTotal: %d runs\n", len(runs))
	return nil
}

func printOptionHistory(c *cli.Context, database *dbpkg.DB, option string) error {
	names, err := common.StoredOptionNames(c.Context, database, option)
	if err != nil {
		return err
	}

	var batches []models.Batch
	for _, name := range names {
		var stored []dbpkg.StoredBatch
		if c.Bool("all") {
			stored, err = database.BatchesByOption(c.Context, name, c.Int("from-year"))
		} else {
			stored, err = database.LatestBatchesByOption(c.Context, name, c.Int("from-year"))
		}
		if err != nil {
			return err
		}
		batches = append(batches, dbpkg.Batches(stored)...)
	}

	if n := c.Int("top"); n > 0 {
		fmt.Printf("Top %d years for %s:\n", n, option)
		mapreduce.PrintTopYears(mapreduce.YearlyTotals(batches), n)
		return nil
	}
	return common.PrintOutput(c, batches)
}
