package main

import (
	"fmt"
	"os"

	"github.com/dtnitsch/vitiscrape/internal/db"
	"github.com/dtnitsch/vitiscrape/internal/fetch"
	"github.com/dtnitsch/vitiscrape/internal/forecast"
	"github.com/dtnitsch/vitiscrape/internal/metadata"
	"github.com/dtnitsch/vitiscrape/pkg/help"
	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	outputFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "output",
			Usage: "write the batches to this file (.json, .yaml or .yml)",
		},
		&cli.BoolFlag{
			Name:  "no-store",
			Usage: "do not save the run to the database",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "serve Prometheus metrics on this address while running (e.g. :9090)",
		},
	}

	return &cli.App{
		Name:  "vitiscrape",
		Usage: "Scrape the Vitibrasil viticulture statistics portal into structured batches",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.yaml",
				Usage: "YAML config file (ignored when missing)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database path (default: next to the binary)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "concurrent page fetches",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "cache raw pages in this directory",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: "yaml",
				Usage: "stdout format: yaml or json",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "only log errors",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug detail",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "sweep",
				Usage:  "Scrape every option over its full year range",
				Flags:  outputFlags,
				Action: fetch.SweepAction,
			},
			{
				Name:  "scrape",
				Usage: "Scrape one option over a year range",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "from", Required: true, Usage: "first year"},
					&cli.IntFlag{Name: "to", Required: true, Usage: "last year"},
					&cli.StringFlag{Name: "option", Required: true, Usage: "option name, e.g. producao"},
				}, outputFlags...),
				Action: fetch.ScrapeAction,
			},
			{
				Name:  "metadata",
				Usage: "Show the year range and sub-options the portal offers",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "option", Usage: "option name or code (default: all)"},
					&cli.IntFlag{Name: "year", Usage: "reference year to inspect"},
				},
				Action: metadata.MetadataAction,
			},
			{
				Name:  "history",
				Usage: "Show stored runs and batches",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "option", Usage: "option name, e.g. exportacao"},
					&cli.IntFlag{Name: "from-year", Value: 1970, Usage: "ignore years before this"},
					&cli.BoolFlag{Name: "all", Usage: "include superseded batches from earlier runs"},
					&cli.IntFlag{Name: "top", Usage: "print the N years with the largest totals instead of batches"},
					&cli.BoolFlag{Name: "latest", Usage: "print the most recent run"},
					&cli.BoolFlag{Name: "runs", Usage: "list runs"},
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "runs to list"},
				},
				Action: db.HistoryAction,
			},
			{
				Name:  "forecast",
				Usage: "Predict next year's total for an option",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "option", Required: true, Usage: "producao, comercializacao, importacao or exportacao"},
					&cli.IntFlag{Name: "from-year", Value: 1970, Usage: "ignore years before this"},
					&cli.StringFlag{Name: "input", Usage: "read batches from this file instead of the database"},
				},
				Action: forecast.ForecastAction,
			},
			{
				Name:  "quickstart",
				Usage: "Print example commands",
				Action: func(c *cli.Context) error {
					fmt.Print(help.QuickstartYAML)
					return nil
				},
			},
		},
	}
}
