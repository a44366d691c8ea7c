// Package scraper drives metadata discovery, page fetching and table
// extraction over every (option, year, sub-option) combination of a sweep.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/vitiscrape/models"
	"github.com/dtnitsch/vitiscrape/pkg/aggregate"
	"github.com/dtnitsch/vitiscrape/pkg/extractor"
	"github.com/dtnitsch/vitiscrape/pkg/metadata"
	"github.com/dtnitsch/vitiscrape/pkg/metrics"
	"github.com/dtnitsch/vitiscrape/pkg/portal"
	"golang.org/x/sync/errgroup"
)

// ErrNoData is returned when a sweep finishes without a single non-empty
// batch. Callers may fall back to stored data.
var ErrNoData = errors.New("no data obtained from the portal")

// Pager fetches and parses one page.
type Pager interface {
	GetHtml(ctx context.Context, url string) (*goquery.Document, error)
}

// Options configures a Scraper.
type Options struct {
	BaseURL         string
	ReferenceYear   int
	FallbackMinYear int
	FallbackMaxYear int
	// MaxYear is the latest year a bounded sweep may ask for.
	MaxYear int
	Workers int
	// OptionCodes are swept by FullSweep, in output order. Empty means
	// portal.MainOptions.
	OptionCodes []string
	Hints       map[string]portal.Hints
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// OptionsFromConfig maps the run configuration onto scraper options.
func OptionsFromConfig(cfg models.Config) Options {
	return Options{
		BaseURL:         cfg.BaseURL,
		ReferenceYear:   cfg.ReferenceYear,
		FallbackMinYear: cfg.FallbackMinYear,
		FallbackMaxYear: cfg.FallbackMaxYear,
		MaxYear:         cfg.MaxYear,
		Workers:         cfg.Workers,
	}
}

type Scraper struct {
	pager      Pager
	discoverer *metadata.Discoverer
	extractor  *extractor.Extractor
	opts       Options
	logger     *slog.Logger
}

func New(pager Pager, opts Options) *Scraper {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = portal.BaseURL
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if len(opts.OptionCodes) == 0 {
		opts.OptionCodes = portal.MainOptions
	}

	return &Scraper{
		pager:      pager,
		discoverer: metadata.NewDiscoverer(pager, opts.BaseURL, opts.Logger),
		extractor:  extractor.New(opts.Hints, opts.Logger),
		opts:       opts,
		logger:     opts.Logger,
	}
}

// unit is one page to scrape.
type unit struct {
	key        aggregate.Key
	code       string
	subCode    string
	optionName string
	subName    *string
}

func (u unit) logAttrs() []any {
	return []any{"option", u.code, "year", u.key.Year, "suboption", u.subCode}
}

// ScrapePage fetches and extracts one page. A page that cannot be fetched
// yields a batch with no records rather than an error.
func (s *Scraper) ScrapePage(ctx context.Context, year int, code, subCode, optionName string, subName *string) models.Batch {
	batch := models.Batch{
		Year:      year,
		Option:    optionName,
		SubOption: subName,
		Records:   []models.Record{},
	}
	if batch.Option == "" {
		batch.Option = code
	}

	doc, err := s.pager.GetHtml(ctx, portal.PageURL(s.opts.BaseURL, year, code, subCode))
	if err != nil {
		if ctx.Err() != nil {
			// Interrupted, not a portal failure.
			s.logger.DebugContext(ctx, "page fetch cancelled",
				"option", code, "year", year, "suboption", subCode)
			return batch
		}
		s.opts.Metrics.UnitFailed()
		s.logger.WarnContext(ctx, "page unavailable, no data for combination",
			"option", code, "year", year, "suboption", subCode, "error", err)
		return batch
	}

	batch.Records = s.extractor.Extract(doc, code)
	return batch
}

// FullSweep scrapes every configured option over its discovered year range
// (or the fallback range) and every discovered sub-option.
func (s *Scraper) FullSweep(ctx context.Context) ([]models.Batch, error) {
	start := time.Now()
	defer s.opts.Metrics.ObserveSweep("full", start)

	var units []unit
	for i, code := range s.opts.OptionCodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		meta := s.discoverer.Discover(ctx, code, s.opts.ReferenceYear)
		minYear, maxYear := meta.YearBounds(s.opts.FallbackMinYear, s.opts.FallbackMaxYear)
		minYear = max(minYear, models.MinYear)
		if !meta.HasYears() {
			s.logger.InfoContext(ctx, "year range not discovered, using fallback",
				"option", code, "min_year", minYear, "max_year", maxYear)
		}
		units = append(units, plan(i, code, meta, minYear, maxYear)...)
	}

	return s.run(ctx, "full", units)
}

// BoundedSweep scrapes one named option over [yearMin, yearMax]. Invalid
// input fails with a *ValidationError before any request is made.
func (s *Scraper) BoundedSweep(ctx context.Context, yearMin, yearMax int, optionName string) ([]models.Batch, error) {
	if err := s.ValidateBounded(yearMin, yearMax, optionName); err != nil {
		return nil, err
	}

	start := time.Now()
	defer s.opts.Metrics.ObserveSweep("bounded", start)

	code, _ := portal.OptionCode(optionName)
	meta := s.discoverer.Discover(ctx, code, yearMax)
	units := plan(optionIndex(code), code, meta, yearMin, yearMax)

	return s.run(ctx, "bounded", units)
}

// ValidateBounded checks the input of a bounded sweep.
func (s *Scraper) ValidateBounded(yearMin, yearMax int, optionName string) error {
	if _, ok := portal.OptionCode(optionName); !ok {
		return &ValidationError{Field: "option", Value: optionName,
			Reason: fmt.Sprintf("must be one of %v", portal.OptionNames())}
	}
	for _, y := range []struct {
		field string
		value int
	}{{"year_min", yearMin}, {"year_max", yearMax}} {
		if y.value < models.MinYear || y.value > s.opts.MaxYear {
			return &ValidationError{Field: y.field, Value: y.value,
				Reason: fmt.Sprintf("must be between %d and %d", models.MinYear, s.opts.MaxYear)}
		}
	}
	if yearMin > yearMax {
		return &ValidationError{Field: "year_min", Value: yearMin,
			Reason: fmt.Sprintf("must not be after year_max %d", yearMax)}
	}
	return nil
}

func optionIndex(code string) int {
	for i, c := range portal.MainOptions {
		if c == code {
			return i
		}
	}
	return len(portal.MainOptions)
}

// plan expands an option into its units: each year crossed with each
// sub-option, or with a single empty sub-option when there are none.
func plan(optIdx int, code string, meta models.PageMetadata, minYear, maxYear int) []unit {
	var units []unit
	for year := minYear; year <= maxYear; year++ {
		if len(meta.SubOptions) == 0 {
			units = append(units, unit{
				key:        aggregate.Key{Option: optIdx, Year: year},
				code:       code,
				optionName: meta.DisplayName,
			})
			continue
		}
		for j, sub := range meta.SubOptions {
			name := sub.DisplayName
			units = append(units, unit{
				key:        aggregate.Key{Option: optIdx, Year: year, SubOption: j},
				code:       code,
				subCode:    sub.Code,
				optionName: meta.DisplayName,
				subName:    &name,
			})
		}
	}
	return units
}

// run scrapes units on a bounded pool and returns the non-empty batches in
// key order. Cancellation stops new units from starting; the batches that
// completed are returned along with the context error.
func (s *Scraper) run(ctx context.Context, kind string, units []unit) ([]models.Batch, error) {
	s.logger.InfoContext(ctx, "starting sweep", "kind", kind, "units", len(units), "workers", s.opts.Workers)

	agg := aggregate.New()
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for _, u := range units {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			batch, err := s.scrapeUnit(ctx, u)
			if err != nil {
				s.opts.Metrics.UnitFailed()
				s.logger.WarnContext(ctx, "scrape unit failed, skipping", append(u.logAttrs(), "error", err)...)
				return nil
			}
			if len(batch.Records) == 0 {
				s.logger.DebugContext(ctx, "no records for combination", u.logAttrs()...)
				return nil
			}
			s.opts.Metrics.BatchDone(u.code, len(batch.Records))
			agg.Add(u.key, batch)
			return nil
		})
	}
	_ = g.Wait()

	batches := agg.Batches()
	if err := ctx.Err(); err != nil {
		return batches, fmt.Errorf("sweep interrupted after %d batches: %w", len(batches), err)
	}
	if len(batches) == 0 {
		return nil, ErrNoData
	}

	s.logger.InfoContext(ctx, "sweep finished", "kind", kind, "batches", len(batches),
		"records", models.RecordCount(batches))
	return batches, nil
}

// scrapeUnit turns a panic in extraction into an error so one malformed page
// cannot take down the sweep.
func (s *Scraper) scrapeUnit(ctx context.Context, u unit) (batch models.Batch, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while scraping: %v", r)
		}
	}()
	return s.ScrapePage(ctx, u.key.Year, u.code, u.subCode, u.optionName, u.subName), nil
}
