package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dtnitsch/vitiscrape/internal/common"
	"github.com/dtnitsch/vitiscrape/models"
	"github.com/dtnitsch/vitiscrape/pkg/caching"
	"github.com/dtnitsch/vitiscrape/pkg/db"
	"github.com/dtnitsch/vitiscrape/pkg/fetcher"
	"github.com/dtnitsch/vitiscrape/pkg/metrics"
	"github.com/dtnitsch/vitiscrape/pkg/persist"
	"github.com/dtnitsch/vitiscrape/pkg/scraper"
	"github.com/dtnitsch/vitiscrape/pkg/storage"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

type sweepFunc func(ctx context.Context, s *scraper.Scraper) ([]models.Batch, error)

// SweepAction scrapes every option over its discovered year range.
func SweepAction(c *cli.Context) error {
	return run(c, "full", nil, func(ctx context.Context, s *scraper.Scraper) ([]models.Batch, error) {
		return s.FullSweep(ctx)
	})
}

// ScrapeAction scrapes one option over --from..--to.
func ScrapeAction(c *cli.Context) error {
	from, to, option := c.Int("from"), c.Int("to"), c.String("option")
	validate := func(s *scraper.Scraper) error {
		return s.ValidateBounded(from, to, option)
	}
	return run(c, "bounded", validate, func(ctx context.Context, s *scraper.Scraper) ([]models.Batch, error) {
		return s.BoundedSweep(ctx, from, to, option)
	})
}

func run(c *cli.Context, kind string, validate func(*scraper.Scraper) error, sweep sweepFunc) error {
	logger := common.Logger(c)
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	s, err := newScraper(cfg, m, logger)
	if err != nil {
		return err
	}
	if validate != nil {
		if err := validate(s); err != nil {
			return err
		}
	}

	if addr := c.String("metrics-addr"); addr != "" {
		srv := serveMetrics(addr, reg, logger)
		defer shutdownMetrics(srv, logger)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	startTime := time.Now()
	logger.Info("sweep started", "run_id", runID, "kind", kind, "workers", cfg.Workers)

	batches, sweepErr := sweep(ctx, s)
	summary := Summary{RunID: runID, Kind: kind, Source: SourcePortal}

	switch {
	case errors.Is(sweepErr, scraper.ErrNoData):
		logger.Warn("portal returned no data, falling back to stored batches", "run_id", runID)
		batches, err = storedFallback(ctx, cfg)
		if err != nil {
			return err
		}
		summary.Source = SourceCache
	case sweepErr != nil:
		// Cancelled: keep what completed.
		logger.Warn("sweep interrupted", "run_id", runID, "batches", len(batches), "error", sweepErr)
		summary.Error = sweepErr.Error()
	}

	var pending *pendingStore
	if summary.Source == SourcePortal && len(batches) > 0 && !c.Bool("no-store") {
		pending = openStore(cfg, runID, batches, logger)
	}

	err = publish(c.String("output"), c.String("format"), batches, &summary, time.Since(startTime), os.Stdout, os.Stderr)
	logger.Info("sweep finished", "run_id", runID, "source", summary.Source,
		"batches", summary.Batches, "records", summary.Records, "duration", summary.Duration)

	if pending != nil {
		if pending.Wait() {
			fmt.Fprintf(os.Stderr, "Stored run %s\n", runID)
		} else {
			fmt.Fprintf(os.Stderr, "Run %s was not stored, see the log for details\n", runID)
		}
	}

	if err != nil {
		return err
	}
	if summary.Error != "" {
		return sweepErr
	}
	return nil
}

// publish writes the optional output document and the run summary.
func publish(out, format string, batches []models.Batch, summary *Summary, elapsed time.Duration, stdout, stderr io.Writer) error {
	if out != "" {
		st := &storage.Storage{}
		if err := st.WriteBatches(out, batches); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		summary.Output = out
		if stats, err := st.GetFileStats(out); err == nil {
			summary.OutputSize = humanize.Bytes(uint64(stats.SizeBytes))
		}
	}

	summary.Fill(batches, elapsed)
	fmt.Fprintln(stderr, summary.Line())
	return common.Encode(stdout, format, summary)
}

func newScraper(cfg models.Config, m *metrics.Metrics, logger *slog.Logger) (*scraper.Scraper, error) {
	fopts := fetcher.OptionsFromConfig(cfg)
	fopts.Metrics = m
	fopts.Logger = logger
	if cfg.CacheDir != "" {
		cache, err := caching.NewPageCache(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize page cache: %w", err)
		}
		if n, err := cache.Prune(); err != nil {
			logger.Warn("failed to prune page cache", "dir", cfg.CacheDir, "error", err)
		} else if n > 0 {
			logger.Debug("pruned expired pages", "dir", cfg.CacheDir, "removed", n)
		}
		fopts.Cache = cache
	}

	sopts := scraper.OptionsFromConfig(cfg)
	sopts.Metrics = m
	sopts.Logger = logger
	return scraper.New(fetcher.NewFetcher(fopts), sopts), nil
}

// storedFallback serves the most recent stored run when the portal yields
// nothing.
func storedFallback(ctx context.Context, cfg models.Config) ([]models.Batch, error) {
	database, err := common.OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	stored, err := database.LatestBatches(ctx)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: nothing stored to fall back on", scraper.ErrNoData)
	}
	return db.Batches(stored), nil
}

// pendingStore is a write running on a background dispatcher.
type pendingStore struct {
	runID  string
	d      *persist.Dispatcher
	failed atomic.Bool
	closer func() error
	logger *slog.Logger
}

// openStore opens the database and starts storing batches. It returns nil
// when the database cannot be opened.
func openStore(cfg models.Config, runID string, batches []models.Batch, logger *slog.Logger) *pendingStore {
	database, err := common.OpenDB(cfg)
	if err != nil {
		logger.Error("batches not stored", "run_id", runID, "error", err)
		return nil
	}
	logger.Debug("storing batches", "run_id", runID, "db", database.Path())
	return startStore(database, database.Close, runID, batches, logger)
}

// startStore queues batches for st and returns without waiting for the write.
func startStore(st persist.Store, closer func() error, runID string, batches []models.Batch, logger *slog.Logger) *pendingStore {
	p := &pendingStore{runID: runID, closer: closer, logger: logger}
	p.d = persist.NewDispatcher(st, persist.Options{
		Logger:  logger,
		OnError: func(error) { p.failed.Store(true) },
	})
	if err := p.d.Submit(runID, batches); err != nil {
		logger.Error("batches not stored", "run_id", runID, "error", err)
		p.failed.Store(true)
	}
	return p
}

// Wait blocks until the write has finished and reports whether it succeeded.
func (p *pendingStore) Wait() bool {
	p.d.Close()
	if p.closer != nil {
		if err := p.closer(); err != nil {
			p.logger.Warn("failed to close database", "run_id", p.runID, "error", err)
		}
	}
	return !p.failed.Load()
}
