// Package persist stores sweep results in the background so callers get
// their data without waiting on the database.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dtnitsch/vitiscrape/models"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatcher closed")

// Store is the write side of the batch store.
type Store interface {
	InsertBatches(ctx context.Context, runID string, batches []models.Batch, scrapedAt time.Time) (int, error)
}

type job struct {
	runID     string
	batches   []models.Batch
	scrapedAt time.Time
}

// Options configures a Dispatcher. Zero values pick defaults.
type Options struct {
	QueueSize int
	// Timeout bounds each store write.
	Timeout time.Duration
	Logger  *slog.Logger
	// OnError, when set, sees every store error after it is logged.
	OnError func(error)
	Now     func() time.Time
}

// Dispatcher owns one writer goroutine fed by a job queue. Store errors are
// logged and never reach the submitter.
type Dispatcher struct {
	store Store
	opts  Options
	jobs  chan job
	errs  chan error

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(store Store, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	d := &Dispatcher{
		store: store,
		opts:  opts,
		jobs:  make(chan job, opts.QueueSize),
		errs:  make(chan error, opts.QueueSize),
	}

	d.wg.Add(2)
	go d.write()
	go d.drainErrors()
	return d
}

// Submit queues batches for storage under runID and returns once they are
// queued. The scrape time is taken at submission.
func (d *Dispatcher) Submit(runID string, batches []models.Batch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	d.jobs <- job{runID: runID, batches: slices.Clone(batches), scrapedAt: d.opts.Now()}
	return nil
}

// Close stops accepting jobs and waits for queued ones to be stored.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) write() {
	defer d.wg.Done()
	defer close(d.errs)

	for j := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
		n, err := d.store.InsertBatches(ctx, j.runID, j.batches, j.scrapedAt)
		cancel()

		if err != nil {
			d.errs <- fmt.Errorf("failed to store run %s: %w", j.runID, err)
			continue
		}
		d.opts.Logger.Info("stored scrape results", "run_id", j.runID, "batches", n,
			"records", models.RecordCount(j.batches))
	}
}

func (d *Dispatcher) drainErrors() {
	defer d.wg.Done()
	for err := range d.errs {
		d.opts.Logger.Error("background persistence failed", "error", err)
		if d.opts.OnError != nil {
			d.opts.OnError(err)
		}
	}
}
