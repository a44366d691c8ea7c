// Package aggregate collects batches produced concurrently and hands them
// back in a stable order.
package aggregate

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dtnitsch/vitiscrape/models"
)

// Key orders a batch within a sweep: option position, then year, then
// sub-option position.
type Key struct {
	Option    int
	Year      int
	SubOption int
}

// Compare orders keys by option, year and sub-option.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.Option, o.Option); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Year, o.Year); c != 0 {
		return c
	}
	return cmp.Compare(k.SubOption, o.SubOption)
}

type entry struct {
	key   Key
	batch models.Batch
}

// Aggregator is safe for concurrent Add calls.
type Aggregator struct {
	mu      sync.Mutex
	entries []entry
}

func New() *Aggregator {
	return &Aggregator{}
}

func (a *Aggregator) Add(key Key, batch models.Batch) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry{key: key, batch: batch})
}

func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Batches returns the collected batches sorted by key, whatever order they
// were added in.
func (a *Aggregator) Batches() []models.Batch {
	a.mu.Lock()
	entries := slices.Clone(a.entries)
	a.mu.Unlock()

	slices.SortStableFunc(entries, func(x, y entry) int {
		return x.key.Compare(y.key)
	})

	batches := make([]models.Batch, len(entries))
	for i, e := range entries {
		batches[i] = e.batch
	}
	return batches
}
