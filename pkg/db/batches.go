package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dtnitsch/vitiscrape/models"
)

// timeLayout is fixed width so that string order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// StoredBatch is a batch as persisted by one run.
type StoredBatch struct {
	ID        int64
	RunID     string
	ScrapedAt time.Time
	models.Batch
}

// Run summarizes the batches stored by one run.
type Run struct {
	ID        string
	ScrapedAt time.Time
	Batches   int
	Records   int
}

// InsertBatches appends batches under runID in a single transaction and
// returns how many rows were written.
func (db *DB) InsertBatches(ctx context.Context, runID string, batches []models.Batch, scrapedAt time.Time) (int, error) {
	if len(batches) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scrape_batches (run_id, year, option_name, suboption_name, records_json, record_count, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	defer stmt.Close()

	ts := formatTime(scrapedAt)
	for _, b := range batches {
		records := b.Records
		if records == nil {
			records = []models.Record{}
		}
		data, err := json.Marshal(records)
		if err != nil {
			return 0, fmt.Errorf("failed to encode records for %s/%d: %w", b.Option, b.Year, err)
		}

		var sub sql.NullString
		if b.SubOption != nil {
			sub = sql.NullString{String: *b.SubOption, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, runID, b.Year, b.Option, sub, string(data), len(records), ts); err != nil {
			return 0, fmt.Errorf("failed to insert batch %s/%d: %w", b.Option, b.Year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batches: %w", err)
	}
	return len(batches), nil
}

const batchColumns = `batch_id, run_id, year, option_name, suboption_name, records_json, scraped_at`

// BatchesByOption returns every stored batch of option from minYear on,
// oldest year first.
func (db *DB) BatchesByOption(ctx context.Context, option string, minYear int) ([]StoredBatch, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+batchColumns+`
		FROM scrape_batches
		WHERE option_name = ? AND year >= ?
		ORDER BY year, batch_id
	`, option, minYear)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches for %s: %w", option, err)
	}
	return scanBatches(rows)
}

// LatestBatchesByOption is BatchesByOption keeping only the newest batch of
// each (year, sub-option).
func (db *DB) LatestBatchesByOption(ctx context.Context, option string, minYear int) ([]StoredBatch, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+batchColumns+`
		FROM scrape_batches b
		WHERE b.option_name = ? AND b.year >= ?
		  AND b.batch_id = (
			SELECT MAX(b2.batch_id) FROM scrape_batches b2
			WHERE b2.option_name = b.option_name
			  AND b2.year = b.year
			  AND b2.suboption_name IS b.suboption_name
		  )
		ORDER BY b.year, b.batch_id
	`, option, minYear)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest batches for %s: %w", option, err)
	}
	return scanBatches(rows)
}

// LatestBatches returns the batches sharing the most recent scrape time.
func (db *DB) LatestBatches(ctx context.Context) ([]StoredBatch, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+batchColumns+`
		FROM scrape_batches
		WHERE scraped_at = (SELECT MAX(scraped_at) FROM scrape_batches)
		ORDER BY batch_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest batches: %w", err)
	}
	return scanBatches(rows)
}

// OptionNames lists the distinct option names stored, sorted.
func (db *DB) OptionNames(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT option_name FROM scrape_batches ORDER BY option_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list option names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan option name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, MAX(scraped_at), COUNT(*), COALESCE(SUM(record_count), 0)
		FROM scrape_batches
		GROUP BY run_id
		ORDER BY MAX(scraped_at) DESC, run_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.Batches, &r.Records); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.ScrapedAt, err = parseTime(ts); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanBatches(rows *sql.Rows) ([]StoredBatch, error) {
	defer rows.Close()

	var batches []StoredBatch
	for rows.Next() {
		var (
			b       StoredBatch
			sub     sql.NullString
			records string
			ts      string
		)
		if err := rows.Scan(&b.ID, &b.RunID, &b.Year, &b.Option, &sub, &records, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		if sub.Valid {
			name := sub.String
			b.SubOption = &name
		}
		if err := json.Unmarshal([]byte(records), &b.Records); err != nil {
			return nil, fmt.Errorf("failed to decode records of batch %d: %w", b.ID, err)
		}
		var err error
		if b.ScrapedAt, err = parseTime(ts); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// Batches strips the storage metadata.
func Batches(stored []StoredBatch) []models.Batch {
	out := make([]models.Batch, len(stored))
	for i, s := range stored {
		out[i] = s.Batch
	}
	return out
}
