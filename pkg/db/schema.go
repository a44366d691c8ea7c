package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Scrape batches: one row per (year, option, sub-option) result of a run.
-- Append-only; repeated scrapes of the same combination accumulate as history.
CREATE TABLE IF NOT EXISTS scrape_batches (
    batch_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    year INTEGER NOT NULL CHECK (year >= 1970),
    option_name TEXT NOT NULL,
    suboption_name TEXT,          -- NULL when the option has no sub-options
    records_json TEXT NOT NULL,   -- JSON array of records
    record_count INTEGER NOT NULL DEFAULT 0,
    scraped_at TEXT NOT NULL      -- fixed-width UTC timestamp, sorts lexically
);

CREATE INDEX IF NOT EXISTS idx_batches_option_year ON scrape_batches(option_name, year);
CREATE INDEX IF NOT EXISTS idx_batches_scraped_at ON scrape_batches(scraped_at DESC);
CREATE INDEX IF NOT EXISTS idx_batches_run ON scrape_batches(run_id);
`
