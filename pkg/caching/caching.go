// Package caching keeps raw portal pages on disk so repeated sweeps do not
// hit the upstream server for pages that have not expired.
package caching

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const pageExt = ".html"

// PageCache is a file-per-page cache with a TTL measured from write time.
// A nil *PageCache is valid and never hits.
type PageCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewPageCache creates the cache directory if needed.
func NewPageCache(dir string, ttl time.Duration) (*PageCache, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &PageCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (c *PageCache) path(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+pageExt)
}

// Get returns the cached body for pageURL when present and fresh.
func (c *PageCache) Get(pageURL string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	p := c.path(pageURL)
	info, err := os.Stat(p)
	if err != nil {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(info.ModTime()) > c.ttl {
		return nil, false
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores body for pageURL. The write goes through a temp file so a
// concurrent Get never sees a partial page.
func (c *PageCache) Put(pageURL string, body []byte) error {
	if c == nil {
		return nil
	}

	tmp, err := os.CreateTemp(c.dir, "page-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(pageURL)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}
	return nil
}

// Prune removes expired pages and returns how many were deleted.
func (c *PageCache) Prune() (int, error) {
	if c == nil || c.ttl <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache directory: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != pageExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if c.now().Sub(info.ModTime()) <= c.ttl {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
