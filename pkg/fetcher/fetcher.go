// Package fetcher downloads portal pages with retries, per-host request
// spacing and an optional on-disk cache, and parses them into documents.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/vitiscrape/models"
	"github.com/dtnitsch/vitiscrape/pkg/caching"
	"github.com/dtnitsch/vitiscrape/pkg/metrics"
	"github.com/dtnitsch/vitiscrape/pkg/retry"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// ErrPageUnreachable is wrapped by every FetchError so callers can treat any
// exhausted fetch as "no data for this combination".
var ErrPageUnreachable = errors.New("page not found or unreachable")

// FetchError reports a page that could not be fetched after all attempts.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrPageUnreachable, e.Err}
}

// StatusError is a completed request with a non-2xx status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// Options configures a Fetcher. Zero timeouts mean no limit.
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// RequestDelay is the minimum spacing between requests to the same host.
	RequestDelay time.Duration
	Retry        retry.Policy
	UserAgent    string
	Cache        *caching.PageCache
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// OptionsFromConfig maps the run configuration onto fetcher options.
func OptionsFromConfig(cfg models.Config) Options {
	return Options{
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		RequestDelay:   cfg.RequestDelay,
		Retry:          retry.Policy{Attempts: cfg.MaxRetries, Backoff: retry.Linear(2 * time.Second)},
		UserAgent:      cfg.UserAgent,
	}
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	client *resty.Client
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewFetcher(opts Options) *Fetcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.ReadTimeout,
		MaxIdleConnsPerHost:   8,
	}

	client := resty.New().
		SetTransport(transport).
		SetTimeout(opts.ConnectTimeout + opts.ReadTimeout).
		SetRetryCount(0)
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Fetcher{
		client:   client,
		opts:     opts,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// GetHtml fetches pageURL and parses it into a document.
func (f *Fetcher) GetHtml(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := f.GetHtmlBytes(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// GetHtmlBytes returns the UTF-8 body of pageURL, from the cache when fresh.
// Exhausted retries yield a *FetchError; a cancelled ctx yields ctx.Err().
func (f *Fetcher) GetHtmlBytes(ctx context.Context, pageURL string) ([]byte, error) {
	if body, ok := f.opts.Cache.Get(pageURL); ok {
		f.opts.Metrics.CacheHit()
		f.logger.DebugContext(ctx, "page served from cache", "url", pageURL)
		return body, nil
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("invalid URL: %w", err)}
	}
	limiter := f.limiterFor(parsed.Host)

	policy := f.opts.Retry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		f.opts.Metrics.FetchAttempt(metrics.OutcomeRetry)
		f.logger.WarnContext(ctx, "fetch attempt failed",
			"url", pageURL, "attempt", attempt, "max_attempts", policy.Attempts, "retry_in", wait, "error", err)
	}

	attempts := 0
	body, err := retry.Do(ctx, policy, func(ctx context.Context) ([]byte, error) {
		attempts++
		if err := limiter.Wait(ctx); err != nil {
			return nil, retry.Permanent(err)
		}
		return f.get(ctx, pageURL)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		f.opts.Metrics.FetchAttempt(metrics.OutcomeFailed)
		f.logger.ErrorContext(ctx, "giving up on page", "url", pageURL, "attempts", attempts, "error", err)
		return nil, &FetchError{URL: pageURL, Attempts: attempts, Err: err}
	}
	f.opts.Metrics.FetchAttempt(metrics.OutcomeSuccess)

	if err := f.opts.Cache.Put(pageURL, body); err != nil {
		f.logger.WarnContext(ctx, "failed to cache page", "url", pageURL, "error", err)
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, pageURL string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, &StatusError{StatusCode: code}
	}

	reader, err := charset.NewReader(bytes.NewReader(resp.Body()), resp.Header().Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to detect page encoding: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return body, nil
}

// limiterFor returns the shared limiter for host, so the spacing holds no
// matter how many workers issue requests.
func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[host]
	if !ok {
		limit := rate.Inf
		if f.opts.RequestDelay > 0 {
			limit = rate.Every(f.opts.RequestDelay)
		}
		l = rate.NewLimiter(limit, 1)
		f.limiters[host] = l
	}
	return l
}
