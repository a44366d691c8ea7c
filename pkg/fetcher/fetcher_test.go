package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dtnitsch/vitiscrape/pkg/caching"
	"github.com/dtnitsch/vitiscrape/pkg/metrics"
	"github.com/dtnitsch/vitiscrape/pkg/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const page = `<html><body><p class="text_center">Produção [2023]</p></body></html>`

func testOptions() Options {
	return Options{
		ConnectTimeout: time.Second,
		ReadTimeout:    2 * time.Second,
		Retry:          retry.Policy{Attempts: 3, Backoff: retry.Linear(time.Millisecond)},
	}
}

func TestGetHtml_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ano") != "2023" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := NewFetcher(testOptions())
	doc, err := f.GetHtml(context.Background(), srv.URL+"/index.php?ano=2023")
	require.NoError(t, err)
	require.Equal(t, "Produção [2023]", doc.Find("p.text_center").Text())
}

func TestGetHtml_RetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	opts := testOptions()
	opts.Metrics = metrics.New(reg)
	f := NewFetcher(opts)

	_, err := f.GetHtml(context.Background(), srv.URL)
	require.NoError(t, err)
	require.EqualValues(t, 3, hits.Load())
	require.Equal(t, 2.0, testutil.ToFloat64(opts.Metrics.FetchAttempts.WithLabelValues(metrics.OutcomeRetry)))
	require.Equal(t, 1.0, testutil.ToFloat64(opts.Metrics.FetchAttempts.WithLabelValues(metrics.OutcomeSuccess)))
}

func TestGetHtml_ExhaustedRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(testOptions())
	_, err := f.GetHtml(context.Background(), srv.URL)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPageUnreachable)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, 3, fetchErr.Attempts)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	require.EqualValues(t, 3, hits.Load())
}

func TestGetHtml_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f := NewFetcher(testOptions())
	_, err := f.GetHtml(context.Background(), addr)
	require.ErrorIs(t, err, ErrPageUnreachable)
}

func TestGetHtml_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(testOptions())
	_, err := f.GetHtml(ctx, srv.URL)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrPageUnreachable)
}

func TestGetHtml_Latin1Page(t *testing.T) {
	// "Produção" in ISO-8859-1.
	latin1 := []byte("<html><body><p class=\"text_center\">Produ\xe7\xe3o</p></body></html>")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write(latin1)
	}))
	defer srv.Close()

	f := NewFetcher(testOptions())
	doc, err := f.GetHtml(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "Produção", doc.Find("p.text_center").Text())
}

func TestGetHtml_CacheSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	cache, err := caching.NewPageCache(t.TempDir(), time.Hour)
	require.NoError(t, err)

	opts := testOptions()
	opts.Cache = cache
	f := NewFetcher(opts)

	for i := 0; i < 3; i++ {
		_, err := f.GetHtml(context.Background(), srv.URL+"/?ano=2020")
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, hits.Load())
}

func TestGetHtml_RequestSpacing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	opts := testOptions()
	opts.RequestDelay = 40 * time.Millisecond
	f := NewFetcher(opts)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := f.GetHtmlBytes(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}
