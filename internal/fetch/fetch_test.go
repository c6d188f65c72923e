package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/social-leads/internal/config"
	"github.com/sells-group/social-leads/internal/model"
	"github.com/sells-group/social-leads/internal/proxy"
	"github.com/sells-group/social-leads/internal/resilience"
)

func testFetcher(t *testing.T, proxyCfg config.ProxyConfig, maxAttempts int) *Fetcher {
	t.Helper()
	sel, err := proxy.NewSelector(proxyCfg)
	require.NoError(t, err)
	return New(sel, Options{
		Timeout: 2 * time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts:    maxAttempts,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
	})
}

func target(fetchURL string) model.Target {
	return model.Target{
		Platform:            model.PlatformInstagram,
		Username:            "someone",
		FetchURL:            fetchURL,
		CanonicalProfileURL: "https://www.instagram.com/someone/",
	}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "936619743392459", r.Header.Get("x-ig-app-id"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"data":{"user":{"biography":"hello"}}}`))
	}))
	defer srv.Close()

	f := testFetcher(t, config.ProxyConfig{}, 3)
	out, err := f.Fetch(context.Background(), target(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, 200, out.StatusCode)
	assert.Contains(t, string(out.Body), "biography")
	assert.Equal(t, srv.URL, out.FinalURL)
}

func TestFetch_FollowsRedirects(t *testing.T) {
	var finalPath = "/final"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != finalPath {
			http.Redirect(w, r, finalPath, http.StatusFound)
			return
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`<html><body>profile page content goes here and is long enough</body></html>`))
	}))
	defer srv.Close()

	f := testFetcher(t, config.ProxyConfig{}, 1)
	out, err := f.Fetch(context.Background(), target(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+finalPath, out.FinalURL)
}

func TestFetch_RetriesThenExhausts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(500)
	}))
	defer srv.Close()

	f := testFetcher(t, config.ProxyConfig{}, 3)
	_, err := f.Fetch(context.Background(), target(srv.URL))
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load(), "never more than max attempts")

	var serr *model.ScraperError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, model.PlatformInstagram, serr.Platform)
	assert.Equal(t, string(FailHTTPStatus), serr.Cause)
}

func TestFetch_RecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(502)
			return
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"data":{"user":{"biography":"back up"}}}`))
	}))
	defer srv.Close()

	f := testFetcher(t, config.ProxyConfig{}, 3)
	out, err := f.Fetch(context.Background(), target(srv.URL))
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, 200, out.StatusCode)
}

func TestFetch_ChallengePageClassifiedBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`<html><body>Please complete the reCAPTCHA to continue</body></html>`))
	}))
	defer srv.Close()

	f := testFetcher(t, config.ProxyConfig{}, 2)
	_, err := f.Fetch(context.Background(), target(srv.URL))
	require.Error(t, err)

	var serr *model.ScraperError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, string(FailBlocked), serr.Cause)
}

func TestFetch_ProxyFailureFallsBackToDirect(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"data":{"user":{"biography":"via direct"}}}`))
	}))
	defer srv.Close()

	// Residential tier points at a dead port; the second attempt must fall
	// back to the direct tier and succeed.
	f := testFetcher(t, config.ProxyConfig{ResidentialURL: "http://127.0.0.1:1"}, 3)
	out, err := f.Fetch(context.Background(), target(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, 200, out.StatusCode)
	assert.EqualValues(t, 1, calls.Load(), "origin reached only after tier fallback")
}

func TestFetch_TimeoutClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	sel, err := proxy.NewSelector(config.ProxyConfig{})
	require.NoError(t, err)
	f := New(sel, Options{
		Timeout: 50 * time.Millisecond,
		Retry: resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
		},
	})

	_, err = f.Fetch(context.Background(), target(srv.URL))
	require.Error(t, err)
	var serr *model.ScraperError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, string(FailTimeout), serr.Cause)
}

func TestFetch_CancellationSurfacesContextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sel, err := proxy.NewSelector(config.ProxyConfig{})
	require.NoError(t, err)
	f := New(sel, Options{
		Timeout: time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts:    5,
			InitialBackoff: 2 * time.Second,
		},
	})

	// Cancel while the fetcher sits in its first backoff wait.
	timer := time.AfterFunc(100*time.Millisecond, cancel)
	defer timer.Stop()

	_, err = f.Fetch(ctx, target(srv.URL))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	var serr *model.ScraperError
	assert.False(t, errors.As(err, &serr), "cancellation must not look like a scraper failure")
}
