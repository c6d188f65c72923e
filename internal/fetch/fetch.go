// Package fetch performs resilient HTTP fetches of profile pages through
// configurable proxy tiers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/social-leads/internal/model"
	"github.com/sells-group/social-leads/internal/proxy"
	"github.com/sells-group/social-leads/internal/resilience"
)

// FailureKind classifies a single failed fetch attempt.
type FailureKind string

const (
	FailTimeout    FailureKind = "timeout"
	FailConnection FailureKind = "connection_error"
	FailHTTPStatus FailureKind = "http_status_error"
	FailProxy      FailureKind = "proxy_error"
	FailBlocked    FailureKind = "blocked"
)

// Failure is one classified failed attempt. It never escapes the retry
// loop individually; only the last one is carried by the final error.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("fetch: %s (status %d)", f.Kind, f.StatusCode)
	}
	if f.Err != nil {
		return fmt.Sprintf("fetch: %s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("fetch: %s", f.Kind)
}

func (f *Failure) Unwrap() error { return f.Err }

// Outcome is a successful fetch: a 2xx response body and the URL the
// request resolved to after redirects.
type Outcome struct {
	StatusCode int
	Body       []byte
	FinalURL   string
}

const maxBodyBytes = 4 << 20

// Options configures a Fetcher.
type Options struct {
	Timeout time.Duration
	Retry   resilience.RetryConfig
	// UserAgent overrides the per-platform default when set.
	UserAgent string
}

// Fetcher fetches profile pages with bounded retries, exponential backoff,
// proxy tier fallback, and per-host rate limiting. Safe for concurrent use;
// retry and tier state live on the stack of each Fetch call.
type Fetcher struct {
	selector *proxy.Selector
	opts     Options
	limiters map[string]*rate.Limiter
}

// DefaultRateLimiters returns the default per-host rate limiters for the
// platform hosts this service talks to.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"i.instagram.com": rate.NewLimiter(2, 2),
		"www.tiktok.com":  rate.NewLimiter(2, 2),
	}
}

// New creates a Fetcher using the given proxy selector.
func New(selector *proxy.Selector, opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Fetcher{
		selector: selector,
		opts:     opts,
		limiters: DefaultRateLimiters(),
	}
}

// Fetch performs the GET against target.FetchURL. On exhaustion it returns
// a *model.ScraperError carrying the last failure's classification; on
// caller cancellation it returns the context error unwrapped.
func (f *Fetcher) Fetch(ctx context.Context, target model.Target) (*Outcome, error) {
	tier := 0

	retryCfg := f.opts.Retry
	logRetry := resilience.RetryLogger(string(target.Platform), "fetch")
	retryCfg.OnRetry = func(attempt int, err error) {
		logRetry(attempt, err)
		// Proxy trouble or a challenge page means this tier is burned for
		// the rest of the invocation.
		var failure *Failure
		if errors.As(err, &failure) {
			if (failure.Kind == FailProxy || failure.Kind == FailBlocked) && tier < f.selector.Tiers()-1 {
				tier++
				zap.L().Info("advancing proxy tier",
					zap.String("platform", string(target.Platform)),
					zap.String("tier", f.selector.Choose(tier).Tier.String()),
				)
			}
		}
	}

	outcome, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*Outcome, error) {
		return f.attempt(ctx, target, f.selector.Choose(tier))
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var failure *Failure
		cause := "unknown"
		if errors.As(err, &failure) {
			cause = string(failure.Kind)
		}
		return nil, &model.ScraperError{Platform: target.Platform, Cause: cause, Err: err}
	}
	return outcome, nil
}

// attempt performs one GET through the chosen proxy with the per-attempt
// timeout applied. All failures come back as *Failure.
func (f *Fetcher) attempt(ctx context.Context, target model.Target, choice proxy.Choice) (*Outcome, error) {
	if lim := f.limiterFor(target.FetchURL); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, &Failure{Kind: FailConnection, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.FetchURL, nil)
	if err != nil {
		return nil, &Failure{Kind: FailConnection, Err: err}
	}
	f.setHeaders(req, target.Platform)

	client := f.clientFor(choice)
	viaProxy := choice.Endpoint != nil
	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, viaProxy)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransportError(err, viaProxy)
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, &Failure{
			Kind:       FailBlocked,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("challenge response (%s)", blockType),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := FailHTTPStatus
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
			kind = FailBlocked
		}
		return nil, &Failure{Kind: kind, StatusCode: resp.StatusCode}
	}

	finalURL := target.FetchURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Outcome{
		StatusCode: resp.StatusCode,
		Body:       body,
		FinalURL:   finalURL,
	}, nil
}

// clientFor builds an HTTP client routed through the chosen proxy tier.
func (f *Fetcher) clientFor(choice proxy.Choice) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if choice.Endpoint != nil {
		transport.Proxy = http.ProxyURL(choice.Endpoint)
	}
	return &http.Client{Transport: transport}
}

// Header values mirror what the platforms expect from an ordinary browser
// session. Instagram's web profile endpoint additionally requires the web
// app id.
const (
	instagramUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"
	tiktokUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	instagramAppID     = "936619743392459"
)

func (f *Fetcher) setHeaders(req *http.Request, platform model.Platform) {
	switch platform {
	case model.PlatformInstagram:
		ua := f.opts.UserAgent
		if ua == "" {
			ua = instagramUserAgent
		}
		req.Header.Set("User-Agent", ua)
		req.Header.Set("x-ig-app-id", instagramAppID)
	default:
		ua := f.opts.UserAgent
		if ua == "" {
			ua = tiktokUserAgent
		}
		req.Header.Set("User-Agent", ua)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept-Encoding", "identity")
		req.Header.Set("Upgrade-Insecure-Requests", "1")
	}
}

func (f *Fetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return f.limiters[u.Hostname()]
}

// classifyTransportError maps a transport-level error onto a FailureKind.
// Connection-level errors on a proxied attempt mean the proxy itself is
// unreachable, so they classify as proxy errors and burn the tier.
func classifyTransportError(err error, viaProxy bool) *Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: FailTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Failure{Kind: FailTimeout, Err: err}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "proxyconnect") ||
		strings.Contains(msg, "proxy authentication") {
		return &Failure{Kind: FailProxy, Err: err}
	}

	if viaProxy {
		return &Failure{Kind: FailProxy, Err: err}
	}
	return &Failure{Kind: FailConnection, Err: err}
}
