package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/review-cli/internal/resilience"
)

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 8 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.RetryConfig
	// Limiter spaces requests; nil means one request per second.
	Limiter *rate.Limiter
	// Transport overrides the base transport, mostly for tests.
	Transport http.RoundTripper
}

// HTTPFetcher fetches pages with net/http. Every failure is retried with a
// randomized delay; 403/429 and anti-bot pages end as resilience.ErrBlocked.
type HTTPFetcher struct {
	client  *http.Client
	opts    HTTPOptions
	limiter *rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(1), 1)
	}
	base := opts.Transport
	if base == nil {
		base = &http.Transport{
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		opts:    opts,
		limiter: limiter,
	}
}

// Name implements Fetcher.
func (f *HTTPFetcher) Name() string { return "http" }

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()

	cfg := f.opts.Retry
	cfg.ShouldRetry = func(err error) bool {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	cfg.OnRetry = resilience.RetryLogger("fetch: request failed, retrying", cfg.MaxAttempts, zap.String("url", url))

	body, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		return f.fetchOnce(ctx, url)
	})
	observe(f.Name(), start, err)
	if err != nil {
		return "", err
	}
	return body, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "fetch: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrap(err, "fetch: create request")
	}
	req.Header = browserHeaders(f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: get %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "fetch: read body")
	}

	if blocked, kind := DetectBlock(resp, raw); blocked {
		return "", eris.Wrapf(resilience.ErrBlocked, "fetch: blocked: %d (%s) %s", resp.StatusCode, kind, url)
	}
	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("fetch: http %d from %s", resp.StatusCode, url)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return "", statusErr
	}

	return decodeBody(raw, resp.Header.Get("Content-Type"))
}
