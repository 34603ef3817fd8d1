// Package fetch retrieves review-page markup over plain HTTP or a headless
// browser, with retries, rate limiting, anti-bot detection, per-host circuit
// breakers and an optional Redis page cache.
package fetch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sells-group/review-cli/internal/metrics"
	"github.com/sells-group/review-cli/internal/resilience"
)

// Fetcher returns the markup of one page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Name() string
}

// DefaultUserAgent is a current desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// browserHeaders are sent with every plain HTTP request so responses match
// what a desktop browser would get.
func browserHeaders(userAgent string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	return h
}

// observe records one fetch outcome.
func observe(fetcher string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, resilience.ErrBlocked):
		outcome = "blocked"
	case errors.Is(err, resilience.ErrCircuitOpen):
		outcome = "circuit_open"
	default:
		outcome = "error"
	}
	metrics.ObserveFetch(fetcher, outcome, time.Since(start))
}
