package fetch

import (
	"context"
	"errors"
	"net/url"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/resilience"
)

// Chain tries fetchers in order and returns the first success. Each
// fetcher/host pair has a circuit breaker that opens after repeated blocks,
// so a site that keeps refusing plain HTTP goes straight to the browser.
type Chain struct {
	fetchers []Fetcher
	breakers *resilience.ServiceBreakers
}

// NewChain creates a Chain. Only blocked errors count toward cfg's failure
// threshold.
func NewChain(cfg resilience.CircuitBreakerConfig, fetchers ...Fetcher) *Chain {
	cfg.ShouldTrip = func(err error) bool { return errors.Is(err, resilience.ErrBlocked) }
	return &Chain{
		fetchers: fetchers,
		breakers: resilience.NewServiceBreakers(cfg),
	}
}

// Name implements Fetcher.
func (c *Chain) Name() string { return "chain" }

// Fetch implements Fetcher. When every fetcher fails and at least one was
// blocked, the returned error wraps resilience.ErrBlocked.
func (c *Chain) Fetch(ctx context.Context, target string) (string, error) {
	host := hostOf(target)

	var (
		lastErr error
		blocked bool
	)
	for _, f := range c.fetchers {
		cb := c.breakers.Get(f.Name() + "@" + host)
		html, err := resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (string, error) {
			return f.Fetch(ctx, target)
		})
		if err == nil {
			return html, nil
		}
		if ctx.Err() != nil {
			return "", eris.Wrap(ctx.Err(), "fetch: chain cancelled")
		}

		if errors.Is(err, resilience.ErrBlocked) || errors.Is(err, resilience.ErrCircuitOpen) {
			blocked = true
		}
		zap.L().Debug("fetch: fetcher failed, trying next",
			zap.String("fetcher", f.Name()),
			zap.String("url", target),
			zap.Error(err),
		)
		lastErr = err
	}

	if lastErr == nil {
		return "", eris.Errorf("fetch: no fetchers configured for %s", target)
	}
	if blocked {
		return "", eris.Wrapf(resilience.ErrBlocked, "fetch: blocked: every fetcher failed for %s (last: %v)", target, lastErr)
	}
	return "", eris.Wrap(lastErr, "fetch: all fetchers failed")
}

// States reports the breaker state per fetcher/host pair.
func (c *Chain) States() map[string]resilience.CircuitState {
	return c.breakers.States()
}

// Tripped returns the sorted fetcher/host pairs whose breaker is not closed.
func (c *Chain) Tripped() []string {
	var out []string
	for key, state := range c.States() {
		if state != resilience.CircuitClosed {
			out = append(out, key+"="+state.String())
		}
	}
	sort.Strings(out)
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
