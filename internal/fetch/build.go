package fetch

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/review-cli/internal/config"
	"github.com/sells-group/review-cli/internal/resilience"
)

// FromConfig assembles the fetcher stack described by cfg: plain HTTP,
// optionally followed by headless Chrome, behind per-host breakers and an
// optional Redis cache. The returned func reports tripped breakers and
// releases the browser and Redis connection.
func FromConfig(fc config.FetchConfig, rc config.RedisConfig) (Fetcher, func()) {
	var closers []func()

	rps := fc.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := fc.Burst
	if burst <= 0 {
		burst = 1
	}

	fetchers := []Fetcher{NewHTTPFetcher(HTTPOptions{
		UserAgent: fc.UserAgent,
		Timeout:   time.Duration(fc.TimeoutSecs) * time.Second,
		Retry:     resilience.FromRetryConfig(fc.MaxAttempts, fc.RetryMinDelayMs, fc.RetryMaxDelayMs),
		Limiter:   rate.NewLimiter(rate.Limit(rps), burst),
	})}
	if fc.Browser {
		b := NewBrowserFetcher(BrowserOptions{
			UserAgent: fc.UserAgent,
			Wait:      time.Duration(fc.BrowserWaitMs) * time.Millisecond,
		})
		fetchers = append(fetchers, b)
		closers = append(closers, b.Close)
	}

	chain := NewChain(resilience.FromCircuitConfig(fc.BreakerThreshold, fc.BreakerResetSecs), fetchers...)
	closers = append(closers, func() {
		if tripped := chain.Tripped(); len(tripped) > 0 {
			zap.L().Warn("fetch: circuit breakers not closed at shutdown", zap.Strings("breakers", tripped))
		}
	})
	var f Fetcher = chain

	if rc.Addr != "" {
		rdb := NewRedisClient(rc.Addr, rc.Password, rc.DB)
		ttl := time.Duration(fc.CacheTTLMins) * time.Minute
		f = NewCachedFetcher(f, rdb, ttl)
		closers = append(closers, func() {
			if err := rdb.Close(); err != nil {
				zap.L().Debug("fetch: close redis", zap.Error(err))
			}
		})
		zap.L().Info("fetch: page cache enabled", zap.String("addr", rc.Addr), zap.Duration("ttl", ttl))
	}

	return f, func() {
		for _, c := range closers {
			c()
		}
	}
}
