package resilience

import (
	"time"
)

// FromBackoffConfig builds the RetryConfig used by the AI extractor: doubling
// delays starting at baseMs, capped at maxMs, with up to jitterMs of additive
// jitter. maxAttempts counts retries plus the first call.
func FromBackoffConfig(maxAttempts, baseMs, maxMs, jitterMs int) RetryConfig {
	cfg := RetryConfig{
		MaxAttempts:    maxAttempts,
		InitialBackoff: 5 * time.Second,
		MaxBackoff:     60 * time.Second,
		Multiplier:     2.0,
		JitterMax:      time.Second,
	}
	if baseMs > 0 {
		cfg.InitialBackoff = time.Duration(baseMs) * time.Millisecond
	}
	if maxMs > 0 {
		cfg.MaxBackoff = time.Duration(maxMs) * time.Millisecond
	}
	if jitterMs >= 0 {
		cfg.JitterMax = time.Duration(jitterMs) * time.Millisecond
	}
	return applyDefaults(cfg)
}

// FromRetryConfig converts fetch retry settings to a RetryConfig on top of
// DefaultRetryConfig.
func FromRetryConfig(maxAttempts, minDelayMs, maxDelayMs int) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if minDelayMs > 0 {
		cfg.InitialBackoff = time.Duration(minDelayMs) * time.Millisecond
	}
	if maxDelayMs > 0 {
		cfg.MaxBackoff = time.Duration(maxDelayMs) * time.Millisecond
	}
	cfg.JitterMax = cfg.MaxBackoff - cfg.InitialBackoff
	if cfg.JitterMax < 0 {
		cfg.JitterMax = 0
	}
	return cfg
}

// FromCircuitConfig converts config values to a CircuitBreakerConfig.
func FromCircuitConfig(failureThreshold, resetTimeoutSecs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}
