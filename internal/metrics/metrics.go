// Package metrics defines the Prometheus collectors recorded by the fetch,
// extraction and pagination layers, and the HTTP router that exposes them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reviews"

var (
	// Pages counts pages processed by the pagination controller.
	Pages = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "pages_total", Help: "Review pages processed."},
		[]string{"source", "outcome"}, // outcome: reviews|empty|error
	)
	// Reviews counts emitted reviews by extraction method.
	Reviews = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "reviews_extracted_total", Help: "Reviews extracted."},
		[]string{"source", "method"},
	)
	// AICalls counts AI backend invocations by outcome class.
	AICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ai_calls_total", Help: "AI backend calls."},
		[]string{"model", "outcome"},
	)
	// AIRetries counts backoff sleeps taken by the AI extractor.
	AIRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ai_retries_total", Help: "AI backend retries."},
		[]string{"class"},
	)
	// AIFallbacks counts heuristic fallbacks after exhausted AI retries.
	AIFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ai_fallbacks_total", Help: "Heuristic fallbacks after AI retry exhaustion."},
		[]string{"source"},
	)
	// FetchRequests counts page fetches per fetcher.
	FetchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "fetch_requests_total", Help: "Page fetches."},
		[]string{"fetcher", "outcome"}, // outcome: ok|blocked|error
	)
	// FetchLatency observes page fetch duration.
	FetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "fetch_duration_seconds",
			Help:    "Page fetch duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"fetcher"},
	)
	// CacheEvents counts page cache hits, misses and sets.
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Page cache hits/misses/sets."},
		[]string{"cache", "event"}, // event: hit|miss|set|error
	)
)

// InitRegistry returns a private registry holding every collector.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(Pages, Reviews, AICalls, AIRetries, AIFallbacks, FetchRequests, FetchLatency, CacheEvents)
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ObservePage records one processed page.
func ObservePage(source, outcome string) {
	Pages.WithLabelValues(source, outcome).Inc()
}

// ObserveReviews records n reviews extracted with method.
func ObserveReviews(source, method string, n int) {
	if n <= 0 {
		return
	}
	Reviews.WithLabelValues(source, method).Add(float64(n))
}

// ObserveAICall records one AI backend call. outcome is "success" or the
// failure class.
func ObserveAICall(model, outcome string) {
	AICalls.WithLabelValues(model, outcome).Inc()
}

// ObserveAIRetry records one backoff sleep for class.
func ObserveAIRetry(class string) {
	AIRetries.WithLabelValues(class).Inc()
}

// ObserveAIFallback records one heuristic fallback.
func ObserveAIFallback(source string) {
	AIFallbacks.WithLabelValues(source).Inc()
}

// ObserveFetch records one page fetch.
func ObserveFetch(fetcher, outcome string, dur time.Duration) {
	FetchRequests.WithLabelValues(fetcher, outcome).Inc()
	FetchLatency.WithLabelValues(fetcher).Observe(dur.Seconds())
}

// ObserveCache records a cache event: hit|miss|set|error.
func ObserveCache(cache, event string) {
	CacheEvents.WithLabelValues(cache, event).Inc()
}
