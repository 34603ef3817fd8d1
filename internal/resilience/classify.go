package resilience

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
)

// Class is the recovery category of an AI backend failure.
type Class string

const (
	// ClassNone is returned for a nil error.
	ClassNone Class = ""
	// ClassRateLimited: quota or rate limiting; wait and retry.
	ClassRateLimited Class = "rate_limited"
	// ClassTransient: network or 5xx failure; wait and retry.
	ClassTransient Class = "transient"
	// ClassModelNotFound: the selected model is unknown; try the next model.
	ClassModelNotFound Class = "model_not_found"
	// ClassFatal: anything else; propagate immediately.
	ClassFatal Class = "fatal"
)

// Retryable reports whether the class consumes the retry budget.
func (c Class) Retryable() bool {
	return c == ClassRateLimited || c == ClassTransient
}

// statusCoder is implemented by errors that carry an HTTP status code.
type statusCoder interface {
	HTTPStatus() int
}

var (
	rateLimitPatterns = []string{"rate limit", "rate-limited", "quota", "too many requests", "overloaded"}
	// Status codes that only appear in message text. Word boundaries keep
	// model ids such as claude-3-7-sonnet-20250219 from matching.
	transientCodeRe = regexp.MustCompile(`\b50[234]\b`)
	notFoundRe      = regexp.MustCompile(`\bnot found\b|\b404\b`)
	jobFatalRe      = regexp.MustCompile(`\bblocked\b|\b403\b|anthropic_api_key`)
	urlRe           = regexp.MustCompile(`[a-z][a-z0-9+.-]*://\S+`)
)

// Classify maps an AI backend error to exactly one Class. A known HTTP status
// decides on its own; message wording is only consulted when the error
// carries no status.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	if errors.Is(err, context.Canceled) {
		return ClassFatal
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch code := sc.HTTPStatus(); {
		case code == 429 || code == 529:
			return ClassRateLimited
		case code >= 500:
			return ClassTransient
		case code == 404:
			return ClassModelNotFound
		case code > 0:
			return ClassFatal
		}
	}

	msg := strings.ToLower(err.Error())
	if containsAny(msg, rateLimitPatterns) {
		return ClassRateLimited
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}
	if containsAny(msg, networkPatterns) || transientCodeRe.MatchString(msg) {
		return ClassTransient
	}

	if notFoundRe.MatchString(msg) {
		return ClassModelNotFound
	}
	return ClassFatal
}

// IsJobFatal reports whether err must stop a pagination job: a blocked site,
// a 403, or a missing credential. Every other error is treated as an empty
// page by the controller. URLs are removed before the wording is matched so
// a slug like "blocked-403" cannot stop a job.
func IsJobFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBlocked) || errors.Is(err, ErrConfiguration) {
		return true
	}
	var sc statusCoder
	if errors.As(err, &sc) && sc.HTTPStatus() > 0 {
		return sc.HTTPStatus() == 403
	}
	msg := urlRe.ReplaceAllString(strings.ToLower(err.Error()), "")
	return jobFatalRe.MatchString(msg)
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
