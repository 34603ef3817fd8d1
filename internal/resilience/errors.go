package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// Sentinel errors shared by the extraction and pagination layers. Callers
// wrap them with eris and test with errors.Is.
var (
	// ErrConfiguration means a required setting (the AI credential) is
	// missing. It is raised before any network activity.
	ErrConfiguration = eris.New("configuration error")

	// ErrBlocked means the review site refused the request (403/429 or an
	// anti-bot page).
	ErrBlocked = eris.New("blocked")

	// ErrRetriesExhausted means the AI backend kept failing with rate-limit
	// or transient errors until the retry budget ran out and heuristic
	// fallback was disabled.
	ErrRetriesExhausted = eris.New("retries exhausted")

	// ErrAllModelsFailed means no candidate model could be initialized or
	// every candidate reported model-not-found.
	ErrAllModelsFailed = eris.New("all models failed")
)

// TransientError wraps an error that is safe to retry (e.g., 429, 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code carried by the error, if any.
func (e *TransientError) HTTPStatus() int {
	return e.StatusCode
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient error patterns (network
// timeouts, connection resets, DNS failures).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range networkPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// networkPatterns match wrapped transport failures by message.
var networkPatterns = []string{
	"connection reset",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"transport connection broken",
	"fetch failed",
	"network error",
	"econnreset",
	"etimedout",
	"enotfound",
	"eai_again",
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// ClassifyError categorizes an error as "transient" or "permanent" for run
// records.
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	switch Classify(err) {
	case ClassRateLimited, ClassTransient:
		return "transient"
	}
	return "permanent"
}
