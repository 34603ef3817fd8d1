package resilience

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// retryAfterer is implemented by errors that carry a Retry-After header.
type retryAfterer interface {
	RetryAfterHeader() string
}

var (
	retryInRe    = regexp.MustCompile(`(?i)retry in (\d+(?:\.\d+)?)s`)
	retryDelayRe = regexp.MustCompile(`(?i)retry_?delay["']?\s*:\s*["']?(\d+(?:\.\d+)?)s`)
)

// ParseRetryAfter interprets a Retry-After header value, either delta
// seconds or an HTTP-date relative to now. Dates in the past yield zero.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// RetryAfterFromMessage finds a server-suggested delay in error text such
// as "Please retry in 12.5s" or `"retryDelay": "30s"`.
func RetryAfterFromMessage(msg string) (time.Duration, bool) {
	for _, re := range []*regexp.Regexp{retryInRe, retryDelayRe} {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		secs, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	return 0, false
}

// RetryAfter extracts the server-suggested wait from err: the Retry-After
// header when the error carries one, otherwise the message wording.
func RetryAfter(err error, now time.Time) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	var ra retryAfterer
	if errors.As(err, &ra) {
		if d, ok := ParseRetryAfter(ra.RetryAfterHeader(), now); ok {
			return d, true
		}
	}
	return RetryAfterFromMessage(err.Error())
}
