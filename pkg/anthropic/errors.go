package anthropic

import "fmt"

// APIError is a non-2xx response from the Messages API.
type APIError struct {
	StatusCode int
	// RetryAfter is the raw Retry-After header, if the server sent one.
	RetryAfter string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("anthropic: status %d", e.StatusCode)
	}
	return e.Err.Error()
}

func (e *APIError) Unwrap() error { return e.Err }

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// RetryAfterHeader returns the raw Retry-After header value.
func (e *APIError) RetryAfterHeader() string { return e.RetryAfter }
