package rewardsapi

import "fmt"

// NotFoundError indicates the requested resource does not exist upstream.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// APIError is a non-2xx response from the rewards API. The body is kept
// verbatim for logging; partial payloads are never parsed.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rewards API returned status %d: %s", e.StatusCode, e.Body)
}

// RequestError wraps transport-level failures: network unreachable,
// timeouts, cancelled contexts.
type RequestError struct {
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// DecodeError wraps structurally malformed response payloads.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
