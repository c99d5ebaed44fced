package sources

import (
	"errors"
	"fmt"
)

// Common errors returned by metadata source clients.
var (
	// ErrNoMatch indicates the source has no record for the query.
	// This is an expected outcome, not a source failure.
	ErrNoMatch = errors.New("no match found")

	// ErrUnsupportedQuery indicates the query carries no identifier
	// the source can act on (e.g. a book catalog given only a DOI).
	ErrUnsupportedQuery = errors.New("query not supported by source")

	// ErrRateLimited indicates the provider rejected the request for
	// exceeding its rate limit.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error")

	// ErrInvalidResponse indicates an unexpected provider response.
	ErrInvalidResponse = errors.New("invalid response")
)

// APIError represents an HTTP-level error from a metadata provider.
type APIError struct {
	Source     string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// IsRetryable reports whether a failed call is worth another attempt:
// network errors, rate limiting, and provider 5xx responses. A no-match
// or malformed response will not improve on retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrNetworkError) || errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

// IsNoMatch reports whether the error means the source simply had no
// record for the query.
func IsNoMatch(err error) bool {
	return errors.Is(err, ErrNoMatch) || errors.Is(err, ErrUnsupportedQuery)
}
