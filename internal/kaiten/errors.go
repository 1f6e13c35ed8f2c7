package kaiten

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the board API. A 429 is retried
// internally by the client; any APIError that escapes to the caller is
// final.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: API returned %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: API returned %d", e.Operation, e.StatusCode)
}

func newAPIError(operation string, statusCode int, message string) *APIError {
	return &APIError{Operation: operation, StatusCode: statusCode, Message: message}
}

// IsRateLimited reports whether err is an exhausted rate-limit failure,
// i.e. the client received 429 on every configured attempt.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}
