package influxhttp

import (
	"errors"
	"fmt"
)

// Common errors returned by the executor.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// APIError is a failure reported by the server rather than the
// transport: an HTTP error status, or an error field in an otherwise
// successful response (in which case StatusCode is 200).
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("influxdb %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// shouldRetry determines if an error class is worth another attempt.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassClient:
		// Bad queries stay bad.
		return false
	case ErrorClassServer:
		return true
	case ErrorClassNetwork:
		return true
	default:
		return false
	}
}

// classify maps an attempt error to its retry class. Typed server
// failures carry their own class; everything else came from the
// transport.
func classify(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ErrorClassNetwork
}
