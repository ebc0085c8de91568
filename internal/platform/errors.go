package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrProjectNotFound is returned when no project carries the requested name
	ErrProjectNotFound = errors.New("project not found")
	// ErrUnexpectedStatus wraps every non-2xx response
	ErrUnexpectedStatus = errors.New("unexpected response status")
	// ErrMalformedResponse is returned when a response body cannot be decoded
	ErrMalformedResponse = errors.New("malformed response body")
)

// Outcome classifies the result of one platform call for logs and metrics.
type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeNotFound       Outcome = "not_found"
	OutcomeHTTPError      Outcome = "http_error"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeDecodeError    Outcome = "decode_error"
)

// APIError represents a non-2xx response from the platform API
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("HTTP %d", e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new API error
func NewAPIError(statusCode int, message string, err error) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// Classify maps an error returned by a platform call to its Outcome.
func Classify(err error) Outcome {
	var apiErr *APIError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrProjectNotFound):
		return OutcomeNotFound
	case errors.As(err, &apiErr):
		return OutcomeHTTPError
	case errors.Is(err, ErrMalformedResponse):
		return OutcomeDecodeError
	default:
		return OutcomeTransportError
	}
}
