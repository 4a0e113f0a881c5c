package core

import (
	"errors"
	"fmt"
)

// Error classifications reported by the classification service
const (
	KindServerError     = "ServerError"
	KindValidationError = "ValidationError"
)

var (
	// ErrStopped is returned when operating on a poller that was stopped
	ErrStopped = errors.New("poller stopped")
	// ErrNoScan is returned when no last scan is available for handoff
	ErrNoScan = errors.New("no scan available")
)

// APIError is a non-success response from the classification service
type APIError struct {
	Kind       string `json:"error"`
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "APIError"
	}
	if e.Message != "" {
		return fmt.Sprintf("%s (status %d): %s", kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (status %d)", kind, e.StatusCode)
}

// TransportError is a request that could not complete
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ValidationError is input rejected locally before any request is sent
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

const (
	msgValidation = "Please check your input and try again."
	msgServer     = "Server error. Please try again later."
	msgGeneric    = "Something went wrong. Please try again."
	msgNetwork    = "Network error"
)

// ToUserMessage turns any error into a short human readable sentence.
// An explicit message wins, then known classifications, then a generic
// fallback. Raw error text is never returned.
func ToUserMessage(err error) string {
	if err == nil {
		return ""
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		if validationErr.Message != "" {
			return validationErr.Message
		}
		return msgValidation
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		switch apiErr.Kind {
		case KindValidationError:
			return msgValidation
		case KindServerError:
			return msgServer
		}
		return msgGeneric
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return msgNetwork
	}

	return msgGeneric
}
