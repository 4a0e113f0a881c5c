package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"explicit api message", &APIError{Kind: KindServerError, Message: "Model not loaded"}, "Model not loaded"},
		{"validation kind", &APIError{Kind: KindValidationError}, "Please check your input and try again."},
		{"server kind", &APIError{Kind: KindServerError}, "Server error. Please try again later."},
		{"unknown kind", &APIError{Kind: "Teapot"}, "Something went wrong. Please try again."},
		{"wrapped api error", fmt.Errorf("failed to predict: %w", &APIError{Kind: KindServerError}), "Server error. Please try again later."},
		{"local validation", &ValidationError{Field: "text", Message: "Email text must be at least 10 characters"}, "Email text must be at least 10 characters"},
		{"transport", &TransportError{Op: "GET /api/metrics", Err: errors.New("connection refused")}, "Network error"},
		{"wrapped transport", fmt.Errorf("failed to fetch metrics: %w", &TransportError{Op: "GET", Err: errors.New("dial tcp: refused")}), "Network error"},
		{"plain error", errors.New("failed to delete key scan_history: disk full"), "Something went wrong. Please try again."},
		{"empty error", errors.New(""), "Something went wrong. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToUserMessage(tt.err))
		})
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	err := fmt.Errorf("failed to fetch metrics: %w", &TransportError{Op: "GET", Err: inner})
	assert.ErrorIs(t, err, inner)
}
