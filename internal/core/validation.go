package core

import (
	"strings"
	"unicode/utf8"
)

const (
	// MinTextLength is the shortest accepted email text, in characters, after trimming
	MinTextLength = 10
	// MaxTextLength is the longest accepted email text, in characters, after trimming
	MaxTextLength = 20000
)

// ValidateScan checks a scan request and returns the normalized input.
// The returned request carries the trimmed text.
func ValidateScan(req ScanRequest) (ScanRequest, error) {
	text := strings.TrimSpace(req.Text)
	n := utf8.RuneCountInString(text)

	if n < MinTextLength {
		return ScanRequest{}, &ValidationError{
			Field:   "text",
			Message: "Email text must be at least 10 characters",
		}
	}
	if n > MaxTextLength {
		return ScanRequest{}, &ValidationError{
			Field:   "text",
			Message: "Email text must be less than 20,000 characters",
		}
	}
	if !req.Model.Valid() {
		return ScanRequest{}, &ValidationError{
			Field:   "model",
			Message: "Model must be one of nb, lr, both",
		}
	}

	return ScanRequest{Text: text, Model: req.Model}, nil
}
