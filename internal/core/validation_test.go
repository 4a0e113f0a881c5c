package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScan(t *testing.T) {
	req, err := ValidateScan(ScanRequest{Text: "  Win a free cruise now!  ", Model: ModelBoth})
	require.NoError(t, err)
	assert.Equal(t, "Win a free cruise now!", req.Text)
	assert.Equal(t, ModelBoth, req.Model)
}

func TestValidateScanRejects(t *testing.T) {
	tests := []struct {
		name  string
		req   ScanRequest
		field string
	}{
		{"too short", ScanRequest{Text: "short", Model: ModelNaiveBayes}, "text"},
		{"short after trim", ScanRequest{Text: "   abc      ", Model: ModelNaiveBayes}, "text"},
		{"too long", ScanRequest{Text: strings.Repeat("x", MaxTextLength+1), Model: ModelLogisticRegression}, "text"},
		{"bad model", ScanRequest{Text: "long enough text here", Model: "svm"}, "model"},
		{"empty model", ScanRequest{Text: "long enough text here"}, "model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateScan(tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateScanBoundaries(t *testing.T) {
	_, err := ValidateScan(ScanRequest{Text: strings.Repeat("x", MinTextLength), Model: ModelNaiveBayes})
	assert.NoError(t, err)

	_, err = ValidateScan(ScanRequest{Text: strings.Repeat("x", MaxTextLength), Model: ModelNaiveBayes})
	assert.NoError(t, err)
}
