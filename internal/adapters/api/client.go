// Package api talks to the spam classification service over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/core"
)

// DefaultBaseURL is used when no base URL is configured
const DefaultBaseURL = "http://localhost:8000"

const (
	predictPath           = "/api/predict"
	metricsPath           = "/api/metrics"
	featureImportancePath = "/api/feature-importance"

	// maxErrorBody bounds how much of an error response is decoded
	maxErrorBody = 64 << 10
)

// Fallback messages used when an error response carries no readable body
const (
	FallbackPredictMessage           = "Network error"
	FallbackMetricsMessage           = "Failed to fetch metrics"
	FallbackFeatureImportanceMessage = "Failed to fetch feature importance"
)

var errEmptyResponse = errors.New("empty response body")

// Client is an implementation of core.ClassifierClient over HTTP/JSON
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the service at baseURL. A zero timeout
// leaves requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// BaseURL returns the normalized service address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Predict classifies text with the selected model(s)
func (c *Client) Predict(ctx context.Context, text string, model core.ModelType) (*core.PredictionResponse, error) {
	payload := core.ScanRequest{Text: text, Model: model}

	var resp core.PredictionResponse
	if err := c.doJSON(ctx, http.MethodPost, predictPath, payload, &resp, FallbackPredictMessage); err != nil {
		return nil, err
	}
	if len(resp.All()) == 0 {
		return nil, &core.APIError{Kind: core.KindServerError, Message: "Empty prediction response", StatusCode: http.StatusOK}
	}

	c.logger.Debug("Prediction received",
		zap.String("model", string(model)),
		zap.Int("results", len(resp.All())))
	return &resp, nil
}

// GetMetrics fetches the aggregate performance snapshot
func (c *Client) GetMetrics(ctx context.Context) (*core.MetricsSnapshot, error) {
	var snapshot core.MetricsSnapshot
	if err := c.doJSON(ctx, http.MethodGet, metricsPath, nil, &snapshot, FallbackMetricsMessage); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// GetFeatureImportance fetches the top weighted terms
func (c *Client) GetFeatureImportance(ctx context.Context) (*core.FeatureImportance, error) {
	var importance core.FeatureImportance
	if err := c.doJSON(ctx, http.MethodGet, featureImportancePath, nil, &importance, FallbackFeatureImportanceMessage); err != nil {
		return nil, err
	}
	return &importance, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any, fallback string) error {
	op := method + " " + path

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &core.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &core.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp, fallback)
		c.logger.Debug("Classification service returned an error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", apiErr.Kind))
		return apiErr
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return &core.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if bytes.Equal(raw, []byte("null")) {
		return &core.TransportError{Op: op, Err: errEmptyResponse}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &core.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// decodeError reads the service error body. Bodies that are not a JSON
// object are replaced with a ServerError carrying the fallback message. An
// object with neither field stays unclassified.
func decodeError(resp *http.Response, fallback string) *core.APIError {
	apiErr := &core.APIError{}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) || json.Unmarshal(data, apiErr) != nil {
		apiErr = &core.APIError{Kind: core.KindServerError, Message: fallback}
	}
	if apiErr.Kind == "" && apiErr.Message != "" {
		apiErr.Kind = core.KindServerError
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}
