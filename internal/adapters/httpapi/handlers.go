package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/core"
	"github.com/mikey/spam-dashboard/internal/history"
	"github.com/mikey/spam-dashboard/internal/poller"
)

// maxScanBody bounds a scan request; the text limit is far below it
const maxScanBody = 1 << 20

const msgInvalidJSON = "Request body must be valid JSON"

// PollView exposes the live metrics poll state
type PollView interface {
	State() poller.State
	Status() poller.Status
}

// FeatureSource fetches model feature weights
type FeatureSource interface {
	GetFeatureImportance(ctx context.Context) (*core.FeatureImportance, error)
}

// Scanner classifies submitted text
type Scanner interface {
	Scan(ctx context.Context, req core.ScanRequest, source string) (*core.LastScan, error)
}

// LastScanLoader returns the scan handed off to the results view
type LastScanLoader interface {
	Load(ctx context.Context) (*core.LastScan, error)
}

// HistoryStore is the scan history as seen by the API
type HistoryStore interface {
	List(ctx context.Context) []core.ScanHistoryEntry
	Clear(ctx context.Context) error
	ExportCSV(ctx context.Context) string
}

// PreferenceStore reads and updates user preferences
type PreferenceStore interface {
	Get(ctx context.Context) core.Preferences
	Update(ctx context.Context, prefs core.Preferences) (core.Preferences, error)
}

// Handler holds the dependencies of the HTTP handlers
type Handler struct {
	poll     PollView
	features FeatureSource
	scanner  Scanner
	lastScan LastScanLoader
	history  HistoryStore
	prefs    PreferenceStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a new handler
func NewHandler(
	poll PollView,
	features FeatureSource,
	scanner Scanner,
	lastScan LastScanLoader,
	scans HistoryStore,
	prefs PreferenceStore,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		poll:     poll,
		features: features,
		scanner:  scanner,
		lastScan: lastScan,
		history:  scans,
		prefs:    prefs,
		logger:   logger,
		now:      time.Now,
	}
}

type metricsResponse struct {
	Status      string                `json:"status"`
	Loading     bool                  `json:"loading"`
	Snapshot    *core.MetricsSnapshot `json:"snapshot"`
	Error       *errorResponse        `json:"error"`
	LastUpdated *string               `json:"last_updated"`
	SpamRate    float64               `json:"spam_rate"`
	HamRate     float64               `json:"ham_rate"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DashboardMetrics handles GET /api/dashboard/metrics
func (h *Handler) DashboardMetrics(w http.ResponseWriter, r *http.Request) {
	state := h.poll.State()

	resp := metricsResponse{
		Status:   h.poll.Status().String(),
		Loading:  state.Loading,
		Snapshot: state.Snapshot,
	}
	if state.Err != nil {
		resp.Error = &errorResponse{Error: errorKind(state.Err), Message: core.ToUserMessage(state.Err)}
	}
	if !state.LastUpdated.IsZero() {
		ts := state.LastUpdated.UTC().Format(time.RFC3339Nano)
		resp.LastUpdated = &ts
	}
	if state.Snapshot != nil {
		resp.SpamRate = state.Snapshot.Totals.SpamRate()
		resp.HamRate = state.Snapshot.Totals.HamRate()
	}

	respondJSON(w, http.StatusOK, resp)
}

// FeatureImportance handles GET /api/dashboard/feature-importance
func (h *Handler) FeatureImportance(w http.ResponseWriter, r *http.Request) {
	importance, err := h.features.GetFeatureImportance(r.Context())
	if err != nil {
		h.logger.Warn("Failed to fetch feature importance", zap.Error(err))
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, importance)
}

// CreateScan handles POST /api/scans
func (h *Handler) CreateScan(w http.ResponseWriter, r *http.Request) {
	var req core.ScanRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxScanBody)).Decode(&req); err != nil {
		h.logger.Debug("Rejected malformed request body", zap.Error(err))
		respondError(w, http.StatusBadRequest, core.KindValidationError, msgInvalidJSON)
		return
	}

	scan, err := h.scanner.Scan(r.Context(), req, core.SourceAPI)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, scan)
}

// LastScan handles GET /api/scans/last
func (h *Handler) LastScan(w http.ResponseWriter, r *http.Request) {
	scan, err := h.lastScan.Load(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scan)
}

// ListHistory handles GET /api/history
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.history.List(r.Context()))
}

// ClearHistory handles DELETE /api/history
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context()); err != nil {
		h.logger.Error("Failed to clear history", zap.Error(err))
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportHistory handles GET /api/history/export
func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	body := h.history.ExportCSV(r.Context())
	filename := fmt.Sprintf("scan-history-%s.csv", h.now().UTC().Format(history.TimestampFormat))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// GetPreferences handles GET /api/preferences
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.prefs.Get(r.Context()))
}

// UpdatePreferences handles PUT /api/preferences
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs core.Preferences
	if err := json.NewDecoder(io.LimitReader(r.Body, maxScanBody)).Decode(&prefs); err != nil {
		h.logger.Debug("Rejected malformed request body", zap.Error(err))
		respondError(w, http.StatusBadRequest, core.KindValidationError, msgInvalidJSON)
		return
	}

	updated, err := h.prefs.Update(r.Context(), prefs)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"poller": h.poll.Status().String(),
	})
}

// respondErr maps a domain error to a status code and a user facing body
func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), errorKind(err), core.ToUserMessage(err))
}

func statusFor(err error) int {
	var validationErr *core.ValidationError
	var apiErr *core.APIError
	var transportErr *core.TransportError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoScan):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		if apiErr.Kind == core.KindValidationError {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorKind(err error) string {
	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		return core.KindValidationError
	}
	var apiErr *core.APIError
	if errors.As(err, &apiErr) && apiErr.Kind != "" {
		return apiErr.Kind
	}
	if errors.Is(err, core.ErrNoScan) {
		return "NotFound"
	}
	return core.KindServerError
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	respondJSON(w, status, errorResponse{Error: kind, Message: message})
}
