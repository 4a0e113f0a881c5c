package session

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/core"
)

// LastScanKey holds the most recent scan handed off to a results view
const LastScanKey = "lastScan"

// Handoff passes the latest scan between the scan flow and a results view
// through short-lived storage.
type Handoff struct {
	kv     core.KVStore
	logger *zap.Logger
}

// NewHandoff creates a handoff on top of session scoped storage
func NewHandoff(kv core.KVStore, logger *zap.Logger) *Handoff {
	return &Handoff{
		kv:     kv,
		logger: logger,
	}
}

// Save stores the scan, replacing any previous one
func (h *Handoff) Save(ctx context.Context, scan core.LastScan) error {
	data, err := json.Marshal(scan)
	if err != nil {
		return fmt.Errorf("failed to encode last scan: %w", err)
	}
	if err := h.kv.Write(ctx, LastScanKey, data); err != nil {
		return fmt.Errorf("failed to store last scan: %w", err)
	}
	return nil
}

// Load returns the last scan. Absent, unreadable or unparsable state is
// reported as core.ErrNoScan.
func (h *Handoff) Load(ctx context.Context) (*core.LastScan, error) {
	data, ok, err := h.kv.Read(ctx, LastScanKey)
	if err != nil {
		h.logger.Warn("Failed to read last scan", zap.Error(err))
		return nil, core.ErrNoScan
	}
	if !ok {
		return nil, core.ErrNoScan
	}

	var scan core.LastScan
	if err := json.Unmarshal(data, &scan); err != nil {
		h.logger.Warn("Ignoring corrupt last scan", zap.Error(err))
		return nil, core.ErrNoScan
	}
	if primary, err := scan.Result.Primary(); err != nil || primary.Prediction == "" {
		return nil, core.ErrNoScan
	}

	return &scan, nil
}
