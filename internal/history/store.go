// Package history keeps the newest-first, capacity-bounded log of past scans.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/core"
	"github.com/mikey/spam-dashboard/internal/metrics"
	"github.com/mikey/spam-dashboard/internal/utils"
)

const (
	// Key is the durable record holding the JSON encoded history
	Key = "scan_history"
	// Capacity is the maximum number of retained entries
	Capacity = 50
	// PreviewLength is the number of characters kept in an entry preview
	PreviewLength = 80

	// TimestampFormat is ISO-8601 in UTC with millisecond precision
	TimestampFormat = "2006-01-02T15:04:05.000Z"
)

var csvHeader = []string{"Timestamp", "Prediction", "Confidence", "Model", "Preview"}

// Store is the scan history backed by a key-value store.
// Writes are read-modify-write of the whole sequence; concurrent writers
// from separate processes race and the last full write wins.
type Store struct {
	kv            core.KVStore
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	now           func() time.Time
	newID         func() string
}

// NewStore creates a history store on top of kv
func NewStore(kv core.KVStore, logger *zap.Logger, textProcessor *utils.TextProcessor) *Store {
	if textProcessor == nil {
		textProcessor = utils.NewTextProcessor(logger)
	}
	return &Store{
		kv:            kv,
		logger:        logger,
		textProcessor: textProcessor,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Add records a classification outcome at the front of the history,
// evicting the oldest entries beyond Capacity. The error of a failed
// durable write is returned to the caller.
func (s *Store) Add(ctx context.Context, record core.ScanRecord) error {
	entries := s.List(ctx)

	entry := core.ScanHistoryEntry{
		ID:         s.newID(),
		Timestamp:  s.now().UTC().Format(TimestampFormat),
		Preview:    s.textProcessor.Preview(record.Text, PreviewLength),
		Prediction: record.Prediction,
		Confidence: record.Confidence,
		Model:      record.Model,
		Text:       record.Text,
	}

	entries = append([]core.ScanHistoryEntry{entry}, entries...)
	if len(entries) > Capacity {
		entries = entries[:Capacity]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode scan history: %w", err)
	}

	if err := s.kv.Write(ctx, Key, data); err != nil {
		s.logger.Error("Failed to persist scan history",
			zap.Error(err),
			zap.String("entry_id", entry.ID))
		return fmt.Errorf("failed to persist scan history: %w", err)
	}

	metrics.SetHistorySize(len(entries))
	s.logger.Debug("Added scan to history",
		zap.String("entry_id", entry.ID),
		zap.String("prediction", string(entry.Prediction)),
		zap.String("model", entry.Model),
		zap.Int("size", len(entries)))

	return nil
}

// List returns the stored history, newest first. Missing, unreadable or
// corrupt storage yields an empty history.
func (s *Store) List(ctx context.Context) []core.ScanHistoryEntry {
	data, ok, err := s.kv.Read(ctx, Key)
	if err != nil {
		s.logger.Warn("Failed to read scan history", zap.Error(err))
		return []core.ScanHistoryEntry{}
	}
	if !ok || len(data) == 0 {
		return []core.ScanHistoryEntry{}
	}

	var entries []core.ScanHistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("Ignoring corrupt scan history", zap.Error(err))
		return []core.ScanHistoryEntry{}
	}
	if entries == nil {
		return []core.ScanHistoryEntry{}
	}

	return entries
}

// Clear deletes the durable history. Clearing an empty history succeeds.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, Key); err != nil {
		return fmt.Errorf("failed to clear scan history: %w", err)
	}
	metrics.SetHistorySize(0)
	s.logger.Info("Scan history cleared")
	return nil
}

// ExportCSV renders the history as CSV, one row per entry in stored order.
// The preview column is always quoted with embedded quotes doubled.
func (s *Store) ExportCSV(ctx context.Context) string {
	entries := s.List(ctx)

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, strings.Join(csvHeader, ","))

	for _, entry := range entries {
		row := []string{
			entry.Timestamp,
			string(entry.Prediction),
			strconv.FormatFloat(entry.Confidence, 'f', 4, 64),
			entry.Model,
			`"` + strings.ReplaceAll(entry.Preview, `"`, `""`) + `"`,
		}
		lines = append(lines, strings.Join(row, ","))
	}

	return strings.Join(lines, "\n")
}
