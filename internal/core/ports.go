package core

import (
	"context"
)

// MetricsSource fetches the aggregate performance snapshot
type MetricsSource interface {
	// GetMetrics fetches the current metrics snapshot
	GetMetrics(ctx context.Context) (*MetricsSnapshot, error)
}

// ClassifierClient defines the interface for talking to the classification service
type ClassifierClient interface {
	MetricsSource

	// Predict classifies a piece of email text with the selected model(s)
	Predict(ctx context.Context, text string, model ModelType) (*PredictionResponse, error)

	// GetFeatureImportance fetches the top weighted terms
	GetFeatureImportance(ctx context.Context) (*FeatureImportance, error)
}

// KVStore is the raw key-value capability behind history, preferences and session state
type KVStore interface {
	// Read returns the value stored under key and whether it was present
	Read(ctx context.Context, key string) ([]byte, bool, error)

	// Write stores value under key, replacing any previous value
	Write(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ScanRecorder appends classification outcomes to the scan history
type ScanRecorder interface {
	Add(ctx context.Context, record ScanRecord) error
}

// ModelPreference resolves the model used when a scan names none
type ModelPreference interface {
	DefaultModel(ctx context.Context) ModelType
}

// ScanHandoff passes the most recent scan to a results view
type ScanHandoff interface {
	Save(ctx context.Context, scan LastScan) error
}

// ScanObserver is notified once per scan with its source and outcome
type ScanObserver func(source, outcome string)
