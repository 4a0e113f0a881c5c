package core

import (
	"context"

	"go.uber.org/zap"
)

// Scan sources
const (
	SourceAPI  = "api"
	SourceCLI  = "cli"
	SourceSMTP = "smtp"
)

// Scan outcomes
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeInvalid = "invalid"
)

// ScanService is the core service for classifying email text
type ScanService struct {
	client  ClassifierClient
	history ScanRecorder
	prefs   ModelPreference
	handoff ScanHandoff
	observe ScanObserver
	logger  *zap.Logger
}

// NewScanService creates a new scan service. handoff and observe may be nil.
func NewScanService(
	client ClassifierClient,
	history ScanRecorder,
	prefs ModelPreference,
	handoff ScanHandoff,
	observe ScanObserver,
	logger *zap.Logger,
) *ScanService {
	if observe == nil {
		observe = func(string, string) {}
	}
	return &ScanService{
		client:  client,
		history: history,
		prefs:   prefs,
		handoff: handoff,
		observe: observe,
		logger:  logger,
	}
}

// Scan validates the request, classifies it and records every model result
// in history. An empty model resolves to the stored default. Validation
// failures never reach the classification service.
func (s *ScanService) Scan(ctx context.Context, req ScanRequest, source string) (*LastScan, error) {
	if req.Model == "" && s.prefs != nil {
		req.Model = s.prefs.DefaultModel(ctx)
	}

	valid, err := ValidateScan(req)
	if err != nil {
		s.observe(source, OutcomeInvalid)
		s.logger.Debug("Rejected scan request",
			zap.String("source", source),
			zap.Error(err))
		return nil, err
	}

	result, err := s.client.Predict(ctx, valid.Text, valid.Model)
	if err != nil {
		s.observe(source, OutcomeError)
		s.logger.Warn("Classification failed",
			zap.String("source", source),
			zap.String("model", string(valid.Model)),
			zap.Error(err))
		return nil, err
	}

	for _, prediction := range result.All() {
		record := ScanRecord{
			Text:       valid.Text,
			Prediction: prediction.Prediction,
			Confidence: prediction.Confidence,
			Model:      prediction.Model,
		}
		if err := s.history.Add(ctx, record); err != nil {
			s.logger.Error("Failed to record scan in history",
				zap.String("model", prediction.Model),
				zap.Error(err))
		}
	}

	scan := &LastScan{Result: *result, Text: valid.Text, Model: valid.Model}
	if s.handoff != nil {
		if err := s.handoff.Save(ctx, *scan); err != nil {
			s.logger.Warn("Failed to store last scan", zap.Error(err))
		}
	}

	s.observe(source, OutcomeSuccess)
	if primary, err := result.Primary(); err == nil {
		s.logger.Info("Scan complete",
			zap.String("source", source),
			zap.String("model", string(valid.Model)),
			zap.String("prediction", string(primary.Prediction)),
			zap.Float64("confidence", primary.Confidence),
			zap.Int("results", len(result.All())))
	}

	return scan, nil
}
