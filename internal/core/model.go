package core

import (
	"encoding/json"
	"fmt"
)

// ModelType selects which classifier(s) the service should run
type ModelType string

const (
	ModelNaiveBayes         ModelType = "nb"
	ModelLogisticRegression ModelType = "lr"
	ModelBoth               ModelType = "both"
)

// Valid reports whether m is one of the known model choices
func (m ModelType) Valid() bool {
	switch m {
	case ModelNaiveBayes, ModelLogisticRegression, ModelBoth:
		return true
	}
	return false
}

// Label is a classification outcome
type Label string

const (
	LabelSpam Label = "spam"
	LabelHam  Label = "ham"
)

// ModelMetrics holds the evaluation scores of a single model
type ModelMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Totals aggregates the scans seen by the classification service
type Totals struct {
	Scans         int64   `json:"scans"`
	Spam          int64   `json:"spam"`
	Ham           int64   `json:"ham"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// SpamRate returns the share of scans classified as spam
func (t Totals) SpamRate() float64 {
	if t.Scans <= 0 {
		return 0
	}
	return float64(t.Spam) / float64(t.Scans)
}

// HamRate returns the share of scans classified as ham
func (t Totals) HamRate() float64 {
	if t.Scans <= 0 {
		return 0
	}
	return float64(t.Ham) / float64(t.Scans)
}

// MetricsSnapshot is the aggregate performance payload served by /api/metrics.
// It is replaced wholesale on every successful poll and never patched.
type MetricsSnapshot struct {
	NaiveBayes         ModelMetrics `json:"naive_bayes"`
	LogisticRegression ModelMetrics `json:"logistic_regression"`
	Totals             Totals       `json:"totals"`
}

// Models returns the per-model records keyed by model identifier
func (s *MetricsSnapshot) Models() map[string]ModelMetrics {
	return map[string]ModelMetrics{
		"naive_bayes":         s.NaiveBayes,
		"logistic_regression": s.LogisticRegression,
	}
}

// Prediction is the outcome of a single model
type Prediction struct {
	Prediction Label   `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
}

// PredictionResponse is either a single prediction or, when both models
// were requested, the list of per-model results plus their agreement.
type PredictionResponse struct {
	Single    *Prediction
	Results   []Prediction
	Agreement bool
}

type multiPrediction struct {
	Results   []Prediction `json:"results"`
	Agreement bool         `json:"agreement"`
}

// UnmarshalJSON decodes either response shape
func (r *PredictionResponse) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if _, ok := probe["results"]; ok {
		var multi multiPrediction
		if err := json.Unmarshal(data, &multi); err != nil {
			return err
		}
		*r = PredictionResponse{Results: multi.Results, Agreement: multi.Agreement}
		return nil
	}

	var single Prediction
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*r = PredictionResponse{Single: &single}
	return nil
}

// MarshalJSON encodes the response in the same shape the service produced
func (r PredictionResponse) MarshalJSON() ([]byte, error) {
	if r.Single != nil {
		return json.Marshal(r.Single)
	}
	results := r.Results
	if results == nil {
		results = []Prediction{}
	}
	return json.Marshal(multiPrediction{Results: results, Agreement: r.Agreement})
}

// IsMulti reports whether the response carries more than one model result
func (r *PredictionResponse) IsMulti() bool {
	return r.Single == nil
}

// All returns every model result in response order
func (r *PredictionResponse) All() []Prediction {
	if r.Single != nil {
		return []Prediction{*r.Single}
	}
	return r.Results
}

// Primary returns the result shown first: the single result, or the first of many
func (r *PredictionResponse) Primary() (Prediction, error) {
	all := r.All()
	if len(all) == 0 {
		return Prediction{}, fmt.Errorf("prediction response has no results")
	}
	return all[0], nil
}

// FeatureWeight is a single term and its weight in a model
type FeatureWeight struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// FeatureImportance lists the most influential terms of a model
type FeatureImportance struct {
	Model       string          `json:"model"`
	TopFeatures []FeatureWeight `json:"top_features"`
}

// ScanRequest is the user input for a classification
type ScanRequest struct {
	Text  string    `json:"text"`
	Model ModelType `json:"model"`
}

// ScanRecord is the input to the history store. Id, timestamp and preview are derived.
type ScanRecord struct {
	Text       string
	Prediction Label
	Confidence float64
	Model      string
}

// ScanHistoryEntry is a durable record of a past classification
type ScanHistoryEntry struct {
	ID         string  `json:"id"`
	Timestamp  string  `json:"timestamp"`
	Preview    string  `json:"preview"`
	Prediction Label   `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
	Text       string  `json:"text"`
}

// LastScan is the most recent request/response triple handed to a results view
type LastScan struct {
	Result PredictionResponse `json:"result"`
	Text   string             `json:"text"`
	Model  ModelType          `json:"model"`
}

// Theme is the user's display preference
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Valid reports whether t is a known theme
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Preferences groups the persisted user preferences
type Preferences struct {
	DefaultModel ModelType `json:"default_model"`
	Theme        Theme     `json:"theme"`
}
