package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClassifier struct {
	calls    int
	text     string
	model    ModelType
	response *PredictionResponse
	err      error
}

func (f *fakeClassifier) Predict(_ context.Context, text string, model ModelType) (*PredictionResponse, error) {
	f.calls++
	f.text = text
	f.model = model
	return f.response, f.err
}

func (f *fakeClassifier) GetMetrics(context.Context) (*MetricsSnapshot, error) {
	return &MetricsSnapshot{}, nil
}

func (f *fakeClassifier) GetFeatureImportance(context.Context) (*FeatureImportance, error) {
	return &FeatureImportance{}, nil
}

type fakeRecorder struct {
	records []ScanRecord
	err     error
}

func (f *fakeRecorder) Add(_ context.Context, record ScanRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

type fixedPreference ModelType

func (p fixedPreference) DefaultModel(context.Context) ModelType {
	return ModelType(p)
}

type fakeHandoff struct {
	saved *LastScan
	err   error
}

func (f *fakeHandoff) Save(_ context.Context, scan LastScan) error {
	if f.err != nil {
		return f.err
	}
	f.saved = &scan
	return nil
}

type outcomeLog []string

func (o *outcomeLog) observe(source, outcome string) {
	*o = append(*o, source+":"+outcome)
}

func TestScanBothModels(t *testing.T) {
	client := &fakeClassifier{response: &PredictionResponse{
		Results: []Prediction{
			{Prediction: LabelSpam, Confidence: 0.92, Model: "NaiveBayes"},
			{Prediction: LabelSpam, Confidence: 0.88, Model: "LogisticRegression"},
		},
		Agreement: true,
	}}
	recorder := &fakeRecorder{}
	handoff := &fakeHandoff{}
	var outcomes outcomeLog

	svc := NewScanService(client, recorder, fixedPreference(ModelNaiveBayes), handoff, outcomes.observe, zaptest.NewLogger(t))
	scan, err := svc.Scan(context.Background(), ScanRequest{Text: "  Claim your free prize today!  ", Model: ModelBoth}, SourceAPI)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, "Claim your free prize today!", client.text)
	assert.Equal(t, ModelBoth, client.model)

	require.Len(t, recorder.records, 2)
	assert.Equal(t, "NaiveBayes", recorder.records[0].Model)
	assert.Equal(t, "LogisticRegression", recorder.records[1].Model)
	assert.Equal(t, 0.88, recorder.records[1].Confidence)
	assert.Equal(t, "Claim your free prize today!", recorder.records[1].Text)

	require.NotNil(t, handoff.saved)
	assert.Equal(t, *scan, *handoff.saved)
	assert.Equal(t, ModelBoth, scan.Model)
	assert.Equal(t, outcomeLog{"api:success"}, outcomes)
}

func TestScanUsesDefaultModel(t *testing.T) {
	client := &fakeClassifier{response: &PredictionResponse{
		Single: &Prediction{Prediction: LabelHam, Confidence: 0.7, Model: "LogisticRegression"},
	}}
	recorder := &fakeRecorder{}

	svc := NewScanService(client, recorder, fixedPreference(ModelLogisticRegression), nil, nil, zaptest.NewLogger(t))
	scan, err := svc.Scan(context.Background(), ScanRequest{Text: "See you at the meeting on Monday"}, SourceCLI)
	require.NoError(t, err)

	assert.Equal(t, ModelLogisticRegression, client.model)
	assert.Equal(t, ModelLogisticRegression, scan.Model)
	require.Len(t, recorder.records, 1)
	assert.Equal(t, LabelHam, recorder.records[0].Prediction)
}

func TestScanValidationNeverCallsClient(t *testing.T) {
	client := &fakeClassifier{}
	recorder := &fakeRecorder{}
	handoff := &fakeHandoff{}
	var outcomes outcomeLog

	svc := NewScanService(client, recorder, fixedPreference(ModelBoth), handoff, outcomes.observe, zaptest.NewLogger(t))

	_, err := svc.Scan(context.Background(), ScanRequest{Text: "short", Model: ModelBoth}, SourceAPI)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "text", validationErr.Field)

	_, err = svc.Scan(context.Background(), ScanRequest{Text: "long enough to pass", Model: "svm"}, SourceAPI)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "model", validationErr.Field)

	assert.Zero(t, client.calls)
	assert.Empty(t, recorder.records)
	assert.Nil(t, handoff.saved)
	assert.Equal(t, outcomeLog{"api:invalid", "api:invalid"}, outcomes)
}

func TestScanClassifierError(t *testing.T) {
	apiErr := &APIError{Kind: KindServerError, Message: "Network error", StatusCode: 502}
	client := &fakeClassifier{err: apiErr}
	recorder := &fakeRecorder{}
	handoff := &fakeHandoff{}
	var outcomes outcomeLog

	svc := NewScanService(client, recorder, fixedPreference(ModelBoth), handoff, outcomes.observe, zaptest.NewLogger(t))
	_, err := svc.Scan(context.Background(), ScanRequest{Text: "Quarterly report attached", Model: ModelNaiveBayes}, SourceSMTP)

	assert.ErrorIs(t, err, apiErr)
	assert.Empty(t, recorder.records)
	assert.Nil(t, handoff.saved)
	assert.Equal(t, outcomeLog{"smtp:error"}, outcomes)
}

func TestScanSurvivesStorageFailures(t *testing.T) {
	client := &fakeClassifier{response: &PredictionResponse{
		Single: &Prediction{Prediction: LabelSpam, Confidence: 0.99, Model: "NaiveBayes"},
	}}
	recorder := &fakeRecorder{err: errors.New("disk full")}
	handoff := &fakeHandoff{err: errors.New("session store unavailable")}

	svc := NewScanService(client, recorder, fixedPreference(ModelBoth), handoff, nil, zaptest.NewLogger(t))
	scan, err := svc.Scan(context.Background(), ScanRequest{Text: "Cheap watches, limited offer", Model: ModelNaiveBayes}, SourceAPI)
	require.NoError(t, err)

	primary, err := scan.Result.Primary()
	require.NoError(t, err)
	assert.Equal(t, LabelSpam, primary.Prediction)
}
