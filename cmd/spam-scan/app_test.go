package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/spam-dashboard/internal/adapters/store"
	"github.com/mikey/spam-dashboard/internal/core"
	"github.com/mikey/spam-dashboard/internal/di"
	"github.com/mikey/spam-dashboard/internal/history"
	"github.com/mikey/spam-dashboard/internal/preferences"
	"github.com/mikey/spam-dashboard/internal/utils"
)

type stubClassifier struct {
	lastText  string
	lastModel core.ModelType
}

func (s *stubClassifier) Predict(_ context.Context, text string, model core.ModelType) (*core.PredictionResponse, error) {
	s.lastText = text
	s.lastModel = model
	if model == core.ModelBoth {
		return &core.PredictionResponse{
			Results: []core.Prediction{
				{Prediction: core.LabelSpam, Confidence: 0.91, Model: "naive_bayes"},
				{Prediction: core.LabelSpam, Confidence: 0.84, Model: "logistic_regression"},
			},
			Agreement: true,
		}, nil
	}
	return &core.PredictionResponse{
		Single: &core.Prediction{Prediction: core.LabelHam, Confidence: 0.75, Model: "naive_bayes"},
	}, nil
}

func (s *stubClassifier) GetMetrics(context.Context) (*core.MetricsSnapshot, error) {
	return &core.MetricsSnapshot{
		NaiveBayes: core.ModelMetrics{Accuracy: 0.97, Precision: 0.96, Recall: 0.95, F1: 0.955},
		Totals:     core.Totals{Scans: 10, Spam: 4, Ham: 6, AvgConfidence: 0.88},
	}, nil
}

func (s *stubClassifier) GetFeatureImportance(context.Context) (*core.FeatureImportance, error) {
	return &core.FeatureImportance{
		Model:       "logistic_regression",
		TopFeatures: []core.FeatureWeight{{Term: "free", Weight: 2.5}, {Term: "winner", Weight: 1.75}},
	}, nil
}

func newTestApp(t *testing.T, command string, args ...string) (*app, *bytes.Buffer, *stubClassifier) {
	t.Helper()

	logger := zaptest.NewLogger(t)
	kv := store.NewMemoryStore(logger, 0, 0)
	tp := utils.NewTextProcessor(logger)
	scans := history.NewStore(kv, logger, tp)
	prefs := preferences.NewStore(kv, logger)
	client := &stubClassifier{}

	out := &bytes.Buffer{}
	return &app{
		flags:   &di.CLIFlags{Command: command, Args: args},
		in:      strings.NewReader(""),
		out:     out,
		client:  client,
		scanner: core.NewScanService(client, scans, prefs, nil, nil, logger),
		scans:   scans,
		prefs:   prefs,
		text:    tp,
		logger:  logger,
	}, out, client
}

func TestScanPlainText(t *testing.T) {
	a, out, client := newTestApp(t, "scan")
	a.in = strings.NewReader("  Congratulations, you have won a free cruise!  \n")

	require.NoError(t, a.run(context.Background()))

	assert.Equal(t, "Congratulations, you have won a free cruise!", client.lastText)
	assert.Equal(t, core.ModelBoth, client.lastModel)
	assert.Contains(t, out.String(), "naive_bayes")
	assert.Contains(t, out.String(), "Models agree: true")
	assert.Len(t, a.scans.List(context.Background()), 2)
}

func TestScanMessageWithModelFlag(t *testing.T) {
	a, out, client := newTestApp(t, "scan")
	a.flags.Model = "nb"
	a.in = strings.NewReader("From: friend@example.com\r\nSubject: Lunch\r\n\r\nAre we still meeting at noon?\r\n")

	require.NoError(t, a.run(context.Background()))

	assert.Equal(t, "Lunch\n\nAre we still meeting at noon?", client.lastText)
	assert.Equal(t, core.ModelNaiveBayes, client.lastModel)
	assert.NotContains(t, out.String(), "Models agree")
}

func TestScanDropsInvalidBytes(t *testing.T) {
	a, _, client := newTestApp(t, "scan")
	a.in = strings.NewReader("  Claim your \xffprize today, winner!")

	require.NoError(t, a.run(context.Background()))
	assert.Equal(t, "Claim your prize today, winner!", client.lastText)
}

func TestScanRejectsShortText(t *testing.T) {
	a, _, _ := newTestApp(t, "scan")
	a.in = strings.NewReader("hi")

	err := a.run(context.Background())
	var validationErr *core.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Empty(t, a.scans.List(context.Background()))
}

func TestMetricsAndFeatures(t *testing.T) {
	a, out, _ := newTestApp(t, "metrics")
	require.NoError(t, a.run(context.Background()))
	assert.Contains(t, out.String(), "Spam rate: 40.0%")
	assert.Contains(t, out.String(), "logistic_regression")

	a, out, _ = newTestApp(t, "features")
	a.flags.JSONOutput = true
	require.NoError(t, a.run(context.Background()))
	assert.Contains(t, out.String(), `"term": "free"`)
}

func TestHistoryCommands(t *testing.T) {
	a, out, _ := newTestApp(t, "history")
	require.NoError(t, a.run(context.Background()))
	assert.Equal(t, "No scans recorded\n", out.String())

	require.NoError(t, a.scans.Add(context.Background(), core.ScanRecord{
		Text: `Say "hello" to savings`, Prediction: core.LabelSpam, Confidence: 0.9, Model: "naive_bayes",
	}))

	out.Reset()
	a.flags.Args = []string{"export"}
	require.NoError(t, a.run(context.Background()))
	assert.Contains(t, out.String(), `"Say ""hello"" to savings"`)

	out.Reset()
	a.flags.Args = []string{"clear"}
	require.NoError(t, a.run(context.Background()))
	assert.Empty(t, a.scans.List(context.Background()))

	a.flags.Args = []string{"rewind"}
	var usage *usageError
	assert.ErrorAs(t, a.run(context.Background()), &usage)
}

func TestPreferenceCommands(t *testing.T) {
	a, out, _ := newTestApp(t, "prefs", "set", "default_model=lr", "theme=dark")
	require.NoError(t, a.run(context.Background()))
	assert.Equal(t, "default_model=lr\ntheme=dark\n", out.String())

	a.flags.Args = []string{"set", "theme=neon"}
	var validationErr *core.ValidationError
	require.ErrorAs(t, a.run(context.Background()), &validationErr)
	assert.Equal(t, core.ThemeDark, a.prefs.Theme(context.Background()))

	a.flags.Args = []string{"set", "colour=red"}
	var usage *usageError
	assert.ErrorAs(t, a.run(context.Background()), &usage)
}

func TestUnknownCommand(t *testing.T) {
	a, _, _ := newTestApp(t, "train")
	var usage *usageError
	assert.ErrorAs(t, a.run(context.Background()), &usage)
}
