package history

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/spam-dashboard/internal/core"
)

type fakeKV struct {
	mu       sync.Mutex
	data     map[string][]byte
	readErr  error
	writeErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Read(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, false, f.readErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Write(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func newTestStore(t *testing.T, kv core.KVStore) *Store {
	s := NewStore(kv, zaptest.NewLogger(t), nil)
	seq := 0
	s.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	s.now = func() time.Time {
		return time.Date(2026, 3, 14, 15, 9, 26, 535_000_000, time.UTC)
	}
	return s
}

func TestAddDerivesFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newFakeKV())

	require.NoError(t, s.Add(ctx, core.ScanRecord{
		Text:       strings.Repeat("A", 100),
		Prediction: core.LabelSpam,
		Confidence: 0.97,
		Model:      "NaiveBayes",
	}))

	entries := s.List(ctx)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "id-1", entry.ID)
	assert.Equal(t, "2026-03-14T15:09:26.535Z", entry.Timestamp)
	assert.Equal(t, strings.Repeat("A", 80)+"...", entry.Preview)
	assert.Equal(t, core.LabelSpam, entry.Prediction)
	assert.Equal(t, 0.97, entry.Confidence)
	assert.Equal(t, "NaiveBayes", entry.Model)
	assert.Equal(t, strings.Repeat("A", 100), entry.Text)
}

func TestPreviewKeepsShortText(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newFakeKV())

	for _, n := range []int{1, 79, 80} {
		text := strings.Repeat("b", n)
		require.NoError(t, s.Add(ctx, core.ScanRecord{Text: text, Prediction: core.LabelHam, Confidence: 0.5, Model: "LogisticRegression"}))
		assert.Equal(t, text, s.List(ctx)[0].Preview)
	}

	text := strings.Repeat("b", 81)
	require.NoError(t, s.Add(ctx, core.ScanRecord{Text: text, Prediction: core.LabelHam, Confidence: 0.5, Model: "LogisticRegression"}))
	assert.Equal(t, text[:80]+"...", s.List(ctx)[0].Preview)
}

func TestAddOrderingAndCapacity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newFakeKV())

	for i := 1; i <= Capacity+1; i++ {
		require.NoError(t, s.Add(ctx, core.ScanRecord{
			Text:       fmt.Sprintf("message %d", i),
			Prediction: core.LabelHam,
			Confidence: 0.5,
			Model:      "NaiveBayes",
		}))
	}

	entries := s.List(ctx)
	require.Len(t, entries, Capacity)
	assert.Equal(t, "message 51", entries[0].Text)
	assert.Equal(t, "message 2", entries[len(entries)-1].Text)

	for _, entry := range entries {
		assert.NotEqual(t, "message 1", entry.Text)
	}
}

func TestIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFakeKV(), zaptest.NewLogger(t), nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Add(ctx, core.ScanRecord{Text: "hello there", Prediction: core.LabelHam, Confidence: 0.9, Model: "NaiveBayes"}))
	}

	seen := make(map[string]bool)
	for _, entry := range s.List(ctx) {
		assert.NotEmpty(t, entry.ID)
		assert.False(t, seen[entry.ID], "duplicate id %s", entry.ID)
		seen[entry.ID] = true
	}
}

func TestListFailsSoft(t *testing.T) {
	ctx := context.Background()

	kv := newFakeKV()
	s := newTestStore(t, kv)
	assert.Empty(t, s.List(ctx), "missing key")

	kv.data[Key] = []byte("{not json")
	entries := s.List(ctx)
	assert.NotNil(t, entries)
	assert.Empty(t, entries, "corrupt record")

	kv.data[Key] = []byte("null")
	assert.Empty(t, s.List(ctx))

	kv.readErr = errors.New("disk on fire")
	assert.Empty(t, s.List(ctx), "read error")
}

func TestAddOverCorruptHistory(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.data[Key] = []byte("garbage")
	s := newTestStore(t, kv)

	require.NoError(t, s.Add(ctx, core.ScanRecord{Text: "fresh start", Prediction: core.LabelHam, Confidence: 0.8, Model: "NaiveBayes"}))
	assert.Len(t, s.List(ctx), 1)
}

func TestAddSurfacesWriteFailure(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.writeErr = errors.New("quota exceeded")
	s := newTestStore(t, kv)

	err := s.Add(ctx, core.ScanRecord{Text: "hello there", Prediction: core.LabelHam, Confidence: 0.8, Model: "NaiveBayes"})
	require.Error(t, err)
	assert.ErrorIs(t, err, kv.writeErr)
	assert.Empty(t, s.List(ctx))
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	s := newTestStore(t, kv)

	require.NoError(t, s.Clear(ctx))

	require.NoError(t, s.Add(ctx, core.ScanRecord{Text: "hello there", Prediction: core.LabelHam, Confidence: 0.8, Model: "NaiveBayes"}))
	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, s.List(ctx))
	_, ok := kv.data[Key]
	assert.False(t, ok)

	require.NoError(t, s.Clear(ctx))
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newFakeKV())

	require.NoError(t, s.Add(ctx, core.ScanRecord{Text: `Click "here" to claim`, Prediction: core.LabelSpam, Confidence: 0.987654, Model: "NaiveBayes"}))
	require.NoError(t, s.Add(ctx, core.ScanRecord{Text: "Lunch, tomorrow?", Prediction: core.LabelHam, Confidence: 1, Model: "LogisticRegression"}))
	require.NoError(t, s.Add(ctx, core.ScanRecord{Text: "Quarterly report attached", Prediction: core.LabelHam, Confidence: 0.5, Model: "NaiveBayes"}))

	csv := s.ExportCSV(ctx)
	lines := strings.Split(csv, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Timestamp,Prediction,Confidence,Model,Preview", lines[0])

	assert.Equal(t, `2026-03-14T15:09:26.535Z,ham,0.5000,NaiveBayes,"Quarterly report attached"`, lines[1])
	assert.Equal(t, `2026-03-14T15:09:26.535Z,ham,1.0000,LogisticRegression,"Lunch, tomorrow?"`, lines[2])
	assert.Equal(t, `2026-03-14T15:09:26.535Z,spam,0.9877,NaiveBayes,"Click ""here"" to claim"`, lines[3])

	confidence := regexp.MustCompile(`^\d\.\d{4}$`)
	for _, line := range lines[1:] {
		fields := strings.SplitN(line, ",", 5)
		require.Len(t, fields, 5)
		assert.Regexp(t, confidence, fields[2])
	}
}

func TestExportCSVEmpty(t *testing.T) {
	s := newTestStore(t, newFakeKV())
	assert.Equal(t, "Timestamp,Prediction,Confidence,Model,Preview", s.ExportCSV(context.Background()))
}
