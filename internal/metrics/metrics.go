package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mikey/spam-dashboard/internal/core"
)

const namespace = "spam_dashboard"

const (
	// OutcomeSuccess labels successful operations.
	OutcomeSuccess = core.OutcomeSuccess
	// OutcomeError labels failed operations.
	OutcomeError = core.OutcomeError
	// OutcomeDiscarded labels poll results dropped because the poller stopped.
	OutcomeDiscarded = "discarded"
	// OutcomeInvalid labels scans rejected by local validation.
	OutcomeInvalid = core.OutcomeInvalid
)

var (
	pollAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_attempts_total",
			Help:      "Metrics poll attempts, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	pollDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Latency of metrics fetches in seconds.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	pollLastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful metrics fetch.",
		},
	)

	upstreamModelScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_model_score",
			Help:      "Model evaluation scores reported by the classification service.",
		},
		[]string{"model", "score"},
	)

	upstreamScans = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_scans",
			Help:      "Scan totals reported by the classification service.",
		},
		[]string{"kind"},
	)

	upstreamAvgConfidence = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_avg_confidence",
			Help:      "Average prediction confidence reported by the classification service.",
		},
	)

	scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scans submitted through the dashboard, partitioned by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	historyEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_entries",
			Help:      "Entries in the scan history after the last write.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Dashboard API requests.",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Dashboard API request duration in seconds.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"route", "method"},
	)
)

// Register attaches the dashboard collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pollAttemptsTotal,
		pollDurationSeconds,
		pollLastSuccess,
		upstreamModelScore,
		upstreamScans,
		upstreamAvgConfidence,
		scansTotal,
		historyEntries,
		httpRequestsTotal,
		httpRequestDuration,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObservePoll records a metrics fetch duration and outcome.
func ObservePoll(duration time.Duration, outcome string) {
	pollAttemptsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	pollDurationSeconds.Observe(duration.Seconds())
}

// RecordSnapshot mirrors a freshly fetched snapshot into gauges.
func RecordSnapshot(snapshot *core.MetricsSnapshot, fetchedAt time.Time) {
	if snapshot == nil {
		return
	}
	pollLastSuccess.Set(float64(fetchedAt.Unix()))

	for model, m := range snapshot.Models() {
		upstreamModelScore.WithLabelValues(model, "accuracy").Set(m.Accuracy)
		upstreamModelScore.WithLabelValues(model, "precision").Set(m.Precision)
		upstreamModelScore.WithLabelValues(model, "recall").Set(m.Recall)
		upstreamModelScore.WithLabelValues(model, "f1").Set(m.F1)
	}

	upstreamScans.WithLabelValues("total").Set(float64(snapshot.Totals.Scans))
	upstreamScans.WithLabelValues("spam").Set(float64(snapshot.Totals.Spam))
	upstreamScans.WithLabelValues("ham").Set(float64(snapshot.Totals.Ham))
	upstreamAvgConfidence.Set(snapshot.Totals.AvgConfidence)
}

// ObserveScan counts a scan by source (api, cli, smtp) and outcome.
func ObserveScan(source, outcome string) {
	scansTotal.WithLabelValues(source, outcome).Inc()
}

// SetHistorySize records the number of stored history entries.
func SetHistorySize(n int) {
	historyEntries.Set(float64(n))
}

// ObserveRequest records a dashboard API request.
func ObserveRequest(route, method, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(route, method, status).Inc()
	httpRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}
