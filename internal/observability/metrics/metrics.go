// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_ledger"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunsActive  prometheus.Gauge
	RunDuration prometheus.Histogram

	// Stage metrics
	StageLatency  *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec

	// Audio metrics
	AudioBytesStaged   prometheus.Counter
	AudioLimitExceeded prometheus.Counter

	// STT metrics
	STTErrors *prometheus.CounterVec

	// Parse metrics
	ParseFailures *prometheus.CounterVec

	// Storage metrics
	AppendsTotal *prometheus.CounterVec
	TabFallbacks *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates and registers all Prometheus metrics with reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Run metrics
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by outcome",
		}, []string{"outcome"}),
		RunsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of pipeline runs currently in flight",
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),

		// Stage metrics
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_seconds",
			Help:      "Latency of each pipeline stage in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Total number of runs that failed at a given stage",
		}, []string{"stage"}),

		// Audio metrics
		AudioBytesStaged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_staged_total",
			Help:      "Total audio bytes written to staging",
		}),
		AudioLimitExceeded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_limit_exceeded_total",
			Help:      "Total number of clips rejected for exceeding the size limit",
		}),

		// STT metrics
		STTErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),

		// Parse metrics
		ParseFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Total number of classifier responses rejected by the parser",
		}, []string{"reason"}),

		// Storage metrics
		AppendsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appends_total",
			Help:      "Total number of row appends by requested tab and result",
		}, []string{"tab", "result"}),
		TabFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tab_fallbacks_total",
			Help:      "Total number of appends redirected to the first tab",
		}, []string{"tab"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),

		// Kafka publish metrics
		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordRunStart records a new pipeline run starting.
func (m *Metrics) RecordRunStart() {
	m.RunsActive.Inc()
}

// RecordRunEnd records a pipeline run ending with the given outcome.
func (m *Metrics) RecordRunEnd(outcome string, durationSeconds float64) {
	m.RunsActive.Dec()
	m.RunDuration.Observe(durationSeconds)
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

// RecordStage records the latency of a completed stage.
func (m *Metrics) RecordStage(stage string, latencySeconds float64) {
	m.StageLatency.WithLabelValues(stage).Observe(latencySeconds)
}

// RecordStageFailure records a run failing at stage.
func (m *Metrics) RecordStageFailure(stage string) {
	m.StageFailures.WithLabelValues(stage).Inc()
}

// RecordAudioStaged records audio bytes written to staging.
func (m *Metrics) RecordAudioStaged(bytes int64) {
	m.AudioBytesStaged.Add(float64(bytes))
}

// RecordLimitExceeded records a clip rejected for size.
func (m *Metrics) RecordLimitExceeded() {
	m.AudioLimitExceeded.Inc()
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordParseFailure records a rejected classifier response.
func (m *Metrics) RecordParseFailure(reason string) {
	m.ParseFailures.WithLabelValues(reason).Inc()
}

// RecordAppend records an append attempt against the requested tab.
func (m *Metrics) RecordAppend(tab string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.AppendsTotal.WithLabelValues(tab, result).Inc()
}

// RecordTabFallback records an append redirected to the first tab.
func (m *Metrics) RecordTabFallback(tab string) {
	m.TabFallbacks.WithLabelValues(tab).Inc()
}

// SetBreakerState records the current breaker state.
func (m *Metrics) SetBreakerState(name string, state int) {
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
