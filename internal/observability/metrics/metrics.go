// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_ingest"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Connection metrics
	ConnectionsActive  prometheus.Gauge
	ConnectionsTotal   prometheus.Counter
	ConnectionDuration prometheus.Histogram

	// Session creation metrics
	SessionCreations    *prometheus.CounterVec
	CreationDedupeHits  prometheus.Counter
	CreationFallbacks   prometheus.Counter

	// Identity reconciliation metrics
	IdentityBinds    *prometheus.CounterVec
	WatchdogTimeouts prometheus.Counter

	// Turn ingestion metrics
	TurnsIngested      *prometheus.CounterVec
	TurnPersistRetries prometheus.Counter
	TurnPersistLatency prometheus.Histogram

	// Kafka publish metrics
	KafkaPublishTotal  *prometheus.CounterVec
	KafkaPublishErrors *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of currently live voice connections",
		}),
		ConnectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of voice connections started",
		}),
		ConnectionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connection_duration_seconds",
			Help:      "Duration of voice connections in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		}),

		SessionCreations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_creations_total",
			Help:      "Conversation session creation attempts by outcome",
		}, []string{"outcome"}),
		CreationDedupeHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_creation_dedupe_hits_total",
			Help:      "Triggers that attached to an already in-flight session creation",
		}),
		CreationFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_creation_fallbacks_total",
			Help:      "Session creations retried with a reduced payload",
		}),

		IdentityBinds: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_binds_total",
			Help:      "Provider identity bind attempts by outcome",
		}, []string{"outcome"}),
		WatchdogTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watchdog_timeouts_total",
			Help:      "Reconciliation watchdogs that expired with identifiers unbound",
		}),

		TurnsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_ingested_total",
			Help:      "Transcript turns handled by outcome (persisted, skipped, dropped)",
		}, []string{"outcome"}),
		TurnPersistRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_persist_retries_total",
			Help:      "Retried turn persistence attempts",
		}),
		TurnPersistLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_persist_latency_seconds",
			Help:      "Latency of successful turn persistence including retries",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total analytics events published to Kafka",
		}, []string{"topic"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Failed analytics publishes to Kafka",
		}, []string{"topic"}),
	}
}

func (m *Metrics) RecordConnectionStart() {
	m.ConnectionsTotal.Inc()
	m.ConnectionsActive.Inc()
}

func (m *Metrics) RecordConnectionEnd(durationSeconds float64) {
	m.ConnectionsActive.Dec()
	m.ConnectionDuration.Observe(durationSeconds)
}

func (m *Metrics) RecordSessionCreation(outcome string) {
	m.SessionCreations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordCreationDedupe() {
	m.CreationDedupeHits.Inc()
}

func (m *Metrics) RecordCreationFallback() {
	m.CreationFallbacks.Inc()
}

func (m *Metrics) RecordIdentityBind(outcome string) {
	m.IdentityBinds.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordWatchdogTimeout() {
	m.WatchdogTimeouts.Inc()
}

func (m *Metrics) RecordTurn(outcome string) {
	m.TurnsIngested.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordTurnRetry() {
	m.TurnPersistRetries.Inc()
}

func (m *Metrics) RecordTurnLatency(seconds float64) {
	m.TurnPersistLatency.Observe(seconds)
}

func (m *Metrics) RecordKafkaPublish(topic string, err error) {
	m.KafkaPublishTotal.WithLabelValues(topic).Inc()
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic).Inc()
	}
}
