// Package telemetry holds the catalog's Prometheus collectors: coordinator
// operation counters/latency, producer publish latency, consumer lag and
// DLQ depth (SPEC_FULL.md §2a, spec.md §8 "metrics.*" configuration
// group). No HTTP exposition endpoint is owned here — per spec.md's
// non-goals a caller mounts promhttp.Handler() against whichever registry
// New registers against. Grounded on
// r3e-network-service_layer/infrastructure/metrics.Metrics: a struct of
// *prometheus.CounterVec/*HistogramVec/Gauge fields built in New,
// registered once against a Registerer, exposed via small Record* methods.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the catalog records against.
type Metrics struct {
	CoordinatorOpsTotal    *prometheus.CounterVec
	CoordinatorOpDuration  *prometheus.HistogramVec
	ProducerPublishTotal   *prometheus.CounterVec
	ProducerPublishLatency *prometheus.HistogramVec
	ConsumerLag            *prometheus.GaugeVec
	ConsumerMessagesTotal  *prometheus.CounterVec
	DLQDepth               *prometheus.GaugeVec
	DLQEventsTotal         *prometheus.CounterVec
}

// New builds Metrics and registers every collector against registerer. Pass
// prometheus.NewRegistry() for a private registry, or nil to skip
// registration entirely (useful in tests that construct Metrics repeatedly
// within one process, where registering twice against the default
// registerer would panic).
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		CoordinatorOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_coordinator_operations_total",
				Help: "Total number of Catalog Coordinator write operations.",
			},
			[]string{"operation", "status"},
		),
		CoordinatorOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_coordinator_operation_duration_seconds",
				Help:    "Catalog Coordinator write operation duration in seconds.",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),
		ProducerPublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_producer_publish_total",
				Help: "Total number of events published to the event bus.",
			},
			[]string{"topic", "eventType", "status"},
		),
		ProducerPublishLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_producer_publish_duration_seconds",
				Help:    "Event publish latency in seconds.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"topic"},
		),
		ConsumerLag: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "catalog_consumer_lag",
				Help: "Estimated consumer lag (messages behind the partition high watermark).",
			},
			[]string{"topic", "partition", "consumerGroup"},
		),
		ConsumerMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_consumer_messages_total",
				Help: "Total number of messages the consumer has processed, by outcome.",
			},
			[]string{"eventType", "outcome"},
		),
		DLQDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "catalog_dlq_depth",
				Help: "Current number of events pending dead-letter publication, by origin topic.",
			},
			[]string{"topic"},
		),
		DLQEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_dlq_events_total",
				Help: "Total number of events that exhausted retries and were published to a DLQ topic.",
			},
			[]string{"topic"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.CoordinatorOpsTotal,
			m.CoordinatorOpDuration,
			m.ProducerPublishTotal,
			m.ProducerPublishLatency,
			m.ConsumerLag,
			m.ConsumerMessagesTotal,
			m.DLQDepth,
			m.DLQEventsTotal,
		)
	}

	return m
}

// RecordCoordinatorOp records one Catalog Coordinator write operation.
func (m *Metrics) RecordCoordinatorOp(operation, status string, duration time.Duration) {
	m.CoordinatorOpsTotal.WithLabelValues(operation, status).Inc()
	m.CoordinatorOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPublish records one Event Producer publish attempt.
func (m *Metrics) RecordPublish(topic, eventType, status string, duration time.Duration) {
	m.ProducerPublishTotal.WithLabelValues(topic, eventType, status).Inc()
	m.ProducerPublishLatency.WithLabelValues(topic).Observe(duration.Seconds())
}

// SetConsumerLag records the current lag for one topic partition.
func (m *Metrics) SetConsumerLag(topic, partition, consumerGroup string, lag int64) {
	m.ConsumerLag.WithLabelValues(topic, partition, consumerGroup).Set(float64(lag))
}

// RecordConsumedMessage records one consumer dispatch outcome: "committed",
// "skipped" (no handler registered), or "dead-lettered".
func (m *Metrics) RecordConsumedMessage(eventType, outcome string) {
	m.ConsumerMessagesTotal.WithLabelValues(eventType, outcome).Inc()
}

// SetDLQDepth records the current number of events pending publication to
// topic's dead-letter sink.
func (m *Metrics) SetDLQDepth(topic string, depth int) {
	m.DLQDepth.WithLabelValues(topic).Set(float64(depth))
}

// RecordDLQEvent records one event that exhausted retries and was
// published to a DLQ topic.
func (m *Metrics) RecordDLQEvent(topic string) {
	m.DLQEventsTotal.WithLabelValues(topic).Inc()
}
