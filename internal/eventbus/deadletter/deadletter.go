package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"

	"github.com/correlator-io/catalog/internal/domain"
	"github.com/correlator-io/catalog/internal/telemetry"
)

// DeadLetterEvent records one failed delivery, carried through in-process
// retry and, if retries are exhausted, onto the DLQ topic (spec §4.8, §4.9).
type DeadLetterEvent struct {
	Topic           string    `json:"topic"`
	Partition       int       `json:"partition"`
	Offset          int64     `json:"offset"`
	Payload         []byte    `json:"payload"`
	ErrorMessage    string    `json:"errorMessage"`
	ExceptionDetail string    `json:"exceptionDetail"`
	ConsumerGroup   string    `json:"consumerGroup"`
	AttemptCount    int       `json:"attemptCount"`
	FirstFailureAt  time.Time `json:"firstFailureAt"`
	LastFailureAt   time.Time `json:"lastFailureAt,omitempty"`
}

// RetryHook re-attempts processing of event via the original handler path.
// Decided to re-invoke in-process rather than re-publish to the source
// topic — see DESIGN.md's Open Question decision.
type RetryHook func(ctx context.Context, event DeadLetterEvent) error

// Handler implements the dead-letter algorithm (spec §4.9).
type Handler struct {
	cfg     *Config
	writer  *kafka.Writer
	metrics *telemetry.Metrics
	logger  *slog.Logger

	depthMu sync.Mutex
	depth   map[string]int

	// publishFunc defaults to h.publishToDLQ; tests override it to avoid
	// needing a dialable broker.
	publishFunc func(ctx context.Context, event DeadLetterEvent) error
}

// New builds a Handler with its own acks=all producer for the final DLQ
// publish — separate from the Event Producer so a DLQ write never competes
// with application traffic for in-flight slots. The kafka.Writer has no
// broker-side idempotent-producer mode, so a retried DLQ write can be
// duplicated. metrics may be
// nil, in which case DLQ publication goes unrecorded.
func New(cfg *Config, metrics *telemetry.Metrics, logger *slog.Logger) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.BootstrapServers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}

	h := &Handler{cfg: cfg, writer: writer, metrics: metrics, logger: logger, depth: map[string]int{}}
	h.publishFunc = h.publishToDLQ

	return h, nil
}

// fixedMultiplierBackoff computes spec §4.9's exact delay formula:
// min(initial * multiplier^attempt, maxDelay). cenkalti/backoff's own
// ExponentialBackOff grows by repeated multiplication of a running
// interval (with jitter), which does not reproduce this formula, so this
// type implements backoff.BackOff directly instead of configuring that one.
type fixedMultiplierBackoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	attempt    int
}

var _ backoff.BackOff = (*fixedMultiplierBackoff)(nil)

func (b *fixedMultiplierBackoff) NextBackOff() time.Duration {
	delay := float64(b.initial) * math.Pow(b.multiplier, float64(b.attempt))
	b.attempt++

	if d := time.Duration(delay); d < b.max {
		return d
	}

	return b.max
}

func (b *fixedMultiplierBackoff) Reset() {
	b.attempt = 0
}

// HandleFailed runs the dead-letter algorithm for event: while
// attemptCount < maxRetries it waits the computed delay and re-invokes
// retry; once exhausted it publishes event to "<topic><topicSuffix>" with
// the headers spec §4.9 names. If the DLQ is disabled it logs a warning and
// drops event without retrying or publishing. Failures
// publishing to the DLQ are returned to the caller but never trigger
// another in-process retry round.
func (h *Handler) HandleFailed(ctx context.Context, event DeadLetterEvent, retry RetryHook) error {
	if !h.cfg.EnableDlq {
		h.logger.Warn("dead-letter queue disabled, dropping failed event",
			"topic", event.Topic, "partition", event.Partition, "offset", event.Offset)

		return nil
	}

	h.adjustDepth(event.Topic, 1)
	defer h.adjustDepth(event.Topic, -1)

	bo := &fixedMultiplierBackoff{
		initial:    time.Duration(h.cfg.InitialRetryDelayMs) * time.Millisecond,
		max:        time.Duration(h.cfg.MaxRetryDelayMs) * time.Millisecond,
		multiplier: h.cfg.RetryBackoffMultiplier,
		attempt:    event.AttemptCount,
	}

	for event.AttemptCount < h.cfg.MaxRetries {
		delay := bo.NextBackOff()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		event.AttemptCount++
		event.LastFailureAt = time.Now().UTC()

		err := retry(ctx, event)
		if err == nil {
			return nil
		}

		h.logger.Warn("dlq retry attempt failed",
			"topic", event.Topic, "attempt", event.AttemptCount, "error", err)

		event.ErrorMessage = err.Error()
	}

	if err := h.publishFunc(ctx, event); err != nil {
		h.logger.Error("dlq publish failed", "topic", event.Topic, "error", err)

		return domain.Publishf("dlq publish for %s: %w", event.Topic, err)
	}

	if h.metrics != nil {
		h.metrics.RecordDLQEvent(event.Topic)
	}

	return nil
}

// adjustDepth tracks how many events are currently mid-retry or
// pending DLQ publication for topic and reflects it on the DLQDepth
// gauge. A no-op when no Metrics was wired in.
func (h *Handler) adjustDepth(topic string, delta int) {
	h.depthMu.Lock()
	if h.depth == nil {
		h.depth = map[string]int{}
	}
	h.depth[topic] += delta
	depth := h.depth[topic]
	h.depthMu.Unlock()

	if h.metrics == nil {
		return
	}

	h.metrics.SetDLQDepth(topic, depth)
}

func (h *Handler) publishToDLQ(ctx context.Context, event DeadLetterEvent) error {
	topic := event.Topic + h.cfg.TopicSuffix

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("deadletter: marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Value: payload,
		Headers: []kafka.Header{
			{Key: "original-topic", Value: []byte(event.Topic)},
			{Key: "error-message", Value: []byte(event.ErrorMessage)},
			{Key: "attempt-count", Value: []byte(strconv.Itoa(event.AttemptCount))},
			{Key: "consumer-group", Value: []byte(event.ConsumerGroup)},
		},
	}

	return h.writer.WriteMessages(ctx, msg)
}

// Close closes the DLQ producer.
func (h *Handler) Close() error {
	return h.writer.Close()
}
