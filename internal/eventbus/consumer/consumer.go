package consumer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/correlator-io/catalog/internal/domain"
	"github.com/correlator-io/catalog/internal/eventbus/deadletter"
	"github.com/correlator-io/catalog/internal/eventbus/envelope"
	"github.com/correlator-io/catalog/internal/telemetry"
)

var startOffsetByReset = map[AutoOffsetReset]int64{
	AutoOffsetResetEarliest: kafka.FirstOffset,
	AutoOffsetResetLatest:   kafka.LastOffset,
	AutoOffsetResetError:    kafka.LastOffset,
}

// DeadLetterHandler is the dead-letter collaborator a Consumer hands
// failed messages to (spec §4.8 step 7). *deadletter.Handler implements it.
type DeadLetterHandler interface {
	HandleFailed(ctx context.Context, event deadletter.DeadLetterEvent, retry deadletter.RetryHook) error
}

// messageSource is the slice of *kafka.Reader a Consumer actually uses. It
// exists so unit tests can dispatch messages through processMessage without
// a dialable broker.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Lag() int64
}

// Consumer runs a manual-commit poll loop over a kafka.Reader, dispatching
// each message to its registered handler (spec §4.8).
type Consumer struct {
	cfg      *Config
	reader   messageSource
	registry *Registry
	dlq      DeadLetterHandler
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// New builds a Consumer. It does not subscribe until Start is called.
// metrics may be nil, in which case consumption outcomes go unrecorded.
func New(cfg *Config, registry *Registry, dlq DeadLetterHandler, metrics *telemetry.Metrics, logger *slog.Logger) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{cfg: cfg, registry: registry, dlq: dlq, metrics: metrics, logger: logger}, nil
}

// Start subscribes to topics and launches the background poll loop (spec
// §4.8). Calling Start twice without an intervening Stop is a no-op.
func (c *Consumer) Start(topics []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	dialer, err := buildDialer(c.cfg)
	if err != nil {
		return err
	}

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:           c.cfg.BootstrapServers,
		GroupID:           c.cfg.GroupID,
		GroupTopics:       topics,
		Dialer:            dialer,
		MinBytes:          c.cfg.FetchMinBytes,
		MaxBytes:          c.cfg.MaxPartitionFetchBytes,
		MaxWait:           time.Duration(c.cfg.FetchMaxWaitMs) * time.Millisecond,
		SessionTimeout:    time.Duration(c.cfg.SessionTimeoutMs) * time.Millisecond,
		HeartbeatInterval: time.Duration(c.cfg.HeartbeatIntervalMs) * time.Millisecond,
		StartOffset:       startOffsetByReset[c.cfg.AutoOffsetReset],
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.pollLoop(ctx)

	return nil
}

// Stop signals cancellation, waits for the poll loop to drain, and closes
// the underlying reader (spec §4.8).
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancel
	done := c.done
	reader := c.reader
	c.running = false
	c.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return reader.Close()
}

func (c *Consumer) pollLoop(ctx context.Context) {
	defer close(c.done)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			c.logger.Error("fetch message failed", "error", err)

			continue
		}

		c.recordLag(msg)
		c.processMessage(ctx, msg)
	}
}

// recordLag is a no-op when no Metrics was wired in.
func (c *Consumer) recordLag(msg kafka.Message) {
	if c.metrics == nil {
		return
	}

	c.metrics.SetConsumerLag(msg.Topic, strconv.Itoa(msg.Partition), c.cfg.GroupID, c.reader.Lag())
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) {
	env, err := envelope.Deserialise(msg.Value)
	if err != nil {
		c.handleFailure(ctx, msg, "", nil, nil, envelope.Metadata{}, fmt.Errorf("deserialise envelope: %w", err))

		return
	}

	meta := reconstituteMetadata(env.Metadata, msg.Headers)

	handler, ok := c.registry.lookup(env.Event.Type)
	if !ok {
		c.logger.Warn("no handler registered, skipping", "eventType", env.Event.Type, "topic", msg.Topic)
		c.recordOutcome(env.Event.Type, "skipped")

		if err := c.commit(ctx, msg); err != nil {
			c.logger.Error("commit after unregistered event type failed", "error", err)
		}

		return
	}

	if err := handler(ctx, env.Event.Data, meta); err != nil {
		c.handleFailure(ctx, msg, env.Event.Type, handler, env.Event.Data, meta, err)

		return
	}

	c.recordOutcome(env.Event.Type, "committed")

	if err := c.commit(ctx, msg); err != nil {
		c.logger.Error("commit after successful handling failed", "error", err)
	}
}

// recordOutcome is a no-op when no Metrics was wired in.
func (c *Consumer) recordOutcome(eventType, outcome string) {
	if c.metrics == nil {
		return
	}

	c.metrics.RecordConsumedMessage(eventType, outcome)
}

// handleFailure builds the DeadLetterEvent spec §4.8 step 7 names and hands
// it to the dead-letter subsystem. The retry hook re-invokes handler
// in-process and, on success, commits the original message's offset —
// the consumer itself never commits on this path (spec §4.8: "do NOT
// commit").
func (c *Consumer) handleFailure(
	ctx context.Context,
	msg kafka.Message,
	eventType string,
	handler rawHandler,
	data json.RawMessage,
	meta envelope.Metadata,
	cause error,
) {
	now := time.Now().UTC()

	event := deadletter.DeadLetterEvent{
		Topic:           msg.Topic,
		Partition:       msg.Partition,
		Offset:          msg.Offset,
		Payload:         msg.Value,
		ErrorMessage:    cause.Error(),
		ExceptionDetail: fmt.Sprintf("%+v", cause),
		ConsumerGroup:   c.cfg.GroupID,
		AttemptCount:    1,
		FirstFailureAt:  now,
		LastFailureAt:   now,
	}

	recovered := false

	retry := func(ctx context.Context, _ deadletter.DeadLetterEvent) error {
		if handler == nil {
			return cause
		}

		if err := handler(ctx, data, meta); err != nil {
			return err
		}

		if err := c.commit(ctx, msg); err != nil {
			return err
		}

		recovered = true

		return nil
	}

	err := c.dlq.HandleFailed(ctx, event, retry)

	switch {
	case recovered:
		c.recordOutcome(eventType, "committed")
	case err != nil:
		c.logger.Error("dead-letter handling failed, offset not committed",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
		c.recordOutcome(eventType, "dead-lettered")
	default:
		c.recordOutcome(eventType, "dead-lettered")
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) error {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		return domain.Consumef("commit offset for %s[%d]@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
	}

	return nil
}

// reconstituteMetadata overlays header values onto base's Metadata — headers
// win for correlationId, causationId, tenantId, userId, priority; any other
// header is appended to Metadata.Headers (spec §4.8 step 2).
func reconstituteMetadata(base envelope.Metadata, headers []kafka.Header) envelope.Metadata {
	meta := base
	if meta.Headers == nil {
		meta.Headers = map[string]string{}
	}

	for _, h := range headers {
		value := string(h.Value)

		switch h.Key {
		case "correlation-id":
			if id, err := uuid.Parse(value); err == nil {
				meta.CorrelationID = id
			}
		case "causation-id":
			if id, err := uuid.Parse(value); err == nil {
				meta.CausationID = id
			}
		case "tenant-id":
			meta.TenantID = value
		case "user-id":
			meta.UserID = value
		case "priority":
			if p, err := strconv.Atoi(value); err == nil {
				meta.Priority = p
			}
		case "schema-version":
			// Carried on Envelope.SchemaVersion directly; nothing to overlay.
		default:
			meta.Headers[h.Key] = value
		}
	}

	return meta
}

func buildDialer(cfg *Config) (*kafka.Dialer, error) {
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}

	switch cfg.SecurityProtocol {
	case "", "PLAINTEXT":
		return dialer, nil
	case "SSL":
		tlsConfig, err := buildTLSConfig(cfg.CAPath)
		if err != nil {
			return nil, err
		}

		dialer.TLS = tlsConfig

		return dialer, nil
	case "SASL_SSL", "SASL_PLAINTEXT":
		mechanism, err := buildSASLMechanism(cfg)
		if err != nil {
			return nil, err
		}

		dialer.SASLMechanism = mechanism

		if cfg.SecurityProtocol == "SASL_SSL" {
			tlsConfig, err := buildTLSConfig(cfg.CAPath)
			if err != nil {
				return nil, err
			}

			dialer.TLS = tlsConfig
		}

		return dialer, nil
	default:
		return nil, fmt.Errorf("consumer: unrecognised security protocol %q", cfg.SecurityProtocol)
	}
}

func buildTLSConfig(caPath string) (*tls.Config, error) {
	if caPath == "" {
		return &tls.Config{MinVersion: tls.VersionTLS12}, nil
	}

	caCert, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("consumer: reading CA cert: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("consumer: no certificates parsed from %s", caPath)
	}

	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func buildSASLMechanism(cfg *Config) (sasl.Mechanism, error) {
	switch cfg.SASLMechanism {
	case "PLAIN":
		return plain.Mechanism{Username: cfg.SASLUsername, Password: cfg.SASLPassword}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.SASLUsername, cfg.SASLPassword)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.SASLUsername, cfg.SASLPassword)
	default:
		return nil, fmt.Errorf("consumer: unrecognised SASL mechanism %q", cfg.SASLMechanism)
	}
}
