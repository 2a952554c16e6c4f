package producer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/correlator-io/catalog/internal/domain"
	"github.com/correlator-io/catalog/internal/eventbus/envelope"
	"github.com/correlator-io/catalog/internal/eventbus/schemaregistry"
	"github.com/correlator-io/catalog/internal/telemetry"
)

// Headers lifted onto the wire from Metadata (spec §4.7).
const (
	headerCorrelationID = "correlation-id"
	headerCausationID   = "causation-id"
	headerTenantID      = "tenant-id"
	headerUserID        = "user-id"
	headerPriority      = "priority"
	headerSchemaVersion = "schema-version"
)

// Producer publishes envelope.Envelope-wrapped payloads to Kafka via a
// single *kafka.Writer (spec §4.7).
type Producer struct {
	writer   *kafka.Writer
	source   string
	checker  schemaregistry.Checker
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	inFlight sync.WaitGroup
}

// New builds a Producer from cfg. It does not dial Kafka eagerly —
// kafka.Writer connects lazily on first WriteMessages, matching kafka-go's
// own idiom. checker may be nil, in which case no schema-compatibility
// check runs before publish (schemaregistry.NoopChecker{} is equivalent).
// metrics may be nil, in which case publishes go unrecorded.
func New(cfg *Config, checker schemaregistry.Checker, metrics *telemetry.Metrics, logger *slog.Logger) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	if checker == nil {
		checker = schemaregistry.NoopChecker{}
	}

	transport, err := buildTransport(cfg)
	if err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.BootstrapServers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.Retries + 1,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: time.Duration(cfg.LingerMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.MessageTimeoutMs) * time.Millisecond,
		RequiredAcks: mapAcks(cfg.Acks),
		Async:        false,
		Compression:  mapCompression(cfg.CompressionType),
		Transport:    transport,
	}

	return &Producer{writer: writer, source: cfg.Source, checker: checker, metrics: metrics, logger: logger}, nil
}

func mapAcks(acks string) kafka.RequiredAcks {
	switch acks {
	case "0":
		return kafka.RequireNone
	case "1":
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}

func mapCompression(compressionType string) kafka.Compression {
	switch compressionType {
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	case "none":
		return 0
	default:
		return kafka.Snappy
	}
}

func buildTransport(cfg *Config) (*kafka.Transport, error) {
	transport := &kafka.Transport{ClientID: cfg.ClientID}

	switch cfg.SecurityProtocol {
	case "", "PLAINTEXT":
		return transport, nil
	case "SSL":
		tlsConfig, err := buildTLSConfig(cfg.CAPath)
		if err != nil {
			return nil, err
		}

		transport.TLS = tlsConfig

		return transport, nil
	case "SASL_SSL", "SASL_PLAINTEXT":
		mechanism, err := buildSASLMechanism(cfg)
		if err != nil {
			return nil, err
		}

		transport.SASL = mechanism

		if cfg.SecurityProtocol == "SASL_SSL" {
			tlsConfig, err := buildTLSConfig(cfg.CAPath)
			if err != nil {
				return nil, err
			}

			transport.TLS = tlsConfig
		}

		return transport, nil
	default:
		return nil, fmt.Errorf("producer: unrecognised security protocol %q", cfg.SecurityProtocol)
	}
}

func buildTLSConfig(caPath string) (*tls.Config, error) {
	if caPath == "" {
		return &tls.Config{MinVersion: tls.VersionTLS12}, nil
	}

	caCert, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("producer: reading CA cert: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("producer: no certificates parsed from %s", caPath)
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
		return nil, fmt.Errorf("producer: unrecognised SASL mechanism %q", cfg.SASLMechanism)
	}
}

// Publish wraps data in an envelope, publishes it to topic, and returns
// the envelope's event id (spec §4.7). partitionKey overrides the
// default (envelope.event.id) when non-empty.
func (p *Producer) Publish(
	ctx context.Context,
	topic, eventType string,
	data any,
	partitionKey string,
) (uuid.UUID, error) {
	p.inFlight.Add(1)
	defer p.inFlight.Done()

	start := time.Now()

	var opts []envelope.Option
	if partitionKey != "" {
		opts = append(opts, envelope.WithPartitionKey(partitionKey))
	}

	env, err := envelope.Create(data, eventType, p.source, opts...)
	if err != nil {
		p.recordPublish(topic, eventType, "error", start)

		return uuid.Nil, domain.Publishf("build envelope: %w", err)
	}

	if err := p.checker.Check(ctx, eventType, env.SchemaVersion); err != nil {
		p.recordPublish(topic, eventType, "error", start)

		return uuid.Nil, domain.Invalidf("schema check for %s: %w", eventType, err)
	}

	if env.Metadata.PartitionKey == "" {
		env.Metadata.PartitionKey = env.Event.ID.String()
	}

	value, err := envelope.Serialise(env)
	if err != nil {
		p.recordPublish(topic, eventType, "error", start)

		return uuid.Nil, domain.Publishf("serialise envelope: %w", err)
	}

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(env.Metadata.PartitionKey),
		Value:   value,
		Headers: wireHeaders(env),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.recordPublish(topic, eventType, "error", start)

		return uuid.Nil, domain.Publishf("publish to %s: %w", topic, err)
	}

	p.recordPublish(topic, eventType, "success", start)

	return env.Event.ID, nil
}

// recordPublish is a no-op when no Metrics was wired in.
func (p *Producer) recordPublish(topic, eventType, status string, start time.Time) {
	if p.metrics == nil {
		return
	}

	p.metrics.RecordPublish(topic, eventType, status, time.Since(start))
}

// wireHeaders lifts the selected metadata fields plus arbitrary
// Metadata.Headers onto the wire (spec §4.7).
func wireHeaders(env *envelope.Envelope) []kafka.Header {
	headers := []kafka.Header{
		{Key: headerCorrelationID, Value: []byte(env.Metadata.CorrelationID.String())},
		{Key: headerSchemaVersion, Value: []byte(env.SchemaVersion)},
		{Key: headerPriority, Value: []byte(fmt.Sprintf("%d", env.Metadata.Priority))},
	}

	if env.Metadata.CausationID != uuid.Nil {
		headers = append(headers, kafka.Header{Key: headerCausationID, Value: []byte(env.Metadata.CausationID.String())})
	}

	if env.Metadata.TenantID != "" {
		headers = append(headers, kafka.Header{Key: headerTenantID, Value: []byte(env.Metadata.TenantID)})
	}

	if env.Metadata.UserID != "" {
		headers = append(headers, kafka.Header{Key: headerUserID, Value: []byte(env.Metadata.UserID)})
	}

	for key, value := range env.Metadata.Headers {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	return headers
}

// BatchItem is one entry in a PublishBatch call.
type BatchItem struct {
	EventType    string
	Data         any
	PartitionKey string
}

// PublishBatch fans out Publish calls concurrently, collecting
// successful ids; it does not stop on partial failure (spec §4.7).
func (p *Producer) PublishBatch(ctx context.Context, topic string, items []BatchItem) []uuid.UUID {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		ids []uuid.UUID
	)

	for _, item := range items {
		wg.Add(1)

		go func(item BatchItem) {
			defer wg.Done()

			id, err := p.Publish(ctx, topic, item.EventType, item.Data, item.PartitionKey)
			if err != nil {
				p.logger.Warn("batch publish item failed", "topic", topic, "eventType", item.EventType, "error", err)

				return
			}

			mu.Lock()
			ids = append(ids, id)
			mu.Unlock()
		}(item)
	}

	wg.Wait()

	return ids
}

// Flush blocks until every outstanding Publish/PublishBatch call this
// Producer has in flight completes, or timeout elapses.
func (p *Producer) Flush(timeout time.Duration) error {
	done := make(chan struct{})

	go func() {
		p.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return domain.Publishf("flush timed out after %s", timeout)
	}
}

// Close closes the underlying kafka.Writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
