package consumer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/catalog/internal/eventbus/deadletter"
	"github.com/correlator-io/catalog/internal/eventbus/envelope"
	"github.com/correlator-io/catalog/internal/telemetry"
)

type fakeDLQ struct {
	handleFailed func(ctx context.Context, event deadletter.DeadLetterEvent, retry deadletter.RetryHook) error
}

func (f *fakeDLQ) HandleFailed(ctx context.Context, event deadletter.DeadLetterEvent, retry deadletter.RetryHook) error {
	return f.handleFailed(ctx, event, retry)
}

func newTestConsumer(dlq DeadLetterHandler) *Consumer {
	cfg := LoadConfig()
	cfg.BootstrapServers = []string{"localhost:9092"}

	return &Consumer{
		cfg:      cfg,
		registry: NewRegistry(),
		dlq:      dlq,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func envelopeMessage(t *testing.T, eventType string, data any) kafka.Message {
	t.Helper()

	env, err := envelope.Create(data, eventType, "catalog-coordinator")
	require.NoError(t, err)

	wire, err := envelope.Serialise(env)
	require.NoError(t, err)

	return kafka.Message{
		Topic: "resource.events",
		Value: wire,
		Headers: []kafka.Header{
			{Key: "correlation-id", Value: []byte(env.Metadata.CorrelationID.String())},
			{Key: "priority", Value: []byte("7")},
			{Key: "x-extra", Value: []byte("1")},
		},
	}
}

func TestReconstituteMetadataHeadersWin(t *testing.T) {
	base := envelope.Metadata{CorrelationID: uuid.New(), Priority: 5}
	causationID := uuid.New()

	headers := []kafka.Header{
		{Key: "causation-id", Value: []byte(causationID.String())},
		{Key: "tenant-id", Value: []byte("tenant-a")},
		{Key: "priority", Value: []byte("9")},
		{Key: "x-custom", Value: []byte("v")},
	}

	meta := reconstituteMetadata(base, headers)

	assert.Equal(t, causationID, meta.CausationID)
	assert.Equal(t, "tenant-a", meta.TenantID)
	assert.Equal(t, 9, meta.Priority)
	assert.Equal(t, "v", meta.Headers["x-custom"])
}

func TestProcessMessageSuccessCommits(t *testing.T) {
	c := newTestConsumer(&fakeDLQ{})

	var gotID string
	require.NoError(t, Register(c.registry, "ResourceCreated",
		func(ctx context.Context, payload resourceCreatedPayload, meta envelope.Metadata) error {
			gotID = payload.ID

			return nil
		}))

	msg := envelopeMessage(t, "ResourceCreated", resourceCreatedPayload{ID: "r1", Name: "orders"})

	committed := false
	c.reader = &fakeMessageSource{
		commitMessages: func(ctx context.Context, msgs ...kafka.Message) error {
			committed = true

			return nil
		},
	}

	c.processMessage(context.Background(), msg)
	assert.Equal(t, "r1", gotID)
	assert.True(t, committed)
}

func TestProcessMessageUnregisteredCommitsAndSkips(t *testing.T) {
	c := newTestConsumer(&fakeDLQ{})

	msg := envelopeMessage(t, "UnknownEvent", resourceCreatedPayload{ID: "r1"})

	committed := false
	c.reader = &fakeMessageSource{
		commitMessages: func(ctx context.Context, msgs ...kafka.Message) error {
			committed = true

			return nil
		},
	}

	c.processMessage(context.Background(), msg)
	assert.True(t, committed)
}

func TestProcessMessageHandlerFailureDefersToDLQ(t *testing.T) {
	c := newTestConsumer(nil)

	require.NoError(t, Register(c.registry, "ResourceCreated",
		func(ctx context.Context, payload resourceCreatedPayload, meta envelope.Metadata) error {
			return assert.AnError
		}))

	msg := envelopeMessage(t, "ResourceCreated", resourceCreatedPayload{ID: "r1"})

	committed := false
	c.reader = &fakeMessageSource{
		commitMessages: func(ctx context.Context, msgs ...kafka.Message) error {
			committed = true

			return nil
		},
	}

	var capturedEvent deadletter.DeadLetterEvent
	c.dlq = &fakeDLQ{
		handleFailed: func(ctx context.Context, event deadletter.DeadLetterEvent, retry deadletter.RetryHook) error {
			capturedEvent = event

			return nil
		},
	}

	c.processMessage(context.Background(), msg)
	assert.False(t, committed, "consumer must not commit directly on handler failure")
	assert.Equal(t, "resource.events", capturedEvent.Topic)
	assert.Equal(t, "catalog-consumers", capturedEvent.ConsumerGroup)
	assert.Equal(t, 1, capturedEvent.AttemptCount)
}

func TestProcessMessageRetryHookCommitsOnRecovery(t *testing.T) {
	c := newTestConsumer(nil)

	attempts := 0
	require.NoError(t, Register(c.registry, "ResourceCreated",
		func(ctx context.Context, payload resourceCreatedPayload, meta envelope.Metadata) error {
			attempts++
			if attempts == 1 {
				return assert.AnError
			}

			return nil
		}))

	msg := envelopeMessage(t, "ResourceCreated", resourceCreatedPayload{ID: "r1"})

	committed := false
	c.reader = &fakeMessageSource{
		commitMessages: func(ctx context.Context, msgs ...kafka.Message) error {
			committed = true

			return nil
		},
	}

	c.dlq = &fakeDLQ{
		handleFailed: func(ctx context.Context, event deadletter.DeadLetterEvent, retry deadletter.RetryHook) error {
			return retry(ctx, event)
		},
	}

	c.processMessage(context.Background(), msg)
	assert.True(t, committed, "retry hook must commit once the handler recovers")
	assert.Equal(t, 2, attempts)
}

func TestProcessMessageRecordsDeadLetteredOutcome(t *testing.T) {
	c := newTestConsumer(nil)
	registry := prometheus.NewRegistry()
	c.metrics = telemetry.New(registry)

	require.NoError(t, Register(c.registry, "ResourceCreated",
		func(ctx context.Context, payload resourceCreatedPayload, meta envelope.Metadata) error {
			return assert.AnError
		}))

	msg := envelopeMessage(t, "ResourceCreated", resourceCreatedPayload{ID: "r1"})

	c.reader = &fakeMessageSource{
		commitMessages: func(ctx context.Context, msgs ...kafka.Message) error {
			return nil
		},
	}
	c.dlq = &fakeDLQ{
		handleFailed: func(ctx context.Context, event deadletter.DeadLetterEvent, retry deadletter.RetryHook) error {
			return nil
		},
	}

	c.processMessage(context.Background(), msg)

	count := testutil.ToFloat64(c.metrics.ConsumerMessagesTotal.WithLabelValues("ResourceCreated", "dead-lettered"))
	assert.Equal(t, float64(1), count)
}

func TestRecordLagSetsGauge(t *testing.T) {
	c := newTestConsumer(nil)
	registry := prometheus.NewRegistry()
	c.metrics = telemetry.New(registry)
	c.reader = &fakeMessageSource{lag: 42}

	c.recordLag(kafka.Message{Topic: "resource.events", Partition: 3})

	lag := testutil.ToFloat64(
		c.metrics.ConsumerLag.WithLabelValues("resource.events", "3", c.cfg.GroupID))
	assert.Equal(t, float64(42), lag)
}

func TestRecordLagNoopWithoutMetrics(t *testing.T) {
	c := newTestConsumer(nil)
	c.reader = &fakeMessageSource{lag: 7}

	assert.NotPanics(t, func() {
		c.recordLag(kafka.Message{Topic: "resource.events", Partition: 0})
	})
}

type fakeMessageSource struct {
	fetchMessage   func(ctx context.Context) (kafka.Message, error)
	commitMessages func(ctx context.Context, msgs ...kafka.Message) error
	lag            int64
}

func (f *fakeMessageSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	return f.fetchMessage(ctx)
}

func (f *fakeMessageSource) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return f.commitMessages(ctx, msgs...)
}

func (f *fakeMessageSource) Close() error { return nil }

func (f *fakeMessageSource) Lag() int64 { return f.lag }
