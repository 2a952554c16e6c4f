package deadletter

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/catalog/internal/telemetry"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *Config {
	cfg := LoadConfig()
	cfg.BootstrapServers = []string{"localhost:9092"}
	cfg.InitialRetryDelayMs = 1
	cfg.MaxRetryDelayMs = 5
	cfg.MaxRetries = 3

	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(*Config) {}, false},
		{"empty suffix", func(c *Config) { c.TopicSuffix = "" }, true},
		{"non-positive max retries", func(c *Config) { c.MaxRetries = 0 }, true},
		{"non-positive initial delay", func(c *Config) { c.InitialRetryDelayMs = 0 }, true},
		{"non-positive multiplier", func(c *Config) { c.RetryBackoffMultiplier = 0 }, true},
		{"non-positive max delay", func(c *Config) { c.MaxRetryDelayMs = 0 }, true},
		{"empty brokers", func(c *Config) { c.BootstrapServers = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestFixedMultiplierBackoffMatchesFormula(t *testing.T) {
	bo := &fixedMultiplierBackoff{
		initial:    10 * time.Millisecond,
		max:        1 * time.Second,
		multiplier: 2.0,
	}

	for attempt := 0; attempt < 4; attempt++ {
		want := time.Duration(float64(10*time.Millisecond) * math.Pow(2.0, float64(attempt)))
		got := bo.NextBackOff()
		assert.Equal(t, want, got)
	}
}

func TestFixedMultiplierBackoffCapsAtMax(t *testing.T) {
	bo := &fixedMultiplierBackoff{
		initial:    100 * time.Millisecond,
		max:        200 * time.Millisecond,
		multiplier: 10.0,
	}

	_ = bo.NextBackOff()

	assert.Equal(t, 200*time.Millisecond, bo.NextBackOff())
}

func TestHandleFailedSucceedsWithinRetries(t *testing.T) {
	handler := &Handler{cfg: testConfig(), logger: newTestLogger()}

	attempts := 0
	retry := func(ctx context.Context, event DeadLetterEvent) error {
		attempts++
		if attempts < 2 {
			return assert.AnError
		}

		return nil
	}

	event := DeadLetterEvent{Topic: "resource.events", ConsumerGroup: "catalog-consumers"}

	err := handler.HandleFailed(context.Background(), event, retry)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestHandleFailedPublishesToDLQWhenExhausted(t *testing.T) {
	handler := &Handler{cfg: testConfig(), logger: newTestLogger()}

	var published *DeadLetterEvent

	handler.publishFunc = func(ctx context.Context, event DeadLetterEvent) error {
		published = &event

		return nil
	}

	retry := func(ctx context.Context, event DeadLetterEvent) error {
		return assert.AnError
	}

	event := DeadLetterEvent{Topic: "resource.events", ConsumerGroup: "catalog-consumers"}

	err := handler.HandleFailed(context.Background(), event, retry)
	require.NoError(t, err)
	require.NotNil(t, published)
	assert.Equal(t, handler.cfg.MaxRetries, published.AttemptCount)
}

func TestHandleFailedRecordsDLQEventOnPublish(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)
	handler := &Handler{cfg: testConfig(), metrics: metrics, logger: newTestLogger()}

	handler.publishFunc = func(ctx context.Context, event DeadLetterEvent) error {
		return nil
	}

	retry := func(ctx context.Context, event DeadLetterEvent) error {
		return assert.AnError
	}

	err := handler.HandleFailed(context.Background(), DeadLetterEvent{Topic: "resource.events"}, retry)
	require.NoError(t, err)

	count := testutil.ToFloat64(metrics.DLQEventsTotal.WithLabelValues("resource.events"))
	assert.Equal(t, float64(1), count)
}

func TestHandleFailedTracksDLQDepthDuringRetries(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)
	handler := &Handler{cfg: testConfig(), metrics: metrics, logger: newTestLogger()}

	var depthDuringRetry float64

	retry := func(ctx context.Context, event DeadLetterEvent) error {
		depthDuringRetry = testutil.ToFloat64(metrics.DLQDepth.WithLabelValues("resource.events"))

		return nil
	}

	err := handler.HandleFailed(context.Background(), DeadLetterEvent{Topic: "resource.events"}, retry)
	require.NoError(t, err)

	assert.Equal(t, float64(1), depthDuringRetry, "depth must be incremented while a retry is in flight")
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.DLQDepth.WithLabelValues("resource.events")),
		"depth must drop back to zero once HandleFailed returns")
}

func TestHandleFailedDisabledDropsEvent(t *testing.T) {
	cfg := testConfig()
	cfg.EnableDlq = false
	handler := &Handler{cfg: cfg, logger: newTestLogger()}

	calls := 0
	retry := func(ctx context.Context, event DeadLetterEvent) error {
		calls++

		return assert.AnError
	}

	err := handler.HandleFailed(context.Background(), DeadLetterEvent{Topic: "resource.events"}, retry)
	require.NoError(t, err)
	assert.Zero(t, calls)
}
