// Package deadletter implements the dead-letter subsystem (spec §4.9):
// exponential-backoff in-process retry of a failed handler invocation,
// falling back to a separate acks=all (not idempotent) producer publishing to
// "<origTopic><topicSuffix>" once retries are exhausted. The backoff
// primitive is grounded on cenkalti/backoff/v4, the same library
// internal/resilience-style code in the pack wraps for retry delays.
package deadletter

import (
	"fmt"

	"github.com/correlator-io/catalog/internal/config"
)

// Config recognises the fields spec §4.9 names.
type Config struct {
	// TopicSuffix is appended to the original topic name (default ".dlq").
	TopicSuffix string

	MaxRetries             int
	InitialRetryDelayMs    int
	RetryBackoffMultiplier float64
	MaxRetryDelayMs        int
	EnableDlq              bool

	BootstrapServers []string
	ClientID         string
}

// LoadConfig reads dead-letter settings from the environment.
func LoadConfig() *Config {
	return &Config{
		TopicSuffix:            config.GetEnvStr("CATALOG_DLQ_TOPIC_SUFFIX", ".dlq"),
		MaxRetries:             config.GetEnvInt("CATALOG_DLQ_MAX_RETRIES", 5),
		InitialRetryDelayMs:    config.GetEnvInt("CATALOG_DLQ_INITIAL_RETRY_DELAY_MS", 1000),
		RetryBackoffMultiplier: config.GetEnvFloat("CATALOG_DLQ_RETRY_BACKOFF_MULTIPLIER", 2.0),
		MaxRetryDelayMs:        config.GetEnvInt("CATALOG_DLQ_MAX_RETRY_DELAY_MS", 60000),
		EnableDlq:              config.GetEnvBool("CATALOG_DLQ_ENABLE", true),
		BootstrapServers:       config.ParseCommaSeparatedList(config.GetEnvStr("CATALOG_KAFKA_BOOTSTRAP_SERVERS", "localhost:9092")),
		ClientID:               config.GetEnvStr("CATALOG_DLQ_CLIENT_ID", "catalog-dlq"),
	}
}

// Validate rejects a non-positive retry/delay setting or an empty broker
// list or topic suffix.
func (c *Config) Validate() error {
	if c.TopicSuffix == "" {
		return fmt.Errorf("deadletter: TopicSuffix must not be empty")
	}

	if c.MaxRetries <= 0 {
		return fmt.Errorf("deadletter: MaxRetries must be positive, got %d", c.MaxRetries)
	}

	if c.InitialRetryDelayMs <= 0 {
		return fmt.Errorf("deadletter: InitialRetryDelayMs must be positive, got %d", c.InitialRetryDelayMs)
	}

	if c.RetryBackoffMultiplier <= 0 {
		return fmt.Errorf("deadletter: RetryBackoffMultiplier must be positive, got %f", c.RetryBackoffMultiplier)
	}

	if c.MaxRetryDelayMs <= 0 {
		return fmt.Errorf("deadletter: MaxRetryDelayMs must be positive, got %d", c.MaxRetryDelayMs)
	}

	if len(c.BootstrapServers) == 0 {
		return fmt.Errorf("deadletter: BootstrapServers must not be empty")
	}

	return nil
}
