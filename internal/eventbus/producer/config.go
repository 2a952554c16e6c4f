// Package producer implements the Event Producer (spec §4.7): an
// idempotent-leaning Kafka publisher wrapping outbound payloads in
// envelope.Envelope. Grounded on segmentio/kafka-go, which the teacher
// declares in go.mod but never calls — this package is its first real
// wiring, built the way internal/storage.NewConnection wires lib/pq: a
// config struct with defaults, a constructor that validates and
// connects, and a Close method.
package producer

import (
	"fmt"

	"github.com/correlator-io/catalog/internal/config"
)

// Config recognises the fields spec §4.7 names.
type Config struct {
	BootstrapServers []string
	ClientID         string

	// Acks is one of "all", "1", "0".
	Acks string

	EnableIdempotence bool
	MaxInFlight       int
	MessageTimeoutMs  int
	Retries           int
	RetryBackoffMs    int
	LingerMs          int
	BatchSize         int

	// CompressionType is one of "gzip", "snappy", "lz4", "zstd", "none".
	CompressionType string

	MessageMaxBytes int

	// Source is the CloudEvents "source" attribute stamped on every
	// envelope this producer creates (spec §4.6).
	Source string

	// Transport security.
	SecurityProtocol string
	SASLMechanism    string
	SASLUsername     string
	SASLPassword     string
	CAPath           string
}

// LoadConfig reads producer settings from the environment.
func LoadConfig() *Config {
	return &Config{
		BootstrapServers:  config.ParseCommaSeparatedList(config.GetEnvStr("CATALOG_KAFKA_BOOTSTRAP_SERVERS", "localhost:9092")),
		ClientID:          config.GetEnvStr("CATALOG_PRODUCER_CLIENT_ID", "catalog-producer"),
		Acks:              config.GetEnvStr("CATALOG_PRODUCER_ACKS", "all"),
		EnableIdempotence: config.GetEnvBool("CATALOG_PRODUCER_ENABLE_IDEMPOTENCE", true),
		MaxInFlight:       config.GetEnvInt("CATALOG_PRODUCER_MAX_IN_FLIGHT", 5),
		MessageTimeoutMs:  config.GetEnvInt("CATALOG_PRODUCER_MESSAGE_TIMEOUT_MS", 30000),
		Retries:           config.GetEnvInt("CATALOG_PRODUCER_RETRIES", 3),
		RetryBackoffMs:    config.GetEnvInt("CATALOG_PRODUCER_RETRY_BACKOFF_MS", 100),
		LingerMs:          config.GetEnvInt("CATALOG_PRODUCER_LINGER_MS", 0),
		BatchSize:         config.GetEnvInt("CATALOG_PRODUCER_BATCH_SIZE", 100),
		CompressionType:   config.GetEnvStr("CATALOG_PRODUCER_COMPRESSION_TYPE", "snappy"),
		MessageMaxBytes:   config.GetEnvInt("CATALOG_PRODUCER_MESSAGE_MAX_BYTES", 1048576),
		Source:            config.GetEnvStr("CATALOG_EVENT_SOURCE", "catalog-coordinator"),
		SecurityProtocol:  config.GetEnvStr("CATALOG_KAFKA_SECURITY_PROTOCOL", "PLAINTEXT"),
		SASLMechanism:     config.GetEnvStr("CATALOG_KAFKA_SASL_MECHANISM", ""),
		SASLUsername:      config.GetEnvStr("CATALOG_KAFKA_SASL_USERNAME", ""),
		SASLPassword:      config.GetEnvStr("CATALOG_KAFKA_SASL_PASSWORD", ""),
		CAPath:            config.GetEnvStr("CATALOG_KAFKA_CA_PATH", ""),
	}
}

var validAcks = map[string]bool{"all": true, "1": true, "0": true}

var validCompression = map[string]bool{"gzip": true, "snappy": true, "lz4": true, "zstd": true, "none": true}

// Validate rejects an empty broker list or an out-of-enum acks/
// compressionType value.
func (c *Config) Validate() error {
	if len(c.BootstrapServers) == 0 {
		return fmt.Errorf("producer: BootstrapServers must not be empty")
	}

	if !validAcks[c.Acks] {
		return fmt.Errorf("producer: Acks must be one of all, 1, 0, got %q", c.Acks)
	}

	if !validCompression[c.CompressionType] {
		return fmt.Errorf("producer: CompressionType must be one of gzip, snappy, lz4, zstd, none, got %q", c.CompressionType)
	}

	if c.Source == "" {
		return fmt.Errorf("producer: Source must not be empty")
	}

	return nil
}
