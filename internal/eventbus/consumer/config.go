// Package consumer implements the Event Consumer + Dispatcher (spec §4.8):
// a manual-commit poll loop over kafka-go's Reader, a write-once handler
// registry keyed by event type, and per-message dispatch into the
// dead-letter subsystem on handler failure. Grounded the way the producer
// package wires segmentio/kafka-go's first real call in this module, and
// styled after internal/storage.APIKeyStore's interface-first dependency
// shape for the handler registry.
package consumer

import (
	"fmt"

	"github.com/correlator-io/catalog/internal/config"
)

// AutoOffsetReset is one of "earliest", "latest", "error" (spec §4.8).
type AutoOffsetReset string

const (
	AutoOffsetResetEarliest AutoOffsetReset = "earliest"
	AutoOffsetResetLatest   AutoOffsetReset = "latest"
	AutoOffsetResetError    AutoOffsetReset = "error"
)

// Config recognises the fields spec §4.8 names. enableAutoCommit is not a
// field: manual commit is the only supported contract. MaxPollIntervalMs,
// MaxPollRecords, and ClientID are accepted for configuration-surface
// compatibility; kafka.Dialer (unlike kafka.Transport on the producer side)
// exposes no client-id knob, and kafka-go's Reader fetches one message at a
// time via FetchMessage rather than in poll-sized record batches, so none
// of the three currently reach the reader wiring below.
type Config struct {
	BootstrapServers []string
	GroupID          string
	ClientID         string
	AutoOffsetReset  AutoOffsetReset

	SessionTimeoutMs       int
	HeartbeatIntervalMs    int
	MaxPollIntervalMs      int
	MaxPollRecords         int
	FetchMinBytes          int
	FetchMaxWaitMs         int
	MaxPartitionFetchBytes int

	SecurityProtocol string
	SASLMechanism    string
	SASLUsername     string
	SASLPassword     string
	CAPath           string
}

// LoadConfig reads consumer settings from the environment.
func LoadConfig() *Config {
	return &Config{
		BootstrapServers:       config.ParseCommaSeparatedList(config.GetEnvStr("CATALOG_KAFKA_BOOTSTRAP_SERVERS", "localhost:9092")),
		GroupID:                config.GetEnvStr("CATALOG_CONSUMER_GROUP_ID", "catalog-consumers"),
		ClientID:               config.GetEnvStr("CATALOG_CONSUMER_CLIENT_ID", "catalog-consumer"),
		AutoOffsetReset:        AutoOffsetReset(config.GetEnvStr("CATALOG_CONSUMER_AUTO_OFFSET_RESET", "earliest")),
		SessionTimeoutMs:       config.GetEnvInt("CATALOG_CONSUMER_SESSION_TIMEOUT_MS", 10000),
		HeartbeatIntervalMs:    config.GetEnvInt("CATALOG_CONSUMER_HEARTBEAT_INTERVAL_MS", 3000),
		MaxPollIntervalMs:      config.GetEnvInt("CATALOG_CONSUMER_MAX_POLL_INTERVAL_MS", 300000),
		MaxPollRecords:         config.GetEnvInt("CATALOG_CONSUMER_MAX_POLL_RECORDS", 500),
		FetchMinBytes:          config.GetEnvInt("CATALOG_CONSUMER_FETCH_MIN_BYTES", 1),
		FetchMaxWaitMs:         config.GetEnvInt("CATALOG_CONSUMER_FETCH_MAX_WAIT_MS", 500),
		MaxPartitionFetchBytes: config.GetEnvInt("CATALOG_CONSUMER_MAX_PARTITION_FETCH_BYTES", 1048576),
		SecurityProtocol:       config.GetEnvStr("CATALOG_KAFKA_SECURITY_PROTOCOL", "PLAINTEXT"),
		SASLMechanism:          config.GetEnvStr("CATALOG_KAFKA_SASL_MECHANISM", ""),
		SASLUsername:           config.GetEnvStr("CATALOG_KAFKA_SASL_USERNAME", ""),
		SASLPassword:           config.GetEnvStr("CATALOG_KAFKA_SASL_PASSWORD", ""),
		CAPath:                 config.GetEnvStr("CATALOG_KAFKA_CA_PATH", ""),
	}
}

var validAutoOffsetReset = map[AutoOffsetReset]bool{
	AutoOffsetResetEarliest: true,
	AutoOffsetResetLatest:   true,
	AutoOffsetResetError:    true,
}

// Validate rejects an empty broker list/group id or an out-of-enum
// autoOffsetReset value.
func (c *Config) Validate() error {
	if len(c.BootstrapServers) == 0 {
		return fmt.Errorf("consumer: BootstrapServers must not be empty")
	}

	if c.GroupID == "" {
		return fmt.Errorf("consumer: GroupID must not be empty")
	}

	if !validAutoOffsetReset[c.AutoOffsetReset] {
		return fmt.Errorf("consumer: AutoOffsetReset must be one of earliest, latest, error, got %q", c.AutoOffsetReset)
	}

	return nil
}
