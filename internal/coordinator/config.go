// Package coordinator implements the catalog's central write-path
// component: Register/Update/Delete, relationship writes, and search
// resynchronisation, each as a stateless mini-saga over the Resource
// Store, Graph Store, and Search Index (spec §4.5).
package coordinator

import (
	"fmt"
	"time"

	"github.com/correlator-io/catalog/internal/config"
)

// Config configures the coordinator's circuit breakers, event source
// attribute, and resynchronisation page size.
type Config struct {
	// EventSource is the CloudEvents "source" attribute stamped on every
	// emitted event (spec §4.6).
	EventSource string

	// EventsTopic is the single topic every coordinator-emitted event is
	// published to; event.type (ResourceCreated, RelationshipDeleted, ...)
	// distinguishes payloads on one topic rather than fanning out across
	// per-type topics the spec never names. See DESIGN.md Open Question
	// decisions.
	EventsTopic string

	// ReindexPageSize is the page size ResynchroniseSearchIndex pages the
	// Resource Store in (spec §4.5: "1000-row chunks").
	ReindexPageSize int

	// BreakerMaxFailures is consecutive failures before a store breaker
	// trips open.
	BreakerMaxFailures int

	// BreakerTimeout is how long a tripped breaker stays open before
	// allowing a half-open probe.
	BreakerTimeout time.Duration

	// BreakerHalfOpenMax is the max probe requests allowed while
	// half-open.
	BreakerHalfOpenMax int
}

// LoadConfig reads coordinator settings from the environment, following
// the getter conventions in internal/config.
func LoadConfig() *Config {
	return &Config{
		EventSource:        config.GetEnvStr("CATALOG_EVENT_SOURCE", "catalog-coordinator"),
		EventsTopic:        config.GetEnvStr("CATALOG_EVENTS_TOPIC", "catalog.events"),
		ReindexPageSize:    config.GetEnvInt("CATALOG_REINDEX_PAGE_SIZE", 1000),
		BreakerMaxFailures: config.GetEnvInt("CATALOG_BREAKER_MAX_FAILURES", 5),
		BreakerTimeout:     config.GetEnvDuration("CATALOG_BREAKER_TIMEOUT", 30*time.Second),
		BreakerHalfOpenMax: config.GetEnvInt("CATALOG_BREAKER_HALF_OPEN_MAX", 3),
	}
}

// Validate rejects an empty event source or events topic, and a non-positive
// reindex page size, breaker failure threshold or half-open request limit.
// BreakerTimeout is not checked.
func (c *Config) Validate() error {
	if c.EventSource == "" {
		return fmt.Errorf("coordinator: EventSource must not be empty")
	}

	if c.EventsTopic == "" {
		return fmt.Errorf("coordinator: EventsTopic must not be empty")
	}

	if c.ReindexPageSize <= 0 {
		return fmt.Errorf("coordinator: ReindexPageSize must be positive")
	}

	if c.BreakerMaxFailures <= 0 {
		return fmt.Errorf("coordinator: BreakerMaxFailures must be positive")
	}

	if c.BreakerHalfOpenMax <= 0 {
		return fmt.Errorf("coordinator: BreakerHalfOpenMax must be positive")
	}

	return nil
}
